package models

// Student is the tenant profile the saga reads. Banking fields beyond
// AccountNumber are optional at the profile level; the orchestrator
// substitutes documented defaults when they are empty.
type Student struct {
	ID            string `json:"id"`
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	IDNumber      string `json:"idNumber,omitempty"`
	IDType        string `json:"idType,omitempty"`
	AccountNumber string `json:"accountNumber"`
	AccountType   string `json:"accountType,omitempty"`
	BankID        string `json:"bankId,omitempty"`
}
