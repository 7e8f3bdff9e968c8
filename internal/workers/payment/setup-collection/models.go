// internal/workers/payment/setup-collection/models.go
package setupcollection

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	MandateRegistered  bool   `json:"mandateRegistered"`
	ContractReference  string `json:"contractReference,omitempty"`
	StudentExternalID  string `json:"studentExternalId,omitempty"`
	PropertyExternalID string `json:"propertyExternalId,omitempty"`
	CollectionWarning  string `json:"collectionWarning,omitempty"`
	CompletedAt        string `json:"completedAt"` // ISO 8601
}

const inputSchema = `{
	"type": "object",
	"required": ["applicationId"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1}
	}
}`
