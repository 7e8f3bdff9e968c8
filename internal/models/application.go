package models

import (
	"encoding/json"
	"time"
)

// IntegrationStatus tracks the terminal outcome of the payment-collection
// setup saga on an application. There is no persisted in-progress state:
// a saga either finishes completed or failed.
type IntegrationStatus string

const (
	IntegrationNotStarted IntegrationStatus = "not_started"
	IntegrationCompleted  IntegrationStatus = "completed"
	IntegrationFailed     IntegrationStatus = "failed"
)

// Application is a tenant's request for a property. The approval workflow
// owns it; the saga only reads it and writes back the integration block.
type Application struct {
	ID                 string            `json:"id"`
	StudentID          string            `json:"studentId"`
	PropertyID         string            `json:"propertyId"`
	Status             string            `json:"status"`
	IntegrationStatus  IntegrationStatus `json:"integrationStatus"`
	ContractReference  string            `json:"contractReference,omitempty"`
	StudentRegistered  bool              `json:"studentRegistered"`
	PropertyRegistered bool              `json:"propertyRegistered"`
	MandateRegistered  bool              `json:"mandateRegistered"`
	ErrorMessage       string            `json:"errorMessage,omitempty"`
	IntegrationDate    *time.Time        `json:"integrationDate,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// IntegrationUpdate is the write-back applied to an application after a saga
// run. ErrorMessage and ContractReference are pointers so a full success can
// explicitly clear the error column instead of leaving a stale value behind.
type IntegrationUpdate struct {
	Status             IntegrationStatus
	ContractReference  *string
	StudentExternalID  string
	PropertyExternalID string
	StudentRegistered  bool
	PropertyRegistered bool
	MandateRegistered  bool
	ErrorMessage       *string
	IntegrationDate    time.Time
	StepSnapshots      json.RawMessage
}
