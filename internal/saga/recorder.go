package saga

import (
	"context"
	"encoding/json"
	"time"

	"rentpay-workers/internal/common/logger"
	"rentpay-workers/internal/models"
)

// ApplicationWriter writes the integration block back onto an application.
type ApplicationWriter interface {
	UpdateIntegration(ctx context.Context, applicationID string, update models.IntegrationUpdate) error
}

// AuditIndexer archives a saga run for later inspection.
type AuditIndexer interface {
	IndexSagaAudit(ctx context.Context, applicationID string, doc map[string]interface{}) error
}

// Recorder persists saga outcomes. A persistence failure is logged and
// swallowed: the tenancy approval already happened and must not be undone by
// a bookkeeping write.
type Recorder struct {
	store  ApplicationWriter
	audit  AuditIndexer // nil disables audit archiving
	logger logger.Logger
	now    func() time.Time
}

func NewRecorder(store ApplicationWriter, audit AuditIndexer, log logger.Logger) *Recorder {
	return &Recorder{store: store, audit: audit, logger: log, now: time.Now}
}

// recordTimeout bounds the outcome write once it is detached from the job
// context.
const recordTimeout = 10 * time.Second

// Record writes the integration block for a finished run. On success the
// error column is explicitly cleared so a later read does not see a stale
// failure from a previous attempt.
//
// The caller's context is often the job context, and on timeout paths it is
// already expired by the slow remote call that caused the failure. The write
// detaches from that cancellation and runs under its own deadline so the
// outcome still lands.
func (r *Recorder) Record(ctx context.Context, applicationID string, res *Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	update := models.IntegrationUpdate{
		Status:             models.IntegrationFailed,
		StudentExternalID:  res.StudentExternalID,
		PropertyExternalID: res.PropertyExternalID,
		StudentRegistered:  res.Student.Success,
		PropertyRegistered: res.Property.Success,
		MandateRegistered:  res.Mandate.Success,
		IntegrationDate:    r.now().UTC(),
		StepSnapshots:      r.snapshots(res),
	}

	if res.Success {
		update.Status = models.IntegrationCompleted
		if res.ContractReference != "" {
			update.ContractReference = &res.ContractReference
		}
	} else {
		msg := res.FailureMessage()
		update.ErrorMessage = &msg
	}

	if err := r.store.UpdateIntegration(ctx, applicationID, update); err != nil {
		r.logger.Error("failed to persist saga outcome, approval unaffected", map[string]interface{}{
			"applicationId": applicationID,
			"status":        string(update.Status),
			"error":         err.Error(),
		})
	}

	r.archive(ctx, applicationID, res, update.Status)
}

func (r *Recorder) snapshots(res *Result) json.RawMessage {
	raw, err := json.Marshal(map[string]StepResult{
		"student":  res.Student,
		"property": res.Property,
		"mandate":  res.Mandate,
	})
	if err != nil {
		return nil
	}
	return raw
}

func (r *Recorder) archive(ctx context.Context, applicationID string, res *Result, status models.IntegrationStatus) {
	if r.audit == nil {
		return
	}

	doc := map[string]interface{}{
		"applicationId":      applicationID,
		"status":             string(status),
		"contractReference":  res.ContractReference,
		"studentExternalId":  res.StudentExternalID,
		"propertyExternalId": res.PropertyExternalID,
		"studentVerified":    res.StudentVerified,
		"testMode":           res.TestMode,
		"amountApplied":      res.AmountApplied.StringFixed(2),
		"student":            res.Student,
		"property":           res.Property,
		"mandate":            res.Mandate,
		"recordedAt":         r.now().UTC().Format(time.RFC3339),
	}
	if err := r.audit.IndexSagaAudit(ctx, applicationID, doc); err != nil {
		r.logger.Warn("audit archive failed", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
	}
}
