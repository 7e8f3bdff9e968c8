// internal/workers/payment/setup-collection/handler.go
package setupcollection

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"rentpay-workers/internal/common/errors"
	"rentpay-workers/internal/common/logger"
	"rentpay-workers/internal/common/metrics"
	"rentpay-workers/internal/common/observability"
	"rentpay-workers/internal/common/validation"
	"rentpay-workers/internal/models"
	"rentpay-workers/internal/saga"
)

const TaskType = "payment.setup-collection"

// SagaRunner runs the payment-collection setup saga.
type SagaRunner interface {
	Run(ctx context.Context, input saga.Input) (*saga.Result, error)
}

// RecordLoader loads the records the saga needs.
type RecordLoader interface {
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	GetProperty(ctx context.Context, id string) (*models.Property, error)
}

// FailureAlerter notifies operators of a failed setup.
type FailureAlerter interface {
	SagaFailure(ctx context.Context, applicationID, reason string)
}

type Handler struct {
	config  *Config
	store   RecordLoader
	saga    SagaRunner
	alerter FailureAlerter // nil disables alerts
	obs     *observability.Observability
	logger  logger.Logger
}

func NewHandler(config *Config, store RecordLoader, runner SagaRunner, alerter FailureAlerter, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		store:   store,
		saga:    runner,
		alerter: alerter,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// WithObservability attaches the OTel recorder.
func (h *Handler) WithObservability(obs *observability.Observability) *Handler {
	h.obs = obs
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	log := h.logger.WithFields(map[string]interface{}{
		"jobKey":        job.Key,
		"workflowKey":   job.ProcessInstanceKey,
		"correlationId": uuid.New().String(),
	})
	log.Info("processing job", nil)

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &raw); err != nil {
		h.failJob(client, job, errors.NewInputParsingError(err.Error()), log)
		return
	}

	if result := validation.ValidateInput(raw, inputSchema); !result.Valid {
		details := strings.Join(result.GetErrorMessages(), "; ")
		h.failJob(client, job, errors.NewValidationError(details), log)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, errors.NewInputParsingError(err.Error()), log)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, stdErr := h.Execute(ctx, &input, log)
	if stdErr != nil {
		h.recordSaga(ctx, start, "failed")
		h.alert(ctx, input.ApplicationID, stdErr.Details)
		h.failJob(client, job, stdErr, log)
		return
	}

	if output.CollectionWarning != "" {
		h.recordSaga(ctx, start, "failed")
		h.alert(ctx, input.ApplicationID, output.CollectionWarning)
	} else {
		h.recordSaga(ctx, start, "completed")
	}

	h.completeJob(client, job, output, log)
}

func (h *Handler) recordSaga(ctx context.Context, start time.Time, status string) {
	if h.obs == nil {
		return
	}
	h.obs.RecordSagaProcessed(ctx, status)
	h.obs.RecordSagaDuration(ctx, time.Since(start), status)
}

// Execute loads the records and runs the saga. A mandate rejection is
// reported through Output.CollectionWarning, not as an error: the workflow
// continues and the failure is already persisted on the application.
func (h *Handler) Execute(ctx context.Context, input *Input, log logger.Logger) (*Output, *errors.StandardError) {
	app, err := h.store.GetApplication(ctx, input.ApplicationID)
	if err != nil {
		return nil, asStandardError(err)
	}

	if app.IntegrationStatus == models.IntegrationCompleted {
		// Registration steps tolerate duplicates, so re-running converges
		// on the same state instead of double-registering.
		log.Warn("integration already completed, re-running", map[string]interface{}{
			"applicationId":     app.ID,
			"contractReference": app.ContractReference,
		})
	}

	student, err := h.store.GetStudent(ctx, app.StudentID)
	if err != nil {
		return nil, asStandardError(err)
	}

	property, err := h.store.GetProperty(ctx, app.PropertyID)
	if err != nil {
		return nil, asStandardError(err)
	}

	res, err := h.saga.Run(ctx, saga.Input{
		Application: *app,
		Student:     *student,
		Property:    *property,
	})
	if err != nil {
		return nil, asStandardError(err)
	}

	output := &Output{
		MandateRegistered:  res.Success,
		ContractReference:  res.ContractReference,
		StudentExternalID:  res.StudentExternalID,
		PropertyExternalID: res.PropertyExternalID,
		CompletedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	if !res.Success {
		output.CollectionWarning = res.FailureMessage()
	}
	return output, nil
}

func (h *Handler) alert(ctx context.Context, applicationID, reason string) {
	if h.alerter == nil || !h.config.AlertsEnabled {
		return
	}
	h.alerter.SagaFailure(ctx, applicationID, reason)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	log.Info("job completed", map[string]interface{}{
		"mandateRegistered": output.MandateRegistered,
		"contractReference": output.ContractReference,
	})
}

// failJob reports a fatal saga error to the engine. Retryable errors go back
// to the job queue with decremented retries; the rest raise a BPMN error the
// process model can route.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *errors.StandardError, log logger.Logger) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	bpmnErr := errors.ConvertToBPMNError(stdErr)
	log.Error("job failed", map[string]interface{}{
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
		"errorDetails": bpmnErr.Details,
		"retryable":    bpmnErr.Retryable,
	})

	if bpmnErr.Retryable && job.Retries > 1 {
		_, err := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(job.Retries - 1).
			ErrorMessage(bpmnErr.Message).
			Send(context.Background())
		if err != nil {
			log.Error("failed to fail job", map[string]interface{}{"error": err})
		}
		return
	}

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message).
		Send(context.Background())
	if err != nil {
		log.Error("failed to throw error", map[string]interface{}{"error": err})
	}
}

func asStandardError(err error) *errors.StandardError {
	if stdErr, ok := err.(*errors.StandardError); ok {
		return stdErr
	}
	return errors.NewUnknownRemoteError(err.Error())
}
