package saga

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rentpay-workers/internal/common/errors"
	"rentpay-workers/internal/common/logger"
	"rentpay-workers/internal/common/metrics"
	"rentpay-workers/internal/common/retry"
	"rentpay-workers/internal/models"
	"rentpay-workers/internal/paycollect"
)

// Banking defaults substituted when the tenant profile leaves the field
// empty. TODO: move these into per-environment config once the profile
// capture flow collects real bank details.
const (
	defaultBankID      = "632005"
	defaultAccountType = "1"
	defaultIDNumber    = "0000000000000"
	defaultIDType      = "1"
)

// RegistrationAPI is the slice of the payment-collection client the
// orchestrator uses. *paycollect.Client satisfies it.
type RegistrationAPI interface {
	RegisterStudent(ctx context.Context, reg *paycollect.StudentRegistration) *paycollect.Outcome
	RegisterProperty(ctx context.Context, reg *paycollect.PropertyRegistration) *paycollect.Outcome
	GetStudentByID(ctx context.Context, id string) *paycollect.Outcome
	GetPropertyByCode(ctx context.Context, code string) *paycollect.Outcome
	RegisterMandate(ctx context.Context, reg *paycollect.MandateRegistration) *paycollect.Outcome
	CheckMandateStatus(ctx context.Context, contractRef string) *paycollect.Outcome
}

// OutcomeRecorder persists the saga result. Record must not return an error:
// outcome persistence is unconditional and never undoes an approval.
type OutcomeRecorder interface {
	Record(ctx context.Context, applicationID string, result *Result)
}

// Config carries the mandate parameters and verification tuning.
type Config struct {
	MagID            string
	FrequencyCode    string
	NoOfInstallments int
	TrackingDays     int
	VerifyAttempts   int
	VerifyDelay      time.Duration
}

func (c *Config) applyDefaults() {
	if c.FrequencyCode == "" {
		c.FrequencyCode = "M"
	}
	if c.NoOfInstallments == 0 {
		c.NoOfInstallments = 12
	}
	if c.TrackingDays == 0 {
		c.TrackingDays = 3
	}
	if c.VerifyAttempts == 0 {
		c.VerifyAttempts = 3
	}
	if c.VerifyDelay == 0 {
		c.VerifyDelay = 300 * time.Millisecond
	}
}

// Input bundles the records the saga operates on. The caller loads them; the
// orchestrator never touches the record store directly.
type Input struct {
	Application models.Application
	Student     models.Student
	Property    models.Property
}

// Orchestrator runs the payment-collection setup saga: register student,
// verify visibility, register property, resolve its id, then register the
// collection mandate. Registration steps tolerate duplicates, so a re-run
// after a partial failure converges instead of erroring.
type Orchestrator struct {
	api      RegistrationAPI
	amounts  *AmountPolicy
	recorder OutcomeRecorder
	logger   logger.Logger
	cfg      Config
	now      func() time.Time
}

func New(api RegistrationAPI, amounts *AmountPolicy, recorder OutcomeRecorder, log logger.Logger, cfg Config) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		api:      api,
		amounts:  amounts,
		recorder: recorder,
		logger:   log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run executes the saga. It returns a non-nil Result in every case; err is
// non-nil only for fatal aborts (missing bank account, student or property
// registration failure). A mandate rejection is NOT fatal: the approval
// stands, the failure is recorded, and err is nil. The outcome is persisted
// via the recorder on every path, including fatal ones.
func (o *Orchestrator) Run(ctx context.Context, input Input) (*Result, error) {
	res := &Result{}
	log := o.logger.WithFields(map[string]interface{}{
		"applicationId": input.Application.ID,
		"studentId":     input.Student.ID,
		"propertyId":    input.Property.ID,
	})

	if strings.TrimSpace(input.Student.AccountNumber) == "" {
		stdErr := errors.NewMissingBankAccountError(input.Student.ID)
		res.Student.Error = stdErr.Message
		log.Error("aborting before any remote call", map[string]interface{}{"error": stdErr.Message})
		o.finish(ctx, input.Application.ID, res)
		return res, stdErr
	}

	res.StudentExternalID = StudentExternalID(input.Student.ID)
	reg := o.studentRegistration(input.Student, res.StudentExternalID, log)

	studentOut := o.timedStep("register_student", func() *paycollect.Outcome {
		return o.api.RegisterStudent(ctx, reg)
	})
	step, fatal := o.registrationStep(studentOut, "student", log)
	res.Student = step
	if fatal {
		o.finish(ctx, input.Application.ID, res)
		return res, errors.NewStudentRegistrationError(step.Error)
	}
	if echoed := studentOut.DataString("student_id", "id"); echoed != "" {
		res.StudentExternalID = echoed
	}

	res.StudentVerified = o.verifyStudent(ctx, reg, res.StudentExternalID)
	if !res.StudentVerified {
		log.Warn("student not visible after verification attempts, continuing", map[string]interface{}{
			"studentExternalId": res.StudentExternalID,
			"attempts":          o.cfg.VerifyAttempts,
		})
	}

	code := input.Property.Code()
	propOut := o.timedStep("register_property", func() *paycollect.Outcome {
		return o.api.RegisterProperty(ctx, &paycollect.PropertyRegistration{
			PropertyCode: code,
			PropertyName: input.Property.Name,
			Address:      input.Property.Address,
			MonthlyRent:  input.Property.MonthlyRent,
		})
	})
	step, fatal = o.registrationStep(propOut, "property", log)
	res.Property = step
	if fatal {
		o.finish(ctx, input.Application.ID, res)
		return res, errors.NewPropertyRegistrationError(step.Error)
	}

	res.PropertyExternalID = o.resolvePropertyID(ctx, code, propOut)

	testMode := o.amounts.IsTestMode(ctx)
	amount := ApplyCap(input.Property.MonthlyRent, testMode)
	res.TestMode = testMode
	res.AmountApplied = amount
	if testMode && !amount.Equal(input.Property.MonthlyRent) {
		log.Info("test mode, capping mandate amount", map[string]interface{}{
			"requested": input.Property.MonthlyRent.StringFixed(2),
			"applied":   amount.StringFixed(2),
		})
	}

	mandOut := o.timedStep("register_mandate", func() *paycollect.Outcome {
		return o.api.RegisterMandate(ctx, &paycollect.MandateRegistration{
			StudentID:        res.StudentExternalID,
			PropertyID:       res.PropertyExternalID,
			MonthlyRent:      amount,
			StartDate:        MandateStartDate(o.now()),
			FrequencyCode:    o.cfg.FrequencyCode,
			NoOfInstallments: o.cfg.NoOfInstallments,
			TrackingDays:     o.cfg.TrackingDays,
			MagID:            o.cfg.MagID,
		})
	})
	res.Mandate = stepFromOutcome(mandOut)

	if mandOut.Success {
		res.Success = true
		res.ContractReference = mandOut.DataString("contract_reference", "contract_ref", "id")
		o.snapshotMandateStatus(ctx, res, log)
		log.Info("mandate registered", map[string]interface{}{
			"contractReference": res.ContractReference,
			"amount":            amount.StringFixed(2),
		})
	} else {
		res.Mandate.Error = o.mandateFailureMessage(mandOut, amount, testMode)
		log.Error("mandate registration failed, approval stands", map[string]interface{}{
			"error": res.Mandate.Error,
		})
	}

	o.finish(ctx, input.Application.ID, res)
	return res, nil
}

// studentRegistration builds the registration body, filling empty banking
// fields with the documented defaults.
func (o *Orchestrator) studentRegistration(s models.Student, externalID string, log logger.Logger) *paycollect.StudentRegistration {
	reg := &paycollect.StudentRegistration{
		StudentID:     externalID,
		FullName:      s.FullName,
		Email:         s.Email,
		Phone:         s.Phone,
		IDNumber:      s.IDNumber,
		IDType:        s.IDType,
		AccountNumber: s.AccountNumber,
		AccountType:   s.AccountType,
		BankID:        s.BankID,
	}

	var defaulted []string
	if reg.BankID == "" {
		reg.BankID = defaultBankID
		defaulted = append(defaulted, "bank_id")
	}
	if reg.AccountType == "" {
		reg.AccountType = defaultAccountType
		defaulted = append(defaulted, "account_type")
	}
	if reg.IDNumber == "" {
		reg.IDNumber = defaultIDNumber
		defaulted = append(defaulted, "id_number")
	}
	if reg.IDType == "" {
		reg.IDType = defaultIDType
		defaulted = append(defaulted, "id_type")
	}
	if len(defaulted) > 0 {
		log.Warn("profile missing banking fields, substituting defaults", map[string]interface{}{
			"fields": strings.Join(defaulted, ","),
		})
	}

	return reg
}

// registrationStep interprets a student or property registration outcome.
// An already-registered rejection counts as success; anything else failing
// is fatal.
func (o *Orchestrator) registrationStep(out *paycollect.Outcome, entity string, log logger.Logger) (StepResult, bool) {
	step := stepFromOutcome(out)
	if out.Success {
		return step, false
	}

	if isDuplicate(out) {
		log.Info(entity+" already registered, treating as success", map[string]interface{}{
			"message": out.Message,
		})
		step.Success = true
		return step, false
	}

	step.Error = paycollect.NormalizeErrors(out.Errors, out.Message)
	log.Error(entity+" registration failed", map[string]interface{}{"error": step.Error})
	return step, true
}

// verifyStudent polls the lookup endpoint until the student is visible or
// attempts are exhausted. The registration and lookup paths are eventually
// consistent, so a miss before the final attempt triggers one duplicate-safe
// re-registration before the next poll.
func (o *Orchestrator) verifyStudent(ctx context.Context, reg *paycollect.StudentRegistration, externalID string) bool {
	visible := false
	start := time.Now()
	defer func() {
		metrics.SagaStepDuration.WithLabelValues("verify_student").Observe(time.Since(start).Seconds())
	}()

	_ = retry.Do(ctx, o.cfg.VerifyAttempts, o.cfg.VerifyDelay, func(attempt int) (bool, error) {
		if o.api.GetStudentByID(ctx, externalID).Success {
			visible = true
			return true, nil
		}
		o.logger.Debug("student not visible yet", map[string]interface{}{
			"studentExternalId": externalID,
			"attempt":           attempt,
		})
		if attempt < o.cfg.VerifyAttempts {
			o.api.RegisterStudent(ctx, reg)
		}
		return false, nil
	})

	return visible
}

// resolvePropertyID prefers the id the lookup returns, then the id echoed by
// the registration response, then the code itself.
func (o *Orchestrator) resolvePropertyID(ctx context.Context, code string, propOut *paycollect.Outcome) string {
	if id := o.api.GetPropertyByCode(ctx, code).DataString("property_id", "id"); id != "" {
		return id
	}
	if id := propOut.DataString("property_id", "id"); id != "" {
		return id
	}
	return code
}

// mandateFailureMessage normalizes a mandate rejection, replacing recognized
// amount-limit rejections with a message naming the attempted amount and mode.
func (o *Orchestrator) mandateFailureMessage(out *paycollect.Outcome, amount decimal.Decimal, testMode bool) string {
	if limitMsg, found := paycollect.FindAmountLimitError(out.Errors); found {
		if testMode {
			return fmt.Sprintf("Mandate amount %s rejected by amount limit rule (test mode, cap %s): %s",
				amount.StringFixed(2), TestModeCap.StringFixed(2), limitMsg)
		}
		return fmt.Sprintf("Mandate amount %s rejected by amount limit rule: %s",
			amount.StringFixed(2), limitMsg)
	}
	return paycollect.NormalizeErrors(out.Errors, out.Message)
}

// snapshotMandateStatus fetches the mandate status once after a successful
// registration, best effort.
func (o *Orchestrator) snapshotMandateStatus(ctx context.Context, res *Result, log logger.Logger) {
	if res.ContractReference == "" {
		return
	}
	status := o.api.CheckMandateStatus(ctx, res.ContractReference)
	if !status.Success {
		log.Debug("mandate status check failed", map[string]interface{}{
			"contractReference": res.ContractReference,
		})
		return
	}
	res.MandateStatus = status.DataString("status", "mandate_status")
}

func (o *Orchestrator) finish(ctx context.Context, applicationID string, res *Result) {
	outcome := "failed"
	if res.Success {
		outcome = "completed"
	}
	metrics.SagaRuns.WithLabelValues(outcome).Inc()
	o.recorder.Record(ctx, applicationID, res)
}

func (o *Orchestrator) timedStep(step string, fn func() *paycollect.Outcome) *paycollect.Outcome {
	start := time.Now()
	out := fn()
	metrics.SagaStepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	return out
}

// isDuplicate scans a failed outcome for the phrasings the service uses when
// the entity is already on file.
func isDuplicate(out *paycollect.Outcome) bool {
	text := strings.ToLower(out.Message + " " + paycollect.NormalizeErrors(out.Errors, ""))
	for _, marker := range []string{"already exists", "already registered", "duplicate"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
