package saga

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "rentpay-workers/internal/common/errors"
	"rentpay-workers/internal/common/logger"
	"rentpay-workers/internal/models"
	"rentpay-workers/internal/paycollect"
)

type fakeAPI struct {
	calls       map[string]int
	lastStudent *paycollect.StudentRegistration
	lastMandate *paycollect.MandateRegistration

	registerStudent  func(*paycollect.StudentRegistration) *paycollect.Outcome
	registerProperty func(*paycollect.PropertyRegistration) *paycollect.Outcome
	getStudent       func(string) *paycollect.Outcome
	getProperty      func(string) *paycollect.Outcome
	registerMandate  func(*paycollect.MandateRegistration) *paycollect.Outcome
	checkStatus      func(string) *paycollect.Outcome
}

func okOutcome() *paycollect.Outcome {
	return &paycollect.Outcome{Success: true, Message: "ok"}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:            map[string]int{},
		registerStudent:  func(*paycollect.StudentRegistration) *paycollect.Outcome { return okOutcome() },
		registerProperty: func(*paycollect.PropertyRegistration) *paycollect.Outcome { return okOutcome() },
		getStudent:       func(string) *paycollect.Outcome { return okOutcome() },
		getProperty: func(string) *paycollect.Outcome {
			return &paycollect.Outcome{Success: true, Data: map[string]interface{}{"property_id": "9001"}}
		},
		registerMandate: func(*paycollect.MandateRegistration) *paycollect.Outcome {
			return &paycollect.Outcome{Success: true, Data: map[string]interface{}{"contract_reference": "CR-123"}}
		},
		checkStatus: func(string) *paycollect.Outcome {
			return &paycollect.Outcome{Success: true, Data: map[string]interface{}{"status": "ACTIVE"}}
		},
	}
}

func (f *fakeAPI) RegisterStudent(_ context.Context, reg *paycollect.StudentRegistration) *paycollect.Outcome {
	f.calls["RegisterStudent"]++
	f.lastStudent = reg
	return f.registerStudent(reg)
}

func (f *fakeAPI) RegisterProperty(_ context.Context, reg *paycollect.PropertyRegistration) *paycollect.Outcome {
	f.calls["RegisterProperty"]++
	return f.registerProperty(reg)
}

func (f *fakeAPI) GetStudentByID(_ context.Context, id string) *paycollect.Outcome {
	f.calls["GetStudentByID"]++
	return f.getStudent(id)
}

func (f *fakeAPI) GetPropertyByCode(_ context.Context, code string) *paycollect.Outcome {
	f.calls["GetPropertyByCode"]++
	return f.getProperty(code)
}

func (f *fakeAPI) RegisterMandate(_ context.Context, reg *paycollect.MandateRegistration) *paycollect.Outcome {
	f.calls["RegisterMandate"]++
	f.lastMandate = reg
	return f.registerMandate(reg)
}

func (f *fakeAPI) CheckMandateStatus(_ context.Context, ref string) *paycollect.Outcome {
	f.calls["CheckMandateStatus"]++
	return f.checkStatus(ref)
}

type fakeRecorder struct {
	applicationID string
	result        *Result
	records       int
}

func (f *fakeRecorder) Record(_ context.Context, applicationID string, res *Result) {
	f.records++
	f.applicationID = applicationID
	f.result = res
}

func testInput() Input {
	return Input{
		Application: models.Application{ID: "app-1", StudentID: "stu-1", PropertyID: "prop-1"},
		Student: models.Student{
			ID:            "stu-1",
			FullName:      "Thandi Nkosi",
			Email:         "thandi@example.com",
			Phone:         "+27820000001",
			AccountNumber: "1122334455",
		},
		Property: models.Property{
			ID:          "prop-1",
			Name:        "Unit 4, Oak Ridge",
			Address:     "12 Oak Ridge Rd",
			MonthlyRent: decimal.RequireFromString("8500.00"),
		},
	}
}

func newTestOrchestrator(t *testing.T, api *fakeAPI, settings *stubSettings) (*Orchestrator, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	o := New(api, NewAmountPolicy(settings, logger.NewTestLogger(t)), rec, logger.NewTestLogger(t), Config{
		MagID:       "MAG-77",
		VerifyDelay: time.Millisecond,
	})
	o.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }
	return o, rec
}

func TestRun_HappyPath(t *testing.T) {
	api := newFakeAPI()
	o, rec := newTestOrchestrator(t, api, &stubSettings{status: "1"})

	res, err := o.Run(context.Background(), testInput())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "CR-123", res.ContractReference)
	assert.Equal(t, "ACTIVE", res.MandateStatus)
	assert.True(t, res.StudentVerified)
	assert.Equal(t, "9001", res.PropertyExternalID)
	assert.False(t, res.TestMode)

	require.NotNil(t, api.lastMandate)
	assert.Equal(t, "M", api.lastMandate.FrequencyCode)
	assert.Equal(t, 12, api.lastMandate.NoOfInstallments)
	assert.Equal(t, 3, api.lastMandate.TrackingDays)
	assert.Equal(t, "MAG-77", api.lastMandate.MagID)
	assert.Equal(t, "20260901", api.lastMandate.StartDate)
	assert.True(t, api.lastMandate.MonthlyRent.Equal(decimal.RequireFromString("8500.00")))

	assert.Equal(t, 1, rec.records)
	assert.Equal(t, "app-1", rec.applicationID)
	assert.True(t, rec.result.Success)
}

func TestRun_MissingBankAccountAbortsBeforeRemoteCalls(t *testing.T) {
	api := newFakeAPI()
	o, rec := newTestOrchestrator(t, api, &stubSettings{status: "1"})

	input := testInput()
	input.Student.AccountNumber = "   "

	res, err := o.Run(context.Background(), input)

	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeMissingBankAccount, stdErr.Code)
	assert.False(t, res.Success)
	assert.Empty(t, api.calls, "no remote call may be issued")
	assert.Equal(t, 1, rec.records, "outcome must still be recorded")
}

func TestRun_BankingDefaultsSubstituted(t *testing.T) {
	api := newFakeAPI()
	o, _ := newTestOrchestrator(t, api, &stubSettings{status: "1"})

	_, err := o.Run(context.Background(), testInput())

	require.NoError(t, err)
	require.NotNil(t, api.lastStudent)
	assert.Equal(t, "632005", api.lastStudent.BankID)
	assert.Equal(t, "1", api.lastStudent.AccountType)
	assert.Equal(t, "0000000000000", api.lastStudent.IDNumber)
	assert.Equal(t, "1", api.lastStudent.IDType)
	assert.Equal(t, "1122334455", api.lastStudent.AccountNumber)
}

func TestRun_DuplicateStudentTreatedAsSuccess(t *testing.T) {
	api := newFakeAPI()
	api.registerStudent = func(*paycollect.StudentRegistration) *paycollect.Outcome {
		return &paycollect.Outcome{Success: false, Message: "Student already exists"}
	}
	o, _ := newTestOrchestrator(t, api, &stubSettings{status: "1"})

	res, err := o.Run(context.Background(), testInput())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Student.Success)
}

func TestRun_FatalStudentFailureStopsSaga(t *testing.T) {
	api := newFakeAPI()
	api.registerStudent = func(*paycollect.StudentRegistration) *paycollect.Outcome {
		return &paycollect.Outcome{Success: false, Message: "rejected", Errors: "bank account invalid"}
	}
	o, rec := newTestOrchestrator(t, api, &stubSettings{status: "1"})

	res, err := o.Run(context.Background(), testInput())

	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeStudentRegistrationFailed, stdErr.Code)
	assert.Contains(t, stdErr.Details, "bank account invalid")
	assert.False(t, res.Success)
	assert.Zero(t, api.calls["RegisterProperty"])
	assert.Zero(t, api.calls["RegisterMandate"])
	assert.Equal(t, 1, rec.records)
}

func TestRun_VerificationNeverSucceeds(t *testing.T) {
	api := newFakeAPI()
	api.getStudent = func(string) *paycollect.Outcome {
		return &paycollect.Outcome{Success: false, Message: "not found"}
	}
	o, _ := newTestOrchestrator(t, api, &stubSettings{status: "1"})

	res, err := o.Run(context.Background(), testInput())

	require.NoError(t, err)
	assert.True(t, res.Success, "saga proceeds despite failed verification")
	assert.False(t, res.StudentVerified)
	assert.Equal(t, 3, api.calls["GetStudentByID"], "bounded lookups")
	assert.Equal(t, 3, api.calls["RegisterStudent"], "initial call plus two interleaved re-registrations")
}

func TestRun_VerificationSucceedsOnSecondAttempt(t *testing.T) {
	api := newFakeAPI()
	lookups := 0
	api.getStudent = func(string) *paycollect.Outcome {
		lookups++
		if lookups == 1 {
			return &paycollect.Outcome{Success: false, Message: "not found"}
		}
		return okOutcome()
	}
	o, _ := newTestOrchestrator(t, api, &stubSettings{status: "1"})

	res, err := o.Run(context.Background(), testInput())

	require.NoError(t, err)
	assert.True(t, res.StudentVerified)
	assert.Equal(t, 2, api.calls["GetStudentByID"])
	assert.Equal(t, 2, api.calls["RegisterStudent"])
}

func TestRun_TestModeCapsMandateAmount(t *testing.T) {
	api := newFakeAPI()
	o, _ := newTestOrchestrator(t, api, &stubSettings{status: "0"})

	res, err := o.Run(context.Background(), testInput())

	require.NoError(t, err)
	assert.True(t, res.TestMode)
	assert.True(t, res.AmountApplied.Equal(TestModeCap))
	require.NotNil(t, api.lastMandate)
	assert.True(t, api.lastMandate.MonthlyRent.Equal(TestModeCap))
}

func TestRun_MandateRejectionIsNotFatal(t *testing.T) {
	api := newFakeAPI()
	api.registerMandate = func(*paycollect.MandateRegistration) *paycollect.Outcome {
		return &paycollect.Outcome{
			Success: false,
			Message: "mandate rejected",
			Errors: map[string]interface{}{
				"errors": []interface{}{
					map[string]interface{}{"code": "10569", "message": "amount limit for test profile exceeded"},
				},
			},
		}
	}
	o, rec := newTestOrchestrator(t, api, &stubSettings{status: "0"})

	res, err := o.Run(context.Background(), testInput())

	require.NoError(t, err, "mandate failure must not raise")
	assert.False(t, res.Success)
	assert.Contains(t, res.Mandate.Error, "amount limit")
	assert.Contains(t, res.Mandate.Error, "100.00")
	assert.NotNil(t, res.Mandate.Errors, "raw rejection payload kept for the audit snapshot")
	assert.Equal(t, 1, rec.records)
	assert.False(t, rec.result.Success)
	assert.Zero(t, api.calls["CheckMandateStatus"])
}

func TestRun_PropertyIDResolutionOrder(t *testing.T) {
	t.Run("registration echo when lookup is empty", func(t *testing.T) {
		api := newFakeAPI()
		api.getProperty = func(string) *paycollect.Outcome {
			return &paycollect.Outcome{Success: false, Message: "not found"}
		}
		api.registerProperty = func(*paycollect.PropertyRegistration) *paycollect.Outcome {
			return &paycollect.Outcome{Success: true, Data: map[string]interface{}{"property_id": float64(88102)}}
		}
		o, _ := newTestOrchestrator(t, api, &stubSettings{status: "1"})

		res, err := o.Run(context.Background(), testInput())

		require.NoError(t, err)
		assert.Equal(t, "88102", res.PropertyExternalID)
	})

	t.Run("falls back to property code", func(t *testing.T) {
		api := newFakeAPI()
		api.getProperty = func(string) *paycollect.Outcome {
			return &paycollect.Outcome{Success: false, Message: "not found"}
		}
		o, _ := newTestOrchestrator(t, api, &stubSettings{status: "1"})

		res, err := o.Run(context.Background(), testInput())

		require.NoError(t, err)
		assert.Equal(t, "PROP-prop-1", res.PropertyExternalID)
	})
}

func TestRun_DuplicatePropertyTreatedAsSuccess(t *testing.T) {
	api := newFakeAPI()
	api.registerProperty = func(*paycollect.PropertyRegistration) *paycollect.Outcome {
		return &paycollect.Outcome{Success: false, Message: "duplicate property code"}
	}
	o, _ := newTestOrchestrator(t, api, &stubSettings{status: "1"})

	res, err := o.Run(context.Background(), testInput())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Property.Success)
}
