package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentpay-workers/internal/common/database"
	stderrors "rentpay-workers/internal/common/errors"
	"rentpay-workers/internal/common/logger"
	"rentpay-workers/internal/models"
)

func newMockStore(t *testing.T) (*ApplicationStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewApplicationStore(&database.PostgresClient{DB: db}, logger.NewTestLogger(t)), mock
}

func TestGetApplication(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "student_id", "property_id", "status", "integration_status",
		"contract_reference", "student_registered", "property_registered",
		"mandate_registered", "error_message", "integration_date",
		"created_at", "updated_at",
	}).AddRow("app-1", "stu-1", "prop-1", "approved", "not_started",
		nil, false, false, false, nil, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(getApplicationQuery)).
		WithArgs("app-1").
		WillReturnRows(rows)

	app, err := store.GetApplication(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
	assert.Equal(t, models.IntegrationNotStarted, app.IntegrationStatus)
	assert.Empty(t, app.ContractReference)
	assert.Nil(t, app.IntegrationDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetApplication_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(getApplicationQuery)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetApplication(context.Background(), "missing")
	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeRecordLoadFailed, stdErr.Code)
	assert.Contains(t, stdErr.Details, "missing")
}

func TestGetStudent(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "full_name", "email", "phone",
		"id_number", "id_type", "account_number", "account_type", "bank_id",
	}).AddRow("stu-1", "Thandi Nkosi", "thandi@example.com", "+27820000001",
		"", "", "1122334455", "", "")

	mock.ExpectQuery(regexp.QuoteMeta(getStudentQuery)).
		WithArgs("stu-1").
		WillReturnRows(rows)

	st, err := store.GetStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "1122334455", st.AccountNumber)
	assert.Empty(t, st.BankID, "optional banking fields stay empty at the store level")
}

func TestGetProperty(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "address", "monthly_rent"}).
		AddRow("prop-1", "Unit 4, Oak Ridge", "12 Oak Ridge Rd", "8500.00")

	mock.ExpectQuery(regexp.QuoteMeta(getPropertyQuery)).
		WithArgs("prop-1").
		WillReturnRows(rows)

	p, err := store.GetProperty(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Equal(t, "8500.00", p.MonthlyRent.StringFixed(2))
	assert.Equal(t, "PROP-prop-1", p.Code())
}

func TestUpdateIntegration(t *testing.T) {
	store, mock := newMockStore(t)

	contractRef := "CR-900"
	snaps, _ := json.Marshal(map[string]bool{"mandate": true})
	update := models.IntegrationUpdate{
		Status:             models.IntegrationCompleted,
		ContractReference:  &contractRef,
		StudentExternalID:  "STU-abc12345678",
		PropertyExternalID: "9001",
		StudentRegistered:  true,
		PropertyRegistered: true,
		MandateRegistered:  true,
		IntegrationDate:    time.Now().UTC(),
		StepSnapshots:      snaps,
	}

	mock.ExpectExec(regexp.QuoteMeta(updateIntegrationQuery)).
		WithArgs("completed", &contractRef, "STU-abc12345678", "9001",
			true, true, true, nil, update.IntegrationDate, snaps, "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateIntegration(context.Background(), "app-1", update)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateIntegration_NoRowMatched(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(updateIntegrationQuery)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateIntegration(context.Background(), "gone", models.IntegrationUpdate{
		Status:          models.IntegrationFailed,
		IntegrationDate: time.Now(),
	})
	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeRecordWriteFailed, stdErr.Code)
}

func TestSettingsStore_SystemStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	settings := NewSettingsStore(&database.PostgresClient{DB: db})

	mock.ExpectQuery(regexp.QuoteMeta(systemStatusQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"system_status"}).AddRow("0"))

	status, err := settings.SystemStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0", status)
}
