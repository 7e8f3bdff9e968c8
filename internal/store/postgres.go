package store

import (
	"context"
	"database/sql"
	"fmt"

	"rentpay-workers/internal/common/database"
	"rentpay-workers/internal/common/errors"
	"rentpay-workers/internal/common/logger"
	"rentpay-workers/internal/models"
)

// ApplicationStore reads the records the saga needs and writes back the
// integration outcome.
type ApplicationStore struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewApplicationStore(db *database.PostgresClient, log logger.Logger) *ApplicationStore {
	return &ApplicationStore{db: db, logger: log}
}

const getApplicationQuery = `
	SELECT id, student_id, property_id, status, integration_status,
	       contract_reference, student_registered, property_registered,
	       mandate_registered, error_message, integration_date,
	       created_at, updated_at
	FROM applications
	WHERE id = $1`

func (s *ApplicationStore) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var (
		app         models.Application
		contractRef sql.NullString
		errMsg      sql.NullString
		intDate     sql.NullTime
	)

	err := s.db.QueryRow(ctx, getApplicationQuery, id).Scan(
		&app.ID, &app.StudentID, &app.PropertyID, &app.Status, &app.IntegrationStatus,
		&contractRef, &app.StudentRegistered, &app.PropertyRegistered,
		&app.MandateRegistered, &errMsg, &intDate,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewRecordLoadError("application", fmt.Errorf("application %s not found", id))
	}
	if err != nil {
		return nil, errors.NewRecordLoadError("application", err)
	}

	app.ContractReference = contractRef.String
	app.ErrorMessage = errMsg.String
	if intDate.Valid {
		app.IntegrationDate = &intDate.Time
	}
	return &app, nil
}

const getStudentQuery = `
	SELECT id, full_name, email, phone,
	       COALESCE(id_number, ''), COALESCE(id_type, ''),
	       COALESCE(account_number, ''), COALESCE(account_type, ''),
	       COALESCE(bank_id, '')
	FROM students
	WHERE id = $1`

func (s *ApplicationStore) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	var st models.Student
	err := s.db.QueryRow(ctx, getStudentQuery, id).Scan(
		&st.ID, &st.FullName, &st.Email, &st.Phone,
		&st.IDNumber, &st.IDType,
		&st.AccountNumber, &st.AccountType, &st.BankID,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewRecordLoadError("student", fmt.Errorf("student %s not found", id))
	}
	if err != nil {
		return nil, errors.NewRecordLoadError("student", err)
	}
	return &st, nil
}

const getPropertyQuery = `
	SELECT id, name, address, monthly_rent
	FROM properties
	WHERE id = $1`

func (s *ApplicationStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	err := s.db.QueryRow(ctx, getPropertyQuery, id).Scan(&p.ID, &p.Name, &p.Address, &p.MonthlyRent)
	if err == sql.ErrNoRows {
		return nil, errors.NewRecordLoadError("property", fmt.Errorf("property %s not found", id))
	}
	if err != nil {
		return nil, errors.NewRecordLoadError("property", err)
	}
	return &p, nil
}

const updateIntegrationQuery = `
	UPDATE applications
	SET integration_status = $1,
	    contract_reference = $2,
	    student_external_id = $3,
	    property_external_id = $4,
	    student_registered = $5,
	    property_registered = $6,
	    mandate_registered = $7,
	    error_message = $8,
	    integration_date = $9,
	    step_snapshots = $10,
	    updated_at = NOW()
	WHERE id = $11`

// UpdateIntegration applies the saga outcome. Nil ContractReference and
// ErrorMessage write NULL, which is how a successful run clears a stale
// error from a previous attempt.
func (s *ApplicationStore) UpdateIntegration(ctx context.Context, applicationID string, update models.IntegrationUpdate) error {
	res, err := s.db.Exec(ctx, updateIntegrationQuery,
		string(update.Status),
		update.ContractReference,
		update.StudentExternalID,
		update.PropertyExternalID,
		update.StudentRegistered,
		update.PropertyRegistered,
		update.MandateRegistered,
		update.ErrorMessage,
		update.IntegrationDate,
		[]byte(update.StepSnapshots),
		applicationID,
	)
	if err != nil {
		return errors.NewRecordWriteError("application", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.NewRecordWriteError("application", err)
	}
	if rows == 0 {
		return errors.NewRecordWriteError("application", fmt.Errorf("application %s not found", applicationID))
	}

	s.logger.Debug("integration outcome written", map[string]interface{}{
		"applicationId": applicationID,
		"status":        string(update.Status),
	})
	return nil
}

// SettingsStore reads the single-row global settings record.
type SettingsStore struct {
	db *database.PostgresClient
}

func NewSettingsStore(db *database.PostgresClient) *SettingsStore {
	return &SettingsStore{db: db}
}

const systemStatusQuery = `SELECT system_status FROM settings LIMIT 1`

func (s *SettingsStore) Get(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	if err := s.db.QueryRow(ctx, systemStatusQuery).Scan(&settings.SystemStatus); err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return &settings, nil
}

func (s *SettingsStore) SystemStatus(ctx context.Context) (string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	return settings.SystemStatus, nil
}
