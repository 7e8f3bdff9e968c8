package paycollect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentpay-workers/internal/common/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, logger.NewTestLogger(t)), server
}

func TestRegisterStudent_Success(t *testing.T) {
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/students", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "student registered",
			"data":    map[string]interface{}{"student_id": "STU-0a1b2c3d4e5"},
		})
	}))

	out := client.RegisterStudent(context.Background(), &StudentRegistration{
		StudentID:     "STU-0a1b2c3d4e5",
		FullName:      "Thandi Nkosi",
		Email:         "thandi@example.com",
		AccountNumber: "62201449911",
		AccountType:   "1",
		BankID:        "632005",
	})

	require.True(t, out.Success)
	assert.Equal(t, "student registered", out.Message)
	assert.Equal(t, "STU-0a1b2c3d4e5", out.DataString("student_id"))
	assert.Equal(t, "STU-0a1b2c3d4e5", gotBody["student_id"])
	assert.Equal(t, "632005", gotBody["bank_id"])
}

func TestRegisterMandate_StructuredFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/mandates/register", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "mandate rejected",
			"errors": map[string]interface{}{
				"errors": []interface{}{
					map[string]interface{}{"code": "10569", "message": "amount limit exceeded for test environment"},
				},
			},
		})
	}))

	out := client.RegisterMandate(context.Background(), &MandateRegistration{
		StudentID:        "STU-0a1b2c3d4e5",
		PropertyID:       "88102",
		MonthlyRent:      decimal.RequireFromString("100.00"),
		StartDate:        "20261001",
		FrequencyCode:    "M",
		NoOfInstallments: 12,
		TrackingDays:     3,
		MagID:            "MAG001",
	})

	require.False(t, out.Success)
	assert.Equal(t, "mandate rejected", out.Message)
	require.NotNil(t, out.Errors)

	msg, found := FindAmountLimitError(out.Errors)
	assert.True(t, found)
	assert.Contains(t, msg, "amount limit")
}

func TestGetPropertyByCode_PathEscaping(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/properties/PROP-42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "ok",
			"data":    map[string]interface{}{"property_id": float64(88102)},
		})
	}))

	out := client.GetPropertyByCode(context.Background(), "PROP-42")
	require.True(t, out.Success)
	assert.Equal(t, "88102", out.DataString("property_id", "id"))
}

func TestDo_UnparseableErrorBodyIsTruncated(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>" + strings.Repeat("x", 2000) + "</html>"))
	}))

	out := client.GetStudentByID(context.Background(), "STU-missing")
	require.False(t, out.Success)

	raw, ok := out.Errors.(string)
	require.True(t, ok)
	assert.LessOrEqual(t, len(raw), maxRawErrorBytes)
}

func TestDo_TimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, 20*time.Millisecond, logger.NewNoOpLogger())
	out := client.CheckMandateStatus(context.Background(), "CR-1")

	require.False(t, out.Success)
	assert.Contains(t, out.Message, "timed out")
	assert.Contains(t, out.Message, healthPath)
}

func TestDo_UnreachableClassified(t *testing.T) {
	// Port is immediately closed again, so the dial is refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client := NewClient(addr, time.Second, logger.NewNoOpLogger())
	out := client.GetStudentByID(context.Background(), "STU-x")

	require.False(t, out.Success)
	assert.Contains(t, out.Message, "unreachable")
	assert.Contains(t, out.Message, healthPath)
}

func TestOutcome_DataStringPreference(t *testing.T) {
	out := &Outcome{Data: map[string]interface{}{
		"id":          float64(7),
		"property_id": "",
	}}
	assert.Equal(t, "7", out.DataString("property_id", "id"))

	var nilOut *Outcome
	assert.Equal(t, "", nilOut.DataString("id"))
}
