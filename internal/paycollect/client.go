// Package paycollect talks to the external payment-collection service.
package paycollect

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rentpay-workers/internal/common/httpclient"
	"rentpay-workers/internal/common/logger"
	"rentpay-workers/internal/common/metrics"
)

const (
	healthPath = "/api/v1/health"

	// Unstructured error bodies are truncated before they reach the record
	// audit trail.
	maxRawErrorBytes = 512
)

// Client issues JSON calls against the payment-collection API. The base URL
// is injected once at construction; each call is bounded by the configured
// wall-clock timeout.
type Client struct {
	baseURL    string
	httpClient *httpclient.Client
	logger     logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpclient.NewClient(timeout),
		logger:     log,
	}
}

// RegisterStudent registers a tenant with the payment-collection service.
func (c *Client) RegisterStudent(ctx context.Context, reg *StudentRegistration) *Outcome {
	return c.do(ctx, "register_student", http.MethodPost, "/api/v1/students", reg)
}

// RegisterProperty registers a rental unit keyed by its property code.
func (c *Client) RegisterProperty(ctx context.Context, reg *PropertyRegistration) *Outcome {
	return c.do(ctx, "register_property", http.MethodPost, "/api/v1/properties", reg)
}

// GetStudentByID looks a tenant up by external identifier. The lookup path is
// eventually consistent with the registration path.
func (c *Client) GetStudentByID(ctx context.Context, id string) *Outcome {
	return c.do(ctx, "get_student", http.MethodGet, "/api/v1/students/"+url.PathEscape(id), nil)
}

// GetPropertyByCode resolves a property code to the service's numeric id.
func (c *Client) GetPropertyByCode(ctx context.Context, code string) *Outcome {
	return c.do(ctx, "get_property", http.MethodGet, "/api/v1/properties/"+url.PathEscape(code), nil)
}

// RegisterMandate registers the recurring debit-order instruction.
func (c *Client) RegisterMandate(ctx context.Context, reg *MandateRegistration) *Outcome {
	return c.do(ctx, "register_mandate", http.MethodPost, "/api/v1/mandates/register", reg)
}

// CheckMandateStatus fetches the current state of a registered mandate.
func (c *Client) CheckMandateStatus(ctx context.Context, contractRef string) *Outcome {
	body := map[string]string{"contract_reference": contractRef}
	return c.do(ctx, "mandate_status", http.MethodPost, "/api/v1/mandates/status", body)
}

// envelope is the service's response shape on both success and failure.
type envelope struct {
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Errors  interface{}            `json:"errors"`
}

func (c *Client) do(ctx context.Context, operation, method, path string, body interface{}) *Outcome {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return &Outcome{Success: false, Message: fmt.Sprintf("failed to marshal %s request: %v", operation, err)}
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return &Outcome{Success: false, Message: fmt.Sprintf("failed to create %s request: %v", operation, err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		cause, message := c.classifyTransportError(method, path, err)
		metrics.RemoteCallErrors.WithLabelValues(operation, cause).Inc()
		c.logger.Warn("payment-collection call failed before a response", map[string]interface{}{
			"operation": operation,
			"cause":     cause,
			"error":     err.Error(),
		})
		return &Outcome{Success: false, Message: message}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RemoteCallErrors.WithLabelValues(operation, "body_read").Inc()
		return &Outcome{Success: false, Message: fmt.Sprintf("failed to read %s response: %v", operation, err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return &Outcome{Success: true, Message: strings.TrimSpace(string(raw))}
		}
		return &Outcome{Success: true, Message: env.Message, Data: env.Data}
	}

	metrics.RemoteCallErrors.WithLabelValues(operation, fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
	return c.failureOutcome(operation, resp.StatusCode, raw)
}

// failureOutcome carries the parsed error body when possible, the truncated
// raw text otherwise.
func (c *Client) failureOutcome(operation string, status int, raw []byte) *Outcome {
	out := &Outcome{
		Success: false,
		Message: fmt.Sprintf("%s rejected with status %d", operation, status),
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && (env.Message != "" || env.Errors != nil) {
		if env.Message != "" {
			out.Message = env.Message
		}
		out.Data = env.Data
		if env.Errors != nil {
			out.Errors = env.Errors
		} else {
			out.Errors = env.Message
		}
		return out
	}

	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		out.Errors = parsed
		return out
	}

	text := strings.TrimSpace(string(raw))
	if len(text) > maxRawErrorBytes {
		text = text[:maxRawErrorBytes]
	}
	out.Errors = text
	return out
}

// classifyTransportError maps a transport-level failure to a cause label and
// an operator-facing message naming the probable problem and the health
// endpoint to check. A bare Go error string is useless to on-call staff.
func (c *Client) classifyTransportError(method, path string, err error) (string, string) {
	healthURL := c.baseURL + healthPath

	var urlErr *url.Error
	timedOut := stderrors.Is(err, context.DeadlineExceeded)
	if stderrors.As(err, &urlErr) && urlErr.Timeout() {
		timedOut = true
	}
	if timedOut {
		return "timeout", fmt.Sprintf(
			"Payment-collection request timed out after %s (%s %s). The service may be slow or overloaded; check %s",
			c.httpClient.Timeout(), method, path, healthURL)
	}

	var certErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	lowerMsg := strings.ToLower(err.Error())
	if stderrors.As(err, &certErr) || stderrors.As(err, &hostErr) ||
		strings.Contains(lowerMsg, "x509") || strings.Contains(lowerMsg, "certificate") ||
		strings.Contains(lowerMsg, "tls") {
		return "certificate", fmt.Sprintf(
			"Payment-collection TLS certificate problem on %s %s: %v. Verify the certificate chain for %s",
			method, path, err, c.baseURL)
	}

	return "unreachable", fmt.Sprintf(
		"Payment-collection service unreachable (%s %s): %v. Check network and DNS, then %s",
		method, path, err, healthURL)
}
