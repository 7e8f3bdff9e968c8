package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"rentpay-workers/internal/common/database"
	"rentpay-workers/internal/common/logger"
)

const auditIndex = "saga-audit"

// AuditStore archives saga run documents in Elasticsearch. All writes are
// best effort from the caller's perspective.
type AuditStore struct {
	es     *database.ElasticsearchClient
	logger logger.Logger
}

func NewAuditStore(es *database.ElasticsearchClient, log logger.Logger) *AuditStore {
	return &AuditStore{es: es, logger: log}
}

func (s *AuditStore) IndexSagaAudit(ctx context.Context, applicationID string, doc map[string]interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal audit document: %w", err)
	}

	client := s.es.Client
	res, err := client.Index(
		auditIndex,
		bytes.NewReader(body),
		client.Index.WithContext(ctx),
		client.Index.WithDocumentID(applicationID+"-"+uuid.NewString()),
	)
	if err != nil {
		return fmt.Errorf("index audit document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit document: %s", res.Status())
	}

	s.logger.Debug("saga audit archived", map[string]interface{}{
		"applicationId": applicationID,
		"index":         auditIndex,
	})
	return nil
}
