// internal/funnel/lead/audit.go
package lead

import (
	"context"
	"encoding/json"
	"time"

	"energylab-funnel/internal/common/database"
	"energylab-funnel/internal/common/logger"
)

// AuditSink records the true outcome of each submission. Because the
// user-visible result is always success, the audit trail is the only place
// the real delivery status lives.
type AuditSink interface {
	RecordSubmission(ctx context.Context, sessionID string, payload Payload, delivered bool, detail string) error
}

// PostgresAudit persists submission outcomes to the submission_audit table.
type PostgresAudit struct {
	db     *database.PostgresClient
	logger logger.Logger
}

// NewPostgresAudit creates a Postgres-backed audit sink.
func NewPostgresAudit(db *database.PostgresClient, log logger.Logger) *PostgresAudit {
	return &PostgresAudit{db: db, logger: log}
}

func (a *PostgresAudit) RecordSubmission(ctx context.Context, sessionID string, payload Payload, delivered bool, detail string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = a.db.Exec(ctx,
		`INSERT INTO submission_audit (session_id, payload, delivered, detail, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		sessionID, body, delivered, detail, time.Now().UTC(),
	)
	return err
}

// NoOpAudit discards outcomes. Used when no database is configured.
type NoOpAudit struct{}

func (NoOpAudit) RecordSubmission(context.Context, string, Payload, bool, string) error {
	return nil
}
