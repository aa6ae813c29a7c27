package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresLog persists audit records to the processing_logs table via
// plain SQL through sqlx (no ORM).
type PostgresLog struct {
	db *sqlx.DB
}

// NewPostgresLog wraps an existing *sqlx.DB. The caller owns the
// connection's lifecycle.
func NewPostgresLog(db *sqlx.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

type processingLogRow struct {
	ID              string    `db:"id"`
	RoundID         uint32    `db:"round_id"`
	Operation       string    `db:"operation"`
	Status          string    `db:"status"`
	Message         string    `db:"message"`
	TransactionHash *string   `db:"transaction_hash"`
	CreatedAt       time.Time `db:"created_at"`
}

const createProcessingLogsTable = `
CREATE TABLE IF NOT EXISTS processing_logs (
	id               UUID PRIMARY KEY,
	round_id         INTEGER NOT NULL,
	operation        TEXT NOT NULL,
	status           TEXT NOT NULL,
	message          TEXT NOT NULL DEFAULT '',
	transaction_hash TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS processing_logs_round_id_idx ON processing_logs (round_id);
`

// EnsureSchema creates the processing_logs table if it does not exist.
func (p *PostgresLog) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, createProcessingLogsTable)
	return err
}

func (p *PostgresLog) Append(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	var txHash *string
	if rec.TransactionHash != "" {
		txHash = &rec.TransactionHash
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO processing_logs (id, round_id, operation, status, message, transaction_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.RoundID, string(rec.Operation), string(rec.Status), rec.Message, txHash, rec.Timestamp)
	return err
}

func (p *PostgresLog) ForRound(ctx context.Context, roundID uint32) ([]Record, error) {
	var rows []processingLogRow
	if err := p.db.SelectContext(ctx, &rows,
		`SELECT id, round_id, operation, status, message, transaction_hash, created_at
		 FROM processing_logs WHERE round_id = $1 ORDER BY created_at ASC`, roundID); err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func (p *PostgresLog) All(ctx context.Context) ([]Record, error) {
	var rows []processingLogRow
	if err := p.db.SelectContext(ctx, &rows,
		`SELECT id, round_id, operation, status, message, transaction_hash, created_at
		 FROM processing_logs ORDER BY created_at ASC`); err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func (p *PostgresLog) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM processing_logs WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func toRecords(rows []processingLogRow) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		txHash := ""
		if r.TransactionHash != nil {
			txHash = *r.TransactionHash
		}
		out[i] = Record{
			ID:              r.ID,
			RoundID:         r.RoundID,
			Operation:       Operation(r.Operation),
			Status:          Status(r.Status),
			Message:         r.Message,
			TransactionHash: txHash,
			Timestamp:       r.CreatedAt,
		}
	}
	return out
}
