package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	qrmodels "io.winapps.qrbackend/internal/models/qrcode"
)

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Ledger records every successful generation in the qr_codes table
type Ledger struct {
	db execer
}

// NewLedger creates a ledger backed by db, usually a *pgxpool.Pool
func NewLedger(db execer) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Name() string { return "postgres" }

const upsertGenerationQuery = `
	INSERT INTO qr_codes (entry_id, file_path, file_size, last_request_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (entry_id)
	DO UPDATE SET
		file_path = EXCLUDED.file_path,
		file_size = EXCLUDED.file_size,
		last_request_id = EXCLUDED.last_request_id,
		generation_count = qr_codes.generation_count + 1,
		updated_at = EXCLUDED.updated_at`

// RecordGeneration upserts gen, bumping generation_count for repeated entry ids
func (l *Ledger) RecordGeneration(ctx context.Context, gen qrmodels.Generation) error {
	_, err := l.db.Exec(ctx, upsertGenerationQuery,
		gen.EntryID,
		gen.Path,
		gen.SizeBytes,
		gen.RequestID,
		gen.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}
	return nil
}
