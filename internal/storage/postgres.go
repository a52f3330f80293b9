package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"contractgateway/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const operationsSchema = `
	CREATE TABLE IF NOT EXISTS contract_operations (
		id             TEXT PRIMARY KEY,
		contract_id    TEXT NOT NULL,
		function_name  TEXT NOT NULL,
		source_account TEXT NOT NULL,
		priority       TEXT NOT NULL,
		status         TEXT NOT NULL,
		attempt        INTEGER NOT NULL DEFAULT 0,
		max_retries    INTEGER NOT NULL DEFAULT 0,
		result         TEXT NOT NULL DEFAULT '',
		error          TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_contract_operations_contract ON contract_operations (contract_id);
`

// PostgresStore implements OperationStore using PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and verifies the connection
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

// EnsureSchema creates the operations table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, operationsSchema); err != nil {
		return fmt.Errorf("failed to create contract_operations table: %w", err)
	}
	slog.Info("✅ Operation journal schema ready", "table", "contract_operations")
	return nil
}

// Create inserts a record, overwriting any previous record with the same id
func (s *PostgresStore) Create(ctx context.Context, record *models.OperationRecord) error {
	query := `
		INSERT INTO contract_operations (
			id, contract_id, function_name, source_account, priority,
			status, attempt, max_retries, result, error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			attempt = EXCLUDED.attempt,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		record.ID,
		record.ContractID,
		record.FunctionName,
		record.SourceAccount,
		record.Priority,
		string(record.Status),
		record.Attempt,
		record.MaxRetries,
		record.Result,
		record.Error,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save operation: %w", err)
	}
	return nil
}

// Update applies a status change to an existing record
func (s *PostgresStore) Update(ctx context.Context, id string, update models.OperationUpdate) error {
	query := `
		UPDATE contract_operations SET
			status = $2,
			attempt = $3,
			result = CASE WHEN $4 = '' THEN result ELSE $4 END,
			error = CASE WHEN $5 = '' THEN error ELSE $5 END,
			updated_at = $6
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, string(update.Status), update.Attempt, update.Result, update.Error, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get retrieves an operation by id
func (s *PostgresStore) Get(ctx context.Context, id string) (*models.OperationRecord, error) {
	query := `
		SELECT
			id, contract_id, function_name, source_account, priority,
			status, attempt, max_retries, result, error, created_at, updated_at
		FROM contract_operations
		WHERE id = $1
	`

	var record models.OperationRecord
	var status string

	err := s.pool.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.ContractID,
		&record.FunctionName,
		&record.SourceAccount,
		&record.Priority,
		&status,
		&record.Attempt,
		&record.MaxRetries,
		&record.Result,
		&record.Error,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	record.Status = models.OperationStatus(status)
	return &record, nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
