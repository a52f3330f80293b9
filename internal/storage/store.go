package storage

import (
	"context"
	"errors"

	"contractgateway/internal/models"
)

// ErrNotFound is returned for unknown operation ids
var ErrNotFound = errors.New("operation not found")

// OperationStore persists the status of submitted write operations
type OperationStore interface {
	// Create stores a new record, replacing any existing one with the same id
	Create(ctx context.Context, record *models.OperationRecord) error
	// Update applies a status change; unknown ids return ErrNotFound
	Update(ctx context.Context, id string, update models.OperationUpdate) error
	Get(ctx context.Context, id string) (*models.OperationRecord, error)

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}
