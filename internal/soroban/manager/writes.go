package manager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contractgateway/internal/models"
	"contractgateway/internal/soroban/queue"
	"contractgateway/internal/stellar"

	"github.com/google/uuid"
)

// storeTimeout bounds every operation journal write
const storeTimeout = 5 * time.Second

// SubmitRequest is a signed transaction to send through the queue
type SubmitRequest struct {
	ContractID    string
	SourceAccount string
	FunctionName  string
	SignedXDR     string
	Priority      queue.Priority
}

// SubmitTransaction queues a signed transaction and returns its operation id
// without waiting. The outcome is available through OperationStatus.
func (m *Manager) SubmitTransaction(ctx context.Context, req SubmitRequest) (string, error) {
	now := time.Now().UTC()
	op := queue.Operation{
		ID:            uuid.NewString(),
		ContractID:    req.ContractID,
		FunctionName:  req.FunctionName,
		SourceAccount: req.SourceAccount,
		Payload:       req.SignedXDR,
		Priority:      req.Priority,
		MaxRetries:    m.config.MaxRetries,
		CreatedAt:     now,
	}

	// journal first so the drain never sees a result for an unknown id
	record := &models.OperationRecord{
		ID:            op.ID,
		ContractID:    op.ContractID,
		FunctionName:  op.FunctionName,
		SourceAccount: op.SourceAccount,
		Priority:      op.Priority.String(),
		Status:        models.OperationPending,
		MaxRetries:    op.MaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := m.store.Create(storeCtx, record); err != nil {
		slog.Warn("Failed to journal operation", "operation_id", op.ID, "error", err)
	}

	id, err := m.queue.Submit(op)
	if err != nil {
		m.updateRecord(op.ID, models.OperationUpdate{Status: models.OperationFailed, Error: err.Error()})
		return "", fmt.Errorf("submitting operation: %w", err)
	}

	m.metrics.TransactionsSubmitted.Inc()
	m.metrics.OperationsTotal.Inc()
	m.metrics.QueueDepth.Set(float64(m.queue.Depth()))

	slog.Info("📥 Transaction queued",
		"operation_id", id,
		"contract_id", op.ContractID,
		"function", op.FunctionName,
		"priority", op.Priority.String(),
	)
	return id, nil
}

// OperationStatus returns the journaled state of a submitted transaction
func (m *Manager) OperationStatus(ctx context.Context, id string) (*models.OperationRecord, error) {
	return m.store.Get(ctx, id)
}

// NextResult waits for the next queue result. While the manager is started
// its own drain consumes results, so this is only useful before Start.
func (m *Manager) NextResult(ctx context.Context) (queue.Result, bool) {
	return m.queue.NextResult(ctx)
}

// executeOperation sends a queued transaction through the contract's pool and breaker
func (m *Manager) executeOperation(ctx context.Context, op *queue.Operation) (string, error) {
	contract, err := m.contract(op.ContractID)
	if err != nil {
		return "", err
	}
	defer contract.Release()

	result, err := protected(ctx, m, contract, "send_transaction", func(ctx context.Context, rpc stellar.RPC) (stellar.SendResult, error) {
		sent, err := rpc.SendTransaction(ctx, op.Payload)
		if err != nil {
			return sent, err
		}
		if !sent.Accepted() {
			return sent, fmt.Errorf("transaction %s not accepted: status %s", sent.Hash, sent.Status)
		}
		return sent, nil
	})
	if err != nil {
		return "", err
	}
	return result.Hash, nil
}

// drain folds queue results into metrics and the operation journal until the queue stops
func (m *Manager) drain(ctx context.Context) {
	defer close(m.drainDone)
	slog.Info("🔄 Starting queue result processor")

	for {
		result, ok := m.queue.NextResult(ctx)
		if !ok {
			slog.Info("Queue result processor stopped")
			return
		}
		m.recordResult(result)
	}
}

func (m *Manager) recordResult(r queue.Result) {
	m.metrics.QueueDepth.Set(float64(m.queue.Depth()))

	switch r.Kind {
	case queue.ResultSuccess:
		m.metrics.OperationsSuccessful.Inc()
		m.updateRecord(r.OperationID, models.OperationUpdate{
			Status:  models.OperationSucceeded,
			Attempt: r.Attempt,
			Result:  r.Result,
		})
	case queue.ResultRetry:
		m.metrics.OperationsRetried.Inc()
		update := models.OperationUpdate{Status: models.OperationRetrying, Attempt: r.Attempt}
		if r.Err != nil {
			update.Error = r.Err.Error()
		}
		m.updateRecord(r.OperationID, update)
	case queue.ResultFailed:
		m.metrics.OperationsFailed.Inc()
		m.metrics.ErrorsTotal.WithLabelValues(errorKind(r.Err)).Inc()
		update := models.OperationUpdate{Status: models.OperationFailed, Attempt: r.Attempt}
		if r.Err != nil {
			update.Error = r.Err.Error()
		}
		m.updateRecord(r.OperationID, update)
	}
}

func (m *Manager) updateRecord(id string, update models.OperationUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := m.store.Update(ctx, id, update); err != nil {
		slog.Warn("Failed to update operation journal",
			"operation_id", id,
			"status", update.Status,
			"error", err,
		)
	}
}
