package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"contractgateway/internal/models"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// testOperationStore runs the journal lifecycle every backend must support
func testOperationStore(t *testing.T, store OperationStore) {
	t.Helper()
	ctx := context.Background()
	id := "op-" + uuid.NewString()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	err := store.Create(ctx, &models.OperationRecord{
		ID:            id,
		ContractID:    "C1",
		FunctionName:  "set_score",
		SourceAccount: "G1",
		Priority:      "normal",
		Status:        models.OperationPending,
		MaxRetries:    3,
		CreatedAt:     created,
		UpdatedAt:     created,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	steps := []struct {
		update   models.OperationUpdate
		expected models.OperationStatus
	}{
		{models.OperationUpdate{Status: models.OperationRetrying, Attempt: 1, Error: "rpc timeout"}, models.OperationRetrying},
		{models.OperationUpdate{Status: models.OperationSucceeded, Attempt: 2, Result: "abc123"}, models.OperationSucceeded},
	}
	for _, step := range steps {
		if err := store.Update(ctx, id, step.update); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != step.expected {
			t.Errorf("Expected status %s, got: %s", step.expected, got.Status)
		}
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Result != "abc123" || got.Attempt != 2 {
		t.Errorf("Unexpected final record: %+v", got)
	}
	if got.Error != "rpc timeout" {
		t.Errorf("Expected last error to be kept, got: %q", got.Error)
	}
	if got.FunctionName != "set_score" || got.MaxRetries != 3 {
		t.Errorf("Expected identification fields to survive updates, got: %+v", got)
	}
	if !got.UpdatedAt.After(created) {
		t.Error("Expected UpdatedAt to move forward")
	}

	missing := "missing-" + uuid.NewString()
	if _, err := store.Get(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Get, got: %v", err)
	}
	if err := store.Update(ctx, missing, models.OperationUpdate{Status: models.OperationFailed}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Update, got: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testOperationStore(t, NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, databaseURL)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	testOperationStore(t, store)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	store, err := NewRedisStore(context.Background(), addr, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer store.Close()

	testOperationStore(t, store)
}

func TestApplyEncoded(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(&models.OperationRecord{
		ID:         "op-1",
		ContractID: "C1",
		Status:     models.OperationRetrying,
		Attempt:    1,
		Error:      "rpc timeout",
		CreatedAt:  created,
		UpdatedAt:  created,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	now := created.Add(time.Minute)
	updated, err := applyEncoded(raw, models.OperationUpdate{Status: models.OperationFailed, Attempt: 3}, now)
	if err != nil {
		t.Fatalf("applyEncoded() error = %v", err)
	}

	var got models.OperationRecord
	if err := json.Unmarshal(updated, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != models.OperationFailed || got.Attempt != 3 {
		t.Errorf("Expected failed at attempt 3, got: %+v", got)
	}
	if got.Error != "rpc timeout" || got.ContractID != "C1" {
		t.Errorf("Expected untouched fields to be kept, got: %+v", got)
	}
	if !got.UpdatedAt.Equal(now) || !got.CreatedAt.Equal(created) {
		t.Errorf("Expected updated_at %v and created_at %v, got: %v and %v", now, created, got.UpdatedAt, got.CreatedAt)
	}

	if _, err := applyEncoded([]byte("not json"), models.OperationUpdate{}, now); err == nil {
		t.Error("Expected error for undecodable record")
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Create(ctx, &models.OperationRecord{ID: "op-2", Status: models.OperationPending})

	got, _ := store.Get(ctx, "op-2")
	got.Status = models.OperationFailed

	again, _ := store.Get(ctx, "op-2")
	if again.Status != models.OperationPending {
		t.Errorf("Expected stored record to be unaffected, got: %s", again.Status)
	}
}
