package models

import "time"

// OperationStatus is the lifecycle state of a queued write operation
type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationRetrying  OperationStatus = "retrying"
	OperationSucceeded OperationStatus = "succeeded"
	OperationFailed    OperationStatus = "failed"
)

// Terminal reports whether no further updates are expected
func (s OperationStatus) Terminal() bool {
	return s == OperationSucceeded || s == OperationFailed
}

// OperationRecord is the persisted status of a submitted transaction
type OperationRecord struct {
	// Identification
	ID            string `json:"id"`
	ContractID    string `json:"contract_id"`
	FunctionName  string `json:"function_name"`
	SourceAccount string `json:"source_account"`
	Priority      string `json:"priority"`

	// Progress
	Status     OperationStatus `json:"status"`
	Attempt    int             `json:"attempt"`
	MaxRetries int             `json:"max_retries"`
	Result     string          `json:"result,omitempty"` // transaction hash on success
	Error      string          `json:"error,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OperationUpdate moves a record to a new status
type OperationUpdate struct {
	Status  OperationStatus
	Attempt int
	Result  string
	Error   string
}

// Apply copies the update onto r
func (u OperationUpdate) Apply(r *OperationRecord, now time.Time) {
	r.Status = u.Status
	r.Attempt = u.Attempt
	if u.Result != "" {
		r.Result = u.Result
	}
	if u.Error != "" {
		r.Error = u.Error
	}
	r.UpdatedAt = now
}
