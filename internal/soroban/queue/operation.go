package queue

import (
	"fmt"
	"strings"
	"time"
)

// Priority is carried with every operation and reported back to callers.
// The worker processes operations in submission order regardless of priority.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParsePriority accepts the lower-case names; an empty string is PriorityNormal
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority %q", s)
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Operation is a write submitted to the queue
type Operation struct {
	ID            string    `json:"id"`
	ContractID    string    `json:"contract_id"`
	FunctionName  string    `json:"function_name"`
	SourceAccount string    `json:"source_account"`
	Payload       string    `json:"payload"` // signed transaction envelope, base64 XDR
	Priority      Priority  `json:"priority"`
	MaxRetries    int       `json:"max_retries"`
	RetryCount    int       `json:"retry_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// ResultKind tags a Result
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultRetry
	ResultFailed
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultRetry:
		return "retry"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports progress of one operation.
// Result is set for ResultSuccess. Attempt is the operation's retry count
// when the result was produced. Err holds the failure behind a ResultRetry
// or ResultFailed.
type Result struct {
	Kind        ResultKind
	OperationID string
	ContractID  string
	Result      string
	Attempt     int
	Err         error
}
