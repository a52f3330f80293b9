package stellar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stellar/go/xdr"
)

var (
	// ErrEntryNotFound is returned when a ledger entry does not exist
	ErrEntryNotFound = errors.New("ledger entry not found")
	// ErrAccountNotFound is returned when the source account does not exist
	ErrAccountNotFound = errors.New("account not found")
	// ErrSimulationFailed is returned when the RPC simulation reports an error
	ErrSimulationFailed = errors.New("transaction simulation failed")
	// ErrInvalidParameter is returned for parameters that cannot be encoded
	ErrInvalidParameter = errors.New("invalid parameter")
)

// DefaultSourceAccount is used for read-only calls when no source is given
const DefaultSourceAccount = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF"

// InvokeRequest describes a contract function invocation
type InvokeRequest struct {
	ContractID    string      `json:"contract_id"`
	SourceAccount string      `json:"source_account"`
	Function      string      `json:"function"`
	Params        []Parameter `json:"params,omitempty"`
}

// EventFilter narrows an events query. Topics are base64 ScVal segments or "*".
type EventFilter struct {
	Type        string     `json:"type,omitempty"`
	ContractIDs []string   `json:"contractIds,omitempty"`
	Topics      [][]string `json:"topics,omitempty"`
}

// EventsQuery selects events either by ledger range or by cursor
type EventsQuery struct {
	StartLedger uint32        `json:"start_ledger,omitempty"`
	EndLedger   uint32        `json:"end_ledger,omitempty"`
	Cursor      string        `json:"cursor,omitempty"`
	Filters     []EventFilter `json:"filters,omitempty"`
	Limit       uint          `json:"limit,omitempty"`
}

// Event is a contract event as returned by getEvents
type Event struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Ledger         uint32   `json:"ledger"`
	LedgerClosedAt string   `json:"ledgerClosedAt"`
	ContractID     string   `json:"contractId"`
	TxHash         string   `json:"txHash"`
	Topics         []string `json:"topic"`
	Value          string   `json:"value"`
}

// EventsPage is one page of getEvents results
type EventsPage struct {
	Events       []Event `json:"events"`
	LatestLedger uint32  `json:"latestLedger"`
	Cursor       string  `json:"cursor,omitempty"`
}

// SimulationOptions tunes simulateTransaction
type SimulationOptions struct {
	CPUInstructions uint64 `json:"cpu_instructions,omitempty"`
	AuthMode        string `json:"auth_mode,omitempty"`
}

// HostFunctionResult is the return value and auth of a simulated invocation
type HostFunctionResult struct {
	Auth []string `json:"auth,omitempty"`
	XDR  string   `json:"xdr,omitempty"`
}

// SimulationResult mirrors the simulateTransaction response
type SimulationResult struct {
	Error           string               `json:"error,omitempty"`
	TransactionData string               `json:"transactionData,omitempty"`
	MinResourceFee  int64                `json:"minResourceFee,string,omitempty"`
	Events          []string             `json:"events,omitempty"`
	Results         []HostFunctionResult `json:"results,omitempty"`
	LatestLedger    uint32               `json:"latestLedger"`
}

// Success reports whether the simulation succeeded
func (s SimulationResult) Success() bool {
	return s.Error == ""
}

// Durability selects persistent or temporary contract storage
type Durability string

const (
	DurabilityPersistent Durability = "persistent"
	DurabilityTemporary  Durability = "temporary"
)

// ParseDurability accepts persistent or temporary; empty means persistent
func ParseDurability(s string) (Durability, error) {
	switch Durability(strings.ToLower(strings.TrimSpace(s))) {
	case "", DurabilityPersistent:
		return DurabilityPersistent, nil
	case DurabilityTemporary:
		return DurabilityTemporary, nil
	default:
		return "", fmt.Errorf("unknown durability %q", s)
	}
}

func (d Durability) toXDR() xdr.ContractDataDurability {
	if d == DurabilityTemporary {
		return xdr.ContractDataDurabilityTemporary
	}
	return xdr.ContractDataDurabilityPersistent
}

// LedgerEntry mirrors one entry of the getLedgerEntries response
type LedgerEntry struct {
	Key                string  `json:"key"`
	XDR                string  `json:"xdr"`
	LastModifiedLedger uint32  `json:"lastModifiedLedgerSeq"`
	LiveUntilLedgerSeq *uint32 `json:"liveUntilLedgerSeq,omitempty"`
}

type ledgerEntriesPage struct {
	Entries      []LedgerEntry `json:"entries"`
	LatestLedger uint32        `json:"latestLedger"`
}

// SimulationDetails summarises the simulation behind a CallResult
type SimulationDetails struct {
	LatestLedger   uint32   `json:"latest_ledger"`
	MinResourceFee int64    `json:"min_resource_fee"`
	Events         []string `json:"events,omitempty"`
}

// CallResult is the outcome of a read-only contract call
type CallResult struct {
	Success    bool               `json:"success"`
	Result     any                `json:"result,omitempty"`
	ResultXDR  string             `json:"result_xdr,omitempty"`
	Simulation *SimulationDetails `json:"simulation,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// SendResult mirrors the sendTransaction response
type SendResult struct {
	Hash           string `json:"hash"`
	Status         string `json:"status"`
	ErrorResultXDR string `json:"errorResultXdr,omitempty"`
	LatestLedger   uint32 `json:"latestLedger"`
}

// Accepted reports whether the network took the transaction
func (r SendResult) Accepted() bool {
	switch r.Status {
	case "PENDING", "DUPLICATE":
		return true
	default:
		return false
	}
}

// Health is the getHealth response
type Health struct {
	Status       string `json:"status"`
	LatestLedger uint32 `json:"latest_ledger"`
}
