package api

import (
	"fmt"

	"contractgateway/internal/stellar"
)

// GenerateXDRRequest is the body of POST /soroban/xdr
type GenerateXDRRequest struct {
	ContractID    string              `json:"contract_id"`
	SourceAccount string              `json:"source_account"`
	Function      string              `json:"function"`
	Params        []stellar.Parameter `json:"params"`
}

func (r *GenerateXDRRequest) validate() error {
	if r.ContractID == "" {
		return fmt.Errorf("contract_id is required")
	}
	if r.SourceAccount == "" {
		return fmt.Errorf("source_account is required")
	}
	if r.Function == "" {
		return fmt.Errorf("function is required")
	}
	return nil
}

// EventFilterRequest narrows an events query
type EventFilterRequest struct {
	Type        string     `json:"type"`
	ContractIDs []string   `json:"contract_ids"`
	Topics      [][]string `json:"topics"`
}

// Pagination selects events by ledger range or by cursor
type Pagination struct {
	StartLedger uint32 `json:"start_ledger"`
	EndLedger   uint32 `json:"end_ledger"`
	Cursor      string `json:"cursor"`
}

// QueryEventsRequest is the body of POST /soroban/events
type QueryEventsRequest struct {
	ContractID string               `json:"contract_id"`
	Pagination Pagination           `json:"pagination"`
	Filters    []EventFilterRequest `json:"filters"`
	Limit      uint                 `json:"limit"`
}

func (r *QueryEventsRequest) validate() error {
	if r.ContractID == "" {
		return fmt.Errorf("contract_id is required")
	}
	if r.Pagination.StartLedger == 0 && r.Pagination.Cursor == "" {
		return fmt.Errorf("pagination needs start_ledger or cursor")
	}
	if r.Pagination.EndLedger != 0 && r.Pagination.EndLedger < r.Pagination.StartLedger {
		return fmt.Errorf("end_ledger %d is before start_ledger %d", r.Pagination.EndLedger, r.Pagination.StartLedger)
	}
	return nil
}

func (r QueryEventsRequest) query() stellar.EventsQuery {
	q := stellar.EventsQuery{
		StartLedger: r.Pagination.StartLedger,
		EndLedger:   r.Pagination.EndLedger,
		Cursor:      r.Pagination.Cursor,
		Limit:       r.Limit,
	}
	for _, f := range r.Filters {
		q.Filters = append(q.Filters, stellar.EventFilter{
			Type:        f.Type,
			ContractIDs: f.ContractIDs,
			Topics:      f.Topics,
		})
	}
	return q
}

// SimulateRequest is the body of POST /soroban/simulate
type SimulateRequest struct {
	ContractID     string                    `json:"contract_id"`
	TransactionXDR string                    `json:"transaction_xdr"`
	Options        stellar.SimulationOptions `json:"options"`
}

func (r *SimulateRequest) validate() error {
	if r.ContractID == "" {
		return fmt.Errorf("contract_id is required")
	}
	if r.TransactionXDR == "" {
		return fmt.Errorf("transaction_xdr is required")
	}
	return nil
}

// ContractDataRequest is the body of POST /soroban/data
type ContractDataRequest struct {
	ContractID string `json:"contract_id"`
	KeyXDR     string `json:"key_xdr"`
	Durability string `json:"durability"`
}

func (r *ContractDataRequest) validate() error {
	if r.ContractID == "" {
		return fmt.Errorf("contract_id is required")
	}
	if r.KeyXDR == "" {
		return fmt.Errorf("key_xdr is required")
	}
	return nil
}

// CallFunctionRequest is the body of POST /soroban/call
type CallFunctionRequest struct {
	ContractID    string              `json:"contract_id"`
	Function      string              `json:"function"`
	Params        []stellar.Parameter `json:"params"`
	SourceAccount string              `json:"source_account"`
}

func (r *CallFunctionRequest) validate() error {
	if r.ContractID == "" {
		return fmt.Errorf("contract_id is required")
	}
	if r.Function == "" {
		return fmt.Errorf("function is required")
	}
	return nil
}

// SubmitTransactionRequest is the body of POST /soroban/transactions
type SubmitTransactionRequest struct {
	ContractID    string `json:"contract_id"`
	SourceAccount string `json:"source_account"`
	Function      string `json:"function"`
	SignedXDR     string `json:"signed_xdr"`
	Priority      string `json:"priority"`
}

func (r *SubmitTransactionRequest) validate() error {
	if r.ContractID == "" {
		return fmt.Errorf("contract_id is required")
	}
	if r.SignedXDR == "" {
		return fmt.Errorf("signed_xdr is required")
	}
	return nil
}
