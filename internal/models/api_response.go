package models

import "time"

// ServiceInfo is returned by the root endpoint
type ServiceInfo struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Status    string   `json:"status"`
	Endpoints []string `json:"endpoints"`
}

// OperationAcceptedResponse is returned when a transaction is queued
type OperationAcceptedResponse struct {
	OperationID string    `json:"operation_id"`
	Status      string    `json:"status"`
	AcceptedAt  time.Time `json:"accepted_at"`
}

// XDRResponse wraps a generated transaction envelope
type XDRResponse struct {
	ContractID string `json:"contract_id"`
	Function   string `json:"function"`
	XDR        string `json:"xdr"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
