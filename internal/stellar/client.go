package stellar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	rpcclient "github.com/stellar/go/clients/rpcclient"
	protocol "github.com/stellar/go/protocols/rpc"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// txTimeoutSeconds bounds the validity window of generated transactions
const txTimeoutSeconds = 300

// RPC is the set of remote calls the gateway makes against one Soroban RPC endpoint
type RPC interface {
	Health(ctx context.Context) (Health, error)
	GenerateXDR(ctx context.Context, req InvokeRequest) (string, error)
	GetEvents(ctx context.Context, query EventsQuery) (EventsPage, error)
	SimulateTransaction(ctx context.Context, txXDR string, opts SimulationOptions) (SimulationResult, error)
	GetContractData(ctx context.Context, contractID, keyXDR string, durability Durability) (LedgerEntry, error)
	CallContractFunction(ctx context.Context, req InvokeRequest) (CallResult, error)
	SendTransaction(ctx context.Context, signedXDR string) (SendResult, error)
	Close() error
}

// Client implements RPC over the stellar/go JSON-RPC client
type Client struct {
	rpc               *rpcclient.Client
	url               string
	networkPassphrase string
}

// NewClient creates a client for one RPC endpoint and network
func NewClient(url, networkPassphrase string, timeout time.Duration) *Client {
	return &Client{
		rpc:               rpcclient.NewClient(url, &http.Client{Timeout: timeout}),
		url:               url,
		networkPassphrase: networkPassphrase,
	}
}

// Close releases the underlying transport
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Health returns the endpoint status and latest ledger
func (c *Client) Health(ctx context.Context) (Health, error) {
	resp, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return Health{}, fmt.Errorf("getHealth %s: %w", c.url, err)
	}
	return Health{Status: resp.Status, LatestLedger: resp.LatestLedger}, nil
}

// GenerateXDR builds an invoke-contract transaction for source, simulates it and
// returns the envelope with soroban data, auth entries and resource fee applied.
// The result still has to be signed by the source account.
func (c *Client) GenerateXDR(ctx context.Context, req InvokeRequest) (string, error) {
	if !IsAccountID(req.SourceAccount) {
		return "", fmt.Errorf("%w: invalid source account %q", ErrInvalidParameter, req.SourceAccount)
	}

	seq, err := c.accountSequence(ctx, req.SourceAccount)
	if err != nil {
		return "", err
	}

	op, err := invokeOperation(req)
	if err != nil {
		return "", err
	}

	draft, err := buildTransaction(req.SourceAccount, seq, op, txnbuild.MinBaseFee)
	if err != nil {
		return "", err
	}

	sim, err := c.SimulateTransaction(ctx, draft, SimulationOptions{})
	if err != nil {
		return "", err
	}
	if !sim.Success() {
		return "", fmt.Errorf("%w: %s", ErrSimulationFailed, sim.Error)
	}

	if err := applySimulation(op, sim); err != nil {
		return "", err
	}

	prepared, err := buildTransaction(req.SourceAccount, seq, op, txnbuild.MinBaseFee+sim.MinResourceFee)
	if err != nil {
		return "", err
	}

	slog.Debug("Generated transaction XDR",
		"contract_id", req.ContractID,
		"function", req.Function,
		"resource_fee", sim.MinResourceFee,
		"length", len(prepared),
	)
	return prepared, nil
}

// CallContractFunction simulates a read-only invocation and decodes its return value.
// A simulation error is reported in the result, not as an error.
func (c *Client) CallContractFunction(ctx context.Context, req InvokeRequest) (CallResult, error) {
	if req.SourceAccount == "" {
		req.SourceAccount = DefaultSourceAccount
	}
	if !IsAccountID(req.SourceAccount) {
		return CallResult{}, fmt.Errorf("%w: invalid source account %q", ErrInvalidParameter, req.SourceAccount)
	}

	seq, err := c.accountSequence(ctx, req.SourceAccount)
	if errors.Is(err, ErrAccountNotFound) {
		// simulation does not check the sequence number
		seq = 0
	} else if err != nil {
		return CallResult{}, err
	}

	op, err := invokeOperation(req)
	if err != nil {
		return CallResult{}, err
	}

	txXDR, err := buildTransaction(req.SourceAccount, seq, op, txnbuild.MinBaseFee)
	if err != nil {
		return CallResult{}, err
	}

	sim, err := c.SimulateTransaction(ctx, txXDR, SimulationOptions{})
	if err != nil {
		return CallResult{}, err
	}
	if !sim.Success() {
		slog.Warn("Contract call simulation failed",
			"contract_id", req.ContractID,
			"function", req.Function,
			"error", sim.Error,
		)
		return CallResult{Success: false, Error: sim.Error}, nil
	}

	result := CallResult{
		Success: true,
		Simulation: &SimulationDetails{
			LatestLedger:   sim.LatestLedger,
			MinResourceFee: sim.MinResourceFee,
			Events:         sim.Events,
		},
	}
	if len(sim.Results) > 0 && sim.Results[0].XDR != "" {
		value, err := DecodeScVal(sim.Results[0].XDR)
		if err != nil {
			return CallResult{}, err
		}
		result.Result = value
		result.ResultXDR = sim.Results[0].XDR
	}
	return result, nil
}

// SimulateTransaction runs simulateTransaction for a base64 envelope
func (c *Client) SimulateTransaction(ctx context.Context, txXDR string, opts SimulationOptions) (SimulationResult, error) {
	params := map[string]any{"transaction": txXDR}
	if opts.CPUInstructions > 0 {
		params["resourceConfig"] = map[string]any{"instructionLeeway": opts.CPUInstructions}
	}
	if opts.AuthMode != "" {
		params["authMode"] = opts.AuthMode
	}

	var request protocol.SimulateTransactionRequest
	if err := convert(params, &request); err != nil {
		return SimulationResult{}, fmt.Errorf("building simulateTransaction request: %w", err)
	}

	resp, err := c.rpc.SimulateTransaction(ctx, request)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("simulateTransaction %s: %w", c.url, err)
	}

	var result SimulationResult
	if err := convert(resp, &result); err != nil {
		return SimulationResult{}, fmt.Errorf("decoding simulateTransaction response: %w", err)
	}
	return result, nil
}

// GetEvents queries contract events by ledger range or cursor
func (c *Client) GetEvents(ctx context.Context, query EventsQuery) (EventsPage, error) {
	params := map[string]any{}
	if query.Cursor == "" {
		params["startLedger"] = query.StartLedger
		if query.EndLedger > 0 {
			params["endLedger"] = query.EndLedger
		}
	}

	filters := make([]map[string]any, 0, len(query.Filters))
	for _, f := range query.Filters {
		filter := map[string]any{}
		if f.Type != "" {
			filter["type"] = f.Type
		}
		if len(f.ContractIDs) > 0 {
			filter["contractIds"] = f.ContractIDs
		}
		if len(f.Topics) > 0 {
			filter["topics"] = f.Topics
		}
		filters = append(filters, filter)
	}
	params["filters"] = filters

	pagination := map[string]any{}
	if query.Cursor != "" {
		pagination["cursor"] = query.Cursor
	}
	if query.Limit > 0 {
		pagination["limit"] = query.Limit
	}
	if len(pagination) > 0 {
		params["pagination"] = pagination
	}

	var request protocol.GetEventsRequest
	if err := convert(params, &request); err != nil {
		return EventsPage{}, fmt.Errorf("%w: events query: %v", ErrInvalidParameter, err)
	}

	resp, err := c.rpc.GetEvents(ctx, request)
	if err != nil {
		return EventsPage{}, fmt.Errorf("getEvents %s: %w", c.url, err)
	}

	var page EventsPage
	if err := convert(resp, &page); err != nil {
		return EventsPage{}, fmt.Errorf("decoding getEvents response: %w", err)
	}
	if page.Events == nil {
		page.Events = []Event{}
	}
	return page, nil
}

// GetContractData reads one contract storage entry. keyXDR is a base64 ScVal.
func (c *Client) GetContractData(ctx context.Context, contractID, keyXDR string, durability Durability) (LedgerEntry, error) {
	contract, err := ScAddress(contractID)
	if err != nil {
		return LedgerEntry{}, err
	}

	var storageKey xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(keyXDR, &storageKey); err != nil {
		return LedgerEntry{}, fmt.Errorf("%w: storage key is not a base64 ScVal: %v", ErrInvalidParameter, err)
	}

	key := xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeContractData,
		ContractData: &xdr.LedgerKeyContractData{
			Contract:   contract,
			Key:        storageKey,
			Durability: durability.toXDR(),
		},
	}

	entries, err := c.ledgerEntries(ctx, key)
	if err != nil {
		return LedgerEntry{}, err
	}
	if len(entries.Entries) == 0 {
		return LedgerEntry{}, fmt.Errorf("%w: contract %s", ErrEntryNotFound, contractID)
	}
	return entries.Entries[0], nil
}

// SendTransaction submits a signed envelope
func (c *Client) SendTransaction(ctx context.Context, signedXDR string) (SendResult, error) {
	parsed, err := txnbuild.TransactionFromXDR(signedXDR)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: signed transaction is not a base64 envelope: %v", ErrInvalidParameter, err)
	}
	localHash := envelopeHash(parsed, c.networkPassphrase)

	resp, err := c.rpc.SendTransaction(ctx, protocol.SendTransactionRequest{Transaction: signedXDR})
	if err != nil {
		return SendResult{}, fmt.Errorf("sendTransaction %s: %w", c.url, err)
	}

	var result SendResult
	if err := convert(resp, &result); err != nil {
		return SendResult{}, fmt.Errorf("decoding sendTransaction response: %w", err)
	}
	if result.Hash == "" {
		result.Hash = localHash
	}

	slog.Info("📤 Transaction sent",
		"hash", result.Hash,
		"status", result.Status,
		"latest_ledger", result.LatestLedger,
	)
	return result, nil
}

// envelopeHash is the network-specific hash of a parsed envelope, empty if it cannot be computed
func envelopeHash(parsed *txnbuild.GenericTransaction, networkPassphrase string) string {
	var (
		hash string
		err  error
	)
	if tx, ok := parsed.Transaction(); ok {
		hash, err = tx.HashHex(networkPassphrase)
	} else if feeBump, ok := parsed.FeeBump(); ok {
		hash, err = feeBump.HashHex(networkPassphrase)
	}
	if err != nil {
		return ""
	}
	return hash
}

func (c *Client) ledgerEntries(ctx context.Context, keys ...xdr.LedgerKey) (ledgerEntriesPage, error) {
	encoded := make([]string, 0, len(keys))
	for _, k := range keys {
		b64, err := xdr.MarshalBase64(k)
		if err != nil {
			return ledgerEntriesPage{}, fmt.Errorf("encoding ledger key: %w", err)
		}
		encoded = append(encoded, b64)
	}

	resp, err := c.rpc.GetLedgerEntries(ctx, protocol.GetLedgerEntriesRequest{Keys: encoded})
	if err != nil {
		return ledgerEntriesPage{}, fmt.Errorf("getLedgerEntries %s: %w", c.url, err)
	}

	var page ledgerEntriesPage
	if err := convert(resp, &page); err != nil {
		return ledgerEntriesPage{}, fmt.Errorf("decoding getLedgerEntries response: %w", err)
	}
	return page, nil
}

// accountSequence loads the current sequence number of a G... account
func (c *Client) accountSequence(ctx context.Context, address string) (int64, error) {
	var accountID xdr.AccountId
	if err := accountID.SetAddress(address); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	key := xdr.LedgerKey{
		Type:    xdr.LedgerEntryTypeAccount,
		Account: &xdr.LedgerKeyAccount{AccountId: accountID},
	}

	entries, err := c.ledgerEntries(ctx, key)
	if err != nil {
		return 0, err
	}
	if len(entries.Entries) == 0 {
		return 0, ErrAccountNotFound
	}

	var data xdr.LedgerEntryData
	if err := xdr.SafeUnmarshalBase64(entries.Entries[0].XDR, &data); err != nil {
		return 0, fmt.Errorf("decoding account entry: %w", err)
	}
	account, ok := data.GetAccount()
	if !ok {
		return 0, fmt.Errorf("ledger entry for %s is not an account", address)
	}
	return int64(account.SeqNum), nil
}

func invokeOperation(req InvokeRequest) (*txnbuild.InvokeHostFunction, error) {
	if strings.TrimSpace(req.Function) == "" {
		return nil, fmt.Errorf("%w: function name is required", ErrInvalidParameter)
	}

	contract, err := ScAddress(req.ContractID)
	if err != nil {
		return nil, err
	}

	args, err := ScVals(req.Params)
	if err != nil {
		return nil, err
	}

	return &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: contract,
				FunctionName:    xdr.ScSymbol(req.Function),
				Args:            xdr.ScVec(args),
			},
		},
		SourceAccount: req.SourceAccount,
	}, nil
}

// applySimulation attaches the simulated footprint, resources and auth entries to op
func applySimulation(op *txnbuild.InvokeHostFunction, sim SimulationResult) error {
	var sorobanData xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(sim.TransactionData, &sorobanData); err != nil {
		return fmt.Errorf("decoding soroban transaction data: %w", err)
	}

	var auth []xdr.SorobanAuthorizationEntry
	if len(sim.Results) > 0 {
		for _, b64 := range sim.Results[0].Auth {
			var entry xdr.SorobanAuthorizationEntry
			if err := xdr.SafeUnmarshalBase64(b64, &entry); err != nil {
				return fmt.Errorf("decoding auth entry: %w", err)
			}
			auth = append(auth, entry)
		}
	}

	op.Auth = auth
	op.Ext = xdr.TransactionExt{V: 1, SorobanData: &sorobanData}
	return nil
}

func buildTransaction(source string, seq int64, op *txnbuild.InvokeHostFunction, baseFee int64) (string, error) {
	account := txnbuild.NewSimpleAccount(source, seq)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &account,
		IncrementSequenceNum: true,
		BaseFee:              baseFee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(txTimeoutSeconds)},
		Operations:           []txnbuild.Operation{op},
	})
	if err != nil {
		return "", fmt.Errorf("building transaction: %w", err)
	}

	b64, err := tx.Base64()
	if err != nil {
		return "", fmt.Errorf("encoding transaction: %w", err)
	}
	return b64, nil
}

// convert moves a value between the RPC protocol types and ours through
// their shared JSON wire encoding
func convert(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
