package stellar

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// Parameter is a typed contract argument.
// Scalars use Value, "vec" uses Items and "enum" uses Variant with an optional Inner value.
type Parameter struct {
	Type    string      `json:"type"`
	Value   any         `json:"value,omitempty"`
	Items   []Parameter `json:"items,omitempty"`
	Variant string      `json:"variant,omitempty"`
	Inner   *Parameter  `json:"inner,omitempty"`
}

// ToScVal encodes the parameter as a Soroban value
func (p Parameter) ToScVal() (xdr.ScVal, error) {
	switch p.Type {
	case "symbol":
		s, err := p.str()
		if err != nil {
			return xdr.ScVal{}, err
		}
		if len(s) > 32 {
			return xdr.ScVal{}, fmt.Errorf("%w: symbol %q longer than 32 characters", ErrInvalidParameter, s)
		}
		return xdr.NewScVal(xdr.ScValTypeScvSymbol, xdr.ScSymbol(s))
	case "string":
		s, err := p.str()
		if err != nil {
			return xdr.ScVal{}, err
		}
		return xdr.NewScVal(xdr.ScValTypeScvString, xdr.ScString(s))
	case "address":
		s, err := p.str()
		if err != nil {
			return xdr.ScVal{}, err
		}
		addr, err := ScAddress(s)
		if err != nil {
			return xdr.ScVal{}, err
		}
		return xdr.NewScVal(xdr.ScValTypeScvAddress, addr)
	case "bool":
		b, ok := p.Value.(bool)
		if !ok {
			return xdr.ScVal{}, fmt.Errorf("%w: bool expected, got %T", ErrInvalidParameter, p.Value)
		}
		return xdr.NewScVal(xdr.ScValTypeScvBool, b)
	case "u32":
		n, err := p.asUint(math.MaxUint32)
		if err != nil {
			return xdr.ScVal{}, err
		}
		return xdr.NewScVal(xdr.ScValTypeScvU32, xdr.Uint32(n))
	case "u64":
		n, err := p.asUint(math.MaxUint64)
		if err != nil {
			return xdr.ScVal{}, err
		}
		return xdr.NewScVal(xdr.ScValTypeScvU64, xdr.Uint64(n))
	case "i32":
		n, err := p.asInt(math.MinInt32, math.MaxInt32)
		if err != nil {
			return xdr.ScVal{}, err
		}
		return xdr.NewScVal(xdr.ScValTypeScvI32, xdr.Int32(n))
	case "i64":
		n, err := p.asInt(math.MinInt64, math.MaxInt64)
		if err != nil {
			return xdr.ScVal{}, err
		}
		return xdr.NewScVal(xdr.ScValTypeScvI64, xdr.Int64(n))
	case "bytes":
		s, err := p.str()
		if err != nil {
			return xdr.ScVal{}, err
		}
		raw, err := hex.DecodeString(s)
		if err != nil {
			return xdr.ScVal{}, fmt.Errorf("%w: bytes must be hex: %v", ErrInvalidParameter, err)
		}
		return xdr.NewScVal(xdr.ScValTypeScvBytes, xdr.ScBytes(raw))
	case "vec":
		vec, err := ScVals(p.Items)
		if err != nil {
			return xdr.ScVal{}, err
		}
		scVec := xdr.ScVec(vec)
		return xdr.NewScVal(xdr.ScValTypeScvVec, &scVec)
	case "enum":
		if p.Variant == "" {
			return xdr.ScVal{}, fmt.Errorf("%w: enum without variant", ErrInvalidParameter)
		}
		tag, err := Parameter{Type: "symbol", Value: p.Variant}.ToScVal()
		if err != nil {
			return xdr.ScVal{}, err
		}
		scVec := xdr.ScVec{tag}
		if p.Inner != nil {
			inner, err := p.Inner.ToScVal()
			if err != nil {
				return xdr.ScVal{}, err
			}
			scVec = append(scVec, inner)
		}
		return xdr.NewScVal(xdr.ScValTypeScvVec, &scVec)
	default:
		return xdr.ScVal{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidParameter, p.Type)
	}
}

// ScVals encodes a parameter list
func ScVals(params []Parameter) ([]xdr.ScVal, error) {
	vals := make([]xdr.ScVal, 0, len(params))
	for i, p := range params {
		v, err := p.ToScVal()
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (p Parameter) str() (string, error) {
	s, ok := p.Value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidParameter, p.Type, p.Value)
	}
	return s, nil
}

// asUint accepts JSON numbers and decimal strings, the latter for values beyond float precision
func (p Parameter) asUint(limit uint64) (uint64, error) {
	var n uint64
	switch v := p.Value.(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) || v > float64(limit) {
			return 0, fmt.Errorf("%w: %v out of range for %s", ErrInvalidParameter, v, p.Type)
		}
		n = uint64(v)
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%w: %d out of range for %s", ErrInvalidParameter, v, p.Type)
		}
		n = uint64(v)
	case uint64:
		n = v
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: %s expects a number, got %T", ErrInvalidParameter, p.Type, p.Value)
	}
	if n > limit {
		return 0, fmt.Errorf("%w: %d out of range for %s", ErrInvalidParameter, n, p.Type)
	}
	return n, nil
}

func (p Parameter) asInt(lo, hi int64) (int64, error) {
	var n int64
	switch v := p.Value.(type) {
	case float64:
		if v != math.Trunc(v) || v < float64(lo) || v > float64(hi) {
			return 0, fmt.Errorf("%w: %v out of range for %s", ErrInvalidParameter, v, p.Type)
		}
		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: %s expects a number, got %T", ErrInvalidParameter, p.Type, p.Value)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %d out of range for %s", ErrInvalidParameter, n, p.Type)
	}
	return n, nil
}

// ScAddress converts a G... account or C... contract strkey into an ScAddress
func ScAddress(address string) (xdr.ScAddress, error) {
	var raw []byte
	switch {
	case strkey.IsValidEd25519PublicKey(address):
		payload, err := strkey.Decode(strkey.VersionByteAccountID, address)
		if err != nil {
			return xdr.ScAddress{}, err
		}
		// ScAddress account arm, PublicKey ed25519 arm, key
		raw = append([]byte{0, 0, 0, 0, 0, 0, 0, 0}, payload...)
	case IsContractID(address):
		payload, err := strkey.Decode(strkey.VersionByteContract, address)
		if err != nil {
			return xdr.ScAddress{}, err
		}
		// ScAddress contract arm, contract hash
		raw = append([]byte{0, 0, 0, 1}, payload...)
	default:
		return xdr.ScAddress{}, fmt.Errorf("%w: %q is not an account or contract address", ErrInvalidParameter, address)
	}

	var addr xdr.ScAddress
	if err := addr.UnmarshalBinary(raw); err != nil {
		return xdr.ScAddress{}, fmt.Errorf("decoding address %s: %w", address, err)
	}
	return addr, nil
}

// IsContractID reports whether id is a valid C... contract strkey
func IsContractID(id string) bool {
	_, err := strkey.Decode(strkey.VersionByteContract, id)
	return err == nil
}

// IsAccountID reports whether id is a valid G... account strkey
func IsAccountID(id string) bool {
	return strkey.IsValidEd25519PublicKey(id)
}
