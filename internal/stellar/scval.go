package stellar

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/stellar/go/xdr"
)

// DecodeScVal parses a base64 ScVal and converts it for JSON output
func DecodeScVal(b64 string) (any, error) {
	var val xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(b64, &val); err != nil {
		return nil, fmt.Errorf("decoding ScVal: %w", err)
	}
	return ScValToInterface(val), nil
}

// ScValToInterface converts an ScVal to a plain Go value for JSON serialization
func ScValToInterface(val xdr.ScVal) any {
	switch val.Type {
	case xdr.ScValTypeScvBool:
		return val.MustB()
	case xdr.ScValTypeScvVoid:
		return nil
	case xdr.ScValTypeScvU32:
		return uint32(val.MustU32())
	case xdr.ScValTypeScvI32:
		return int32(val.MustI32())
	case xdr.ScValTypeScvU64:
		return uint64(val.MustU64())
	case xdr.ScValTypeScvI64:
		return int64(val.MustI64())
	case xdr.ScValTypeScvU128:
		// decimal strings avoid JSON number precision loss
		u128 := val.MustU128()
		n := new(big.Int).SetUint64(uint64(u128.Hi))
		n.Lsh(n, 64).Or(n, new(big.Int).SetUint64(uint64(u128.Lo)))
		return n.String()
	case xdr.ScValTypeScvI128:
		i128 := val.MustI128()
		n := big.NewInt(int64(i128.Hi))
		n.Lsh(n, 64).Add(n, new(big.Int).SetUint64(uint64(i128.Lo)))
		return n.String()
	case xdr.ScValTypeScvU256:
		u256 := val.MustU256()
		return fmt.Sprintf("0x%016x%016x%016x%016x", uint64(u256.HiHi), uint64(u256.HiLo), uint64(u256.LoHi), uint64(u256.LoLo))
	case xdr.ScValTypeScvI256:
		i256 := val.MustI256()
		return fmt.Sprintf("0x%016x%016x%016x%016x", uint64(i256.HiHi), uint64(i256.HiLo), uint64(i256.LoHi), uint64(i256.LoLo))
	case xdr.ScValTypeScvSymbol:
		return string(val.MustSym())
	case xdr.ScValTypeScvString:
		return string(val.MustStr())
	case xdr.ScValTypeScvAddress:
		addr := val.MustAddress()
		str, err := addr.String()
		if err != nil {
			return val.Type.String()
		}
		return str
	case xdr.ScValTypeScvBytes:
		return hex.EncodeToString(val.MustBytes())
	case xdr.ScValTypeScvVec:
		vecPtr := val.MustVec()
		if vecPtr == nil {
			return []any{}
		}
		result := make([]any, len(*vecPtr))
		for i, element := range *vecPtr {
			result[i] = ScValToInterface(element)
		}
		return result
	case xdr.ScValTypeScvMap:
		mapPtr := val.MustMap()
		result := make(map[string]any)
		if mapPtr == nil {
			return result
		}
		for _, entry := range *mapPtr {
			result[scValKey(entry.Key)] = ScValToInterface(entry.Val)
		}
		return result
	default:
		return val.Type.String()
	}
}

// scValKey renders a map key; symbols and strings are used as-is
func scValKey(val xdr.ScVal) string {
	switch val.Type {
	case xdr.ScValTypeScvSymbol:
		return string(val.MustSym())
	case xdr.ScValTypeScvString:
		return string(val.MustStr())
	default:
		return fmt.Sprintf("%v", ScValToInterface(val))
	}
}
