package stellar

import (
	"errors"
	"testing"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

func testContractID(t *testing.T, fill byte) string {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = fill
	}
	id, err := strkey.Encode(strkey.VersionByteContract, raw)
	if err != nil {
		t.Fatalf("encoding contract id: %v", err)
	}
	return id
}

func TestParameter_ToScVal(t *testing.T) {
	tests := []struct {
		name     string
		param    Parameter
		expected xdr.ScValType
	}{
		{"symbol", Parameter{Type: "symbol", Value: "get_scores"}, xdr.ScValTypeScvSymbol},
		{"string", Parameter{Type: "string", Value: "hello"}, xdr.ScValTypeScvString},
		{"bool", Parameter{Type: "bool", Value: true}, xdr.ScValTypeScvBool},
		{"u32 from json number", Parameter{Type: "u32", Value: float64(42)}, xdr.ScValTypeScvU32},
		{"u64 from decimal string", Parameter{Type: "u64", Value: "18446744073709551615"}, xdr.ScValTypeScvU64},
		{"i32 negative", Parameter{Type: "i32", Value: float64(-7)}, xdr.ScValTypeScvI32},
		{"i64", Parameter{Type: "i64", Value: "-9000000000"}, xdr.ScValTypeScvI64},
		{"bytes", Parameter{Type: "bytes", Value: "deadbeef"}, xdr.ScValTypeScvBytes},
		{"account address", Parameter{Type: "address", Value: DefaultSourceAccount}, xdr.ScValTypeScvAddress},
		{"vec", Parameter{Type: "vec", Items: []Parameter{{Type: "u32", Value: float64(1)}}}, xdr.ScValTypeScvVec},
		{"enum", Parameter{Type: "enum", Variant: "Stellar", Inner: &Parameter{Type: "symbol", Value: "XLM"}}, xdr.ScValTypeScvVec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := tt.param.ToScVal()
			if err != nil {
				t.Fatalf("ToScVal() error = %v", err)
			}
			if val.Type != tt.expected {
				t.Errorf("ToScVal() type = %s, expected %s", val.Type, tt.expected)
			}
		})
	}
}

func TestParameter_ToScValErrors(t *testing.T) {
	tests := []struct {
		name  string
		param Parameter
	}{
		{"u32 negative", Parameter{Type: "u32", Value: float64(-1)}},
		{"u32 overflow", Parameter{Type: "u32", Value: float64(1 << 33)}},
		{"i32 fraction", Parameter{Type: "i32", Value: 1.5}},
		{"bytes not hex", Parameter{Type: "bytes", Value: "zz"}},
		{"symbol too long", Parameter{Type: "symbol", Value: "this_symbol_is_definitely_longer_than_32"}},
		{"string wrong type", Parameter{Type: "string", Value: float64(1)}},
		{"bad address", Parameter{Type: "address", Value: "not-an-address"}},
		{"enum without variant", Parameter{Type: "enum"}},
		{"unknown type", Parameter{Type: "u128", Value: "1"}},
		{"nested error", Parameter{Type: "vec", Items: []Parameter{{Type: "bool", Value: "yes"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.param.ToScVal(); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("Expected ErrInvalidParameter, got: %v", err)
			}
		})
	}
}

func TestParameter_EnumShape(t *testing.T) {
	val, err := Parameter{Type: "enum", Variant: "Other", Inner: &Parameter{Type: "symbol", Value: "USD"}}.ToScVal()
	if err != nil {
		t.Fatalf("ToScVal() error = %v", err)
	}

	decoded, ok := ScValToInterface(val).([]any)
	if !ok || len(decoded) != 2 {
		t.Fatalf("Expected [variant, value], got: %#v", ScValToInterface(val))
	}
	if decoded[0] != "Other" || decoded[1] != "USD" {
		t.Errorf("Unexpected enum encoding: %#v", decoded)
	}
}

func TestScAddress_RoundTrip(t *testing.T) {
	contractID := testContractID(t, 7)

	for _, address := range []string{contractID, DefaultSourceAccount} {
		addr, err := ScAddress(address)
		if err != nil {
			t.Fatalf("ScAddress(%s) error = %v", address, err)
		}
		got, err := addr.String()
		if err != nil {
			t.Fatalf("String() error = %v", err)
		}
		if got != address {
			t.Errorf("Expected %s, got: %s", address, got)
		}
	}
}

func TestIsContractID(t *testing.T) {
	if !IsContractID(testContractID(t, 1)) {
		t.Error("Expected encoded contract id to be valid")
	}
	if IsContractID(DefaultSourceAccount) {
		t.Error("Expected account id to be rejected as contract id")
	}
	if IsContractID("CABC") {
		t.Error("Expected truncated id to be rejected")
	}
}

func TestDecodeScVal(t *testing.T) {
	u128, err := xdr.NewScVal(xdr.ScValTypeScvU128, xdr.UInt128Parts{Hi: 1, Lo: 0})
	if err != nil {
		t.Fatalf("NewScVal: %v", err)
	}
	b64, err := xdr.MarshalBase64(u128)
	if err != nil {
		t.Fatalf("MarshalBase64: %v", err)
	}

	got, err := DecodeScVal(b64)
	if err != nil {
		t.Fatalf("DecodeScVal error = %v", err)
	}
	if got != "18446744073709551616" {
		t.Errorf("Expected 2^64 as decimal string, got: %v", got)
	}

	if _, err := DecodeScVal("%%%"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}

func TestScValToInterface_Map(t *testing.T) {
	key, _ := Parameter{Type: "symbol", Value: "price"}.ToScVal()
	value, _ := Parameter{Type: "i64", Value: float64(1500)}.ToScVal()
	scMap := xdr.ScMap{{Key: key, Val: value}}
	val, err := xdr.NewScVal(xdr.ScValTypeScvMap, &scMap)
	if err != nil {
		t.Fatalf("NewScVal: %v", err)
	}

	got, ok := ScValToInterface(val).(map[string]any)
	if !ok {
		t.Fatalf("Expected map, got: %#v", ScValToInterface(val))
	}
	if got["price"] != int64(1500) {
		t.Errorf("Expected price 1500, got: %#v", got["price"])
	}
}

func TestParseDurability(t *testing.T) {
	tests := []struct {
		input    string
		expected Durability
		wantErr  bool
	}{
		{"", DurabilityPersistent, false},
		{"persistent", DurabilityPersistent, false},
		{"Temporary", DurabilityTemporary, false},
		{"instance", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDurability(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDurability(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDurability(%q) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestSendResult_Accepted(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{"PENDING", true},
		{"DUPLICATE", true},
		{"ERROR", false},
		{"TRY_AGAIN_LATER", false},
	}

	for _, tt := range tests {
		if got := (SendResult{Status: tt.status}).Accepted(); got != tt.expected {
			t.Errorf("SendResult{%s}.Accepted() = %v, expected %v", tt.status, got, tt.expected)
		}
	}
}
