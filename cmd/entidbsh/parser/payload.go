package parser

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/entidb/entidb/internal/codec"
)

// DecodePayload parses a REPL payload argument into a canonical-CBOR
// codec.Value ready for codec.Encode. Adapted from the teacher's
// cmd/docdbsh/parser/payload.go raw:/hex:/json: prefix convention; the
// teacher returned opaque []byte since docdb payloads are uninterpreted,
// but this engine's payloads are always canonical CBOR, so every prefix
// here produces a typed Value instead.
func DecodePayload(s string) (codec.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return codec.Value{}, fmt.Errorf("payload cannot be empty")
	}

	switch {
	case strings.HasPrefix(s, "raw:"):
		return decodeRaw(s[4:]), nil
	case strings.HasPrefix(s, "hex:"):
		return decodeHex(s[4:])
	case strings.HasPrefix(s, "json:"):
		return decodeJSON(s[5:])
	default:
		return codec.Value{}, fmt.Errorf("payload must have prefix: raw:, hex:, or json:")
	}
}

func decodeRaw(s string) codec.Value {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return codec.Text(s)
}

func decodeHex(s string) (codec.Value, error) {
	s = strings.TrimSpace(s)
	if len(s)%2 != 0 {
		return codec.Value{}, fmt.Errorf("hex string must have even length")
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return codec.Value{}, fmt.Errorf("invalid hex: %w", err)
	}
	return codec.Bytes(data), nil
}

func decodeJSON(s string) (codec.Value, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return codec.Value{}, fmt.Errorf("invalid json: %w", err)
	}
	return jsonToValue(v)
}

func jsonToValue(v interface{}) (codec.Value, error) {
	switch x := v.(type) {
	case nil:
		return codec.Null(), nil
	case bool:
		return codec.Bool(x), nil
	case float64:
		return codec.Int(int64(x)), nil
	case string:
		return codec.Text(x), nil
	case []interface{}:
		vals := make([]codec.Value, len(x))
		for i, e := range x {
			cv, err := jsonToValue(e)
			if err != nil {
				return codec.Value{}, err
			}
			vals[i] = cv
		}
		return codec.Array(vals), nil
	case map[string]interface{}:
		entries := make([]codec.MapEntry, 0, len(x))
		for k, e := range x {
			cv, err := jsonToValue(e)
			if err != nil {
				return codec.Value{}, err
			}
			entries = append(entries, codec.MapEntry{Key: codec.Text(k), Value: cv})
		}
		return codec.Map(entries), nil
	default:
		return codec.Value{}, fmt.Errorf("unsupported json type %T", x)
	}
}
