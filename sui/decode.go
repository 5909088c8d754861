package sui

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// Move values arrive in several equivalent wire shapes depending on how the
// node serializes them (plain arrays, wrapped field structs, 0x-hex byte
// strings). The helpers below normalize them with a fixed fallback order so
// nothing outside this package ever branches on payload shape.

// UnwrapVector extracts the elements of a Move vector regardless of which
// wrapping the node used. Unrecognized shapes normalize to an empty slice.
func UnwrapVector(value any) []any {
	if items, ok := value.([]any); ok {
		return items
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	if fields, ok := obj["fields"].(map[string]any); ok {
		if items, ok := fields["contents"].([]any); ok {
			return items
		}
	}
	if items, ok := obj["contents"].([]any); ok {
		return items
	}
	if items, ok := obj["fields"].([]any); ok {
		return items
	}
	if items, ok := obj["value"].([]any); ok {
		return items
	}

	return nil
}

// DecodeMoveString normalizes a Move string value: a plain string is used
// as-is, byte-encoded variants are hex-decoded, wrapped variants recurse.
func DecodeMoveString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		if bytes, ok := v["bytes"].(string); ok {
			return HexToUTF8(bytes)
		}
		if fields, ok := v["fields"].(map[string]any); ok {
			if bytes, ok := fields["bytes"].(string); ok {
				return HexToUTF8(bytes)
			}
			if inner, ok := fields["value"]; ok {
				return DecodeMoveString(inner)
			}
		}
	case nil:
		return ""
	}
	return ""
}

// HexToUTF8 decodes a 0x-prefixed or bare hex string into UTF-8 text.
// Invalid hex decodes to an empty string.
func HexToUTF8(h string) string {
	clean := strings.TrimPrefix(h, "0x")
	if clean == "" {
		return ""
	}
	decoded, err := hex.DecodeString(clean)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// FieldInt64 reads a numeric Move field that the node may encode as a JSON
// number or as a decimal string (u64 values always arrive as strings).
func FieldInt64(value any) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case int64:
		return v
	}
	return 0
}

// FieldBool reads a Move bool field, tolerating string encoding.
func FieldBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// FieldString reads a plain string field with an empty-string fallback.
func FieldString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}
