// Package codec serializes stored values to and from the table's value
// column.
//
// The wire form is JSON. Decoded values come back as the closed set
// {nil, bool, int64, float64, string, []any, map[string]any}: integral
// numbers decode to int64, everything else numeric to float64. Typed
// structs encode fine but decode as maps, like any JSON round trip.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxEncodedSize is the ceiling on the encoded byte length of one value.
const MaxEncodedSize = 10 << 20 // 10,485,760 bytes

var (
	// ErrEncode means the value cannot be serialized (channels, funcs,
	// cyclic structures and the like).
	ErrEncode = errors.New("value not encodable")

	// ErrDecode means the stored text is not valid for this codec. For
	// engine-written data that indicates corruption; it is surfaced, not
	// coerced.
	ErrDecode = errors.New("value not decodable")

	// ErrTooLarge means the encoded value exceeds MaxEncodedSize.
	ErrTooLarge = errors.New("value too large")
)

// Encode serializes v for the value column.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if len(data) > MaxEncodedSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), MaxEncodedSize)
	}
	return string(data), nil
}

// Decode is the inverse of Encode.
func Decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return normalize(v), nil
}

// DecodeInt decodes a stored counter value. Only integral numbers
// qualify; anything else is a decode failure rather than a silent cast.
func DecodeInt(s string) (int64, error) {
	v, err := Decode(s)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrDecode, s)
	}
	return n, nil
}

// normalize rewrites json.Number leaves into int64 or float64,
// recursively through sequences and mappings.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalize(x[k])
		}
		return x
	default:
		return v
	}
}
