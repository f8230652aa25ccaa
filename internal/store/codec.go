package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"harvest/internal/extract"
)

// Attribute value types as written to the value_type column.
const (
	valueString = "string"
	valueFloat  = "float"
	valueInt    = "int"
	valueBool   = "bool"
)

// encodeSamples packs samples as little-endian IEEE 754 doubles.
func encodeSamples(samples []float64) []byte {
	out := make([]byte, 8*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

func decodeSamples(data []byte, count int) ([]float64, error) {
	if len(data) != 8*count {
		return nil, fmt.Errorf("sample blob holds %d bytes, want %d for %d samples", len(data), 8*count, count)
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

// encodeValue renders an attribute value as (type, text). Floats use the
// shortest representation that parses back to the same bits.
func encodeValue(value any) (string, string, error) {
	switch v := value.(type) {
	case string:
		return valueString, v, nil
	case float64:
		return valueFloat, strconv.FormatFloat(v, 'g', -1, 64), nil
	case int64:
		return valueInt, strconv.FormatInt(v, 10), nil
	case bool:
		return valueBool, strconv.FormatBool(v), nil
	}
	normalized, ok := extract.NormalizeValue(value)
	if !ok {
		return "", "", fmt.Errorf("unsupported attribute value %T", value)
	}
	return encodeValue(normalized)
}

func decodeValue(kind, text string) (any, error) {
	switch kind {
	case valueString:
		return text, nil
	case valueFloat:
		return strconv.ParseFloat(text, 64)
	case valueInt:
		return strconv.ParseInt(text, 10, 64)
	case valueBool:
		return strconv.ParseBool(text)
	default:
		return nil, fmt.Errorf("unknown attribute value type %q", kind)
	}
}
