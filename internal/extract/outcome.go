package extract

import (
	"errors"
	"fmt"
	"math"
	"time"

	"harvest/internal/errkind"
)

// Kind is the outcome category of one extraction attempt.
type Kind string

const (
	KindSuccess      Kind = "success"
	KindMetadataOnly Kind = "metadata_only"
	KindFailure      Kind = "failure"
)

// Attribute is one metadata entry. Value is a string, float64, int64, or bool.
type Attribute struct {
	Key   string
	Value any
}

// Metadata is an ordered attribute list with unique keys.
type Metadata []Attribute

// Set adds or replaces key, keeping first-insertion order. Values of other
// types are normalised; nil values are ignored.
func (m *Metadata) Set(key string, value any) {
	value, ok := NormalizeValue(value)
	if !ok || key == "" {
		return
	}
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Attribute{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	for _, a := range m {
		if a.Key == key {
			return a.Value, true
		}
	}
	return nil, false
}

// Float64 returns a numeric attribute.
func (m Metadata) Float64(key string) (float64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	copy(out, m)
	return out
}

// NormalizeValue coerces supported Go values to the attribute value set.
func NormalizeValue(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string, float64, int64, bool:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return float64(v), true
		}
		return int64(v), true
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), true
	case fmt.Stringer:
		return v.String(), true
	case error:
		return v.Error(), true
	default:
		return fmt.Sprint(v), true
	}
}

// Channel is one named, non-empty sample sequence.
type Channel struct {
	Name       string
	Samples    []float64
	Attributes Metadata
}

// Outcome is the result of one extraction attempt.
type Outcome struct {
	Kind     Kind
	Channels []Channel
	Metadata Metadata
	// Reason is set for Failure outcomes.
	Reason string
	Err    error
}

// Classify builds a Success from the non-empty channels, or a MetadataOnly
// outcome when none carry samples.
func Classify(channels []Channel, metadata Metadata) Outcome {
	kept := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if len(ch.Samples) == 0 {
			continue
		}
		kept = append(kept, ch)
	}
	if len(kept) == 0 {
		return MetadataOnly(metadata)
	}
	return Outcome{Kind: KindSuccess, Channels: kept, Metadata: metadata}
}

// MetadataOnly builds an outcome that carries metadata and no channels.
func MetadataOnly(metadata Metadata) Outcome {
	if len(metadata) == 0 {
		metadata = Metadata{{Key: "extraction_warning", Value: "no metadata recovered"}}
	}
	return Outcome{Kind: KindMetadataOnly, Metadata: metadata}
}

// Failed builds a Failure outcome. The error is tagged as a decode failure.
func Failed(err error) Outcome {
	if err == nil {
		err = errors.New("extraction failed")
	}
	if !errors.Is(err, errkind.ErrDecode) {
		err = errkind.Wrap(errkind.ErrDecode, "extract", "", "", err)
	}
	return Outcome{Kind: KindFailure, Reason: err.Error(), Err: err}
}

// Failedf builds a Failure outcome from a formatted reason.
func Failedf(format string, args ...any) Outcome {
	return Failed(fmt.Errorf(format, args...))
}

// SampleCount returns the total number of samples across channels.
func (o Outcome) SampleCount() int {
	n := 0
	for _, ch := range o.Channels {
		n += len(ch.Samples)
	}
	return n
}

// Validate checks the variant invariants.
func (o Outcome) Validate() error {
	switch o.Kind {
	case KindSuccess:
		if len(o.Channels) == 0 {
			return errors.New("success outcome without channels")
		}
		for _, ch := range o.Channels {
			if len(ch.Samples) == 0 {
				return fmt.Errorf("success outcome with empty channel %q", ch.Name)
			}
		}
	case KindMetadataOnly:
		if len(o.Channels) != 0 {
			return errors.New("metadata-only outcome with channels")
		}
		if len(o.Metadata) == 0 {
			return errors.New("metadata-only outcome without metadata")
		}
	case KindFailure:
		if o.Reason == "" {
			return errors.New("failure outcome without reason")
		}
	default:
		return fmt.Errorf("unknown outcome kind %q", o.Kind)
	}
	return nil
}
