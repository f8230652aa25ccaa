package extract

import (
	"context"
	"fmt"
	"strings"

	"harvest/internal/discovery"
	"harvest/internal/matfile"
)

// MATExtractor reads the acquisition export layout from MAT-files: a 1x1
// struct with x_values (timing) and y_values.values (an N x M sample matrix).
type MATExtractor struct {
	ContainerKeys []string
	// Open decodes a file; defaults to matfile.Open.
	Open func(path string) (*matfile.File, error)
}

// NewMATExtractor returns an extractor trying keys in order.
func NewMATExtractor(keys []string) *MATExtractor {
	if len(keys) == 0 {
		keys = []string{"Signal", "signal"}
	}
	return &MATExtractor{ContainerKeys: keys, Open: matfile.Open}
}

// Extract implements Extractor.
func (m *MATExtractor) Extract(_ context.Context, candidate discovery.Candidate) Outcome {
	open := m.Open
	if open == nil {
		open = matfile.Open
	}
	file, err := open(candidate.Path)
	if err != nil {
		return Failed(fmt.Errorf("open mat: %w", err))
	}

	var container *matfile.Array
	var key string
	for _, k := range m.ContainerKeys {
		if v, ok := file.Variable(k); ok {
			container, key = v, k
			break
		}
	}
	if container == nil {
		return Failedf("no container variable (tried %s; file holds %s)",
			strings.Join(m.ContainerKeys, ", "), describeNames(file.Names()))
	}
	if !container.IsScalarStruct() {
		return Failedf("container %q is a %s %v, want a 1x1 struct", key, container.Class, container.Dims)
	}
	xValues, hasX := container.Field("x_values")
	yValues, hasY := container.Field("y_values")
	if !hasX || !hasY {
		return Failedf("container %q lacks x_values or y_values (fields: %s)", key, strings.Join(container.FieldNames, ", "))
	}

	var md Metadata
	md.Set("container", key)
	declared := -1
	if xValues.IsScalarStruct() {
		if v, ok := scalarField(xValues, "start_value"); ok {
			md.Set("start_value", v)
		}
		increment, hasIncrement := scalarField(xValues, "increment")
		if hasIncrement {
			md.Set("increment", increment)
			if increment > 0 {
				md.Set("sample_rate", 1/increment)
			}
		}
		if v, ok := scalarField(xValues, "number_of_values"); ok {
			md.Set("number_of_values", int64(v))
			declared = int(v)
		}
		collectScalars(&md, "x_values.", xValues, "start_value", "increment", "number_of_values")
	} else {
		md.Set("extraction_warning", "x_values is not a struct")
	}
	collectScalars(&md, "", container, "x_values", "y_values")
	md.Set("sensor_type", candidate.Modality)

	if !yValues.IsScalarStruct() {
		md.Set("extraction_warning", "y_values is not a struct")
		return MetadataOnly(md)
	}
	collectScalars(&md, "y_values.", yValues, "values")
	values, ok := yValues.Field("values")
	if !ok || !values.IsNumeric() {
		md.Set("extraction_warning", "y_values.values is missing or not numeric")
		return MetadataOnly(md)
	}

	columns := values.Columns()
	channels := make([]Channel, 0, len(columns))
	total := 0
	for i, col := range columns {
		name := candidate.Modality + "_Signal"
		if len(columns) > 1 {
			name = fmt.Sprintf("%s_Signal_Ch%d", candidate.Modality, i+1)
		}
		var attrs Metadata
		attrs.Set("source_column", int64(i+1))
		if rate, ok := md.Float64("sample_rate"); ok {
			attrs.Set("sample_rate", rate)
		}
		channels = append(channels, Channel{Name: name, Samples: col, Attributes: attrs})
		if len(col) > total {
			total = len(col)
		}
	}
	if declared >= 0 && total > 0 && declared != total {
		md.Set("sample_count_mismatch", fmt.Sprintf("number_of_values=%d, samples=%d", declared, total))
	}

	out := Classify(channels, md)
	if out.Kind == KindMetadataOnly {
		out.Metadata.Set("extraction_warning", "every channel is empty")
	}
	return out
}

func scalarField(s *matfile.Array, name string) (float64, bool) {
	f, ok := s.Field(name)
	if !ok {
		return 0, false
	}
	return f.Scalar()
}

// collectScalars copies scalar numeric and char fields of a struct into md.
func collectScalars(md *Metadata, prefix string, s *matfile.Array, skip ...string) {
	if !s.IsScalarStruct() {
		return
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, name := range skip {
		skipped[name] = struct{}{}
	}
	for _, name := range s.FieldNames {
		if _, ok := skipped[name]; ok {
			continue
		}
		f, ok := s.Field(name)
		if !ok {
			continue
		}
		switch {
		case f.Class == matfile.ClassChar:
			md.Set(prefix+name, f.Text)
		case f.IsNumeric():
			if v, ok := f.Scalar(); ok {
				md.Set(prefix+name, v)
			}
		}
	}
}

func describeNames(names []string) string {
	if len(names) == 0 {
		return "no variables"
	}
	return strings.Join(names, ", ")
}
