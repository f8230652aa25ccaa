package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RenderJSON writes v as indented JSON.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderYAML writes v as YAML.
func RenderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Render writes the run summary in the requested format.
func Render(w io.Writer, format string, s Summary, colorize bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return RenderText(w, s, colorize)
	case FormatJSON:
		return RenderJSON(w, s)
	case FormatYAML:
		return RenderYAML(w, s)
	default:
		return fmt.Errorf("unknown report format %q (want text, json, or yaml)", format)
	}
}
