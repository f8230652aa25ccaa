package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the NFC-normalized, case-folded form of value with surrounding
// whitespace removed. Two strings that differ only in case or in Unicode
// composition fold to the same key.
func Fold(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(value))
}

// EqualFold reports whether a and b are equal after Fold.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Title renders a display form for labels such as modality tags, keeping
// underscores as word separators ("temp_current" -> "Temp_Current").
func Title(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Split(value, "_")
	caser := cases.Title(language.Und)
	for i, part := range parts {
		parts[i] = caser.String(part)
	}
	return strings.Join(parts, "_")
}
