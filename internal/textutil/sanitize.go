package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// channelNameReplacer flattens hardware channel paths such as
// "cDAQ9185-1F486B5Mod1/ai0" into single key segments.
var channelNameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	"~", "_",
	" ", "_",
	"\t", "_",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// SanitizeChannelName converts a raw channel path into a store-safe name.
// Path separators, tildes, and whitespace become underscores. Returns
// "channel" for empty input.
func SanitizeChannelName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "channel"
	}
	out := strings.Trim(channelNameReplacer.Replace(raw), "_")
	if out == "" {
		return "channel"
	}
	return out
}
