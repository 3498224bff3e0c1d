package translate

import (
	"fmt"
	"strings"
)

// namedFormats maps the legacy named display formats to to_char patterns.
var namedFormats = map[string]string{
	"general date": "MM/DD/YYYY HH24:MI:SS",
	"long date":    "FMDay, FMMonth DD, YYYY",
	"medium date":  "DD-Mon-YY",
	"short date":   "MM/DD/YYYY",
	"long time":    "HH12:MI:SS AM",
	"medium time":  "HH12:MI AM",
	"short time":   "HH24:MI",
	"general number": "FM999999999.999999",
	"currency":       "FM$999,999,999,990.00",
	"fixed":          "FM990.00",
	"standard":       "FM999,999,990.00",
	"percent":        "FM990.00%",
	"scientific":     "9.99EEEE",
}

// datePatternTokens maps legacy date-format tokens to to_char tokens.
// Longest tokens first so "yyyy" wins over "yy".
var datePatternTokens = []struct{ legacy, target string }{
	{"yyyy", "YYYY"},
	{"yy", "YY"},
	{"mmmm", "FMMonth"},
	{"mmm", "Mon"},
	{"mm", "MM"},
	{"m", "FMMM"},
	{"dddd", "FMDay"},
	{"ddd", "Dy"},
	{"dd", "DD"},
	{"d", "FMDD"},
	{"hh", "HH24"},
	{"h", "FMHH24"},
	{"nn", "MI"},
	{"n", "FMMI"},
	{"ss", "SS"},
	{"s", "FMSS"},
	{"ampm", "AM"},
	{"am/pm", "AM"},
	{"q", "Q"},
	{"ww", "WW"},
	{"w", "D"},
}

// MapFormatPattern converts a legacy Format() pattern argument into a
// Postgres to_char pattern. Named formats are looked up directly; anything
// else is mapped token by token. Patterns that translate to nothing are an
// error so the rewrite engine can record a warning and leave the call.
func MapFormatPattern(arg string) (string, error) {
	pattern := strings.Trim(strings.TrimSpace(arg), `"'`)
	if pattern == "" {
		return "", fmt.Errorf("empty format pattern")
	}
	if named, ok := namedFormats[strings.ToLower(pattern)]; ok {
		return named, nil
	}
	if strings.ContainsAny(pattern, "0#") {
		return mapNumericPattern(pattern), nil
	}
	return mapDatePattern(pattern)
}

// mapNumericPattern converts legacy numeric placeholders: 0 forces a digit,
// # shows one when present. to_char uses 0 and 9 for the same pair.
func mapNumericPattern(pattern string) string {
	mapped := strings.ReplaceAll(pattern, "#", "9")
	return "FM" + mapped
}

// mapDatePattern converts a custom date/time pattern token by token.
func mapDatePattern(pattern string) (string, error) {
	lower := strings.ToLower(pattern)
	var b strings.Builder
	i := 0
	converted := false
outer:
	for i < len(lower) {
		for _, tok := range datePatternTokens {
			if strings.HasPrefix(lower[i:], tok.legacy) {
				b.WriteString(tok.target)
				i += len(tok.legacy)
				converted = true
				continue outer
			}
		}
		ch := lower[i]
		switch ch {
		case '/', '-', ':', '.', ',', ' ':
			b.WriteByte(ch)
		default:
			// Unknown letters would change meaning under to_char.
			return "", fmt.Errorf("unsupported format pattern %q", pattern)
		}
		i++
	}
	if !converted {
		return "", fmt.Errorf("unsupported format pattern %q", pattern)
	}
	return b.String(), nil
}
