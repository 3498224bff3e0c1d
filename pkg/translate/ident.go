package translate

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ParamPrefix marks canonical identifiers that denote call-site parameters
// rather than columns.
const ParamPrefix = "p_"

// accentFolder decomposes and strips combining marks, so accented letters
// in legacy object names survive as their base letters.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CanonicalName converts a legacy object name into its canonical Postgres
// identifier: accent-folded, lowercased, whitespace collapsed to a single
// underscore, and every character outside [a-z0-9_] dropped. The same
// function is used everywhere a name crosses a package boundary, so a
// legacy name always maps to the same target identifier.
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "[]\"")
	if folded, _, err := transform.String(accentFolder, name); err == nil {
		name = folded
	}
	name = strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(name))
	pendingSep := false
	for _, r := range name {
		switch {
		case r == ' ' || r == '\t' || r == '-':
			pendingSep = b.Len() > 0
		case r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pendingSep {
				b.WriteByte('_')
				pendingSep = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParamName converts a legacy parameter name into its canonical prefixed
// form, e.g. "OrderID" -> "p_orderid". Already-prefixed names pass through.
func ParamName(name string) string {
	canon := CanonicalName(name)
	if strings.HasPrefix(canon, ParamPrefix) {
		return canon
	}
	return ParamPrefix + canon
}

// IsParamName reports whether a canonical identifier carries the parameter
// prefix.
func IsParamName(name string) bool {
	return strings.HasPrefix(name, ParamPrefix)
}

// QuoteIdent wraps a canonical name in double quotes for use in emitted SQL.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedName renders schema."name" for a legacy object name.
func QualifiedName(schema, name string) string {
	return schema + "." + QuoteIdent(CanonicalName(name))
}
