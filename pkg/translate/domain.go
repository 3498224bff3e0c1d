package translate

import (
	"fmt"
	"strings"

	"github.com/kentyler/accessclone-sub006/pkg/scan"
)

// domainAggregates maps the aggregate domain functions to their SQL
// aggregate. DLookup, DFirst and DLast are handled separately.
var domainAggregates = map[string]string{
	"dcount": "COUNT",
	"dsum":   "SUM",
	"davg":   "AVG",
	"dmin":   "MIN",
	"dmax":   "MAX",
}

// domainFunctionNames is the recognition order for domain function calls.
var domainFunctionNames = []string{
	"dlookup", "dcount", "dsum", "davg", "dmin", "dmax", "dfirst", "dlast",
}

// DomainResult carries the output of CompileDomainFunctions.
type DomainResult struct {
	SQL        string
	Discovered []ParamRef
	Warnings   []string
}

// CompileDomainFunctions replaces every domain-function call (DLookup,
// DCount, DSum, DAvg, DMin, DMax, DFirst, DLast) with a correlated
// subquery against the given schema. It runs before the generic syntax
// pass, while the criteria's bracket tokens are still intact, because the
// criteria grammar inverts the bracket default: a bare bracketed token in
// a criteria names a parameter, not a column.
func CompileDomainFunctions(sql, schema string) DomainResult {
	res := DomainResult{}
	for _, name := range domainFunctionNames {
		from := 0
		for {
			pos, open := findCall(sql, name, from)
			if pos < 0 {
				break
			}
			args, close := scan.ParseArguments(sql, open)
			if close < 0 {
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: unbalanced argument list", name))
				from = open + 1
				continue
			}
			sub, err := compileDomainCall(name, args, schema, &res)
			if err != nil {
				res.Warnings = append(res.Warnings, err.Error())
				from = close + 1
				continue
			}
			sql = sql[:pos] + sub + sql[close+1:]
			from = pos + len(sub)
		}
	}
	res.SQL = sql
	return res
}

// compileDomainCall renders one domain call as a correlated subquery.
func compileDomainCall(name string, args []string, schema string, res *DomainResult) (string, error) {
	if len(args) < 2 || len(args) > 3 {
		return "", fmt.Errorf("%s: expected 2-3 arguments, got %d", name, len(args))
	}
	expr := resolveDomainExpr(args[0])
	table := QualifiedName(schema, strings.Trim(strings.TrimSpace(args[1]), `"'`))

	criteria := ""
	if len(args) == 3 {
		criteria = args[2]
	}
	predicate, refs, err := CompileCriteria(criteria)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	res.Discovered = append(res.Discovered, refs...)

	switch name {
	case "dlookup":
		return fmt.Sprintf("(SELECT %s FROM %s WHERE %s LIMIT 1)", expr, table, predicate), nil
	case "dfirst", "dlast":
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s over %s has no defined row order; result is an arbitrary matching row", name, table))
		return fmt.Sprintf("(SELECT %s FROM %s WHERE %s LIMIT 1)", expr, table, predicate), nil
	case "dsum":
		return fmt.Sprintf("(SELECT COALESCE(SUM(%s), 0) FROM %s WHERE %s)", expr, table, predicate), nil
	default:
		return fmt.Sprintf("(SELECT %s(%s) FROM %s WHERE %s)", domainAggregates[name], expr, table, predicate), nil
	}
}

// resolveDomainExpr renders the target-expression argument. The argument is
// usually a quoted column or expression; bracketed and bare identifiers
// both resolve as columns here.
func resolveDomainExpr(arg string) string {
	expr := strings.TrimSpace(arg)
	if len(expr) >= 2 && (expr[0] == '"' || expr[0] == '\'') && expr[len(expr)-1] == expr[0] {
		inner := expr[1 : len(expr)-1]
		inner = strings.ReplaceAll(inner, string(expr[0])+string(expr[0]), string(expr[0]))
		expr = inner
	}
	if expr == "*" {
		return expr
	}
	if isBareIdentifier(expr) {
		return QuoteIdent(CanonicalName(expr))
	}
	return resolveCriteriaColumns(expr)
}

// isBareIdentifier reports whether s is a single unquoted identifier,
// possibly bracket-quoted.
func isBareIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) && s[i] != ' ' {
			return false
		}
	}
	return true
}

// CompileCriteria compiles a domain criteria expression into a predicate.
// The criteria is a concatenation: quoted segments are literal SQL
// fragments whose bracketed names are columns; unquoted bare bracketed
// tokens are parameters, collected into refs. An empty criteria compiles
// to TRUE.
func CompileCriteria(criteria string) (string, []ParamRef, error) {
	criteria = strings.TrimSpace(criteria)
	if criteria == "" {
		return "TRUE", nil, nil
	}

	var b strings.Builder
	var refs []ParamRef
	for _, seg := range splitConcat(criteria) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if seg[0] == '"' || seg[0] == '\'' {
			lit, err := unquote(seg)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(resolveCriteriaColumns(lit))
			continue
		}
		frag, segRefs := resolveCriteriaParams(seg)
		refs = append(refs, segRefs...)
		b.WriteString(frag)
	}
	pred := strings.TrimSpace(b.String())
	if pred == "" {
		return "TRUE", nil, nil
	}
	return pred, refs, nil
}

// splitConcat splits a criteria on either concatenation operator at top
// level; the domain pass runs both before and after operator translation.
func splitConcat(s string) []string {
	return scan.SplitTopLevel(s, func(t string, i int) int {
		if strings.HasPrefix(t[i:], "||") {
			return 2
		}
		if t[i] == '&' {
			return 1
		}
		return 0
	})
}

// unquote strips one level of quoting, resolving doubled-quote escapes.
func unquote(seg string) (string, error) {
	if len(seg) < 2 || seg[len(seg)-1] != seg[0] {
		return "", fmt.Errorf("unterminated criteria literal %q", seg)
	}
	q := string(seg[0])
	return strings.ReplaceAll(seg[1:len(seg)-1], q+q, q), nil
}

// resolveCriteriaColumns rewrites bracketed names inside a literal criteria
// fragment as quoted column identifiers. This is the column-default
// resolution; its inverse lives in resolveCriteriaParams.
func resolveCriteriaColumns(frag string) string {
	for {
		open := strings.IndexByte(frag, '[')
		if open < 0 {
			return frag
		}
		close := strings.IndexByte(frag[open:], ']')
		if close < 0 {
			return frag
		}
		close += open
		frag = frag[:open] + QuoteIdent(CanonicalName(frag[open+1:close])) + frag[close+1:]
	}
}

// resolveCriteriaParams rewrites bracketed tokens inside an unquoted
// criteria segment as parameter references. This is the parameter-default
// resolution: outside a quoted fragment, a bare [Name] is a call-site
// value, never a column.
func resolveCriteriaParams(seg string) (string, []ParamRef) {
	var refs []ParamRef
	for {
		open := strings.IndexByte(seg, '[')
		if open < 0 {
			return seg, refs
		}
		close := strings.IndexByte(seg[open:], ']')
		if close < 0 {
			return seg, refs
		}
		close += open
		source := seg[open : close+1]
		target := ParamName(seg[open+1 : close])
		refs = append(refs, ParamRef{Source: source, Target: target})
		seg = seg[:open] + target + seg[close+1:]
	}
}
