package translate

import (
	"errors"
	"strings"
)

// ErrEmptySQL is returned when a descriptor carries no SQL text; this is
// the only caller contract violation the forward compiler reports as an
// error. Everything else degrades to warnings.
var ErrEmptySQL = errors.New("query descriptor has empty SQL")

// Translate compiles one legacy query descriptor into Postgres DDL.
// columnTypes optionally maps lowercase column names (bare or
// table-qualified) to types and drives parameter type inference and typed
// table-function returns. The pipeline is pure: the same inputs always
// produce the same result, and re-running it over its own SQL output
// reaches a fixed point immediately.
func Translate(d QueryDescriptor, schema string, columnTypes map[string]string) (Result, error) {
	res := Result{ObjectKind: ObjectNone}
	if strings.TrimSpace(d.SQL) == "" {
		return res, ErrEmptySQL
	}
	if schema == "" {
		schema = "public"
	}

	sql, inline := ExtractParametersClause(d.SQL)
	declared := append(append([]DeclaredParameter{}, d.Parameters...), inline...)

	sql, warnings := ApplyCatalog(sql)
	res.Warnings = append(res.Warnings, warnings...)

	dom := CompileDomainFunctions(sql, schema)
	res.Warnings = append(res.Warnings, dom.Warnings...)

	paramNames := map[string]bool{}
	for _, p := range declared {
		if !isSessionVariable(p.Name) {
			paramNames[ParamName(p.Name)] = true
		}
	}
	for _, ref := range dom.Discovered {
		paramNames[ref.Target] = true
	}

	syn := ApplySyntax(dom.SQL, paramNames)
	res.Warnings = append(res.Warnings, syn.Warnings...)

	sql = Qualify(syn.SQL, schema)

	discovered := append(append([]ParamRef{}, dom.Discovered...), syn.Discovered...)
	res.Parameters = ResolveParameters(sql, declared, discovered, columnTypes)

	synthesizeDDL(d.Name, d.Kind, sql, schema, res.Parameters, columnTypes, &res)
	return res, nil
}
