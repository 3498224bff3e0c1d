package translate

import (
	"fmt"
	"strings"

	"github.com/kentyler/accessclone-sub006/pkg/scan"
)

// customAggregates are the legacy aggregate functions that Postgres lacks;
// their definitions are emitted on demand, guarded by a catalog existence
// check so re-execution is harmless.
var customAggregates = map[string]string{
	"first": "$1",
	"last":  "$2",
}

// synthesizeDDL classifies the rewritten query and appends the final DDL
// statements to res. MAKE-TABLE is checked before the generic SELECT shape
// because both start with the same keyword.
func synthesizeDDL(name string, kind QueryKind, sql, schema string, params []ResolvedParameter, columnTypes map[string]string, res *Result) {
	qname := schema + "." + QuoteIdent(CanonicalName(name))
	res.ObjectName = CanonicalName(name)

	sql = qualifyCustomAggregates(sql, schema, res)

	shape := strings.ToUpper(firstKeyword(sql))
	intoPos := topLevelIntoPos(sql)

	switch {
	case kind == KindMakeTable || (shape == "SELECT" && intoPos >= 0):
		synthesizeMakeTable(qname, sql, schema, params, res)
	case kind == KindCrosstab:
		res.ObjectKind = ObjectNone
		res.warn(fmt.Sprintf("crosstab query %s is not supported; emitting passthrough comment", res.ObjectName))
		res.Statements = append(res.Statements, passthroughComment("crosstab", res.ObjectName, sql))
	case kind == KindUpdate || kind == KindDelete || kind == KindInsert ||
		shape == "UPDATE" || shape == "DELETE" || shape == "INSERT":
		synthesizeMutation(qname, sql, params, res)
	case kind == KindUnion:
		res.ObjectKind = ObjectView
		res.Statements = append(res.Statements, fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s;", qname, sql))
	case shape == "SELECT" && len(params) > 0:
		synthesizeTableFunction(qname, sql, params, columnTypes, res)
	case shape == "SELECT":
		res.ObjectKind = ObjectView
		res.Statements = append(res.Statements, fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s;", qname, sql))
	default:
		res.ObjectKind = ObjectNone
		res.warn(fmt.Sprintf("unsupported query shape %q for %s; emitting passthrough comment", shape, res.ObjectName))
		res.Statements = append(res.Statements, passthroughComment("unsupported", res.ObjectName, sql))
	}
}

// firstKeyword returns the first word of the statement.
func firstKeyword(sql string) string {
	return firstWordAfter(sql, 0)
}

// topLevelIntoPos returns the position of a top-level INTO between the
// SELECT list and FROM, the make-table marker, or -1.
func topLevelIntoPos(sql string) int {
	into := scan.TopLevelKeyword(sql, "INTO", 0)
	if into < 0 {
		return -1
	}
	from := scan.TopLevelKeyword(sql, "FROM", 0)
	if from >= 0 && into > from {
		return -1
	}
	return into
}

// passthroughComment renders an unsupported query as comment lines so the
// batch file stays executable.
func passthroughComment(reason, name, sql string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s query %q was not translated\n", reason, name)
	for _, line := range strings.Split(sql, "\n") {
		b.WriteString("-- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// paramSignature renders the parameter list for a function or procedure.
func paramSignature(params []ResolvedParameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.TargetName+" "+p.TargetType)
	}
	return strings.Join(parts, ", ")
}

// synthesizeMakeTable emits a procedure that drops and recreates the
// target table from the SELECT, returning the affected row count.
func synthesizeMakeTable(qname, sql, schema string, params []ResolvedParameter, res *Result) {
	res.ObjectKind = ObjectProcedure

	into := topLevelIntoPos(sql)
	if into < 0 {
		res.warn("make-table query has no INTO target; emitting passthrough comment")
		res.ObjectKind = ObjectNone
		res.Statements = append(res.Statements, passthroughComment("make-table", res.ObjectName, sql))
		return
	}
	after := into + len("INTO")
	start := after + leadingSpace(sql[after:])
	end := skipQualifiedRef(sql, start)
	target := strings.TrimSpace(sql[start:end])
	if !strings.Contains(target, ".") {
		target = schema + "." + QuoteIdent(CanonicalName(target))
	}
	selectSQL := strings.TrimSpace(sql[:into]) + " " + strings.TrimSpace(sql[end:])

	sig := "INOUT affected_rows bigint DEFAULT 0"
	if ps := paramSignature(params); ps != "" {
		sig = ps + ", " + sig
	}
	res.Statements = append(res.Statements, fmt.Sprintf(
		`CREATE OR REPLACE PROCEDURE %s(%s)
LANGUAGE plpgsql
AS $proc$
BEGIN
	DROP TABLE IF EXISTS %s;
	CREATE TABLE %s AS
	%s;
	GET DIAGNOSTICS affected_rows = ROW_COUNT;
END;
$proc$;`, qname, sig, target, target, selectSQL))
}

// skipQualifiedRef advances past a possibly schema-qualified, possibly
// quoted table reference starting at pos.
func skipQualifiedRef(sql string, pos int) int {
	_, end, _ := readTableToken(sql, pos)
	if end < len(sql) && sql[end] == '.' {
		return skipQualifiedTail(sql, end)
	}
	return end
}

// synthesizeMutation wraps an UPDATE/DELETE/INSERT statement in a
// procedure returning the affected row count.
func synthesizeMutation(qname, sql string, params []ResolvedParameter, res *Result) {
	res.ObjectKind = ObjectProcedure
	sig := "INOUT affected_rows bigint DEFAULT 0"
	if ps := paramSignature(params); ps != "" {
		sig = ps + ", " + sig
	}
	res.Statements = append(res.Statements, fmt.Sprintf(
		`CREATE OR REPLACE PROCEDURE %s(%s)
LANGUAGE plpgsql
AS $proc$
BEGIN
	%s;
	GET DIAGNOSTICS affected_rows = ROW_COUNT;
END;
$proc$;`, qname, sig, strings.TrimRight(strings.TrimSpace(sql), ";")))
}

// synthesizeTableFunction emits a parameterized table function, inferring
// a typed column list from the projection when every item is recognizable,
// otherwise falling back to an untyped row set.
func synthesizeTableFunction(qname, sql string, params []ResolvedParameter, columnTypes map[string]string, res *Result) {
	res.ObjectKind = ObjectFunction

	returns := "SETOF record"
	cols, ok := inferProjectionColumns(sql, columnTypes)
	if ok {
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			parts = append(parts, QuoteIdent(c.name)+" "+c.typ)
		}
		returns = "TABLE (" + strings.Join(parts, ", ") + ")"
	} else {
		res.warn("projection shape not recognized; returning an untyped row set")
	}

	res.Statements = append(res.Statements, fmt.Sprintf(
		`CREATE OR REPLACE FUNCTION %s(%s)
RETURNS %s
LANGUAGE sql
STABLE
AS $func$
%s
$func$;`, qname, paramSignature(params), returns, strings.TrimRight(strings.TrimSpace(sql), ";")))
}

type projColumn struct {
	name string
	typ  string
}

// inferProjectionColumns derives a typed column list from the SELECT list.
// Recognized item shapes: explicit AS alias, qualified dotted tail, bare
// identifier. Any other shape abandons inference.
func inferProjectionColumns(sql string, columnTypes map[string]string) ([]projColumn, bool) {
	sel := scan.TopLevelKeyword(sql, "SELECT", 0)
	from := scan.TopLevelKeyword(sql, "FROM", 0)
	if sel < 0 || from < 0 || from <= sel {
		return nil, false
	}
	list := sql[sel+len("SELECT") : from]
	for _, kw := range []string{"DISTINCT", "ALL"} {
		if strings.EqualFold(firstWordAfter(list, 0), kw) {
			cut := leadingSpace(list) + len(kw)
			list = list[cut:]
		}
	}

	var cols []projColumn
	for _, item := range scan.SplitTopLevelCommas(list) {
		name, ok := projectionName(item)
		if !ok {
			return nil, false
		}
		typ := "text"
		if t, found := columnTypes[strings.ToLower(name)]; found {
			typ = normalizeColumnType(t)
		}
		cols = append(cols, projColumn{name: CanonicalName(name), typ: typ})
	}
	return cols, len(cols) > 0
}

// projectionName recognizes one projection item's output column name.
func projectionName(item string) (string, bool) {
	item = strings.TrimSpace(item)
	if item == "" || item == "*" || strings.HasSuffix(item, ".*") {
		return "", false
	}
	// Explicit alias.
	if as := lastTopLevelAS(item); as >= 0 {
		alias := strings.TrimSpace(item[as+len("AS"):])
		alias = strings.Trim(alias, `"`)
		if alias != "" {
			return alias, true
		}
		return "", false
	}
	// Qualified dotted tail.
	if dot := strings.LastIndexByte(item, '.'); dot >= 0 && scan.Balanced(item) && !strings.ContainsAny(item, "(") {
		tail := strings.Trim(strings.TrimSpace(item[dot+1:]), `"`)
		if tail != "" && isBareIdentifier(tail) {
			return tail, true
		}
		return "", false
	}
	// Bare identifier.
	bare := strings.Trim(item, `"`)
	if isBareIdentifier(bare) {
		return bare, true
	}
	return "", false
}

// lastTopLevelAS finds the last top-level " AS " in a projection item.
func lastTopLevelAS(item string) int {
	pos := -1
	from := 0
	for {
		i := scan.TopLevelKeyword(item, "AS", from)
		if i < 0 {
			return pos
		}
		pos = i
		from = i + 2
	}
}

// qualifyCustomAggregates schema-qualifies FIRST()/LAST() aggregate calls
// and emits their guarded definitions once for this result.
func qualifyCustomAggregates(sql, schema string, res *Result) string {
	emitted := map[string]bool{}
	for _, name := range []string{"first", "last"} {
		from := 0
		for {
			pos, open := findCall(sql, name, from)
			if pos < 0 {
				break
			}
			if pos > 0 && sql[pos-1] == '.' {
				// Already qualified.
				from = open + 1
				continue
			}
			sql = sql[:pos] + schema + "." + strings.ToLower(sql[pos:pos+len(name)]) + sql[pos+len(name):]
			from = open + len(schema) + 1
			if !emitted[name] {
				emitted[name] = true
				res.HelperFunctions = append(res.HelperFunctions, name)
				res.Statements = append(res.Statements, aggregateDefinition(schema, name, customAggregates[name]))
			}
		}
	}
	return sql
}

// aggregateDefinition renders the guarded definition of one custom
// aggregate in the target schema.
func aggregateDefinition(schema, name, pick string) string {
	return fmt.Sprintf(`DO $agg$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_catalog.pg_proc p
		JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = '%s' AND p.proname = '%s'
	) THEN
		CREATE FUNCTION %s.%s_agg(anyelement, anyelement)
		RETURNS anyelement LANGUAGE sql IMMUTABLE AS 'SELECT %s';
		CREATE AGGREGATE %s.%s(anyelement) (SFUNC = %s.%s_agg, STYPE = anyelement);
	END IF;
END;
$agg$;`, schema, name, schema, name, pick, schema, name, schema, name)
}
