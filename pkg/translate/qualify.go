package translate

import (
	"strings"
)

// qualifyKeywords are the keywords whose following token is a table
// reference.
var qualifyKeywords = []string{"FROM", "JOIN", "INTO", "UPDATE", "TABLE"}

// tableRefGuard lists keywords that can follow a qualify keyword without
// being a table reference; hitting one means the clause had no table here.
var tableRefGuard = map[string]bool{
	"select": true, "where": true, "group": true, "order": true, "on": true,
	"inner": true, "left": true, "right": true, "full": true, "outer": true,
	"cross": true, "join": true, "set": true, "values": true, "as": true,
	"union": true, "limit": true, "having": true, "distinct": true,
	"insert": true, "update": true, "delete": true, "from": true,
	"into": true, "and": true, "or": true, "not": true,
}

// Qualify rewrites every bare table reference after FROM, JOIN, INTO,
// UPDATE and TABLE into schema."canonical_name" form, preserving an
// existing alias or synthesizing the canonical bare name as one so that
// downstream column references stay resolvable. References already in the
// prefixed form are left alone, which makes the pass idempotent.
func Qualify(sql, schema string) string {
	for _, kw := range qualifyKeywords {
		from := 0
		for {
			pos := anyDepthKeyword(sql, kw, from)
			if pos < 0 {
				break
			}
			end := pos + len(kw)
			if kw == "FROM" && extractFields[strings.ToLower(prevWord(sql, pos))] {
				// FROM of an EXTRACT(field FROM expr), not a table clause.
				from = end
				continue
			}
			// Alias synthesis only makes sense where an alias is legal and
			// useful; an INTO or TABLE target must stay a bare reference.
			aliasable := kw == "FROM" || kw == "JOIN"
			sql, from = qualifyList(sql, schema, end, kw == "FROM", aliasable)
		}
	}
	return sql
}

// extractFields are EXTRACT field names; a FROM directly preceded by one
// belongs to the expression, not to a table clause.
var extractFields = map[string]bool{
	"year": true, "quarter": true, "month": true, "week": true, "day": true,
	"doy": true, "dow": true, "hour": true, "minute": true, "second": true,
	"epoch": true,
}

// prevWord returns the identifier immediately before pos, if any.
func prevWord(sql string, pos int) string {
	i := pos - 1
	for i >= 0 && (sql[i] == ' ' || sql[i] == '\t' || sql[i] == '\n' || sql[i] == '\r') {
		i--
	}
	end := i + 1
	for i >= 0 && isIdentByte(sql[i]) {
		i--
	}
	return sql[i+1 : end]
}

// qualifyList qualifies the table reference at pos and, when commas is
// true, every comma-joined reference after it. Returns the rewritten SQL
// and the position to resume scanning from.
func qualifyList(sql, schema string, pos int, commas, aliasable bool) (string, int) {
	for {
		var next int
		sql, next = qualifyRef(sql, schema, pos, aliasable)
		if !commas {
			return sql, next
		}
		after := next + leadingSpace(sql[next:])
		if after >= len(sql) || sql[after] != ',' {
			return sql, next
		}
		pos = after + 1
	}
}

// qualifyRef qualifies a single table reference at pos, returning the
// rewritten SQL and the index just past the reference and its alias.
func qualifyRef(sql, schema string, pos int, aliasable bool) (string, int) {
	start := pos + leadingSpace(sql[pos:])
	if start >= len(sql) || sql[start] == '(' {
		return sql, start
	}

	name, end, quoted := readTableToken(sql, start)
	if name == "" {
		return sql, start
	}
	if !quoted && tableRefGuard[strings.ToLower(name)] {
		return sql, start
	}
	// Already prefixed: the token is the schema itself followed by a dot,
	// or a dotted reference to some other schema.
	if end < len(sql) && sql[end] == '.' {
		past := skipQualifiedTail(sql, end)
		return sql, skipAlias(sql, past)
	}

	canonical := CanonicalName(name)
	replacement := schema + "." + QuoteIdent(canonical)

	aliasEnd, hasAlias := aliasAfter(sql, end)
	if !hasAlias {
		if aliasable {
			replacement += " " + canonical
		}
		sql = sql[:start] + replacement + sql[end:]
		return sql, start + len(replacement)
	}
	sql = sql[:start] + replacement + sql[end:]
	return sql, start + len(replacement) + (aliasEnd - end)
}

// readTableToken reads a bare or quoted table name at pos.
func readTableToken(sql string, pos int) (string, int, bool) {
	if sql[pos] == '"' {
		i := pos + 1
		for i < len(sql) && sql[i] != '"' {
			i++
		}
		if i >= len(sql) {
			return "", pos, false
		}
		return sql[pos+1 : i], i + 1, true
	}
	end := pos
	for end < len(sql) && isIdentByte(sql[end]) {
		end++
	}
	if end == pos {
		return "", pos, false
	}
	return sql[pos:end], end, false
}

// skipQualifiedTail advances past .name or ."name" starting at the dot.
func skipQualifiedTail(sql string, dot int) int {
	i := dot + 1
	if i < len(sql) && sql[i] == '"' {
		j := i + 1
		for j < len(sql) && sql[j] != '"' {
			j++
		}
		if j < len(sql) {
			return j + 1
		}
		return len(sql)
	}
	for i < len(sql) && isIdentByte(sql[i]) {
		i++
	}
	return i
}

// aliasAfter reports whether an alias follows the table name at end, and
// where that alias (including an optional AS) finishes.
func aliasAfter(sql string, end int) (int, bool) {
	i := end + leadingSpace(sql[end:])
	if i >= len(sql) {
		return end, false
	}
	word, wend, _ := readTableToken(sql, i)
	if word == "" {
		return end, false
	}
	if strings.EqualFold(word, "AS") {
		j := wend + leadingSpace(sql[wend:])
		alias, aend, _ := readTableToken(sql, j)
		if alias == "" {
			return end, false
		}
		return aend, true
	}
	if tableRefGuard[strings.ToLower(word)] {
		return end, false
	}
	return wend, true
}

// skipAlias advances past an optional alias following an already-qualified
// reference.
func skipAlias(sql string, pos int) int {
	if end, ok := aliasAfter(sql, pos); ok {
		return end
	}
	return pos
}
