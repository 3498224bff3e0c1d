package translate

import "strings"

// pgTypes is the set of target scalar types a column-type map may already
// carry; anything else is assumed to be a legacy type name.
var pgTypes = map[string]bool{
	"boolean": true, "smallint": true, "integer": true, "bigint": true,
	"real": true, "double precision": true, "numeric(19,4)": true,
	"numeric": true, "timestamp": true, "date": true, "time": true,
	"text": true, "uuid": true, "bytea": true,
}

// normalizeColumnType accepts either a target type or a legacy type name.
func normalizeColumnType(t string) string {
	lower := strings.ToLower(strings.TrimSpace(t))
	if pgTypes[lower] {
		return lower
	}
	return MapLegacyType(lower)
}

// ResolveParameters produces the final deduplicated parameter list for a
// query. Declared parameters that are really session-variable references
// are dropped here; the structural discovery pass supplies them instead.
// Each parameter's type comes from its declared legacy type when known,
// otherwise from an equality comparison against a known column in the
// rewritten SQL, otherwise text.
func ResolveParameters(sql string, declared []DeclaredParameter, discovered []ParamRef, columnTypes map[string]string) []ResolvedParameter {
	var out []ResolvedParameter
	index := map[string]int{}

	add := func(source, target, typ string) {
		if i, ok := index[target]; ok {
			if out[i].TargetType == "text" && typ != "text" {
				out[i].TargetType = typ
			}
			return
		}
		index[target] = len(out)
		out = append(out, ResolvedParameter{SourceName: source, TargetName: target, TargetType: typ})
	}

	for _, d := range declared {
		if isSessionVariable(d.Name) {
			continue
		}
		target := ParamName(d.Name)
		typ := "text"
		if strings.TrimSpace(d.LegacyType) != "" {
			typ = MapLegacyType(d.LegacyType)
		} else {
			typ = inferParamType(sql, target, columnTypes)
		}
		add(d.Name, target, typ)
	}
	for _, ref := range discovered {
		add(ref.Source, ref.Target, inferParamType(sql, ref.Target, columnTypes))
	}
	return out
}

// isSessionVariable reports whether a declared name is a form or session
// variable reference rather than a real query parameter.
func isSessionVariable(name string) bool {
	lower := strings.ToLower(strings.Trim(name, "[] "))
	return strings.Contains(lower, "!") ||
		strings.HasPrefix(lower, "forms") || strings.HasPrefix(lower, "tempvars")
}

// comparisonOps are the operators accepted by the type-inference heuristic.
var comparisonOps = []string{"<=", ">=", "<>", "=", "<", ">"}

// inferParamType scans the SQL for a comparison between the parameter and a
// known column and adopts that column's type; text when nothing matches.
func inferParamType(sql, param string, columnTypes map[string]string) string {
	if len(columnTypes) == 0 {
		return "text"
	}
	from := 0
	for {
		pos := anyDepthKeyword(sql, param, from)
		if pos < 0 {
			return "text"
		}
		if col, qualifier := comparedColumn(sql, pos, pos+len(param)); col != "" {
			if qualifier != "" {
				if t, ok := columnTypes[qualifier+"."+col]; ok {
					return normalizeColumnType(t)
				}
			}
			if t, ok := columnTypes[col]; ok {
				return normalizeColumnType(t)
			}
		}
		from = pos + len(param)
	}
}

// comparedColumn finds the column identifier on the other side of a
// comparison operator adjacent to [start,end). Returns the lowercase
// column name and its qualifier when present.
func comparedColumn(sql string, start, end int) (string, string) {
	// column OP param
	i := start - 1
	for i >= 0 && sql[i] == ' ' {
		i--
	}
	if op := opEndingAt(sql, i); op > 0 {
		j := i - op
		for j >= 0 && sql[j] == ' ' {
			j--
		}
		if col, q := identEndingAt(sql, j); col != "" {
			return col, q
		}
	}
	// param OP column
	i = end + leadingSpace(sql[end:])
	if op := opStartingAt(sql, i); op > 0 {
		j := i + op
		j += leadingSpace(sql[j:])
		if col, q := identStartingAt(sql, j); col != "" {
			return col, q
		}
	}
	return "", ""
}

func opEndingAt(sql string, i int) int {
	for _, op := range comparisonOps {
		if i-len(op)+1 >= 0 && sql[i-len(op)+1:i+1] == op {
			return len(op)
		}
	}
	return 0
}

func opStartingAt(sql string, i int) int {
	for _, op := range comparisonOps {
		if i+len(op) <= len(sql) && sql[i:i+len(op)] == op {
			return len(op)
		}
	}
	return 0
}

// identEndingAt reads a column reference whose last character is at i,
// in either "name" or alias."name" or bare form.
func identEndingAt(sql string, i int) (string, string) {
	if i < 0 {
		return "", ""
	}
	var name string
	var nameStart int
	if sql[i] == '"' {
		open := strings.LastIndexByte(sql[:i], '"')
		if open < 0 {
			return "", ""
		}
		name = sql[open+1 : i]
		nameStart = open
	} else if isIdentByte(sql[i]) {
		j := i
		for j >= 0 && isIdentByte(sql[j]) {
			j--
		}
		name = sql[j+1 : i+1]
		nameStart = j + 1
	} else {
		return "", ""
	}
	qualifier := ""
	if nameStart > 0 && sql[nameStart-1] == '.' {
		q, _ := identEndingAt(sql, nameStart-2)
		qualifier = q
	}
	return strings.ToLower(name), qualifier
}

// identStartingAt reads a column reference beginning at i.
func identStartingAt(sql string, i int) (string, string) {
	if i >= len(sql) {
		return "", ""
	}
	name, end, ok := readIdentAt(sql, i)
	if !ok {
		return "", ""
	}
	if end < len(sql) && sql[end] == '.' {
		tail, _, ok2 := readIdentAt(sql, end+1)
		if ok2 {
			return strings.ToLower(tail), strings.ToLower(name)
		}
	}
	return strings.ToLower(name), ""
}

func readIdentAt(sql string, i int) (string, int, bool) {
	if i >= len(sql) {
		return "", i, false
	}
	if sql[i] == '"' {
		j := i + 1
		for j < len(sql) && sql[j] != '"' {
			j++
		}
		if j >= len(sql) {
			return "", i, false
		}
		return sql[i+1 : j], j + 1, true
	}
	j := i
	for j < len(sql) && isIdentByte(sql[j]) {
		j++
	}
	if j == i {
		return "", i, false
	}
	return sql[i:j], j, true
}
