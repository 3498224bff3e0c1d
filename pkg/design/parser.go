package design

import (
	"strings"

	"github.com/kentyler/accessclone-sub006/pkg/scan"
)

// reservedTail lists keywords that can never be an implicit projection
// alias.
var reservedTail = map[string]bool{
	"from": true, "where": true, "group": true, "order": true, "by": true,
	"and": true, "or": true, "not": true, "as": true, "on": true,
	"asc": true, "desc": true, "end": true, "case": true, "when": true,
	"then": true, "else": true, "null": true, "true": true, "false": true,
	"distinct": true, "limit": true, "is": true, "in": true, "like": true,
	"between": true,
}

// Parse recovers a structural model from a single SELECT statement. It
// fails closed: a leading WITH, a top-level set operation, a non-SELECT
// statement, or any internal panic returns a model with Parseable false
// and the input preserved verbatim. A projection item the parser cannot
// classify stays in the model as a raw expression field; it never fails
// the parse.
func Parse(sql string) (m *Model) {
	m = &Model{SQL: sql}
	defer func() {
		if r := recover(); r != nil {
			*m = Model{SQL: sql}
		}
	}()

	body := strings.TrimRight(strings.TrimSpace(sql), ";")
	first := strings.ToUpper(firstWord(body))
	if first != "SELECT" {
		return m
	}
	for _, setOp := range []string{"UNION", "INTERSECT", "EXCEPT"} {
		if scan.TopLevelKeyword(body, setOp, 0) >= 0 {
			return m
		}
	}

	sel := scan.TopLevelKeyword(body, "SELECT", 0)
	from := scan.TopLevelKeyword(body, "FROM", 0)
	if sel != 0 || from < 0 {
		return m
	}
	where := scan.TopLevelKeyword(body, "WHERE", from)
	groupBy := scan.TopLevelKeyword(body, "GROUP BY", from)
	orderBy := scan.TopLevelKeyword(body, "ORDER BY", from)
	limit := scan.TopLevelKeyword(body, "LIMIT", from)

	fromEnd := len(body)
	for _, p := range []int{where, groupBy, orderBy, limit} {
		if p >= 0 && p < fromEnd {
			fromEnd = p
		}
	}

	aliases := map[string]string{}
	m.Tables, m.Joins = parseFromClause(body[from+len("FROM"):fromEnd], aliases)
	m.Fields = parseProjection(body[sel+len("SELECT"):from], aliases)

	if where >= 0 {
		end := len(body)
		for _, p := range []int{groupBy, orderBy, limit} {
			if p > where && p < end {
				end = p
			}
		}
		m.Where = strings.TrimSpace(body[where+len("WHERE") : end])
	}
	if groupBy >= 0 {
		end := len(body)
		for _, p := range []int{orderBy, limit} {
			if p > groupBy && p < end {
				end = p
			}
		}
		start := scan.KeywordEnd(body, "GROUP BY", groupBy)
		for _, item := range scan.SplitTopLevelCommas(body[start:end]) {
			if item != "" {
				m.GroupBy = append(m.GroupBy, item)
			}
		}
	}
	if orderBy >= 0 {
		end := len(body)
		if limit > orderBy {
			end = limit
		}
		start := scan.KeywordEnd(body, "ORDER BY", orderBy)
		m.OrderBy = parseOrderBy(body[start:end])
		annotateSortDirections(m)
	}

	m.Parseable = true
	return m
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && isIdentByte(s[end]) {
		end++
	}
	return s[:end]
}

func isIdentByte(ch byte) bool {
	return ch == '_' || ch >= '0' && ch <= '9' ||
		ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

// parseFromClause splits the FROM text at every top-level JOIN keyword.
// The segment before the first join is the base (possibly comma-separated)
// table list; each subsequent segment is "table ON condition".
func parseFromClause(text string, aliases map[string]string) ([]Table, []Join) {
	type joinSeg struct {
		kind       string
		start, end int // segment boundaries (text following the keyword)
	}
	var segs []joinSeg
	firstJoin := len(text)

	pos := 0
	for {
		at := scan.TopLevelKeyword(text, "JOIN", pos)
		if at < 0 {
			break
		}
		kind, start := joinKindBefore(text, at)
		if len(segs) > 0 {
			segs[len(segs)-1].end = start
		} else {
			firstJoin = start
		}
		segs = append(segs, joinSeg{kind: kind, start: at + len("JOIN"), end: len(text)})
		pos = at + len("JOIN")
	}

	var tables []Table
	for _, base := range scan.SplitTopLevelCommas(text[:firstJoin]) {
		if t, ok := parseTableRef(base); ok {
			tables = append(tables, t)
			recordAlias(aliases, t)
		}
	}

	var joins []Join
	for _, seg := range segs {
		body := text[seg.start:seg.end]
		on := scan.TopLevelKeyword(body, "ON", 0)
		tablePart := body
		condPart := ""
		if on >= 0 {
			tablePart = body[:on]
			condPart = body[on+len("ON"):]
		}
		t, ok := parseTableRef(tablePart)
		if !ok {
			continue
		}
		tables = append(tables, t)
		recordAlias(aliases, t)
		if j, ok := parseJoinCondition(seg.kind, condPart, aliases); ok {
			joins = append(joins, j)
		}
	}
	return tables, joins
}

// joinKindBefore reads the join-type words preceding a JOIN keyword and
// returns the kind tag plus the position where the whole join phrase
// starts.
func joinKindBefore(text string, at int) (string, int) {
	start := at
	word, wordStart := wordBefore(text, at)
	if strings.EqualFold(word, "OUTER") {
		start = wordStart
		word, wordStart = wordBefore(text, wordStart)
	}
	switch strings.ToUpper(word) {
	case "INNER":
		return "inner", wordStart
	case "LEFT":
		return "left", wordStart
	case "RIGHT":
		return "right", wordStart
	case "FULL":
		return "full", wordStart
	case "CROSS":
		return "cross", wordStart
	}
	return "inner", start
}

// wordBefore returns the identifier immediately preceding pos and its
// start index.
func wordBefore(text string, pos int) (string, int) {
	i := pos - 1
	for i >= 0 && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r') {
		i--
	}
	end := i + 1
	for i >= 0 && isIdentByte(text[i]) {
		i--
	}
	return text[i+1 : end], i + 1
}

// parseTableRef parses "[schema.]name [[AS] alias]". Parenthesized items
// (subqueries) are unsupported and simply dropped from the model.
func parseTableRef(text string) (Table, bool) {
	text = strings.TrimSpace(text)
	if text == "" || text[0] == '(' {
		return Table{}, false
	}
	name, rest, ok := readIdent(text)
	if !ok {
		return Table{}, false
	}
	t := Table{Name: name}
	if strings.HasPrefix(rest, ".") {
		tail, rest2, ok2 := readIdent(rest[1:])
		if !ok2 {
			return Table{}, false
		}
		t.Schema = t.Name
		t.Name = tail
		rest = rest2
	}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		if w := firstWord(rest); strings.EqualFold(w, "AS") {
			rest = strings.TrimSpace(rest[len(w):])
		}
		alias, _, ok2 := readIdent(rest)
		if ok2 && !reservedTail[strings.ToLower(alias)] {
			t.Alias = alias
		}
	}
	return t, true
}

// readIdent reads a quoted or bare identifier prefix, returning the
// identifier and the remaining text.
func readIdent(text string) (string, string, bool) {
	text = strings.TrimLeft(text, " \t\r\n")
	if text == "" {
		return "", "", false
	}
	if text[0] == '"' {
		i := strings.IndexByte(text[1:], '"')
		if i < 0 {
			return "", "", false
		}
		return text[1 : i+1], text[i+2:], true
	}
	end := 0
	for end < len(text) && isIdentByte(text[end]) {
		end++
	}
	if end == 0 {
		return "", "", false
	}
	return text[:end], text[end:], true
}

func recordAlias(aliases map[string]string, t Table) {
	canonical := strings.ToLower(t.Name)
	aliases[canonical] = canonical
	if t.Alias != "" {
		aliases[strings.ToLower(t.Alias)] = canonical
	}
}

// parseJoinCondition reduces an ON condition to its first equality pair,
// resolving each side's qualifier through the alias map. Further AND
// conjuncts and non-equality predicates are ignored.
func parseJoinCondition(kind, cond string, aliases map[string]string) (Join, bool) {
	for _, conjunct := range scan.SplitTopLevelKeyword(cond, "AND") {
		sides := scan.SplitTopLevelOn(conjunct, "=")
		if len(sides) != 2 {
			continue
		}
		lt, lc, lok := parseColumnRef(sides[0], aliases)
		rt, rc, rok := parseColumnRef(sides[1], aliases)
		if !lok || !rok {
			continue
		}
		return Join{Type: kind, LeftTable: lt, LeftColumn: lc, RightTable: rt, RightColumn: rc}, true
	}
	return Join{}, false
}

// parseColumnRef parses "qualifier.column" or "column", resolving the
// qualifier through the alias map.
func parseColumnRef(text string, aliases map[string]string) (string, string, bool) {
	text = strings.TrimSpace(text)
	name, rest, ok := readIdent(text)
	if !ok {
		return "", "", false
	}
	if strings.HasPrefix(rest, ".") {
		col, rest2, ok2 := readIdent(rest[1:])
		if !ok2 || strings.TrimSpace(rest2) != "" {
			return "", "", false
		}
		table := aliases[strings.ToLower(name)]
		if table == "" {
			table = strings.ToLower(name)
		}
		return table, strings.ToLower(col), true
	}
	if strings.TrimSpace(rest) != "" {
		return "", "", false
	}
	return "", strings.ToLower(name), true
}

// parseProjection parses the SELECT list. An item the parser cannot
// classify is kept as a raw expression field with no table or alias.
func parseProjection(text string, aliases map[string]string) []Field {
	text = strings.TrimSpace(text)
	if w := firstWord(text); strings.EqualFold(w, "DISTINCT") || strings.EqualFold(w, "ALL") {
		text = strings.TrimSpace(text[len(w):])
	}
	var fields []Field
	for _, item := range scan.SplitTopLevelCommas(text) {
		if item == "" {
			continue
		}
		fields = append(fields, parseProjectionItem(item, aliases))
	}
	return fields
}

// parseProjectionItem classifies one SELECT-list item: explicit AS alias,
// implicit trailing alias, or plain expression.
func parseProjectionItem(item string, aliases map[string]string) Field {
	f := Field{Expression: item}

	if as := lastTopLevelAS(item); as >= 0 {
		f.Expression = strings.TrimSpace(item[:as])
		f.Alias = strings.Trim(strings.TrimSpace(item[as+len("AS"):]), `"`)
	} else if expr, alias, ok := implicitAlias(item); ok {
		f.Expression = expr
		f.Alias = alias
	}

	f.Table = owningTable(f.Expression, aliases)
	return f
}

func lastTopLevelAS(item string) int {
	pos := -1
	from := 0
	for {
		i := scan.TopLevelKeyword(item, "AS", from)
		if i < 0 {
			return pos
		}
		pos = i
		from = i + len("AS")
	}
}

// implicitAlias recognizes "expr alias" where the expression's parens are
// balanced and the trailing token is not a reserved word.
func implicitAlias(item string) (string, string, bool) {
	trimmed := strings.TrimRight(item, " \t\r\n")
	end := len(trimmed)
	start := end
	if end > 0 && trimmed[end-1] == '"' {
		open := strings.LastIndexByte(trimmed[:end-1], '"')
		if open < 0 {
			return "", "", false
		}
		start = open
	} else {
		for start > 0 && isIdentByte(trimmed[start-1]) {
			start--
		}
	}
	if start == end || start == 0 {
		return "", "", false
	}
	alias := strings.Trim(trimmed[start:end], `"`)
	expr := strings.TrimSpace(trimmed[:start])
	if expr == "" || reservedTail[strings.ToLower(alias)] {
		return "", "", false
	}
	// Only a whitespace boundary separates an implicit alias.
	if !strings.ContainsAny(trimmed[len(expr):start], " \t\r\n") {
		return "", "", false
	}
	if !scan.Balanced(expr) {
		return "", "", false
	}
	// A dotted tail is a qualified reference, not an alias.
	if strings.HasSuffix(expr, ".") {
		return "", "", false
	}
	return expr, alias, true
}

// owningTable resolves a qualified dotted expression to its table through
// the alias map.
func owningTable(expr string, aliases map[string]string) string {
	name, rest, ok := readIdent(expr)
	if !ok || !strings.HasPrefix(rest, ".") {
		return ""
	}
	_, rest2, ok2 := readIdent(rest[1:])
	if !ok2 || strings.TrimSpace(rest2) != "" {
		return ""
	}
	return aliases[strings.ToLower(name)]
}

// parseOrderBy splits the ORDER BY list and extracts trailing directions.
func parseOrderBy(text string) []OrderItem {
	var items []OrderItem
	for _, item := range scan.SplitTopLevelCommas(text) {
		if item == "" {
			continue
		}
		dir := SortAscending
		upper := strings.ToUpper(item)
		switch {
		case strings.HasSuffix(upper, " DESC"):
			dir = SortDescending
			item = strings.TrimSpace(item[:len(item)-len(" DESC")])
		case strings.HasSuffix(upper, " ASC"):
			item = strings.TrimSpace(item[:len(item)-len(" ASC")])
		}
		items = append(items, OrderItem{Expression: item, Direction: dir})
	}
	return items
}

// annotateSortDirections back-annotates projection fields from the ORDER
// BY list: by alias, by exact expression, then by unqualified column tail.
func annotateSortDirections(m *Model) {
	for _, o := range m.OrderBy {
		key := strings.ToLower(strings.Trim(o.Expression, `"`))
		for i := range m.Fields {
			f := &m.Fields[i]
			switch {
			case f.Alias != "" && strings.EqualFold(f.Alias, key):
			case strings.EqualFold(f.Expression, o.Expression):
			case strings.EqualFold(columnTail(f.Expression), key):
			default:
				continue
			}
			f.Sort = o.Direction
			break
		}
	}
}

// columnTail returns the unqualified column name of a dotted reference.
func columnTail(expr string) string {
	if dot := strings.LastIndexByte(expr, '.'); dot >= 0 {
		return strings.Trim(expr[dot+1:], `"`)
	}
	return strings.Trim(expr, `"`)
}
