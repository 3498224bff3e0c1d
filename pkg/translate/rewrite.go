package translate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kentyler/accessclone-sub006/pkg/scan"
)

// maxCatalogPasses bounds the catalog fix-point loop; deeply nested legacy
// calls converge well inside this cap.
const maxCatalogPasses = 20

// catalogNames is the deterministic application order for catalog entries.
var catalogNames = func() []string {
	names := make([]string, 0, len(Catalog))
	for name := range Catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

// ApplyCatalog rewrites every legacy function call the catalog knows about,
// repeating until the text stops changing or the pass cap is reached.
// Failed rule applications are reported as warnings and the call is left
// in place.
func ApplyCatalog(sql string) (string, []string) {
	var warnings []string
	for pass := 0; pass < maxCatalogPasses; pass++ {
		changed := false
		for _, name := range catalogNames {
			next, w, c := rewriteCalls(sql, name, Catalog[name])
			warnings = append(warnings, w...)
			sql = next
			changed = changed || c
		}
		if !changed {
			break
		}
	}
	return sql, warnings
}

// rewriteCalls rewrites every call to one catalog entry in a single
// left-to-right sweep. A transform whose output equals its input (several
// names map to themselves) is skipped past rather than re-applied.
func rewriteCalls(sql, name string, tf Transform) (string, []string, bool) {
	var warnings []string
	changed := false
	from := 0
	for {
		pos, open := findCall(sql, name, from)
		if pos < 0 {
			break
		}
		args, close := scan.ParseArguments(sql, open)
		if close < 0 {
			// Unbalanced call, nothing downstream can do better.
			warnings = append(warnings, fmt.Sprintf("%s: unbalanced argument list", name))
			from = open + 1
			continue
		}
		original := sql[pos : close+1]
		replacement, err := tf(args)
		if err != nil {
			warnings = append(warnings, err.Error())
			from = close + 1
			continue
		}
		if replacement == original {
			from = close + 1
			continue
		}
		sql = sql[:pos] + replacement + sql[close+1:]
		from = pos + len(replacement)
		changed = true
	}
	return sql, warnings, changed
}

// findCall locates the next word-bounded, unquoted occurrence of name that
// is directly followed by an argument list. Returns the name position and
// the opening parenthesis position.
func findCall(sql, name string, from int) (int, int) {
	c := scan.NewCursor(sql)
	for c.Pos < from && c.Pos < len(sql) {
		c.Next()
	}
	for c.Pos < len(sql) {
		if !c.InString && hasWord(sql, c.Pos, name) {
			open := c.Pos + len(name)
			for open < len(sql) && sql[open] == ' ' {
				open++
			}
			if open < len(sql) && sql[open] == '(' {
				return c.Pos, open
			}
		}
		c.Next()
	}
	return -1, -1
}

// hasWord reports a case-insensitive word-bounded match of word at pos.
func hasWord(s string, pos int, word string) bool {
	if pos+len(word) > len(s) || !strings.EqualFold(s[pos:pos+len(word)], word) {
		return false
	}
	if pos > 0 && isIdentByte(s[pos-1]) {
		return false
	}
	end := pos + len(word)
	return end >= len(s) || !isIdentByte(s[end])
}

func isIdentByte(ch byte) bool {
	return ch == '_' || ch >= '0' && ch <= '9' ||
		ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

// ParamRef is a parameter reference discovered structurally during
// rewriting (a session-variable chain or a bare bracket in a domain
// criteria), already mapped to its canonical parameter name.
type ParamRef struct {
	Source string // original reference text, e.g. [TempVars]![UserID]
	Target string // canonical parameter name, e.g. p_userid
}

// SyntaxResult carries the output of ApplySyntax.
type SyntaxResult struct {
	SQL        string
	Discovered []ParamRef
	Warnings   []string
}

// ApplySyntax runs the structural rewrite rules in order, each to its own
// fixed point. paramNames holds the canonical prefixed names of every
// parameter known so far; bracket tokens resolving to one of them become
// bare parameter references instead of quoted columns. A rule failure is
// recorded as a warning and the pass continues with the best partial text.
func ApplySyntax(sql string, paramNames map[string]bool) SyntaxResult {
	p := &syntaxPass{params: paramNames}
	if p.params == nil {
		p.params = map[string]bool{}
	}

	rules := []struct {
		name string
		fn   func(string) string
	}{
		{"reserved words", p.rewriteReserved},
		{"top clause", p.rewriteTop},
		{"boolean literals", p.rewriteBooleans},
		{"date literals", p.rewriteDateLiterals},
		{"like wildcards", p.rewriteLikePatterns},
		{"bang references", p.rewriteBangRefs},
		{"bracket identifiers", p.rewriteBrackets},
		{"concatenation", p.rewriteConcat},
	}
	for _, rule := range rules {
		sql = p.run(rule.name, rule.fn, sql)
	}
	return SyntaxResult{SQL: sql, Discovered: p.discovered, Warnings: p.warnings}
}

type syntaxPass struct {
	params     map[string]bool
	discovered []ParamRef
	warnings   []string
}

// run applies one rule, converting a panic into a warning so no syntax
// rewrite failure is fatal.
func (p *syntaxPass) run(name string, fn func(string) string, sql string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			p.warnings = append(p.warnings, fmt.Sprintf("syntax rule %s failed: %v", name, r))
			out = sql
		}
	}()
	return fn(sql)
}

func (p *syntaxPass) warn(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

// rewriteReserved normalizes legacy-only reserved words.
func (p *syntaxPass) rewriteReserved(sql string) string {
	for {
		pos := scan.TopLevelKeyword(sql, "DISTINCTROW", 0)
		if pos < 0 {
			break
		}
		sql = sql[:pos] + "DISTINCT" + sql[pos+len("DISTINCTROW"):]
	}
	for {
		pos := scan.TopLevelKeyword(sql, "WITH OWNERACCESS OPTION", 0)
		if pos < 0 {
			break
		}
		end := scan.KeywordEnd(sql, "WITH OWNERACCESS OPTION", pos)
		sql = strings.TrimSpace(sql[:pos] + sql[end:])
	}
	return sql
}

// rewriteTop moves SELECT TOP n into a trailing LIMIT clause. A trailing
// LIMIT binds to the whole statement, so when more than one top-level
// SELECT is present (a set operation) every TOP stays in place and is
// reported instead.
func (p *syntaxPass) rewriteTop(sql string) string {
	sel := scan.TopLevelKeyword(sql, "SELECT", 0)
	if sel < 0 {
		return sql
	}
	if scan.TopLevelKeyword(sql, "SELECT", sel+len("SELECT")) >= 0 {
		for at := sel; at >= 0; at = scan.TopLevelKeyword(sql, "SELECT", at+len("SELECT")) {
			if hasTopClause(sql, at) {
				p.warn("TOP clause in a set operation branch left in place")
			}
		}
		return sql
	}
	topPos, numEnd, n, ok := p.topClause(sql, sel)
	if !ok {
		return sql
	}
	sql = sql[:topPos] + strings.TrimLeft(sql[numEnd:], " ")
	return strings.TrimRight(strings.TrimSpace(sql), ";") + fmt.Sprintf(" LIMIT %d", n)
}

// topClause locates the TOP clause directly after the SELECT at sel,
// returning the clause start, the index just past its count, and the count.
func (p *syntaxPass) topClause(sql string, sel int) (int, int, int, bool) {
	cut := sel + len("SELECT")
	if next := firstWordAfter(sql, cut); strings.EqualFold(next, "DISTINCT") {
		cut += leadingSpace(sql[cut:]) + len(next)
	}
	word := firstWordAfter(sql, cut)
	if !strings.EqualFold(word, "TOP") {
		return 0, 0, 0, false
	}
	topPos := cut + leadingSpace(sql[cut:])
	numStart := topPos + len(word)
	num := firstWordAfter(sql, numStart)
	n, err := strconv.Atoi(num)
	if err != nil {
		p.warn("TOP clause with non-numeric count %q left in place", num)
		return 0, 0, 0, false
	}
	numEnd := numStart + leadingSpace(sql[numStart:]) + len(num)
	if pct := firstWordAfter(sql, numEnd); strings.EqualFold(pct, "PERCENT") {
		p.warn("TOP %d PERCENT approximated as a plain row limit", n)
		numEnd += leadingSpace(sql[numEnd:]) + len(pct)
	}
	return topPos, numEnd, n, true
}

// hasTopClause reports whether the SELECT at sel carries a TOP clause,
// without parsing or rewriting it.
func hasTopClause(sql string, sel int) bool {
	cut := sel + len("SELECT")
	if next := firstWordAfter(sql, cut); strings.EqualFold(next, "DISTINCT") {
		cut += leadingSpace(sql[cut:]) + len(next)
	}
	return strings.EqualFold(firstWordAfter(sql, cut), "TOP")
}

func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t\r\n"))
}

// firstWordAfter returns the first whitespace-delimited word at or after pos.
func firstWordAfter(s string, pos int) string {
	rest := strings.TrimLeft(s[pos:], " \t\r\n")
	end := 0
	for end < len(rest) && isIdentByte(rest[end]) {
		end++
	}
	return rest[:end]
}

// rewriteBooleans normalizes boolean literals. True/False convert
// everywhere; Yes/No only directly after a comparison operator, to avoid
// misfiring on identifiers.
func (p *syntaxPass) rewriteBooleans(sql string) string {
	sql = replaceWord(sql, "True", "TRUE")
	sql = replaceWord(sql, "False", "FALSE")
	for _, pair := range [][2]string{{"Yes", "TRUE"}, {"No", "FALSE"}} {
		c := scan.NewCursor(sql)
		for c.Pos < len(sql) {
			if !c.InString && hasWord(sql, c.Pos, pair[0]) && precededByComparison(sql, c.Pos) {
				sql = sql[:c.Pos] + pair[1] + sql[c.Pos+len(pair[0]):]
				c = scan.NewCursor(sql)
				continue
			}
			c.Next()
		}
	}
	return sql
}

func precededByComparison(s string, pos int) bool {
	i := pos - 1
	for i >= 0 && (s[i] == ' ' || s[i] == '\t') {
		i--
	}
	return i >= 0 && (s[i] == '=' || s[i] == '>' || s[i] == '<')
}

// replaceWord replaces every unquoted word-bounded occurrence.
func replaceWord(sql, word, with string) string {
	c := scan.NewCursor(sql)
	for c.Pos < len(sql) {
		if !c.InString && hasWord(sql, c.Pos, word) && sql[c.Pos:c.Pos+len(word)] != with {
			sql = sql[:c.Pos] + with + sql[c.Pos+len(word):]
			c = scan.NewCursor(sql)
			continue
		}
		c.Next()
	}
	return sql
}

// dateLayouts are the literal layouts the legacy dialect produces.
var dateLayouts = []struct {
	layout  string
	hasTime bool
}{
	{"1/2/2006 15:04:05", true},
	{"1/2/2006 3:04:05 PM", true},
	{"1/2/2006", false},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02", false},
	{"January 2, 2006", false},
}

// rewriteDateLiterals converts #...# literals to typed Postgres literals.
func (p *syntaxPass) rewriteDateLiterals(sql string) string {
	for {
		c := scan.NewCursor(sql)
		open := -1
		for c.Pos < len(sql) {
			if !c.InString && sql[c.Pos] == '#' {
				open = c.Pos
				break
			}
			c.Next()
		}
		if open < 0 {
			return sql
		}
		close := strings.IndexByte(sql[open+1:], '#')
		if close < 0 {
			p.warn("unterminated date literal left in place")
			return sql
		}
		close += open + 1
		raw := strings.TrimSpace(sql[open+1 : close])
		sql = sql[:open] + formatDateLiteral(raw, p) + sql[close+1:]
	}
}

func formatDateLiteral(raw string, p *syntaxPass) string {
	for _, dl := range dateLayouts {
		t, err := time.Parse(dl.layout, raw)
		if err != nil {
			continue
		}
		if dl.hasTime {
			return "'" + t.Format("2006-01-02 15:04:05") + "'::timestamp"
		}
		return "'" + t.Format("2006-01-02") + "'::date"
	}
	p.warn("unrecognized date literal #%s#", raw)
	return "'" + strings.ReplaceAll(raw, "'", "''") + "'"
}

// rewriteLikePatterns translates legacy wildcards inside the string literal
// following a LIKE: * becomes %, ? becomes _, # (single digit) becomes _.
func (p *syntaxPass) rewriteLikePatterns(sql string) string {
	from := 0
	for {
		pos := scan.TopLevelKeyword(sql, "LIKE", from)
		if pos < 0 {
			// LIKE may sit inside parentheses; fall back to a quote-aware
			// scan at any depth.
			pos = anyDepthKeyword(sql, "LIKE", from)
			if pos < 0 {
				return sql
			}
		}
		end := pos + len("LIKE")
		rest := end + leadingSpace(sql[end:])
		if rest >= len(sql) || sql[rest] != '\'' {
			from = end
			continue
		}
		lit := rest + 1
		term := lit
		for term < len(sql) {
			if sql[term] == '\'' {
				if term+1 < len(sql) && sql[term+1] == '\'' {
					term += 2
					continue
				}
				break
			}
			term++
		}
		body := sql[lit:term]
		mapped := strings.NewReplacer("*", "%", "?", "_", "#", "_").Replace(body)
		sql = sql[:lit] + mapped + sql[term:]
		from = lit + len(mapped)
	}
}

// anyDepthKeyword finds a word-bounded keyword outside strings at any
// parenthesis depth.
func anyDepthKeyword(sql, keyword string, from int) int {
	c := scan.NewCursor(sql)
	for c.Pos < from && c.Pos < len(sql) {
		c.Next()
	}
	for c.Pos < len(sql) {
		if !c.InString && hasWord(sql, c.Pos, keyword) {
			return c.Pos
		}
		c.Next()
	}
	return -1
}

// rewriteBangRefs flattens bang-notation references. Forms! and TempVars!
// chains are session variables and become parameters; any other qualified
// chain flattens to its final field reference.
func (p *syntaxPass) rewriteBangRefs(sql string) string {
	for {
		start, end, parts := nextBangChain(sql)
		if start < 0 {
			return sql
		}
		source := sql[start:end]
		var repl string
		head := CanonicalName(parts[0])
		switch head {
		case "forms", "tempvars":
			target := ParamName(strings.Join(parts[1:], "_"))
			p.discovered = append(p.discovered, ParamRef{Source: source, Target: target})
			p.params[target] = true
			repl = target
		default:
			repl = QuoteIdent(CanonicalName(parts[len(parts)-1]))
		}
		sql = sql[:start] + repl + sql[end:]
	}
}

// nextBangChain finds the next ident!ident chain (either side may be
// bracket-quoted) outside string literals.
func nextBangChain(sql string) (int, int, []string) {
	c := scan.NewCursor(sql)
	for c.Pos < len(sql) {
		if !c.InString && sql[c.Pos] == '!' &&
			(c.Pos == 0 || sql[c.Pos-1] != '=') && (c.Pos+1 >= len(sql) || sql[c.Pos+1] != '=') {
			// Walk backwards over the first segment.
			start, first := segmentBefore(sql, c.Pos)
			if start < 0 {
				c.Next()
				continue
			}
			parts := []string{first}
			end := c.Pos
			for end < len(sql) && sql[end] == '!' {
				segEnd, seg := segmentAfter(sql, end+1)
				if segEnd < 0 {
					break
				}
				parts = append(parts, seg)
				end = segEnd
			}
			if len(parts) >= 2 {
				return start, end, parts
			}
		}
		c.Next()
	}
	return -1, -1, nil
}

func segmentBefore(sql string, bang int) (int, string) {
	i := bang - 1
	if i >= 0 && sql[i] == ']' {
		open := strings.LastIndexByte(sql[:i], '[')
		if open < 0 {
			return -1, ""
		}
		return open, sql[open+1 : i]
	}
	for i >= 0 && isIdentByte(sql[i]) {
		i--
	}
	if i+1 == bang {
		return -1, ""
	}
	return i + 1, sql[i+1 : bang]
}

func segmentAfter(sql string, pos int) (int, string) {
	if pos < len(sql) && sql[pos] == '[' {
		close := strings.IndexByte(sql[pos:], ']')
		if close < 0 {
			return -1, ""
		}
		return pos + close + 1, sql[pos+1 : pos+close]
	}
	end := pos
	for end < len(sql) && isIdentByte(sql[end]) {
		end++
	}
	if end == pos {
		return -1, ""
	}
	return end, sql[pos:end]
}

// rewriteBrackets converts remaining bracket-quoted tokens. A token whose
// canonical parameter form is a known parameter becomes a bare parameter
// reference; everything else is a column and becomes a quoted identifier.
func (p *syntaxPass) rewriteBrackets(sql string) string {
	for {
		c := scan.NewCursor(sql)
		open := -1
		for c.Pos < len(sql) {
			if !c.InString && sql[c.Pos] == '[' {
				open = c.Pos
				break
			}
			c.Next()
		}
		if open < 0 {
			return sql
		}
		close := strings.IndexByte(sql[open:], ']')
		if close < 0 {
			p.warn("unterminated bracket identifier left in place")
			return sql
		}
		close += open
		content := sql[open+1 : close]
		var repl string
		if pn := ParamName(content); p.params[pn] {
			repl = pn
		} else {
			repl = QuoteIdent(CanonicalName(content))
		}
		sql = sql[:open] + repl + sql[close+1:]
	}
}

// rewriteConcat converts the legacy concatenation operator.
func (p *syntaxPass) rewriteConcat(sql string) string {
	for {
		pos := anyDepthIndex(sql, "&")
		if pos < 0 {
			return sql
		}
		sql = sql[:pos] + "||" + sql[pos+1:]
	}
}

// anyDepthIndex finds a raw operator outside strings at any depth.
func anyDepthIndex(sql, op string) int {
	c := scan.NewCursor(sql)
	for c.Pos < len(sql) {
		if !c.InString && strings.HasPrefix(sql[c.Pos:], op) {
			return c.Pos
		}
		c.Next()
	}
	return -1
}

// ExtractParametersClause strips a leading legacy PARAMETERS clause and
// returns the declared parameters it carried. The clause has the shape
// PARAMETERS [Name] Type, [Name] Type; SELECT ...
func ExtractParametersClause(sql string) (string, []DeclaredParameter) {
	trimmed := strings.TrimLeft(sql, " \t\r\n")
	if !hasWord(trimmed, 0, "PARAMETERS") {
		return sql, nil
	}
	semi := anyDepthIndex(trimmed, ";")
	if semi < 0 {
		return sql, nil
	}
	var decls []DeclaredParameter
	for _, item := range scan.SplitTopLevelCommas(trimmed[len("PARAMETERS"):semi]) {
		name, typ := splitNameType(item)
		if name == "" {
			continue
		}
		decls = append(decls, DeclaredParameter{Name: name, LegacyType: typ})
	}
	return strings.TrimSpace(trimmed[semi+1:]), decls
}

// splitNameType splits "[Start Date] DateTime" into name and type.
func splitNameType(item string) (string, string) {
	item = strings.TrimSpace(item)
	if item == "" {
		return "", ""
	}
	if item[0] == '[' {
		close := strings.IndexByte(item, ']')
		if close < 0 {
			return "", ""
		}
		return item[1:close], strings.TrimSpace(item[close+1:])
	}
	fields := strings.Fields(item)
	if len(fields) < 2 {
		return item, ""
	}
	return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
}
