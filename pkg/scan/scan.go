// Package scan provides quote- and parenthesis-aware scanning primitives for
// SQL text. Every other package that walks raw SQL goes through these
// functions; none of them keep state between calls.
package scan

import "strings"

// Cursor tracks scanning state at a single position in a SQL fragment.
// It is a value type: callers copy and advance it, nothing is shared.
type Cursor struct {
	Text     string
	Pos      int
	Depth    int  // parenthesis nesting depth
	InString bool // inside a quoted region
	Delim    byte // active quote delimiter when InString
}

// NewCursor returns a cursor at the start of text.
func NewCursor(text string) Cursor {
	return Cursor{Text: text}
}

// AtTop reports whether the cursor is at parenthesis depth 0 and outside any
// quoted region.
func (c Cursor) AtTop() bool {
	return c.Depth == 0 && !c.InString
}

// Next advances the cursor one byte, updating depth and quote state.
// Doubled quote characters inside a quoted region are treated as escapes.
// Square brackets are tracked like quotes so that bracket-quoted names
// containing spaces or keywords never confuse a top-level search.
func (c *Cursor) Next() {
	if c.Pos >= len(c.Text) {
		return
	}
	ch := c.Text[c.Pos]

	if c.InString {
		switch {
		case c.Delim == '[' && ch == ']':
			c.InString = false
		case ch == c.Delim && c.Delim != '[':
			if c.Pos+1 < len(c.Text) && c.Text[c.Pos+1] == c.Delim {
				c.Pos += 2 // doubled-quote escape
				return
			}
			c.InString = false
		}
		c.Pos++
		return
	}

	switch ch {
	case '\'', '"':
		c.InString = true
		c.Delim = ch
	case '[':
		c.InString = true
		c.Delim = '['
	case '(':
		c.Depth++
	case ')':
		if c.Depth > 0 {
			c.Depth--
		}
	}
	c.Pos++
}

// MatchingClose returns the index of the parenthesis that closes the one at
// open, or -1 when the text is unbalanced or open does not point at '('.
func MatchingClose(text string, open int) int {
	if open < 0 || open >= len(text) || text[open] != '(' {
		return -1
	}
	c := Cursor{Text: text, Pos: open}
	c.Next() // consume the opening paren, depth is now 1
	for c.Pos < len(text) {
		if !c.InString && c.Depth == 1 && text[c.Pos] == ')' {
			return c.Pos
		}
		c.Next()
	}
	return -1
}

// isWordChar reports whether ch can appear inside an identifier.
func isWordChar(ch byte) bool {
	return ch == '_' || ch >= '0' && ch <= '9' ||
		ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

// TopLevelKeyword returns the index of the first case-insensitive,
// word-bounded occurrence of keyword at depth 0 outside strings, starting
// the search at from. Returns -1 when absent. Multi-word keywords such as
// "GROUP BY" match across any run of whitespace.
func TopLevelKeyword(text, keyword string, from int) int {
	words := strings.Fields(keyword)
	if len(words) == 0 {
		return -1
	}
	c := Cursor{Text: text}
	for c.Pos < from && c.Pos < len(text) {
		c.Next()
	}
	for c.Pos < len(text) {
		if c.AtTop() {
			if end, ok := matchWords(text, c.Pos, words); ok {
				_ = end
				return c.Pos
			}
		}
		c.Next()
	}
	return -1
}

// matchWords matches a word-bounded keyword sequence at pos and returns the
// index just past the match.
func matchWords(text string, pos int, words []string) (int, bool) {
	if pos > 0 && isWordChar(text[pos-1]) {
		return 0, false
	}
	i := pos
	for wi, w := range words {
		if wi > 0 {
			j := i
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
				j++
			}
			if j == i {
				return 0, false
			}
			i = j
		}
		if i+len(w) > len(text) || !strings.EqualFold(text[i:i+len(w)], w) {
			return 0, false
		}
		i += len(w)
		if i < len(text) && isWordChar(text[i]) {
			return 0, false
		}
	}
	return i, true
}

// KeywordEnd returns the index just past a keyword previously located with
// TopLevelKeyword, accounting for internal whitespace in multi-word
// keywords.
func KeywordEnd(text, keyword string, at int) int {
	if end, ok := matchWords(text, at, strings.Fields(keyword)); ok {
		return end
	}
	return at + len(keyword)
}

// TopLevelIndex returns the index of the first occurrence of op at depth 0
// outside strings, starting at from, with no word-boundary requirement.
// Used for operators such as "&" and "||".
func TopLevelIndex(text, op string, from int) int {
	c := Cursor{Text: text}
	for c.Pos < from && c.Pos < len(text) {
		c.Next()
	}
	for c.Pos < len(text) {
		if c.AtTop() && strings.HasPrefix(text[c.Pos:], op) {
			return c.Pos
		}
		c.Next()
	}
	return -1
}

// SplitTopLevel splits text on every top-level position where sep reports a
// match, returning trimmed segments. sep receives the text and a candidate
// position and returns the length of the separator there, or 0.
func SplitTopLevel(text string, sep func(text string, pos int) int) []string {
	var parts []string
	c := Cursor{Text: text}
	start := 0
	for c.Pos < len(text) {
		if c.AtTop() {
			if n := sep(text, c.Pos); n > 0 {
				parts = append(parts, strings.TrimSpace(text[start:c.Pos]))
				for i := 0; i < n; i++ {
					c.Next()
				}
				start = c.Pos
				continue
			}
		}
		c.Next()
	}
	parts = append(parts, strings.TrimSpace(text[start:]))
	return parts
}

// SplitTopLevelCommas splits text on top-level commas.
func SplitTopLevelCommas(text string) []string {
	return SplitTopLevel(text, func(t string, i int) int {
		if t[i] == ',' {
			return 1
		}
		return 0
	})
}

// SplitTopLevelOn splits text on a fixed top-level operator.
func SplitTopLevelOn(text, op string) []string {
	return SplitTopLevel(text, func(t string, i int) int {
		if strings.HasPrefix(t[i:], op) {
			return len(op)
		}
		return 0
	})
}

// SplitTopLevelKeyword splits text on a word-bounded top-level keyword,
// such as AND inside a join condition.
func SplitTopLevelKeyword(text, keyword string) []string {
	words := strings.Fields(keyword)
	return SplitTopLevel(text, func(t string, i int) int {
		if end, ok := matchWords(t, i, words); ok {
			return end - i
		}
		return 0
	})
}

// ParseArguments parses the argument list that starts at the opening
// parenthesis at open and returns the trimmed arguments plus the index of
// the closing parenthesis. An empty list yields no arguments.
func ParseArguments(text string, open int) ([]string, int) {
	close := MatchingClose(text, open)
	if close < 0 {
		return nil, -1
	}
	inner := text[open+1 : close]
	if strings.TrimSpace(inner) == "" {
		return nil, close
	}
	return SplitTopLevelCommas(inner), close
}

// StripOuterParens removes one or more redundant outer parenthesis pairs.
func StripOuterParens(s string) string {
	s = strings.TrimSpace(s)
	for len(s) > 1 && s[0] == '(' && MatchingClose(s, 0) == len(s)-1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// Balanced reports whether the parentheses in text are balanced at top
// level, ignoring quoted regions.
func Balanced(text string) bool {
	c := Cursor{Text: text}
	for c.Pos < len(text) {
		c.Next()
	}
	return c.Depth == 0 && !c.InString
}
