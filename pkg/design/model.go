// Package design recovers an editable structural model from a single
// already-migrated SELECT statement, so a visual editor can round-trip a
// view definition. It shares the scanning primitives with the forward
// compiler but is otherwise independent of it.
package design

// SortDirection is the ordering applied to a projection field.
type SortDirection string

// Sort directions. Empty means the field is not ordered.
const (
	SortNone       SortDirection = ""
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// Table is one FROM-clause table reference.
type Table struct {
	Name   string `json:"name"`
	Schema string `json:"schema,omitempty"`
	Alias  string `json:"alias,omitempty"`
}

// Join is one join between two tables, reduced to its first equality pair.
type Join struct {
	Type        string `json:"type"`
	LeftTable   string `json:"leftTable"`
	LeftColumn  string `json:"leftColumn"`
	RightTable  string `json:"rightTable"`
	RightColumn string `json:"rightColumn"`
}

// Field is one projection item.
type Field struct {
	Expression string        `json:"expression"`
	Table      string        `json:"table,omitempty"`
	Alias      string        `json:"alias,omitempty"`
	Sort       SortDirection `json:"sort,omitempty"`
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expression string        `json:"expression"`
	Direction  SortDirection `json:"direction"`
}

// Model is the structural form of a parsed SELECT. When Parseable is
// false every other field is unknown and SQL holds the input verbatim.
type Model struct {
	Parseable bool        `json:"parseable"`
	SQL       string      `json:"sql"`
	Tables    []Table     `json:"tables,omitempty"`
	Joins     []Join      `json:"joins,omitempty"`
	Fields    []Field     `json:"fields,omitempty"`
	Where     string      `json:"where,omitempty"`
	GroupBy   []string    `json:"groupBy,omitempty"`
	OrderBy   []OrderItem `json:"orderBy,omitempty"`
}
