// Package translate compiles legacy Access query definitions into Postgres
// DDL. The pipeline is a sequence of pure text passes: function-catalog
// rewriting, syntax normalization, schema qualification, domain-function
// compilation, parameter resolution, and finally DDL synthesis.
package translate

import "strings"

// QueryKind is the legacy query classification code carried by a query
// definition. Values match the classification constants of the source
// application's metadata.
type QueryKind int

// Legacy classification codes.
const (
	KindSelect    QueryKind = 0
	KindCrosstab  QueryKind = 16
	KindDelete    QueryKind = 32
	KindUpdate    QueryKind = 48
	KindInsert    QueryKind = 64
	KindMakeTable QueryKind = 80
	KindUnion     QueryKind = 128
)

// String returns the classification name for diagnostics.
func (k QueryKind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindCrosstab:
		return "crosstab"
	case KindDelete:
		return "delete"
	case KindUpdate:
		return "update"
	case KindInsert:
		return "insert"
	case KindMakeTable:
		return "make-table"
	case KindUnion:
		return "union"
	}
	return "unknown"
}

// DeclaredParameter is a parameter declared in the legacy query's own
// metadata, before canonicalization.
type DeclaredParameter struct {
	Name       string `yaml:"name"`
	LegacyType string `yaml:"type"`
}

// QueryDescriptor is the immutable input to the forward compiler.
type QueryDescriptor struct {
	Name       string              `yaml:"name"`
	Kind       QueryKind           `yaml:"kind"`
	SQL        string              `yaml:"sql"`
	Parameters []DeclaredParameter `yaml:"parameters,omitempty"`
}

// ResolvedParameter is a deduplicated, canonicalized parameter with its
// inferred Postgres type.
type ResolvedParameter struct {
	SourceName string
	TargetName string
	TargetType string
}

// ObjectKind classifies the emitted DDL object.
type ObjectKind string

// Emitted object kinds.
const (
	ObjectView      ObjectKind = "view"
	ObjectFunction  ObjectKind = "function"
	ObjectProcedure ObjectKind = "procedure"
	ObjectNone      ObjectKind = "none"
)

// Result is the outcome of translating one query descriptor. Non-fatal
// problems accumulate in Warnings; the statement list is always the best
// available output.
type Result struct {
	ObjectName string
	ObjectKind ObjectKind
	Statements []string
	Parameters []ResolvedParameter
	Warnings   []string
	// HelperFunctions lists custom aggregate names whose definitions were
	// prepended to Statements for this query.
	HelperFunctions []string
}

// warn appends a warning.
func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// legacyTypes maps legacy scalar type names to Postgres types. The mapping
// is part of the public contract; unknown names fall back to text.
var legacyTypes = map[string]string{
	"boolean":  "boolean",
	"bit":      "boolean",
	"yesno":    "boolean",
	"byte":     "smallint",
	"integer":  "smallint",
	"int":      "smallint",
	"short":    "smallint",
	"long":     "bigint",
	"counter":  "bigint",
	"currency": "numeric(19,4)",
	"single":   "real",
	"double":   "double precision",
	"float":    "double precision",
	"date":     "timestamp",
	"datetime": "timestamp",
	"string":   "text",
	"text":     "text",
	"memo":     "text",
	"variant":  "text",
	"object":   "text",
	"value":    "text",
}

// MapLegacyType converts a legacy scalar type name to its Postgres
// equivalent, defaulting to text.
func MapLegacyType(legacy string) string {
	if t, ok := legacyTypes[strings.ToLower(strings.TrimSpace(legacy))]; ok {
		return t
	}
	return "text"
}
