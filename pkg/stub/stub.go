// Package stub creates placeholder callables in the target catalog so DDL
// that depends on not-yet-translated procedures can still be installed.
// It is the only part of the compiler that touches a live database.
package stub

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kentyler/accessclone-sub006/pkg/scan"
	"github.com/kentyler/accessclone-sub006/pkg/translate"
)

// Declaration describes one legacy procedure or function signature taken
// from the application's own metadata. An empty ReturnType means a
// procedure.
type Declaration struct {
	Name       string                        `yaml:"name"`
	Parameters []translate.DeclaredParameter `yaml:"parameters,omitempty"`
	ReturnType string                        `yaml:"returns,omitempty"`
}

// Report is the audit trail of one synthesis batch. It lists canonical
// callable names only; the catalog itself owns the callables.
type Report struct {
	BatchID  string
	Created  []string
	Skipped  []string
	Warnings []string
}

// Synthesizer creates stubs against one target schema. Callers must not
// run two batches against the same schema concurrently: the existence
// check and the creation are separate statements, so a read-then-write
// race between batches is possible and accepted.
type Synthesizer struct {
	DB     *sql.DB
	Schema string
	Logger *slog.Logger
}

// New returns a Synthesizer. If logger is nil, a discard logger is used.
func New(db *sql.DB, schema string, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Synthesizer{DB: db, Schema: schema, Logger: logger}
}

// existingCallables returns the lowercased names of every callable already
// present in the target schema.
func (s *Synthesizer) existingCallables(ctx context.Context) (map[string]bool, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT p.proname
		FROM pg_catalog.pg_proc p
		JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = $1
	`, s.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog callables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	existing := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan callable name: %w", err)
		}
		existing[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating callable names: %w", err)
	}
	return existing, nil
}

// runBatch executes a set of named CREATE statements inside one
// transaction. Each statement runs under a savepoint so an individual
// failure becomes a warning without losing earlier creations; only a
// transaction-control failure aborts the batch.
func (s *Synthesizer) runBatch(ctx context.Context, stubs []namedStatement, skipped []string) (*Report, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	report := &Report{BatchID: uuid.NewString(), Skipped: skipped}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin stub batch: %w", err)
	}

	for i, st := range stubs {
		sp := fmt.Sprintf("stub_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to set savepoint: %w", err)
		}
		if _, err := tx.ExecContext(ctx, st.sql); err != nil {
			s.Logger.Warn("stub creation failed",
				slog.String("callable", st.name), slog.String("error", err.Error()))
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("create %s: %v", st.name, err))
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				_ = tx.Rollback()
				return nil, fmt.Errorf("failed to roll back to savepoint: %w", rbErr)
			}
			continue
		}
		report.Created = append(report.Created, st.name)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stub batch: %w", err)
	}
	s.Logger.Info("stub batch complete",
		slog.String("batch", report.BatchID),
		slog.Int("created", len(report.Created)),
		slog.Int("skipped", len(report.Skipped)))
	return report, nil
}

type namedStatement struct {
	name string
	sql  string
}

// CreateDeclared synthesizes a no-op callable for every declaration whose
// canonical name is absent from the target catalog. Procedures become no-op
// procedures; functions return a typed NULL.
func (s *Synthesizer) CreateDeclared(ctx context.Context, decls []Declaration) (*Report, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	existing, err := s.existingCallables(ctx)
	if err != nil {
		return nil, err
	}

	var stubs []namedStatement
	var skipped []string
	seen := map[string]bool{}
	for _, d := range decls {
		name := translate.CanonicalName(d.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if existing[name] {
			skipped = append(skipped, name)
			continue
		}
		stubs = append(stubs, namedStatement{name: name, sql: s.declarationStub(name, d)})
	}
	return s.runBatch(ctx, stubs, skipped)
}

// declarationStub renders the placeholder DDL for one declaration.
func (s *Synthesizer) declarationStub(name string, d Declaration) string {
	params := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		params = append(params, translate.ParamName(p.Name)+" "+translate.MapLegacyType(p.LegacyType))
	}
	qname := s.Schema + "." + translate.QuoteIdent(name)
	sig := strings.Join(params, ", ")

	if d.ReturnType == "" {
		return fmt.Sprintf(`CREATE PROCEDURE %s(%s)
LANGUAGE plpgsql
AS $stub$
BEGIN
	NULL;
END;
$stub$;`, qname, sig)
	}
	ret := translate.MapLegacyType(d.ReturnType)
	return fmt.Sprintf("CREATE FUNCTION %s(%s)\nRETURNS %s\nLANGUAGE sql\nAS 'SELECT NULL::%s';", qname, sig, ret, ret)
}

// CreateFromDDL scans already-generated DDL statements for schema-qualified
// calls to callables the catalog does not know and synthesizes generic
// text-typed stubs sized to each call's widest observed argument list.
func (s *Synthesizer) CreateFromDDL(ctx context.Context, statements []string) (*Report, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	existing, err := s.existingCallables(ctx)
	if err != nil {
		return nil, err
	}

	defined := map[string]bool{}
	maxArgs := map[string]int{}
	for _, stmt := range statements {
		for name := range definedCallables(stmt) {
			defined[name] = true
		}
		for name, argc := range qualifiedCalls(stmt, s.Schema) {
			if prev, ok := maxArgs[name]; !ok || argc > prev {
				maxArgs[name] = argc
			}
		}
	}

	names := make([]string, 0, len(maxArgs))
	for name := range maxArgs {
		names = append(names, name)
	}
	sort.Strings(names)

	var stubs []namedStatement
	var skipped []string
	for _, name := range names {
		if existing[name] || defined[name] {
			skipped = append(skipped, name)
			continue
		}
		stubs = append(stubs, namedStatement{name: name, sql: s.genericStub(name, maxArgs[name])})
	}
	return s.runBatch(ctx, stubs, skipped)
}

// genericStub renders a text-typed placeholder function with argc
// arguments.
func (s *Synthesizer) genericStub(name string, argc int) string {
	params := make([]string, 0, argc)
	for i := 1; i <= argc; i++ {
		params = append(params, fmt.Sprintf("p_arg%d text", i))
	}
	return fmt.Sprintf("CREATE FUNCTION %s.%s(%s)\nRETURNS text\nLANGUAGE sql\nAS 'SELECT NULL::text';",
		s.Schema, translate.QuoteIdent(name), strings.Join(params, ", "))
}

// definedCallables extracts the names a DDL statement itself defines, so a
// batch never stubs something the batch is about to create properly.
func definedCallables(stmt string) map[string]bool {
	out := map[string]bool{}
	for _, kw := range []string{"FUNCTION", "PROCEDURE", "AGGREGATE", "VIEW"} {
		from := 0
		for {
			pos := keywordAt(stmt, kw, from)
			if pos < 0 {
				break
			}
			from = pos + len(kw)
			if name := refName(stmt, from); name != "" {
				out[name] = true
			}
		}
	}
	return out
}

// qualifiedCalls maps each schema-qualified callable invocation in stmt to
// its top-level argument count.
func qualifiedCalls(stmt, schema string) map[string]int {
	out := map[string]int{}
	anchor := schema + "."
	c := scan.NewCursor(stmt)
	for c.Pos < len(stmt) {
		if c.InString || !strings.HasPrefix(stmt[c.Pos:], anchor) || !wordBoundaryBefore(stmt, c.Pos) {
			c.Next()
			continue
		}
		rest := c.Pos + len(anchor)
		name, end := readCallableName(stmt, rest)
		if name == "" || end >= len(stmt) || stmt[end] != '(' {
			c.Next()
			continue
		}
		args, closing := scan.ParseArguments(stmt, end)
		if closing < 0 {
			c.Next()
			continue
		}
		if prev, ok := out[name]; !ok || len(args) > prev {
			out[name] = len(args)
		}
		for c.Pos < closing && c.Pos < len(stmt) {
			c.Next()
		}
	}
	return out
}

func wordBoundaryBefore(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	ch := s[pos-1]
	return !(ch == '_' || ch == '.' || ch == '"' ||
		ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z')
}

// readCallableName reads a bare or quoted name at pos.
func readCallableName(s string, pos int) (string, int) {
	if pos < len(s) && s[pos] == '"' {
		end := strings.IndexByte(s[pos+1:], '"')
		if end < 0 {
			return "", pos
		}
		return strings.ToLower(s[pos+1 : pos+1+end]), pos + end + 2
	}
	end := pos
	for end < len(s) && (s[end] == '_' || s[end] >= '0' && s[end] <= '9' ||
		s[end] >= 'a' && s[end] <= 'z' || s[end] >= 'A' && s[end] <= 'Z') {
		end++
	}
	if end == pos {
		return "", pos
	}
	return strings.ToLower(s[pos:end]), end
}

// keywordAt finds an unquoted word-bounded keyword.
func keywordAt(s, kw string, from int) int {
	c := scan.NewCursor(s)
	for c.Pos < from && c.Pos < len(s) {
		c.Next()
	}
	for c.Pos < len(s) {
		if !c.InString && len(kw) <= len(s)-c.Pos && strings.EqualFold(s[c.Pos:c.Pos+len(kw)], kw) &&
			wordBoundaryBefore(s, c.Pos) && (c.Pos+len(kw) >= len(s) || wordBoundaryBefore(s, c.Pos+len(kw)+1)) {
			return c.Pos
		}
		c.Next()
	}
	return -1
}

// refName reads the [schema.]name reference following a CREATE keyword.
func refName(stmt string, pos int) string {
	rest := strings.TrimLeft(stmt[pos:], " \t\r\n")
	name, end := readCallableName(rest, 0)
	if name == "" {
		return ""
	}
	if end < len(rest) && rest[end] == '.' {
		tail, _ := readCallableName(rest, end+1)
		return tail
	}
	return name
}
