package stub

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentyler/accessclone-sub006/internal/testutil"
	"github.com/kentyler/accessclone-sub006/pkg/translate"
)

func expectCatalogQuery(mock sqlmock.Sqlmock, names ...string) {
	rows := sqlmock.NewRows([]string{"proname"})
	for _, n := range names {
		rows.AddRow(n)
	}
	mock.ExpectQuery(`SELECT p\.proname`).WithArgs("app").WillReturnRows(rows)
}

func TestCreateDeclared(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectCatalogQuery(mock, "already_there")
	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT stub_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE FUNCTION app\."order_total"\(p_order_id bigint\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SAVEPOINT stub_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE PROCEDURE app\."archive_orders"\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	s := New(db, "app", testutil.NewTestLogger(t))
	report, err := s.CreateDeclared(context.Background(), []Declaration{
		{
			Name:       "Order Total",
			Parameters: []translate.DeclaredParameter{{Name: "Order ID", LegacyType: "Long"}},
			ReturnType: "Currency",
		},
		{Name: "Archive Orders"},
		{Name: "Already There", ReturnType: "String"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"order_total", "archive_orders"}, report.Created)
	assert.Equal(t, []string{"already_there"}, report.Skipped)
	assert.Empty(t, report.Warnings)
	assert.NotEmpty(t, report.BatchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDeclaredFailureIsWarning(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectCatalogQuery(mock)
	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT stub_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE FUNCTION app\."broken"`).WillReturnError(assert.AnError)
	mock.ExpectExec("ROLLBACK TO SAVEPOINT stub_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SAVEPOINT stub_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE FUNCTION app\."fine"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	s := New(db, "app", testutil.NewTestLogger(t))
	report, err := s.CreateDeclared(context.Background(), []Declaration{
		{Name: "Broken", ReturnType: "String"},
		{Name: "Fine", ReturnType: "String"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fine"}, report.Created)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "broken")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDeclaredBeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectCatalogQuery(mock)
	mock.ExpectBegin().WillReturnError(assert.AnError)

	s := New(db, "app", testutil.NewTestLogger(t))
	_, err = s.CreateDeclared(context.Background(), []Declaration{{Name: "X"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin stub batch")
}

func TestCreateDeclaredNilDB(t *testing.T) {
	s := &Synthesizer{Schema: "app"}
	_, err := s.CreateDeclared(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection not established")
}

func TestCreateFromDDL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectCatalogQuery(mock, "known_fn")
	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT stub_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE FUNCTION app."missing_fn"(p_arg1 text, p_arg2 text)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	statements := []string{
		`CREATE OR REPLACE VIEW app."report" AS SELECT app.missing_fn(a, b), app.known_fn(x) FROM app."orders"`,
		`CREATE FUNCTION app."helper"() RETURNS text LANGUAGE sql AS 'SELECT app.helper()'`,
	}
	s := New(db, "app", testutil.NewTestLogger(t))
	report, err := s.CreateFromDDL(context.Background(), statements)
	require.NoError(t, err)
	assert.Equal(t, []string{"missing_fn"}, report.Created)
	assert.ElementsMatch(t, []string{"known_fn", "helper"}, report.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQualifiedCalls(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		want map[string]int
	}{
		{
			name: "bare and quoted names",
			stmt: `SELECT app.fn_one(a, b), app."Fn Two"() FROM t`,
			want: map[string]int{"fn_one": 2, "fn two": 0},
		},
		{
			name: "widest argument list wins",
			stmt: `SELECT app.f(a), app.f(a, b, c) FROM t`,
			want: map[string]int{"f": 3},
		},
		{
			name: "calls inside string literals ignored",
			stmt: `SELECT 'app.fake(a)' FROM t`,
			want: map[string]int{},
		},
		{
			name: "other schema ignored",
			stmt: `SELECT pg_catalog.now() FROM t`,
			want: map[string]int{},
		},
		{
			name: "nested commas stay one argument",
			stmt: `SELECT app.f(COALESCE(a, b)) FROM t`,
			want: map[string]int{"f": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, qualifiedCalls(tt.stmt, "app"))
		})
	}
}

func TestDefinedCallables(t *testing.T) {
	stmt := `CREATE OR REPLACE FUNCTION app."order_total"(p bigint) RETURNS numeric LANGUAGE sql AS 'SELECT 1';`
	got := definedCallables(stmt)
	assert.True(t, got["order_total"])
}
