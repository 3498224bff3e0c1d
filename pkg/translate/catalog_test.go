package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyCatalog(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "nz two args",
			sql:  "SELECT Nz(total, 0) FROM t",
			want: "SELECT COALESCE(total, 0) FROM t",
		},
		{
			name: "nz one arg",
			sql:  "SELECT Nz(notes) FROM t",
			want: "SELECT COALESCE(notes, '') FROM t",
		},
		{
			name: "iif",
			sql:  "SELECT IIf(qty > 10, 'bulk', 'single') FROM t",
			want: "SELECT CASE WHEN qty > 10 THEN 'bulk' ELSE 'single' END FROM t",
		},
		{
			name: "switch",
			sql:  "SELECT Switch(a = 1, 'x', a = 2, 'y') FROM t",
			want: "SELECT CASE WHEN a = 1 THEN 'x' WHEN a = 2 THEN 'y' END FROM t",
		},
		{
			name: "nested calls converge",
			sql:  "SELECT Nz(Mid(name, 1, 3), '') FROM t",
			want: "SELECT COALESCE(SUBSTR(name, 1, 3), '') FROM t",
		},
		{
			name: "ucase and lcase",
			sql:  "SELECT UCase(a), LCase(b) FROM t",
			want: "SELECT UPPER(a), LOWER(b) FROM t",
		},
		{
			name: "self-mapping left stays",
			sql:  "SELECT Left(name, 2) FROM t",
			want: "SELECT LEFT(name, 2) FROM t",
		},
		{
			name: "instr two args",
			sql:  "SELECT InStr(name, 'x') FROM t",
			want: "SELECT STRPOS(name, 'x') FROM t",
		},
		{
			name: "trim",
			sql:  "SELECT Trim(name) FROM t",
			want: "SELECT BTRIM(name) FROM t",
		},
		{
			name: "string repeats reversed args",
			sql:  "SELECT String(3, '-') FROM t",
			want: "SELECT REPEAT('-', 3) FROM t",
		},
		{
			name: "cast functions",
			sql:  "SELECT CLng(a), CStr(b) FROM t",
			want: "SELECT CAST(a AS bigint), CAST(b AS text) FROM t",
		},
		{
			name: "date now",
			sql:  "SELECT Date(), Now() FROM t",
			want: "SELECT CURRENT_DATE, NOW() FROM t",
		},
		{
			name: "year extraction",
			sql:  "SELECT Year(order_date) FROM t",
			want: "SELECT EXTRACT(YEAR FROM order_date) FROM t",
		},
		{
			name: "weekday is one-based",
			sql:  "SELECT Weekday(d) FROM t",
			want: "SELECT (EXTRACT(DOW FROM d) + 1) FROM t",
		},
		{
			name: "datepart",
			sql:  "SELECT DatePart('yyyy', d) FROM t",
			want: "SELECT EXTRACT(YEAR FROM d) FROM t",
		},
		{
			name: "dateadd quarter multiplies months",
			sql:  "SELECT DateAdd('q', 2, d) FROM t",
			want: "SELECT (d + (2) * 3 * INTERVAL '1 month') FROM t",
		},
		{
			name: "dateadd day",
			sql:  "SELECT DateAdd('d', 7, d) FROM t",
			want: "SELECT (d + (7) * INTERVAL '1 day') FROM t",
		},
		{
			name: "datediff days",
			sql:  "SELECT DateDiff('d', a, b) FROM t",
			want: "SELECT ((b)::date - (a)::date) FROM t",
		},
		{
			name: "datediff months",
			sql:  "SELECT DateDiff('m', a, b) FROM t",
			want: "SELECT ((EXTRACT(YEAR FROM b) - EXTRACT(YEAR FROM a)) * 12 + EXTRACT(MONTH FROM b) - EXTRACT(MONTH FROM a)) FROM t",
		},
		{
			name: "dateserial",
			sql:  "SELECT DateSerial(2020, 1, 15) FROM t",
			want: "SELECT MAKE_DATE(2020, 1, 15) FROM t",
		},
		{
			name: "format with date pattern",
			sql:  "SELECT Format(d, 'yyyy-mm-dd') FROM t",
			want: "SELECT TO_CHAR(d, 'YYYY-MM-DD') FROM t",
		},
		{
			name: "format with named pattern",
			sql:  "SELECT Format(total, 'Currency') FROM t",
			want: "SELECT TO_CHAR(total, 'FM$999,999,999,990.00') FROM t",
		},
		{
			name: "rnd",
			sql:  "SELECT Rnd() FROM t",
			want: "SELECT RANDOM() FROM t",
		},
		{
			name: "call name inside string untouched",
			sql:  "SELECT 'Nz(x)' FROM t",
			want: "SELECT 'Nz(x)' FROM t",
		},
		{
			name: "call name as identifier untouched",
			sql:  "SELECT my_nz(x) FROM t",
			want: "SELECT my_nz(x) FROM t",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := ApplyCatalog(tt.sql)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, warnings)

			// Fixed point: re-running over the output changes nothing.
			again, _ := ApplyCatalog(got)
			assert.Equal(t, got, again)
		})
	}
}

func TestApplyCatalogWarnings(t *testing.T) {
	sql := "SELECT DatePart('z', d) FROM t"
	got, warnings := ApplyCatalog(sql)
	assert.Equal(t, sql, got)
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "unknown date unit code")

	sql = "SELECT IIf(a, b) FROM t"
	got, warnings = ApplyCatalog(sql)
	assert.Equal(t, sql, got)
	assert.Contains(t, warnings[0], "expected 3-3 arguments")
}
