package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileDomainFunctions(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		want     string
		wantRefs []string
	}{
		{
			name: "dlookup with parameter criteria",
			sql:  `SELECT DLookUp("UnitPrice", "Products", "ProductID = " & [Enter ID]) AS price FROM t`,
			want: `SELECT (SELECT "unitprice" FROM app."products" WHERE ProductID = p_enter_id LIMIT 1) AS price FROM t`,
			wantRefs: []string{"p_enter_id"},
		},
		{
			name: "dcount without criteria",
			sql:  `SELECT DCount("*", "Orders") AS n FROM t`,
			want: `SELECT (SELECT COUNT(*) FROM app."orders" WHERE TRUE) AS n FROM t`,
		},
		{
			name: "dsum wraps in coalesce",
			sql:  `SELECT DSum("Total", "Orders", "CustomerID = 5") AS total FROM t`,
			want: `SELECT (SELECT COALESCE(SUM("total"), 0) FROM app."orders" WHERE CustomerID = 5) AS total FROM t`,
		},
		{
			name: "dmax",
			sql:  `SELECT DMax("OrderDate", "Orders") AS latest FROM t`,
			want: `SELECT (SELECT MAX("orderdate") FROM app."orders" WHERE TRUE) AS latest FROM t`,
		},
		{
			name: "bracketed column inside quoted criteria",
			sql:  `SELECT DMin("Total", "Orders", "[Order Date] > " & [Cutoff]) FROM t`,
			want: `SELECT (SELECT MIN("total") FROM app."orders" WHERE "order_date" > p_cutoff) FROM t`,
			wantRefs: []string{"p_cutoff"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CompileDomainFunctions(tt.sql, "app")
			assert.Equal(t, tt.want, res.SQL)
			var targets []string
			for _, r := range res.Discovered {
				targets = append(targets, r.Target)
			}
			assert.Equal(t, tt.wantRefs, targets)
		})
	}
}

func TestCompileDomainFunctionsFirstLastWarn(t *testing.T) {
	res := CompileDomainFunctions(`SELECT DFirst("Name", "Customers") FROM t`, "app")
	assert.Equal(t, `SELECT (SELECT "name" FROM app."customers" WHERE TRUE LIMIT 1) FROM t`, res.SQL)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "arbitrary matching row")
}

func TestCompileDomainFunctionsBadArgs(t *testing.T) {
	sql := `SELECT DLookUp("a") FROM t`
	res := CompileDomainFunctions(sql, "app")
	assert.Equal(t, sql, res.SQL)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "expected 2-3 arguments")
}

func TestCompileCriteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria string
		want     string
		wantRefs int
	}{
		{name: "empty is true", criteria: "", want: "TRUE"},
		{name: "plain literal", criteria: `"ShippedDate IS NULL"`, want: "ShippedDate IS NULL"},
		{
			name:     "literal and parameter",
			criteria: `"CustomerID = " & [Which Customer]`,
			want:     "CustomerID = p_which_customer",
			wantRefs: 1,
		},
		{
			name:     "column bracket inside literal",
			criteria: `"[Unit Price] >= 100"`,
			want:     `"unit_price" >= 100`,
		},
		{
			name:     "postgres concat operator accepted",
			criteria: `"Qty > " || [Min Qty]`,
			want:     "Qty > p_min_qty",
			wantRefs: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, refs, err := CompileCriteria(tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pred)
			assert.Len(t, refs, tt.wantRefs)
		})
	}
}

func TestCompileCriteriaUnterminated(t *testing.T) {
	_, _, err := CompileCriteria(`"CustomerID = `)
	require.Error(t, err)
}
