package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeTableFunctionFallback(t *testing.T) {
	// An expression the projection reader cannot name forces the untyped
	// row-set return.
	res, err := Translate(QueryDescriptor{
		Name: "Order Math",
		SQL:  "PARAMETERS N Long; SELECT qty * price FROM Orders WHERE qty > [N]",
	}, "app", nil)
	require.NoError(t, err)

	assert.Equal(t, ObjectFunction, res.ObjectKind)
	require.Len(t, res.Statements, 1)
	assert.Contains(t, res.Statements[0], "RETURNS SETOF record")

	found := false
	for _, w := range res.Warnings {
		if w == "projection shape not recognized; returning an untyped row set" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSynthesizeTableFunctionTypedColumns(t *testing.T) {
	res, err := Translate(QueryDescriptor{
		Name: "Order Lines",
		SQL:  "PARAMETERS N Long; SELECT o.OrderID, qty AS quantity FROM Orders o WHERE o.OrderID = [N]",
	}, "app", map[string]string{"orderid": "bigint", "quantity": "smallint"})
	require.NoError(t, err)

	require.Len(t, res.Statements, 1)
	assert.Contains(t, res.Statements[0], `RETURNS TABLE ("orderid" bigint, "quantity" smallint)`)
}

func TestTranslateUnsupportedShape(t *testing.T) {
	res, err := Translate(QueryDescriptor{
		Name: "Odd One",
		SQL:  "EXECUTE something",
	}, "app", nil)
	require.NoError(t, err)

	assert.Equal(t, ObjectNone, res.ObjectKind)
	require.Len(t, res.Statements, 1)
	assert.Contains(t, res.Statements[0], "-- unsupported query")
	require.NotEmpty(t, res.Warnings)
}

func TestMakeTableWithoutKindCode(t *testing.T) {
	// A SELECT ... INTO is a make-table even when the descriptor carries the
	// plain select code.
	res, err := Translate(QueryDescriptor{
		Name: "Snapshot",
		SQL:  "SELECT * INTO Backup FROM Orders",
	}, "app", nil)
	require.NoError(t, err)

	assert.Equal(t, ObjectProcedure, res.ObjectKind)
	assert.Contains(t, res.Statements[0], `DROP TABLE IF EXISTS app."backup";`)
}

func TestProjectionName(t *testing.T) {
	tests := []struct {
		item string
		want string
		ok   bool
	}{
		{item: "OrderID", want: "OrderID", ok: true},
		{item: "o.OrderID", want: "OrderID", ok: true},
		{item: `o."Order ID"`, want: "Order ID", ok: true},
		{item: "qty * price AS total", want: "total", ok: true},
		{item: "SUM(total) AS grand", want: "grand", ok: true},
		{item: "qty * price", ok: false},
		{item: "*", ok: false},
		{item: "o.*", ok: false},
		{item: "SUM(total)", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.item, func(t *testing.T) {
			got, ok := projectionName(tt.item)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPassthroughComment(t *testing.T) {
	got := passthroughComment("crosstab", "pivot", "line one\nline two")
	assert.Equal(t, "-- crosstab query \"pivot\" was not translated\n-- line one\n-- line two", got)
}
