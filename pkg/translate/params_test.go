package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParameters(t *testing.T) {
	t.Run("declared with legacy type", func(t *testing.T) {
		got := ResolveParameters("SELECT 1", []DeclaredParameter{
			{Name: "Start Date", LegacyType: "DateTime"},
			{Name: "Max Rows", LegacyType: "Long"},
		}, nil, nil)
		require.Len(t, got, 2)
		assert.Equal(t, ResolvedParameter{SourceName: "Start Date", TargetName: "p_start_date", TargetType: "timestamp"}, got[0])
		assert.Equal(t, ResolvedParameter{SourceName: "Max Rows", TargetName: "p_max_rows", TargetType: "bigint"}, got[1])
	})

	t.Run("session variable declarations dropped", func(t *testing.T) {
		got := ResolveParameters("SELECT 1", []DeclaredParameter{
			{Name: "[Forms]![Orders]![CustomerID]", LegacyType: "Long"},
			{Name: "Real Param", LegacyType: "Text"},
		}, nil, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "p_real_param", got[0].TargetName)
	})

	t.Run("duplicates collapse to one", func(t *testing.T) {
		got := ResolveParameters("SELECT 1", []DeclaredParameter{
			{Name: "Which Order", LegacyType: "Long"},
		}, []ParamRef{
			{Source: "[Which Order]", Target: "p_which_order"},
		}, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "bigint", got[0].TargetType)
	})

	t.Run("discovered type inferred from column comparison", func(t *testing.T) {
		sql := `SELECT * FROM app."orders" orders WHERE "order_id" = p_orderid`
		got := ResolveParameters(sql, nil, []ParamRef{
			{Source: "[OrderID]", Target: "p_orderid"},
		}, map[string]string{"order_id": "bigint"})
		require.Len(t, got, 1)
		assert.Equal(t, "bigint", got[0].TargetType)
	})

	t.Run("qualified column lookup wins", func(t *testing.T) {
		sql := `SELECT * FROM app."orders" orders WHERE orders."total" >= p_min`
		got := ResolveParameters(sql, nil, []ParamRef{
			{Source: "[Min]", Target: "p_min"},
		}, map[string]string{"orders.total": "Currency"})
		require.Len(t, got, 1)
		assert.Equal(t, "numeric(19,4)", got[0].TargetType)
	})

	t.Run("parameter on left side of comparison", func(t *testing.T) {
		sql := `SELECT * FROM t WHERE p_cutoff < "order_date"`
		got := ResolveParameters(sql, nil, []ParamRef{
			{Source: "[Cutoff]", Target: "p_cutoff"},
		}, map[string]string{"order_date": "timestamp"})
		require.Len(t, got, 1)
		assert.Equal(t, "timestamp", got[0].TargetType)
	})

	t.Run("no match falls back to text", func(t *testing.T) {
		got := ResolveParameters("SELECT p_name FROM t", nil, []ParamRef{
			{Source: "[Name]", Target: "p_name"},
		}, map[string]string{"other": "bigint"})
		require.Len(t, got, 1)
		assert.Equal(t, "text", got[0].TargetType)
	})

	t.Run("text declaration upgraded by discovery", func(t *testing.T) {
		sql := `SELECT * FROM t WHERE "qty" = p_qty`
		got := ResolveParameters(sql, []DeclaredParameter{
			{Name: "Qty"},
		}, []ParamRef{
			{Source: "[Qty]", Target: "p_qty"},
		}, map[string]string{"qty": "smallint"})
		require.Len(t, got, 1)
		assert.Equal(t, "smallint", got[0].TargetType)
	})
}

func TestNormalizeColumnType(t *testing.T) {
	assert.Equal(t, "bigint", normalizeColumnType("bigint"))
	assert.Equal(t, "bigint", normalizeColumnType("Long"))
	assert.Equal(t, "numeric(19,4)", normalizeColumnType("currency"))
	assert.Equal(t, "text", normalizeColumnType("anything else"))
}
