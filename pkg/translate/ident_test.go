package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "spaces to underscore", input: "Order Details", want: "order_details"},
		{name: "already canonical", input: "order_details", want: "order_details"},
		{name: "brackets stripped", input: "[Start Date]", want: "start_date"},
		{name: "accents folded", input: "Café Menü", want: "cafe_menu"},
		{name: "hyphen to underscore", input: "qry-Sales", want: "qry_sales"},
		{name: "punctuation dropped", input: "Total (USD)!", want: "total_usd"},
		{name: "runs of whitespace collapse", input: "A   B\tC", want: "a_b_c"},
		{name: "leading and trailing space", input: "  Orders  ", want: "orders"},
		{name: "digits kept", input: "Sales 2020", want: "sales_2020"},
		{name: "empty", input: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalName(tt.input))
		})
	}
}

func TestCanonicalNameStable(t *testing.T) {
	// Canonicalizing a canonical name must be a no-op.
	for _, input := range []string{"Order Details", "[Qty On Hand]", "Café"} {
		once := CanonicalName(input)
		assert.Equal(t, once, CanonicalName(once))
	}
}

func TestParamName(t *testing.T) {
	assert.Equal(t, "p_orderid", ParamName("OrderID"))
	assert.Equal(t, "p_start_date", ParamName("[Start Date]"))
	assert.Equal(t, "p_orderid", ParamName("p_orderid"))
	assert.True(t, IsParamName("p_orderid"))
	assert.False(t, IsParamName("orderid"))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"orders"`, QuoteIdent("orders"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, `app."order_details"`, QualifiedName("app", "Order Details"))
}
