package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stockroom/pkg/apperr"
)

func decodeProduct(t *testing.T, body string) NewProduct {
	t.Helper()
	var np NewProduct
	require.NoError(t, json.Unmarshal([]byte(body), &np))
	return np
}

func TestNewProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"valid minimal", `{"name":"Widget","sku":"W-1","price":9.99}`, ""},
		{"valid zero price", `{"name":"Freebie","sku":"F-1","price":0}`, ""},
		{"missing name", `{"sku":"W-1","price":1}`, "Name, SKU, and price are required"},
		{"missing sku", `{"name":"Widget","price":1}`, "Name, SKU, and price are required"},
		{"missing price", `{"name":"Widget","sku":"W-1"}`, "Name, SKU, and price are required"},
		{"blank name", `{"name":"   ","sku":"W-1","price":1}`, "Product name cannot be empty"},
		{"blank sku", `{"name":"Widget","sku":" ","price":1}`, "SKU cannot be empty"},
		{"string price", `{"name":"Widget","sku":"W-1","price":"9.99"}`, "Price must be a positive number"},
		{"null price", `{"name":"Widget","sku":"W-1","price":null}`, "Price must be a positive number"},
		{"negative price", `{"name":"Widget","sku":"W-1","price":-1}`, "Price must be a positive number"},
		{"negative quantity", `{"name":"Widget","sku":"W-1","price":1,"quantity":-5}`, "Quantity must be a non-negative integer"},
		{"fractional quantity", `{"name":"Widget","sku":"W-1","price":1,"quantity":1.5}`, "Quantity must be a non-negative integer"},
		{"negative cost", `{"name":"Widget","sku":"W-1","price":1,"cost_price":-2}`, "Cost price must be a positive number"},
		{"negative min", `{"name":"Widget","sku":"W-1","price":1,"min_stock_level":-1}`, "Minimum stock level must be a non-negative integer"},
		{"max below default min", `{"name":"Widget","sku":"W-1","price":1,"max_stock_level":5}`, "Maximum stock level cannot be below minimum stock level"},
		{"max above min", `{"name":"Widget","sku":"W-1","price":1,"min_stock_level":2,"max_stock_level":5}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			np := decodeProduct(t, tt.body)
			err := np.Validate()
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestNewProduct_Defaults(t *testing.T) {
	np := decodeProduct(t, `{"name":"Widget","sku":"W-1","price":2.5,"quantity":null}`)
	require.NoError(t, np.Validate())
	assert.Nil(t, np.Quantity)
	assert.Equal(t, int64(0), np.quantity())
	assert.Equal(t, int64(DefaultMinStockLevel), np.minStockLevel())
	require.NotNil(t, np.Price)
	assert.Equal(t, 2.5, *np.Price)
}

func TestParseQuantity(t *testing.T) {
	valid := map[string]int64{
		`0`:   0,
		`42`:  42,
		`3.0`: 3,
		` 7 `: 7,
	}
	for raw, want := range valid {
		got, err := ParseQuantity(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{`-1`, `1.5`, `"3"`, `true`, `[]`, `{}`, `1e400`} {
		_, err := ParseQuantity(json.RawMessage(raw))
		require.Error(t, err, raw)
		assert.Equal(t, "Quantity must be a non-negative integer", err.Error(), raw)
	}

	for _, raw := range []string{``, `null`} {
		_, err := ParseQuantity(json.RawMessage(raw))
		require.Error(t, err, raw)
		assert.Equal(t, "Quantity is required", err.Error(), raw)
	}
}
