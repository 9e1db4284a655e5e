package inventory

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/platinummonkey/stockroom/pkg/apperr"
)

// DefaultMinStockLevel is used when a product is created without one
const DefaultMinStockLevel = 10

// Product is a stocked item
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Type          *string   `json:"type"`
	SKU           string    `json:"sku"`
	ImageURL      *string   `json:"image_url"`
	Description   *string   `json:"description"`
	Quantity      int64     `json:"quantity"`
	Price         float64   `json:"price"`
	CostPrice     *float64  `json:"cost_price"`
	MinStockLevel int64     `json:"min_stock_level"`
	MaxStockLevel *int64    `json:"max_stock_level"`
	Supplier      *string   `json:"supplier"`
	Location      *string   `json:"location"`
	CreatedBy     *int64    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewProduct is the input for Store.Create. Nil fields were not supplied.
type NewProduct struct {
	Name          string   `json:"name"`
	SKU           string   `json:"sku"`
	Price         *float64 `json:"price"`
	Type          *string  `json:"type"`
	ImageURL      *string  `json:"image_url"`
	Description   *string  `json:"description"`
	Quantity      *int64   `json:"quantity"`
	CostPrice     *float64 `json:"cost_price"`
	MinStockLevel *int64   `json:"min_stock_level"`
	MaxStockLevel *int64   `json:"max_stock_level"`
	Supplier      *string  `json:"supplier"`
	Location      *string  `json:"location"`

	priceInvalid    bool
	quantityInvalid bool
}

// UnmarshalJSON records a non-numeric price or non-integer quantity for
// Validate instead of failing the decode
func (p *NewProduct) UnmarshalJSON(data []byte) error {
	type plain NewProduct
	aux := struct {
		*plain
		Price    json.RawMessage `json:"price"`
		Quantity json.RawMessage `json:"quantity"`
	}{plain: (*plain)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.Price, p.priceInvalid = nil, false
	if len(aux.Price) > 0 {
		var price float64
		if isNull(aux.Price) || json.Unmarshal(aux.Price, &price) != nil {
			p.priceInvalid = true
		} else {
			p.Price = &price
		}
	}

	p.Quantity, p.quantityInvalid = nil, false
	if len(aux.Quantity) > 0 && !isNull(aux.Quantity) {
		qty, err := ParseQuantity(aux.Quantity)
		if err != nil {
			p.quantityInvalid = true
		} else {
			p.Quantity = &qty
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Validate checks required fields and numeric ranges
func (p *NewProduct) Validate() error {
	if p.Name == "" || p.SKU == "" || (p.Price == nil && !p.priceInvalid) {
		return apperr.Validation("Name, SKU, and price are required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("Product name cannot be empty")
	}
	if strings.TrimSpace(p.SKU) == "" {
		return apperr.Validation("SKU cannot be empty")
	}
	if p.priceInvalid || *p.Price < 0 {
		return apperr.Validation("Price must be a positive number")
	}
	if p.quantityInvalid || (p.Quantity != nil && *p.Quantity < 0) {
		return apperr.Validation("Quantity must be a non-negative integer")
	}
	if p.CostPrice != nil && *p.CostPrice < 0 {
		return apperr.Validation("Cost price must be a positive number")
	}
	if p.MinStockLevel != nil && *p.MinStockLevel < 0 {
		return apperr.Validation("Minimum stock level must be a non-negative integer")
	}
	if p.MaxStockLevel != nil && *p.MaxStockLevel < 0 {
		return apperr.Validation("Maximum stock level must be a non-negative integer")
	}
	if p.MaxStockLevel != nil && *p.MaxStockLevel < p.minStockLevel() {
		return apperr.Validation("Maximum stock level cannot be below minimum stock level")
	}
	return nil
}

func (p *NewProduct) quantity() int64 {
	if p.Quantity == nil {
		return 0
	}
	return *p.Quantity
}

func (p *NewProduct) minStockLevel() int64 {
	if p.MinStockLevel == nil {
		return DefaultMinStockLevel
	}
	return *p.MinStockLevel
}

// ParseQuantity accepts only a JSON integer >= 0. Fractions, strings, null
// and negative numbers are rejected.
func ParseQuantity(raw json.RawMessage) (int64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || isNull(trimmed) {
		return 0, apperr.Validation("Quantity is required")
	}

	invalid := apperr.Validation("Quantity must be a non-negative integer")

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, invalid
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, invalid
	}
	qty, err := num.Int64()
	if err != nil {
		// 3.0 is an integer value
		f, ferr := num.Float64()
		if ferr != nil || f != float64(int64(f)) {
			return 0, invalid
		}
		qty = int64(f)
	}
	if qty < 0 {
		return 0, invalid
	}
	return qty, nil
}
