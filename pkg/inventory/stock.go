package inventory

import "fmt"

// MediumStockThreshold is the highest quantity still classed as medium stock
const MediumStockThreshold = 50

// StockLevel is one of four mutually exclusive stock buckets
type StockLevel int

const (
	OutOfStock StockLevel = iota
	LowStock
	MediumStock
	HighStock
)

func (l StockLevel) String() string {
	switch l {
	case OutOfStock:
		return "Out of Stock"
	case LowStock:
		return "Low Stock"
	case MediumStock:
		return "Medium Stock"
	default:
		return "High Stock"
	}
}

// IsLowStock reports whether quantity is at or below the minimum level
func IsLowStock(quantity, minStockLevel int64) bool {
	return quantity <= minStockLevel
}

// ClassifyStock buckets a quantity. Checks apply in order: empty, low,
// medium, high.
func ClassifyStock(quantity, minStockLevel int64) StockLevel {
	switch {
	case quantity == 0:
		return OutOfStock
	case IsLowStock(quantity, minStockLevel):
		return LowStock
	case quantity <= MediumStockThreshold:
		return MediumStock
	default:
		return HighStock
	}
}

// InStock is the report status of a product that is neither empty nor low
const InStock = "In Stock"

// StockStatus is the three-way status used by the inventory report
func StockStatus(quantity, minStockLevel int64) string {
	switch level := ClassifyStock(quantity, minStockLevel); level {
	case OutOfStock, LowStock:
		return level.String()
	default:
		return InStock
	}
}

// StockLevelSQL returns a CASE expression equivalent to ClassifyStock over
// the given columns
func StockLevelSQL(quantityCol, minCol string) string {
	return fmt.Sprintf(
		"CASE WHEN %[1]s = 0 THEN '%[3]s' WHEN %[1]s <= %[2]s THEN '%[4]s' WHEN %[1]s <= %[5]d THEN '%[6]s' ELSE '%[7]s' END",
		quantityCol, minCol,
		OutOfStock, LowStock, MediumStockThreshold, MediumStock, HighStock,
	)
}

// StockStatusSQL returns a CASE expression equivalent to StockStatus
func StockStatusSQL(quantityCol, minCol string) string {
	return fmt.Sprintf(
		"CASE WHEN %[1]s = 0 THEN '%[3]s' WHEN %[1]s <= %[2]s THEN '%[4]s' ELSE '%[5]s' END",
		quantityCol, minCol, OutOfStock, LowStock, InStock,
	)
}

// LowStockSQL returns the low-stock predicate over the given columns
func LowStockSQL(quantityCol, minCol string) string {
	return fmt.Sprintf("%s <= %s", quantityCol, minCol)
}
