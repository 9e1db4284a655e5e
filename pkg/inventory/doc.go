// Package inventory stores products and classifies their stock levels.
//
// Store is the product repository: paginated listing with an exact type
// filter and a case-insensitive name search, creation with SKU uniqueness,
// lookup by id, and atomic quantity updates.
//
// Stock classification exists in two forms that are generated from the same
// constants: ClassifyStock for Go callers and StockLevelSQL for aggregate
// queries, so the buckets computed in the database and in Go cannot drift.
//
//	level := inventory.ClassifyStock(51, 10) // inventory.HighStock
//	level.String()                           // "High Stock"
package inventory
