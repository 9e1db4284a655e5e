package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/stockroom/pkg/apperr"
	"github.com/platinummonkey/stockroom/pkg/pagination"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

// DefaultPerPage is the product page size when none is requested
const DefaultPerPage = 10

const productColumns = `id, name, type, sku, image_url, description, quantity, price, cost_price,
	min_stock_level, max_stock_level, supplier, location, created_by, created_at, updated_at`

// ListFilter narrows a product listing. Empty fields do not filter.
type ListFilter struct {
	// Type matches exactly
	Type string
	// Search is a case-insensitive substring of the name
	Search string
	Page   pagination.Params
}

// Store is the product repository
type Store struct {
	db       *sql.DB
	recorder storage.Recorder
	now      func() time.Time
}

// NewStore creates a product store. recorder may be nil.
func NewStore(db *sql.DB, recorder storage.Recorder) *Store {
	return &Store{
		db:       db,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var (
		p                                              Product
		typ, imageURL, description, supplier, location sql.NullString
		costPrice                                      sql.NullFloat64
		maxStock, createdBy                            sql.NullInt64
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&typ,
		&p.SKU,
		&imageURL,
		&description,
		&p.Quantity,
		&p.Price,
		&costPrice,
		&p.MinStockLevel,
		&maxStock,
		&supplier,
		&location,
		&createdBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Type = nullString(typ)
	p.ImageURL = nullString(imageURL)
	p.Description = nullString(description)
	p.Supplier = nullString(supplier)
	p.Location = nullString(location)
	if costPrice.Valid {
		v := costPrice.Float64
		p.CostPrice = &v
	}
	if maxStock.Valid {
		v := maxStock.Int64
		p.MaxStockLevel = &v
	}
	if createdBy.Valid {
		v := createdBy.Int64
		p.CreatedBy = &v
	}
	return &p, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes term match literally inside a LIKE pattern
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// List returns one page of products matching filter, newest first
func (s *Store) List(ctx context.Context, filter ListFilter) (products []Product, env pagination.Envelope, err error) {
	defer storage.Observe(s.recorder, "products.list", time.Now(), &err)

	page := filter.Page
	if page.PerPage < 1 {
		page = pagination.New(page.Page, 0, DefaultPerPage)
	}

	var (
		conds []string
		args  []interface{}
	)
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf(`LOWER(name) LIKE LOWER($%d) ESCAPE '\'`, len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, pagination.Envelope{}, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, pagination.Envelope{}, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products = []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, pagination.Envelope{}, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, pagination.Envelope{}, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, pagination.NewEnvelope(page, total), nil
}

// Create validates and inserts a product and returns its id. A duplicate SKU
// is Conflict and leaves the existing row untouched.
func (s *Store) Create(ctx context.Context, np NewProduct, createdBy *int64) (id int64, err error) {
	defer storage.Observe(s.recorder, "products.create", time.Now(), &err)

	if err := np.Validate(); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO products (name, type, sku, image_url, description, quantity, price, cost_price,
			min_stock_level, max_stock_level, supplier, location, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		np.Name,
		np.Type,
		np.SKU,
		np.ImageURL,
		np.Description,
		np.quantity(),
		*np.Price,
		np.CostPrice,
		np.minStockLevel(),
		np.MaxStockLevel,
		np.Supplier,
		np.Location,
		createdBy,
		s.now(),
	).Scan(&id)
	if storage.IsUniqueViolation(err) {
		return 0, apperr.Conflict(fmt.Sprintf("Product with SKU %s already exists", np.SKU))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	return id, nil
}

// Get returns the product with id
func (s *Store) Get(ctx context.Context, id int64) (p *Product, err error) {
	defer storage.Observe(s.recorder, "products.get", time.Now(), &err)

	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err = scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// UpdateQuantity sets the quantity of product id in a single statement and
// returns the updated product
func (s *Store) UpdateQuantity(ctx context.Context, id int64, quantity int64) (p *Product, err error) {
	defer storage.Observe(s.recorder, "products.update_quantity", time.Now(), &err)

	if quantity < 0 {
		return nil, apperr.Validation("Quantity must be a non-negative integer")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE products SET quantity = $1, updated_at = $2 WHERE id = $3`,
		quantity, s.now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}
	if affected == 0 {
		return nil, apperr.NotFound("Product not found")
	}

	return s.Get(ctx, id)
}

// CountLowStock returns the number of products at or below their minimum
// level. It is always evaluated against current rows.
func (s *Store) CountLowStock(ctx context.Context) (n int64, err error) {
	defer storage.Observe(s.recorder, "products.count_low_stock", time.Now(), &err)

	query := `SELECT COUNT(*) FROM products WHERE ` + LowStockSQL("quantity", "min_stock_level")
	if err = s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count low stock products: %w", err)
	}
	return n, nil
}
