package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/platinummonkey/stockroom/pkg/apperr"
)

// Kind is a report type
type Kind int

const (
	Inventory Kind = iota
	Products
	Users
)

// Kinds lists every report kind
func Kinds() []Kind {
	return []Kind{Inventory, Products, Users}
}

func (k Kind) String() string {
	switch k {
	case Inventory:
		return "inventory"
	case Products:
		return "products"
	case Users:
		return "users"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Title is the human readable report name
func (k Kind) Title() string {
	switch k {
	case Inventory:
		return "Inventory Report"
	case Products:
		return "Products Report"
	case Users:
		return "Users Report"
	default:
		return k.String()
	}
}

// ParseKind maps a query value to a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, apperr.Validation("Invalid report type")
}

// Format is a report encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", apperr.Validation("Invalid report format")
	}
}

// ContentType is the HTTP media type of f
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Table is a flat projection. Every row has one value per column; values
// are nil, string, int64, float64, bool or time.Time.
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// Report is a generated table with its metadata
type Report struct {
	Kind        Kind
	Name        string
	GeneratedAt time.Time
	Table       Table
}

// Filename is the download name for f
func (r *Report) Filename(f Format) string {
	return fmt.Sprintf("%s.%s", r.Name, f)
}

// orderedRow marshals as a JSON object keeping column order
type orderedRow struct {
	columns []string
	values  []interface{}
}

func (o orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range o.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal column %s: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON renders the report envelope with rows as objects
func (r *Report) MarshalJSON() ([]byte, error) {
	data := make([]orderedRow, len(r.Table.Rows))
	for i, row := range r.Table.Rows {
		data[i] = orderedRow{columns: r.Table.Columns, values: row}
	}
	return json.Marshal(struct {
		ReportName  string       `json:"reportName"`
		GeneratedAt time.Time    `json:"generatedAt"`
		Data        []orderedRow `json:"data"`
	}{
		ReportName:  r.Name,
		GeneratedAt: r.GeneratedAt,
		Data:        data,
	})
}
