package reports

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var quoteEscaper = strings.NewReplacer(`"`, `""`)

// WriteCSV writes t with every field double quoted and embedded quotes
// doubled. The header is empty when t has no rows, so an empty table is a
// single newline. Rows are separated by "\n" with no trailing newline.
func WriteCSV(w io.Writer, t Table) error {
	return writeCSV(w, t, quoteEscaper.Replace)
}

// WriteNaiveCSV is WriteCSV without quote escaping. A value containing a
// double quote produces a field that CSV readers split differently.
func WriteNaiveCSV(w io.Writer, t Table) error {
	return writeCSV(w, t, func(s string) string { return s })
}

func writeCSV(w io.Writer, t Table, escape func(string) string) error {
	bw := bufio.NewWriter(w)
	if len(t.Rows) > 0 {
		bw.WriteString(strings.Join(t.Columns, ","))
	}
	bw.WriteByte('\n')
	for i, row := range t.Rows {
		if i > 0 {
			bw.WriteByte('\n')
		}
		for j, v := range row {
			if j > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte('"')
			bw.WriteString(escape(formatValue(v)))
			bw.WriteByte('"')
		}
	}
	return bw.Flush()
}

// formatValue renders one cell. nil is the literal null.
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
