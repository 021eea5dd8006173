package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// Logical sheets of the backing spreadsheet.
const (
	CatalogSheet = "Sheet1"
	RequestSheet = "Sheet2"
	EmailSheet   = "Sheet3"
)

var headers = map[string][]string{
	CatalogSheet: {"title", "author", "publisher", "price", "image", "description", "category", "isbn", "detailUrl"},
	RequestSheet: {
		"requestDate", "name", "email", "institution", "department",
		"address", "reason", "bookId", "bookTitle", "bookAuthor",
		"bookIsbn", "status",
	},
	EmailSheet: {"email", "name", "institution", "department", "registrationDate"},
}

// Headers returns the column order of a known sheet, or nil.
func Headers(sheet string) []string {
	h, ok := headers[sheet]
	if !ok {
		return nil
	}
	return append([]string(nil), h...)
}

// Project keeps only the schema columns of a known sheet and fills the
// missing ones with "". Unknown sheets pass through untouched.
func Project(sheet string, data map[string]any) map[string]any {
	cols, ok := headers[sheet]
	if !ok {
		return data
	}
	out := make(map[string]any, len(cols))
	for _, col := range cols {
		if v, ok := data[col]; ok && v != nil {
			out[col] = v
			continue
		}
		out[col] = ""
	}
	return out
}

// Row is one data row keyed by header. Cell values arrive as whatever JSON
// type the spreadsheet produced.
type Row map[string]any

// String renders a cell as text; absent cells are "".
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int reads a cell as an integer using leading digits only, so "35,000" or
// "35000원" still yield a value. Unparseable cells are 0.
func (r Row) Int(key string) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case string:
		return leadingInt(strings.TrimSpace(v))
	default:
		return 0
	}
}

func leadingInt(s string) int {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	n := 0
	seen := false
	for _, r := range s {
		if r == ',' && seen {
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		seen = true
		n = n*10 + int(r-'0')
	}
	if neg {
		return -n
	}
	return n
}
