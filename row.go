package cursor

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
)

// IDField is the column used as a row key when present.
const IDField = "id"

// LineField is the reserved column carrying the 1-based source line of a
// record read from a text file.
const LineField = "_line"

// Row is an ordered mapping from column name to scalar value. Rows are
// immutable; With returns a modified copy.
type Row struct {
	columns []string
	values  []any
}

// Rower is implemented by values that can present themselves as a Row.
type Rower interface {
	Row() Row
}

// NewRow builds a row from parallel column and value slices. Missing values
// are nil. A repeated column keeps its first position and its last value, the
// way an associative fetch of a joined query behaves.
func NewRow(columns []string, values []any) Row {
	r := Row{
		columns: make([]string, 0, len(columns)),
		values:  make([]any, 0, len(columns)),
	}
	for i, col := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if j := slices.Index(r.columns, col); j >= 0 {
			r.values[j] = v
			continue
		}
		r.columns = append(r.columns, col)
		r.values = append(r.values, v)
	}
	return r
}

// RowOf builds a row from alternating column names and values.
func RowOf(pairs ...any) Row {
	columns := make([]string, 0, len(pairs)/2)
	values := make([]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		columns = append(columns, fmt.Sprint(pairs[i]))
		values = append(values, pairs[i+1])
	}
	return NewRow(columns, values)
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	return slices.Clone(r.columns)
}

// Values returns the values in column order.
func (r Row) Values() []any {
	return slices.Clone(r.values)
}

// Get returns the value of the named column.
func (r Row) Get(column string) (any, bool) {
	i := slices.Index(r.columns, column)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// At returns the value at column index i.
func (r Row) At(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// With returns a copy of r with column set to value. New columns are
// appended.
func (r Row) With(column string, value any) Row {
	cp := Row{columns: slices.Clone(r.columns), values: slices.Clone(r.values)}
	if i := slices.Index(cp.columns, column); i >= 0 {
		cp.values[i] = value
		return cp
	}
	cp.columns = append(cp.columns, column)
	cp.values = append(cp.values, value)
	return cp
}

// Without returns a copy of r without column.
func (r Row) Without(column string) Row {
	i := slices.Index(r.columns, column)
	if i < 0 {
		return r
	}
	return Row{
		columns: slices.Delete(slices.Clone(r.columns), i, i+1),
		values:  slices.Delete(slices.Clone(r.values), i, i+1),
	}
}

// ID returns the "id" column when it is present and not NULL.
func (r Row) ID() (any, bool) {
	v, ok := r.Get(IDField)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Map returns the row as a plain map. Column order is lost.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, col := range r.columns {
		m[col] = r.values[i]
	}
	return m
}

// Equal reports whether both rows hold the same columns and values in the
// same order.
func (r Row) Equal(o Row) bool {
	return slices.Equal(r.columns, o.columns) && reflect.DeepEqual(r.values, o.values)
}

func (r Row) String() string {
	return fmt.Sprint(r.Map())
}

// AsRow converts an exported cursor value to a Row. Maps are ordered by key.
func AsRow(v any) (Row, error) {
	switch v := v.(type) {
	case Row:
		return v, nil
	case *Row:
		if v == nil {
			return Row{}, MalformedInput("nil row")
		}
		return *v, nil
	case Rower:
		return v.Row(), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = v[k]
		}
		return NewRow(keys, values), nil
	}
	return Row{}, MalformedInput("value of type %T is not a row", v)
}

// NormalizeKey folds integer keys of any width to int and byte slices to
// strings so keys coming from different drivers compare equal.
func NormalizeKey(k Key) Key {
	switch v := k.(type) {
	case nil, int, string:
		return v
	case []byte:
		return string(v)
	}
	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint())
	}
	return k
}
