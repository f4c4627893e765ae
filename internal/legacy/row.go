package legacy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrSchemaMismatch is returned when a source table is missing a column the
// consuming mapper requires.
var ErrSchemaMismatch = errors.New("source schema mismatch")

// Schema declares the columns a mapper requires from a source table.
// It is validated once when the source is opened; after that every row
// access by a required name is guaranteed to hit a bound column.
type Schema struct {
	Table    string
	Required []string
	Optional []string
}

// Bind validates the schema against the actual column header and returns
// the name -> position binding. Missing required columns are a hard error;
// missing optional columns are simply left unbound and read as nil.
func (s Schema) Bind(header []string) (*Binding, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range s.Required {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: table %q is missing columns: %s",
			ErrSchemaMismatch, s.Table, strings.Join(missing, ", "))
	}

	return &Binding{table: s.Table, columns: columns}, nil
}

// Binding maps column names to positions for one opened source table.
type Binding struct {
	table   string
	columns map[string]int
}

// Table returns the bound table name.
func (b *Binding) Table() string {
	return b.table
}

// Row is one record of a source table with named-field access.
// Accessors are nil-safe: absent columns and null cells read as the zero
// value with ok=false, never as an error.
type Row struct {
	binding     *Binding
	values      []Value
	dateFormats []string
}

// NewRow builds a row over the given values using the table's binding.
// dateFormats is the ordered candidate list used by Date and MustDate.
func NewRow(binding *Binding, values []Value, dateFormats []string) Row {
	return Row{binding: binding, values: values, dateFormats: dateFormats}
}

// value returns the raw cell for a column, or nil when the column is
// unbound or the record is short.
func (r Row) value(column string) Value {
	idx, ok := r.binding.columns[column]
	if !ok || idx >= len(r.values) {
		return nil
	}
	return r.values[idx]
}

// Str returns the trimmed string form of a column, "" when absent.
func (r Row) Str(column string) string {
	return AsString(r.value(column))
}

// Int returns a column as int64.
func (r Row) Int(column string) (int64, bool) {
	return AsInt64(r.value(column))
}

// Decimal returns a column as a decimal.
func (r Row) Decimal(column string) (decimal.Decimal, bool) {
	return AsDecimal(r.value(column))
}

// Bool returns a column as bool.
func (r Row) Bool(column string) (bool, bool) {
	return AsBool(r.value(column))
}

// Date returns a column as a date, trying the candidate layouts in order.
// Absent or unparseable values return ok=false.
func (r Row) Date(column string) (time.Time, bool) {
	v := r.value(column)
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	return ParseDate(AsString(v), r.dateFormats)
}

// MustDate returns a mandatory date column. A non-empty value that matches
// no layout is a hard error; an empty value is too.
func (r Row) MustDate(column string) (time.Time, error) {
	v := r.value(column)
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return MustParseDate(AsString(v), r.dateFormats)
}
