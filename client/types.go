package client

import (
	"fmt"
	"time"

	"github.com/quantadb/quanta-go/dberr"
)

// --------------------------------------------------------------------------
// Value
// --------------------------------------------------------------------------

// ValueKind tags the runtime type of a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindTime
)

// String returns the string representation of a ValueKind.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Value is one typed cell of a result set or one bound query parameter.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind  ValueKind `cbor:"k"`
	Bool  bool      `cbor:"b,omitempty"`
	Int   int64     `cbor:"i,omitempty"`
	Float float64   `cbor:"f,omitempty"`
	Str   string    `cbor:"s,omitempty"`
	Bytes []byte    `cbor:"y,omitempty"`
	// TimeMs is unix milliseconds, zero only together with KindNull
	TimeMs int64 `cbor:"t,omitempty"`
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// BoolValue wraps a bool.
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// IntValue wraps an int64.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FloatValue wraps a float64.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// BytesValue wraps a byte slice.
func BytesValue(v []byte) Value { return Value{Kind: KindBytes, Bytes: v} }

// TimeValue wraps a timestamp with millisecond precision.
func TimeValue(v time.Time) Value { return Value{Kind: KindTime, TimeMs: v.UnixMilli()} }

// NewValue converts a native Go value. Unsupported types are an error so
// parameter mistakes surface at build time, not on the server.
func NewValue(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint32:
		return IntValue(int64(x)), nil
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		return FloatValue(x), nil
	case string:
		return StringValue(x), nil
	case []byte:
		return BytesValue(x), nil
	case time.Time:
		return TimeValue(x), nil
	case Value:
		return x, nil
	default:
		return Value{}, dberr.Serialization(fmt.Sprintf("unsupported parameter type %T", v), nil)
	}
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsBool returns the bool content or an error on kind mismatch.
func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, v.kindError(KindBool)
	}
	return v.Bool, nil
}

// AsInt returns the integer content or an error on kind mismatch.
func (v Value) AsInt() (int64, error) {
	if v.Kind != KindInt {
		return 0, v.kindError(KindInt)
	}
	return v.Int, nil
}

// AsFloat returns the float content; integers convert losslessly.
func (v Value) AsFloat() (float64, error) {
	switch v.Kind {
	case KindFloat:
		return v.Float, nil
	case KindInt:
		return float64(v.Int), nil
	default:
		return 0, v.kindError(KindFloat)
	}
}

// AsString returns the string content or an error on kind mismatch.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", v.kindError(KindString)
	}
	return v.Str, nil
}

// AsBytes returns the byte content or an error on kind mismatch.
func (v Value) AsBytes() ([]byte, error) {
	if v.Kind != KindBytes {
		return nil, v.kindError(KindBytes)
	}
	return v.Bytes, nil
}

// AsTime returns the timestamp content or an error on kind mismatch.
func (v Value) AsTime() (time.Time, error) {
	if v.Kind != KindTime {
		return time.Time{}, v.kindError(KindTime)
	}
	return time.UnixMilli(v.TimeMs), nil
}

func (v Value) kindError(want ValueKind) error {
	return dberr.Serialization(
		fmt.Sprintf("value is %s, not %s", v.Kind, want), nil)
}

// String renders the value for display.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("0x%x", v.Bytes)
	case KindTime:
		return time.UnixMilli(v.TimeMs).UTC().Format(time.RFC3339)
	default:
		return "?"
	}
}

// --------------------------------------------------------------------------
// Rows and Results
// --------------------------------------------------------------------------

// Row is one result row. The column slice is shared with the owning
// QueryResult.
type Row struct {
	columns []string
	values  []Value
}

// Values returns the row's cells in column order.
func (r Row) Values() []Value { return r.values }

// Get returns the cell at index i.
func (r Row) Get(i int) (Value, error) {
	if i < 0 || i >= len(r.values) {
		return Value{}, dberr.Internal("row", fmt.Sprintf("column index %d out of range [0,%d)", i, len(r.values)))
	}
	return r.values[i], nil
}

// GetByName returns the cell in the named column.
func (r Row) GetByName(name string) (Value, error) {
	for i, col := range r.columns {
		if col == name {
			return r.values[i], nil
		}
	}
	return Value{}, dberr.ColumnNotFound(name)
}

// QueryResult is the typed result of a query operation.
type QueryResult struct {
	Columns []string
	Rows    []Row
}

// RowCount returns the number of rows in the result.
func (q *QueryResult) RowCount() int { return len(q.Rows) }

// newQueryResult builds a result from wire data, wiring the shared column
// slice into every row.
func newQueryResult(columns []string, rows [][]Value) *QueryResult {
	result := &QueryResult{Columns: columns, Rows: make([]Row, len(rows))}
	for i, values := range rows {
		result.Rows[i] = Row{columns: columns, values: values}
	}
	return result
}

// ExecuteResult is the typed result of a statement execution.
type ExecuteResult struct {
	RowsAffected uint64 `cbor:"rows"`
	LastInsertID uint64 `cbor:"last_id,omitempty"`
}
