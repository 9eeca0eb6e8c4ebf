package gateway

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DateLayout is the storage format of date-only fields.
const DateLayout = "2006-01-02"

// Record is a flat mapping of field names to scalar or sequence values.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the primary key rendered as a string.
func (r Record) ID() string {
	return r.String(IDField)
}

// String renders the field as text; nil and missing fields yield "".
func (r Record) String(field string) string {
	return ValueString(r[field])
}

// Int returns the field as an integer, 0 when absent or not numeric.
func (r Record) Int(field string) int64 {
	switch v := r[field].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	case decimal.Decimal:
		return v.IntPart()
	case pgtype.Numeric:
		return numericDecimal(v).IntPart()
	}
	return 0
}

// Bool returns the field as a boolean.
func (r Record) Bool(field string) bool {
	switch v := r[field].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case int64:
		return v != 0
	case int:
		return v != 0
	case json.Number:
		return v.String() != "0"
	}
	return false
}

// Decimal returns the field as a decimal, zero when absent or malformed.
func (r Record) Decimal(field string) decimal.Decimal {
	switch v := r[field].(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err == nil {
			return d
		}
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err == nil {
			return d
		}
	case pgtype.Numeric:
		return numericDecimal(v)
	}
	return decimal.Zero
}

// Date parses a date-only field; ok is false for empty or malformed values.
func (r Record) Date(field string) (time.Time, bool) {
	switch v := r[field].(type) {
	case time.Time:
		return v, !v.IsZero()
	case pgtype.Date:
		return v.Time, v.Valid
	case string:
		s := strings.TrimSpace(v)
		if len(s) > len(DateLayout) {
			s = s[:len(DateLayout)]
		}
		t, err := time.Parse(DateLayout, s)
		return t, err == nil
	}
	return time.Time{}, false
}

// ValueString renders a stored scalar as text.
func ValueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case decimal.Decimal:
		return val.String()
	case pgtype.Numeric:
		return numericDecimal(val).String()
	case time.Time:
		return val.Format(DateLayout)
	case pgtype.Date:
		if !val.Valid {
			return ""
		}
		return val.Time.Format(DateLayout)
	case [16]byte:
		return uuid.UUID(val).String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func numericDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(n.Int), n.Exp)
}
