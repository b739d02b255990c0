package codegen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// Values are normalized per primitive type before comparison:
//
//	int, bigint          int64
//	float                float64
//	decimal              decimal.Decimal
//	string, text, enum   string
//	bool                 bool
//	timestamp, date      time.Time
//	uuid                 uuid.UUID

// Coerce converts v to the normalized representation of t. Strict mode is
// used for bound arguments: integers only widen into int/float/decimal, text
// is never parsed. Lenient mode is used for record and context values, which
// may come from JSON or a database driver.
func Coerce(t *schema.TypeSpec, v interface{}, strict bool) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch t.BaseType {
	case schema.TypeInt, schema.TypeBigInt:
		return toInt(v, strict)
	case schema.TypeFloat:
		return toFloat(v, strict)
	case schema.TypeDecimal:
		return toDecimal(v, strict)
	case schema.TypeString, schema.TypeText:
		return toString(v, strict)
	case schema.TypeEnum:
		s, err := toString(v, strict)
		if err != nil {
			return nil, err
		}
		if !strict || len(t.EnumValues) == 0 {
			return s, nil
		}
		declared, ok := lookupFold(t.EnumValues, s.(string))
		if !ok {
			return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(t.EnumValues, ", "))
		}
		return declared, nil
	case schema.TypeBool:
		return toBool(v, strict)
	case schema.TypeTimestamp, schema.TypeDate:
		return toTime(v, strict)
	case schema.TypeUUID:
		return toUUID(v)
	}
	return nil, fmt.Errorf("unsupported type %s", t.BaseType)
}

// Parse converts text to the normalized representation of t
func Parse(t *schema.TypeSpec, text string) (interface{}, error) {
	switch t.BaseType {
	case schema.TypeInt, schema.TypeBigInt:
		return strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	case schema.TypeFloat:
		return strconv.ParseFloat(strings.TrimSpace(text), 64)
	case schema.TypeDecimal:
		return decimal.NewFromString(strings.TrimSpace(text))
	case schema.TypeBool:
		return strconv.ParseBool(strings.TrimSpace(text))
	case schema.TypeTimestamp, schema.TypeDate:
		return parseTime(strings.TrimSpace(text))
	case schema.TypeUUID:
		return uuid.Parse(strings.TrimSpace(text))
	default:
		return Coerce(t, text, true)
	}
}

// Zero returns the default value of t, used when a nullable value is absent
func Zero(t *schema.TypeSpec) interface{} {
	switch t.BaseType {
	case schema.TypeInt, schema.TypeBigInt:
		return int64(0)
	case schema.TypeFloat:
		return float64(0)
	case schema.TypeDecimal:
		return decimal.Zero
	case schema.TypeBool:
		return false
	case schema.TypeTimestamp, schema.TypeDate:
		return time.Time{}
	case schema.TypeUUID:
		return uuid.Nil
	default:
		return ""
	}
}

// Key returns a comparable map key for a normalized value
func Key(v interface{}) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		return decimalKey(x)
	case time.Time:
		return timeKey{sec: x.Unix(), nsec: x.Nanosecond()}
	default:
		return v
	}
}

// timeKey identifies an instant independent of location and monotonic reading
type timeKey struct {
	sec  int64
	nsec int
}

// Equal compares two normalized values of the same type
func Equal(a, b interface{}) bool {
	switch x := a.(type) {
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	default:
		return a == b
	}
}

// Compare orders two normalized values of the same ordered type
func Compare(a, b interface{}) int {
	switch x := a.(type) {
	case int64:
		y := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case decimal.Decimal:
		return x.Cmp(b.(decimal.Decimal))
	case string:
		return strings.Compare(x, b.(string))
	case time.Time:
		return x.Compare(b.(time.Time))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case uuid.UUID:
		y := b.(uuid.UUID)
		return bytes.Compare(x[:], y[:])
	}
	return 0
}

// decimalKey renders d without trailing fractional zeros so 1.50 and 1.5 collide
func decimalKey(d decimal.Decimal) string {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

func toInt(v interface{}, strict bool) (interface{}, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt(x)
	}
	if strict {
		return nil, typeError(v)
	}

	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) {
			return int64(x), nil
		}
	case float32:
		if float64(x) == math.Trunc(float64(x)) {
			return int64(x), nil
		}
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return nil, typeError(v)
}

func uintToInt(x uint64) (interface{}, error) {
	if x > math.MaxInt64 {
		return nil, fmt.Errorf("%d overflows int64", x)
	}
	return int64(x), nil
}

func toFloat(v interface{}, strict bool) (interface{}, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	}
	if i, err := toInt(v, true); err == nil {
		return float64(i.(int64)), nil
	}
	if strict {
		return nil, typeError(v)
	}

	switch x := v.(type) {
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return nil, typeError(v)
}

func toDecimal(v interface{}, strict bool) (interface{}, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x != nil {
			return *x, nil
		}
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	}
	if i, err := toInt(v, true); err == nil {
		return decimal.NewFromInt(i.(int64)), nil
	}
	if strict {
		return nil, typeError(v)
	}

	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		return decimal.NewFromString(x)
	case []byte:
		return decimal.NewFromString(string(x))
	}
	return nil, typeError(v)
}

func toString(v interface{}, strict bool) (interface{}, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		if !strict {
			return string(x), nil
		}
	case fmt.Stringer:
		if !strict {
			return x.String(), nil
		}
	}
	return nil, typeError(v)
}

func toBool(v interface{}, strict bool) (interface{}, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if !strict {
		switch x := v.(type) {
		case string:
			return strconv.ParseBool(x)
		case int64:
			return x != 0, nil
		}
	}
	return nil, typeError(v)
}

func toTime(v interface{}, strict bool) (interface{}, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x != nil {
			return *x, nil
		}
	case string:
		if !strict {
			return parseTime(x)
		}
	}
	return nil, typeError(v)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func toUUID(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case string:
		return uuid.Parse(x)
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		return uuid.ParseBytes(x)
	}
	return nil, typeError(v)
}

func typeError(v interface{}) error {
	return fmt.Errorf("unexpected %s", TypeName(v))
}

// TypeName returns a readable name for the dynamic type of v
func TypeName(v interface{}) string {
	if v == nil {
		return "null"
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	}
	return t.String()
}

// lookupFold returns the declared spelling of s
func lookupFold(values []string, s string) (string, bool) {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}
