package codegen

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

func typeOf(base schema.PrimitiveType) *schema.TypeSpec {
	return &schema.TypeSpec{BaseType: base}
}

func TestCoerce(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		typ     schema.PrimitiveType
		in      interface{}
		strict  bool
		want    interface{}
		wantErr bool
	}{
		{"int widens", schema.TypeInt, int32(7), true, int64(7), false},
		{"uint8 widens", schema.TypeBigInt, uint8(200), true, int64(200), false},
		{"strict int rejects float", schema.TypeInt, 7.0, true, nil, true},
		{"lenient int takes whole float", schema.TypeInt, 7.0, false, int64(7), false},
		{"lenient int rejects fraction", schema.TypeInt, 7.5, false, nil, true},
		{"lenient int takes json number", schema.TypeInt, json.Number("12"), false, int64(12), false},
		{"strict int rejects text", schema.TypeInt, "12", true, nil, true},
		{"float from int", schema.TypeFloat, 3, true, float64(3), false},
		{"lenient float from text", schema.TypeFloat, "2.5", false, 2.5, false},
		{"decimal from int", schema.TypeDecimal, 2, true, decimal.NewFromInt(2), false},
		{"strict decimal rejects text", schema.TypeDecimal, "2.5", true, nil, true},
		{"string", schema.TypeString, "abc", true, "abc", false},
		{"strict string rejects int", schema.TypeString, 1, true, nil, true},
		{"lenient string from bytes", schema.TypeText, []byte("abc"), false, "abc", false},
		{"bool", schema.TypeBool, true, true, true, false},
		{"lenient bool from text", schema.TypeBool, "true", false, true, false},
		{"timestamp", schema.TypeTimestamp, ts, true, ts, false},
		{"strict timestamp rejects text", schema.TypeTimestamp, "2024-03-01T12:00:00Z", true, nil, true},
		{"lenient date from text", schema.TypeDate, "2024-03-01", false, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"uuid from text", schema.TypeUUID, id.String(), true, id, false},
		{"uuid rejects garbage", schema.TypeUUID, "not-a-uuid", true, nil, true},
		{"nil passes through", schema.TypeInt, nil, true, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(typeOf(tt.typ), tt.in, tt.strict)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if d, ok := tt.want.(decimal.Decimal); ok {
				assert.True(t, d.Equal(got.(decimal.Decimal)))
				return
			}
			if ts, ok := tt.want.(time.Time); ok {
				assert.True(t, ts.Equal(got.(time.Time)))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce_Enum(t *testing.T) {
	enum := &schema.TypeSpec{BaseType: schema.TypeEnum, EnumValues: []string{"draft", "published"}}

	got, err := Coerce(enum, "Draft", true)
	require.NoError(t, err)
	assert.Equal(t, "draft", got, "bound values take the declared spelling")

	_, err = Coerce(enum, "deleted", true)
	assert.Error(t, err)

	got, err = Coerce(enum, "deleted", false)
	require.NoError(t, err)
	assert.Equal(t, "deleted", got)
}

func TestParse(t *testing.T) {
	got, err := Parse(typeOf(schema.TypeInt), " 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	got, err = Parse(typeOf(schema.TypeTimestamp), "2024-03-01T12:00:00Z")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Equal(got.(time.Time)))

	_, err = Parse(typeOf(schema.TypeBool), "maybe")
	assert.Error(t, err)
}

func TestKeyAndEqual(t *testing.T) {
	a := decimal.RequireFromString("1.50")
	b := decimal.RequireFromString("1.5")
	assert.Equal(t, Key(a), Key(b))
	assert.True(t, Equal(a, b))

	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.In(time.FixedZone("CET", 3600))
	assert.Equal(t, Key(t1), Key(t2))
	assert.True(t, Equal(t1, t2))

	// 2^64 nanoseconds after the epoch wraps a nanosecond count back to zero
	epoch := time.Unix(0, 0)
	farFuture := time.Unix(18446744073, 709551616)
	assert.NotEqual(t, Key(epoch), Key(farFuture))
	s := NewValueSet(epoch)
	assert.False(t, s.Has(farFuture))
	assert.True(t, s.Has(epoch.In(time.FixedZone("PST", -8*3600))))

	assert.False(t, Equal(int64(1), float64(1)))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(int64(1), int64(2)))
	assert.Equal(t, 1, Compare(2.5, 1.5))
	assert.Equal(t, 0, Compare("a", "a"))
	assert.Equal(t, -1, Compare(false, true))
	assert.Equal(t, 1, Compare(decimal.NewFromInt(3), decimal.NewFromInt(2)))
	assert.Equal(t, -1, Compare(time.Unix(1, 0), time.Unix(2, 0)))

	low := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	high := uuid.MustParse("cccccccc-0000-0000-0000-000000000000")
	assert.Equal(t, -1, Compare(low, high))
	assert.Equal(t, 1, Compare(high, low))
	assert.Equal(t, 0, Compare(low, low))
}

func TestZero(t *testing.T) {
	assert.Equal(t, int64(0), Zero(typeOf(schema.TypeBigInt)))
	assert.Equal(t, "", Zero(typeOf(schema.TypeEnum)))
	assert.Equal(t, uuid.Nil, Zero(typeOf(schema.TypeUUID)))
	assert.True(t, Zero(typeOf(schema.TypeDecimal)).(decimal.Decimal).IsZero())
}

func TestValueSet(t *testing.T) {
	s := NewValueSet(int64(1), int64(2), int64(1))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []interface{}{int64(1), int64(2)}, s.Values())
	assert.True(t, s.Has(int64(2)))
	assert.False(t, s.Has(int64(3)))
}

func TestBindArg(t *testing.T) {
	intSlot := &ast.ArgSlot{Index: 0, Type: typeOf(schema.TypeInt)}
	nullSlot := &ast.ArgSlot{Index: 1, Type: &schema.TypeSpec{BaseType: schema.TypeInt, Nullable: true}}
	arraySlot := &ast.ArgSlot{Index: 2, IsArray: true, Type: typeOf(schema.TypeString)}

	got, err := BindArg(intSlot, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	_, err = BindArg(intSlot, "5")
	assert.ErrorIs(t, err, ferrors.ErrArgTypeMismatch)

	_, err = BindArg(intSlot, nil)
	assert.ErrorIs(t, err, ferrors.ErrNullArg)

	got, err = BindArg(nullSlot, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = BindArg(arraySlot, []string{"a", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.(*ValueSet).Len())

	_, err = BindArg(arraySlot, []interface{}{"a", nil})
	assert.ErrorIs(t, err, ferrors.ErrNullArg)

	_, err = BindArg(arraySlot, "a")
	assert.ErrorIs(t, err, ferrors.ErrArgTypeMismatch)

	_, err = BindArg(arraySlot, NewValueSet("a", int64(3)))
	assert.ErrorIs(t, err, ferrors.ErrArgTypeMismatch)

	ids := &ast.ArgSlot{Index: 3, IsArray: true, Type: typeOf(schema.TypeInt)}
	got, err = BindArg(ids, NewValueSet(1, int64(1), uint8(2)))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, got.(*ValueSet).Values())

	_, err = BindArg(&ast.ArgSlot{}, 1)
	assert.ErrorIs(t, err, ferrors.ErrUnexpectedNode)
}

func TestParseArg(t *testing.T) {
	intSlot := &ast.ArgSlot{Index: 0, Type: typeOf(schema.TypeInt)}
	nullSlot := &ast.ArgSlot{Index: 1, Type: &schema.TypeSpec{BaseType: schema.TypeString, Nullable: true}}
	arraySlot := &ast.ArgSlot{Index: 2, IsArray: true, Type: typeOf(schema.TypeInt)}

	got, err := ParseArg(intSlot, "12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), got)

	_, err = ParseArg(intSlot, "twelve")
	assert.ErrorIs(t, err, ferrors.ErrArgParse)

	got, err = ParseArg(nullSlot, "NULL")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseArg(arraySlot, "1, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, got.(*ValueSet).Values())

	got, err = ParseArg(arraySlot, "")
	require.NoError(t, err)
	assert.Equal(t, 0, got.(*ValueSet).Len())
}
