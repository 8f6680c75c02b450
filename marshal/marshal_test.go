package marshal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scala-ide/sdbg/identity"
	"github.com/scala-ide/sdbg/wire"
	"github.com/scala-ide/sdbg/wire/fake"
)

func newMarshaler() *Marshaler {
	return New(identity.New())
}

func TestMarshalPrimitives(t *testing.T) {
	cases := []struct {
		name    string
		value   wire.PrimitiveValue
		summary string
	}{
		{"bool true", wire.PrimitiveValue{V: true, TypeNameV: "boolean"}, "true"},
		{"char", wire.PrimitiveValue{V: rune('x'), TypeNameV: "char"}, "'x'"},
		{"int", wire.PrimitiveValue{V: int32(42), TypeNameV: "int"}, "42"},
		{"long", wire.PrimitiveValue{V: int64(-7), TypeNameV: "long"}, "-7"},
		{"double", wire.PrimitiveValue{V: 3.5, TypeNameV: "double"}, "3.5"},
	}
	m := newMarshaler()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := m.Marshal(c.value)
			assert.Equal(t, KindPrimitive, v.Kind)
			assert.Equal(t, c.summary, v.Summary)
		})
	}
}

func TestMarshalStringQuotesSummary(t *testing.T) {
	m := newMarshaler()
	s := fake.NewString(fake.NextObjectID(), "hello")
	v := m.Marshal(s)
	assert.Equal(t, KindString, v.Kind)
	assert.Equal(t, `"hello"`, v.Summary)
	assert.True(t, v.HasObjectID)
}

func TestMarshalArrayTruncatesAfterThree(t *testing.T) {
	m := newMarshaler()
	elems := []wire.Value{
		wire.PrimitiveValue{V: int32(1), TypeNameV: "int"},
		wire.PrimitiveValue{V: int32(2), TypeNameV: "int"},
		wire.PrimitiveValue{V: int32(3), TypeNameV: "int"},
		wire.PrimitiveValue{V: int32(4), TypeNameV: "int"},
	}
	arr := fake.NewArray(fake.NextObjectID(), "int", elems)
	v := m.Marshal(arr)
	assert.Equal(t, KindArray, v.Kind)
	assert.Equal(t, 4, v.Length)
	assert.Equal(t, "[1, 2, 3, ...]", v.Summary)
}

func TestMarshalArrayNoTruncationAtThreeOrFewer(t *testing.T) {
	m := newMarshaler()
	elems := []wire.Value{
		wire.PrimitiveValue{V: int32(1), TypeNameV: "int"},
		wire.PrimitiveValue{V: int32(2), TypeNameV: "int"},
	}
	arr := fake.NewArray(fake.NextObjectID(), "int", elems)
	v := m.Marshal(arr)
	assert.Equal(t, "[1, 2]", v.Summary)
}

func TestMarshalObjectSummaryIsInstanceOf(t *testing.T) {
	m := newMarshaler()
	rt := fake.NewClass("com.example.Foo", "Foo.scala")
	obj := fake.NewObject(fake.NextObjectID(), "com.example.Foo", rt)
	v := m.Marshal(obj)
	assert.Equal(t, "Instance of Foo", v.Summary)
}

func TestMarshalRefBoxUnwrapsElem(t *testing.T) {
	m := newMarshaler()
	rt := fake.NewClass("scala.runtime.IntRef", "IntRef.scala")
	rt.FieldsV = []wire.FieldDecl{{Name: "elem", TypeName: "int"}}
	box := fake.NewObject(fake.NextObjectID(), "scala.runtime.IntRef", rt)
	box.Fields["elem"] = wire.PrimitiveValue{V: int32(9), TypeNameV: "int"}

	v := m.Marshal(box)
	assert.Equal(t, "9", v.Summary)
}

func TestMarshalFieldsWalksSuperclassChain(t *testing.T) {
	m := newMarshaler()
	base := fake.NewClass("com.example.Base", "Base.scala")
	base.FieldsV = []wire.FieldDecl{{Name: "baseField", TypeName: "int"}}
	derived := fake.NewClass("com.example.Derived", "Derived.scala")
	derived.FieldsV = []wire.FieldDecl{{Name: "derivedField", TypeName: "String"}}
	derived.SuperclassV = base

	obj := fake.NewObject(fake.NextObjectID(), "com.example.Derived", derived)
	obj.Fields["derivedField"] = wireString("hi")
	obj.Fields["baseField"] = wire.PrimitiveValue{V: int32(1), TypeNameV: "int"}

	v := m.Marshal(obj)
	require.Len(t, v.Fields, 2)
	assert.Equal(t, "derivedField", v.Fields[0].Name)
	assert.Equal(t, "baseField", v.Fields[1].Name)
}

func TestMarshalFieldReadErrorRendersSentinel(t *testing.T) {
	m := newMarshaler()
	rt := fake.NewClass("com.example.Foo", "Foo.scala")
	rt.FieldsV = []wire.FieldDecl{{Name: "missing", TypeName: "int"}}
	obj := fake.NewObject(fake.NextObjectID(), "com.example.Foo", rt)
	// deliberately never set obj.Fields["missing"]

	v := m.Marshal(obj)
	require.Len(t, v.Fields, 1)
	assert.Equal(t, "???", v.Fields[0].Summary)
}

func TestMarshalArraySelfReferenceDoesNotRecurseForever(t *testing.T) {
	m := newMarshaler()
	id := fake.NextObjectID()
	arr := fake.NewArray(id, "java.lang.Object", nil)
	arr.Elems = []wire.Value{arr}

	v := m.Marshal(arr)
	assert.Contains(t, v.Summary, "@")
}

func TestParseRoundTripsPrimitives(t *testing.T) {
	m := newMarshaler()
	mirror := fake.NewVM(true)

	cases := []struct {
		typeName string
		input    string
	}{
		{"boolean", "true"},
		{"byte", "7"},
		{"short", "300"},
		{"int", "42"},
		{"long", "9999999999"},
		{"float", "1.5"},
		{"double", "2.718"},
		{"char", "'q'"},
	}
	for _, c := range cases {
		t.Run(c.typeName, func(t *testing.T) {
			v, err := m.Parse(mirror, c.typeName, c.input)
			require.NoError(t, err)
			assert.Equal(t, c.typeName, v.TypeName())
		})
	}
}

func TestParseStringUnquotes(t *testing.T) {
	m := newMarshaler()
	mirror := fake.NewVM(true)
	v, err := m.Parse(mirror, "String", `"hello"`)
	require.NoError(t, err)
	s, ok := v.(wire.StringRef)
	require.True(t, ok)
	assert.Equal(t, "hello", s.StringValue())
}

func TestParseUnsupportedType(t *testing.T) {
	m := newMarshaler()
	mirror := fake.NewVM(true)
	_, err := m.Parse(mirror, "com.example.Foo", "whatever")
	assert.ErrorIs(t, err, ErrUnsupported)
}

// wireString is a tiny helper that mints a fake.String with a fresh ID and
// returns it as a plain wire.Value, for use as a field value in tests.
func wireString(s string) wire.Value {
	return fake.NewString(fake.NextObjectID(), s)
}
