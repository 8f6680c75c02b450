// Package marshal converts target-runtime values into a stable,
// client-facing Debug Value representation (with short summaries and
// field lists) and converts textual client input back into target-runtime
// values where the runtime's primitive grammar supports it.
package marshal

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/scala-ide/sdbg/identity"
	"github.com/scala-ide/sdbg/wire"
)

// ErrUnsupported is returned by Parse for any type the string-to-value
// grammar does not recognize.
var ErrUnsupported = errors.New("marshal: unsupported type for textual value")

// Kind tags which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindPrimitive
	KindString
	KindArray
	KindObject
)

// Value is the client-facing rendering of a target-runtime value.
type Value struct {
	Kind            Kind
	Summary         string
	TypeName        string
	ElementTypeName string // Array only
	Length          int    // Array only
	ObjectID        wire.ObjectID
	HasObjectID     bool
	Fields          []Field
}

// Field is one entry of an Object or String value's field list.
type Field struct {
	Index    int
	Name     string
	TypeName string
	Summary  string
}

// refBoxPattern matches the "reference box" shape the runtime uses to box
// a single mutable local captured by a closure: a type named like
// "scala.runtime.IntRef" with one field literally named "elem".
var refBoxPattern = regexp.MustCompile(`\.[A-Z][a-z]+Ref$`)

// Marshaler renders wire.Value into the client-facing Value shape and
// registers each marshaled object in the supplied Identity Cache.
type Marshaler struct {
	cache *identity.Cache
}

// New returns a Marshaler that remembers objects in cache.
func New(cache *identity.Cache) *Marshaler {
	return &Marshaler{cache: cache}
}

// Marshal converts v into a full Debug Value, including field
// enumeration for Object/String values. If v is an ObjectRef it is
// inserted into the Identity Cache so a later request can dereference it
// by ID; objects reached only while rendering summaries (field values,
// array elements) are not inserted.
func (m *Marshaler) Marshal(v wire.Value) Value {
	return m.marshal(v, make(map[wire.ObjectID]bool))
}

func (m *Marshaler) marshal(v wire.Value, visiting map[wire.ObjectID]bool) Value {
	if v == nil {
		return Value{Kind: KindNull, TypeName: "null"}
	}
	switch ref := v.(type) {
	case wire.NullValue:
		return Value{Kind: KindNull, TypeName: ref.TypeName()}
	case wire.ArrayRef:
		id := m.remember(ref)
		return Value{
			Kind:            KindArray,
			Summary:         m.summary(v, visiting),
			TypeName:        ref.TypeName(),
			ElementTypeName: ref.ReferenceType().ComponentTypeName(),
			Length:          ref.Length(),
			ObjectID:        id,
			HasObjectID:     true,
		}
	case wire.StringRef:
		id := m.remember(ref)
		return Value{
			Kind:        KindString,
			Summary:     m.summary(v, visiting),
			TypeName:    ref.TypeName(),
			Fields:      m.fields(ref, visiting),
			ObjectID:    id,
			HasObjectID: true,
		}
	case wire.ObjectRef:
		id := m.remember(ref)
		return Value{
			Kind:        KindObject,
			Summary:     m.summary(v, visiting),
			TypeName:    ref.TypeName(),
			Fields:      m.fields(ref, visiting),
			ObjectID:    id,
			HasObjectID: true,
		}
	case wire.PrimitiveValue:
		return Value{Kind: KindPrimitive, Summary: m.summary(v, visiting), TypeName: ref.TypeName()}
	default:
		return Value{Kind: KindPrimitive, Summary: fmt.Sprintf("%v", v), TypeName: v.TypeName()}
	}
}

func (m *Marshaler) remember(ref wire.ObjectRef) wire.ObjectID {
	remembered := m.cache.Remember(ref)
	return remembered.ID()
}

// summary renders the short textual summary of v, without building a
// full field list.
func (m *Marshaler) summary(v wire.Value, visiting map[wire.ObjectID]bool) string {
	switch ref := v.(type) {
	case nil:
		return "null"
	case wire.NullValue:
		return "null"
	case wire.PrimitiveValue:
		return summarizePrimitive(ref)
	case wire.StringRef:
		return `"` + ref.StringValue() + `"`
	case wire.ArrayRef:
		return m.summarizeArray(ref, visiting)
	case wire.ObjectRef:
		return m.summarizeObject(ref, visiting)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func summarizePrimitive(p wire.PrimitiveValue) string {
	switch p.TypeNameV {
	case "boolean":
		return fmt.Sprintf("%v", p.V)
	case "char":
		if r, ok := p.V.(rune); ok {
			return fmt.Sprintf("'%c'", r)
		}
		return fmt.Sprintf("'%v'", p.V)
	case "byte", "short", "int", "long":
		return fmt.Sprintf("%d", toInt64(p.V))
	case "float", "double":
		return strconv.FormatFloat(toFloat64(p.V), 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", p.V)
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

const ellipsis = "..."

func (m *Marshaler) summarizeArray(a wire.ArrayRef, visiting map[wire.ObjectID]bool) string {
	if visiting[a.ID()] {
		return fmt.Sprintf("(@%d...)", a.ID())
	}
	visiting[a.ID()] = true
	defer delete(visiting, a.ID())

	n := a.Length()
	show := n
	truncated := false
	if n > 3 {
		show = 3
		truncated = true
	}
	elems, err := a.GetValues(0, show)
	if err != nil {
		return fmt.Sprintf("[%d elements] (%v)", n, err)
	}
	parts := make([]string, 0, len(elems)+1)
	for _, e := range elems {
		parts = append(parts, m.summary(e, visiting))
	}
	if truncated {
		parts = append(parts, ellipsis)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (m *Marshaler) summarizeObject(o wire.ObjectRef, visiting map[wire.ObjectID]bool) string {
	if visiting[o.ID()] {
		return fmt.Sprintf("(@%d...)", o.ID())
	}
	typeName := o.TypeName()
	if elem, ok := refBoxElem(o, typeName); ok {
		visiting[o.ID()] = true
		defer delete(visiting, o.ID())
		return m.summary(elem, visiting)
	}
	return "Instance of " + lastNameComponent(typeName)
}

// refBoxElem recognizes the single-field reference-box shape and returns
// the boxed value if o qualifies.
func refBoxElem(o wire.ObjectRef, typeName string) (wire.Value, bool) {
	if !refBoxPattern.MatchString(typeName) {
		return nil, false
	}
	rt := o.ReferenceType()
	if rt == nil {
		return nil, false
	}
	var elemField *wire.FieldDecl
	for _, f := range rt.Fields() {
		f := f
		if f.Name == "elem" {
			elemField = &f
			break
		}
	}
	if elemField == nil {
		return nil, false
	}
	v, err := o.GetField(*elemField)
	if err != nil {
		return nil, false
	}
	return v, true
}

func lastNameComponent(typeName string) string {
	if i := strings.LastIndexByte(typeName, '.'); i >= 0 {
		return typeName[i+1:]
	}
	return typeName
}

// fields walks the declaring-class chain upward from o's dynamic type,
// collecting every static and instance field in declaration order. A
// field whose value cannot be read is rendered as "???" rather than
// aborting the whole enumeration.
func (m *Marshaler) fields(o wire.ObjectRef, visiting map[wire.ObjectID]bool) []Field {
	rt := o.ReferenceType()
	if rt == nil {
		return nil
	}
	var out []Field
	idx := 0
	for cur := rt; cur != nil; {
		for _, fd := range cur.Fields() {
			summary := "???"
			if v, err := o.GetField(fd); err == nil {
				summary = m.summary(v, visiting)
			}
			out = append(out, Field{Index: idx, Name: fd.Name, TypeName: fd.TypeName, Summary: summary})
			idx++
		}
		super, ok := cur.Superclass()
		if !ok {
			break
		}
		cur = super
	}
	return out
}

// stringTypeSuffix is how the target runtime's built-in string type is
// recognized: either exactly this name or qualified with a package
// prefix ending in it.
const stringTypeSuffix = "String"

func isStringType(typeName string) bool {
	return typeName == stringTypeSuffix || strings.HasSuffix(typeName, "."+stringTypeSuffix)
}

// Mirror is the subset of wire.VirtualMachine that Parse needs to create
// runtime-side values from parsed Go values.
type Mirror interface {
	MirrorOfPrimitive(v any) (wire.Value, error)
	MirrorOfString(s string) (wire.StringRef, error)
}

// Parse converts textual client input into a wire.Value of the given
// runtime type name. It returns ErrUnsupported for any type outside the
// primitive grammar and the runtime's string type.
func (m *Marshaler) Parse(mirror Mirror, typeName, input string) (wire.Value, error) {
	trimmed := strings.TrimSpace(input)
	switch typeName {
	case "boolean":
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return nil, fmt.Errorf("marshal: parse boolean %q: %w", trimmed, err)
		}
		return mirror.MirrorOfPrimitive(b)
	case "char":
		r, err := parseChar(trimmed)
		if err != nil {
			return nil, err
		}
		v, err := mirror.MirrorOfPrimitive(r)
		// A rune is an int32 in Go; tag a boxed primitive as char so it is
		// not taken for an int.
		if p, ok := v.(wire.PrimitiveValue); ok && err == nil {
			p.TypeNameV = "char"
			return p, nil
		}
		return v, err
	case "byte":
		n, err := strconv.ParseInt(trimmed, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("marshal: parse byte %q: %w", trimmed, err)
		}
		return mirror.MirrorOfPrimitive(int8(n))
	case "short":
		n, err := strconv.ParseInt(trimmed, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("marshal: parse short %q: %w", trimmed, err)
		}
		return mirror.MirrorOfPrimitive(int16(n))
	case "int":
		n, err := strconv.ParseInt(trimmed, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("marshal: parse int %q: %w", trimmed, err)
		}
		return mirror.MirrorOfPrimitive(int32(n))
	case "long":
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("marshal: parse long %q: %w", trimmed, err)
		}
		return mirror.MirrorOfPrimitive(n)
	case "float":
		f, err := strconv.ParseFloat(trimmed, 32)
		if err != nil {
			return nil, fmt.Errorf("marshal: parse float %q: %w", trimmed, err)
		}
		return mirror.MirrorOfPrimitive(float32(f))
	case "double":
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("marshal: parse double %q: %w", trimmed, err)
		}
		return mirror.MirrorOfPrimitive(f)
	default:
		if isStringType(typeName) {
			return mirror.MirrorOfString(unquote(input))
		}
		return nil, ErrUnsupported
	}
}

func parseChar(s string) (rune, error) {
	unquoted := s
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		unquoted = s[1 : len(s)-1]
	}
	rs := []rune(unquoted)
	if len(rs) != 1 {
		return 0, fmt.Errorf("marshal: parse char %q: want exactly one character", s)
	}
	return rs[0], nil
}

// unquote strips one pair of surrounding double quotes, if present;
// otherwise it returns the input verbatim.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
