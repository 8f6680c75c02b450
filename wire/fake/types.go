package fake

import (
	"context"
	"fmt"

	"github.com/scala-ide/sdbg/wire"
)

// ReferenceType is a fake wire.ReferenceType, built up by hand per test.
type ReferenceType struct {
	NameV          string
	SourceNameV    string
	FieldsV        []wire.FieldDecl
	MethodsV       []wire.MethodDecl
	SuperclassV    *ReferenceType
	IsArrayV       bool
	ComponentTypeV string
	LocsByLine     map[int][]wire.Location
}

func NewClass(name, sourceName string) *ReferenceType {
	return &ReferenceType{NameV: name, SourceNameV: sourceName, LocsByLine: make(map[int][]wire.Location)}
}

// AddLocation registers a resolvable (sourcePath, line) position for this
// class, as if a method body covered that line.
func (r *ReferenceType) AddLocation(method, sourcePath string, line int) *ReferenceType {
	loc := wire.Location{
		Class:      r,
		Method:     method,
		SourcePath: sourcePath,
		SourceName: r.SourceNameV,
		Line:       line,
	}
	r.LocsByLine[line] = append(r.LocsByLine[line], loc)
	return r
}

func (r *ReferenceType) Name() string                  { return r.NameV }
func (r *ReferenceType) SourceName() (string, error)   { return r.SourceNameV, nil }
func (r *ReferenceType) Fields() []wire.FieldDecl       { return r.FieldsV }
func (r *ReferenceType) Methods() []wire.MethodDecl     { return r.MethodsV }
func (r *ReferenceType) IsArray() bool                  { return r.IsArrayV }
func (r *ReferenceType) ComponentTypeName() string      { return r.ComponentTypeV }

func (r *ReferenceType) LocationsOfLine(line int) ([]wire.Location, error) {
	return r.LocsByLine[line], nil
}

func (r *ReferenceType) Superclass() (wire.ReferenceType, bool) {
	if r.SuperclassV == nil {
		return nil, false
	}
	return r.SuperclassV, true
}

// Thread is a fake wire.ThreadReference with a fixed call stack.
type Thread struct {
	IDV     wire.ThreadID
	NameV   string
	FramesV []*Frame
}

func NewThread(id wire.ThreadID, name string) *Thread {
	return &Thread{IDV: id, NameV: name}
}

func (t *Thread) ID() wire.ThreadID { return t.IDV }
func (t *Thread) Name() string      { return t.NameV }

func (t *Thread) FrameCount() (int, error) { return len(t.FramesV), nil }

func (t *Thread) Frame(i int) (wire.StackFrame, error) {
	if i < 0 || i >= len(t.FramesV) {
		return nil, fmt.Errorf("fake: frame index %d out of range (have %d)", i, len(t.FramesV))
	}
	return t.FramesV[i], nil
}

// Frame is a fake wire.StackFrame.
type Frame struct {
	Loc       wire.Location
	This      wire.ObjectRef
	HasThis   bool
	Vars      []wire.Variable
	ValuesBySlot map[int]wire.Value
	Args      []wire.Value
}

func NewFrame(loc wire.Location) *Frame {
	return &Frame{Loc: loc, ValuesBySlot: make(map[int]wire.Value)}
}

func (f *Frame) WithThis(this wire.ObjectRef) *Frame {
	f.This, f.HasThis = this, true
	return f
}

func (f *Frame) WithVariable(v wire.Variable, val wire.Value) *Frame {
	f.Vars = append(f.Vars, v)
	f.ValuesBySlot[v.Slot] = val
	return f
}

func (f *Frame) Location() wire.Location        { return f.Loc }
func (f *Frame) ThisObject() (wire.ObjectRef, bool) { return f.This, f.HasThis }
func (f *Frame) VisibleVariables() ([]wire.Variable, error) { return f.Vars, nil }
func (f *Frame) ArgumentValues() ([]wire.Value, error)      { return f.Args, nil }

func (f *Frame) GetValue(v wire.Variable) (wire.Value, error) {
	val, ok := f.ValuesBySlot[v.Slot]
	if !ok {
		return nil, fmt.Errorf("fake: no value recorded for slot %d", v.Slot)
	}
	return val, nil
}

func (f *Frame) SetValue(v wire.Variable, val wire.Value) error {
	f.ValuesBySlot[v.Slot] = val
	return nil
}

// Object is a fake wire.ObjectRef. String and Array embed it to pick up
// the common object behavior.
type Object struct {
	IDV          wire.ObjectID
	TypeNameV    string
	RT           *ReferenceType
	Fields       map[string]wire.Value
	ToStringVal  string
	ToStringErr  error
}

func NewObject(id wire.ObjectID, typeName string, rt *ReferenceType) *Object {
	return &Object{IDV: id, TypeNameV: typeName, RT: rt, Fields: make(map[string]wire.Value)}
}

func (o *Object) TypeName() string { return o.TypeNameV }
func (o *Object) ID() wire.ObjectID { return o.IDV }

func (o *Object) ReferenceType() wire.ReferenceType {
	if o.RT == nil {
		return nil
	}
	return o.RT
}

func (o *Object) GetField(fd wire.FieldDecl) (wire.Value, error) {
	v, ok := o.Fields[fd.Name]
	if !ok {
		return nil, fmt.Errorf("fake: object %d has no field %q", o.IDV, fd.Name)
	}
	return v, nil
}

func (o *Object) SetField(fd wire.FieldDecl, v wire.Value) error {
	o.Fields[fd.Name] = v
	return nil
}

func (o *Object) InvokeString(ctx context.Context, thread wire.ThreadReference) (string, error) {
	return o.ToStringVal, o.ToStringErr
}

// String is a fake wire.StringRef.
type String struct {
	*Object
	Value string
}

func NewString(id wire.ObjectID, value string) *String {
	return &String{Object: NewObject(id, "String", nil), Value: value}
}

func (s *String) StringValue() string { return s.Value }

// Array is a fake wire.ArrayRef.
type Array struct {
	*Object
	Elems []wire.Value
}

// NewArray builds an array of componentType holding elems.
func NewArray(id wire.ObjectID, componentType string, elems []wire.Value) *Array {
	rt := &ReferenceType{
		NameV:          "[" + componentType,
		IsArrayV:       true,
		ComponentTypeV: componentType,
		LocsByLine:     make(map[int][]wire.Location),
	}
	return &Array{Object: NewObject(id, rt.NameV, rt), Elems: elems}
}

func (a *Array) Length() int { return len(a.Elems) }

func (a *Array) GetValues(offset, length int) ([]wire.Value, error) {
	if offset < 0 || length < 0 || offset+length > len(a.Elems) {
		return nil, fmt.Errorf("fake: array range [%d:%d) out of bounds (len %d)", offset, offset+length, len(a.Elems))
	}
	return a.Elems[offset : offset+length], nil
}

// EventRequestManager is a fake wire.EventRequestManager: it tracks every
// request it creates so a test can assert on what the Session enabled,
// without ever actually filtering target events (tests push events
// directly onto the VM's queue).
type EventRequestManager struct {
	ClassPrepare []*Request
	ThreadStart  []*Request
	ThreadDeath  []*Request
	Exception    []*Request
	Breakpoint   map[wire.Location]*Request
	Step         []*Request
}

func NewEventRequestManager() *EventRequestManager {
	return &EventRequestManager{Breakpoint: make(map[wire.Location]*Request)}
}

func (m *EventRequestManager) CreateClassPrepareRequest(policy wire.SuspendPolicy) (wire.Request, error) {
	r := &Request{}
	m.ClassPrepare = append(m.ClassPrepare, r)
	return r, nil
}

func (m *EventRequestManager) CreateThreadStartRequest(policy wire.SuspendPolicy) (wire.Request, error) {
	r := &Request{}
	m.ThreadStart = append(m.ThreadStart, r)
	return r, nil
}

func (m *EventRequestManager) CreateThreadDeathRequest(policy wire.SuspendPolicy) (wire.Request, error) {
	r := &Request{}
	m.ThreadDeath = append(m.ThreadDeath, r)
	return r, nil
}

func (m *EventRequestManager) CreateExceptionRequest(policy wire.SuspendPolicy, caught, uncaught bool) (wire.Request, error) {
	r := &Request{Caught: caught, Uncaught: uncaught}
	m.Exception = append(m.Exception, r)
	return r, nil
}

func (m *EventRequestManager) CreateBreakpointRequest(policy wire.SuspendPolicy, loc wire.Location) (wire.Request, error) {
	r := &Request{Location: loc}
	m.Breakpoint[loc] = r
	return r, nil
}

func (m *EventRequestManager) CreateStepRequest(policy wire.SuspendPolicy, thread wire.ThreadReference, depth wire.StepDepth) (wire.Request, error) {
	r := &Request{Thread: thread, Depth: depth}
	m.Step = append(m.Step, r)
	return r, nil
}

func (m *EventRequestManager) DeleteStepRequests() error {
	for _, r := range m.Step {
		r.Disable()
	}
	m.Step = nil
	return nil
}

func (m *EventRequestManager) DeleteRequest(req wire.Request) error {
	if r, ok := req.(*Request); ok {
		r.Disable()
	}
	return nil
}

// Request is a fake wire.Request that records its own enabled state.
type Request struct {
	Enabled  bool
	Location wire.Location
	Thread   wire.ThreadReference
	Depth    wire.StepDepth
	Caught   bool
	Uncaught bool
}

func (r *Request) Enable() error  { r.Enabled = true; return nil }
func (r *Request) Disable() error { r.Enabled = false; return nil }
