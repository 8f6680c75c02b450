// Package wire is the typed boundary between the debug control core and
// the debug-wire protocol library that actually talks to a target
// language-runtime process. The core never assumes a transport, a wire
// encoding, or a specific runtime; it only calls these interfaces.
//
// A concrete implementation lives outside this module (the protocol
// library itself is out of scope, per spec). wire/fake provides a small
// in-memory stand-in used by this module's own tests.
package wire

import "context"

// ObjectID is an opaque identifier minted by the target runtime. It is
// only meaningful within the session that produced it.
type ObjectID uint64

// ThreadID is an opaque identifier minted by the target runtime, stable
// for a thread's lifetime within one session.
type ThreadID uint64

// SuspendPolicy controls which threads pause when an event request fires.
type SuspendPolicy int

const (
	SuspendNone SuspendPolicy = iota
	SuspendAll
)

// StepDepth selects how far a step request travels.
type StepDepth int

const (
	StepOver StepDepth = iota
	StepInto
	StepOut
)

// Connector requests a connection to a target runtime, either by
// launching a new process or attaching to one already running.
type Connector interface {
	Launch(ctx context.Context, opts LaunchOptions) (VirtualMachine, error)
	Attach(ctx context.Context, host string, port int) (VirtualMachine, error)
}

// LaunchOptions configures a launching connector.
type LaunchOptions struct {
	MainClass string
	Classpath []string
	VMArgs    []string
	Suspend   bool
}

// VirtualMachine is a live connection to the target runtime.
type VirtualMachine interface {
	Dispose() error
	Resume() error
	Process() Process
	AllClasses() []ReferenceType
	AllThreads() []ThreadReference
	CanBeModified() bool
	MirrorOfPrimitive(v any) (Value, error)
	MirrorOfString(s string) (StringRef, error)
	EventQueue() EventQueue
	EventRequestManager() EventRequestManager
}

// Process exposes the launched target's standard streams; present only
// for launched (not attached) virtual machines.
type Process interface {
	Stdout() Reader
	Stderr() Reader
}

// Reader is a minimal blocking byte source, satisfied by the target
// process's stdout/stderr pipes.
type Reader interface {
	Read(p []byte) (n int, err error)
}

// EventQueue is the target runtime's blocking event source.
type EventQueue interface {
	// Remove blocks until an EventSet is available or ctx is done.
	Remove(ctx context.Context) (EventSet, error)
}

// EventSet is a batch of events that fired together and share a suspend
// policy; Resume releases any threads the set suspended.
type EventSet interface {
	Events() []Event
	Resume() error
}

// Event is the common interface for all target-runtime events.
type Event interface {
	Kind() EventKind
}

type EventKind int

const (
	KindVMStart EventKind = iota
	KindVMDeath
	KindVMDisconnect
	KindClassPrepare
	KindBreakpoint
	KindStep
	KindException
	KindThreadStart
	KindThreadDeath
	KindAccessWatchpoint
	KindMethodEntry
	KindMethodExit
	KindClassUnload
)

type ClassPrepareEvent interface {
	Event
	Class() ReferenceType
}

type BreakpointEvent interface {
	Event
	Thread() ThreadReference
	Location() Location
}

type StepEvent interface {
	Event
	Thread() ThreadReference
	Location() Location
}

type ExceptionEvent interface {
	Event
	Thread() ThreadReference
	Exception() ObjectRef
	// CatchLocation is the zero Location with ok=false for an uncaught
	// exception.
	CatchLocation() (loc Location, ok bool)
}

type ThreadStartEvent interface {
	Event
	Thread() ThreadReference
}

type ThreadDeathEvent interface {
	Event
	Thread() ThreadReference
}

// EventRequestManager creates, enables, disables and deletes requests for
// future events.
type EventRequestManager interface {
	CreateClassPrepareRequest(policy SuspendPolicy) (Request, error)
	CreateThreadStartRequest(policy SuspendPolicy) (Request, error)
	CreateThreadDeathRequest(policy SuspendPolicy) (Request, error)
	CreateExceptionRequest(policy SuspendPolicy, caught, uncaught bool) (Request, error)
	CreateBreakpointRequest(policy SuspendPolicy, loc Location) (Request, error)
	CreateStepRequest(policy SuspendPolicy, thread ThreadReference, depth StepDepth) (Request, error)
	DeleteStepRequests() error
	DeleteRequest(Request) error
}

// Request is a handle to an enabled/disabled event request.
type Request interface {
	Enable() error
	Disable() error
}

// Location is a concrete, installable code position inside a loaded class.
type Location struct {
	Class      ReferenceType
	Method     string
	SourcePath string
	SourceName string
	Line       int
}

// ReferenceType is a loaded class or interface in the target runtime.
type ReferenceType interface {
	Name() string
	SourceName() (string, error)
	Fields() []FieldDecl
	Methods() []MethodDecl
	LocationsOfLine(line int) ([]Location, error)
	Superclass() (ReferenceType, bool)
	IsArray() bool
	ComponentTypeName() string
}

// FieldDecl describes a declared field on a class, independent of any
// instance.
type FieldDecl struct {
	Name     string
	TypeName string
	Static   bool
}

// MethodDecl describes a declared method, used only to walk its code
// locations for line-to-location resolution.
type MethodDecl struct {
	Name      string
	Locations []Location
}

// ThreadReference is a thread in the target runtime.
type ThreadReference interface {
	ID() ThreadID
	Name() string
	FrameCount() (int, error)
	Frame(i int) (StackFrame, error)
}

// StackFrame is one activation record of a suspended thread.
type StackFrame interface {
	Location() Location
	ThisObject() (ObjectRef, bool)
	VisibleVariables() ([]Variable, error)
	GetValue(Variable) (Value, error)
	SetValue(Variable, Value) error
	ArgumentValues() ([]Value, error)
}

// Variable is a visible local or argument in a stack frame.
type Variable struct {
	Name     string
	TypeName string
	Slot     int
}

// Value is the interface implemented by every value the target runtime can
// return: primitives are boxed Go values (bool, rune, int64, float64,
// ...), ObjectRef/StringRef/ArrayRef are reference types.
type Value interface {
	TypeName() string
}

// ObjectRef is a reference to a live object in the target runtime.
type ObjectRef interface {
	Value
	ID() ObjectID
	ReferenceType() ReferenceType
	GetField(FieldDecl) (Value, error)
	SetField(FieldDecl, Value) error
	InvokeString(ctx context.Context, thread ThreadReference) (string, error)
}

// StringRef is a reference to a live string in the target runtime.
type StringRef interface {
	ObjectRef
	StringValue() string
}

// ArrayRef is a reference to a live array in the target runtime.
type ArrayRef interface {
	ObjectRef
	Length() int
	GetValues(offset, length int) ([]Value, error)
}

// NullValue is the Value implementation for the target runtime's null.
type NullValue struct{ TypeNameV string }

func (n NullValue) TypeName() string { return n.TypeNameV }

// PrimitiveValue boxes a non-reference value (bool, rune, any integer or
// float kind) together with the runtime type name it was read as.
type PrimitiveValue struct {
	V        any
	TypeNameV string
}

func (p PrimitiveValue) TypeName() string { return p.TypeNameV }
