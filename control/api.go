package control

import (
	"github.com/scala-ide/sdbg/marshal"
	"github.com/scala-ide/sdbg/wire"
)

// LocationKind tags which variant of DebugLocation is populated.
type LocationKind int

const (
	LocObjectReference LocationKind = iota
	LocObjectField
	LocArrayElement
	LocStackSlot
)

// DebugLocation is the tagged variant client requests use to name a value
// to read or (for StackSlot) write.
type DebugLocation struct {
	Kind LocationKind

	// ObjectReference, ObjectField, ArrayElement
	ObjectID wire.ObjectID

	// ObjectField only
	FieldName string

	// ArrayElement only
	Index int

	// StackSlot only
	ThreadID   wire.ThreadID
	FrameIndex int
	SlotOffset int
}

// ObjectReferenceLocation builds a DebugLocation naming a whole object.
func ObjectReferenceLocation(id wire.ObjectID) DebugLocation {
	return DebugLocation{Kind: LocObjectReference, ObjectID: id}
}

// ObjectFieldLocation builds a DebugLocation naming a field of an object.
func ObjectFieldLocation(id wire.ObjectID, field string) DebugLocation {
	return DebugLocation{Kind: LocObjectField, ObjectID: id, FieldName: field}
}

// ArrayElementLocation builds a DebugLocation naming one array slot.
func ArrayElementLocation(id wire.ObjectID, index int) DebugLocation {
	return DebugLocation{Kind: LocArrayElement, ObjectID: id, Index: index}
}

// StackSlotLocation builds a DebugLocation naming a local/argument slot in
// a suspended thread's frame.
func StackSlotLocation(thread wire.ThreadID, frame, slot int) DebugLocation {
	return DebugLocation{Kind: LocStackSlot, ThreadID: thread, FrameIndex: frame, SlotOffset: slot}
}

// Frame is one rendered stack frame of a Backtrace. Per-field failures
// are swallowed and replaced with the sentinels noted on each field,
// rather than failing the whole frame.
type Frame struct {
	Index        int
	Locals       []marshal.Value
	NumArgs      int
	ClassName    string // "Class" if unavailable
	MethodName   string // "Method" if unavailable
	SourceFile   string // empty if unavailable
	Line         int    // -1 if unavailable
	ThisObjectID wire.ObjectID
	HasThis      bool
}

// Backtrace is the rendered call stack of one thread.
type Backtrace struct {
	Frames     []Frame
	ThreadID   wire.ThreadID
	ThreadName string
}

// StartupError is returned by Start/Attach when the connector fails to
// launch or attach to a target; Code is always 1 and Msg carries the
// underlying connector error text.
type StartupError struct {
	Code int
	Msg  string
}

func (e *StartupError) Error() string { return e.Msg }
