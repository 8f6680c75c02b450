package control

import "github.com/scala-ide/sdbg/wire"

// Sink is the broadcaster supplied at Controller construction; every
// domain event the Controller emits is published through it. The outer
// server's transport (wire encoding, client fan-out) is out of scope here.
type Sink interface {
	Publish(Event)
}

// Event is the common interface for every event the Controller emits.
type Event interface{ eventKind() string }

type VMStartEvent struct {
	SessionID string
}

func (VMStartEvent) eventKind() string { return "VMStart" }

type VMDisconnectEvent struct {
	Reason string
}

func (VMDisconnectEvent) eventKind() string { return "VMDisconnect" }

type StepEvent struct {
	ThreadID   wire.ThreadID
	ThreadName string
	File       string
	Line       int
}

func (StepEvent) eventKind() string { return "Step" }

type BreakEvent struct {
	ThreadID   wire.ThreadID
	ThreadName string
	File       string
	Line       int
}

func (BreakEvent) eventKind() string { return "Break" }

type ExceptionEvent struct {
	ObjectID   wire.ObjectID
	ThreadID   wire.ThreadID
	ThreadName string
	CatchFile  string
	CatchLine  int
	HasCatch   bool
}

func (ExceptionEvent) eventKind() string { return "Exception" }

type ThreadStartEvent struct {
	ThreadID   wire.ThreadID
	ThreadName string
}

func (ThreadStartEvent) eventKind() string { return "ThreadStart" }

type ThreadDeathEvent struct {
	ThreadID   wire.ThreadID
	ThreadName string
}

func (ThreadDeathEvent) eventKind() string { return "ThreadDeath" }

type OutputEvent struct {
	Text string
}

func (OutputEvent) eventKind() string { return "Output" }

type BackgroundMessageEvent struct {
	Text string
}

func (BackgroundMessageEvent) eventKind() string { return "BackgroundMessage" }

// noopSink discards every event; used when Controller is constructed
// without an explicit Sink.
type noopSink struct{}

func (noopSink) Publish(Event) {}
