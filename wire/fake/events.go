package fake

import (
	"context"
	"io"
	"sync"

	"github.com/scala-ide/sdbg/wire"
)

// EventQueue is a manually-driven wire.EventQueue; tests call Push to
// enqueue the EventSets a real target runtime would have produced.
type EventQueue struct {
	mu     sync.Mutex
	ch     chan wire.EventSet
	closed bool
}

func NewEventQueue() *EventQueue {
	return &EventQueue{ch: make(chan wire.EventSet, 16)}
}

func (q *EventQueue) Remove(ctx context.Context) (wire.EventSet, error) {
	select {
	case set, ok := <-q.ch:
		if !ok {
			return nil, io.EOF
		}
		return set, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Push enqueues one EventSet containing events, as if they fired
// together under one suspend policy.
func (q *EventQueue) Push(events ...wire.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.ch <- &EventSet{events: events}
}

func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// EventSet is the fake wire.EventSet; Resume is a no-op recorder.
type EventSet struct {
	mu      sync.Mutex
	events  []wire.Event
	Resumed int
}

func (s *EventSet) Events() []wire.Event { return s.events }

func (s *EventSet) Resume() error {
	s.mu.Lock()
	s.Resumed++
	s.mu.Unlock()
	return nil
}

// Event kinds are pointer types so the same *ClassPrepareEvent value used
// as a map key (session.runPump keys pending-install info by wire.Event)
// compares equal only to itself, never to an unrelated event of the same
// shape.

type VMStartEvent struct{}

func (*VMStartEvent) Kind() wire.EventKind { return wire.KindVMStart }

type VMDeathEvent struct{}

func (*VMDeathEvent) Kind() wire.EventKind { return wire.KindVMDeath }

type VMDisconnectEvent struct{}

func (*VMDisconnectEvent) Kind() wire.EventKind { return wire.KindVMDisconnect }

type ClassPrepareEvent struct {
	class wire.ReferenceType
}

func NewClassPrepareEvent(class wire.ReferenceType) *ClassPrepareEvent {
	return &ClassPrepareEvent{class: class}
}

func (*ClassPrepareEvent) Kind() wire.EventKind         { return wire.KindClassPrepare }
func (e *ClassPrepareEvent) Class() wire.ReferenceType { return e.class }

type BreakpointEvent struct {
	thread wire.ThreadReference
	loc    wire.Location
}

func NewBreakpointEvent(thread wire.ThreadReference, loc wire.Location) *BreakpointEvent {
	return &BreakpointEvent{thread: thread, loc: loc}
}

func (*BreakpointEvent) Kind() wire.EventKind            { return wire.KindBreakpoint }
func (e *BreakpointEvent) Thread() wire.ThreadReference { return e.thread }
func (e *BreakpointEvent) Location() wire.Location      { return e.loc }

type StepEvent struct {
	thread wire.ThreadReference
	loc    wire.Location
}

func NewStepEvent(thread wire.ThreadReference, loc wire.Location) *StepEvent {
	return &StepEvent{thread: thread, loc: loc}
}

func (*StepEvent) Kind() wire.EventKind            { return wire.KindStep }
func (e *StepEvent) Thread() wire.ThreadReference { return e.thread }
func (e *StepEvent) Location() wire.Location      { return e.loc }

type ExceptionEvent struct {
	thread    wire.ThreadReference
	exception wire.ObjectRef
	catch     wire.Location
	hasCatch  bool
}

func NewExceptionEvent(thread wire.ThreadReference, exception wire.ObjectRef, catch wire.Location, hasCatch bool) *ExceptionEvent {
	return &ExceptionEvent{thread: thread, exception: exception, catch: catch, hasCatch: hasCatch}
}

func (*ExceptionEvent) Kind() wire.EventKind            { return wire.KindException }
func (e *ExceptionEvent) Thread() wire.ThreadReference { return e.thread }
func (e *ExceptionEvent) Exception() wire.ObjectRef    { return e.exception }
func (e *ExceptionEvent) CatchLocation() (wire.Location, bool) {
	return e.catch, e.hasCatch
}

type ThreadStartEvent struct {
	thread wire.ThreadReference
}

func NewThreadStartEvent(thread wire.ThreadReference) *ThreadStartEvent {
	return &ThreadStartEvent{thread: thread}
}

func (*ThreadStartEvent) Kind() wire.EventKind            { return wire.KindThreadStart }
func (e *ThreadStartEvent) Thread() wire.ThreadReference { return e.thread }

type ThreadDeathEvent struct {
	thread wire.ThreadReference
}

func NewThreadDeathEvent(thread wire.ThreadReference) *ThreadDeathEvent {
	return &ThreadDeathEvent{thread: thread}
}

func (*ThreadDeathEvent) Kind() wire.EventKind            { return wire.KindThreadDeath }
func (e *ThreadDeathEvent) Thread() wire.ThreadReference { return e.thread }
