// Package session implements the Target Session: the live connection to
// a target runtime, together with its event pump, output relays,
// identity cache and location resolver.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scala-ide/sdbg/breakpoint"
	"github.com/scala-ide/sdbg/identity"
	"github.com/scala-ide/sdbg/location"
	"github.com/scala-ide/sdbg/wire"
)

// Mode selects how a Session connects to its target runtime.
type Mode interface{ isMode() }

// LaunchMode starts a new target process via a launching connector.
type LaunchMode struct {
	MainClass string
	CommandLine []string
}

func (LaunchMode) isMode() {}

// AttachMode connects to an already-running target runtime.
type AttachMode struct {
	Host string
	Port int
}

func (AttachMode) isMode() {}

// ClassPrepareInfo reports the breakpoints a class-prepare event allowed
// the Session to install, so the Controller can promote them from
// pending to active in the Breakpoint Registry it owns.
type ClassPrepareInfo struct {
	ShortName string
	Installed []breakpoint.Point
}

// OutputChunk is one piece of the launched target's stdout/stderr.
type OutputChunk struct {
	Stream string // "stdout" or "stderr"
	Text   string
}

// Envelope is the single message type the Session's background workers
// send to the Controller; at most one field beyond Event is ever set.
type Envelope struct {
	Event        wire.Event
	ClassPrepare *ClassPrepareInfo
	Output       *OutputChunk
	Disconnected bool
}

// Session is the live connection to a target runtime. It is constructed
// fresh for every Start/Attach and disposed on disconnect or Stop.
type Session struct {
	ID   uuid.UUID
	Mode Mode

	vm  wire.VirtualMachine
	log *zap.SugaredLogger

	Resolver  *location.Resolver
	Identity  *identity.Cache
	StartedAt time.Time

	mu            sync.Mutex
	pendingMirror map[string][]breakpoint.Point
	activeReqs    map[breakpoint.Point]wire.Request

	procReaders []wire.Reader

	out    chan Envelope
	done   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New connects to a target runtime per mode and starts its background
// workers. The caller must eventually call Dispose.
func New(ctx context.Context, id uuid.UUID, mode Mode, connector wire.Connector, log *zap.SugaredLogger) (*Session, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var vm wire.VirtualMachine
	var err error
	switch m := mode.(type) {
	case LaunchMode:
		vm, err = connector.Launch(ctx, wire.LaunchOptions{
			MainClass: m.MainClass,
			Suspend:   true,
		})
	case AttachMode:
		vm, err = connector.Attach(ctx, m.Host, m.Port)
	default:
		return nil, fmt.Errorf("session: unknown mode %T", mode)
	}
	if err != nil {
		return nil, err
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:            id,
		Mode:          mode,
		vm:            vm,
		log:           log.With("session", id.String()),
		Resolver:      location.New(),
		Identity:      identity.New(),
		StartedAt:     time.Now(),
		pendingMirror: make(map[string][]breakpoint.Point),
		activeReqs:    make(map[breakpoint.Point]wire.Request),
		out:           make(chan Envelope, 64),
		done:          make(chan struct{}),
		cancel:        cancel,
	}

	if err := s.enableStandingRequests(); err != nil {
		cancel()
		_ = vm.Dispose()
		return nil, err
	}

	s.wg.Add(1)
	go s.runPump(pumpCtx)

	if _, launch := mode.(LaunchMode); launch {
		proc := vm.Process()
		if proc != nil {
			stdout, stderr := proc.Stdout(), proc.Stderr()
			s.procReaders = []wire.Reader{stdout, stderr}
			s.wg.Add(2)
			go s.runOutputRelay("stdout", stdout)
			go s.runOutputRelay("stderr", stderr)
		}
	}

	if _, attach := mode.(AttachMode); attach {
		if err := vm.Resume(); err != nil {
			s.log.Warnw("resuming attached target", "error", err)
		}
	}

	return s, nil
}

// enableStandingRequests enables the fixed set of event requests every
// Session wants for its whole lifetime: class-prepare (suspend-all),
// thread-start/death (suspend-none), and uncaught exceptions
// (suspend-all). AccessWatchpoint/MethodEntry/MethodExit/ClassUnload are
// deliberately never requested: no component of this module watches
// field/array access, method entry/exit, or class unloads.
func (s *Session) enableStandingRequests() error {
	erm := s.vm.EventRequestManager()
	reqs := []struct {
		name string
		make func() (wire.Request, error)
	}{
		{"class-prepare", func() (wire.Request, error) { return erm.CreateClassPrepareRequest(wire.SuspendAll) }},
		{"thread-start", func() (wire.Request, error) { return erm.CreateThreadStartRequest(wire.SuspendNone) }},
		{"thread-death", func() (wire.Request, error) { return erm.CreateThreadDeathRequest(wire.SuspendNone) }},
		{"exception", func() (wire.Request, error) { return erm.CreateExceptionRequest(wire.SuspendAll, false, true) }},
	}
	for _, r := range reqs {
		req, err := r.make()
		if err != nil {
			return fmt.Errorf("session: enabling %s request: %w", r.name, err)
		}
		if err := req.Enable(); err != nil {
			return fmt.Errorf("session: enabling %s request: %w", r.name, err)
		}
	}
	return nil
}

// Events returns the channel the Controller's mailbox loop reads from.
func (s *Session) Events() <-chan Envelope { return s.out }

// Info is a read-only snapshot of identifying details; it never changes
// wire semantics.
type Info struct {
	ID        uuid.UUID
	Mode      Mode
	StartedAt time.Time
}

func (s *Session) Info() Info {
	return Info{ID: s.ID, Mode: s.Mode, StartedAt: s.StartedAt}
}

// InitLocationMap enumerates all currently loaded classes and registers
// each with the location Resolver.
func (s *Session) InitLocationMap() {
	for _, c := range s.vm.AllClasses() {
		s.Resolver.Register(c)
	}
}

// SetPendingMirror replaces the Session's read-only view of the
// Controller-owned Breakpoint Registry's pending set, keyed by short file
// name. The Controller calls this every time it mutates the Registry's
// pending set so the event pump (running on its own goroutine) can
// consult an up-to-date, race-free snapshot without reaching into
// Controller-owned state directly.
func (s *Session) SetPendingMirror(byFile map[string][]breakpoint.Point) {
	s.mu.Lock()
	s.pendingMirror = byFile
	s.mu.Unlock()
}

func (s *Session) pendingFor(shortName string) []breakpoint.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]breakpoint.Point, len(s.pendingMirror[shortName]))
	copy(out, s.pendingMirror[shortName])
	return out
}

// SetBreakpoint asks the Resolver for concrete locations at shortName:line
// and installs a breakpoint request for each. It returns the count of
// successfully installed requests; zero means the breakpoint should stay
// (or become) pending.
func (s *Session) SetBreakpoint(shortName string, line int) (int, error) {
	locs := s.Resolver.Locations(shortName, line)
	erm := s.vm.EventRequestManager()
	installed := 0
	for _, loc := range locs {
		p := breakpoint.Point{File: loc.SourcePath, Line: loc.Line}
		s.mu.Lock()
		_, already := s.activeReqs[p]
		s.mu.Unlock()
		if already {
			installed++
			continue
		}
		req, err := erm.CreateBreakpointRequest(wire.SuspendAll, loc)
		if err != nil {
			return installed, fmt.Errorf("session: creating breakpoint request: %w", err)
		}
		if err := req.Enable(); err != nil {
			return installed, fmt.Errorf("session: enabling breakpoint request: %w", err)
		}
		s.mu.Lock()
		s.activeReqs[p] = req
		s.mu.Unlock()
		installed++
	}
	return installed, nil
}

// ClearBreakpoints disables any installed request whose resolved position
// matches a Point in points.
func (s *Session) ClearBreakpoints(points []breakpoint.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		req, ok := s.activeReqs[p]
		if !ok {
			continue
		}
		if err := req.Disable(); err != nil {
			return fmt.Errorf("session: disabling breakpoint request: %w", err)
		}
		delete(s.activeReqs, p)
	}
	return nil
}

// NewStepRequest deletes any existing step request (only one is ever
// pending), creates a new one for thread at depth, enables it and resumes
// the whole VM. No count filter is set on the request; it stays enabled
// until the next NewStepRequest deletes it.
func (s *Session) NewStepRequest(thread wire.ThreadReference, depth wire.StepDepth) error {
	erm := s.vm.EventRequestManager()
	if err := erm.DeleteStepRequests(); err != nil {
		return fmt.Errorf("session: clearing step requests: %w", err)
	}
	req, err := erm.CreateStepRequest(wire.SuspendAll, thread, depth)
	if err != nil {
		return fmt.Errorf("session: creating step request: %w", err)
	}
	if err := req.Enable(); err != nil {
		return fmt.Errorf("session: enabling step request: %w", err)
	}
	return s.vm.Resume()
}

// Resume resumes the whole VM; used by both Run/Continue, since there is
// no per-thread resume primitive.
func (s *Session) Resume() error { return s.vm.Resume() }

// VM exposes the underlying wire.VirtualMachine for request handlers that
// need direct access (Value dereference, ToString invocation, thread
// lookup). Only the Controller's mailbox goroutine may call through it.
func (s *Session) VM() wire.VirtualMachine { return s.vm }

// Dispose marks the pump and output relays finished and releases the
// connection. It tolerates a target that is already gone.
//
// close(s.done) alone cannot wake a worker blocked in eq.Remove(ctx) or
// r.Read(buf); send is the only place that watches done, and a worker
// reaches send rarely. So every blocking call is interrupted first: the
// pump's context is canceled, the connection is disposed (closing its
// event queue), and any process pipe that also satisfies io.Closer is
// closed. Only then do we wait for the workers to exit.
func (s *Session) Dispose() error {
	close(s.done)
	s.cancel()
	err := s.vm.Dispose()
	s.closeProcessReaders()
	s.wg.Wait()
	s.Identity.Clear()
	if err != nil {
		s.log.Infow("disposing already-disconnected session", "error", err)
	}
	return nil
}

// closeProcessReaders closes any launched target's stdout/stderr pipes
// that also implement io.Closer, unblocking an output relay parked in
// Read. wire.Reader itself only requires Read.
func (s *Session) closeProcessReaders() {
	for _, r := range s.procReaders {
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
