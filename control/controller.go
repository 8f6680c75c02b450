// Package control implements the Debug Controller: the single-consumer
// mailbox that orchestrates the Source Map, Breakpoint Registry and
// Target Session, translating client requests into target-runtime
// operations and target-runtime events into broadcast domain events.
//
// State machine:
//
//	From       Event/Request                        To            Effect
//	NoSession  Start(cmd)                            Active        launch; reply Success or Error(1,msg)
//	NoSession  Attach(h,p)                            Active        attach; reply Success or Error
//	Active     Start / Attach                         Active (new)  dispose existing session first
//	Active     VMStartEvent                            Active        initLocationMap, resume; emit VMStart
//	Active     VMDeath/VMDisconnect/DisconnectedExc.   NoSession     demote active->pending, dispose, emit Disconnect
//	Active     Shutdown (Stop)                         NoSession     dispose; controller stops
package control

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scala-ide/sdbg/breakpoint"
	"github.com/scala-ide/sdbg/config"
	"github.com/scala-ide/sdbg/marshal"
	"github.com/scala-ide/sdbg/session"
	"github.com/scala-ide/sdbg/sourcemap"
	"github.com/scala-ide/sdbg/wire"
)

// errKind classifies an internal failure for structured logging only.
// Client-visible replies never surface these — they stay the plain
// bool/*Value/error shapes every exported method already returns, not a
// leaked protocol error type.
type errKind string

const (
	errNoSession     errKind = "no-session"
	errUnknownThread errKind = "unknown-thread"
	errUnknownLoc    errKind = "unknown-location"
)

// Controller is the debug session lifecycle owner: at most one Session is
// Active at a time. Every exported method is safe to call from any
// goroutine; each dispatches onto the single mailbox goroutine that owns
// all mutable state.
type Controller struct {
	log       *zap.SugaredLogger
	connector wire.Connector
	cfg       config.Snapshot
	sink      Sink

	sourceMap *sourcemap.Map
	registry  *breakpoint.Registry

	mailbox chan func()
	closed  chan struct{}

	// Owned exclusively by loop's goroutine.
	cur *session.Session
}

// New constructs a Controller from an immutable configuration snapshot
// and starts its mailbox goroutine. sink receives every emitted domain
// event; a nil sink discards them.
func New(connector wire.Connector, cfg config.Snapshot, sink Sink, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if sink == nil {
		sink = noopSink{}
	}
	c := &Controller{
		log:       log,
		connector: connector,
		cfg:       cfg,
		sink:      sink,
		sourceMap: sourcemap.New(log),
		registry:  breakpoint.New(),
		mailbox:   make(chan func()),
		closed:    make(chan struct{}),
	}
	c.sourceMap.Rebuild(cfg.SourceFiles)
	go c.loop()
	return c
}

// loop is the single-consumer mailbox: it is the only goroutine that ever
// reads or writes c.cur, c.registry, or c.sourceMap's mutating methods.
func (c *Controller) loop() {
	for {
		var events <-chan session.Envelope
		if c.cur != nil {
			events = c.cur.Events()
		}
		select {
		case cmd := <-c.mailbox:
			cmd()
		case env := <-events:
			c.handleEnvelope(env)
		case <-c.closed:
			return
		}
	}
}

// ask runs f on the mailbox goroutine and blocks until it completes,
// returning false without running f if the Controller has already
// stopped (Shutdown/Stop semantics: no reply after stop).
func (c *Controller) ask(f func()) bool {
	resp := make(chan struct{})
	select {
	case c.mailbox <- func() { f(); close(resp) }:
	case <-c.closed:
		return false
	}
	select {
	case <-resp:
		return true
	case <-c.closed:
		return false
	}
}

func (c *Controller) marshaler() *marshal.Marshaler {
	return marshal.New(c.cur.Identity)
}

func (c *Controller) findThread(id wire.ThreadID) wire.ThreadReference {
	if c.cur == nil {
		return nil
	}
	for _, t := range c.cur.VM().AllThreads() {
		if t.ID() == id {
			return t
		}
	}
	return nil
}

// syncPendingMirror pushes the registry's current pending set (indexed by
// short file name) into the active Session, so its event pump can retry
// breakpoints on class-prepare without reaching into Controller state.
func (c *Controller) syncPendingMirror() {
	if c.cur == nil {
		return
	}
	_, pending := c.registry.List()
	byFile := make(map[string][]breakpoint.Point, len(pending))
	for _, p := range pending {
		key := filepath.Base(p.File)
		byFile[key] = append(byFile[key], p)
	}
	c.cur.SetPendingMirror(byFile)
}

// replaceSession disposes any existing session and installs newSession,
// used by both Start and Attach: launching or attaching again while a
// session is already active disposes it first rather than running two
// sessions side by side.
func (c *Controller) replaceSession(newSession *session.Session) {
	if c.cur != nil {
		if err := c.cur.Dispose(); err != nil {
			c.log.Warnw("disposing previous session", "error", err)
		}
	}
	c.cur = newSession
	c.syncPendingMirror()
}

// Start launches a new target process running mainClass, disposing any
// existing session first.
func (c *Controller) Start(mainClass string) error {
	var startErr error
	c.ask(func() {
		id := uuid.New()
		sess, err := session.New(context.Background(), id, session.LaunchMode{
			MainClass:   mainClass,
			CommandLine: append([]string{mainClass}, c.cfg.VMArgs...),
		}, c.connector, c.log)
		if err != nil {
			startErr = err
			return
		}
		c.replaceSession(sess)
	})
	if startErr != nil {
		return &StartupError{Code: 1, Msg: startErr.Error()}
	}
	return nil
}

// Attach connects to an already-running target at host:port, disposing
// any existing session first.
func (c *Controller) Attach(host string, port int) error {
	var attachErr error
	c.ask(func() {
		id := uuid.New()
		sess, err := session.New(context.Background(), id, session.AttachMode{
			Host: host,
			Port: port,
		}, c.connector, c.log)
		if err != nil {
			attachErr = err
			return
		}
		c.replaceSession(sess)
	})
	if attachErr != nil {
		return &StartupError{Code: 1, Msg: attachErr.Error()}
	}
	return nil
}

// ActiveVM reports whether a Session is currently Active.
func (c *Controller) ActiveVM() bool {
	var ok bool
	c.ask(func() { ok = c.cur != nil })
	return ok
}

// Stop disposes the current session (if any) and terminates the
// Controller; no further request will receive a reply afterward.
func (c *Controller) Stop() bool {
	ok := c.ask(func() {
		if c.cur != nil {
			if err := c.cur.Dispose(); err != nil {
				c.log.Warnw("disposing session on stop", "error", err)
			}
			c.cur = nil
		}
	})
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return ok
}

// AddSourceFile extends the project's known source files with path and
// rebuilds the Source Map so subsequently-requested breakpoints can
// resolve it. cfgPath, if non-empty, is also updated on disk via
// config.WithSourceFile so the addition survives a restart.
func (c *Controller) AddSourceFile(cfgPath, path string) error {
	if cfgPath != "" {
		if err := config.WithSourceFile(cfgPath, path); err != nil {
			return err
		}
	}
	c.ask(func() {
		c.cfg.SourceFiles = append(c.cfg.SourceFiles, path)
		c.sourceMap.Rebuild(c.cfg.SourceFiles)
	})
	return nil
}

// SetBreakpoint installs file:line immediately if the Resolver can
// produce a concrete location; otherwise it is recorded pending and a
// BackgroundMessage is emitted. The reply is void either way.
func (c *Controller) SetBreakpoint(file string, line int) {
	c.ask(func() {
		file := c.resolveFile(file)
		p := breakpoint.Point{File: file, Line: line}
		shortName := filepath.Base(file)
		if c.cur != nil {
			if n, err := c.cur.SetBreakpoint(shortName, line); err != nil {
				c.log.Warnw("set breakpoint", "file", file, "line", line, "error", err)
			} else if n > 0 {
				c.registry.AddActive(p)
				c.syncPendingMirror()
				return
			}
		}
		c.registry.AddPending(p)
		c.syncPendingMirror()
		c.sink.Publish(BackgroundMessageEvent{Text: "Location not loaded. Set pending breakpoint."})
	})
}

// ClearBreakpoint removes file:line from both the active and pending
// sets.
func (c *Controller) ClearBreakpoint(file string, line int) {
	c.ask(func() {
		file := c.resolveFile(file)
		p := breakpoint.Point{File: file, Line: line}
		c.registry.Remove(p)
		if c.cur != nil {
			if err := c.cur.ClearBreakpoints([]breakpoint.Point{p}); err != nil {
				c.log.Warnw("clear breakpoint", "error", err)
			}
		}
		c.syncPendingMirror()
	})
}

// resolveFile normalizes a client-supplied file reference to the absolute
// project path the Source Map knows about. A client may pass either a
// bare name ("Foo.scala") or an already-absolute path; only the bare-name
// case needs resolution, and an unresolvable bare name is kept as-is so
// it can still round-trip through the Breakpoint Registry by base name.
func (c *Controller) resolveFile(file string) string {
	if file == filepath.Base(file) {
		if resolved, ok := c.sourceMap.Resolve(file); ok {
			return resolved
		}
	}
	return file
}

// ClearAllBreakpoints empties both sets and clears every installed
// request in the live target, if any.
func (c *Controller) ClearAllBreakpoints() {
	c.ask(func() {
		active, _ := c.registry.List()
		c.registry.ClearAll()
		if c.cur != nil {
			if err := c.cur.ClearBreakpoints(active); err != nil {
				c.log.Warnw("clear all breakpoints", "error", err)
			}
		}
		c.syncPendingMirror()
	})
}

// ListBreakpoints returns the current active and pending breakpoints.
func (c *Controller) ListBreakpoints() (active, pending []breakpoint.Point) {
	c.ask(func() {
		active, pending = c.registry.List()
	})
	return active, pending
}

// Run resumes the whole VM.
func (c *Controller) Run() bool {
	var ok bool
	c.ask(func() {
		if c.cur == nil {
			c.log.Debugw("run with no active session", "kind", errNoSession)
			return
		}
		if err := c.cur.Resume(); err != nil {
			c.log.Warnw("run", "error", err)
			return
		}
		ok = true
	})
	return ok
}

// Continue resumes the whole VM; there is no per-thread resume primitive,
// so continuing any one thread resumes all of them.
func (c *Controller) Continue(threadID wire.ThreadID) bool {
	return c.Run()
}

func (c *Controller) step(threadID wire.ThreadID, depth wire.StepDepth) bool {
	var ok bool
	c.ask(func() {
		if c.cur == nil {
			c.log.Debugw("step with no active session", "kind", errNoSession)
			return
		}
		thread := c.findThread(threadID)
		if thread == nil {
			c.log.Warnw("step on unknown thread", "threadID", threadID)
			return
		}
		if err := c.cur.NewStepRequest(thread, depth); err != nil {
			c.log.Warnw("step request", "error", err)
			return
		}
		ok = true
	})
	return ok
}

// Next steps over the current line.
func (c *Controller) Next(threadID wire.ThreadID) bool { return c.step(threadID, wire.StepOver) }

// Step steps into calls on the current line.
func (c *Controller) Step(threadID wire.ThreadID) bool { return c.step(threadID, wire.StepInto) }

// StepOut steps to the return point of the current function.
func (c *Controller) StepOut(threadID wire.ThreadID) bool { return c.step(threadID, wire.StepOut) }

// LocateName resolves name to a DebugLocation visible from the topmost
// frame of threadID: "this", then stack-visible locals/arguments
// (innermost frame first), then the receiver's fields (own class then
// superclasses).
func (c *Controller) LocateName(threadID wire.ThreadID, name string) (DebugLocation, bool) {
	var loc DebugLocation
	var found bool
	c.ask(func() {
		if c.cur == nil {
			c.log.Debugw("locate-name with no active session", "kind", errNoSession)
			return
		}
		thread := c.findThread(threadID)
		if thread == nil {
			c.log.Warnw("locate-name on unknown thread", "kind", errUnknownThread, "threadID", threadID)
			return
		}
		frameCount, err := thread.FrameCount()
		if err != nil || frameCount == 0 {
			return
		}
		top, err := thread.Frame(0)
		if err != nil {
			return
		}
		if name == "this" {
			if this, ok := top.ThisObject(); ok {
				id := c.cur.Identity.Remember(this).ID()
				loc, found = ObjectReferenceLocation(id), true
				return
			}
		}
		for i := 0; i < frameCount; i++ {
			frame, err := thread.Frame(i)
			if err != nil {
				continue
			}
			vars, err := frame.VisibleVariables()
			if err != nil {
				continue
			}
			for _, v := range vars {
				if v.Name == name {
					loc, found = StackSlotLocation(threadID, i, v.Slot), true
					return
				}
			}
		}
		if this, ok := top.ThisObject(); ok {
			for rt := this.ReferenceType(); rt != nil; {
				for _, fd := range rt.Fields() {
					if fd.Name == name {
						id := c.cur.Identity.Remember(this).ID()
						loc, found = ObjectFieldLocation(id, fd.Name), true
						return
					}
				}
				super, ok := rt.Superclass()
				if !ok {
					break
				}
				rt = super
			}
		}
	})
	return loc, found
}

// dereference resolves a DebugLocation to the wire.Value it names. It
// must only be called from the mailbox goroutine (i.e. from within ask).
func (c *Controller) dereference(loc DebugLocation) (wire.Value, bool) {
	switch loc.Kind {
	case LocObjectReference:
		obj, ok := c.cur.Identity.Lookup(loc.ObjectID)
		return obj, ok
	case LocObjectField:
		obj, ok := c.cur.Identity.Lookup(loc.ObjectID)
		if !ok {
			return nil, false
		}
		for rt := obj.ReferenceType(); rt != nil; {
			for _, fd := range rt.Fields() {
				if fd.Name == loc.FieldName {
					v, err := obj.GetField(fd)
					if err != nil {
						return nil, false
					}
					return v, true
				}
			}
			super, ok := rt.Superclass()
			if !ok {
				break
			}
			rt = super
		}
		return nil, false
	case LocArrayElement:
		obj, ok := c.cur.Identity.Lookup(loc.ObjectID)
		if !ok {
			return nil, false
		}
		arr, ok := obj.(wire.ArrayRef)
		if !ok || loc.Index < 0 || loc.Index >= arr.Length() {
			return nil, false
		}
		vals, err := arr.GetValues(loc.Index, 1)
		if err != nil || len(vals) == 0 {
			return nil, false
		}
		return vals[0], true
	case LocStackSlot:
		thread := c.findThread(loc.ThreadID)
		if thread == nil {
			return nil, false
		}
		frame, err := thread.Frame(loc.FrameIndex)
		if err != nil {
			return nil, false
		}
		vars, err := frame.VisibleVariables()
		if err != nil {
			return nil, false
		}
		for _, v := range vars {
			if v.Slot == loc.SlotOffset {
				val, err := frame.GetValue(v)
				if err != nil {
					return nil, false
				}
				return val, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

// Value dereferences loc and returns its marshaled Debug Value, inserting
// any object it touches into the Identity Cache. Any resolution failure
// yields ok=false.
func (c *Controller) Value(loc DebugLocation) (marshal.Value, bool) {
	var v marshal.Value
	var found bool
	c.ask(func() {
		if c.cur == nil {
			c.log.Debugw("value with no active session", "kind", errNoSession)
			return
		}
		wv, ok := c.dereference(loc)
		if !ok {
			c.log.Warnw("value: location did not resolve", "kind", errUnknownLoc, "locationKind", loc.Kind)
			return
		}
		v, found = c.marshaler().Marshal(wv), true
	})
	return v, found
}

// ToString special-cases arrays ("<array of N element(s)>") and strings
// (their text); objects invoke toString() in threadID using
// single-threaded invocation semantics. Other values fall back to their
// summary.
func (c *Controller) ToString(threadID wire.ThreadID, loc DebugLocation) (string, bool) {
	var out string
	var found bool
	c.ask(func() {
		if c.cur == nil {
			c.log.Debugw("toString with no active session", "kind", errNoSession)
			return
		}
		wv, ok := c.dereference(loc)
		if !ok {
			c.log.Warnw("toString: location did not resolve", "kind", errUnknownLoc, "locationKind", loc.Kind)
			return
		}
		switch val := wv.(type) {
		case wire.ArrayRef:
			n := val.Length()
			if n == 1 {
				out = "<array of 1 element>"
			} else {
				out = fmt.Sprintf("<array of %d elements>", n)
			}
			found = true
		case wire.StringRef:
			out, found = val.StringValue(), true
		case wire.ObjectRef:
			if !c.cur.VM().CanBeModified() {
				c.log.Infow("toString on read-only target", "objectID", val.ID())
				return
			}
			thread := c.findThread(threadID)
			if thread == nil {
				c.log.Warnw("toString on unknown thread", "kind", errUnknownThread, "threadID", threadID)
				return
			}
			s, err := val.InvokeString(context.Background(), thread)
			if err != nil {
				c.log.Warnw("invoking toString", "error", err)
				return
			}
			out, found = s, true
		default:
			out, found = c.marshaler().Marshal(wv).Summary, true
		}
	})
	return out, found
}

// SetValue writes text, parsed per the runtime type of the named slot, to
// a StackSlot location; any other location kind replies false (only
// stack slots are writable). An unknown thread always replies false.
func (c *Controller) SetValue(loc DebugLocation, text string) bool {
	var ok bool
	c.ask(func() {
		if c.cur == nil {
			c.log.Debugw("set-value with no active session", "kind", errNoSession)
			return
		}
		if loc.Kind != LocStackSlot {
			c.log.Errorw("set-value unsupported for location kind", "kind", errUnknownLoc, "locationKind", loc.Kind)
			return
		}
		thread := c.findThread(loc.ThreadID)
		if thread == nil {
			c.log.Warnw("set-value on unknown thread", "kind", errUnknownThread, "threadID", loc.ThreadID)
			return
		}
		frame, err := thread.Frame(loc.FrameIndex)
		if err != nil {
			return
		}
		vars, err := frame.VisibleVariables()
		if err != nil {
			return
		}
		var target *wire.Variable
		for i := range vars {
			if vars[i].Slot == loc.SlotOffset {
				target = &vars[i]
				break
			}
		}
		if target == nil {
			return
		}
		parsed, err := c.marshaler().Parse(c.cur.VM(), target.TypeName, text)
		if err != nil {
			c.log.Warnw("parse set-value", "error", err)
			return
		}
		if err := frame.SetValue(*target, parsed); err != nil {
			c.log.Warnw("writing set-value", "error", err)
			return
		}
		ok = true
	})
	return ok
}

// Backtrace renders frames [start, min(frameCount, start+count)); count
// == -1 means "to end". Per-field rendering failures are swallowed with
// sentinels (renderFrame) rather than failing the whole frame.
func (c *Controller) Backtrace(threadID wire.ThreadID, start, count int) (Backtrace, bool) {
	var bt Backtrace
	var found bool
	c.ask(func() {
		if c.cur == nil {
			c.log.Debugw("backtrace with no active session", "kind", errNoSession)
			return
		}
		thread := c.findThread(threadID)
		if thread == nil {
			c.log.Warnw("backtrace on unknown thread", "kind", errUnknownThread, "threadID", threadID)
			return
		}
		frameCount, err := thread.FrameCount()
		if err != nil {
			return
		}
		if start < 0 {
			start = 0
		}
		end := frameCount
		if count >= 0 && start+count < frameCount {
			end = start + count
		}
		if start > end {
			start = end
		}
		bt.ThreadID = threadID
		bt.ThreadName = thread.Name()
		for i := start; i < end; i++ {
			bt.Frames = append(bt.Frames, c.renderFrame(thread, i))
		}
		found = true
	})
	return bt, found
}

func (c *Controller) renderFrame(thread wire.ThreadReference, index int) Frame {
	f := Frame{Index: index, MethodName: "Method", ClassName: "Class", Line: -1}
	frame, err := thread.Frame(index)
	if err != nil {
		return f
	}
	loc := frame.Location()
	if loc.Method != "" {
		f.MethodName = loc.Method
	}
	if loc.Class != nil {
		f.ClassName = loc.Class.Name()
	}
	f.SourceFile = loc.SourcePath
	f.Line = loc.Line

	if this, ok := frame.ThisObject(); ok {
		f.ThisObjectID, f.HasThis = c.cur.Identity.Remember(this).ID(), true
	}

	if args, err := frame.ArgumentValues(); err == nil {
		f.NumArgs = len(args)
	}

	vars, err := frame.VisibleVariables()
	if err != nil {
		return f
	}
	for _, v := range vars {
		val, err := frame.GetValue(v)
		if err != nil {
			continue
		}
		f.Locals = append(f.Locals, c.marshaler().Marshal(val))
	}
	return f
}
