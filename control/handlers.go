package control

import (
	"github.com/scala-ide/sdbg/session"
	"github.com/scala-ide/sdbg/wire"
)

// handleEnvelope dispatches one Session Envelope: Disconnected or Output
// is handled alone; otherwise ClassPrepare (if set) is applied and then
// Event is dispatched.
func (c *Controller) handleEnvelope(env session.Envelope) {
	switch {
	case env.Disconnected:
		c.onDisconnect("target disconnected")
		return
	case env.Output != nil:
		c.sink.Publish(OutputEvent{Text: env.Output.Text})
		return
	}

	if env.ClassPrepare != nil {
		for _, p := range env.ClassPrepare.Installed {
			c.registry.PromotePending(p)
		}
		c.syncPendingMirror()
	}

	e := env.Event
	if e == nil {
		return
	}

	switch e.Kind() {
	case wire.KindVMStart:
		c.onVMStart()
	case wire.KindVMDeath, wire.KindVMDisconnect:
		c.onDisconnect("target exited")
	case wire.KindBreakpoint:
		if be, ok := e.(wire.BreakpointEvent); ok {
			c.onBreakpoint(be)
		}
	case wire.KindStep:
		if se, ok := e.(wire.StepEvent); ok {
			c.onStep(se)
		}
	case wire.KindException:
		if ee, ok := e.(wire.ExceptionEvent); ok {
			c.onException(ee)
		}
	case wire.KindThreadStart:
		if te, ok := e.(wire.ThreadStartEvent); ok {
			c.onThreadStart(te)
		}
	case wire.KindThreadDeath:
		if te, ok := e.(wire.ThreadDeathEvent); ok {
			c.onThreadDeath(te)
		}
	// ClassPrepare without a fresh install is pure bookkeeping, already
	// handled above; AccessWatchpoint/MethodEntry/MethodExit/ClassUnload
	// are never requested and never arrive here.
	case wire.KindClassPrepare:
	}
}

// onVMStart initializes the location map from the now-running target and
// resumes it, per the Active->Active transition's "VMStartEvent" row.
func (c *Controller) onVMStart() {
	if c.cur == nil {
		return
	}
	c.cur.InitLocationMap()
	if err := c.cur.Resume(); err != nil {
		c.log.Warnw("resuming after VM start", "error", err)
	}
	c.sink.Publish(VMStartEvent{SessionID: c.cur.ID.String()})
}

// onDisconnect demotes every active breakpoint to pending, disposes the
// session and emits VMDisconnectEvent, matching the Active -> NoSession
// transition.
func (c *Controller) onDisconnect(reason string) {
	c.registry.DemoteAllToPending()
	if c.cur != nil {
		if err := c.cur.Dispose(); err != nil {
			c.log.Infow("disposing disconnected session", "error", err)
		}
		c.cur = nil
	}
	c.sink.Publish(VMDisconnectEvent{Reason: reason})
}

func (c *Controller) onBreakpoint(e wire.BreakpointEvent) {
	loc := e.Location()
	if loc.SourcePath == "" {
		c.log.Warnw("breakpoint event with unresolved location, dropping", "kind", errUnknownLoc, "thread", e.Thread().ID())
		return
	}
	c.sink.Publish(BreakEvent{
		ThreadID:   e.Thread().ID(),
		ThreadName: e.Thread().Name(),
		File:       loc.SourcePath,
		Line:       loc.Line,
	})
}

func (c *Controller) onStep(e wire.StepEvent) {
	loc := e.Location()
	if loc.SourcePath == "" {
		c.log.Warnw("step event with unresolved location, dropping", "kind", errUnknownLoc, "thread", e.Thread().ID())
		return
	}
	c.sink.Publish(StepEvent{
		ThreadID:   e.Thread().ID(),
		ThreadName: e.Thread().Name(),
		File:       loc.SourcePath,
		Line:       loc.Line,
	})
}

func (c *Controller) onException(e wire.ExceptionEvent) {
	if c.cur == nil {
		return
	}
	id := c.cur.Identity.Remember(e.Exception()).ID()
	catch, hasCatch := e.CatchLocation()
	evt := ExceptionEvent{
		ObjectID:   id,
		ThreadID:   e.Thread().ID(),
		ThreadName: e.Thread().Name(),
		HasCatch:   hasCatch,
	}
	if hasCatch {
		evt.CatchFile = catch.SourcePath
		evt.CatchLine = catch.Line
	}
	c.sink.Publish(evt)
}

func (c *Controller) onThreadStart(e wire.ThreadStartEvent) {
	c.sink.Publish(ThreadStartEvent{ThreadID: e.Thread().ID(), ThreadName: e.Thread().Name()})
}

func (c *Controller) onThreadDeath(e wire.ThreadDeathEvent) {
	c.sink.Publish(ThreadDeathEvent{ThreadID: e.Thread().ID(), ThreadName: e.Thread().Name()})
}
