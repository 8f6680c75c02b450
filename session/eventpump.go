package session

import (
	"context"

	"github.com/scala-ide/sdbg/wire"
)

// runPump is the Event Pump: a dedicated goroutine blocking on the target
// runtime's event queue, translating each drained event set into
// Envelopes for the Controller's mailbox. It never touches
// Controller-owned state directly — it only sends.
func (s *Session) runPump(ctx context.Context) {
	defer s.wg.Done()
	eq := s.vm.EventQueue()
	for {
		set, err := eq.Remove(ctx)
		if err != nil {
			s.send(Envelope{Disconnected: true})
			return
		}

		events := set.Events()
		infoByEvent := make(map[wire.Event]*ClassPrepareInfo, len(events))
		terminal := false
		classPrepare := false
		for _, e := range events {
			if cp, ok := e.(wire.ClassPrepareEvent); ok {
				infoByEvent[e] = s.onClassPrepare(cp.Class())
				classPrepare = true
			}
			switch e.Kind() {
			case wire.KindVMDeath, wire.KindVMDisconnect:
				terminal = true
			}
		}

		// class-prepare holds all threads until the set is resumed; other
		// sets (breakpoint, step, exception) stay suspended for the client.
		if classPrepare {
			if err := set.Resume(); err != nil {
				s.log.Warnw("resuming event set", "error", err)
			}
		}

		for _, e := range events {
			if !s.send(Envelope{Event: e, ClassPrepare: infoByEvent[e]}) {
				return
			}
		}

		if terminal {
			return
		}
	}
}

// send delivers env to the Controller, returning false if the Session was
// disposed before delivery completed.
func (s *Session) send(env Envelope) bool {
	select {
	case s.out <- env:
		return true
	case <-s.done:
		return false
	}
}

// onClassPrepare registers the newly-loaded class with the location
// Resolver and attempts to install any breakpoints pending for its
// source file. It must not mutate the Breakpoint Registry itself (the
// Controller owns that); it only reports which points it managed to
// install so the Controller can promote them.
func (s *Session) onClassPrepare(class wire.ReferenceType) *ClassPrepareInfo {
	s.Resolver.Register(class)
	name, err := class.SourceName()
	if err != nil || name == "" {
		return nil
	}
	pending := s.pendingFor(name)
	if len(pending) == 0 {
		return nil
	}
	var info ClassPrepareInfo
	info.ShortName = name
	for _, p := range pending {
		n, err := s.SetBreakpoint(name, p.Line)
		if err != nil {
			s.log.Warnw("retrying pending breakpoint", "file", p.File, "line", p.Line, "error", err)
			continue
		}
		if n > 0 {
			info.Installed = append(info.Installed, p)
		}
	}
	if len(info.Installed) == 0 {
		return nil
	}
	return &info
}
