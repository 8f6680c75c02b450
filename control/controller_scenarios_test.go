package control_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scala-ide/sdbg/config"
	"github.com/scala-ide/sdbg/control"
	"github.com/scala-ide/sdbg/wire"
	"github.com/scala-ide/sdbg/wire/fake"
)

// testSink records every event a Controller publishes so tests can poll
// for an expected event with require.Eventually instead of assuming a
// fixed delivery latency across the pump/mailbox goroutines.
type testSink struct {
	mu     sync.Mutex
	events []control.Event
}

func (s *testSink) Publish(e control.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *testSink) snapshot() []control.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]control.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *testSink) has(pred func(control.Event) bool) bool {
	for _, e := range s.snapshot() {
		if pred(e) {
			return true
		}
	}
	return false
}

func newHarness(t *testing.T, vm *fake.VM, cfg config.Snapshot) (*control.Controller, *testSink) {
	t.Helper()
	sink := &testSink{}
	connector := &fake.Connector{
		LaunchFunc: func(ctx context.Context, opts wire.LaunchOptions) (wire.VirtualMachine, error) {
			return vm, nil
		},
		AttachFunc: func(ctx context.Context, host string, port int) (wire.VirtualMachine, error) {
			return vm, nil
		},
	}
	ctrl := control.New(connector, cfg, sink, nil)
	t.Cleanup(func() { ctrl.Stop() })
	return ctrl, sink
}

const eventually = 2 * time.Second
const tick = 5 * time.Millisecond

// Scenario 1: pending -> active promotion on class-prepare.
func TestPendingToActivePromotion(t *testing.T) {
	vm := fake.NewVM(true)
	ctrl, _ := newHarness(t, vm, config.Snapshot{})

	ctrl.SetBreakpoint("Foo.scala", 10)
	_, pending := ctrl.ListBreakpoints()
	require.Len(t, pending, 1)

	require.NoError(t, ctrl.Start("pkg.Foo"))

	class := fake.NewClass("pkg.Foo", "Foo.scala")
	class.AddLocation("main", "/proj/src/Foo.scala", 10)
	vm.Queue().Push(fake.NewClassPrepareEvent(class))

	require.Eventually(t, func() bool {
		active, _ := ctrl.ListBreakpoints()
		return len(active) == 1 && active[0].Line == 10
	}, eventually, tick)

	_, pending = ctrl.ListBreakpoints()
	assert.Empty(t, pending)
}

// Scenario 2: ambiguous source name resolves to one deterministic file.
func TestAmbiguousSourceNameResolvesDeterministically(t *testing.T) {
	vm := fake.NewVM(true)
	ctrl, _ := newHarness(t, vm, config.Snapshot{
		SourceFiles: []string{"b/Util.scala", "a/Util.scala"},
	})

	ctrl.SetBreakpoint("Util.scala", 3)

	_, pending := ctrl.ListBreakpoints()
	require.Len(t, pending, 1)
	assert.Equal(t, "a/Util.scala", pending[0].File)
	assert.Equal(t, 3, pending[0].Line)
}

// AddSourceFile extends the Source Map without a config file on disk, so
// a newly-reported bare name resolves on the very next SetBreakpoint.
func TestAddSourceFileExtendsResolution(t *testing.T) {
	vm := fake.NewVM(true)
	ctrl, _ := newHarness(t, vm, config.Snapshot{})

	ctrl.SetBreakpoint("New.scala", 7)
	_, pending := ctrl.ListBreakpoints()
	require.Len(t, pending, 1)
	assert.Equal(t, "New.scala", pending[0].File)

	require.NoError(t, ctrl.AddSourceFile("", "/proj/src/New.scala"))
	ctrl.ClearAllBreakpoints()

	ctrl.SetBreakpoint("New.scala", 7)
	_, pending = ctrl.ListBreakpoints()
	require.Len(t, pending, 1)
	assert.Equal(t, "/proj/src/New.scala", pending[0].File)
}

// Scenario 3: a step request eventually surfaces the landing position.
func TestStepEmitsPosition(t *testing.T) {
	vm := fake.NewVM(true)
	thread := fake.NewThread(1, "main")
	thread.FramesV = []*fake.Frame{fake.NewFrame(wire.Location{SourcePath: "/proj/src/Bar.scala", Line: 42})}
	vm.Threads = []wire.ThreadReference{thread}

	ctrl, sink := newHarness(t, vm, config.Snapshot{})
	require.NoError(t, ctrl.Start("pkg.Bar"))

	require.True(t, ctrl.Step(wire.ThreadID(1)))

	vm.Queue().Push(fake.NewStepEvent(thread, wire.Location{SourcePath: "/proj/src/Bar.scala", Line: 43}))

	require.Eventually(t, func() bool {
		return sink.has(func(e control.Event) bool {
			se, ok := e.(control.StepEvent)
			return ok && se.File == "/proj/src/Bar.scala" && se.Line == 43
		})
	}, eventually, tick)
}

// Scenario 4: ToString on an array renders the plural/singular count form.
func TestToStringOnArray(t *testing.T) {
	vm := fake.NewVM(true)
	thread := fake.NewThread(1, "main")
	vm.Threads = []wire.ThreadReference{thread}

	ctrl, _ := newHarness(t, vm, config.Snapshot{})
	require.NoError(t, ctrl.Start("pkg.Foo"))

	five := make([]wire.Value, 5)
	for i := range five {
		five[i] = wire.PrimitiveValue{V: int32(i), TypeNameV: "int"}
	}
	arr5 := fake.NewArray(fake.NextObjectID(), "int", five)
	arr1 := fake.NewArray(fake.NextObjectID(), "int", []wire.Value{wire.PrimitiveValue{V: int32(0), TypeNameV: "int"}})

	frame := fake.NewFrame(wire.Location{SourcePath: "/proj/src/Foo.scala", Line: 1})
	frame.WithVariable(wire.Variable{Name: "five", TypeName: "int[]", Slot: 0}, arr5)
	frame.WithVariable(wire.Variable{Name: "one", TypeName: "int[]", Slot: 1}, arr1)
	thread.FramesV = []*fake.Frame{frame}

	s, ok := ctrl.ToString(wire.ThreadID(1), control.StackSlotLocation(wire.ThreadID(1), 0, 0))
	require.True(t, ok)
	assert.Equal(t, "<array of 5 elements>", s)

	s, ok = ctrl.ToString(wire.ThreadID(1), control.StackSlotLocation(wire.ThreadID(1), 0, 1))
	require.True(t, ok)
	assert.Equal(t, "<array of 1 element>", s)
}

// Scenario 5: SetValue on a frame index beyond the live stack fails
// without mutating anything.
func TestSetValueOnAbsentSlotFails(t *testing.T) {
	vm := fake.NewVM(true)
	thread := fake.NewThread(1, "main")
	thread.FramesV = []*fake.Frame{
		fake.NewFrame(wire.Location{}),
		fake.NewFrame(wire.Location{}),
		fake.NewFrame(wire.Location{}),
	}
	vm.Threads = []wire.ThreadReference{thread}

	ctrl, _ := newHarness(t, vm, config.Snapshot{})
	require.NoError(t, ctrl.Start("pkg.Foo"))

	ok := ctrl.SetValue(control.StackSlotLocation(wire.ThreadID(1), 99, 0), "1")
	assert.False(t, ok)
}

// Scenario 6: a disconnect demotes active breakpoints to pending, ends
// the session, and fails any request depending on it.
func TestDisconnectEndsSessionAndDemotesBreakpoints(t *testing.T) {
	vm := fake.NewVM(true)
	thread := fake.NewThread(1, "main")
	thread.FramesV = []*fake.Frame{fake.NewFrame(wire.Location{SourcePath: "/proj/src/Foo.scala", Line: 5})}
	vm.Threads = []wire.ThreadReference{thread}
	class := fake.NewClass("pkg.Foo", "Foo.scala")
	class.AddLocation("main", "/proj/src/Foo.scala", 10)
	vm.Classes = []wire.ReferenceType{class}

	ctrl, sink := newHarness(t, vm, config.Snapshot{})
	require.False(t, ctrl.ActiveVM())
	require.NoError(t, ctrl.Start("pkg.Foo"))
	require.True(t, ctrl.ActiveVM())

	vm.Queue().Push(&fake.VMStartEvent{})
	require.Eventually(t, func() bool {
		return sink.has(func(e control.Event) bool { _, ok := e.(control.VMStartEvent); return ok })
	}, eventually, tick)

	ctrl.SetBreakpoint("Foo.scala", 10)
	require.Eventually(t, func() bool {
		active, _ := ctrl.ListBreakpoints()
		return len(active) == 1
	}, eventually, tick)

	vm.Queue().Push(&fake.VMDisconnectEvent{})
	require.Eventually(t, func() bool { return !ctrl.ActiveVM() }, eventually, tick)

	bt, ok := ctrl.Backtrace(wire.ThreadID(1), 0, -1)
	assert.False(t, ok)
	assert.Empty(t, bt.Frames)

	active, pending := ctrl.ListBreakpoints()
	assert.Empty(t, active)
	require.Len(t, pending, 1)
	assert.Equal(t, 10, pending[0].Line)
}

// Round-trip law: a string literal written via SetValue reads back with
// its summary quoted, matching the string rendering rule.
func TestSetValueThenGetValueStringRoundTrip(t *testing.T) {
	vm := fake.NewVM(true)
	thread := fake.NewThread(1, "main")
	frame := fake.NewFrame(wire.Location{SourcePath: "/proj/src/Foo.scala", Line: 1})
	frame.WithVariable(wire.Variable{Name: "s", TypeName: "String", Slot: 0}, fake.NewString(fake.NextObjectID(), ""))
	thread.FramesV = []*fake.Frame{frame}
	vm.Threads = []wire.ThreadReference{thread}

	ctrl, _ := newHarness(t, vm, config.Snapshot{})
	require.NoError(t, ctrl.Start("pkg.Foo"))

	loc := control.StackSlotLocation(wire.ThreadID(1), 0, 0)
	require.True(t, ctrl.SetValue(loc, `"abc"`))

	v, ok := ctrl.Value(loc)
	require.True(t, ok)
	assert.Equal(t, `"abc"`, v.Summary)
}
