// Package fake is a small, hand-scripted in-memory implementation of the
// wire interfaces, used by this module's own tests and as the default
// connector of cmd/sdbgctl. Nothing here
// talks to a real target runtime; tests build a VM by hand and drive it
// by pushing EventSets onto its queue.
package fake

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/scala-ide/sdbg/wire"
)

var nextID uint64

// NextObjectID hands out a fresh, process-wide unique ObjectID, so tests
// building several fake objects never collide by accident.
func NextObjectID() wire.ObjectID {
	return wire.ObjectID(atomic.AddUint64(&nextID, 1))
}

// Connector is a wire.Connector whose Launch/Attach behavior is supplied
// by the test as plain functions.
type Connector struct {
	LaunchFunc func(ctx context.Context, opts wire.LaunchOptions) (wire.VirtualMachine, error)
	AttachFunc func(ctx context.Context, host string, port int) (wire.VirtualMachine, error)
}

func (c *Connector) Launch(ctx context.Context, opts wire.LaunchOptions) (wire.VirtualMachine, error) {
	return c.LaunchFunc(ctx, opts)
}

func (c *Connector) Attach(ctx context.Context, host string, port int) (wire.VirtualMachine, error) {
	return c.AttachFunc(ctx, host, port)
}

// VM is an in-memory wire.VirtualMachine. Tests populate Classes/Threads
// directly and drive behavior by pushing events onto Queue.
type VM struct {
	mu          sync.Mutex
	Classes     []wire.ReferenceType
	Threads     []wire.ThreadReference
	proc        *Process
	queue       *EventQueue
	erm         *EventRequestManager
	modifiable  bool
	disposed    bool
	ResumeCount int
}

// NewVM returns an empty VM. modifiable controls CanBeModified, which
// gates whether the Controller will attempt toString() invocation.
func NewVM(modifiable bool) *VM {
	return &VM{
		queue:      NewEventQueue(),
		erm:        NewEventRequestManager(),
		modifiable: modifiable,
	}
}

// WithProcess attaches stdout/stderr readers, as a launched (not
// attached) target would have.
func (vm *VM) WithProcess(stdout, stderr io.Reader) *VM {
	vm.proc = &Process{stdout: stdout, stderr: stderr}
	return vm
}

// Queue exposes the fake event queue so a test can Push events onto it.
func (vm *VM) Queue() *EventQueue { return vm.queue }

// ERM exposes the fake event request manager for assertions on which
// requests the Session/Controller enabled.
func (vm *VM) ERM() *EventRequestManager { return vm.erm }

func (vm *VM) Dispose() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.disposed {
		return fmt.Errorf("fake: already disposed")
	}
	vm.disposed = true
	vm.queue.Close()
	return nil
}

func (vm *VM) Resume() error {
	vm.mu.Lock()
	vm.ResumeCount++
	vm.mu.Unlock()
	return nil
}

func (vm *VM) Process() wire.Process {
	if vm.proc == nil {
		return nil
	}
	return vm.proc
}

func (vm *VM) AllClasses() []wire.ReferenceType   { return vm.Classes }
func (vm *VM) AllThreads() []wire.ThreadReference { return vm.Threads }
func (vm *VM) CanBeModified() bool                { return vm.modifiable }

// MirrorOfPrimitive boxes v using a best-effort Go-type-to-runtime-type
// guess. Note this cannot distinguish "char" from "int" (both int32 in
// Go) the way a real protocol implementation could from its own typed
// mirror calls; callers that care pass a rune and accept it renders as
// "int" here.
func (vm *VM) MirrorOfPrimitive(v any) (wire.Value, error) {
	return wire.PrimitiveValue{V: v, TypeNameV: guessPrimitiveTypeName(v)}, nil
}

func (vm *VM) MirrorOfString(s string) (wire.StringRef, error) {
	return NewString(NextObjectID(), s), nil
}

func (vm *VM) EventQueue() wire.EventQueue                     { return vm.queue }
func (vm *VM) EventRequestManager() wire.EventRequestManager   { return vm.erm }

func guessPrimitiveTypeName(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case int8:
		return "byte"
	case int16:
		return "short"
	case int32:
		return "int"
	case int64, int:
		return "long"
	case float32:
		return "float"
	case float64:
		return "double"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Process is the fake wire.Process.
type Process struct {
	stdout io.Reader
	stderr io.Reader
}

func (p *Process) Stdout() wire.Reader { return p.stdout }
func (p *Process) Stderr() wire.Reader { return p.stderr }
