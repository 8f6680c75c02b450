package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scala-ide/sdbg/config"
	"github.com/scala-ide/sdbg/control"
	"github.com/scala-ide/sdbg/wire"
	"github.com/scala-ide/sdbg/wire/fake"
)

// cliSink prints every Controller event to standard output as the REPL
// runs; a real front-end would instead forward these over its own
// transport to a connected client.
type cliSink struct{}

func (cliSink) Publish(e control.Event) {
	switch ev := e.(type) {
	case control.VMStartEvent:
		fmt.Printf("* started session %s\n", ev.SessionID)
	case control.VMDisconnectEvent:
		fmt.Printf("* disconnected: %s\n", ev.Reason)
	case control.BreakEvent:
		fmt.Printf("* breakpoint hit: thread %d (%s) at %s:%d\n", ev.ThreadID, ev.ThreadName, ev.File, ev.Line)
	case control.StepEvent:
		fmt.Printf("* step complete: thread %d (%s) at %s:%d\n", ev.ThreadID, ev.ThreadName, ev.File, ev.Line)
	case control.ExceptionEvent:
		if ev.HasCatch {
			fmt.Printf("* exception @%d on thread %d (%s), caught at %s:%d\n", ev.ObjectID, ev.ThreadID, ev.ThreadName, ev.CatchFile, ev.CatchLine)
		} else {
			fmt.Printf("* uncaught exception @%d on thread %d (%s)\n", ev.ObjectID, ev.ThreadID, ev.ThreadName)
		}
	case control.ThreadStartEvent:
		fmt.Printf("* thread started: %d (%s)\n", ev.ThreadID, ev.ThreadName)
	case control.ThreadDeathEvent:
		fmt.Printf("* thread died: %d (%s)\n", ev.ThreadID, ev.ThreadName)
	case control.OutputEvent:
		fmt.Print(ev.Text)
	case control.BackgroundMessageEvent:
		fmt.Printf("* %s\n", ev.Text)
	}
}

// demoConnector launches/attaches into a fresh in-memory fake.VM; it
// stands in for a real protocol-library connector, which is out of
// scope for this module. A host embedding this command against an
// actual target runtime supplies its own wire.Connector instead.
func demoConnector() wire.Connector {
	return &fake.Connector{
		LaunchFunc: func(ctx context.Context, opts wire.LaunchOptions) (wire.VirtualMachine, error) {
			return fake.NewVM(true), nil
		},
		AttachFunc: func(ctx context.Context, host string, port int) (wire.VirtualMachine, error) {
			return fake.NewVM(false), nil
		},
	}
}

func buildController(snap config.Snapshot, log *zap.SugaredLogger) *control.Controller {
	return control.New(demoConnector(), snap, cliSink{}, log)
}

func runREPL(cmd *cobra.Command, args []string) error {
	log, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	snap, err := loadConfig(configPath)
	if err != nil {
		log.Warnw("starting with empty configuration", "error", err)
	}

	ctrl := buildController(snap, log)
	defer ctrl.Stop()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "(sdbg) ",
		HistoryFile: historyFilePath(),
	})
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("sdbgctl ready. Type 'help' for commands, 'quit' to exit.")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if dispatch(ctrl, line) {
			return nil
		}
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sdbgctl_history"
	}
	return home + "/.sdbgctl_history"
}

// dispatch runs one REPL line against ctrl; it returns true when the REPL
// should exit.
func dispatch(ctrl *control.Controller, line string) bool {
	fields := strings.Fields(line)
	name, rest := fields[0], fields[1:]

	switch name {
	case "quit", "exit":
		return true
	case "help":
		printHelp()
	case "start":
		if len(rest) < 1 {
			fmt.Println("usage: start <mainClass>")
			return false
		}
		if err := ctrl.Start(rest[0]); err != nil {
			fmt.Println("error:", err)
		}
	case "attach":
		if len(rest) < 2 {
			fmt.Println("usage: attach <host> <port>")
			return false
		}
		port, err := strconv.Atoi(rest[1])
		if err != nil {
			fmt.Println("bad port:", err)
			return false
		}
		if err := ctrl.Attach(rest[0], port); err != nil {
			fmt.Println("error:", err)
		}
	case "break":
		if len(rest) < 1 {
			fmt.Println("usage: break <file>:<line>")
			return false
		}
		file, lineNo, err := parseFileLine(rest[0])
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		ctrl.SetBreakpoint(file, lineNo)
	case "clear":
		if len(rest) < 1 {
			fmt.Println("usage: clear <file>:<line>")
			return false
		}
		file, lineNo, err := parseFileLine(rest[0])
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		ctrl.ClearBreakpoint(file, lineNo)
	case "addsource":
		if len(rest) < 1 {
			fmt.Println("usage: addsource <path>")
			return false
		}
		if err := ctrl.AddSourceFile(configPath, rest[0]); err != nil {
			fmt.Println("error:", err)
		}
	case "clearall":
		ctrl.ClearAllBreakpoints()
	case "list":
		active, pending := ctrl.ListBreakpoints()
		fmt.Println("active:")
		for _, p := range active {
			fmt.Printf("  %s:%d\n", p.File, p.Line)
		}
		fmt.Println("pending:")
		for _, p := range pending {
			fmt.Printf("  %s:%d\n", p.File, p.Line)
		}
	case "run":
		if !ctrl.Run() {
			fmt.Println("no active session")
		}
	case "next", "step", "stepout":
		threadID, err := parseThread(rest)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		var ok bool
		switch name {
		case "next":
			ok = ctrl.Next(threadID)
		case "step":
			ok = ctrl.Step(threadID)
		case "stepout":
			ok = ctrl.StepOut(threadID)
		}
		if !ok {
			fmt.Println("step request failed")
		}
	case "locate":
		if len(rest) < 2 {
			fmt.Println("usage: locate <threadID> <name>")
			return false
		}
		threadID, err := parseThread(rest[:1])
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		loc, ok := ctrl.LocateName(threadID, rest[1])
		if !ok {
			fmt.Println("not found")
			return false
		}
		printValueAt(ctrl, loc)
	case "bt":
		if len(rest) < 1 {
			fmt.Println("usage: bt <threadID> [start] [count]")
			return false
		}
		threadID, err := parseThread(rest[:1])
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		start, count := 0, -1
		if len(rest) > 1 {
			start, _ = strconv.Atoi(rest[1])
		}
		if len(rest) > 2 {
			count, _ = strconv.Atoi(rest[2])
		}
		bt, ok := ctrl.Backtrace(threadID, start, count)
		if !ok {
			fmt.Println("unknown thread")
			return false
		}
		printBacktrace(bt)
	default:
		fmt.Printf("unknown command %q; type 'help'\n", name)
	}
	return false
}

func printHelp() {
	fmt.Println(`commands:
  start <mainClass>
  attach <host> <port>
  break <file>:<line>
  clear <file>:<line>
  addsource <path>
  clearall
  list
  run
  next|step|stepout <threadID>
  locate <threadID> <name>
  bt <threadID> [start] [count]
  quit`)
}

func parseFileLine(spec string) (string, int, error) {
	idx := strings.LastIndexByte(spec, ':')
	if idx < 0 {
		return "", 0, fmt.Errorf("expected file:line, got %q", spec)
	}
	lineNo, err := strconv.Atoi(spec[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("bad line number in %q: %w", spec, err)
	}
	return spec[:idx], lineNo, nil
}

func parseThread(rest []string) (wire.ThreadID, error) {
	if len(rest) < 1 {
		return 0, fmt.Errorf("expected a thread id")
	}
	n, err := strconv.ParseUint(rest[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad thread id %q: %w", rest[0], err)
	}
	return wire.ThreadID(n), nil
}

func printValueAt(ctrl *control.Controller, loc control.DebugLocation) {
	v, ok := ctrl.Value(loc)
	if !ok {
		fmt.Println("could not read value")
		return
	}
	fmt.Printf("%s = %s\n", v.TypeName, v.Summary)
}

func printBacktrace(bt control.Backtrace) {
	fmt.Printf("thread %d (%s):\n", bt.ThreadID, bt.ThreadName)
	for _, f := range bt.Frames {
		fmt.Printf("  #%d %s.%s(%s:%d)\n", f.Index, f.ClassName, f.MethodName, f.SourceFile, f.Line)
	}
}
