package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dshills/tracewright/internal/breakpoint"
	"github.com/dshills/tracewright/internal/debugger"
	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/observable"
)

// Console interprets text commands against a session. It must be used on
// the session's control thread.
type Console struct {
	s       *Session
	out     io.Writer
	watcher *debugger.Watcher
	notices *observable.FuncObserver[[]*Notice]
}

// NewConsole creates a console writing to out. It reports state changes of
// the current debugger and every new notice.
func NewConsole(s *Session, out io.Writer) *Console {
	c := &Console{s: s, out: out}
	c.watcher = debugger.NewWatcher(s.Current, func(d debugger.Debugger) {
		if d == nil {
			fmt.Fprintln(c.out, "no current debugger")
			return
		}
		fmt.Fprintf(c.out, "%s [%s] %s\n", d.Name(), d.State(), d.StateDescription())
	})
	c.notices = observable.ObserverFunc(func(ev observable.Event[[]*Notice]) {
		if n, ok := ev.Meta["item"].(*Notice); ok && ev.Op() == "add" {
			fmt.Fprintln(c.out, n.String())
		}
	})
	s.Notices.Subscribe(c.notices)
	return c
}

// Close detaches the console from the session.
func (c *Console) Close() {
	c.watcher.Shutdown()
	c.s.Notices.Unsubscribe(c.notices)
}

type command struct {
	usage string
	run   func(c *Console, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":      {"help", (*Console).help},
		"quit":      {"quit", func(*Console, []string) error { return ErrQuit }},
		"load":      {"load <image.toml>", (*Console).load},
		"snapshot":  {"snapshot save|load <file>", (*Console).snapshot},
		"sim":       {"sim", (*Console).sim},
		"trace":     {"trace [file]", (*Console).trace},
		"live":      {"live", (*Console).live},
		"step":      {"step [until-addr]", (*Console).step},
		"over":      {"over", (*Console).over},
		"back":      {"back", withCurrent(debugger.Debugger.StepBackward)},
		"continue":  {"continue", withCurrent(debugger.Debugger.ContinueForward)},
		"rcontinue": {"rcontinue", withCurrent(debugger.Debugger.ContinueBackward)},
		"halt":      {"halt", withCurrent(debugger.Debugger.Halt)},
		"stop":      {"stop", withCurrent(debugger.Debugger.Stop)},
		"status":    {"status", (*Console).status},
		"list":      {"list", (*Console).list},
		"select":    {"select <n>", (*Console).selectDebugger},
		"jobs":      {"jobs", (*Console).jobs},
		"cancel":    {"cancel <job-id>", (*Console).cancel},
		"bp":        {"bp add <addr> [size] [type] [comment] | rm <id> | enable <id> | disable <id> | list", (*Console).bp},
	}
}

// Exec runs one command line. It returns ErrQuit for "quit".
func (c *Console) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := commands[strings.ToLower(fields[0])]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return cmd.run(c, fields[1:])
}

func (c *Console) help([]string) error {
	names := []string{"load", "snapshot", "sim", "trace", "live", "list", "select",
		"step", "over", "back", "continue", "rcontinue", "halt", "stop",
		"status", "jobs", "cancel", "bp", "help", "quit"}
	for _, name := range names {
		fmt.Fprintf(c.out, "  %s\n", commands[name].usage)
	}
	return nil
}

func (c *Console) current() (debugger.Debugger, error) {
	d := c.s.Current.Current()
	if d == nil {
		return nil, ErrNoDebugger
	}
	return d, nil
}

func withCurrent(op func(debugger.Debugger) error) func(*Console, []string) error {
	return func(c *Console, _ []string) error {
		d, err := c.current()
		if err != nil {
			return err
		}
		return op(d)
	}
}

func (c *Console) load(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: load <image.toml>")
	}
	_, err := c.s.LoadImage(args[0])
	return err
}

func (c *Console) snapshot(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: snapshot save|load <file>")
	}
	var err error
	switch args[0] {
	case "save":
		_, err = c.s.SaveSnapshot(args[1])
	case "load":
		_, err = c.s.LoadSnapshot(args[1])
	default:
		err = fmt.Errorf("unknown snapshot action %q", args[0])
	}
	return err
}

func (c *Console) sim([]string) error {
	_, err := c.s.NewSimulationDebugger()
	return err
}

func (c *Console) trace(args []string) error {
	var tr *engine.Trace
	var err error
	if len(args) > 0 {
		tr, err = engine.LoadTrace(args[0])
	} else {
		tr, err = c.s.TraceFromSelection()
	}
	if err != nil {
		return err
	}
	_, err = c.s.NewTraceDebugger(tr)
	return err
}

func (c *Console) live([]string) error {
	_, err := c.s.NewLiveDebugger()
	return err
}

func (c *Console) step(args []string) error {
	d, err := c.current()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return d.StepForward(nil)
	}
	addr, err := breakpoint.ParseAddress(args[0])
	if err != nil {
		return err
	}
	return d.StepForward(&addr)
}

func (c *Console) over([]string) error {
	d, err := c.current()
	if err != nil {
		return err
	}
	return debugger.StepOver(d, c.s.Image.Get())
}

func (c *Console) status([]string) error {
	d, err := c.current()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s [%s] %s\n", d.Name(), d.State(), d.StateDescription())
	flags := []struct {
		name string
		ok   bool
	}{
		{"step", d.CanStepForward()},
		{"back", d.CanStepBackward()},
		{"continue", d.CanContinueForward()},
		{"rcontinue", d.CanContinueBackward()},
		{"halt", d.CanHalt()},
		{"stop", d.CanStop()},
	}
	var avail []string
	for _, f := range flags {
		if f.ok {
			avail = append(avail, f.name)
		}
	}
	fmt.Fprintf(c.out, "available: %s\n", strings.Join(avail, " "))
	return nil
}

func (c *Console) list([]string) error {
	cur := c.s.Current.Current()
	for i, d := range c.s.Debuggers.Debuggers().Items() {
		mark := " "
		if d == cur {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s %d %s [%s] %s\n", mark, i+1, d.Name(), d.State(), d.StateDescription())
	}
	return nil
}

func (c *Console) selectDebugger(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: select <n>")
	}
	n, err := strconv.Atoi(args[0])
	items := c.s.Debuggers.Debuggers().Items()
	if err != nil || n < 1 || n > len(items) {
		return fmt.Errorf("no debugger %q", args[0])
	}
	return c.s.Current.SetCurrent(items[n-1])
}

func (c *Console) jobs([]string) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPROGRESS")
	for _, j := range c.s.Jobs.Jobs().Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%% %s\n", j.ID()[:8], j.Name(), j.Status(), j.Progress(), j.ProgressText())
	}
	return tw.Flush()
}

func (c *Console) cancel(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cancel <job-id>")
	}
	for _, j := range c.s.Jobs.Jobs().Items() {
		if strings.HasPrefix(j.ID(), args[0]) {
			return c.s.Jobs.Cancel(j)
		}
	}
	return fmt.Errorf("no job %q", args[0])
}

func (c *Console) bp(args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	bps := c.s.Breakpoints
	switch args[0] {
	case "list":
		for _, b := range bps.All() {
			fmt.Fprintf(c.out, "%d %s\n", b.ID, b)
		}
		return nil
	case "add":
		if len(args) < 2 {
			return errors.New("usage: bp add <addr> [size] [type] [comment]")
		}
		addr, err := breakpoint.ParseAddress(args[1])
		if err != nil {
			return err
		}
		size := uint64(1)
		if len(args) > 2 {
			if size, err = breakpoint.ParseSize(args[2]); err != nil {
				return err
			}
		}
		typ := breakpoint.Execute
		if len(args) > 3 {
			if typ, err = breakpoint.ParseType(args[3]); err != nil {
				return err
			}
		}
		b, err := bps.Add(typ, addr, size, strings.Join(args[min(len(args), 4):], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "breakpoint %d: %s\n", b.ID, b)
		return nil
	case "rm", "enable", "disable":
		if len(args) != 2 {
			return fmt.Errorf("usage: bp %s <id>", args[0])
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid breakpoint id %q", args[1])
		}
		if args[0] == "rm" {
			return bps.RemoveID(id)
		}
		b, ok := bps.Get(id)
		if !ok {
			return fmt.Errorf("breakpoint %d: %w", id, breakpoint.ErrNotFound)
		}
		return bps.SetEnabled(b, args[0] == "enable")
	default:
		return fmt.Errorf("unknown bp action %q", args[0])
	}
}
