// Package repl implements the command surface of §6: a thin external
// collaborator wrapping the analysis core behind the six named
// commands (file, info module, run, start, dump, quit). Grounded on
// the teacher's internal/repl-style scanner loop (a bare
// bufio.Scanner plus a ">>> " prompt), generalized to dispatch a
// fixed command vocabulary instead of feeding raw source to a VM.
// cmd/canal wires the same command handlers as cobra subcommands for
// non-interactive (one-shot) use.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rainoftime/canal/internal/irjson"
	"github.com/rainoftime/canal/pkg/config"
	"github.com/rainoftime/canal/pkg/driver"
	"github.com/rainoftime/canal/pkg/ir"
)

// REPL holds the one module and driver the command surface operates
// on. Nothing here is process-global: a REPL is constructed with an
// explicit *config.Config and writes to an explicit io.Writer, the
// same discipline pkg/config's doc comment asks of every other
// package.
type REPL struct {
	Cfg *config.Config
	Out io.Writer

	module *ir.Module
	drv    *driver.Driver
}

// New returns a REPL with no module loaded. cfg is config.Default()
// if nil; out is os.Stdout's caller-supplied stand-in so tests can
// capture output.
func New(cfg *config.Config, out io.Writer) *REPL {
	if cfg == nil {
		cfg = config.Default()
	}
	return &REPL{Cfg: cfg, Out: out}
}

// Loop runs the interactive prompt until EOF or a "quit" command,
// exactly mirroring the teacher's Start(): a bufio.Scanner over in, a
// printed prompt before each read, one literal command recognized per
// line.
func (r *REPL) Loop(in io.Reader) {
	fmt.Fprintln(r.Out, "canal REPL | type 'help' for commands, 'quit' to exit")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.Out, ">>> ")
		if !scanner.Scan() {
			break
		}
		quit, err := r.Dispatch(scanner.Text())
		if err != nil {
			fmt.Fprintf(r.Out, "error: %v\n", err)
		}
		if quit {
			break
		}
	}
}

// Dispatch parses and runs one command line, reporting whether the
// loop should stop. The interactive Loop calls it for each input
// line; cmd/canal's one-shot subcommands call File, InfoModule,
// Start, Run and Dump directly instead.
func (r *REPL) Dispatch(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		r.help()
		return false, nil
	case "file":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: file <path>")
		}
		return false, r.File(fields[1])
	case "info":
		if len(fields) < 2 || fields[1] != "module" {
			return false, fmt.Errorf("usage: info module")
		}
		return false, r.InfoModule()
	case "start":
		return false, r.Start()
	case "run":
		return false, r.Run()
	case "dump":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: dump <path>")
		}
		return false, r.Dump(fields[1])
	default:
		return false, fmt.Errorf("unknown command %q, try \"help\"", fields[0])
	}
}

func (r *REPL) help() {
	fmt.Fprintln(r.Out, "Available commands:")
	fmt.Fprintln(r.Out, "  file <path>   load a module from a JSON IR file")
	fmt.Fprintln(r.Out, "  info module   print the loaded module's signature")
	fmt.Fprintln(r.Out, "  start         prepare the driver without running the fixpoint")
	fmt.Fprintln(r.Out, "  run           interpret the module to a fixed point")
	fmt.Fprintln(r.Out, "  dump <path>   write the interpretation state to a file")
	fmt.Fprintln(r.Out, "  quit          exit")
}

// File loads path as a module, replacing any previously loaded one.
// Grounded on CommandFile.h: loading a new file discards the old
// interpreter outright rather than merging into it.
func (r *REPL) File(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	defer f.Close()

	mod, err := irjson.Load(f)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	r.module = mod
	r.drv = nil
	if r.Cfg.Verbose {
		fmt.Fprintf(r.Out, "loaded %d function(s), %d global(s)\n", len(mod.Functions), len(mod.Globals))
	}
	return nil
}

// InfoModule prints the loaded module's function and global
// signatures, the REPL's analogue of the original CommandInfo's
// module-identity dump (name/data-layout/endianness do not apply to
// canal's module, which has no notion of target triple).
func (r *REPL) InfoModule() error {
	if r.module == nil {
		return fmt.Errorf("no module is loaded, try \"file <path>\" first")
	}
	fmt.Fprintf(r.Out, "Functions: %d\n", len(r.module.Functions))
	for _, fn := range r.module.Functions {
		kind := "defined"
		if fn.External {
			kind = "external"
		}
		fmt.Fprintf(r.Out, "  %s %s (%d block(s), %d param(s))\n", fn, kind, len(fn.Blocks), len(fn.Params))
	}
	fmt.Fprintf(r.Out, "Globals: %d\n", len(r.module.Globals))
	for _, g := range r.module.Globals {
		fmt.Fprintf(r.Out, "  %s\n", g)
	}
	return nil
}

// Start prepares a driver over the loaded module — building its
// global memory blocks — without running any function to a fixed
// point. The original CommandStart describes this as interpreting
// "until the beginning of the main procedure" and leaves its body
// empty; canal's analogue does the one piece of real work that
// precedes any function's entry: establishing the initial global
// state every function's entry will read.
func (r *REPL) Start() error {
	if r.module == nil {
		return fmt.Errorf("no module is loaded, try \"file <path>\" first")
	}
	d, err := driver.New(r.module, r.Cfg)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	r.drv = d
	if r.Cfg.Verbose {
		fmt.Fprintln(r.Out, "driver ready, globals initialized")
	}
	return nil
}

// Run interprets every function in the loaded module to a fixed
// point, calling Start first if it has not already run, and reports
// one line per function summary.
func (r *REPL) Run() error {
	if r.module == nil {
		return fmt.Errorf("no module is loaded, try \"file <path>\" first")
	}
	if r.drv == nil {
		if err := r.Start(); err != nil {
			return err
		}
	}
	summaries := r.drv.Analyze()
	for _, s := range summaries {
		status := "ok"
		if s.Err != nil {
			status = s.Err.Error()
		}
		fmt.Fprintf(r.Out, "  %s: %s\n", s.Function, status)
	}
	return nil
}

// Dump writes the full per-function, per-block interpretation state
// to path, in the textual format documented in §6.
func (r *REPL) Dump(path string) error {
	if r.drv == nil {
		return fmt.Errorf("no program is interpreted, try \"run\" first")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	defer f.Close()

	if err := writeDump(f, r.module, r.drv.Summaries()); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	fmt.Fprintln(r.Out, "interpretation state saved")
	return nil
}
