package repl

import (
	"fmt"
	"io"

	"github.com/rainoftime/canal/pkg/driver"
	"github.com/rainoftime/canal/pkg/ir"
)

// writeDump renders the §6 textual dump: for each function, its
// argument Domains and returned Domain, then for each basic block its
// recorded input state, the Domain each instruction in the block
// produced, and the block's output state. A block the interpreter
// never reached (dead code, or a function that never finished) is
// printed with "unreached" in place of its states.
func writeDump(w io.Writer, mod *ir.Module, summaries []driver.FunctionSummary) error {
	fmt.Fprintf(w, "module: %d function(s), %d global(s)\n\n", len(mod.Functions), len(mod.Globals))

	for _, s := range summaries {
		if err := writeFunctionDump(w, s); err != nil {
			return err
		}
	}
	return nil
}

func writeFunctionDump(w io.Writer, s driver.FunctionSummary) error {
	fmt.Fprintf(w, "function %s\n", s.Function)
	if s.Err != nil {
		fmt.Fprintf(w, "  aborted: %v\n\n", s.Err)
		return nil
	}

	for _, p := range s.Function.Params {
		v, ok := s.Output.Vars[p.ID()]
		fmt.Fprintf(w, "  arg %s:\n", p)
		if !ok {
			fmt.Fprintln(w, "    unreached")
			continue
		}
		writeIndented(w, "    ", v.String())
	}

	if s.Output.Returned != nil {
		fmt.Fprintln(w, "  returned:")
		writeIndented(w, "    ", s.Output.Returned.String())
	} else {
		fmt.Fprintln(w, "  returned: undefined")
	}

	for _, blk := range s.Function.Blocks {
		fmt.Fprintf(w, "  block %s\n", blk)

		in, hasIn := s.Interp.Input[blk.ID()]
		fmt.Fprintln(w, "    input:")
		if hasIn {
			writeIndented(w, "      ", in.String())
		} else {
			fmt.Fprintln(w, "      unreached")
		}

		out, hasOut := s.Interp.Output[blk.ID()]
		for _, instr := range blk.Instrs {
			fmt.Fprintf(w, "    instr %s = %s\n", instr, instr.Op)
			if !hasOut {
				fmt.Fprintln(w, "      unreached")
				continue
			}
			v, ok := out.Vars[instr.ID()]
			if !ok {
				fmt.Fprintln(w, "      (no value)")
				continue
			}
			writeIndented(w, "      ", v.String())
		}

		fmt.Fprintln(w, "    output:")
		if hasOut {
			writeIndented(w, "      ", out.String())
		} else {
			fmt.Fprintln(w, "      unreached")
		}
	}
	fmt.Fprintln(w)
	return nil
}

func writeIndented(w io.Writer, indent, s string) {
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	if s == "" {
		fmt.Fprintf(w, "%s(empty)\n", indent)
		return
	}
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			fmt.Fprintf(w, "%s%s\n", indent, s[start:i])
			start = i + 1
		}
	}
}
