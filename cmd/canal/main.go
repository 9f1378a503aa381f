// Command canal is the abstract interpreter's command surface (§6): a
// cobra root command exposing the REPL's interactive loop (repl) plus
// one-shot file, info, start and run subcommands (run's --dump flag
// writes the dump), grounded on cmd/z80opt's
// cobra wiring (RunE returning wrapped errors, os.Exit(1) on
// rootCmd.Execute() failure).
package main

import (
	"fmt"
	"os"

	"github.com/rainoftime/canal/internal/repl"
	"github.com/rainoftime/canal/pkg/config"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.Default()
	var verbose bool
	var workers int
	var stepBudget int

	rootCmd := &cobra.Command{
		Use:   "canal",
		Short: "Abstract interpreter over a typed SSA IR",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Verbose = verbose
			cfg.Workers = workers
			cfg.StepBudget = stepBudget
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress while interpreting")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "driver worker goroutines (0 = NumCPU)")
	rootCmd.PersistentFlags().IntVar(&stepBudget, "step-budget", 0, "driver function-dequeue budget (0 = unbounded)")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive command loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			repl.New(cfg, os.Stdout).Loop(os.Stdin)
			return nil
		},
	}

	fileCmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Load a module from a JSON IR file and interpret it to a fixed point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := repl.New(cfg, os.Stdout)
			if err := r.File(args[0]); err != nil {
				return err
			}
			return r.Run()
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info <path>",
		Short: "Print a loaded module's signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := repl.New(cfg, os.Stdout)
			if err := r.File(args[0]); err != nil {
				return err
			}
			return r.InfoModule()
		},
	}

	startCmd := &cobra.Command{
		Use:   "start <path>",
		Short: "Load a module and prepare the driver without running the fixpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := repl.New(cfg, os.Stdout)
			if err := r.File(args[0]); err != nil {
				return err
			}
			return r.Start()
		},
	}

	var dumpOut string
	runCmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Load a module, interpret it to a fixed point, and optionally dump the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := repl.New(cfg, os.Stdout)
			if err := r.File(args[0]); err != nil {
				return err
			}
			if err := r.Run(); err != nil {
				return err
			}
			if dumpOut == "" {
				return nil
			}
			return r.Dump(dumpOut)
		},
	}
	runCmd.Flags().StringVar(&dumpOut, "dump", "", "write the interpretation state to this path")

	rootCmd.AddCommand(replCmd, fileCmd, infoCmd, startCmd, runCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
