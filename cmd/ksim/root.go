package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// flags collects the persistent, Config-overriding command-line flags
// shared by every subcommand, the cobra analogue of distortos's
// DISTORTOS_* Kconfig options being fixed at build time: here they are
// fixed at process start instead.
type flags struct {
	quantum               int
	stackSize             int
	maxQueuedSignals      int
	maxSignalAssociations int
	verbose               bool
}

func newRootCommand() *cobra.Command {
	f := &flags{}
	defaults := DefaultConfig()

	root := &cobra.Command{
		Use:   "ksim",
		Short: "Hosted scheduler/synchronization/signal demo runner",
		Long: "ksim drives this repository's scheduler, mutexes, semaphores and signal\n" +
			"delivery end-to-end, the way distortos's own test applications exercise\n" +
			"the real target, with a real tick source substituted by a wall-clock\n" +
			"driven ticker.",
		SilenceUsage: true,
	}

	root.PersistentFlags().IntVar(&f.quantum, "quantum", defaults.Quantum,
		"round-robin ticks before a thread's priority group rotates")
	root.PersistentFlags().IntVar(&f.stackSize, "stack-size", defaults.StackSize,
		"heap stack size, in bytes, for spawned threads")
	root.PersistentFlags().IntVar(&f.maxQueuedSignals, "max-queued-signals", defaults.MaxQueuedSignals,
		"per-thread queued-signal backlog bound")
	root.PersistentFlags().IntVar(&f.maxSignalAssociations, "max-signal-associations", defaults.MaxSignalAssociations,
		"per-thread distinct (handler, mask) association slot bound")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false,
		"enable debug-level logging")

	root.AddCommand(newRunCommand(f))
	root.AddCommand(newScenarioCommand(f))
	root.AddCommand(newBenchCommand(f))

	return root
}

// config translates the parsed flags into a Config.
func (f *flags) config() Config {
	return Config{
		Quantum:               f.quantum,
		StackSize:             f.stackSize,
		MaxQueuedSignals:      f.maxQueuedSignals,
		MaxSignalAssociations: f.maxSignalAssociations,
	}
}

// logger builds the zap.SugaredLogger every subcommand logs through: zap's
// development configuration (debug level) at verbose, otherwise a terser
// production-style console encoder without timestamps.
func (f *flags) logger() (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if f.verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.TimeKey = ""
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ksim: building logger: %w", err)
	}
	return log.Sugar(), nil
}
