package main

import (
	"time"

	"github.com/spf13/cobra"
)

// runTimeout bounds how long the "run" subcommand waits, in real wall-
// clock time, for every bundled scenario to finish before reporting it as
// hung.
const runTimeout = 5 * time.Second

func newRunCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every bundled scenario end-to-end and report the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := f.logger()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			k := NewKernel(f.config(), log)
			stop := startTickDriver(k)
			defer stop()

			log.Infow("starting bundled scenarios", "scenarios", ScenarioNames)

			failed := 0
			for _, name := range ScenarioNames {
				done, err := runScenario(k, name)
				if err != nil {
					log.Errorw("scenario setup failed", "scenario", name, "error", err)
					failed++
					continue
				}
				if waitWithDeadline(done, runTimeout) {
					log.Infow("scenario completed", "scenario", name)
				} else {
					log.Errorw("scenario timed out", "scenario", name, "timeout", runTimeout)
					failed++
				}
			}

			log.Infow("run complete",
				"threads_observed", k.Threads.Count(),
				"scenarios_run", len(ScenarioNames),
				"scenarios_failed", failed,
			)
			if failed > 0 {
				return errScenariosFailed(failed)
			}
			return nil
		},
	}
}

type errScenariosFailed int

func (e errScenariosFailed) Error() string {
	if e == 1 {
		return "ksim: 1 scenario failed"
	}
	return "ksim: scenarios failed"
}
