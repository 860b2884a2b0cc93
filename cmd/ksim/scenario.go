package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newScenarioCommand(f *flags) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run a single named scenario",
		Long:  "Available scenarios: " + strings.Join(ScenarioNames, ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := f.logger()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			k := NewKernel(f.config(), log)
			stop := startTickDriver(k)
			defer stop()

			done, err := runScenario(k, name)
			if err != nil {
				return err
			}
			if !waitWithDeadline(done, runTimeout) {
				log.Errorw("scenario timed out", "scenario", name, "timeout", runTimeout)
				return errScenariosFailed(1)
			}
			log.Infow("scenario completed", "scenario", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", ScenarioMutexPriorityInheritance, "scenario to run")
	return cmd
}
