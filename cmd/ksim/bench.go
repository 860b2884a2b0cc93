package main

import (
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// HostInfo reports the host process's scheduling placement for the
// "bench" subcommand's informational header, in the struct-plus-Update
// style other hosted diagnostics in this ecosystem use for /proc-derived
// reporting. It never feeds back into the kernel itself — purely a
// demo-only aside about the machine this simulation happens to run on.
type HostInfo struct {
	Pid          int
	NumCPU       int
	AffinityMask []int
}

// Update populates h from the current process's scheduling affinity via
// sched_getaffinity(2).
func (h *HostInfo) Update() error {
	h.Pid = unix.Getpid()
	h.NumCPU = runtime.NumCPU()

	var set unix.CPUSet
	if err := unix.SchedGetaffinity(h.Pid, &set); err != nil {
		return err
	}
	h.AffinityMask = h.AffinityMask[:0]
	for cpu := 0; len(h.AffinityMask) < set.Count(); cpu++ {
		if set.IsSet(cpu) {
			h.AffinityMask = append(h.AffinityMask, cpu)
		}
	}
	return nil
}

func newBenchCommand(f *flags) *cobra.Command {
	var ticks int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the priority-inheritance scenario repeatedly and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := f.logger()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			var host HostInfo
			if err := host.Update(); err != nil {
				log.Warnw("host affinity report unavailable", "error", err)
			} else {
				log.Infow("host placement",
					"pid", host.Pid, "num_cpu", host.NumCPU, "affinity", host.AffinityMask)
			}

			k := NewKernel(f.config(), log)
			stop := startTickDriver(k)
			defer stop()

			start := time.Now()
			completed := 0
			for i := 0; i < ticks; i++ {
				done := scenarioMutexPriorityInheritance(k)
				if waitWithDeadline(done, runTimeout) {
					completed++
				}
			}
			elapsed := time.Since(start)

			log.Infow("bench complete",
				"iterations", ticks,
				"completed", completed,
				"elapsed", elapsed,
				"per_iteration", elapsed/time.Duration(max(ticks, 1)),
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&ticks, "iterations", 20, "number of mutex-pi scenario iterations to run")
	return cmd
}
