package main

import (
	"bufio"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"strand/internal/bootstrap"
	"strand/internal/chanio"
	"strand/internal/config"
	"strand/internal/future"
	"strand/internal/observ"
	"strand/internal/rt"
	"strand/internal/sched"
	"strand/internal/ui"
)

var (
	benchTasks   int
	benchWorkers int
	benchSleepMs int
	benchSeed    int64
	benchUI      string
	benchReport  string
)

func init() {
	benchCmd.Flags().IntVar(&benchTasks, "tasks", 0, "number of tasks to spawn (default from strand.toml)")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	benchCmd.Flags().IntVar(&benchSleepMs, "sleep", -1, "per-task timer delay in ms (default from strand.toml)")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 0, "steal RNG seed (0 = time-based)")
	benchCmd.Flags().StringVar(&benchUI, "ui", "auto", "progress UI (auto|on|off)")
	benchCmd.Flags().StringVar(&benchReport, "report", "", "write a msgpack counter report to this file")
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Exercise the runtime end to end",
	Long: `Wires channel 1 to an in-process pipe, spawns N tasks that each await
a timer and then write their index to the channel, drains the runtime and
verifies every index arrived exactly once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		quiet, _ := cmd.Flags().GetBool("quiet")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		bc := benchConfig{
			cfg:     cfg,
			tasks:   cfg.Bench.Tasks,
			workers: cfg.Runtime.Workers,
			sleep:   cfg.Sleep(),
			grace:   cfg.Grace(),
			seed:    cfg.Runtime.Seed,
		}
		if benchTasks > 0 {
			bc.tasks = benchTasks
		}
		if benchWorkers > 0 {
			bc.workers = benchWorkers
		}
		if benchSleepMs >= 0 {
			bc.sleep = time.Duration(benchSleepMs) * time.Millisecond
		}
		if benchSeed != 0 {
			bc.seed = benchSeed
		}

		mode, err := readUIMode(benchUI)
		if err != nil {
			return err
		}

		start := time.Now()
		var res benchResult
		if shouldUseTUI(mode) && !quiet {
			res, err = runBenchWithUI("strand bench", bc)
		} else {
			res, err = runBench(bc, nil)
		}
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		if err := verifyDelivery(bc.tasks, res); err != nil {
			return err
		}
		if benchReport != "" {
			if err := res.report.WriteFile(benchReport); err != nil {
				return err
			}
		}
		if !quiet {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d tasks delivered exactly once in %v\n", bc.tasks, elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "workers=%d polls=%d steals=%d overflow=%d parks=%d\n",
				res.report.Workers, res.report.Polls, res.report.Steals,
				res.report.OverflowPush, res.report.WorkerParks)
		}
		return nil
	},
}

type benchConfig struct {
	cfg     config.Config
	tasks   int
	workers int
	sleep   time.Duration
	grace   time.Duration
	seed    int64
}

type benchResult struct {
	counts map[int]int
	report observ.Report
}

// runBench drives the scenario. events may be nil; when set it receives
// progress updates and is closed before return.
func runBench(bc benchConfig, events chan<- ui.Event) (benchResult, error) {
	if events != nil {
		defer close(events)
	}
	emit := func(ev ui.Event) {
		if events != nil {
			events <- ev
		}
	}

	// Channel 1 backed by a real pipe; the other five come up as discards.
	wiring, err := bootstrap.Wire(chanio.PrimaryOut)
	if err != nil {
		return benchResult{}, err
	}
	set, err := bootstrap.EstablishManifest(wiring.Getenv)
	if err != nil {
		wiring.Close()
		return benchResult{}, err
	}
	// The channel set owns the child ends now; only the parent ends are
	// ours to close.
	defer wiring.CloseParentEnds()

	// strand.toml's [trace] section decides the sink; stream mode defaults
	// to the diagnostics channel.
	tracer, err := bc.cfg.Tracer(set.DebugOut())
	if err != nil {
		return benchResult{}, err
	}
	defer tracer.Close() //nolint:errcheck // teardown

	runtime, err := rt.New(rt.Options{
		Workers:  bc.workers,
		Grace:    bc.grace,
		Seed:     bc.seed,
		Tracer:   tracer,
		Channels: set,
	})
	if err != nil {
		return benchResult{}, err
	}

	counts := make(map[int]int, bc.tasks)
	var g errgroup.Group
	g.Go(func() error {
		sc := bufio.NewScanner(wiring.ParentEnds[chanio.PrimaryOut])
		for sc.Scan() {
			idx, err := strconv.Atoi(sc.Text())
			if err != nil {
				return fmt.Errorf("bench: unparsable delivery %q", sc.Text())
			}
			counts[idx]++
		}
		return sc.Err()
	})

	emit(ui.Event{Phase: "spawning", Total: bc.tasks})
	done := make(chan error, bc.tasks)
	out := runtime.Channels().PrimaryOut()
	for i := 0; i < bc.tasks; i++ {
		idx := i
		var slept *future.Future[struct{}]
		body := func(t *sched.Task) sched.Outcome {
			if slept == nil {
				slept = runtime.Sleep(bc.sleep)
			}
			if _, _, ok := slept.Await(t); !ok {
				return sched.Parked()
			}
			line := strconv.Itoa(idx) + "\n"
			if _, err := out.Write([]byte(line)); err != nil {
				return sched.Done(nil, err)
			}
			return sched.Done(idx, nil)
		}
		if _, err := runtime.Scheduler().Spawn(body, func(_ any, err error) { done <- err }); err != nil {
			runtime.Shutdown()
			return benchResult{}, err
		}
	}

	var firstErr error
	for i := 0; i < bc.tasks; i++ {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
		emit(ui.Event{Phase: "running", Completed: i + 1, Total: bc.tasks})
	}

	emit(ui.Event{Phase: "draining", Completed: bc.tasks, Total: bc.tasks})
	report := runtime.Stats().Snapshot(runtime.Scheduler().Workers())
	runtime.Shutdown()

	// Shutdown closed the channel's owned write end, so the reader sees EOF.
	if err := g.Wait(); err != nil && firstErr == nil {
		firstErr = err
	}
	emit(ui.Event{Phase: "verifying", Completed: bc.tasks, Total: bc.tasks})

	return benchResult{counts: counts, report: report}, firstErr
}

func verifyDelivery(tasks int, res benchResult) error {
	for i := 0; i < tasks; i++ {
		switch res.counts[i] {
		case 1:
		case 0:
			return fmt.Errorf("bench: index %d never delivered", i)
		default:
			return fmt.Errorf("bench: index %d delivered %d times", i, res.counts[i])
		}
	}
	if extra := len(res.counts) - tasks; extra > 0 {
		return fmt.Errorf("bench: %d unexpected deliveries", extra)
	}
	return nil
}
