package rt_test

import (
	"bufio"
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"strand/internal/bootstrap"
	"strand/internal/chanio"
	"strand/internal/config"
	"strand/internal/future"
	"strand/internal/rt"
	"strand/internal/sched"
	"strand/internal/testkit"
)

func discardSet(t *testing.T) *chanio.Set {
	t.Helper()
	set, err := chanio.NewSet([chanio.NumChannels]*chanio.Channel{})
	if err != nil {
		t.Fatalf("discard set: %v", err)
	}
	return set
}

func TestSpawnTypedResult(t *testing.T) {
	r, err := rt.New(rt.Options{Workers: 2, Seed: 1, Channels: discardSet(t)})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer r.Shutdown()

	f, err := rt.Spawn[int](r, func(*sched.Task) sched.Outcome {
		return sched.Done(7, nil)
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if !testkit.Eventually(5*time.Second, time.Millisecond, f.Ready) {
		t.Fatal("spawned future never resolved")
	}
	v, ferr, _ := f.Poll()
	if ferr != nil || v != 7 {
		t.Fatalf("result = (%d, %v), want 7", v, ferr)
	}
}

func TestSpawnResultTypeMismatch(t *testing.T) {
	r, err := rt.New(rt.Options{Workers: 1, Seed: 1, Channels: discardSet(t)})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer r.Shutdown()

	f, err := rt.Spawn[string](r, func(*sched.Task) sched.Outcome {
		return sched.Done(42, nil) // not a string
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if !testkit.Eventually(5*time.Second, time.Millisecond, f.Ready) {
		t.Fatal("future never resolved")
	}
	if _, ferr, _ := f.Poll(); ferr == nil {
		t.Fatal("type mismatch produced no error")
	}
}

func TestCancelledTaskFailsFuture(t *testing.T) {
	r, err := rt.New(rt.Options{
		Workers:  1,
		Grace:    50 * time.Millisecond,
		Seed:     1,
		Channels: discardSet(t),
	})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	f, err := rt.Spawn[int](r, func(*sched.Task) sched.Outcome {
		return sched.Parked() // never woken; shutdown cancels it
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	r.Shutdown()
	_, ferr, ok := f.Poll()
	if !ok {
		t.Fatal("cancelled task's future still pending after shutdown")
	}
	if !errors.Is(ferr, sched.ErrTaskCancelled) {
		t.Fatalf("error = %v, want ErrTaskCancelled", ferr)
	}
}

func TestSpawnAfterShutdown(t *testing.T) {
	r, err := rt.New(rt.Options{Workers: 1, Seed: 1, Channels: discardSet(t)})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	r.Shutdown()
	if _, err := rt.Spawn[int](r, func(*sched.Task) sched.Outcome {
		return sched.Done(0, nil)
	}); !errors.Is(err, sched.ErrShutdown) {
		t.Fatalf("spawn after shutdown = %v, want ErrShutdown", err)
	}
}

// TestConfiguredTraceLevelProducesEvents runs the runtime with the tracer
// strand.toml's [trace] section would build and checks scheduler events
// actually reach the sink.
func TestConfiguredTraceLevelProducesEvents(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.Trace.Level = "sched"
	tracer, err := cfg.Tracer(&buf)
	if err != nil {
		t.Fatalf("tracer from config: %v", err)
	}
	if !tracer.Enabled() {
		t.Fatal("sched-level tracer disabled")
	}

	r, err := rt.New(rt.Options{Workers: 1, Seed: 1, Tracer: tracer, Channels: discardSet(t)})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	f, err := rt.Spawn[int](r, func(*sched.Task) sched.Outcome {
		return sched.Done(1, nil)
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if !testkit.Eventually(5*time.Second, time.Millisecond, f.Ready) {
		t.Fatal("future never resolved")
	}
	r.Shutdown() // flushes the tracer

	out := buf.String()
	if !strings.Contains(out, "spawn") || !strings.Contains(out, "done") {
		t.Fatalf("trace output missing lifecycle events: %q", out)
	}
}

// TestDoubleCompletionDiagnosticOnDebugChannel checks the fatal-assertion
// note lands on channel 3 before the panic propagates.
func TestDoubleCompletionDiagnosticOnDebugChannel(t *testing.T) {
	wiring, err := bootstrap.Wire(chanio.DebugOut)
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	set, err := bootstrap.EstablishManifest(wiring.Getenv)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	defer wiring.CloseParentEnds()

	r, err := rt.New(rt.Options{Workers: 1, Seed: 1, Channels: set})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer r.Shutdown()

	p, _ := future.NewPromise[int]()
	p.Complete(1)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("second completion did not panic")
			}
		}()
		p.Complete(2)
	}()

	sc := bufio.NewScanner(wiring.ParentEnds[chanio.DebugOut])
	if !sc.Scan() {
		t.Fatalf("no diagnostic on the debug channel: %v", sc.Err())
	}
	if !strings.Contains(sc.Text(), "completed twice") {
		t.Fatalf("diagnostic = %q", sc.Text())
	}
}

// TestExactlyOnceDelivery is the end-to-end scenario: a thousand tasks each
// await a short timer and then write their index to channel 1; after the
// drain every index must have arrived exactly once.
func TestExactlyOnceDelivery(t *testing.T) {
	const tasks = 1000

	wiring, err := bootstrap.Wire(chanio.PrimaryOut)
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	set, err := bootstrap.EstablishManifest(wiring.Getenv)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	defer wiring.CloseParentEnds()

	r, err := rt.New(rt.Options{Workers: 4, Seed: 1, Channels: set})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	counts := make(map[int]int, tasks)
	var g errgroup.Group
	g.Go(func() error {
		sc := bufio.NewScanner(wiring.ParentEnds[chanio.PrimaryOut])
		for sc.Scan() {
			idx, err := strconv.Atoi(sc.Text())
			if err != nil {
				return err
			}
			counts[idx]++
		}
		return sc.Err()
	})

	out := r.Channels().PrimaryOut()
	futs := make([]*future.Future[int], tasks)
	for i := 0; i < tasks; i++ {
		idx := i
		var slept *future.Future[struct{}]
		futs[i], err = rt.Spawn[int](r, func(t *sched.Task) sched.Outcome {
			if slept == nil {
				slept = r.Sleep(time.Millisecond)
			}
			if _, _, ok := slept.Await(t); !ok {
				return sched.Parked()
			}
			if _, err := out.Write([]byte(strconv.Itoa(idx) + "\n")); err != nil {
				return sched.Done(nil, err)
			}
			return sched.Done(idx, nil)
		})
		if err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
	}

	joined := future.JoinAll(futs)
	if !testkit.Eventually(30*time.Second, time.Millisecond, joined.Ready) {
		t.Fatal("join never resolved")
	}
	vs, jerr, _ := joined.Poll()
	if jerr != nil {
		t.Fatalf("join failed: %v", jerr)
	}
	for i, v := range vs {
		if v != i {
			t.Fatalf("join[%d] = %d, spawn order not preserved", i, v)
		}
	}

	report := r.Stats().Snapshot(r.Scheduler().Workers())
	r.Shutdown() // closes the owned write end; the reader sees EOF

	if err := g.Wait(); err != nil {
		t.Fatalf("reader: %v", err)
	}
	for i := 0; i < tasks; i++ {
		if counts[i] != 1 {
			t.Fatalf("index %d delivered %d times, want exactly once", i, counts[i])
		}
	}
	if len(counts) != tasks {
		t.Fatalf("%d distinct indices delivered, want %d", len(counts), tasks)
	}
	if err := testkit.CheckReport(report); err != nil {
		t.Fatal(err)
	}
}
