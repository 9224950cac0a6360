package observ_test

import (
	"path/filepath"
	"testing"

	"strand/internal/observ"
)

func TestReportRoundTrip(t *testing.T) {
	stats := observ.NewStats()
	stats.Spawned.Add(10)
	stats.Completed.Add(9)
	stats.Cancelled.Add(1)
	stats.Polls.Add(25)
	stats.Steals.Add(3)

	rep := stats.Snapshot(4)
	if rep.Workers != 4 || rep.Spawned != 10 || rep.Completed != 9 {
		t.Fatalf("snapshot = %+v", rep)
	}

	path := filepath.Join(t.TempDir(), "bench.report")
	if err := rep.WriteFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := observ.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != rep {
		t.Fatalf("round trip: got %+v, want %+v", got, rep)
	}
}

func TestReadFileRejectsUnknownSchema(t *testing.T) {
	rep := observ.NewStats().Snapshot(1)
	rep.Schema = 99
	path := filepath.Join(t.TempDir(), "future.report")
	if err := rep.WriteFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := observ.ReadFile(path); err == nil {
		t.Fatal("unknown schema accepted")
	}
}
