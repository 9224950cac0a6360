package observ

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Report format changes.
const reportSchemaVersion uint16 = 1

// Report is a serializable snapshot of scheduler counters.
type Report struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Workers int

	Spawned   uint64
	Completed uint64
	Cancelled uint64
	Rejected  uint64

	Polls    uint64
	Yields   uint64
	Parks    uint64
	Wakes    uint64
	Timeouts uint64

	Steals        uint64
	OverflowPush  uint64
	OverflowPop   uint64
	WorkerParks   uint64
	WorkerUnparks uint64
}

// WriteFile serializes the report to path with msgpack.
func (r Report) WriteFile(path string) error {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadFile loads a report written by WriteFile, rejecting unknown schemas.
func ReadFile(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	if r.Schema != reportSchemaVersion {
		return Report{}, fmt.Errorf("report schema %d not supported (want %d)", r.Schema, reportSchemaVersion)
	}
	return r, nil
}
