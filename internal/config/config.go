// Package config loads the optional strand.toml runtime manifest. A missing
// file yields defaults; a malformed one is an error.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"strand/internal/trace"
)

const manifestName = "strand.toml"

// defaultRingSize caps ring-mode retention when [trace].ring_size is unset.
const defaultRingSize = 256

// Config is the decoded runtime manifest.
type Config struct {
	Runtime RuntimeConfig `toml:"runtime"`
	Trace   TraceConfig   `toml:"trace"`
	Bench   BenchConfig   `toml:"bench"`
}

// RuntimeConfig tunes the scheduler.
type RuntimeConfig struct {
	// Workers is the worker goroutine count; 0 means GOMAXPROCS.
	Workers int `toml:"workers"`
	// GraceMs bounds shutdown drain before force-cancel; 0 means the
	// built-in default.
	GraceMs int `toml:"grace_ms"`
	// Seed makes steal victim selection reproducible; 0 means time-based.
	Seed int64 `toml:"seed"`
}

// TraceConfig selects tracing level and sink.
type TraceConfig struct {
	// Level is off, sched or verbose.
	Level string `toml:"level"`
	// Mode is stream or ring.
	Mode string `toml:"mode"`
	// File receives stream output; empty means the diagnostics channel.
	File string `toml:"file"`
	// RingSize caps ring mode retention; 0 means the default.
	RingSize int `toml:"ring_size"`
}

// BenchConfig holds bench command defaults overridable by flags.
type BenchConfig struct {
	Tasks   int `toml:"tasks"`
	SleepMs int `toml:"sleep_ms"`
}

// Default returns the configuration used when no manifest exists.
func Default() Config {
	return Config{
		Trace: TraceConfig{Level: "off", Mode: "stream"},
		Bench: BenchConfig{Tasks: 1000, SleepMs: 1},
	}
}

// Load reads the manifest at path, or Find()s one when path is empty.
// A missing manifest is not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		found, ok, err := Find(".")
		if err != nil {
			return cfg, err
		}
		if !ok {
			return cfg, nil
		}
		path = found
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Default(), fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return Default(), fmt.Errorf("%s: unknown key %q", path, undec[0].String())
	}
	if err := cfg.validate(path); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Find walks up from startDir looking for strand.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func (c Config) validate(path string) error {
	if c.Runtime.Workers < 0 {
		return fmt.Errorf("%s: [runtime].workers must be >= 0", path)
	}
	if c.Runtime.GraceMs < 0 {
		return fmt.Errorf("%s: [runtime].grace_ms must be >= 0", path)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("%s: [trace].level: %w", path, err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("%s: [trace].mode: %w", path, err)
	}
	if c.Trace.RingSize < 0 {
		return fmt.Errorf("%s: [trace].ring_size must be >= 0", path)
	}
	if c.Bench.Tasks < 0 {
		return fmt.Errorf("%s: [bench].tasks must be >= 0", path)
	}
	if c.Bench.SleepMs < 0 {
		return fmt.Errorf("%s: [bench].sleep_ms must be >= 0", path)
	}
	return nil
}

// Grace converts the configured drain deadline, 0 when unset.
func (c Config) Grace() time.Duration {
	return time.Duration(c.Runtime.GraceMs) * time.Millisecond
}

// Sleep converts the configured bench timer delay.
func (c Config) Sleep() time.Duration {
	return time.Duration(c.Bench.SleepMs) * time.Millisecond
}

// TraceLevel returns the parsed trace level. Call after Load validated it.
func (c Config) TraceLevel() trace.Level {
	lvl, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.LevelOff
	}
	return lvl
}

// TraceMode returns the parsed storage mode.
func (c Config) TraceMode() trace.StorageMode {
	m, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.ModeStream
	}
	return m
}

// Tracer builds the sink the [trace] section asks for. Stream mode writes
// to [trace].file when set, otherwise to debug, which callers normally
// point at the process diagnostics channel. Level off yields the no-op
// tracer regardless of mode. The caller owns Close.
func (c Config) Tracer(debug io.Writer) (trace.Tracer, error) {
	lvl := c.TraceLevel()
	if lvl == trace.LevelOff {
		return trace.Nop(), nil
	}
	if c.TraceMode() == trace.ModeRing {
		size := c.Trace.RingSize
		if size <= 0 {
			size = defaultRingSize
		}
		return trace.NewRingTracer(size, lvl), nil
	}
	w := debug
	if c.Trace.File != "" {
		f, err := os.Create(c.Trace.File)
		if err != nil {
			return nil, fmt.Errorf("[trace].file: %w", err)
		}
		w = f
	}
	if w == nil {
		w = io.Discard
	}
	return trace.NewStreamTracer(w, lvl), nil
}
