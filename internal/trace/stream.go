package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer writes events to an io.Writer as they arrive.
type StreamTracer struct {
	mu    sync.Mutex
	w     *bufio.Writer
	close io.Closer
	level Level
}

// NewStreamTracer wraps w in a buffered, serialized event sink.
// If w is also an io.Closer it is closed by Close.
func NewStreamTracer(w io.Writer, level Level) *StreamTracer {
	st := &StreamTracer{
		w:     bufio.NewWriterSize(w, 16*1024),
		level: level,
	}
	if c, ok := w.(io.Closer); ok {
		st.close = c
	}
	return st
}

func (t *StreamTracer) Emit(ev *Event) {
	if t == nil || ev == nil || t.level == LevelOff {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.WriteString(ev.Format()) //nolint:errcheck // tracing is best-effort
	_ = t.w.WriteByte('\n')             //nolint:errcheck // tracing is best-effort
}

func (t *StreamTracer) Flush() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Flush()
}

func (t *StreamTracer) Close() error {
	if t == nil {
		return nil
	}
	if err := t.Flush(); err != nil {
		return err
	}
	if t.close != nil {
		return t.close.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level {
	if t == nil {
		return LevelOff
	}
	return t.level
}

func (t *StreamTracer) Enabled() bool { return t.Level() > LevelOff }
