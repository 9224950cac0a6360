package chanio

import (
	"io"
	"os"
)

// Endpoint is the byte transport behind a channel.
type Endpoint interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error

	// Fd returns the native descriptor for readiness registration, or
	// ok=false when the endpoint has none (discard endpoints).
	Fd() (int, bool)
}

// writeWaiter is implemented by endpoints that can block the calling
// thread until the descriptor accepts more bytes. Channel.Write uses it to
// keep a single logical write atomic across short writes.
type writeWaiter interface {
	WaitWritable() error
}

// Discard returns an endpoint that swallows writes and reports EOF on
// reads. It substitutes for any channel the parent did not wire, so
// writing diagnostics to an unwired channel never crashes the process.
func Discard() Endpoint { return discardEndpoint{} }

type discardEndpoint struct{}

func (discardEndpoint) Read([]byte) (int, error)    { return 0, io.EOF }
func (discardEndpoint) Write(p []byte) (int, error) { return len(p), nil }
func (discardEndpoint) Close() error                { return nil }
func (discardEndpoint) Fd() (int, bool)             { return -1, false }

// FileEndpoint wraps an *os.File using ordinary blocking I/O. Used on
// manifest hosts and anywhere readiness integration is not needed.
type FileEndpoint struct {
	f *os.File
}

// NewFileEndpoint wraps f.
func NewFileEndpoint(f *os.File) *FileEndpoint { return &FileEndpoint{f: f} }

func (e *FileEndpoint) Read(p []byte) (int, error)  { return e.f.Read(p) }
func (e *FileEndpoint) Write(p []byte) (int, error) { return e.f.Write(p) }
func (e *FileEndpoint) Close() error                { return e.f.Close() }

func (e *FileEndpoint) Fd() (int, bool) {
	if e == nil || e.f == nil {
		return -1, false
	}
	return int(e.f.Fd()), true
}
