package bootstrap

import (
	"fmt"
	"os"

	"strand/internal/chanio"
)

// Wiring is the parent side of the bootstrap handshake: six pipes directed
// per the channel table, plus the manifest environment describing the child
// ends. It backs both in-process harnesses (bench, tests) and real spawns.
type Wiring struct {
	// ParentEnds face the parent: the write side of the child's inbound
	// channels, the read side of its outbound ones. Unwired slots are nil.
	ParentEnds [chanio.NumChannels]*os.File

	// ChildEnds are handed to the child; ownership transfers with them.
	ChildEnds [chanio.NumChannels]*os.File

	// Env holds the manifest entries, one KEY=VALUE per wired channel.
	Env []string
}

// Wire creates pipes for the requested channels only, mimicking parents
// that wire a subset (a legacy parent may wire just 0-2).
func Wire(ids ...chanio.ID) (*Wiring, error) {
	w := &Wiring{}
	for _, id := range ids {
		if id >= chanio.NumChannels {
			w.Close()
			return nil, fmt.Errorf("wire: channel %d out of range", id)
		}
		r, wr, err := os.Pipe()
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("wire channel %d: %w", id, err)
		}
		dir, _, _ := chanio.Spec(id)
		if dir == chanio.DirIn {
			w.ChildEnds[id] = r
			w.ParentEnds[id] = wr
		} else {
			w.ChildEnds[id] = wr
			w.ParentEnds[id] = r
		}
		w.Env = append(w.Env, fmt.Sprintf("%s=%d", ManifestKey(id), w.ChildEnds[id].Fd()))
	}
	return w, nil
}

// Getenv resolves manifest keys against this wiring, for establishing the
// child half in-process.
func (w *Wiring) Getenv(key string) string {
	for _, kv := range w.Env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				if kv[:i] == key {
					return kv[i+1:]
				}
				break
			}
		}
	}
	return ""
}

// CloseParentEnds closes the parent-facing pipe ends, signalling EOF to
// the child's inbound channels.
func (w *Wiring) CloseParentEnds() {
	for i, f := range w.ParentEnds {
		if f != nil {
			_ = f.Close() //nolint:errcheck // teardown
			w.ParentEnds[i] = nil
		}
	}
}

// CloseChildEnds closes the child-facing ends still held by the parent.
// Call after the child has re-opened them (or was never spawned).
func (w *Wiring) CloseChildEnds() {
	for i, f := range w.ChildEnds {
		if f != nil {
			_ = f.Close() //nolint:errcheck // teardown
			w.ChildEnds[i] = nil
		}
	}
}

// Close releases both halves.
func (w *Wiring) Close() {
	w.CloseParentEnds()
	w.CloseChildEnds()
}
