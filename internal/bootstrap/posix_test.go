//go:build unix

package bootstrap_test

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"

	"strand/internal/bootstrap"
	"strand/internal/chanio"
)

func TestEstablishInheritedDescriptors(t *testing.T) {
	if bootstrap.ManifestPresent(os.Getenv) {
		t.Skip("handle manifest present in the test environment")
	}
	// Establish may flip piped stdio to non-blocking; restore afterwards so
	// the test binary's own output is unaffected.
	t.Cleanup(func() {
		for fd := 0; fd < 3; fd++ {
			_ = unix.SetNonblock(fd, false) //nolint:errcheck // restore
		}
	})

	set, err := bootstrap.Establish()
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	defer set.Close()

	// A test process always has stdio open, so 0-2 must be live.
	for _, id := range []chanio.ID{chanio.PrimaryIn, chanio.PrimaryOut, chanio.ErrorOut} {
		ch := set.Get(id)
		if ch == nil {
			t.Fatalf("channel %d missing", id)
		}
		if ch.Discarded() {
			t.Fatalf("channel %d backed by stdio came up as discard", id)
		}
	}
	// Direction metadata is fixed by the channel number either way.
	if set.PrimaryIn().Direction() != chanio.DirIn {
		t.Fatal("channel 0 is not inbound")
	}
	if set.BinaryOut().Direction() != chanio.DirOut {
		t.Fatal("channel 5 is not outbound")
	}
}
