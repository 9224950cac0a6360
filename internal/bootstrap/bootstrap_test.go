package bootstrap_test

import (
	"errors"
	"io"
	"testing"

	"strand/internal/bootstrap"
	"strand/internal/chanio"
)

func TestManifestKey(t *testing.T) {
	if got := bootstrap.ManifestKey(chanio.PrimaryIn); got != "STRAND_CH0" {
		t.Fatalf("key = %q, want STRAND_CH0", got)
	}
	if got := bootstrap.ManifestKey(chanio.BinaryOut); got != "STRAND_CH5" {
		t.Fatalf("key = %q, want STRAND_CH5", got)
	}
}

func TestManifestPresent(t *testing.T) {
	if bootstrap.ManifestPresent(func(string) string { return "" }) {
		t.Fatal("empty environment reported a manifest")
	}
	present := func(key string) string {
		if key == "STRAND_CH3" {
			return "7"
		}
		return ""
	}
	if !bootstrap.ManifestPresent(present) {
		t.Fatal("manifest entry not detected")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	wiring, err := bootstrap.Wire(chanio.PrimaryIn, chanio.PrimaryOut)
	if err != nil {
		t.Fatalf("wire: %v", err)
	}

	set, err := bootstrap.EstablishManifest(wiring.Getenv)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	// The set owns the child ends now; close only the parent side here.
	defer wiring.CloseParentEnds()
	defer set.Close()

	// Parent -> child over channel 0.
	if _, err := wiring.ParentEnds[chanio.PrimaryIn].WriteString("ping\n"); err != nil {
		t.Fatalf("parent write: %v", err)
	}
	buf := make([]byte, 16)
	n, err := set.PrimaryIn().Read(buf)
	if err != nil {
		t.Fatalf("child read: %v", err)
	}
	if string(buf[:n]) != "ping\n" {
		t.Fatalf("child read %q, want ping", buf[:n])
	}

	// Child -> parent over channel 1.
	if _, err := set.PrimaryOut().Write([]byte("pong\n")); err != nil {
		t.Fatalf("child write: %v", err)
	}
	n, err = wiring.ParentEnds[chanio.PrimaryOut].Read(buf)
	if err != nil {
		t.Fatalf("parent read: %v", err)
	}
	if string(buf[:n]) != "pong\n" {
		t.Fatalf("parent read %q, want pong", buf[:n])
	}
}

func TestPartialWiringSubstitutesDiscards(t *testing.T) {
	// A legacy parent wiring only channels 0-2 must not break bootstrap.
	wiring, err := bootstrap.Wire(chanio.PrimaryIn, chanio.PrimaryOut, chanio.ErrorOut)
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	set, err := bootstrap.EstablishManifest(wiring.Getenv)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	defer wiring.CloseParentEnds()
	defer set.Close()

	for _, id := range []chanio.ID{chanio.PrimaryIn, chanio.PrimaryOut, chanio.ErrorOut} {
		if set.Get(id).Discarded() {
			t.Fatalf("wired channel %d came up as discard", id)
		}
	}
	for _, id := range []chanio.ID{chanio.DebugOut, chanio.BinaryIn, chanio.BinaryOut} {
		if !set.Get(id).Discarded() {
			t.Fatalf("unwired channel %d is not a discard", id)
		}
	}

	// Writes to the unwired debug channel vanish; reads report EOF.
	if _, err := set.DebugOut().Write([]byte("silently dropped")); err != nil {
		t.Fatalf("discard write failed: %v", err)
	}
	if _, err := set.BinaryIn().Read(make([]byte, 4)); !errors.Is(err, io.EOF) {
		t.Fatalf("discard read = %v, want io.EOF", err)
	}
}

func TestMalformedManifestEntryIsFatal(t *testing.T) {
	getenv := func(key string) string {
		if key == "STRAND_CH1" {
			return "not-a-handle"
		}
		return ""
	}
	_, err := bootstrap.EstablishManifest(getenv)
	if err == nil {
		t.Fatal("corrupt manifest entry accepted")
	}
	var bErr *bootstrap.Error
	if !errors.As(err, &bErr) {
		t.Fatalf("error is %T, want *bootstrap.Error", err)
	}
}

func TestWireRejectsOutOfRange(t *testing.T) {
	if _, err := bootstrap.Wire(chanio.ID(chanio.NumChannels)); err == nil {
		t.Fatal("out-of-range channel accepted")
	}
}

func TestWiringGetenv(t *testing.T) {
	wiring, err := bootstrap.Wire(chanio.ErrorOut)
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	defer wiring.Close()
	if got := wiring.Getenv("STRAND_CH2"); got == "" {
		t.Fatal("wired channel missing from manifest env")
	}
	if got := wiring.Getenv("STRAND_CH0"); got != "" {
		t.Fatalf("unwired channel present in manifest env: %q", got)
	}
}
