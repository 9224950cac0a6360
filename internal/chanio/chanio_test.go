package chanio_test

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"strand/internal/chanio"
)

func TestSpecTable(t *testing.T) {
	cases := []struct {
		id   chanio.ID
		dir  chanio.Direction
		enc  chanio.Encoding
		name string
	}{
		{chanio.PrimaryIn, chanio.DirIn, chanio.Text, "primary-in"},
		{chanio.PrimaryOut, chanio.DirOut, chanio.Text, "primary-out"},
		{chanio.ErrorOut, chanio.DirOut, chanio.Text, "error-out"},
		{chanio.DebugOut, chanio.DirOut, chanio.Text, "debug-out"},
		{chanio.BinaryIn, chanio.DirIn, chanio.Binary, "binary-in"},
		{chanio.BinaryOut, chanio.DirOut, chanio.Binary, "binary-out"},
	}
	for _, tc := range cases {
		dir, enc, name := chanio.Spec(tc.id)
		if dir != tc.dir || enc != tc.enc || name != tc.name {
			t.Fatalf("Spec(%d) = (%v, %v, %q), want (%v, %v, %q)",
				tc.id, dir, enc, name, tc.dir, tc.enc, tc.name)
		}
	}
}

func TestDirectionErrors(t *testing.T) {
	out := chanio.NewDiscard(chanio.PrimaryOut)
	if _, err := out.Read(make([]byte, 8)); !errors.Is(err, chanio.ErrDirection) {
		t.Fatalf("read on outbound channel = %v, want ErrDirection", err)
	}
	in := chanio.NewDiscard(chanio.PrimaryIn)
	if _, err := in.Write([]byte("x")); !errors.Is(err, chanio.ErrDirection) {
		t.Fatalf("write on inbound channel = %v, want ErrDirection", err)
	}
	var ioErr *chanio.IOError
	_, err := in.Write([]byte("x"))
	if !errors.As(err, &ioErr) {
		t.Fatalf("direction error is %T, want *IOError", err)
	}
	if ioErr.Channel != chanio.PrimaryIn || ioErr.Op != "write" {
		t.Fatalf("IOError = channel %d op %q", ioErr.Channel, ioErr.Op)
	}
}

func TestDiscardSemantics(t *testing.T) {
	out := chanio.NewDiscard(chanio.DebugOut)
	if !out.Discarded() {
		t.Fatal("discard channel not marked discarded")
	}
	n, err := out.Write([]byte("dropped"))
	if err != nil || n != 7 {
		t.Fatalf("discard write = (%d, %v), want (7, nil)", n, err)
	}
	in := chanio.NewDiscard(chanio.BinaryIn)
	if _, err := in.Read(make([]byte, 8)); !errors.Is(err, io.EOF) {
		t.Fatalf("discard read = %v, want io.EOF", err)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	ch := chanio.New(chanio.PrimaryOut, chanio.NewFileEndpoint(w), true)
	if ch.Name() != "primary-out" || ch.Direction() != chanio.DirOut {
		t.Fatalf("channel metadata = %q/%v", ch.Name(), ch.Direction())
	}
	msg := "hello channel one\n"
	n, err := ch.Write([]byte(msg))
	if err != nil || n != len(msg) {
		t.Fatalf("write = (%d, %v)", n, err)
	}
	w.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != msg {
		t.Fatalf("read back %q, want %q", got, msg)
	}
}

func TestConcurrentWritersDoNotInterleave(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}

	ch := chanio.New(chanio.PrimaryOut, chanio.NewFileEndpoint(w), true)

	const writers = 2
	const perWriter = 200
	lines := [writers]string{
		strings.Repeat("a", 64) + "\n",
		strings.Repeat("b", 64) + "\n",
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(line string) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				if _, err := ch.Write([]byte(line)); err != nil {
					t.Errorf("write: %v", err)
					return
				}
			}
		}(lines[i])
	}

	readErr := make(chan error, 1)
	counts := make(map[byte]int)
	go func() {
		defer r.Close()
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := sc.Text()
			if len(line) != 64 {
				readErr <- errors.New("interleaved line: bad length " + line)
				return
			}
			for i := 1; i < len(line); i++ {
				if line[i] != line[0] {
					readErr <- errors.New("interleaved line: " + line)
					return
				}
			}
			counts[line[0]]++
		}
		readErr <- sc.Err()
	}()

	wg.Wait()
	w.Close()
	if err := <-readErr; err != nil {
		t.Fatal(err)
	}
	if counts['a'] != perWriter || counts['b'] != perWriter {
		t.Fatalf("line counts = %v, want %d each", counts, perWriter)
	}
}

func TestSetFillsNilSlotsWithDiscards(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	var chans [chanio.NumChannels]*chanio.Channel
	chans[chanio.PrimaryOut] = chanio.New(chanio.PrimaryOut, chanio.NewFileEndpoint(w), false)
	set, err := chanio.NewSet(chans)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if set.PrimaryOut().Discarded() {
		t.Fatal("wired channel came up as discard")
	}
	for _, ch := range []*chanio.Channel{set.PrimaryIn(), set.ErrorOut(), set.DebugOut(), set.BinaryIn(), set.BinaryOut()} {
		if !ch.Discarded() {
			t.Fatalf("channel %d should be a discard substitute", ch.ID())
		}
	}
	if got := set.Get(chanio.NumChannels); got != nil {
		t.Fatal("Get out of range returned a channel")
	}
	if err := set.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSetRejectsMisplacedChannel(t *testing.T) {
	var chans [chanio.NumChannels]*chanio.Channel
	chans[chanio.PrimaryIn] = chanio.NewDiscard(chanio.PrimaryOut)
	if _, err := chanio.NewSet(chans); err == nil {
		t.Fatal("misplaced channel accepted")
	}
}
