package bootstrap

import (
	"os"
	"strconv"

	"strand/internal/chanio"
)

// EstablishManifest builds the channel set from a parent-written handle
// manifest. Absent entries become discard endpoints; a present but
// unparsable entry means the handshake itself is corrupt, which is fatal —
// silently discarding a channel the parent believes it wired would lose
// data.
func EstablishManifest(getenv func(string) string) (*chanio.Set, error) {
	var chans [chanio.NumChannels]*chanio.Channel
	for i := 0; i < chanio.NumChannels; i++ {
		id := chanio.ID(i) //nolint:gosec // i < NumChannels
		raw := getenv(ManifestKey(id))
		if raw == "" {
			chans[i] = chanio.NewDiscard(id)
			continue
		}
		handle, err := strconv.ParseUint(raw, 10, strconv.IntSize)
		if err != nil {
			return nil, &Error{Reason: "manifest entry " + ManifestKey(id) + "=" + raw, Err: err}
		}
		_, _, name := chanio.Spec(id)
		f := os.NewFile(uintptr(handle), name)
		if f == nil {
			return nil, &Error{Reason: "manifest handle " + raw + " is not usable"}
		}
		chans[i] = chanio.New(id, chanio.NewFileEndpoint(f), true)
	}
	set, err := chanio.NewSet(chans)
	if err != nil {
		return nil, &Error{Reason: "assembling channel set", Err: err}
	}
	return set, nil
}
