//go:build !unix

package bootstrap

import (
	"strand/internal/chanio"
)

// Hosts without native low-descriptor inheritance rely on the manifest
// protocol exclusively. Without a manifest every channel is a discard
// endpoint, which still yields a working (if silent) process.
func establishPlatform() (*chanio.Set, error) {
	var chans [chanio.NumChannels]*chanio.Channel
	set, err := chanio.NewSet(chans)
	if err != nil {
		return nil, &Error{Reason: "assembling channel set", Err: err}
	}
	return set, nil
}
