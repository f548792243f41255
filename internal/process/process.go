// Package process terminates browser process trees.
package process

import "errors"

// ErrInvalidPID is returned for pids that would address the caller's own
// process group.
var ErrInvalidPID = errors.New("invalid pid")
