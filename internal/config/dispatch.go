package config

import (
	"errors"
	"fmt"
)

// DispatchFlag selects the recording dispatch target on the command line.
const DispatchFlag = "-recordReplayDispatch"

// SaveToDisk is the dispatch value that saves the recording to disk instead
// of uploading it.
const SaveToDisk = "*"

// ErrBadDispatch is wrapped by errors from ParseDispatch.
var ErrBadDispatch = errors.New("bad dispatch argument")

// Dispatch is the parsed dispatch argument.
type Dispatch struct {
	// Present is true when the argument was given; the process records only then.
	Present bool

	// Address is the upload target, empty when saving to disk.
	Address string
}

// Uploading reports whether the recording is uploaded to Address.
func (d Dispatch) Uploading() bool {
	return d.Present && d.Address != ""
}

// ParseDispatch finds the dispatch argument in args. args is not modified.
// The flag may appear at most once and must be followed by a value.
func ParseDispatch(args []string) (Dispatch, error) {
	var d Dispatch
	for i := 0; i < len(args); i++ {
		if args[i] != DispatchFlag {
			continue
		}
		if d.Present {
			return Dispatch{}, fmt.Errorf("%w: %s given more than once", ErrBadDispatch, DispatchFlag)
		}
		if i+1 >= len(args) {
			return Dispatch{}, fmt.Errorf("%w: %s requires a value", ErrBadDispatch, DispatchFlag)
		}
		d.Present = true
		if v := args[i+1]; v != SaveToDisk {
			d.Address = v
		}
		i++
	}
	return d, nil
}
