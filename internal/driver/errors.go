package driver

import (
	"errors"
	"fmt"
)

// ErrSymbolNotFound is returned by resolvers for names the driver does not export.
var ErrSymbolNotFound = errors.New("symbol not found")

// MissingCapabilityError reports a required capability that could not be bound.
//
// A missing required capability means the driver build is incompatible with
// this host; recording with it would produce a corrupt recording.
type MissingCapabilityError struct {
	// Name is the symbol name of the capability.
	Name string

	// Want is the expected Go type of the entry point, set when the symbol
	// exists but has the wrong type.
	Want string

	// Err is the underlying resolution error, if any.
	Err error
}

// Error implements the error interface.
func (e *MissingCapabilityError) Error() string {
	if e.Want != "" {
		return fmt.Sprintf("could not find %s in record/replay driver: want %s", e.Name, e.Want)
	}
	if e.Err != nil {
		return fmt.Sprintf("could not find %s in record/replay driver: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("could not find %s in record/replay driver", e.Name)
}

func (e *MissingCapabilityError) Unwrap() error {
	return e.Err
}

// IsMissingCapability returns true if err is (or wraps) a MissingCapabilityError.
func IsMissingCapability(err error) bool {
	var mc *MissingCapabilityError
	return errors.As(err, &mc)
}
