package gateway

import (
	"errors"
	"fmt"

	"github.com/roach88/rrgate/internal/driver"
)

// FatalError is an unrecoverable gateway error. The gateway reports it through
// its Terminator; it never returns one to a caller.
type FatalError struct {
	// Code identifies the error category.
	Code FatalCode

	// Message is a human-readable description.
	Message string

	// Thread is the thread that hit the error, or 0.
	Thread driver.ThreadID

	// Err is the underlying error, if any.
	Err error
}

// FatalCode categorizes fatal errors.
type FatalCode string

const (
	// CodeMissingCapability indicates a required driver entry point is missing.
	CodeMissingCapability FatalCode = "MISSING_CAPABILITY"

	// CodeUnbalancedScope indicates an End without a matching Begin.
	CodeUnbalancedScope FatalCode = "UNBALANCED_SCOPE"

	// CodeEmptyCrashNotes indicates a crash note pop on an empty stack.
	CodeEmptyCrashNotes FatalCode = "EMPTY_CRASH_NOTES"

	// CodeInactiveLookup indicates a stable hash lookup while not recording or replaying.
	CodeInactiveLookup FatalCode = "INACTIVE_LOOKUP"

	// CodeTableDeleted indicates use of a deleted stable hash table.
	CodeTableDeleted FatalCode = "TABLE_DELETED"

	// CodeBadDispatch indicates a malformed dispatch argument.
	CodeBadDispatch FatalCode = "BAD_DISPATCH"
)

// Error implements the error interface.
func (e *FatalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Thread != 0 {
		msg = fmt.Sprintf("%s (thread=%d)", msg, e.Thread)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if err is (or wraps) a FatalError with the given code.
func IsFatal(err error, code FatalCode) bool {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// ErrTerminatorReturned is the panic value raised when a Terminator returns.
// Terminate must not return; a gateway never continues past a terminal effect.
var ErrTerminatorReturned = errors.New("gateway: terminator returned")

// Stable hash table pairing errors. See StableHashTable.AddEntryForLastLookup.
var (
	// ErrLookupMatched is returned when the lookup found an existing entry.
	ErrLookupMatched = errors.New("lookup found a match; nothing to add")

	// ErrStaleLookup is returned when the lookup was already consumed or a
	// later lookup on the same table superseded it.
	ErrStaleLookup = errors.New("lookup is not the table's last lookup")

	// ErrForeignLookup is returned when the lookup belongs to another table.
	ErrForeignLookup = errors.New("lookup belongs to another table")
)
