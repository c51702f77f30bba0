package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Validation failures. Every one of these is a no-op on the ledger.
var (
	ErrMissingCredentials     = errors.New("employee id and task code are required")
	ErrAlreadyActive          = errors.New("employee already has an open session on this finding")
	ErrFindingClosed          = errors.New("finding is closed")
	ErrNoActiveSession        = errors.New("no active session on this finding")
	ErrDuplicateActiveSession = errors.New("duplicate active session rejected at append")
	ErrEvidenceRequired       = errors.New("closure evidence required")
	ErrFinalStatusRequired    = errors.New("final status decision required: ON_HOLD or CLOSED")
)

// JoinRequiredError is the start-side decision requirement: other technicians
// are already active and the caller must confirm joining before a START is
// appended.
type JoinRequiredError struct {
	Active []string
}

func (e JoinRequiredError) Error() string {
	return fmt.Sprintf("other sessions active (%s); join confirmation required", strings.Join(e.Active, ", "))
}

// StopTargetRequiredError is the stop-side decision requirement: several
// sessions are open and the caller must pick whose to stop.
type StopTargetRequiredError struct {
	Candidates []string
}

func (e StopTargetRequiredError) Error() string {
	return fmt.Sprintf("several sessions active (%s); select which employee is stopping", strings.Join(e.Candidates, ", "))
}

// PersistenceError marks store failures as retryable. In-memory state is
// untouched when one is returned; the engine never retries on its own.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
