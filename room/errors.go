// room/errors.go
package room

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a gameplay failure so the transport layer can map
// it onto the right reply without inspecting individual sentinels.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
	KindRetryable
)

// GameError is a typed gameplay failure. State is never mutated when one
// is returned.
type GameError struct {
	Kind    ErrorKind
	Message string
	wrapped error
}

func (e *GameError) Error() string {
	return e.Message
}

func (e *GameError) Unwrap() error {
	return e.wrapped
}

func newGameError(kind ErrorKind, message string) *GameError {
	return &GameError{Kind: kind, Message: message}
}

func retryableError(err error) *GameError {
	return &GameError{
		Kind:    KindRetryable,
		Message: "temporary storage failure, please retry",
		wrapped: err,
	}
}

var (
	ErrRoomNotFound        = newGameError(KindNotFound, "room not found")
	ErrPlayerNotFound      = newGameError(KindNotFound, "player is not a member of this room")
	ErrRoomFull            = newGameError(KindConflict, "room is full")
	ErrStaleSegment        = newGameError(KindConflict, "submission targets a different segment")
	ErrDuplicateSubmission = newGameError(KindConflict, "segment already submitted")
	ErrGameCompleted       = newGameError(KindConflict, "game is already completed")
	ErrGameNotStarted      = newGameError(KindConflict, "game has not started")
	ErrInvalidCode         = newGameError(KindValidation, "game code must be 4 alphanumeric characters")
)

// Kind extracts the classification from any error chain; unclassified
// errors are treated as retryable storage failures.
func Kind(err error) ErrorKind {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindRetryable
}

func wrapStore(op string, err error) error {
	return retryableError(fmt.Errorf("%s: %w", op, err))
}
