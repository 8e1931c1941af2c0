package command

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned when a non-admin invokes an admin command.
var ErrPermissionDenied = errors.New("permission denied")

// UsageError reports that a command was invoked with too few arguments.
type UsageError struct {
	Command *Command
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage: %s", e.Command.Usage)
}

// NotFoundError carries the player-facing message for a missing referent.
type NotFoundError struct {
	Message string
	Err     error
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) Unwrap() error { return e.Err }
