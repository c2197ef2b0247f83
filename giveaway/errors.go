package giveaway

import (
	"github.com/pkg/errors"
)

var (
	// ErrGiveawayActive is returned when starting a giveaway in a guild that already runs one
	ErrGiveawayActive = errors.New("a giveaway is already running in this server")

	// ErrNoActiveGiveaway is returned when ending a giveaway that doesn't exist (anymore)
	ErrNoActiveGiveaway = errors.New("no active giveaway")
)

// ValidationError is a bad user input, the message is shown to the user as is
type ValidationError struct {
	Msg string
}

func newValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

func (v *ValidationError) Error() string {
	return v.Msg
}

func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
