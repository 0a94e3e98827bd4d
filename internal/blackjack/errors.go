package blackjack

import "errors"

// Command validation errors. Every command checks phase and caller
// ownership before mutating; a rejected command leaves room state
// untouched and only the caller sees the error.
var (
	ErrInvalidPhase        = errors.New("command not valid in current phase")
	ErrNotOwner            = errors.New("caller does not own this seat or bet")
	ErrNotHost             = errors.New("caller is not the host")
	ErrNotDealer           = errors.New("caller is not the dealer")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyConfirmed    = errors.New("bet already confirmed")
	ErrSeatOccupied        = errors.New("seat already occupied")
	ErrSeatEmpty           = errors.New("seat is empty")
	ErrUnknownPlayer       = errors.New("player not in room")
)
