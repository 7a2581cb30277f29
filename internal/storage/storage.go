// Package storage defines the errors shared between the persistence layer
// and the booking service.
package storage

import "errors"

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrInsufficientTickets = errors.New("not enough tickets available")
	ErrInvalidTicketCount  = errors.New("number of tickets must be at least 1")
)
