// Package booking implements the booking transaction: the locked
// check-and-decrement that keeps an event's ticket pool from going negative
// under concurrent requests.
package booking

import (
	"context"
	"fmt"

	"ticketBooker/internal/models"
	"ticketBooker/internal/storage"

	"github.com/shopspring/decimal"
)

// Storage is the transactional store the service runs against.
// FindEventForUpdate, CreateBooking and DecrementAvailableTickets are only
// valid inside the fn passed to WithTransaction.
type Storage interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	FindEventForUpdate(ctx context.Context, eventID int) (*models.Event, error)
	CreateBooking(ctx context.Context, booking models.Booking) (int, error)
	DecrementAvailableTickets(ctx context.Context, eventID, amount int) error
}

type Service struct {
	store Storage
}

func New(store Storage) *Service {
	return &Service{store: store}
}

// CreateBooking books numTickets for the given event on behalf of userName.
//
// The event row is read under an exclusive lock, so concurrent attempts
// against the same event serialize: each one checks availability against the
// value left behind by the previous committed booking. Without the lock two
// requests could both read the same count, both pass the check and oversell
// the event.
//
// Business failures (storage.ErrInvalidTicketCount, ErrEventNotFound,
// ErrInsufficientTickets) abort the transaction with no rows written.
func (s *Service) CreateBooking(ctx context.Context, eventID int, userName string, numTickets int) (*models.Booking, error) {
	if numTickets < 1 {
		return nil, storage.ErrInvalidTicketCount
	}

	var booking models.Booking

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		event, err := s.store.FindEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		if event.AvailableTickets < numTickets {
			return storage.ErrInsufficientTickets
		}

		totalAmount := event.TicketPrice.Mul(decimal.NewFromInt(int64(numTickets))).Round(2)

		booking = models.Booking{
			EventID:     eventID,
			UserName:    userName,
			NumTickets:  numTickets,
			TotalAmount: totalAmount,
		}

		id, err := s.store.CreateBooking(ctx, booking)
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		booking.ID = id

		return s.store.DecrementAvailableTickets(ctx, eventID, numTickets)
	})
	if err != nil {
		return nil, err
	}

	return &booking, nil
}
