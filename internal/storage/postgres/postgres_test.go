package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	"ticketBooker/internal/models"
	"ticketBooker/internal/service/booking"
	"ticketBooker/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost port=5432 user=postgres password=postgres dbname=ticketbooker_test sslmode=disable"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}

	if err = db.Ping(); err != nil {
		t.Skipf("postgres not available: %v", err)
	}

	s := &Storage{DB: db}
	if err = s.initSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return s
}

func createTestEvent(t *testing.T, s *Storage, tickets int, price string) int {
	t.Helper()

	id, err := s.CreateEvent(context.Background(), "Test Event", tickets, decimal.RequireFromString(price))
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = s.DB.Exec(`DELETE FROM bookings WHERE event_id = $1`, id)
		_, _ = s.DB.Exec(`DELETE FROM events WHERE id = $1`, id)
	})

	return id
}

func countBookings(t *testing.T, s *Storage, eventID int) int {
	t.Helper()

	var n int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM bookings WHERE event_id = $1`, eventID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestGetEvent(t *testing.T) {
	s := getTestStorage(t)
	ctx := context.Background()

	id := createTestEvent(t, s, 75, "99.50")

	event, err := s.GetEvent(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, event.ID)
	assert.Equal(t, "Test Event", event.Name)
	assert.Equal(t, 75, event.AvailableTickets)
	assert.True(t, decimal.RequireFromString("99.50").Equal(event.TicketPrice))
}

func TestGetEvent_NotFound(t *testing.T) {
	s := getTestStorage(t)

	_, err := s.GetEvent(context.Background(), -1)
	require.ErrorIs(t, err, storage.ErrEventNotFound)
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	s := getTestStorage(t)
	ctx := context.Background()

	id := createTestEvent(t, s, 10, "50.00")

	failure := errors.New("boom")
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.CreateBooking(ctx, models.Booking{
			EventID:     id,
			UserName:    "John Doe",
			NumTickets:  3,
			TotalAmount: decimal.RequireFromString("150.00"),
		}); err != nil {
			return err
		}
		if err := s.DecrementAvailableTickets(ctx, id, 3); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)

	event, err := s.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, event.AvailableTickets, "rollback must undo the decrement")
	assert.Zero(t, countBookings(t, s, id), "rollback must undo the insert")
}

func TestBookingService_EndToEnd(t *testing.T) {
	s := getTestStorage(t)
	ctx := context.Background()

	id := createTestEvent(t, s, 10, "50.00")

	svc := booking.New(s)

	created, err := svc.CreateBooking(ctx, id, "John Doe", 3)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("150.00").Equal(created.TotalAmount))

	event, err := s.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, event.AvailableTickets)
	assert.Equal(t, 1, countBookings(t, s, id))
}

func TestBookingService_NoOverselling(t *testing.T) {
	const (
		available = 5
		attempts  = 20
	)

	s := getTestStorage(t)
	id := createTestEvent(t, s, available, "75.00")

	svc := booking.New(s)

	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBooking(context.Background(), id, "user", 1)
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, storage.ErrInsufficientTickets):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, available, succeeded)
	assert.Equal(t, attempts-available, rejected)

	event, err := s.GetEvent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, event.AvailableTickets)
	assert.Equal(t, available, countBookings(t, s, id))
}
