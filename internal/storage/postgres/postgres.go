package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticketBooker/internal/config"
	"ticketBooker/internal/models"
	"ticketBooker/internal/storage"

	"github.com/shopspring/decimal"

	_ "github.com/lib/pq"
)

type Storage struct {
	DB *sql.DB
}

func InitDB(dbCfg *config.Database) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.User,
		dbCfg.Password,
		dbCfg.DBName,
		dbCfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	s := &Storage{DB: db}

	if err = s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *Storage) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS events (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			available_tickets INTEGER NOT NULL CHECK (available_tickets >= 0),
			ticket_price NUMERIC(10, 2) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bookings (
			id SERIAL PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events (id),
			user_name VARCHAR(255) NOT NULL,
			num_tickets INTEGER NOT NULL CHECK (num_tickets > 0),
			total_amount NUMERIC(10, 2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	_, err := s.DB.Exec(schema)
	return err
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

type txKey struct{}

// WithTransaction runs fn inside a database transaction carried through the
// context. The transaction commits when fn returns nil and rolls back
// otherwise, so a failed booking leaves no partial rows behind. Nested calls
// reuse the transaction already in the context.
func (s *Storage) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Storage) db(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.DB
}

// FindEventForUpdate loads the event row under an exclusive row lock.
// Concurrent transactions locking the same event queue behind the holder
// until it commits or rolls back; other events stay unaffected. Must be
// called inside WithTransaction.
func (s *Storage) FindEventForUpdate(ctx context.Context, eventID int) (*models.Event, error) {
	query := `
		SELECT id, name, available_tickets, ticket_price
		FROM events
		WHERE id = $1
		FOR UPDATE`

	var event models.Event
	err := s.db(ctx).QueryRowContext(ctx, query, eventID).Scan(
		&event.ID,
		&event.Name,
		&event.AvailableTickets,
		&event.TicketPrice,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to lock event row: %w", err)
	}

	return &event, nil
}

func (s *Storage) CreateBooking(ctx context.Context, booking models.Booking) (int, error) {
	query := `
		INSERT INTO bookings (event_id, user_name, num_tickets, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int
	err := s.db(ctx).QueryRowContext(ctx, query,
		booking.EventID,
		booking.UserName,
		booking.NumTickets,
		booking.TotalAmount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create booking: %w", err)
	}

	return id, nil
}

func (s *Storage) DecrementAvailableTickets(ctx context.Context, eventID, amount int) error {
	query := `
		UPDATE events
		SET available_tickets = available_tickets - $2
		WHERE id = $1`

	_, err := s.db(ctx).ExecContext(ctx, query, eventID, amount)
	if err != nil {
		return fmt.Errorf("failed to decrement available tickets: %w", err)
	}

	return nil
}

func (s *Storage) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	query := `
		SELECT id, name, available_tickets, ticket_price
		FROM events
		WHERE id = $1`

	var event models.Event
	err := s.db(ctx).QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.AvailableTickets,
		&event.TicketPrice,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

func (s *Storage) CreateEvent(ctx context.Context, name string, availableTickets int, ticketPrice decimal.Decimal) (int, error) {
	query := `
		INSERT INTO events (name, available_tickets, ticket_price)
		VALUES ($1, $2, $3)
		RETURNING id`

	var id int
	err := s.db(ctx).QueryRowContext(ctx, query, name, availableTickets, ticketPrice).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create event: %w", err)
	}

	return id, nil
}
