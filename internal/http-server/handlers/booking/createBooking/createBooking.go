package createBooking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ticketBooker/internal/lib/api/response"
	"ticketBooker/internal/lib/logger/sl"
	"ticketBooker/internal/models"
	"ticketBooker/internal/storage"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type BookingRequest struct {
	EventID    int    `json:"event_id" validate:"required"`
	UserName   string `json:"user_name" validate:"required,max=255"`
	NumTickets int    `json:"num_tickets" validate:"required,min=1"`
}

type BookingResponse struct {
	ID          int             `json:"id"`
	EventID     int             `json:"event_id"`
	UserName    string          `json:"user_name"`
	NumTickets  int             `json:"num_tickets"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=BookingCreator
type BookingCreator interface {
	CreateBooking(ctx context.Context, eventID int, userName string, numTickets int) (*models.Booking, error)
}

func New(log *slog.Logger, booking BookingCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.booking.createBooking.New"

		log = log.With(slog.String("op", op))

		var req BookingRequest

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		log.Info("request body decoded", slog.Any("request", req))

		if err = validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				log.Error("invalid request", sl.Err(err))
				render.Status(r, http.StatusUnprocessableEntity)
				render.JSON(w, r, response.ValidationError(validateErr))
				return
			}
		}

		created, err := booking.CreateBooking(r.Context(), req.EventID, req.UserName, req.NumTickets)
		if err != nil {
			log.Error("failed to create booking", sl.Err(err))

			switch {
			case errors.Is(err, storage.ErrInvalidTicketCount):
				render.Status(r, http.StatusUnprocessableEntity)
				render.JSON(w, r, response.Error("Number of tickets must be at least 1"))
			case errors.Is(err, storage.ErrEventNotFound):
				render.Status(r, http.StatusUnprocessableEntity)
				render.JSON(w, r, response.Error("Event not found"))
			case errors.Is(err, storage.ErrInsufficientTickets):
				render.Status(r, http.StatusUnprocessableEntity)
				render.JSON(w, r, response.Error("Not enough tickets available"))
			default:
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("failed to create booking"))
			}
			return
		}

		log.Info("booking created",
			slog.Int("booking_id", created.ID),
			slog.Int("event_id", created.EventID),
			slog.Int("num_tickets", created.NumTickets),
		)

		responseCreated(w, r, created)
	}
}

func responseCreated(w http.ResponseWriter, r *http.Request, booking *models.Booking) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, BookingResponse{
		ID:          booking.ID,
		EventID:     booking.EventID,
		UserName:    booking.UserName,
		NumTickets:  booking.NumTickets,
		TotalAmount: booking.TotalAmount,
	})
}
