package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID          int             `json:"id"`
	EventID     int             `json:"event_id"`
	UserName    string          `json:"user_name"`
	NumTickets  int             `json:"num_tickets"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}
