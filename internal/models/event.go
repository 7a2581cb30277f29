package models

import "github.com/shopspring/decimal"

func init() {
	// prices and totals go over the wire as plain JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

type Event struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	AvailableTickets int             `json:"available_tickets"`
	TicketPrice      decimal.Decimal `json:"ticket_price"`
}
