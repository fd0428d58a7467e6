package models

import "time"

// CreateBookingInput is the inbound CreateBooking command payload.
type CreateBookingInput struct {
	ClientID    string       `json:"clientId" binding:"required"`
	Category    string       `json:"category" binding:"required"`
	Requirement Requirements `json:"requirements"`
	AddressRef  string       `json:"addressRef"`
	Lat         float64      `json:"lat" binding:"required"`
	Lng         float64      `json:"lng" binding:"required"`
	ScheduledAt *time.Time   `json:"scheduledAt,omitempty"`
}

// CancelBookingInput carries an explicit reason with the cancel command.
type CancelBookingInput struct {
	Reason string `json:"reason"`
}

// VerifyOTPInput is the submitted code for the start-of-service gate.
type VerifyOTPInput struct {
	Code string `json:"code" binding:"required"`
}

// CompleteBookingInput carries the actuals used for settlement.
type CompleteBookingInput struct {
	ActualItems       int `json:"actualItems"`
	ActualDurationMin int `json:"actualDurationMin"`
}

// PayBookingInput records how the settled amount was paid.
type PayBookingInput struct {
	Method string `json:"method" binding:"required"` // CARD, UPI or CASH
}

// LocationPingInput is a provider location update while en route.
type LocationPingInput struct {
	BookingID string  `json:"bookingId" binding:"required"`
	Lat       float64 `json:"lat" binding:"required"`
	Lng       float64 `json:"lng" binding:"required"`
}

// QuotePreviewInput asks the pricing engine for a standalone estimate.
type QuotePreviewInput struct {
	Category          string  `json:"category" binding:"required"`
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	Description       string  `json:"description"`
	ChecklistTotal    int     `json:"checklistTotal"`
	ChecklistSelected int     `json:"checklistSelected"`
	DemandSample      float64 `json:"demandSample"`
}
