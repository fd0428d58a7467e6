package models

import "time"

// DispatchRound is the ephemeral broadcast-and-resolve cycle for one
// booking. It lives in the round store (Redis) while the booking is
// SEARCHING and is never persisted beyond that.
type DispatchRound struct {
	BookingID   string    `json:"bookingId"`
	RoundNumber int       `json:"roundNumber"`
	Notified    []string  `json:"notified"` // provider ids broadcast this round, rank order
	StartedAt   time.Time `json:"startedAt"`
	Deadline    time.Time `json:"deadline"` // shared across rounds of one search
}

// Expired reports whether the broadcast window has closed.
func (r *DispatchRound) Expired(now time.Time) bool {
	return !now.Before(r.Deadline)
}

// BookingRequest is the per-provider view of an open broadcast: what a
// provider sees in their pending-requests feed.
type BookingRequest struct {
	BookingID  string        `json:"bookingId"`
	Category   string        `json:"category"`
	Location   GeoPoint      `json:"location"`
	AddressRef string        `json:"addressRef"`
	Estimate   *PriceQuote   `json:"estimate,omitempty"`
	Status     BookingStatus `json:"status"`
	ExpiresAt  time.Time     `json:"expiresAt"`
}
