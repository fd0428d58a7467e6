package models

import "time"

// Event kinds carried on a booking's change stream.
const (
	EventStateChanged     = "booking.state_changed"
	EventProviderLocation = "booking.provider_location"
)

// BookingStateChanged is the payload published to subscribers on every
// transition. It is always the full current snapshot, never a delta, so a
// client that misses an intermediate event converges on the next one.
type BookingStateChanged struct {
	Kind       string        `json:"kind"`
	BookingID  string        `json:"bookingId"`
	Status     BookingStatus `json:"status"`
	ProviderID *string       `json:"providerId,omitempty"`
	Estimate   *PriceQuote   `json:"estimate,omitempty"`
	FinalCost  *PriceQuote   `json:"finalCost,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`

	// Location is set only for provider-location events.
	Location *GeoPoint `json:"location,omitempty"`
}

// SnapshotOf builds the state-changed payload from a booking.
func SnapshotOf(b *Booking) BookingStateChanged {
	return BookingStateChanged{
		Kind:       EventStateChanged,
		BookingID:  b.ID,
		Status:     b.Status,
		ProviderID: b.ProviderID,
		Estimate:   b.Estimate,
		FinalCost:  b.FinalCost,
		Timestamp:  b.UpdatedAt,
	}
}
