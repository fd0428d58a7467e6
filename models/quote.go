package models

import "time"

// Multiplier names used in quote breakdowns.
const (
	MultiplierUrgency  = "urgency"
	MultiplierOffHours = "offHours"
	MultiplierZone     = "zone"
	MultiplierDemand   = "demand"
	MultiplierAdjust   = "adjustment" // AI/manual adjustment
)

// PriceQuote is a computed cost with its contributing multiplier breakdown.
// Produced fresh at estimate time and again at settlement; both are retained
// on the booking for audit.
type PriceQuote struct {
	Base        float64            `bson:"base" json:"base"`
	Multipliers map[string]float64 `bson:"multipliers" json:"multipliers"`
	Total       float64            `bson:"total" json:"total"`
	Currency    string             `bson:"currency" json:"currency"`
	Reasoning   string             `bson:"reasoning" json:"reasoning"`
	IsFallback  bool               `bson:"isFallback" json:"isFallback"`
	ComputedAt  time.Time          `bson:"computedAt" json:"computedAt"`
}

// QuoteRequest is the input to the pricing engine at estimate time.
type QuoteRequest struct {
	Category      string
	Location      GeoPoint
	RequestedTime time.Time
	DemandSample  float64 // 0..1 observed demand pressure for the zone
	Requirement   Requirements
}

// SettleRequest re-prices a booking at completion with actual inputs.
type SettleRequest struct {
	Booking        *Booking
	ActualDuration time.Duration
	ActualItems    int
}
