package models

import "time"

// Candidate is the read-only provider projection consumed by dispatch.
// The geo index owns it; the coordinator only reads.
type Candidate struct {
	ProviderID      string    `bson:"providerId" json:"providerId"`
	Category        string    `bson:"category" json:"category"`
	Location        GeoPoint  `bson:"location" json:"location"`
	IsActive        bool      `bson:"isActive" json:"isActive"`
	ServiceRadiusKm float64   `bson:"serviceRadiusKm" json:"serviceRadiusKm"`
	Rating          float64   `bson:"rating" json:"rating"`
	RegisteredAt    time.Time `bson:"registeredAt" json:"registeredAt"`

	// DistanceKm is populated by the search pipeline, not stored.
	DistanceKm float64 `bson:"distanceKm,omitempty" json:"distanceKm,omitempty"`
}

// RankedCandidate carries a candidate with its composite dispatch score.
type RankedCandidate struct {
	Candidate
	Score float64 `json:"score"`
}
