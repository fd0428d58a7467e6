package candidateRepo

import (
	"context"

	"lokals/models"
)

// CandidateRepository owns the provider projection the dispatcher reads:
// location, category, activity and service radius. Dispatch never writes it.
type CandidateRepository interface {
	// FindCandidates answers "eligible providers near P in category C":
	// active, within radiusKm of the point, inside their own service
	// radius, and not in the excluded set. Results carry DistanceKm.
	FindCandidates(ctx context.Context, category string, location models.GeoPoint, excludeIDs []string, radiusKm float64) ([]models.Candidate, error)

	Upsert(ctx context.Context, c models.Candidate) error
	SetActive(ctx context.Context, providerID string, active bool) error
	UpdateLocation(ctx context.Context, providerID string, loc models.GeoPoint) error
}
