package dispatch

import (
	"math"
	"sort"

	"lokals/models"
)

// Ranking weights: proximity counts for 40%, rating for 60%.
const (
	distanceWeight = 0.4
	ratingWeight   = 0.6
	maxRating      = 5.0
)

// Rank scores candidates and returns at most max of them, best first.
// Ties break toward the longer-registered provider so seniority decides
// between otherwise equal offers.
func Rank(candidates []models.Candidate, radiusKm float64, max int) []models.RankedCandidate {
	ranked := make([]models.RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, models.RankedCandidate{
			Candidate: c,
			Score:     score(c, radiusKm),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].RegisteredAt.Before(ranked[j].RegisteredAt)
	})
	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

func score(c models.Candidate, radiusKm float64) float64 {
	proximity := 0.0
	if radiusKm > 0 {
		proximity = 1 - c.DistanceKm/radiusKm
		if proximity < 0 {
			proximity = 0
		}
	}
	rating := c.Rating / maxRating
	if rating > 1 {
		rating = 1
	}
	return distanceWeight*proximity + ratingWeight*rating
}

// HaversineKm is the great-circle distance between two points.
func HaversineKm(a, b models.GeoPoint) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng() - a.Lng()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
