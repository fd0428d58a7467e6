package candidateRepo

import (
	"context"
	"fmt"

	"lokals/models"

	"github.com/go-redis/redis/v8"
)

const providerGeoKey = "geo:providers"

// GeoCache mirrors live provider positions in a Redis GEO set. It is the
// hot path for "who is near this point right now" (demand sampling, feed
// ordering); the Mongo projection remains the durable truth for dispatch.
type GeoCache struct {
	client *redis.Client
}

func NewGeoCache(client *redis.Client) *GeoCache {
	return &GeoCache{client: client}
}

// RecordPosition updates a provider's live position.
func (g *GeoCache) RecordPosition(ctx context.Context, providerID string, loc models.GeoPoint) error {
	return g.client.GeoAdd(ctx, providerGeoKey, &redis.GeoLocation{
		Name:      providerID,
		Longitude: loc.Lng(),
		Latitude:  loc.Lat(),
	}).Err()
}

// Remove drops a provider from the live set (went offline).
func (g *GeoCache) Remove(ctx context.Context, providerID string) error {
	return g.client.ZRem(ctx, providerGeoKey, providerID).Err()
}

// NearbyCount returns how many live providers sit within radiusKm of the
// point. The pricing engine samples this as supply pressure.
func (g *GeoCache) NearbyCount(ctx context.Context, loc models.GeoPoint, radiusKm float64) (int, error) {
	results, err := g.client.GeoSearch(ctx, providerGeoKey, &redis.GeoSearchQuery{
		Longitude:  loc.Lng(),
		Latitude:   loc.Lat(),
		Radius:     radiusKm,
		RadiusUnit: "km",
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("geo search failed: %w", err)
	}
	return len(results), nil
}
