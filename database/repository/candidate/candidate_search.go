package candidateRepo

import (
	"context"
	"fmt"
	"time"

	"lokals/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FindCandidates runs the geo candidate query as an aggregation pipeline.
func (r *MongoCandidateRepo) FindCandidates(ctx context.Context, category string, location models.GeoPoint, excludeIDs []string, radiusKm float64) ([]models.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if !location.Valid() {
		return nil, fmt.Errorf("invalid search center coordinates")
	}

	var pipeline mongo.Pipeline

	// 1) $geoNear: must come first to filter+sort by distance.
	pipeline = append(pipeline, bson.D{
		{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: location.Coordinates},
			}},
			{Key: "distanceField", Value: "distanceKm"},
			{Key: "distanceMultiplier", Value: 0.001}, // metres -> km
			{Key: "spherical", Value: true},
			{Key: "maxDistance", Value: radiusKm * 1000},
		}},
	})

	// 2) $match: category, active, not already exhausted for this booking.
	matchFilter := bson.M{
		"category": category,
		"isActive": true,
	}
	if len(excludeIDs) > 0 {
		matchFilter["providerId"] = bson.M{"$nin": excludeIDs}
	}
	pipeline = append(pipeline, bson.D{{Key: "$match", Value: matchFilter}})

	// 3) Providers opt in per their own service radius.
	pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{
		"$expr": bson.M{"$lte": bson.A{"$distanceKm", "$serviceRadiusKm"}},
	}}})

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("candidate aggregation query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []models.Candidate
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	return candidates, nil
}
