package candidateRepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates the geo and lookup indexes the search relies on.
func (r *MongoCandidateRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	idIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "providerId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	geoIdx := mongo.IndexModel{
		Keys: bson.D{
			{Key: "location", Value: "2dsphere"},
			{Key: "category", Value: 1},
			{Key: "isActive", Value: 1},
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{idIdx, geoIdx})
	return err
}
