package bookingRepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates indexes for frequently used fields in queries.
func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	idIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	clientIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	providerIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "providerId", Value: 1}, {Key: "status", Value: 1}},
	}
	// Partial index over the live search set: the expiry worker and
	// recovery sweep only ever scan SEARCHING bookings.
	searchingIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "updatedAt", Value: 1}},
		Options: options.Index().SetPartialFilterExpression(bson.M{
			"status": "SEARCHING",
		}),
	}

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{idIdx, clientIdx, providerIdx, searchingIdx})
	return err
}
