package bookingRepo

import (
	"lokals/database"
	"lokals/utils"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo creates a new BookingRepository backed by the
// "bookings" collection.
func NewMongoBookingRepo() BookingRepository {
	repo := &MongoBookingRepo{coll: database.DB().Collection("bookings")}
	if err := repo.ensureIndexes(); err != nil {
		// Queries degrade without indexes; writes do not.
		utils.GetLogger().Sugar().Warnf("booking repo: failed to ensure indexes: %v", err)
	}
	return repo
}
