package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lokals/models"
	"lokals/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new booking document.
func (r *MongoBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID fetches a booking by its opaque id.
func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFound(fmt.Sprintf("booking %s not found", id))
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &b, nil
}

// ListSearching returns the ids of every booking still broadcasting. Used
// by the startup sweep to resume searches that were open when the process
// died.
func (r *MongoBookingRepo) ListSearching(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cur, err := r.coll.Find(ctx,
		bson.M{"status": models.StatusSearching},
		options.Find().SetProjection(bson.M{"id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list searching bookings: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode searching booking: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	return ids, cur.Err()
}
