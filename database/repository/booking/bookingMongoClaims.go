package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lokals/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Every mutation below is a single conditional write: the filter carries the
// state precondition and MatchedCount reports whether it held. No
// read-then-write, no application-level locks; the datastore resolves every
// race, which is what keeps at-most-one-assignment true under concurrency.

func (r *MongoBookingRepo) condUpdate(ctx context.Context, filter, update bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("conditional booking update failed: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// MarkSearching flips PENDING -> SEARCHING.
func (r *MongoBookingRepo) MarkSearching(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.condUpdate(ctx,
		bson.M{"id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{"status": models.StatusSearching, "updatedAt": now}},
	)
}

// Claim performs the atomic assignment. The filter demands SEARCHING with no
// provider set and no prior decline from this provider; exactly one
// concurrent claim can match it.
func (r *MongoBookingRepo) Claim(ctx context.Context, id, providerID string, now time.Time) (bool, error) {
	return r.condUpdate(ctx,
		bson.M{
			"id":         id,
			"status":     models.StatusSearching,
			"providerId": bson.M{"$exists": false},
			"declinedBy": bson.M{"$ne": providerID},
		},
		bson.M{"$set": bson.M{
			"status":     models.StatusAssigned,
			"providerId": providerID,
			"acceptedAt": now,
			"updatedAt":  now,
		}},
	)
}

// CancelIf cancels while the booking is still cancellable. Once IN_PROGRESS
// the filter no longer matches and the caller gets nil back.
func (r *MongoBookingRepo) CancelIf(ctx context.Context, id, reason string, now time.Time) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id": id,
		"status": bson.M{"$in": []models.BookingStatus{
			models.StatusPending, models.StatusSearching,
			models.StatusAssigned, models.StatusEnRoute,
		}},
	}
	update := bson.M{"$set": bson.M{
		"status":       models.StatusCancelled,
		"cancelReason": reason,
		"cancelledAt":  now,
		"updatedAt":    now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking %s: %w", id, err)
	}
	return &b, nil
}

// AddDecline records a provider's decline while the search is open.
func (r *MongoBookingRepo) AddDecline(ctx context.Context, id, providerID string, now time.Time) (bool, error) {
	return r.condUpdate(ctx,
		bson.M{"id": id, "status": models.StatusSearching},
		bson.M{
			"$addToSet": bson.M{"declinedBy": providerID},
			"$set":      bson.M{"updatedAt": now},
		},
	)
}

// ExpireSearch closes the broadcast window: SEARCHING with no provider
// becomes NO_PROVIDERS. A claim that committed first makes this a no-op.
func (r *MongoBookingRepo) ExpireSearch(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.condUpdate(ctx,
		bson.M{
			"id":         id,
			"status":     models.StatusSearching,
			"providerId": bson.M{"$exists": false},
		},
		bson.M{"$set": bson.M{"status": models.StatusNoProviders, "updatedAt": now}},
	)
}

// MarkEnRoute records the optional ASSIGNED -> EN_ROUTE hop, gated on the
// assigned provider reporting it.
func (r *MongoBookingRepo) MarkEnRoute(ctx context.Context, id, providerID string, now time.Time) (bool, error) {
	return r.condUpdate(ctx,
		bson.M{"id": id, "status": models.StatusAssigned, "providerId": providerID},
		bson.M{"$set": bson.M{"status": models.StatusEnRoute, "updatedAt": now}},
	)
}

// Complete flips IN_PROGRESS -> COMPLETED and stores the settlement quote in
// the same write.
func (r *MongoBookingRepo) Complete(ctx context.Context, id, providerID string, final models.PriceQuote, now time.Time) (bool, error) {
	return r.condUpdate(ctx,
		bson.M{"id": id, "status": models.StatusInProgress, "providerId": providerID},
		bson.M{"$set": bson.M{
			"status":      models.StatusCompleted,
			"finalCost":   final,
			"completedAt": now,
			"updatedAt":   now,
		}},
	)
}

// RecordPayment flips COMPLETED -> PAID.
func (r *MongoBookingRepo) RecordPayment(ctx context.Context, id, method string, now time.Time) (bool, error) {
	return r.condUpdate(ctx,
		bson.M{"id": id, "status": models.StatusCompleted},
		bson.M{"$set": bson.M{
			"status":        models.StatusPaid,
			"paymentMethod": method,
			"updatedAt":     now,
		}},
	)
}
