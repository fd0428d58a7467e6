package bookingRepo

import (
	"context"
	"time"

	"lokals/models"

	"go.mongodb.org/mongo-driver/bson"
)

var activeServiceStates = []models.BookingStatus{models.StatusAssigned, models.StatusEnRoute}

// SetOTP installs a fresh live code. Writing the whole record invalidates
// any prior unverified code for the booking.
func (r *MongoBookingRepo) SetOTP(ctx context.Context, id string, rec models.OTPRecord, now time.Time) (bool, error) {
	return r.condUpdate(ctx,
		bson.M{"id": id, "status": bson.M{"$in": activeServiceStates}},
		bson.M{"$set": bson.M{"otp": rec, "updatedAt": now}},
	)
}

// VerifyOTPAndStart verifies the submitted code against the live record.
// The success path sets verifiedAt and transitions to IN_PROGRESS in one
// conditional write, so code state and booking status can never diverge.
// The mismatch path increments attempts with the lockout bound inside the
// filter, serializing concurrent submissions through the datastore.
func (r *MongoBookingRepo) VerifyOTPAndStart(ctx context.Context, id, code string, now time.Time, maxAttempts int) (VerifyOutcome, error) {
	live := bson.M{
		"id":             id,
		"status":         bson.M{"$in": activeServiceStates},
		"otp.verifiedAt": bson.M{"$exists": false},
		"otp.expiresAt":  bson.M{"$gt": now},
		"otp.attempts":   bson.M{"$lt": maxAttempts},
	}

	matchFilter := bson.M{"otp.code": code}
	for k, v := range live {
		matchFilter[k] = v
	}
	ok, err := r.condUpdate(ctx, matchFilter, bson.M{"$set": bson.M{
		"status":         models.StatusInProgress,
		"otp.verifiedAt": now,
		"startedAt":      now,
		"updatedAt":      now,
	}})
	if err != nil {
		return 0, err
	}
	if ok {
		return VerifyOK, nil
	}

	mismatchFilter := bson.M{"otp.code": bson.M{"$ne": code}}
	for k, v := range live {
		mismatchFilter[k] = v
	}
	ok, err = r.condUpdate(ctx, mismatchFilter, bson.M{
		"$inc": bson.M{"otp.attempts": 1},
		"$set": bson.M{"updatedAt": now},
	})
	if err != nil {
		return 0, err
	}
	if ok {
		return VerifyMismatch, nil
	}

	// Neither precondition held; classify from the current document.
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	switch {
	case b.Status != models.StatusAssigned && b.Status != models.StatusEnRoute:
		return VerifyWrongState, nil
	case b.OTP == nil || b.OTP.VerifiedAt != nil:
		return VerifyNoLiveCode, nil
	case b.OTP.Attempts >= maxAttempts:
		return VerifyLockedOut, nil
	case !now.Before(b.OTP.ExpiresAt):
		return VerifyExpired, nil
	default:
		// Lost a race with a concurrent submission; the code is spent.
		return VerifyMismatch, nil
	}
}
