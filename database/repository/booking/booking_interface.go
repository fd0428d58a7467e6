package bookingRepo

import (
	"context"
	"time"

	"lokals/models"
)

// VerifyOutcome classifies a VerifyOTPAndStart call.
type VerifyOutcome int

const (
	VerifyOK VerifyOutcome = iota
	VerifyMismatch
	VerifyExpired
	VerifyLockedOut
	VerifyNoLiveCode
	VerifyWrongState
)

// BookingRepository is the durable-storage boundary for the booking
// aggregate. Every status/provider mutation is a conditional update: the
// bool result reports whether the precondition held, and a false return is
// the caller's signal that it lost a race (or replayed a done command),
// never an infrastructure error.
type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// ListSearching returns ids of bookings whose search is still open,
	// for the crash-recovery sweep at startup.
	ListSearching(ctx context.Context) ([]string, error)

	// MarkSearching flips PENDING -> SEARCHING.
	MarkSearching(ctx context.Context, id string, now time.Time) (bool, error)

	// Claim is the atomic assignment: SEARCHING + no provider -> ASSIGNED.
	// At most one concurrent caller ever succeeds.
	Claim(ctx context.Context, id, providerID string, now time.Time) (bool, error)

	// CancelIf cancels while still cancellable (pre-IN_PROGRESS). Returns
	// the updated booking, or nil when the precondition no longer holds.
	CancelIf(ctx context.Context, id, reason string, now time.Time) (*models.Booking, error)

	// AddDecline records a provider's decline while SEARCHING.
	AddDecline(ctx context.Context, id, providerID string, now time.Time) (bool, error)

	// ExpireSearch flips SEARCHING -> NO_PROVIDERS if nobody claimed.
	ExpireSearch(ctx context.Context, id string, now time.Time) (bool, error)

	// MarkEnRoute records the optional ASSIGNED -> EN_ROUTE hop.
	MarkEnRoute(ctx context.Context, id, providerID string, now time.Time) (bool, error)

	// SetOTP installs a fresh live code, invalidating any prior one.
	// Permitted only while ASSIGNED or EN_ROUTE.
	SetOTP(ctx context.Context, id string, rec models.OTPRecord, now time.Time) (bool, error)

	// VerifyOTPAndStart verifies the submitted code and, in the same
	// conditional update, transitions the booking to IN_PROGRESS. Mismatch
	// attempts are counted atomically against maxAttempts.
	VerifyOTPAndStart(ctx context.Context, id, code string, now time.Time, maxAttempts int) (VerifyOutcome, error)

	// Complete flips IN_PROGRESS -> COMPLETED and stores the settlement.
	Complete(ctx context.Context, id, providerID string, final models.PriceQuote, now time.Time) (bool, error)

	// RecordPayment flips COMPLETED -> PAID.
	RecordPayment(ctx context.Context, id, method string, now time.Time) (bool, error)
}
