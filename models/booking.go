package models

import "time"

// BookingStatus is the canonical lifecycle status of a booking.
type BookingStatus string

const (
	StatusPending     BookingStatus = "PENDING"      // created, not yet broadcast
	StatusSearching   BookingStatus = "SEARCHING"    // broadcast in flight
	StatusAssigned    BookingStatus = "ASSIGNED"     // a provider claimed it
	StatusEnRoute     BookingStatus = "EN_ROUTE"     // provider on the way
	StatusInProgress  BookingStatus = "IN_PROGRESS"  // OTP verified, work started
	StatusCompleted   BookingStatus = "COMPLETED"    // work finished
	StatusPaid        BookingStatus = "PAID"         // settlement recorded
	StatusCancelled   BookingStatus = "CANCELLED"    // terminal
	StatusNoProviders BookingStatus = "NO_PROVIDERS" // terminal, search exhausted
)

// Terminal reports whether no further transitions are possible.
func (s BookingStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled || s == StatusNoProviders
}

// Requirements is the free-form structured payload attached at creation.
// ChecklistTotal/ChecklistSelected feed the fallback estimator.
type Requirements struct {
	Description       string   `bson:"description" json:"description"`
	Checklist         []string `bson:"checklist,omitempty" json:"checklist,omitempty"`
	ChecklistTotal    int      `bson:"checklistTotal" json:"checklistTotal"`
	ChecklistSelected int      `bson:"checklistSelected" json:"checklistSelected"`
}

// OTPRecord is the live one-time code gating IN_PROGRESS. Exactly one
// unverified, unexpired record exists per booking; reissue replaces it.
type OTPRecord struct {
	Code       string     `bson:"code" json:"-"`
	IssuedAt   time.Time  `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt  time.Time  `bson:"expiresAt" json:"expiresAt"`
	VerifiedAt *time.Time `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	Attempts   int        `bson:"attempts" json:"attempts"`
}

// Live reports whether the code can still be verified at the given instant.
func (o *OTPRecord) Live(now time.Time, maxAttempts int) bool {
	return o != nil && o.VerifiedAt == nil && now.Before(o.ExpiresAt) && o.Attempts < maxAttempts
}

// Booking is the central aggregate: one service request and its lifecycle.
// providerId is non-nil iff status is ASSIGNED or later (excluding terminal
// search exits); status/providerId mutations go through conditional updates
// only.
type Booking struct {
	ID          string        `bson:"id" json:"id"`
	ClientID    string        `bson:"clientId" json:"clientId"`
	Category    string        `bson:"category" json:"category"`
	Requirement Requirements  `bson:"requirements" json:"requirements"`
	AddressRef  string        `bson:"addressRef" json:"addressRef"`
	Location    GeoPoint      `bson:"location" json:"location"`
	Status      BookingStatus `bson:"status" json:"status"`
	ProviderID  *string       `bson:"providerId,omitempty" json:"providerId,omitempty"`

	Estimate  *PriceQuote `bson:"estimate,omitempty" json:"estimate,omitempty"`
	FinalCost *PriceQuote `bson:"finalCost,omitempty" json:"finalCost,omitempty"`

	ScheduledAt *time.Time `bson:"scheduledAt,omitempty" json:"scheduledAt,omitempty"` // nil means live/immediate
	OTP         *OTPRecord `bson:"otp,omitempty" json:"otp,omitempty"`
	DeclinedBy  []string   `bson:"declinedBy,omitempty" json:"declinedBy,omitempty"`

	CancelReason  string     `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	PaymentMethod string     `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
	AcceptedAt    *time.Time `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	StartedAt     *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt   *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt   *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
}

// DeclinedByAll reports whether every id in the given set has declined.
func (b *Booking) DeclinedByAll(providerIDs []string) bool {
	declined := make(map[string]bool, len(b.DeclinedBy))
	for _, id := range b.DeclinedBy {
		declined[id] = true
	}
	for _, id := range providerIDs {
		if !declined[id] {
			return false
		}
	}
	return true
}
