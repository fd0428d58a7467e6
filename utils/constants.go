// File: utils/constants.go
package utils

import "time"

// DispatchRoundPrefix is the Redis key prefix for dispatch round state.
const DispatchRoundPrefix = "dispatch:round:"

// ProviderRequestsPrefix is the Redis key prefix for a provider's pending
// booking-request feed.
const ProviderRequestsPrefix = "dispatch:provider:"

// IdempotencyPrefix is the Redis key prefix for command replay records.
const IdempotencyPrefix = "idem:"

// IdempotencyTTL is how long a first-outcome record is retained.
const IdempotencyTTL = 24 * time.Hour
