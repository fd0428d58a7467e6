package booking

import (
	"fmt"

	"lokals/models"
	"lokals/utils"
)

// AllowedTransitions is the full lifecycle graph. Anything not listed here
// is rejected; the storage layer's conditional updates enforce the same
// edges under concurrency.
var AllowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPending:    {models.StatusSearching, models.StatusCancelled},
	models.StatusSearching:  {models.StatusAssigned, models.StatusNoProviders, models.StatusCancelled},
	models.StatusAssigned:   {models.StatusEnRoute, models.StatusInProgress, models.StatusCancelled},
	models.StatusEnRoute:    {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted},
	models.StatusCompleted:  {models.StatusPaid},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.BookingStatus) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates an edge and returns a reasoned error when it is
// illegal.
func Transition(from, to models.BookingStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	if from.Terminal() {
		return utils.NewPreconditionFailed(fmt.Sprintf("booking is already %s", from))
	}
	return utils.NewPreconditionFailed(fmt.Sprintf("cannot move booking from %s to %s", from, to))
}
