package booking

import (
	"testing"

	"lokals/models"
	"lokals/utils"
)

func TestLifecycleEdges(t *testing.T) {
	cases := []struct {
		from, to models.BookingStatus
		ok       bool
	}{
		{models.StatusPending, models.StatusSearching, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusSearching, models.StatusAssigned, true},
		{models.StatusSearching, models.StatusNoProviders, true},
		{models.StatusAssigned, models.StatusEnRoute, true},
		{models.StatusAssigned, models.StatusInProgress, true},
		{models.StatusEnRoute, models.StatusInProgress, true},
		{models.StatusInProgress, models.StatusCompleted, true},
		{models.StatusCompleted, models.StatusPaid, true},

		{models.StatusPending, models.StatusAssigned, false},
		{models.StatusSearching, models.StatusInProgress, false},
		{models.StatusInProgress, models.StatusCancelled, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusPaid, models.StatusPending, false},
		{models.StatusCancelled, models.StatusSearching, false},
		{models.StatusNoProviders, models.StatusSearching, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []models.BookingStatus{models.StatusPaid, models.StatusCancelled, models.StatusNoProviders} {
		if edges := AllowedTransitions[terminal]; len(edges) != 0 {
			t.Errorf("terminal status %s has exits %v", terminal, edges)
		}
		if !terminal.Terminal() {
			t.Errorf("%s should report terminal", terminal)
		}
	}
}

func TestTransitionErrors(t *testing.T) {
	if err := Transition(models.StatusPending, models.StatusSearching); err != nil {
		t.Errorf("legal edge returned error: %v", err)
	}
	err := Transition(models.StatusCancelled, models.StatusSearching)
	if utils.ErrorCode(err) != utils.CodePreconditionFailed {
		t.Errorf("illegal edge should be a precondition failure, got %v", err)
	}
}
