package dispatch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types carried on the dispatch queue.
const (
	TypeDispatchSearch = "dispatch:search"
	TypeDispatchExpire = "dispatch:expire"
)

// SearchPayload asks the worker to open (or resume) the search for a booking.
type SearchPayload struct {
	BookingID string `json:"bookingId"`
}

// ExpirePayload fires when a booking's broadcast window closes.
type ExpirePayload struct {
	BookingID string `json:"bookingId"`
}

// Scheduler hands dispatch work to the background queue. The API process
// enqueues; the worker executes.
type Scheduler interface {
	EnqueueSearch(bookingID string) error
	ScheduleExpiry(bookingID string, after time.Duration) error
}

// AsynqScheduler is the production scheduler backed by the asynq client.
type AsynqScheduler struct {
	Client *asynq.Client
}

func (s *AsynqScheduler) EnqueueSearch(bookingID string) error {
	b, err := json.Marshal(SearchPayload{BookingID: bookingID})
	if err != nil {
		return err
	}
	if _, err := s.Client.Enqueue(asynq.NewTask(TypeDispatchSearch, b)); err != nil {
		return fmt.Errorf("failed to enqueue search for booking %s: %w", bookingID, err)
	}
	return nil
}

func (s *AsynqScheduler) ScheduleExpiry(bookingID string, after time.Duration) error {
	b, err := json.Marshal(ExpirePayload{BookingID: bookingID})
	if err != nil {
		return err
	}
	if _, err := s.Client.Enqueue(asynq.NewTask(TypeDispatchExpire, b), asynq.ProcessIn(after)); err != nil {
		return fmt.Errorf("failed to schedule expiry for booking %s: %w", bookingID, err)
	}
	return nil
}
