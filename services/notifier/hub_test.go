package notifier

import (
	"fmt"
	"testing"
	"time"

	"lokals/models"

	"go.uber.org/zap"
)

func snapshot(bookingID string, status models.BookingStatus) models.BookingStateChanged {
	return models.BookingStateChanged{
		Kind:      models.EventStateChanged,
		BookingID: bookingID,
		Status:    status,
		Timestamp: time.Now(),
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := hub.Subscribe("bk-1", "sess-1")
	defer hub.Unsubscribe(sub)

	seq := []models.BookingStatus{
		models.StatusPending,
		models.StatusSearching,
		models.StatusAssigned,
		models.StatusInProgress,
	}
	for _, st := range seq {
		hub.Publish(snapshot("bk-1", st))
	}

	for i, want := range seq {
		select {
		case evt := <-sub.C:
			if evt.Status != want {
				t.Fatalf("event %d: got %s, want %s", i, evt.Status, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d never arrived", i)
		}
	}
}

func TestSubscriptionsAreIsolatedPerBooking(t *testing.T) {
	hub := NewHub(zap.NewNop())
	mine := hub.Subscribe("bk-1", "sess-1")
	other := hub.Subscribe("bk-2", "sess-2")
	defer hub.Unsubscribe(mine)
	defer hub.Unsubscribe(other)

	hub.Publish(snapshot("bk-1", models.StatusAssigned))

	select {
	case evt := <-mine.C:
		if evt.BookingID != "bk-1" {
			t.Fatalf("wrong booking delivered: %s", evt.BookingID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never got its event")
	}

	select {
	case evt := <-other.C:
		t.Fatalf("leaked event across bookings: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMultipleSessionsEachGetTheEvent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	var subs []*Subscription
	for i := 0; i < 3; i++ {
		subs = append(subs, hub.Subscribe("bk-1", fmt.Sprintf("sess-%d", i)))
	}
	defer func() {
		for _, s := range subs {
			hub.Unsubscribe(s)
		}
	}()

	hub.Publish(snapshot("bk-1", models.StatusCompleted))

	for i, sub := range subs {
		select {
		case evt := <-sub.C:
			if evt.Status != models.StatusCompleted {
				t.Errorf("session %d got %s", i, evt.Status)
			}
		case <-time.After(time.Second):
			t.Fatalf("session %d never got the event", i)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := hub.Subscribe("bk-1", "sess-1")
	hub.Unsubscribe(sub)

	if _, open := <-sub.C; open {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// Double unsubscribe must not panic.
	hub.Unsubscribe(sub)

	// Publishing after the last subscriber left is a no-op.
	hub.Publish(snapshot("bk-1", models.StatusPaid))
}

func TestSaturatedSubscriberDropsOldest(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := hub.Subscribe("bk-1", "sess-1")
	defer hub.Unsubscribe(sub)

	// Overflow the buffer without draining.
	for i := 0; i < subscriberBuffer+5; i++ {
		st := models.StatusSearching
		if i == subscriberBuffer+4 {
			st = models.StatusAssigned
		}
		hub.Publish(snapshot("bk-1", st))
	}

	// Drain; the newest snapshot must still be present.
	var last models.BookingStateChanged
	for {
		select {
		case evt := <-sub.C:
			last = evt
		case <-time.After(50 * time.Millisecond):
			if last.Status != models.StatusAssigned {
				t.Fatalf("latest snapshot lost; last delivered %s", last.Status)
			}
			return
		}
	}
}
