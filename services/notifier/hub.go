// Package notifier fans booking state changes out to watching sessions.
package notifier

import (
	"sync"

	"lokals/models"

	"go.uber.org/zap"
)

const subscriberBuffer = 16

// Subscription is one session's view of a booking's change stream.
type Subscription struct {
	BookingID string
	SessionID string
	C         chan models.BookingStateChanged
}

// Hub is the single fan-out point for booking change events. Delivery is
// at-least-once and every payload is a full snapshot, so a subscriber that
// misses an event converges on the next one. Within one booking id,
// publishes are delivered in the order they are made; the hub lock holds
// that order.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]bool
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]bool),
		logger: logger,
	}
}

// Subscribe opens a stream of snapshots for one booking id.
func (h *Hub) Subscribe(bookingID, sessionID string) *Subscription {
	sub := &Subscription{
		BookingID: bookingID,
		SessionID: sessionID,
		C:         make(chan models.BookingStateChanged, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[bookingID]; !ok {
		h.subs[bookingID] = make(map[*Subscription]bool)
	}
	h.subs[bookingID][sub] = true
	return sub
}

// Unsubscribe tears a subscription down and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.BookingID]
	if !ok || !set[sub] {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.BookingID)
	}
	close(sub.C)
}

// Publish delivers the snapshot to every open subscription for the booking.
// A slow consumer has its oldest buffered event dropped rather than
// blocking the publisher; the replacement snapshot supersedes it anyway.
func (h *Hub) Publish(evt models.BookingStateChanged) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[evt.BookingID] {
		select {
		case sub.C <- evt:
		default:
			select {
			case <-sub.C:
			default:
			}
			select {
			case sub.C <- evt:
			default:
				h.logger.Debug("notifier: dropped event for saturated subscriber",
					zap.String("bookingId", evt.BookingID),
					zap.String("sessionId", sub.SessionID))
			}
		}
	}
}

// PublishSnapshot is a convenience wrapper building the payload from a
// booking aggregate.
func (h *Hub) PublishSnapshot(b *models.Booking) {
	h.Publish(models.SnapshotOf(b))
}
