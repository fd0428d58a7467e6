package handlers

import (
	"io"
	"time"

	bookingRepo "lokals/database/repository/booking"
	"lokals/models"
	"lokals/services/notifier"
	"lokals/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const heartbeatInterval = 25 * time.Second

// BookingEventsHandler streams a booking's change events over SSE. The
// first event is the current snapshot, so a client reconnecting mid-life
// converges immediately.
func BookingEventsHandler(hub *notifier.Hub, repo bookingRepo.BookingRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		b, err := repo.GetByID(c.Request.Context(), bookingID)
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}

		sub := hub.Subscribe(bookingID, uuid.NewString())
		defer hub.Unsubscribe(sub)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		c.SSEvent("message", models.SnapshotOf(b))
		c.Writer.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case evt, ok := <-sub.C:
				if !ok {
					return false
				}
				c.SSEvent("message", evt)
				// Terminal snapshots end the stream; nothing follows them.
				return evt.Kind != models.EventStateChanged || !evt.Status.Terminal()
			case <-heartbeat.C:
				c.SSEvent("ping", time.Now().Unix())
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
