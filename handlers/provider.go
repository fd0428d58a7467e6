package handlers

import (
	"net/http"

	bookingRepo "lokals/database/repository/booking"
	"lokals/middleware"
	"lokals/models"
	bookingSvc "lokals/services/booking"
	"lokals/services/dispatch"
	"lokals/services/notification"
	providerSvc "lokals/services/provider"
	"lokals/utils"

	"github.com/gin-gonic/gin"
)

// RegisterProviderHandler upserts the provider into the geo index.
func RegisterProviderHandler(svc providerSvc.ProviderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Category        string  `json:"category" binding:"required"`
			Lat             float64 `json:"lat" binding:"required"`
			Lng             float64 `json:"lng" binding:"required"`
			ServiceRadiusKm float64 `json:"serviceRadiusKm"`
			Rating          float64 `json:"rating"`
			IsActive        bool    `json:"isActive"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		actor, _ := middleware.GetActor(c)

		err := svc.Register(c.Request.Context(), models.Candidate{
			ProviderID:      actor.ID,
			Category:        input.Category,
			Location:        models.NewGeoPoint(input.Lat, input.Lng),
			IsActive:        input.IsActive,
			ServiceRadiusKm: input.ServiceRadiusKm,
			Rating:          input.Rating,
		})
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "registered"})
	}
}

func SetActiveHandler(svc providerSvc.ProviderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Active bool `json:"active"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		actor, _ := middleware.GetActor(c)

		if err := svc.SetActive(c.Request.Context(), actor.ID, input.Active); err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"active": input.Active})
	}
}

// AcceptBookingHandler is the provider's claim on an open broadcast.
func AcceptBookingHandler(coord dispatch.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		b, err := coord.Accept(c.Request.Context(), c.Param("id"), actor.ID)
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func DeclineBookingHandler(coord dispatch.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		if err := coord.Decline(c.Request.Context(), c.Param("id"), actor.ID); err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "declined"})
	}
}

// PendingRequestsHandler is the provider's feed of open broadcasts.
func PendingRequestsHandler(coord dispatch.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		reqs, err := coord.PendingRequests(c.Request.Context(), actor.ID)
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": reqs})
	}
}

func EnRouteHandler(svc bookingSvc.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		b, err := svc.MarkEnRoute(c.Request.Context(), c.Param("id"), actor.ID)
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// LocationPingHandler updates the provider's live position. When the ping
// names a booking the provider is serving, the position is republished on
// that booking's change stream.
func LocationPingHandler(svc providerSvc.ProviderService, repo bookingRepo.BookingRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LocationPingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		actor, _ := middleware.GetActor(c)

		var assigned *models.Booking
		if input.BookingID != "" {
			b, err := repo.GetByID(c.Request.Context(), input.BookingID)
			if err != nil && utils.ErrorCode(err) != utils.CodeNotFound {
				utils.JSONServiceError(c, err)
				return
			}
			assigned = b
		}

		if err := svc.PingLocation(c.Request.Context(), actor.ID, input, assigned); err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// RegisterDeviceHandler stores the actor's FCM token for pushes.
func RegisterDeviceHandler(svc notification.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		actor, _ := middleware.GetActor(c)

		if err := svc.RegisterDeviceToken(c.Request.Context(), actor.Role, actor.ID, input.Token); err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "registered"})
	}
}
