package handlers

import (
	"net/http"

	"lokals/middleware"
	"lokals/models"
	bookingSvc "lokals/services/booking"
	"lokals/services/otp"
	"lokals/utils"

	"github.com/gin-gonic/gin"
)

// CreateBookingHandler commits a new booking and opens its search. The
// Idempotency-Key header makes replays safe.
func CreateBookingHandler(svc bookingSvc.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.CreateBookingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		if actor, ok := middleware.GetActor(c); ok && actor.Role == models.RoleClient {
			input.ClientID = actor.ID
		}

		b, err := svc.Create(c.Request.Context(), input, c.GetHeader("Idempotency-Key"))
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, b)
	}
}

func GetBookingHandler(svc bookingSvc.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func CancelBookingHandler(svc bookingSvc.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.CancelBookingInput
		if err := c.ShouldBindJSON(&input); err != nil && c.Request.ContentLength > 0 {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		actor, ok := middleware.GetActor(c)
		if !ok {
			utils.JSONError(c, http.StatusUnauthorized, "acting identity required", "")
			return
		}

		b, err := svc.Cancel(c.Request.Context(), c.Param("id"), actor, input.Reason)
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// CompleteBookingHandler settles the final cost from the provider's actuals.
func CompleteBookingHandler(svc bookingSvc.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.CompleteBookingInput
		if err := c.ShouldBindJSON(&input); err != nil && c.Request.ContentLength > 0 {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		actor, _ := middleware.GetActor(c)

		b, err := svc.Complete(c.Request.Context(), c.Param("id"), actor.ID, input)
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func PayBookingHandler(svc bookingSvc.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.PayBookingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		actor, ok := middleware.GetActor(c)
		if !ok {
			utils.JSONError(c, http.StatusUnauthorized, "acting identity required", "")
			return
		}

		b, err := svc.Pay(c.Request.Context(), c.Param("id"), actor, input.Method)
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// VerifyOTPHandler submits the start code read out by the client.
func VerifyOTPHandler(svc otp.OTPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.VerifyOTPInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}

		b, err := svc.Verify(c.Request.Context(), c.Param("id"), input.Code)
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// ReissueOTPHandler replaces the live code, for expiry or lockout recovery.
func ReissueOTPHandler(svc otp.OTPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, rec, err := svc.Issue(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"code":      code,
			"issuedAt":  rec.IssuedAt,
			"expiresAt": rec.ExpiresAt,
		})
	}
}
