package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Booking lifecycle endpoints
	CreateBookingHandler   gin.HandlerFunc
	GetBookingHandler      gin.HandlerFunc
	CancelBookingHandler   gin.HandlerFunc
	CompleteBookingHandler gin.HandlerFunc
	PayBookingHandler      gin.HandlerFunc

	// OTP endpoints
	VerifyOTPHandler  gin.HandlerFunc
	ReissueOTPHandler gin.HandlerFunc

	// Provider-side endpoints
	RegisterProviderHandler gin.HandlerFunc
	SetActiveHandler        gin.HandlerFunc
	AcceptBookingHandler    gin.HandlerFunc
	DeclineBookingHandler   gin.HandlerFunc
	PendingRequestsHandler  gin.HandlerFunc
	EnRouteHandler          gin.HandlerFunc
	LocationPingHandler     gin.HandlerFunc

	// Pricing endpoints
	QuotePreviewHandler gin.HandlerFunc
	CategoriesHandler   gin.HandlerFunc
	ChecklistHandler    gin.HandlerFunc

	// Change stream and devices
	BookingEventsHandler  gin.HandlerFunc
	RegisterDeviceHandler gin.HandlerFunc
}
