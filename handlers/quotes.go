package handlers

import (
	"net/http"

	"lokals/models"
	bookingSvc "lokals/services/booking"
	"lokals/services/pricing"
	"lokals/utils"

	"github.com/gin-gonic/gin"
)

// QuotePreviewHandler prices a prospective booking without creating one.
func QuotePreviewHandler(svc bookingSvc.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.QuotePreviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}

		q, err := svc.QuotePreview(c.Request.Context(), input)
		if err != nil {
			utils.JSONServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

// CategoriesHandler lists the priceable service categories.
func CategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"categories": pricing.Categories()})
	}
}

// ChecklistHandler asks the intelligence backend for the work items of a
// described job. Without a configured backend the endpoint reports the
// upstream unavailable rather than inventing a checklist.
func ChecklistHandler(gen *pricing.GeminiClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Category    string `json:"category" binding:"required"`
			Description string `json:"description" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		if gen == nil {
			utils.JSONServiceError(c, utils.NewServiceError(utils.CodeUpstreamUnavailable, "checklist generation is unavailable"))
			return
		}

		items, err := gen.GenerateChecklist(c.Request.Context(), input.Category, input.Description)
		if err != nil {
			utils.JSONServiceError(c, utils.NewServiceError(utils.CodeUpstreamUnavailable, "checklist generation failed, describe the job manually"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}
