package pricing

import (
	"context"

	"lokals/models"
)

// PricingService computes the committed estimate at creation and the final
// settlement at completion. Both use the same formula family; settlement
// only refreshes the inputs, so the client-visible number is explainable as
// the same calculation recomputed.
type PricingService interface {
	Quote(ctx context.Context, req models.QuoteRequest) (*models.PriceQuote, error)
	Settle(ctx context.Context, req models.SettleRequest) (*models.PriceQuote, error)
}

// IntelligenceClient is the authoritative pricing backend. When it is
// unavailable the engine degrades to the checklist fallback estimator.
type IntelligenceClient interface {
	// EstimateAdjustment returns the model's price adjustment factor
	// (additive multiplier contribution) and its human-readable reasoning.
	EstimateAdjustment(ctx context.Context, category, description string) (float64, string, error)
}
