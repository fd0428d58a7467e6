package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"lokals/models"
	"lokals/utils"

	"go.uber.org/zap"
)

// Each multiplier contributes additively and is independently capped so no
// composition of factors can run the total away.
const multiplierCap = 0.30

// SupplyProbe reports live provider supply near a point; low supply reads
// as demand pressure. The Redis geo cache satisfies this.
type SupplyProbe interface {
	NearbyCount(ctx context.Context, loc models.GeoPoint, radiusKm float64) (int, error)
}

// DefaultPricingService implements PricingService.
type DefaultPricingService struct {
	Intel    IntelligenceClient // nil means the backend is configured off
	Supply   SupplyProbe
	Currency string
	Logger   *zap.Logger
}

// Quote computes the committed estimate: total = base × (1 + Σ multipliers).
// If the intelligence backend is unavailable the checklist fallback
// estimator is used instead, flagged with isFallback for a lower-confidence
// indicator on the client.
func (s *DefaultPricingService) Quote(ctx context.Context, req models.QuoteRequest) (*models.PriceQuote, error) {
	rate, ok := RateFor(req.Category)
	if !ok {
		return nil, utils.NewValidationError(fmt.Sprintf("unknown service category %q", req.Category))
	}
	base := rate.Base + rate.PerHour*rate.StandardHours

	adj, reasoning, err := s.adjustment(ctx, req)
	if err != nil {
		s.Logger.Debug("pricing: intelligence backend unavailable, using fallback estimator",
			zap.String("category", req.Category), zap.Error(err))
		return s.fallbackQuote(base, req.Requirement), nil
	}

	multipliers := map[string]float64{
		models.MultiplierUrgency:  urgencyFactor(req.RequestedTime),
		models.MultiplierOffHours: offHoursFactor(req.RequestedTime),
		models.MultiplierZone:     zoneFactor(req.Location),
		models.MultiplierDemand:   s.demandFactor(ctx, req),
		models.MultiplierAdjust:   clampFactor(adj),
	}
	return s.compose(base, multipliers, reasoning), nil
}

// Settle re-prices at completion with the same formula family as the
// estimate, refreshed with actuals.
func (s *DefaultPricingService) Settle(ctx context.Context, req models.SettleRequest) (*models.PriceQuote, error) {
	b := req.Booking
	if b == nil || b.Estimate == nil {
		return nil, utils.NewValidationError("booking has no committed estimate to settle against")
	}
	rate, ok := RateFor(b.Category)
	if !ok {
		return nil, utils.NewValidationError(fmt.Sprintf("unknown service category %q", b.Category))
	}

	if b.Estimate.IsFallback {
		total := FallbackEstimate(b.Estimate.Base, b.Requirement.ChecklistTotal, req.ActualItems)
		q := s.fallbackQuote(b.Estimate.Base, models.Requirements{
			ChecklistTotal:    b.Requirement.ChecklistTotal,
			ChecklistSelected: req.ActualItems,
		})
		q.Total = round2(total)
		return q, nil
	}

	hours := req.ActualDuration.Hours()
	if hours <= 0 {
		hours = rate.StandardHours
	}
	base := rate.Base + rate.PerHour*hours

	// The committed multiplier breakdown carries over unchanged; only the
	// base reflects the actual duration.
	return s.compose(base, b.Estimate.Multipliers,
		fmt.Sprintf("settled from the committed estimate over %.1fh actual duration", hours)), nil
}

func (s *DefaultPricingService) adjustment(ctx context.Context, req models.QuoteRequest) (float64, string, error) {
	if s.Intel == nil {
		return 0, "", fmt.Errorf("intelligence backend not configured")
	}
	return s.Intel.EstimateAdjustment(ctx, req.Category, req.Requirement.Description)
}

func (s *DefaultPricingService) compose(base float64, multipliers map[string]float64, reasoning string) *models.PriceQuote {
	sum := 0.0
	cleaned := make(map[string]float64, len(multipliers))
	for name, m := range multipliers {
		m = clampFactor(m)
		cleaned[name] = m
		sum += m
	}
	return &models.PriceQuote{
		Base:        round2(base),
		Multipliers: cleaned,
		Total:       round2(base * (1 + sum)),
		Currency:    s.Currency,
		Reasoning:   reasoning,
		IsFallback:  false,
		ComputedAt:  time.Now(),
	}
}

func (s *DefaultPricingService) fallbackQuote(prior float64, req models.Requirements) *models.PriceQuote {
	return &models.PriceQuote{
		Base:     round2(prior),
		Total:    round2(FallbackEstimate(prior, req.ChecklistTotal, req.ChecklistSelected)),
		Currency: s.Currency,
		Reasoning: fmt.Sprintf("degraded estimate from %d of %d checklist items",
			req.ChecklistSelected, req.ChecklistTotal),
		IsFallback: true,
		ComputedAt: time.Now(),
	}
}

// demandFactor derives demand pressure from live supply when no sample was
// provided: scarce providers nearby push the factor toward the cap.
func (s *DefaultPricingService) demandFactor(ctx context.Context, req models.QuoteRequest) float64 {
	if req.DemandSample > 0 {
		return clampFactor(req.DemandSample * multiplierCap)
	}
	if s.Supply == nil || !req.Location.Valid() {
		return 0
	}
	n, err := s.Supply.NearbyCount(ctx, req.Location, 10)
	if err != nil {
		s.Logger.Debug("pricing: supply probe failed, skipping demand factor", zap.Error(err))
		return 0
	}
	if n >= 10 {
		return 0
	}
	return clampFactor(multiplierCap * (1 - float64(n)/10))
}

// urgencyFactor prices immediacy: live requests pay the premium, requests
// scheduled comfortably ahead do not.
func urgencyFactor(requested time.Time) float64 {
	lead := time.Until(requested)
	switch {
	case lead <= 30*time.Minute:
		return 0.25
	case lead <= 2*time.Hour:
		return 0.10
	default:
		return 0
	}
}

func offHoursFactor(requested time.Time) float64 {
	h := requested.Hour()
	if h < 7 || h >= 21 {
		return 0.15
	}
	return 0
}

// zoneFactor is a coarse location-band surcharge keyed off the coordinate
// grid; stable for a given address.
func zoneFactor(loc models.GeoPoint) float64 {
	if !loc.Valid() {
		return 0
	}
	cell := int(math.Abs(loc.Lat()*10)) + int(math.Abs(loc.Lng()*10))
	return float64(cell%4) * 0.025 // 0, 0.025, 0.05 or 0.075
}

func clampFactor(m float64) float64 {
	if m < 0 {
		return 0
	}
	if m > multiplierCap {
		return multiplierCap
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
