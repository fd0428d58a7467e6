// Package booking owns the booking lifecycle from creation to payment.
package booking

import (
	"context"
	"fmt"
	"time"

	bookingRepo "lokals/database/repository/booking"
	"lokals/models"
	"lokals/services/dispatch"
	"lokals/services/notification"
	"lokals/services/notifier"
	"lokals/services/pricing"
	"lokals/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService is the client-facing lifecycle surface.
type BookingService interface {
	// Create commits a new booking with its estimate and opens the search.
	// The idempotency key, when present, makes replays return the original
	// booking instead of creating twins.
	Create(ctx context.Context, input models.CreateBookingInput, idempotencyKey string) (*models.Booking, error)

	Get(ctx context.Context, id string) (*models.Booking, error)

	// Cancel ends the booking while it is still cancellable.
	Cancel(ctx context.Context, id string, actor models.Actor, reason string) (*models.Booking, error)

	// MarkEnRoute records the assigned provider heading out.
	MarkEnRoute(ctx context.Context, id, providerID string) (*models.Booking, error)

	// Complete settles the final cost from actuals and closes the work.
	Complete(ctx context.Context, id, providerID string, input models.CompleteBookingInput) (*models.Booking, error)

	// Pay records the settlement payment.
	Pay(ctx context.Context, id string, actor models.Actor, method string) (*models.Booking, error)

	// QuotePreview prices a prospective booking without creating anything.
	QuotePreview(ctx context.Context, input models.QuotePreviewInput) (*models.PriceQuote, error)
}

var paymentMethods = map[string]bool{"CARD": true, "UPI": true, "CASH": true}

// DefaultBookingService is the production implementation.
type DefaultBookingService struct {
	Repo      bookingRepo.BookingRepository
	Pricing   pricing.PricingService
	Idem      IdempotencyStore
	Scheduler dispatch.Scheduler
	Hub       *notifier.Hub
	Notify    notification.NotificationService
	Logger    *zap.Logger
}

func (s *DefaultBookingService) Create(ctx context.Context, input models.CreateBookingInput, idempotencyKey string) (*models.Booking, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		fresh, existingID, err := s.Idem.Reserve(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if !fresh {
			if existingID == "" {
				return nil, utils.NewPreconditionFailed("an identical request is still in flight")
			}
			return s.Repo.GetByID(ctx, existingID)
		}
	}

	b, err := s.create(ctx, input)
	if err != nil {
		if idempotencyKey != "" {
			if relErr := s.Idem.Release(ctx, idempotencyKey); relErr != nil {
				s.Logger.Warn("booking: failed to release idempotency key",
					zap.String("key", idempotencyKey), zap.Error(relErr))
			}
		}
		return nil, err
	}
	if idempotencyKey != "" {
		if err := s.Idem.Complete(ctx, idempotencyKey, b.ID); err != nil {
			s.Logger.Warn("booking: failed to record idempotency outcome",
				zap.String("key", idempotencyKey), zap.Error(err))
		}
	}
	return b, nil
}

func (s *DefaultBookingService) create(ctx context.Context, input models.CreateBookingInput) (*models.Booking, error) {
	now := time.Now()
	requestedAt := now
	if input.ScheduledAt != nil {
		requestedAt = *input.ScheduledAt
	}

	loc := models.NewGeoPoint(input.Lat, input.Lng)
	quote, err := s.Pricing.Quote(ctx, models.QuoteRequest{
		Category:      input.Category,
		Location:      loc,
		RequestedTime: requestedAt,
		Requirement:   input.Requirement,
	})
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		ID:          uuid.NewString(),
		ClientID:    input.ClientID,
		Category:    input.Category,
		Requirement: input.Requirement,
		AddressRef:  input.AddressRef,
		Location:    loc,
		Status:      models.StatusPending,
		Estimate:    quote,
		ScheduledAt: input.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.Hub.PublishSnapshot(b)
	if err := s.Scheduler.EnqueueSearch(b.ID); err != nil {
		// The booking exists; the recovery sweep will pick the search up.
		s.Logger.Error("booking: failed to enqueue search",
			zap.String("bookingId", b.ID), zap.Error(err))
	}
	return b, nil
}

func (s *DefaultBookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DefaultBookingService) Cancel(ctx context.Context, id string, actor models.Actor, reason string) (*models.Booking, error) {
	current, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleClient && current.ClientID != actor.ID {
		return nil, utils.NewNotFound(fmt.Sprintf("booking %s not found", id))
	}

	now := time.Now()
	b, err := s.Repo.CancelIf(ctx, id, reason, now)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, classifyCancelFailure(ctx, s.Repo, id)
	}

	s.Hub.PublishSnapshot(b)

	if b.ProviderID != nil && s.Notify != nil {
		pid := *b.ProviderID
		go func() {
			pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Notify.SendProviderPush(pushCtx, pid,
				"Booking cancelled",
				"The client cancelled the booking you accepted.",
				map[string]string{"type": "booking_cancelled", "bookingId": id}); err != nil {
				s.Logger.Warn("booking: provider cancel push failed",
					zap.String("bookingId", id), zap.Error(err))
			}
		}()
	}
	return b, nil
}

func classifyCancelFailure(ctx context.Context, repo bookingRepo.BookingRepository, id string) error {
	b, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case b.Status == models.StatusInProgress:
		return utils.NewPreconditionFailed("work is already in progress, raise a dispute instead of cancelling")
	case b.Status == models.StatusCancelled:
		return utils.NewPreconditionFailed("booking is already cancelled")
	default:
		return Transition(b.Status, models.StatusCancelled)
	}
}

func (s *DefaultBookingService) MarkEnRoute(ctx context.Context, id, providerID string) (*models.Booking, error) {
	ok, err := s.Repo.MarkEnRoute(ctx, id, providerID, time.Now())
	if err != nil {
		return nil, err
	}
	b, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		if b.ProviderID == nil || *b.ProviderID != providerID {
			return nil, utils.NewPreconditionFailed("booking is not assigned to you")
		}
		if b.Status == models.StatusEnRoute {
			return b, nil
		}
		return nil, Transition(b.Status, models.StatusEnRoute)
	}
	s.Hub.PublishSnapshot(b)
	return b, nil
}

func (s *DefaultBookingService) Complete(ctx context.Context, id, providerID string, input models.CompleteBookingInput) (*models.Booking, error) {
	current, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.ProviderID == nil || *current.ProviderID != providerID {
		return nil, utils.NewPreconditionFailed("booking is not assigned to you")
	}
	if current.Status != models.StatusInProgress {
		if current.Status == models.StatusCompleted {
			return current, nil
		}
		return nil, Transition(current.Status, models.StatusCompleted)
	}

	final, err := s.Pricing.Settle(ctx, models.SettleRequest{
		Booking:        current,
		ActualDuration: time.Duration(input.ActualDurationMin) * time.Minute,
		ActualItems:    input.ActualItems,
	})
	if err != nil {
		return nil, err
	}

	ok, err := s.Repo.Complete(ctx, id, providerID, *final, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.NewPreconditionFailed("booking changed while completing, retry")
	}

	b, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Hub.PublishSnapshot(b)

	if s.Notify != nil {
		go func(clientID string, total float64, currency string) {
			pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Notify.SendClientPush(pushCtx, clientID,
				"Service complete",
				fmt.Sprintf("Your service is done. Total: %.2f %s.", total, currency),
				map[string]string{"type": "booking_completed", "bookingId": id}); err != nil {
				s.Logger.Warn("booking: completion push failed",
					zap.String("bookingId", id), zap.Error(err))
			}
		}(b.ClientID, final.Total, final.Currency)
	}
	return b, nil
}

func (s *DefaultBookingService) Pay(ctx context.Context, id string, actor models.Actor, method string) (*models.Booking, error) {
	if !paymentMethods[method] {
		return nil, utils.NewValidationError(fmt.Sprintf("unsupported payment method %q", method))
	}
	current, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleClient && current.ClientID != actor.ID {
		return nil, utils.NewNotFound(fmt.Sprintf("booking %s not found", id))
	}

	ok, err := s.Repo.RecordPayment(ctx, id, method, time.Now())
	if err != nil {
		return nil, err
	}
	b, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		if b.Status == models.StatusPaid {
			return b, nil
		}
		return nil, Transition(b.Status, models.StatusPaid)
	}
	s.Hub.PublishSnapshot(b)
	return b, nil
}

func (s *DefaultBookingService) QuotePreview(ctx context.Context, input models.QuotePreviewInput) (*models.PriceQuote, error) {
	return s.Pricing.Quote(ctx, models.QuoteRequest{
		Category:      input.Category,
		Location:      models.NewGeoPoint(input.Lat, input.Lng),
		RequestedTime: time.Now(),
		DemandSample:  input.DemandSample,
		Requirement: models.Requirements{
			Description:       input.Description,
			ChecklistTotal:    input.ChecklistTotal,
			ChecklistSelected: input.ChecklistSelected,
		},
	})
}

func validateCreate(input models.CreateBookingInput) error {
	if input.ClientID == "" {
		return utils.NewValidationError("clientId is required")
	}
	if input.Category == "" {
		return utils.NewValidationError("category is required")
	}
	loc := models.NewGeoPoint(input.Lat, input.Lng)
	if !loc.Valid() {
		return utils.NewValidationError("location coordinates are out of range")
	}
	if input.ScheduledAt != nil && input.ScheduledAt.Before(time.Now().Add(-time.Minute)) {
		return utils.NewValidationError("scheduledAt is in the past")
	}
	return nil
}
