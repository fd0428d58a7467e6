// Package provider owns the provider-side surface: presence in the geo
// index, availability and live location.
package provider

import (
	"context"
	"time"

	candidateRepo "lokals/database/repository/candidate"
	"lokals/models"
	"lokals/services/notifier"
	"lokals/utils"

	"go.uber.org/zap"
)

// ProviderService manages the dispatchable provider projection.
type ProviderService interface {
	// Register upserts the provider into the geo index.
	Register(ctx context.Context, c models.Candidate) error

	// SetActive toggles whether the provider receives broadcasts.
	SetActive(ctx context.Context, providerID string, active bool) error

	// PingLocation updates the provider's live position and, when the ping
	// is tied to an active booking, republishes it on that booking's change
	// stream so the client can watch the provider approach.
	PingLocation(ctx context.Context, providerID string, input models.LocationPingInput, assigned *models.Booking) error
}

// GeoMirror is the live-position slice of the geo cache.
type GeoMirror interface {
	RecordPosition(ctx context.Context, providerID string, loc models.GeoPoint) error
	Remove(ctx context.Context, providerID string) error
}

// DefaultProviderService is the production implementation.
type DefaultProviderService struct {
	Repo   candidateRepo.CandidateRepository
	Geo    GeoMirror
	Hub    *notifier.Hub
	Logger *zap.Logger
}

func (s *DefaultProviderService) Register(ctx context.Context, c models.Candidate) error {
	if c.ProviderID == "" {
		return utils.NewValidationError("providerId is required")
	}
	if c.Category == "" {
		return utils.NewValidationError("category is required")
	}
	if !c.Location.Valid() {
		return utils.NewValidationError("location coordinates are required")
	}
	if c.ServiceRadiusKm <= 0 {
		c.ServiceRadiusKm = 10
	}
	if c.RegisteredAt.IsZero() {
		c.RegisteredAt = time.Now()
	}
	if err := s.Repo.Upsert(ctx, c); err != nil {
		return err
	}
	if c.IsActive {
		if err := s.Geo.RecordPosition(ctx, c.ProviderID, c.Location); err != nil {
			s.Logger.Warn("provider: failed to mirror position in geo cache",
				zap.String("providerId", c.ProviderID), zap.Error(err))
		}
	}
	return nil
}

func (s *DefaultProviderService) SetActive(ctx context.Context, providerID string, active bool) error {
	if err := s.Repo.SetActive(ctx, providerID, active); err != nil {
		return err
	}
	if !active {
		if err := s.Geo.Remove(ctx, providerID); err != nil {
			s.Logger.Warn("provider: failed to drop from geo cache",
				zap.String("providerId", providerID), zap.Error(err))
		}
	}
	return nil
}

func (s *DefaultProviderService) PingLocation(ctx context.Context, providerID string, input models.LocationPingInput, assigned *models.Booking) error {
	loc := models.NewGeoPoint(input.Lat, input.Lng)
	if !loc.Valid() {
		return utils.NewValidationError("location coordinates are out of range")
	}

	if err := s.Repo.UpdateLocation(ctx, providerID, loc); err != nil {
		return err
	}
	if err := s.Geo.RecordPosition(ctx, providerID, loc); err != nil {
		s.Logger.Warn("provider: failed to mirror position in geo cache",
			zap.String("providerId", providerID), zap.Error(err))
	}

	// Only the assigned provider's pings surface on the booking stream,
	// and only while the client has someone to track.
	if assigned == nil || assigned.ProviderID == nil || *assigned.ProviderID != providerID {
		return nil
	}
	switch assigned.Status {
	case models.StatusAssigned, models.StatusEnRoute:
		s.Hub.Publish(models.BookingStateChanged{
			Kind:       models.EventProviderLocation,
			BookingID:  assigned.ID,
			Status:     assigned.Status,
			ProviderID: assigned.ProviderID,
			Location:   &loc,
			Timestamp:  time.Now(),
		})
	}
	return nil
}
