// Package dispatch broadcasts open bookings to nearby providers and
// resolves the race for who serves them.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingRepo "lokals/database/repository/booking"
	candidateRepo "lokals/database/repository/candidate"
	"lokals/models"
	"lokals/services/notification"
	"lokals/services/notifier"
	"lokals/utils"

	"go.uber.org/zap"
)

// Coordinator runs the search lifecycle: broadcast, claim resolution,
// decline-driven requery and window expiry.
type Coordinator interface {
	// StartSearch opens (or resumes) the broadcast for a booking.
	StartSearch(ctx context.Context, bookingID string) error

	// Accept is a provider's claim. First valid claim wins; replays by the
	// winner succeed idempotently, everyone else gets a precondition error.
	Accept(ctx context.Context, bookingID, providerID string) (*models.Booking, error)

	// Decline records a provider's refusal. When everyone notified this
	// round has declined, the search requeries immediately under the same
	// deadline.
	Decline(ctx context.Context, bookingID, providerID string) error

	// ExpireWindow closes the search if nobody claimed before the deadline.
	ExpireWindow(ctx context.Context, bookingID string) error

	// PendingRequests is a provider's feed of open broadcasts.
	PendingRequests(ctx context.Context, providerID string) ([]models.BookingRequest, error)

	// RecoverOpenSearches resumes every search that was open when the
	// process last died.
	RecoverOpenSearches(ctx context.Context) error
}

// OTPIssuer is the slice of the OTP subsystem the coordinator needs: a
// fresh start code is issued the moment a provider is assigned.
type OTPIssuer interface {
	Issue(ctx context.Context, bookingID string) (string, *models.OTPRecord, error)
}

// DefaultCoordinator is the production implementation.
type DefaultCoordinator struct {
	Bookings   bookingRepo.BookingRepository
	Candidates candidateRepo.CandidateRepository
	Rounds     RoundStore
	Scheduler  Scheduler
	OTP        OTPIssuer
	Notify     notification.NotificationService
	Hub        *notifier.Hub

	Window       time.Duration
	RadiusKm     float64
	MaxRanked    int
	QueryRetries int
	RetryDelay   time.Duration

	Logger *zap.Logger
}

func (c *DefaultCoordinator) StartSearch(ctx context.Context, bookingID string) error {
	b, err := c.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	now := time.Now()
	switch b.Status {
	case models.StatusPending:
		ok, err := c.Bookings.MarkSearching(ctx, bookingID, now)
		if err != nil {
			return err
		}
		if !ok {
			// Raced with a cancel or a duplicate task delivery.
			c.Logger.Debug("dispatch: booking left PENDING before search opened",
				zap.String("bookingId", bookingID))
			return nil
		}
		b.Status = models.StatusSearching
		b.UpdatedAt = now
	case models.StatusSearching:
		// Resuming after a crash or duplicate delivery; fall through.
	default:
		c.Logger.Debug("dispatch: search task for settled booking, ignoring",
			zap.String("bookingId", bookingID), zap.String("status", string(b.Status)))
		return nil
	}
	c.Hub.PublishSnapshot(b)

	candidates, err := c.queryCandidates(ctx, b, b.DeclinedBy)
	if err != nil {
		// The index never answered. Close the search rather than leave the
		// client waiting on a window that cannot fill.
		c.Logger.Warn("dispatch: candidate query exhausted retries, closing search",
			zap.String("bookingId", bookingID), zap.Error(err))
		return c.closeAsNoProviders(ctx, bookingID)
	}
	if len(candidates) == 0 {
		return c.closeAsNoProviders(ctx, bookingID)
	}

	deadline := now.Add(c.Window)
	round := &models.DispatchRound{
		BookingID:   bookingID,
		RoundNumber: 1,
		Notified:    providerIDs(Rank(candidates, c.RadiusKm, c.MaxRanked)),
		StartedAt:   now,
		Deadline:    deadline,
	}
	if err := c.Rounds.SaveRound(ctx, round); err != nil {
		return err
	}
	if err := c.Scheduler.ScheduleExpiry(bookingID, c.Window); err != nil {
		return err
	}

	c.broadcast(ctx, b, round)
	return nil
}

func (c *DefaultCoordinator) Accept(ctx context.Context, bookingID, providerID string) (*models.Booking, error) {
	now := time.Now()
	won, err := c.Bookings.Claim(ctx, bookingID, providerID, now)
	if err != nil {
		return nil, err
	}

	b, err := c.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !won {
		// A replay of an already-won claim is a success, not a conflict.
		if b.ProviderID != nil && *b.ProviderID == providerID {
			return b, nil
		}
		return nil, c.classifyLostClaim(b)
	}

	c.Hub.PublishSnapshot(b)
	c.cleanupRound(ctx, bookingID)

	if c.Notify != nil {
		go func() {
			pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.Notify.SendClientPush(pushCtx, b.ClientID,
				"Provider on the way",
				"A provider accepted your booking and will arrive shortly.",
				map[string]string{"type": "booking_assigned", "bookingId": bookingID}); err != nil {
				c.Logger.Warn("dispatch: client push failed", zap.String("bookingId", bookingID), zap.Error(err))
			}
		}()
	}

	// The start code is issued eagerly so the client has it before the
	// provider arrives. A failure here is recoverable: the client can
	// request a reissue.
	if c.OTP != nil {
		if _, _, err := c.OTP.Issue(ctx, bookingID); err != nil {
			c.Logger.Warn("dispatch: failed to issue start code on assignment",
				zap.String("bookingId", bookingID), zap.Error(err))
		}
	}
	return b, nil
}

func (c *DefaultCoordinator) classifyLostClaim(b *models.Booking) error {
	switch {
	case b.Status == models.StatusCancelled:
		return utils.NewPreconditionFailed("booking was cancelled before you accepted")
	case b.Status == models.StatusNoProviders:
		return utils.NewServiceError(utils.CodeExpired, "the request window has closed")
	case b.ProviderID != nil:
		return utils.NewPreconditionFailed("booking was already accepted by another provider")
	default:
		return utils.NewPreconditionFailed(fmt.Sprintf("booking is not open for acceptance (status %s)", b.Status))
	}
}

func (c *DefaultCoordinator) Decline(ctx context.Context, bookingID, providerID string) error {
	now := time.Now()
	ok, err := c.Bookings.AddDecline(ctx, bookingID, providerID, now)
	if err != nil {
		return err
	}
	// Always drop the request from this provider's feed, recorded or not.
	if err := c.Rounds.RemoveProviderRequest(ctx, providerID, bookingID); err != nil {
		c.Logger.Warn("dispatch: failed to prune provider feed",
			zap.String("providerId", providerID), zap.Error(err))
	}
	if !ok {
		// The search already resolved; declining a settled booking is a no-op.
		return nil
	}

	round, err := c.Rounds.GetRound(ctx, bookingID)
	if err != nil || round == nil {
		return err
	}
	b, err := c.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != models.StatusSearching || !b.DeclinedByAll(round.Notified) {
		return nil
	}
	if round.Expired(now) {
		// The deadline already passed; the expiry task owns the exit.
		return nil
	}

	// Everyone notified this round said no: requery immediately instead of
	// letting the rest of the window run idle. The deadline never moves.
	candidates, err := c.queryCandidates(ctx, b, b.DeclinedBy)
	if err != nil {
		c.Logger.Warn("dispatch: requery failed after full decline, waiting out the window",
			zap.String("bookingId", bookingID), zap.Error(err))
		return nil
	}
	if len(candidates) == 0 {
		// Nobody new in range. The window may still attract providers who
		// come online, so the search stays open until expiry.
		return nil
	}

	next := &models.DispatchRound{
		BookingID:   bookingID,
		RoundNumber: round.RoundNumber + 1,
		Notified:    providerIDs(Rank(candidates, c.RadiusKm, c.MaxRanked)),
		StartedAt:   now,
		Deadline:    round.Deadline,
	}
	if err := c.Rounds.SaveRound(ctx, next); err != nil {
		return err
	}
	c.broadcast(ctx, b, next)
	return nil
}

func (c *DefaultCoordinator) ExpireWindow(ctx context.Context, bookingID string) error {
	now := time.Now()
	ok, err := c.Bookings.ExpireSearch(ctx, bookingID, now)
	if err != nil {
		return err
	}
	if !ok {
		// Claimed or cancelled before the deadline; just drop the round.
		c.cleanupRound(ctx, bookingID)
		return nil
	}

	b, err := c.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	c.Hub.PublishSnapshot(b)
	c.cleanupRound(ctx, bookingID)

	if c.Notify != nil {
		go func() {
			pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.Notify.SendClientPush(pushCtx, b.ClientID,
				"No providers available",
				"We couldn't find an available provider this time. Please try again.",
				map[string]string{"type": "search_exhausted", "bookingId": bookingID}); err != nil {
				c.Logger.Warn("dispatch: client push failed", zap.String("bookingId", bookingID), zap.Error(err))
			}
		}()
	}
	return nil
}

func (c *DefaultCoordinator) PendingRequests(ctx context.Context, providerID string) ([]models.BookingRequest, error) {
	ids, err := c.Rounds.ListProviderRequests(ctx, providerID)
	if err != nil {
		return nil, err
	}

	out := make([]models.BookingRequest, 0, len(ids))
	for _, id := range ids {
		b, err := c.Bookings.GetByID(ctx, id)
		if err != nil {
			if utils.ErrorCode(err) == utils.CodeNotFound {
				_ = c.Rounds.RemoveProviderRequest(ctx, providerID, id)
				continue
			}
			return nil, err
		}
		if b.Status != models.StatusSearching {
			// The feed lags the booking; prune settled entries on read.
			_ = c.Rounds.RemoveProviderRequest(ctx, providerID, id)
			continue
		}
		round, err := c.Rounds.GetRound(ctx, id)
		if err != nil || round == nil {
			continue
		}
		out = append(out, models.BookingRequest{
			BookingID:  b.ID,
			Category:   b.Category,
			Location:   b.Location,
			AddressRef: b.AddressRef,
			Estimate:   b.Estimate,
			Status:     b.Status,
			ExpiresAt:  round.Deadline,
		})
	}
	return out, nil
}

func (c *DefaultCoordinator) RecoverOpenSearches(ctx context.Context) error {
	ids, err := c.Bookings.ListSearching(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		round, err := c.Rounds.GetRound(ctx, id)
		if err != nil {
			return err
		}
		if round == nil {
			// Round state is gone; restart the search from scratch.
			if err := c.Scheduler.EnqueueSearch(id); err != nil {
				return err
			}
			continue
		}
		remaining := time.Until(round.Deadline)
		if remaining <= 0 {
			remaining = time.Second
		}
		if err := c.Scheduler.ScheduleExpiry(id, remaining); err != nil {
			return err
		}
	}
	if len(ids) > 0 {
		c.Logger.Info("dispatch: resumed open searches", zap.Int("count", len(ids)))
	}
	return nil
}

// queryCandidates retries transient index failures a bounded number of
// times before giving up.
func (c *DefaultCoordinator) queryCandidates(ctx context.Context, b *models.Booking, exclude []string) ([]models.Candidate, error) {
	var lastErr error
	attempts := c.QueryRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(c.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		candidates, err := c.Candidates.FindCandidates(ctx, b.Category, b.Location, exclude, c.RadiusKm)
		if err == nil {
			return candidates, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *DefaultCoordinator) closeAsNoProviders(ctx context.Context, bookingID string) error {
	ok, err := c.Bookings.ExpireSearch(ctx, bookingID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	b, err := c.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	c.Hub.PublishSnapshot(b)
	c.cleanupRound(ctx, bookingID)
	return nil
}

// broadcast pushes the offer to every ranked provider concurrently; a slow
// push target never delays the rest of the round.
func (c *DefaultCoordinator) broadcast(ctx context.Context, b *models.Booking, round *models.DispatchRound) {
	ttl := time.Until(round.Deadline)
	var wg sync.WaitGroup
	for _, pid := range round.Notified {
		wg.Add(1)
		go func(pid string) {
			defer wg.Done()
			if err := c.Rounds.AddProviderRequest(ctx, pid, b.ID, ttl); err != nil {
				c.Logger.Warn("dispatch: failed to add feed entry",
					zap.String("bookingId", b.ID), zap.String("providerId", pid), zap.Error(err))
				return
			}
			if c.Notify == nil {
				return
			}
			pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.Notify.SendProviderPush(pushCtx, pid,
				"New booking request",
				fmt.Sprintf("%s job near you. Open the app to accept.", b.Category),
				map[string]string{"type": "booking_request", "bookingId": b.ID}); err != nil {
				c.Logger.Debug("dispatch: provider push failed",
					zap.String("providerId", pid), zap.Error(err))
			}
		}(pid)
	}
	wg.Wait()

	c.Logger.Info("dispatch: round broadcast",
		zap.String("bookingId", b.ID),
		zap.Int("round", round.RoundNumber),
		zap.Int("notified", len(round.Notified)),
		zap.Time("deadline", round.Deadline))
}

func (c *DefaultCoordinator) cleanupRound(ctx context.Context, bookingID string) {
	round, err := c.Rounds.GetRound(ctx, bookingID)
	if err == nil && round != nil {
		for _, pid := range round.Notified {
			_ = c.Rounds.RemoveProviderRequest(ctx, pid, bookingID)
		}
	}
	if err := c.Rounds.DeleteRound(ctx, bookingID); err != nil {
		c.Logger.Warn("dispatch: failed to delete round", zap.String("bookingId", bookingID), zap.Error(err))
	}
}

func providerIDs(ranked []models.RankedCandidate) []string {
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ProviderID
	}
	return ids
}
