// Package otp gates the start of on-site work behind a one-time code the
// client reads out to the provider in person.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	bookingRepo "lokals/database/repository/booking"
	"lokals/models"
	"lokals/services/notification"
	"lokals/services/notifier"
	"lokals/utils"

	"go.uber.org/zap"
)

// OTPService issues and verifies the code that flips a booking into
// IN_PROGRESS.
type OTPService interface {
	// Issue installs a fresh code on the booking, invalidating any prior
	// one, and returns it for out-of-band delivery to the client.
	Issue(ctx context.Context, bookingID string) (string, *models.OTPRecord, error)

	// Verify checks the submitted code and, when it matches, starts the
	// service. Verification and the status transition are one atomic
	// storage operation; Verify only classifies the result.
	Verify(ctx context.Context, bookingID, code string) (*models.Booking, error)
}

// DefaultOTPService is the production implementation.
type DefaultOTPService struct {
	Repo        bookingRepo.BookingRepository
	Hub         *notifier.Hub
	Notify      notification.NotificationService
	Length      int
	TTL         time.Duration
	MaxAttempts int
	Logger      *zap.Logger
}

func (s *DefaultOTPService) Issue(ctx context.Context, bookingID string) (string, *models.OTPRecord, error) {
	code, err := generateCode(s.Length)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := time.Now()
	rec := models.OTPRecord{
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.TTL),
	}
	ok, err := s.Repo.SetOTP(ctx, bookingID, rec, now)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, utils.NewPreconditionFailed("booking is not awaiting service start")
	}

	if s.Notify != nil {
		b, err := s.Repo.GetByID(ctx, bookingID)
		if err == nil {
			go func(clientID string) {
				pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := s.Notify.SendClientPush(pushCtx, clientID,
					"Your service start code",
					fmt.Sprintf("Share code %s with your provider when they arrive.", code),
					map[string]string{"type": "otp_issued", "bookingId": bookingID}); err != nil {
					s.Logger.Warn("otp: client push failed", zap.String("bookingId", bookingID), zap.Error(err))
				}
			}(b.ClientID)
		}
	}
	return code, &rec, nil
}

func (s *DefaultOTPService) Verify(ctx context.Context, bookingID, code string) (*models.Booking, error) {
	outcome, err := s.Repo.VerifyOTPAndStart(ctx, bookingID, code, time.Now(), s.MaxAttempts)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case bookingRepo.VerifyOK:
		b, err := s.Repo.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		s.Hub.PublishSnapshot(b)
		return b, nil
	case bookingRepo.VerifyMismatch:
		return nil, utils.NewServiceError(utils.CodeMismatch, "verification code does not match")
	case bookingRepo.VerifyExpired:
		return nil, utils.NewServiceError(utils.CodeExpired, "verification code has expired, request a fresh one")
	case bookingRepo.VerifyLockedOut:
		return nil, utils.NewServiceError(utils.CodeLockedOut, "too many failed attempts, request a fresh code")
	case bookingRepo.VerifyNoLiveCode:
		return nil, utils.NewPreconditionFailed("no live verification code on this booking")
	case bookingRepo.VerifyWrongState:
		return nil, utils.NewPreconditionFailed("booking is not awaiting service start")
	default:
		return nil, fmt.Errorf("unrecognized verification outcome %d", outcome)
	}
}

// generateCode draws each digit independently from crypto/rand.
func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
