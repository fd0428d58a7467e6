package otp

import (
	"context"
	"testing"
	"time"

	bookingRepo "lokals/database/repository/booking"
	"lokals/models"
	"lokals/services/notifier"
	"lokals/utils"

	"go.uber.org/zap"
)

// memRepo holds a single booking and mirrors the conditional-update
// semantics of the storage layer.
type memRepo struct {
	bookingRepo.BookingRepository
	booking *models.Booking
}

func (m *memRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	if m.booking == nil || m.booking.ID != id {
		return nil, utils.NewNotFound("booking not found")
	}
	cp := *m.booking
	return &cp, nil
}

func (m *memRepo) SetOTP(_ context.Context, id string, rec models.OTPRecord, now time.Time) (bool, error) {
	b := m.booking
	if b == nil || b.ID != id {
		return false, nil
	}
	if b.Status != models.StatusAssigned && b.Status != models.StatusEnRoute {
		return false, nil
	}
	b.OTP = &rec
	b.UpdatedAt = now
	return true, nil
}

func (m *memRepo) VerifyOTPAndStart(_ context.Context, id, code string, now time.Time, maxAttempts int) (bookingRepo.VerifyOutcome, error) {
	b := m.booking
	if b == nil || b.ID != id {
		return bookingRepo.VerifyWrongState, nil
	}
	if b.Status != models.StatusAssigned && b.Status != models.StatusEnRoute {
		return bookingRepo.VerifyWrongState, nil
	}
	if b.OTP == nil {
		return bookingRepo.VerifyNoLiveCode, nil
	}
	if !now.Before(b.OTP.ExpiresAt) {
		return bookingRepo.VerifyExpired, nil
	}
	if b.OTP.Attempts >= maxAttempts {
		return bookingRepo.VerifyLockedOut, nil
	}
	if b.OTP.Code != code {
		b.OTP.Attempts++
		return bookingRepo.VerifyMismatch, nil
	}
	b.OTP.VerifiedAt = &now
	b.Status = models.StatusInProgress
	b.StartedAt = &now
	b.UpdatedAt = now
	return bookingRepo.VerifyOK, nil
}

func newService(repo *memRepo) *DefaultOTPService {
	return &DefaultOTPService{
		Repo:        repo,
		Hub:         notifier.NewHub(zap.NewNop()),
		Length:      6,
		TTL:         30 * time.Minute,
		MaxAttempts: 5,
		Logger:      zap.NewNop(),
	}
}

func assignedBooking() *models.Booking {
	pid := "prov-1"
	return &models.Booking{
		ID:         "bk-1",
		ClientID:   "cli-1",
		Status:     models.StatusAssigned,
		ProviderID: &pid,
	}
}

func TestIssueAndVerifyStartsService(t *testing.T) {
	repo := &memRepo{booking: assignedBooking()}
	svc := newService(repo)

	code, rec, err := svc.Issue(context.Background(), "bk-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", code)
	}
	if rec.ExpiresAt.Sub(rec.IssuedAt) != 30*time.Minute {
		t.Errorf("unexpected code lifetime %v", rec.ExpiresAt.Sub(rec.IssuedAt))
	}

	b, err := svc.Verify(context.Background(), "bk-1", code)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != models.StatusInProgress {
		t.Errorf("expected IN_PROGRESS after verification, got %s", b.Status)
	}
	if b.StartedAt == nil {
		t.Error("startedAt should be recorded on verification")
	}
}

func TestIssueRejectsWrongState(t *testing.T) {
	b := assignedBooking()
	b.Status = models.StatusSearching
	svc := newService(&memRepo{booking: b})

	_, _, err := svc.Issue(context.Background(), "bk-1")
	if utils.ErrorCode(err) != utils.CodePreconditionFailed {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}

func TestReissueInvalidatesPriorCode(t *testing.T) {
	repo := &memRepo{booking: assignedBooking()}
	svc := newService(repo)

	first, _, err := svc.Issue(context.Background(), "bk-1")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := svc.Issue(context.Background(), "bk-1")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Skip("codes collided, cannot distinguish reissue")
	}

	if _, err := svc.Verify(context.Background(), "bk-1", first); utils.ErrorCode(err) != utils.CodeMismatch {
		t.Errorf("stale code should mismatch, got %v", err)
	}
	if _, err := svc.Verify(context.Background(), "bk-1", second); err != nil {
		t.Errorf("live code should verify, got %v", err)
	}
}

func TestLockoutAfterMaxAttempts(t *testing.T) {
	repo := &memRepo{booking: assignedBooking()}
	svc := newService(repo)

	code, _, err := svc.Issue(context.Background(), "bk-1")
	if err != nil {
		t.Fatal(err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	for i := 0; i < 5; i++ {
		if _, err := svc.Verify(context.Background(), "bk-1", wrong); utils.ErrorCode(err) != utils.CodeMismatch {
			t.Fatalf("attempt %d: expected mismatch, got %v", i+1, err)
		}
	}

	// Even the correct code is refused once locked out.
	if _, err := svc.Verify(context.Background(), "bk-1", code); utils.ErrorCode(err) != utils.CodeLockedOut {
		t.Fatalf("expected lockout, got %v", err)
	}
	if repo.booking.Status != models.StatusAssigned {
		t.Errorf("booking must stay ASSIGNED through a lockout, got %s", repo.booking.Status)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	repo := &memRepo{booking: assignedBooking()}
	svc := newService(repo)
	svc.TTL = -time.Minute

	code, _, err := svc.Issue(context.Background(), "bk-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(context.Background(), "bk-1", code); utils.ErrorCode(err) != utils.CodeExpired {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestVerifyWithoutLiveCode(t *testing.T) {
	svc := newService(&memRepo{booking: assignedBooking()})
	_, err := svc.Verify(context.Background(), "bk-1", "123456")
	if utils.ErrorCode(err) != utils.CodePreconditionFailed {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}
