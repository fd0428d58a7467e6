package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingRepo "lokals/database/repository/booking"
	candidateRepo "lokals/database/repository/candidate"
	"lokals/models"
	"lokals/services/notifier"
	"lokals/utils"

	"go.uber.org/zap"
)

// fakeBookingRepo mirrors the conditional-update contract of the storage
// layer under a mutex, which is exactly what the coordinator relies on.
type fakeBookingRepo struct {
	bookingRepo.BookingRepository
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newFakeBookingRepo(bs ...*models.Booking) *fakeBookingRepo {
	m := make(map[string]*models.Booking, len(bs))
	for _, b := range bs {
		m[b.ID] = b
	}
	return &fakeBookingRepo{bookings: m}
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, utils.NewNotFound("booking not found")
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingRepo) ListSearching(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, b := range f.bookings {
		if b.Status == models.StatusSearching {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeBookingRepo) MarkSearching(_ context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.StatusPending {
		return false, nil
	}
	b.Status = models.StatusSearching
	b.UpdatedAt = now
	return true, nil
}

func (f *fakeBookingRepo) Claim(_ context.Context, id, providerID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.StatusSearching || b.ProviderID != nil {
		return false, nil
	}
	for _, d := range b.DeclinedBy {
		if d == providerID {
			return false, nil
		}
	}
	b.Status = models.StatusAssigned
	b.ProviderID = &providerID
	b.AcceptedAt = &now
	b.UpdatedAt = now
	return true, nil
}

func (f *fakeBookingRepo) AddDecline(_ context.Context, id, providerID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.StatusSearching {
		return false, nil
	}
	for _, d := range b.DeclinedBy {
		if d == providerID {
			return true, nil
		}
	}
	b.DeclinedBy = append(b.DeclinedBy, providerID)
	b.UpdatedAt = now
	return true, nil
}

func (f *fakeBookingRepo) ExpireSearch(_ context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.StatusSearching {
		return false, nil
	}
	b.Status = models.StatusNoProviders
	b.UpdatedAt = now
	return true, nil
}

// fakeCandidateRepo serves a fixed candidate set minus exclusions.
type fakeCandidateRepo struct {
	candidateRepo.CandidateRepository
	mu         sync.Mutex
	candidates []models.Candidate
	failures   int
}

func (f *fakeCandidateRepo) FindCandidates(_ context.Context, category string, _ models.GeoPoint, excludeIDs []string, _ float64) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, utils.NewServiceError(utils.CodeUpstreamUnavailable, "index unavailable")
	}
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []models.Candidate
	for _, c := range f.candidates {
		if c.Category == category && !excluded[c.ProviderID] {
			out = append(out, c)
		}
	}
	return out, nil
}

// memRoundStore is an in-process RoundStore.
type memRoundStore struct {
	mu     sync.Mutex
	rounds map[string]*models.DispatchRound
	feeds  map[string]map[string]bool
}

func newMemRoundStore() *memRoundStore {
	return &memRoundStore{
		rounds: make(map[string]*models.DispatchRound),
		feeds:  make(map[string]map[string]bool),
	}
}

func (s *memRoundStore) SaveRound(_ context.Context, r *models.DispatchRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rounds[r.BookingID] = &cp
	return nil
}

func (s *memRoundStore) GetRound(_ context.Context, bookingID string) (*models.DispatchRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[bookingID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memRoundStore) DeleteRound(_ context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rounds, bookingID)
	return nil
}

func (s *memRoundStore) AddProviderRequest(_ context.Context, providerID, bookingID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feeds[providerID] == nil {
		s.feeds[providerID] = make(map[string]bool)
	}
	s.feeds[providerID][bookingID] = true
	return nil
}

func (s *memRoundStore) RemoveProviderRequest(_ context.Context, providerID, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds[providerID], bookingID)
	return nil
}

func (s *memRoundStore) ListProviderRequests(_ context.Context, providerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.feeds[providerID] {
		ids = append(ids, id)
	}
	return ids, nil
}

// fakeScheduler records scheduled work instead of enqueueing it.
type fakeScheduler struct {
	mu       sync.Mutex
	searches []string
	expiries []string
}

func (s *fakeScheduler) EnqueueSearch(bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, bookingID)
	return nil
}

func (s *fakeScheduler) ScheduleExpiry(bookingID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiries = append(s.expiries, bookingID)
	return nil
}

type fakeIssuer struct {
	mu     sync.Mutex
	issued []string
}

func (f *fakeIssuer) Issue(_ context.Context, bookingID string) (string, *models.OTPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, bookingID)
	return "123456", &models.OTPRecord{Code: "123456"}, nil
}

func candidate(id string, rating, distKm float64) models.Candidate {
	return models.Candidate{
		ProviderID:      id,
		Category:        "Plumbing",
		IsActive:        true,
		ServiceRadiusKm: 15,
		Rating:          rating,
		RegisteredAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DistanceKm:      distKm,
	}
}

func pendingBooking(id string) *models.Booking {
	return &models.Booking{
		ID:       id,
		ClientID: "cli-1",
		Category: "Plumbing",
		Status:   models.StatusPending,
		Location: models.NewGeoPoint(12.97, 77.59),
	}
}

type fixture struct {
	repo   *fakeBookingRepo
	cands  *fakeCandidateRepo
	rounds *memRoundStore
	sched  *fakeScheduler
	issuer *fakeIssuer
	coord  *DefaultCoordinator
}

func newFixture(t *testing.T, bookings []*models.Booking, candidates []models.Candidate) *fixture {
	t.Helper()
	f := &fixture{
		repo:   newFakeBookingRepo(bookings...),
		cands:  &fakeCandidateRepo{candidates: candidates},
		rounds: newMemRoundStore(),
		sched:  &fakeScheduler{},
		issuer: &fakeIssuer{},
	}
	f.coord = &DefaultCoordinator{
		Bookings:     f.repo,
		Candidates:   f.cands,
		Rounds:       f.rounds,
		Scheduler:    f.sched,
		OTP:          f.issuer,
		Hub:          notifier.NewHub(zap.NewNop()),
		Window:       90 * time.Second,
		RadiusKm:     10,
		MaxRanked:    20,
		QueryRetries: 3,
		RetryDelay:   time.Millisecond,
		Logger:       zap.NewNop(),
	}
	return f
}

func TestStartSearchBroadcastsRankedCandidates(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-low", 3.0, 8),
		candidate("p-high", 4.9, 1),
		candidate("p-mid", 4.0, 4),
	})

	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}

	b, _ := f.repo.GetByID(context.Background(), "bk-1")
	if b.Status != models.StatusSearching {
		t.Fatalf("expected SEARCHING, got %s", b.Status)
	}

	round, _ := f.rounds.GetRound(context.Background(), "bk-1")
	if round == nil {
		t.Fatal("expected an open round")
	}
	if round.RoundNumber != 1 || len(round.Notified) != 3 {
		t.Fatalf("unexpected round %+v", round)
	}
	if round.Notified[0] != "p-high" {
		t.Errorf("best candidate should lead the round, got %v", round.Notified)
	}
	if len(f.sched.expiries) != 1 {
		t.Errorf("expected one scheduled expiry, got %d", len(f.sched.expiries))
	}

	// Each notified provider sees the request in their feed.
	for _, pid := range round.Notified {
		reqs, _ := f.coord.PendingRequests(context.Background(), pid)
		if len(reqs) != 1 || reqs[0].BookingID != "bk-1" {
			t.Errorf("provider %s feed = %v", pid, reqs)
		}
	}
}

func TestStartSearchNoCandidates(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, nil)

	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	b, _ := f.repo.GetByID(context.Background(), "bk-1")
	if b.Status != models.StatusNoProviders {
		t.Fatalf("empty first query should close the search, got %s", b.Status)
	}
}

func TestStartSearchRetriesTransientQueryFailures(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-1", 4.0, 2),
	})
	f.cands.failures = 2

	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	round, _ := f.rounds.GetRound(context.Background(), "bk-1")
	if round == nil {
		t.Fatal("search should survive transient index failures")
	}
}

func TestStartSearchExhaustedRetriesClosesSearch(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-1", 4.0, 2),
	})
	f.cands.failures = 10

	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	b, _ := f.repo.GetByID(context.Background(), "bk-1")
	if b.Status != models.StatusNoProviders {
		t.Fatalf("expected NO_PROVIDERS after exhausted retries, got %s", b.Status)
	}
}

func TestConcurrentAcceptsSingleWinner(t *testing.T) {
	const n = 16
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, nil)
	f.cands.candidates = make([]models.Candidate, n)
	providers := make([]string, n)
	for i := range providers {
		providers[i] = string(rune('a' + i))
		f.cands.candidates[i] = candidate(providers[i], 4.0, 2)
	}
	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := map[string]bool{}
	for _, pid := range providers {
		wg.Add(1)
		go func(pid string) {
			defer wg.Done()
			if _, err := f.coord.Accept(context.Background(), "bk-1", pid); err == nil {
				mu.Lock()
				winners[pid] = true
				mu.Unlock()
			}
		}(pid)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("exactly one provider must win the claim, got %d", len(winners))
	}
	b, _ := f.repo.GetByID(context.Background(), "bk-1")
	if b.Status != models.StatusAssigned || b.ProviderID == nil || !winners[*b.ProviderID] {
		t.Fatalf("booking not consistent with the winning claim: %+v", b)
	}
	if len(f.issuer.issued) != 1 {
		t.Errorf("start code should be issued exactly once, got %d", len(f.issuer.issued))
	}
}

func TestAcceptReplayByWinnerIsIdempotent(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-1", 4.0, 2),
	})
	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.coord.Accept(context.Background(), "bk-1", "p-1"); err != nil {
		t.Fatal(err)
	}

	b, err := f.coord.Accept(context.Background(), "bk-1", "p-1")
	if err != nil {
		t.Fatalf("winner's replay must succeed, got %v", err)
	}
	if b.ProviderID == nil || *b.ProviderID != "p-1" {
		t.Fatalf("replay returned wrong assignment: %+v", b)
	}
	if len(f.issuer.issued) != 1 {
		t.Errorf("replay must not reissue the start code, issued %d times", len(f.issuer.issued))
	}
}

func TestAcceptAfterLossReportsConflict(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-1", 4.0, 2),
		candidate("p-2", 4.0, 3),
	})
	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.coord.Accept(context.Background(), "bk-1", "p-1"); err != nil {
		t.Fatal(err)
	}

	_, err := f.coord.Accept(context.Background(), "bk-1", "p-2")
	if utils.ErrorCode(err) != utils.CodePreconditionFailed {
		t.Fatalf("loser must get a precondition error, got %v", err)
	}
}

func TestFullDeclineTriggersRequeryUnderSameDeadline(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-1", 4.0, 2),
	})
	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	first, _ := f.rounds.GetRound(context.Background(), "bk-1")

	// A new provider comes online before the decline lands.
	f.cands.mu.Lock()
	f.cands.candidates = append(f.cands.candidates, candidate("p-2", 4.5, 1))
	f.cands.mu.Unlock()

	if err := f.coord.Decline(context.Background(), "bk-1", "p-1"); err != nil {
		t.Fatal(err)
	}

	round, _ := f.rounds.GetRound(context.Background(), "bk-1")
	if round.RoundNumber != 2 {
		t.Fatalf("expected round 2 after full decline, got %d", round.RoundNumber)
	}
	if !round.Deadline.Equal(first.Deadline) {
		t.Error("requery must keep the original deadline")
	}
	if len(round.Notified) != 1 || round.Notified[0] != "p-2" {
		t.Errorf("round 2 should notify only the new provider, got %v", round.Notified)
	}

	// The decliner cannot claim the booking afterwards.
	if _, err := f.coord.Accept(context.Background(), "bk-1", "p-1"); utils.ErrorCode(err) != utils.CodePreconditionFailed {
		t.Errorf("declined provider must not win a later claim, got %v", err)
	}
}

func TestFullDeclineWithNoReplacementsWaitsForExpiry(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-1", 4.0, 2),
	})
	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	if err := f.coord.Decline(context.Background(), "bk-1", "p-1"); err != nil {
		t.Fatal(err)
	}

	b, _ := f.repo.GetByID(context.Background(), "bk-1")
	if b.Status != models.StatusSearching {
		t.Fatalf("search should stay open for the remainder of the window, got %s", b.Status)
	}

	if err := f.coord.ExpireWindow(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	b, _ = f.repo.GetByID(context.Background(), "bk-1")
	if b.Status != models.StatusNoProviders {
		t.Fatalf("expected NO_PROVIDERS at expiry, got %s", b.Status)
	}
}

func TestFullDeclineAfterDeadlineDoesNotRequery(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-1", 4.0, 2),
	})
	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}

	// The window closes before the decline lands and the expiry task has
	// not fired yet; a new provider online now must not be broadcast.
	round, _ := f.rounds.GetRound(context.Background(), "bk-1")
	round.Deadline = time.Now().Add(-time.Second)
	_ = f.rounds.SaveRound(context.Background(), round)
	f.cands.mu.Lock()
	f.cands.candidates = append(f.cands.candidates, candidate("p-2", 4.5, 1))
	f.cands.mu.Unlock()

	if err := f.coord.Decline(context.Background(), "bk-1", "p-1"); err != nil {
		t.Fatal(err)
	}

	after, _ := f.rounds.GetRound(context.Background(), "bk-1")
	if after.RoundNumber != 1 {
		t.Fatalf("expired window must not open round %d", after.RoundNumber)
	}
	reqs, _ := f.coord.PendingRequests(context.Background(), "p-2")
	if len(reqs) != 0 {
		t.Errorf("no feed entry should exist for a closed window: %v", reqs)
	}

	if err := f.coord.ExpireWindow(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	b, _ := f.repo.GetByID(context.Background(), "bk-1")
	if b.Status != models.StatusNoProviders {
		t.Fatalf("expected NO_PROVIDERS at expiry, got %s", b.Status)
	}
}

func TestExpireWindowAfterClaimIsNoOp(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-1", 4.0, 2),
	})
	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.coord.Accept(context.Background(), "bk-1", "p-1"); err != nil {
		t.Fatal(err)
	}
	if err := f.coord.ExpireWindow(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}

	b, _ := f.repo.GetByID(context.Background(), "bk-1")
	if b.Status != models.StatusAssigned {
		t.Fatalf("expiry must not touch an assigned booking, got %s", b.Status)
	}
}

func TestPendingRequestsPrunesSettledBookings(t *testing.T) {
	f := newFixture(t, []*models.Booking{pendingBooking("bk-1")}, []models.Candidate{
		candidate("p-1", 4.0, 2),
		candidate("p-2", 4.0, 3),
	})
	if err := f.coord.StartSearch(context.Background(), "bk-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.coord.Accept(context.Background(), "bk-1", "p-1"); err != nil {
		t.Fatal(err)
	}

	reqs, err := f.coord.PendingRequests(context.Background(), "p-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 0 {
		t.Fatalf("assigned booking must not appear in another provider's feed: %v", reqs)
	}
}

func TestRecoverOpenSearches(t *testing.T) {
	searching := pendingBooking("bk-1")
	searching.Status = models.StatusSearching
	orphan := pendingBooking("bk-2")
	orphan.Status = models.StatusSearching

	f := newFixture(t, []*models.Booking{searching, orphan}, nil)
	_ = f.rounds.SaveRound(context.Background(), &models.DispatchRound{
		BookingID:   "bk-1",
		RoundNumber: 1,
		Deadline:    time.Now().Add(time.Minute),
	})

	if err := f.coord.RecoverOpenSearches(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(f.sched.expiries) != 1 || f.sched.expiries[0] != "bk-1" {
		t.Errorf("booking with a live round should get its expiry rescheduled, got %v", f.sched.expiries)
	}
	if len(f.sched.searches) != 1 || f.sched.searches[0] != "bk-2" {
		t.Errorf("booking without round state should be re-searched, got %v", f.sched.searches)
	}
}
