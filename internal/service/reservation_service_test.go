package service_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/stayline-hotel/internal/booking"
	"github.com/diagnosis/stayline-hotel/internal/credential"
	"github.com/diagnosis/stayline-hotel/internal/domain"
	"github.com/diagnosis/stayline-hotel/internal/service"
)

// ---------- Mocks ----------

type mockRoomsRepo struct {
	rooms map[string]*domain.Room
}

func newMockRoomsRepo(rooms ...*domain.Room) *mockRoomsRepo {
	m := &mockRoomsRepo{rooms: make(map[string]*domain.Room)}
	for _, r := range rooms {
		m.rooms[r.ID] = r
	}
	return m
}

func (m *mockRoomsRepo) List(_ context.Context) ([]domain.Room, error) {
	var out []domain.Room
	for _, r := range m.rooms {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRoomsRepo) GetByID(_ context.Context, id string) (*domain.Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockRoomsRepo) GetByNumber(_ context.Context, number string) (*domain.Room, error) {
	for _, r := range m.rooms {
		if r.Number == number {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRoomsRepo) UpdateStatus(_ context.Context, id string, status domain.RoomStatus) (bool, error) {
	r, ok := m.rooms[id]
	if !ok {
		return false, nil
	}
	r.Status = status
	return true, nil
}

type mockGuestsRepo struct {
	byEmail map[string]*domain.Guest
}

func newMockGuestsRepo() *mockGuestsRepo {
	return &mockGuestsRepo{byEmail: make(map[string]*domain.Guest)}
}

func (m *mockGuestsRepo) GetByID(_ context.Context, id string) (*domain.Guest, error) {
	for _, g := range m.byEmail {
		if g.ID == id {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockGuestsRepo) GetByEmail(_ context.Context, email string) (*domain.Guest, error) {
	g, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *mockGuestsRepo) Upsert(_ context.Context, g *domain.Guest) (*domain.Guest, error) {
	if existing, ok := m.byEmail[g.Email]; ok {
		existing.FirstName = g.FirstName
		existing.LastName = g.LastName
		existing.Phone = g.Phone
		if g.PasswordHash != "" {
			existing.PasswordHash = g.PasswordHash
		}
		cp := *existing
		return &cp, nil
	}
	cp := *g
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	m.byEmail[g.Email] = &cp
	out := cp
	return &out, nil
}

// mockReservationsRepo mirrors the SQL overlap guard and the status
// compare-and-set so service semantics can be exercised without Postgres.
type mockReservationsRepo struct {
	mu           sync.Mutex
	reservations map[string]*domain.Reservation
	getCalls     int
}

func newMockReservationsRepo() *mockReservationsRepo {
	return &mockReservationsRepo{reservations: make(map[string]*domain.Reservation)}
}

func (m *mockReservationsRepo) CreateIfAvailable(_ context.Context, res *domain.Reservation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reservations {
		if existing.RoomID == res.RoomID && existing.Status.Blocks() && existing.Overlaps(res.CheckIn, res.CheckOut) {
			return false, nil
		}
	}
	res.CreatedAt = time.Now()
	res.UpdatedAt = res.CreatedAt
	cp := *res
	m.reservations[res.ID] = &cp
	return true, nil
}

func (m *mockReservationsRepo) GetByID(_ context.Context, id string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockReservationsRepo) ListByRoom(_ context.Context, roomID string) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, r := range m.reservations {
		if r.RoomID == roomID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReservationsRepo) ListByGuest(_ context.Context, guestID string, _, _ int) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, r := range m.reservations {
		if r.GuestID == guestID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReservationsRepo) List(_ context.Context, _, _ int, status *domain.ReservationStatus) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, r := range m.reservations {
		if status == nil || r.Status == *status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReservationsRepo) Transition(_ context.Context, id string, from, to domain.ReservationStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return true, nil
}

type mockIdempotencyRepo struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMockIdempotencyRepo() *mockIdempotencyRepo {
	return &mockIdempotencyRepo{keys: make(map[string]string)}
}

func (m *mockIdempotencyRepo) Lookup(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *mockIdempotencyRepo) Remember(_ context.Context, key, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; !ok {
		m.keys[key] = reservationID
	}
	return nil
}

func (m *mockIdempotencyRepo) CleanupExpired(context.Context) (int64, error) { return 0, nil }

type mockPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type mockMailer struct {
	mu     sync.Mutex
	lastTo string
	sent   int
}

func (m *mockMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTo = toEmail
	m.sent++
	return "mock-id", nil
}

// ---------- Fixtures ----------

const testSecret = "test-room-key-secret"

type fixture struct {
	svc          service.ReservationService
	rooms        *mockRoomsRepo
	guests       *mockGuestsRepo
	reservations *mockReservationsRepo
	idem         *mockIdempotencyRepo
	publisher    *mockPublisher
	mailer       *mockMailer
	issuer       *credential.Issuer
	clock        *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	room := &domain.Room{
		ID:         "room-101",
		Number:     "101",
		Type:       domain.RoomDeluxe,
		PriceCents: 18900,
		Capacity:   3,
		Status:     domain.RoomAvailable,
	}

	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		rooms:        newMockRoomsRepo(room),
		guests:       newMockGuestsRepo(),
		reservations: newMockReservationsRepo(),
		idem:         newMockIdempotencyRepo(),
		publisher:    &mockPublisher{},
		mailer:       &mockMailer{},
		clock:        &now,
	}
	f.issuer = credential.NewIssuer(testSecret, 48*time.Hour,
		credential.WithTimeFunc(func() time.Time { return *f.clock }))
	f.svc = service.New(
		f.rooms, f.guests, f.reservations, f.idem, f.issuer, nil,
		f.publisher, f.mailer, "Stayline Hotel", time.UTC,
		service.WithClock(func() time.Time { return *f.clock }),
	)
	return f
}

func (f *fixture) setToday(y int, m time.Month, d int) {
	*f.clock = time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func validForm() booking.Form {
	return booking.Form{
		FirstName: "Amelia",
		LastName:  "Okafor",
		Email:     "amelia@example.com",
		Phone:     "+1 (555) 123-4567",
		NumGuests: 2,
		CheckIn:   "2025-06-10",
		CheckOut:  "2025-06-13",
	}
}

// ---------- Tests ----------

func TestConfirmCreatesReservedStay(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "sea view please", "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if res.Status != domain.ReservationReserved {
		t.Errorf("status = %s, want reserved", res.Status)
	}
	if res.Credential == "" {
		t.Fatal("credential should be issued at confirmation")
	}

	claims, err := f.issuer.Verify(res.Credential)
	if err != nil {
		t.Fatalf("issued credential does not verify: %v", err)
	}
	if claims.ReservationID != res.ID {
		t.Errorf("credential binds %q, want %q", claims.ReservationID, res.ID)
	}

	if len(f.publisher.subjects) != 2 ||
		f.publisher.subjects[0] != "reservation.created" ||
		f.publisher.subjects[1] != "notify.send" {
		t.Errorf("events = %v, want [reservation.created notify.send]", f.publisher.subjects)
	}
	if f.mailer.sent != 1 || f.mailer.lastTo != "amelia@example.com" {
		t.Errorf("mail sent=%d to=%q", f.mailer.sent, f.mailer.lastTo)
	}
}

func TestRoomByNumber(t *testing.T) {
	f := newFixture(t)

	room, err := f.svc.RoomByNumber(context.Background(), "101")
	if err != nil {
		t.Fatalf("RoomByNumber: %v", err)
	}
	if room.ID != "room-101" {
		t.Errorf("room id = %q, want room-101", room.ID)
	}

	if _, err := f.svc.RoomByNumber(context.Background(), "999"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("unknown number: err = %v, want ErrRoomNotFound", err)
	}
}

func TestConfirmRejectsInvalidForm(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.Phone = "12345"
	form.NumGuests = 25

	_, err := f.svc.Confirm(context.Background(), form, "room-101", "", "")
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if _, ok := verrs["phone"]; !ok {
		t.Errorf("errors = %v, want phone entry", verrs)
	}

	if list, _ := f.reservations.List(context.Background(), 0, 0, nil); len(list) != 0 {
		t.Error("rejected form must not create a reservation")
	}
}

func TestConfirmEnforcesRoomCapacity(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.NumGuests = 4 // room sleeps 3

	_, err := f.svc.Confirm(context.Background(), form, "room-101", "", "")
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if _, ok := verrs["num_guests"]; !ok {
		t.Errorf("errors = %v, want num_guests entry", verrs)
	}
}

func TestConfirmOverlapScenario(t *testing.T) {
	f := newFixture(t)

	// Room 101 already holds 2025-06-10 .. 2025-06-13.
	if _, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", ""); err != nil {
		t.Fatalf("seed Confirm: %v", err)
	}

	overlap := validForm()
	overlap.Email = "other@example.com"
	overlap.CheckIn = "2025-06-12"
	overlap.CheckOut = "2025-06-15"
	if _, err := f.svc.Confirm(context.Background(), overlap, "room-101", "", ""); !errors.Is(err, domain.ErrRoomUnavailable) {
		t.Errorf("overlapping request: err = %v, want ErrRoomUnavailable", err)
	}

	// The check-out day is not itself occupied.
	adjacent := validForm()
	adjacent.Email = "third@example.com"
	adjacent.CheckIn = "2025-06-13"
	adjacent.CheckOut = "2025-06-15"
	if _, err := f.svc.Confirm(context.Background(), adjacent, "room-101", "", ""); err != nil {
		t.Errorf("back-to-back request: err = %v, want accepted", err)
	}
}

func TestConfirmIdempotentRetry(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "retry-key-1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	// An identical retry with the same key resolves to the existing
	// reservation instead of colliding with it.
	second, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "retry-key-1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("retry created %q, want %q", second.ID, first.ID)
	}

	if list, _ := f.reservations.List(context.Background(), 0, 0, nil); len(list) != 1 {
		t.Errorf("reservations = %d, want 1", len(list))
	}

	// A fresh key for the same dates still hits the overlap guard.
	other := validForm()
	other.Email = "other@example.com"
	if _, err := f.svc.Confirm(context.Background(), other, "room-101", "", "retry-key-2"); !errors.Is(err, domain.ErrRoomUnavailable) {
		t.Errorf("new key: err = %v, want ErrRoomUnavailable", err)
	}
}

func TestConfirmRejectsUnknownRoom(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Confirm(context.Background(), validForm(), "no-such-room", "", ""); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestConfirmRejectsPastCheckIn(t *testing.T) {
	f := newFixture(t)
	f.setToday(2025, time.June, 20)

	_, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "")
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if _, ok := verrs["check_in"]; !ok {
		t.Errorf("errors = %v, want check_in entry", verrs)
	}
}

// Property: whatever the interval mix, confirm never lets two blocking
// stays overlap on the same room.
func TestConfirmNeverDoubleBooks(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		start := 2 + rng.Intn(25)
		nights := 1 + rng.Intn(5)
		form := validForm()
		form.Email = "guest@example.com"
		form.CheckIn = domain.NewDate(2025, time.June, start).String()
		form.CheckOut = domain.NewDate(2025, time.June, start).AddDays(nights).String()

		_, err := f.svc.Confirm(context.Background(), form, "room-101", "", "")
		if err != nil && !errors.Is(err, domain.ErrRoomUnavailable) {
			t.Fatalf("Confirm: %v", err)
		}
	}

	stays, _ := f.reservations.List(context.Background(), 0, 0, nil)
	for i := range stays {
		for j := i + 1; j < len(stays); j++ {
			a, b := stays[i], stays[j]
			if a.Status.Blocks() && b.Status.Blocks() && a.Overlaps(b.CheckIn, b.CheckOut) {
				t.Fatalf("double booking: [%s,%s) and [%s,%s)", a.CheckIn, a.CheckOut, b.CheckIn, b.CheckOut)
			}
		}
	}
}

func TestCheckInGuards(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	// Day before the reservation's check-in date.
	f.setToday(2025, time.June, 9)
	if _, err := f.svc.CheckIn(context.Background(), res.ID); !errors.Is(err, domain.ErrTooEarly) {
		t.Errorf("early check-in: err = %v, want ErrTooEarly", err)
	}

	f.setToday(2025, time.June, 10)
	updated, err := f.svc.CheckIn(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if updated.Status != domain.ReservationCheckedIn {
		t.Errorf("status = %s, want checked_in", updated.Status)
	}

	// Second attempt must fail with InvalidTransition, not silently succeed.
	if _, err := f.svc.CheckIn(context.Background(), res.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("repeat check-in: err = %v, want ErrInvalidTransition", err)
	}

	room, _ := f.rooms.GetByID(context.Background(), "room-101")
	if room.Status != domain.RoomOccupied {
		t.Errorf("room status = %s, want occupied", room.Status)
	}
}

func TestCheckOutOnlyFromCheckedIn(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if _, err := f.svc.CheckOut(context.Background(), res.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("check-out from reserved: err = %v, want ErrInvalidTransition", err)
	}

	f.setToday(2025, time.June, 10)
	if _, err := f.svc.CheckIn(context.Background(), res.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	updated, err := f.svc.CheckOut(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if updated.Status != domain.ReservationCheckedOut {
		t.Errorf("status = %s, want checked_out", updated.Status)
	}

	// Terminal: nothing moves out of checked_out.
	if _, err := f.svc.Cancel(context.Background(), res.ID, "late"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("cancel after check-out: err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelOnlyFromReserved(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	updated, err := f.svc.Cancel(context.Background(), res.ID, "guest_request")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != domain.ReservationCancelled {
		t.Errorf("status = %s, want cancelled", updated.Status)
	}

	// Cancelled stays release their nights.
	again := validForm()
	again.Email = "second@example.com"
	if _, err := f.svc.Confirm(context.Background(), again, "room-101", "", ""); err != nil {
		t.Errorf("re-book after cancel: err = %v, want accepted", err)
	}
}

func TestCancelFromCheckedInRejected(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	f.setToday(2025, time.June, 10)
	if _, err := f.svc.CheckIn(context.Background(), res.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	if _, err := f.svc.Cancel(context.Background(), res.ID, "early_departure"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("cancel from checked_in: err = %v, want ErrInvalidTransition", err)
	}
}

func TestVerifyCredentialRoundTrip(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	resolved, err := f.svc.VerifyCredential(context.Background(), res.Credential)
	if err != nil {
		t.Fatalf("VerifyCredential: %v", err)
	}
	if resolved.ID != res.ID {
		t.Errorf("resolved %q, want %q", resolved.ID, res.ID)
	}
}

func TestVerifyMalformedNeverContactsStore(t *testing.T) {
	f := newFixture(t)

	before := f.reservations.getCalls
	_, err := f.svc.VerifyCredential(context.Background(), "not a credential")
	if !errors.Is(err, domain.ErrMalformedCredential) {
		t.Fatalf("err = %v, want ErrMalformedCredential", err)
	}
	if f.reservations.getCalls != before {
		t.Error("malformed payload must not reach the reservation store")
	}
}

func TestVerifyUnknownReservation(t *testing.T) {
	f := newFixture(t)

	orphan := &domain.Reservation{
		ID:       uuid.NewString(),
		CheckIn:  domain.NewDate(2025, time.June, 10),
		CheckOut: domain.NewDate(2025, time.June, 13),
	}
	room := &domain.Room{Number: "101"}
	guest := &domain.Guest{FirstName: "Ghost"}
	raw, err := f.issuer.Issue(orphan, room, guest)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := f.svc.VerifyCredential(context.Background(), raw); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Errorf("err = %v, want ErrReservationNotFound", err)
	}
}

func TestCardForConfirmedReservation(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	c, err := f.svc.Card(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	if len(c.QRPNG) == 0 || c.HTML == "" {
		t.Error("card should carry QR image and HTML")
	}
}

func TestAvailabilityReflectsLifecycle(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Confirm(context.Background(), validForm(), "room-101", "", "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	grid, err := f.svc.Availability(context.Background(), "room-101", 2025, time.June)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if !grid.Day(10).Booked || grid.Day(13).Booked {
		t.Errorf("grid days 10/13 = %+v/%+v", grid.Day(10), grid.Day(13))
	}

	if _, err := f.svc.Cancel(context.Background(), res.ID, "guest_request"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	grid, err = f.svc.Availability(context.Background(), "room-101", 2025, time.June)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if grid.Day(10).Booked {
		t.Error("cancelled stay must not block its dates")
	}
}
