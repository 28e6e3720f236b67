package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/stayline-hotel/internal/availability"
	"github.com/diagnosis/stayline-hotel/internal/booking"
	"github.com/diagnosis/stayline-hotel/internal/card"
	"github.com/diagnosis/stayline-hotel/internal/cache"
	"github.com/diagnosis/stayline-hotel/internal/credential"
	"github.com/diagnosis/stayline-hotel/internal/domain"
	"github.com/diagnosis/stayline-hotel/internal/platform/auth"
	"github.com/diagnosis/stayline-hotel/internal/platform/mailer"
	"github.com/diagnosis/stayline-hotel/internal/repo/postgres"
	"github.com/diagnosis/stayline-hotel/pkg/events"
	"github.com/diagnosis/stayline-hotel/pkg/logger"
)

// ReservationService drives a reservation through its lifecycle and answers
// availability queries. Transition guards are enforced here and re-enforced
// in SQL; the two never disagree because the repo guard is status-compare-
// and-set.
type ReservationService interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	RoomByNumber(ctx context.Context, number string) (*domain.Room, error)
	Availability(ctx context.Context, roomID string, year int, month time.Month) (*availability.Grid, error)
	RoomReservations(ctx context.Context, roomID string) ([]domain.Reservation, error)
	ListReservations(ctx context.Context, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error)
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)

	Confirm(ctx context.Context, form booking.Form, roomID, notes, idemKey string) (*domain.Reservation, error)
	CheckIn(ctx context.Context, id string) (*domain.Reservation, error)
	CheckOut(ctx context.Context, id string) (*domain.Reservation, error)
	Cancel(ctx context.Context, id, reason string) (*domain.Reservation, error)

	VerifyCredential(ctx context.Context, raw string) (*domain.Reservation, error)
	Card(ctx context.Context, id string) (*card.Card, error)
}

type reservationService struct {
	rooms        postgres.RoomsRepo
	guests       postgres.GuestsRepo
	reservations postgres.ReservationsRepo
	idem         postgres.IdempotencyRepo
	issuer       *credential.Issuer
	grids        *cache.AvailabilityCache
	eventBus     events.Publisher
	mail         mailer.Service
	property     string
	loc          *time.Location
	now          func() time.Time
}

type Option func(*reservationService)

// WithClock overrides the wall clock, for tests exercising date guards.
func WithClock(now func() time.Time) Option {
	return func(s *reservationService) { s.now = now }
}

func New(
	rooms postgres.RoomsRepo,
	guests postgres.GuestsRepo,
	reservations postgres.ReservationsRepo,
	idem postgres.IdempotencyRepo,
	issuer *credential.Issuer,
	grids *cache.AvailabilityCache,
	eventBus events.Publisher,
	mail mailer.Service,
	property string,
	loc *time.Location,
	opts ...Option,
) ReservationService {
	s := &reservationService{
		rooms:        rooms,
		guests:       guests,
		reservations: reservations,
		idem:         idem,
		issuer:       issuer,
		grids:        grids,
		eventBus:     eventBus,
		mail:         mail,
		property:     property,
		loc:          loc,
		now:          time.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reservationService) today() domain.Date {
	return domain.DateOf(s.now().In(s.loc))
}

func (s *reservationService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.List(ctx)
}

// RoomByNumber looks a room up by its door number, the identifier printed
// on key cards and spoken at the front desk.
func (s *reservationService) RoomByNumber(ctx context.Context, number string) (*domain.Room, error) {
	room, err := s.rooms.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("get room by number: %w", err)
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (s *reservationService) Availability(ctx context.Context, roomID string, year int, month time.Month) (*availability.Grid, error) {
	if s.grids != nil {
		if grid := s.grids.Get(ctx, roomID, year, month); grid != nil {
			return grid, nil
		}
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	reservations, err := s.reservations.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list room reservations: %w", err)
	}

	grid, err := availability.Compute(roomID, year, month, s.today(), reservations)
	if err != nil {
		return nil, err
	}

	if s.grids != nil {
		s.grids.Set(ctx, grid)
	}
	return grid, nil
}

func (s *reservationService) RoomReservations(ctx context.Context, roomID string) ([]domain.Reservation, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return s.reservations.ListByRoom(ctx, roomID)
}

func (s *reservationService) ListReservations(ctx context.Context, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error) {
	return s.reservations.List(ctx, limit, offset, status)
}

func (s *reservationService) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if res == nil {
		return nil, domain.ErrReservationNotFound
	}
	return res, nil
}

// Confirm re-applies the booking validation (client-side validation is
// advisory, never trusted), then inserts the reservation with the overlap
// guard in the same statement. The credential is signed before the insert so
// a failed confirmation leaves nothing half-built. A non-empty idemKey makes
// retries safe: a key seen before resolves to the reservation the first
// attempt created instead of colliding with it.
func (s *reservationService) Confirm(ctx context.Context, form booking.Form, roomID, notes, idemKey string) (*domain.Reservation, error) {
	if idemKey != "" && s.idem != nil {
		id, err := s.idem.Lookup(ctx, idemKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if id != "" {
			return s.GetReservation(ctx, id)
		}
	}

	if errs := booking.Validate(form); !errs.Valid() {
		return nil, errs
	}
	req := booking.ToRequest(form, roomID, notes)

	room, err := s.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	if req.NumGuests > room.Capacity {
		return nil, domain.ValidationErrors{
			"num_guests": fmt.Sprintf("room %s sleeps at most %d guests", room.Number, room.Capacity),
		}
	}
	if req.CheckIn.Before(s.today()) {
		return nil, domain.ValidationErrors{"check_in": "check-in date is in the past"}
	}

	// Advisory pre-check; the insert below remains the only conflict guard
	// that counts.
	existing, err := s.reservations.ListByRoom(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("list room reservations: %w", err)
	}
	if !availability.RangeFree(req.RoomID, req.CheckIn, req.CheckOut, existing) {
		return nil, domain.ErrRoomUnavailable
	}

	guest := &domain.Guest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		guest.PasswordHash = hash
	}
	guest, err = s.guests.Upsert(ctx, guest)
	if err != nil {
		return nil, fmt.Errorf("upsert guest: %w", err)
	}

	res := &domain.Reservation{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		GuestID:   guest.ID,
		CheckIn:   req.CheckIn,
		CheckOut:  req.CheckOut,
		NumGuests: req.NumGuests,
		Notes:     req.Notes,
		Status:    domain.ReservationReserved,
	}

	token, err := s.issuer.Issue(res, room, guest)
	if err != nil {
		return nil, fmt.Errorf("issue credential: %w", err)
	}
	res.Credential = token

	created, err := s.reservations.CreateIfAvailable(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	if !created {
		return nil, domain.ErrRoomUnavailable
	}

	if idemKey != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, idemKey, res.ID); err != nil {
			logger.WarnContext(ctx, "idempotency record failed", "error", err, "reservation_id", res.ID)
		}
	}

	s.invalidateGrids(ctx, res)
	s.publish(ctx, events.ReservationCreated, events.ReservationCreatedEvent{
		ReservationID: res.ID,
		RoomNumber:    room.Number,
		GuestEmail:    guest.Email,
		GuestName:     guest.FullName(),
		CheckIn:       res.CheckIn.String(),
		CheckOut:      res.CheckOut.String(),
		NumGuests:     res.NumGuests,
		CreatedAt:     res.CreatedAt,
	})
	s.sendConfirmation(ctx, res, room, guest)

	return res, nil
}

func (s *reservationService) CheckIn(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != domain.ReservationReserved {
		return nil, &domain.TransitionError{From: res.Status, To: domain.ReservationCheckedIn}
	}
	if s.today().Before(res.CheckIn) {
		return nil, fmt.Errorf("%w: check-in opens %s", domain.ErrTooEarly, res.CheckIn)
	}

	return s.transition(ctx, res, domain.ReservationCheckedIn, func(room *domain.Room) {
		s.publish(ctx, events.ReservationCheckedIn, events.ReservationCheckedInEvent{
			ReservationID: res.ID,
			RoomNumber:    room.Number,
			CheckedInAt:   s.now(),
		})
		if _, err := s.rooms.UpdateStatus(ctx, res.RoomID, domain.RoomOccupied); err != nil {
			logger.WarnContext(ctx, "room status update failed", "error", err, "room_id", res.RoomID)
		}
	})
}

func (s *reservationService) CheckOut(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != domain.ReservationCheckedIn {
		return nil, &domain.TransitionError{From: res.Status, To: domain.ReservationCheckedOut}
	}

	return s.transition(ctx, res, domain.ReservationCheckedOut, func(room *domain.Room) {
		s.publish(ctx, events.ReservationCheckedOut, events.ReservationCheckedOutEvent{
			ReservationID: res.ID,
			RoomNumber:    room.Number,
			CheckedOutAt:  s.now(),
		})
		if _, err := s.rooms.UpdateStatus(ctx, res.RoomID, domain.RoomCleaning); err != nil {
			logger.WarnContext(ctx, "room status update failed", "error", err, "room_id", res.RoomID)
		}
	})
}

func (s *reservationService) Cancel(ctx context.Context, id, reason string) (*domain.Reservation, error) {
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != domain.ReservationReserved {
		// Early departures check out; cancellation never leaves checked_in.
		return nil, &domain.TransitionError{From: res.Status, To: domain.ReservationCancelled}
	}

	return s.transition(ctx, res, domain.ReservationCancelled, func(room *domain.Room) {
		guest, gerr := s.guests.GetByID(ctx, res.GuestID)
		email := ""
		if gerr == nil && guest != nil {
			email = guest.Email
		}
		s.publish(ctx, events.ReservationCancelled, events.ReservationCancelledEvent{
			ReservationID: res.ID,
			RoomNumber:    room.Number,
			GuestEmail:    email,
			Reason:        reason,
			CancelledAt:   s.now(),
		})
	})
}

// transition performs the guarded status move and runs after on success.
// The SQL compare-and-set is the last word: if another operator raced us,
// the guard fails and the caller gets ErrInvalidTransition, never a double
// apply.
func (s *reservationService) transition(ctx context.Context, res *domain.Reservation, to domain.ReservationStatus, after func(room *domain.Room)) (*domain.Reservation, error) {
	moved, err := s.reservations.Transition(ctx, res.ID, res.Status, to)
	if err != nil {
		return nil, fmt.Errorf("transition reservation: %w", err)
	}
	if !moved {
		current, err := s.reservations.GetByID(ctx, res.ID)
		if err != nil || current == nil {
			return nil, &domain.TransitionError{From: res.Status, To: to}
		}
		return nil, &domain.TransitionError{From: current.Status, To: to}
	}

	res.Status = to

	room, err := s.rooms.GetByID(ctx, res.RoomID)
	if err != nil || room == nil {
		room = &domain.Room{ID: res.RoomID}
	}
	after(room)

	s.invalidateGrids(ctx, res)

	return res, nil
}

// VerifyCredential resolves a scanned payload to its reservation. Malformed
// payloads never reach the store; the caller decides which lifecycle
// operation applies and its guards remain the final authority.
func (s *reservationService) VerifyCredential(ctx context.Context, raw string) (*domain.Reservation, error) {
	claims, err := s.issuer.Verify(raw)
	if err != nil {
		return nil, err
	}

	res, err := s.reservations.GetByID(ctx, claims.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("resolve reservation: %w", err)
	}
	if res == nil {
		return nil, domain.ErrReservationNotFound
	}
	return res, nil
}

func (s *reservationService) Card(ctx context.Context, id string) (*card.Card, error) {
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.GetByID(ctx, res.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	guest, err := s.guests.GetByID(ctx, res.GuestID)
	if err != nil {
		return nil, fmt.Errorf("get guest: %w", err)
	}
	if guest == nil {
		return nil, domain.ErrGuestNotFound
	}

	return card.Render(s.property, res, room, guest)
}

func (s *reservationService) invalidateGrids(ctx context.Context, res *domain.Reservation) {
	if s.grids == nil {
		return
	}
	s.grids.InvalidateRange(ctx, res.RoomID, res.CheckIn, res.CheckOut)
}

func (s *reservationService) publish(ctx context.Context, subject string, event any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}

func (s *reservationService) sendConfirmation(ctx context.Context, res *domain.Reservation, room *domain.Room, guest *domain.Guest) {
	if s.mail == nil {
		return
	}

	c, err := card.Render(s.property, res, room, guest)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to render confirmation card", "error", err, "reservation_id", res.ID)
		return
	}

	subject := fmt.Sprintf("Your reservation at %s, room %s", s.property, room.Number)
	if _, err := s.mail.Send(guest.Email, guest.FullName(), subject, c.Text, c.HTML); err != nil {
		logger.ErrorContext(ctx, "Failed to send confirmation email", "error", err, "reservation_id", res.ID)
	}

	s.publish(ctx, events.NotifySend, events.NotificationEvent{
		Type:      "reservation_confirmation",
		Recipient: guest.Email,
		Subject:   subject,
		Template:  "reservation_card",
		Data: map[string]interface{}{
			"reservation_id": res.ID,
			"room_number":    room.Number,
			"check_in":       res.CheckIn.String(),
			"check_out":      res.CheckOut.String(),
		},
	})
}
