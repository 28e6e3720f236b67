package domain

import "time"

type ReservationStatus string

const (
	ReservationReserved   ReservationStatus = "reserved"
	ReservationCheckedIn  ReservationStatus = "checked_in"
	ReservationCheckedOut ReservationStatus = "checked_out"
	ReservationCancelled  ReservationStatus = "cancelled"
)

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch ReservationStatus(s) {
	case ReservationReserved, ReservationCheckedIn, ReservationCheckedOut, ReservationCancelled:
		return ReservationStatus(s), true
	default:
		return "", false
	}
}

// Blocks reports whether a reservation in this state occupies its room's
// dates. Cancelled and checked-out stays release their nights.
func (s ReservationStatus) Blocks() bool {
	return s == ReservationReserved || s == ReservationCheckedIn
}

// Terminal states admit no further transitions.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationCheckedOut || s == ReservationCancelled
}

// transitions is the single authority on which lifecycle moves are legal.
// Cancellation from checked_in is deliberately absent: an early departure is
// handled as a check-out, not a cancellation.
var transitions = map[ReservationStatus][]ReservationStatus{
	ReservationReserved:  {ReservationCheckedIn, ReservationCancelled},
	ReservationCheckedIn: {ReservationCheckedOut},
}

// CanTransition reports whether moving from s to target is legal.
func (s ReservationStatus) CanTransition(target ReservationStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

const (
	MinGuests = 1
	MaxGuests = 20
)

type Reservation struct {
	ID        string            `json:"id"`
	RoomID    string            `json:"room_id"`
	GuestID   string            `json:"guest_id"`
	CheckIn   Date              `json:"check_in"`
	CheckOut  Date              `json:"check_out"` // exclusive
	NumGuests int               `json:"num_guests"`
	Notes     string            `json:"notes"`
	Status    ReservationStatus `json:"status"`
	// Credential is the issued room-key token, empty until confirmation.
	Credential string    `json:"credential,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Nights returns the length of stay. A stay of N nights spans N calendar
// days starting at check-in; the check-out day itself is not occupied.
func (r *Reservation) Nights() int {
	return r.CheckIn.DaysUntil(r.CheckOut)
}

// Covers reports whether day falls inside the half-open stay interval
// [CheckIn, CheckOut).
func (r *Reservation) Covers(day Date) bool {
	return !day.Before(r.CheckIn) && day.Before(r.CheckOut)
}

// Overlaps reports whether [checkIn, checkOut) intersects this stay.
func (r *Reservation) Overlaps(checkIn, checkOut Date) bool {
	return r.CheckIn.Before(checkOut) && checkIn.Before(r.CheckOut)
}

// BookingRequest is a validated booking form ready for confirmation.
type BookingRequest struct {
	RoomID    string `json:"room_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password,omitempty"`
	CheckIn   Date   `json:"check_in"`
	CheckOut  Date   `json:"check_out"`
	NumGuests int    `json:"num_guests"`
	Notes     string `json:"notes"`
}

// DTO converts a reservation to its list-view shape. The credential is
// stripped; creation and card responses attach it explicitly.
func (r *Reservation) DTO() ReservationDTO {
	return ReservationDTO{
		ID:        r.ID,
		RoomID:    r.RoomID,
		GuestID:   r.GuestID,
		CheckIn:   r.CheckIn,
		CheckOut:  r.CheckOut,
		NumGuests: r.NumGuests,
		Notes:     r.Notes,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

// ReservationDTO is the external shape returned to clients. The credential
// is included only on creation and card endpoints, never on list views.
type ReservationDTO struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	RoomNumber string    `json:"room_number,omitempty"`
	GuestID    string    `json:"guest_id"`
	GuestName  string    `json:"guest_name,omitempty"`
	CheckIn    Date      `json:"check_in"`
	CheckOut   Date      `json:"check_out"`
	NumGuests  int       `json:"num_guests"`
	Notes      string    `json:"notes,omitempty"`
	Status     string    `json:"status"`
	Credential string    `json:"credential,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
