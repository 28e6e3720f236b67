// Package availability derives per-day booking availability for one room and
// one calendar month from that room's reservation set. The computation is
// pure and advisory: the durable conflict guard lives in the reservation
// store's insert, not here.
package availability

import (
	"fmt"
	"time"

	"github.com/diagnosis/stayline-hotel/internal/domain"
)

// Day carries two independent flags. Booked means a reserved or checked-in
// stay covers the day. Past means the day is before today and cannot be
// newly selected; a past day may still belong to a historical reservation
// being viewed, so the flags are never conflated.
type Day struct {
	Booked bool `json:"booked"`
	Past   bool `json:"past"`
}

// Selectable reports whether the day can start or extend a new selection.
func (d Day) Selectable() bool {
	return !d.Booked && !d.Past
}

// Grid is the derived availability of one room for one month. It is
// recomputed on each query, never persisted.
type Grid struct {
	RoomID string      `json:"room_id"`
	Year   int         `json:"year"`
	Month  time.Month  `json:"month"`
	Days   map[int]Day `json:"days"`
}

// Day returns the flags for a day of month, zero value when out of range.
func (g *Grid) Day(day int) Day {
	return g.Days[day]
}

const (
	minYear = 1970
	maxYear = 2200
)

// Compute builds the grid for (roomID, year, month) as of today. A day is
// booked iff some reservation with a blocking status satisfies
// checkIn <= day < checkOut. Reservations for other rooms are ignored so
// callers may pass an unfiltered set.
func Compute(roomID string, year int, month time.Month, today domain.Date, reservations []domain.Reservation) (*Grid, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d out of range", domain.ErrInvalidArgument, month)
	}
	if year < minYear || year > maxYear {
		return nil, fmt.Errorf("%w: year %d out of range", domain.ErrInvalidArgument, year)
	}

	grid := &Grid{
		RoomID: roomID,
		Year:   year,
		Month:  month,
		Days:   make(map[int]Day, 31),
	}

	blocking := make([]domain.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.RoomID == roomID && r.Status.Blocks() {
			blocking = append(blocking, r)
		}
	}

	for day := 1; day <= domain.DaysInMonth(year, month); day++ {
		date := domain.NewDate(year, month, day)
		d := Day{Past: date.Before(today)}
		for i := range blocking {
			if blocking[i].Covers(date) {
				d.Booked = true
				break
			}
		}
		grid.Days[day] = d
	}

	return grid, nil
}

// RangeFree reports whether every night in [checkIn, checkOut) is free of
// blocking reservations. The check-out day itself is not occupied.
func RangeFree(roomID string, checkIn, checkOut domain.Date, reservations []domain.Reservation) bool {
	for _, r := range reservations {
		if r.RoomID != roomID || !r.Status.Blocks() {
			continue
		}
		if r.Overlaps(checkIn, checkOut) {
			return false
		}
	}
	return true
}
