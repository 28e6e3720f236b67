// Package selection turns calendar-day clicks into a validated
// {check-in, check-out} pair via a small interaction state machine. It is
// independent of how availability was computed; callers inject a
// selectability predicate, typically backed by an availability grid.
package selection

import (
	"github.com/diagnosis/stayline-hotel/internal/domain"
)

type State int

const (
	Empty State = iota
	CheckInChosen
	RangeChosen
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case CheckInChosen:
		return "check_in_chosen"
	case RangeChosen:
		return "range_chosen"
	default:
		return "unknown"
	}
}

// Selectable reports whether a day may start or extend a new selection.
// Days that are booked or in the past return false.
type Selectable func(domain.Date) bool

type Selector struct {
	selectable Selectable
	state      State
	checkIn    domain.Date
	checkOut   domain.Date
}

func New(selectable Selectable) *Selector {
	if selectable == nil {
		selectable = func(domain.Date) bool { return true }
	}
	return &Selector{selectable: selectable}
}

func (s *Selector) State() State { return s.state }

// Range returns the chosen pair; ok is true only in RangeChosen.
func (s *Selector) Range() (checkIn, checkOut domain.Date, ok bool) {
	return s.checkIn, s.checkOut, s.state == RangeChosen
}

// Click feeds one calendar-day click into the machine. Clicking an
// unavailable or past day is a no-op, not an error; the return value reports
// whether the selection changed.
func (s *Selector) Click(day domain.Date) bool {
	if !s.selectable(day) {
		return false
	}

	switch s.state {
	case Empty, RangeChosen:
		// Re-starting a selection discards any prior check-out.
		s.checkIn = day
		s.checkOut = domain.Date{}
		s.state = CheckInChosen
		return true
	case CheckInChosen:
		if day.After(s.checkIn) {
			s.checkOut = day
			s.state = RangeChosen
			return true
		}
		// A click on or before the current check-in starts over.
		s.checkIn = day
		s.checkOut = domain.Date{}
		return true
	default:
		return false
	}
}

// SetCheckIn applies a manual edit of the check-in field, bypassing the
// click machine. It returns the cross-field validation result; narrowing
// check-in can invalidate a previously valid check-out.
func (s *Selector) SetCheckIn(day domain.Date) domain.ValidationErrors {
	s.checkIn = day
	s.recompute()
	return s.CrossField()
}

// SetCheckOut applies a manual edit of the check-out field.
func (s *Selector) SetCheckOut(day domain.Date) domain.ValidationErrors {
	s.checkOut = day
	s.recompute()
	return s.CrossField()
}

// CrossField re-runs the date-range rule: check-out strictly after check-in.
func (s *Selector) CrossField() domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	if !s.checkIn.IsZero() && !s.checkOut.IsZero() && !s.checkOut.After(s.checkIn) {
		errs["check_out"] = "check-out must be after check-in"
	}
	return errs
}

// InRange reports whether day lies within the inclusive highlight span
// [check-in, check-out]. Rendering concern; selection logic never reads it.
func (s *Selector) InRange(day domain.Date) bool {
	if s.checkIn.IsZero() {
		return false
	}
	if s.checkOut.IsZero() {
		return day.Equal(s.checkIn)
	}
	return !day.Before(s.checkIn) && !day.After(s.checkOut)
}

func (s *Selector) Reset() {
	s.checkIn = domain.Date{}
	s.checkOut = domain.Date{}
	s.state = Empty
}

func (s *Selector) recompute() {
	switch {
	case s.checkIn.IsZero() && s.checkOut.IsZero():
		s.state = Empty
	case s.checkIn.IsZero() || s.checkOut.IsZero():
		s.state = CheckInChosen
	case s.checkOut.After(s.checkIn):
		s.state = RangeChosen
	default:
		s.state = CheckInChosen
	}
}
