// Package booking validates prospective booking forms before submission.
// The same rules run client-side (advisory) and server-side (authoritative);
// the service re-applies them on every confirmation request.
package booking

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/diagnosis/stayline-hotel/internal/domain"
	"github.com/diagnosis/stayline-hotel/internal/utils"
)

const (
	minNameLen = 2
	maxNameLen = 50

	minPhoneDigits = 10
	maxPhoneDigits = 15

	minPasswordLen = 6
	maxPasswordLen = 128
)

// local@domain.tld with an alphanumeric first character.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9][^\s@]*@[^\s@]+\.[^\s@]+$`)

// Form carries raw booking fields as submitted. Dates stay strings here
// because parseability is itself a validation rule.
type Form struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	NumGuests int    `json:"num_guests"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	// WantsAccount marks that self-service credentials are being collected,
	// making the password a required field.
	WantsAccount bool `json:"wants_account"`
}

// Validate applies every field rule plus the cross-field date-range rule.
// An empty result signals acceptance.
func Validate(f Form) domain.ValidationErrors {
	errs := domain.ValidationErrors{}

	if msg, ok := ValidateName(f.FirstName); !ok {
		errs["first_name"] = msg
	}
	if msg, ok := ValidateName(f.LastName); !ok {
		errs["last_name"] = msg
	}
	if msg, ok := ValidateEmail(f.Email); !ok {
		errs["email"] = msg
	}
	if msg, ok := ValidatePhone(f.Phone); !ok {
		errs["phone"] = msg
	}
	if f.WantsAccount || f.Password != "" {
		if msg, ok := ValidatePassword(f.Password); !ok {
			errs["password"] = msg
		}
	}
	if msg, ok := ValidateGuestCount(f.NumGuests); !ok {
		errs["num_guests"] = msg
	}

	for field, msg := range ValidateDates(f.CheckIn, f.CheckOut) {
		errs[field] = msg
	}

	return errs
}

// ValidateName checks one name field: 2..50 characters, starting with a
// letter from any alphabet, letters and spaces only.
func ValidateName(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "name is required", false
	}
	runes := []rune(trimmed)
	if len(runes) < minNameLen {
		return "name must be at least 2 characters", false
	}
	if len(runes) > maxNameLen {
		return "name must be at most 50 characters", false
	}
	if !unicode.IsLetter(runes[0]) {
		return "name must start with a letter", false
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) && r != ' ' {
			return "name may contain only letters and spaces", false
		}
	}
	return "", true
}

func ValidateEmail(email string) (string, bool) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "email is required", false
	}
	first, _ := utf8.DecodeRuneInString(trimmed)
	if !unicode.IsLetter(first) && !unicode.IsDigit(first) {
		return "email must start with a letter or digit", false
	}
	if !emailPattern.MatchString(trimmed) {
		return "email must look like name@example.com", false
	}
	return "", true
}

// ValidatePhone accepts digits, spaces, dashes, parentheses and a plus sign,
// and requires 10 to 15 digits once everything else is stripped.
func ValidatePhone(phone string) (string, bool) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "phone is required", false
	}
	digits := 0
	for _, r := range trimmed {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '+':
		default:
			return "phone may contain only digits, spaces, dashes, parentheses and +", false
		}
	}
	if digits < minPhoneDigits {
		return "phone must have at least 10 digits", false
	}
	if digits > maxPhoneDigits {
		return "phone must have at most 15 digits", false
	}
	return "", true
}

func ValidatePassword(password string) (string, bool) {
	n := len([]rune(password))
	if n < minPasswordLen {
		return "password must be at least 6 characters", false
	}
	if n > maxPasswordLen {
		return "password must be at most 128 characters", false
	}
	return "", true
}

func ValidateGuestCount(n int) (string, bool) {
	if n < domain.MinGuests {
		return "at least 1 guest is required", false
	}
	if n > domain.MaxGuests {
		return "at most 20 guests are allowed", false
	}
	return "", true
}

// ValidateDates checks both date fields and re-runs the cross-field rule.
// The range rule fires whenever either date changes, since narrowing
// check-in can invalidate a previously valid check-out.
func ValidateDates(checkIn, checkOut string) domain.ValidationErrors {
	errs := domain.ValidationErrors{}

	in, err := domain.ParseDate(strings.TrimSpace(checkIn))
	if err != nil {
		errs["check_in"] = "check-in must be a valid date (YYYY-MM-DD)"
	}
	out, err := domain.ParseDate(strings.TrimSpace(checkOut))
	if err != nil {
		errs["check_out"] = "check-out must be a valid date (YYYY-MM-DD)"
	}
	if len(errs) == 0 && !out.After(in) {
		errs["check_out"] = "check-out must be after check-in"
	}
	return errs
}

// ToRequest converts an accepted form into a booking request. Call only
// after Validate returned an empty map.
func ToRequest(f Form, roomID, notes string) domain.BookingRequest {
	checkIn, _ := domain.ParseDate(strings.TrimSpace(f.CheckIn))
	checkOut, _ := domain.ParseDate(strings.TrimSpace(f.CheckOut))
	return domain.BookingRequest{
		RoomID:    roomID,
		FirstName: utils.NormalizeString(f.FirstName),
		LastName:  utils.NormalizeString(f.LastName),
		Email:     utils.NormalizeEmail(f.Email),
		Phone:     utils.NormalizePhone(f.Phone),
		Password:  f.Password,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		NumGuests: f.NumGuests,
		Notes:     utils.NormalizeString(notes),
	}
}
