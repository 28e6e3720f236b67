// Package credential encodes a reservation's identity into a scannable
// room-key token and validates scanned payloads back into reservation ids.
// Tokens are HS256 JWTs: structurally self-describing, so payloads from
// unrelated systems fail decoding before any store lookup happens.
package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/diagnosis/stayline-hotel/internal/domain"
)

// Audience marks tokens issued by this system.
const Audience = "stayline-room-key"

// Claims bind the reservation id to the token plus enough redundant fields
// to stay human-legible on a printed card.
type Claims struct {
	ReservationID string `json:"rid"`
	GuestName     string `json:"guest_name"`
	RoomNumber    string `json:"room_number"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	// grace extends validity past check-out so a late departure can still
	// scan out.
	grace time.Duration
	now   func() time.Time
}

type IssuerOption func(*Issuer)

// WithTimeFunc overrides the clock used for issuance and expiry checks,
// for tests exercising fixed reservation dates.
func WithTimeFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret string, grace time.Duration, opts ...IssuerOption) *Issuer {
	i := &Issuer{secret: []byte(secret), grace: grace, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue creates the credential for a confirmed reservation. Called once at
// confirmation time; the token is immutable thereafter.
func (i *Issuer) Issue(res *domain.Reservation, room *domain.Room, guest *domain.Guest) (string, error) {
	if res == nil || res.ID == "" {
		return "", fmt.Errorf("%w: reservation required", domain.ErrInvalidArgument)
	}

	now := i.now()
	claims := Claims{
		ReservationID: res.ID,
		GuestName:     guest.FullName(),
		RoomNumber:    room.Number,
		CheckIn:       res.CheckIn.String(),
		CheckOut:      res.CheckOut.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(res.CheckOut.Time().Add(i.grace)),
			Audience:  []string{Audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify structurally decodes a raw scanned payload and returns its claims.
// Any decode, signature or audience failure is ErrMalformedCredential; so is
// a missing reservation id. Resolving the reservation against the store is
// the caller's job; Verify touches no state.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithAudience(Audience), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedCredential, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("%w: unexpected claims", domain.ErrMalformedCredential)
	}
	if claims.ReservationID == "" {
		return nil, fmt.Errorf("%w: missing reservation id", domain.ErrMalformedCredential)
	}
	return claims, nil
}

// IsMalformed reports whether err denotes a payload this system never issued.
func IsMalformed(err error) bool {
	return errors.Is(err, domain.ErrMalformedCredential)
}
