package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/stayline-hotel/internal/domain"
	imw "github.com/diagnosis/stayline-hotel/internal/http/middleware"
	"github.com/diagnosis/stayline-hotel/internal/http/response"
	"github.com/diagnosis/stayline-hotel/internal/platform/auth"
	"github.com/diagnosis/stayline-hotel/internal/repo/postgres"
	"github.com/diagnosis/stayline-hotel/internal/utils"
)

// AuthHandler signs in guests who opted into an account during booking.
// Staff tokens carry the "staff" role and are provisioned separately.
type AuthHandler struct {
	Guests       postgres.GuestsRepo
	Reservations postgres.ReservationsRepo
	Secret       string
	TokenTTL     time.Duration
}

func NewAuthHandler(guests postgres.GuestsRepo, reservations postgres.ReservationsRepo, secret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{Guests: guests, Reservations: reservations, Secret: secret, TokenTTL: ttl}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	return r
}

// MeRoutes are the signed-in guest's self-service routes. Mount behind
// RequireJWT.
func (h *AuthHandler) MeRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/reservations", h.myReservations)
	return r
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		response.BadRequest(w, "email and password are required")
		return
	}

	guest, err := h.Guests.GetByEmail(r.Context(), utils.NormalizeEmail(in.Email))
	if err != nil {
		response.InternalError(w, "login failed")
		return
	}
	if guest == nil || guest.PasswordHash == "" {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	ok, _ := auth.CheckPassword(in.Password, guest.PasswordHash)
	if !ok {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	access, err := auth.NewAccessToken(guest.ID, guest.Email, "guest", h.Secret, h.TokenTTL)
	if err != nil {
		response.InternalError(w, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": access,
		"guest": map[string]any{
			"id":    guest.ID,
			"email": guest.Email,
			"name":  guest.FullName(),
		},
	})
}

func (h *AuthHandler) myReservations(w http.ResponseWriter, r *http.Request) {
	claims := imw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "missing token")
		return
	}

	list, err := h.Reservations.ListByGuest(r.Context(), claims.Sub, 50, 0)
	if err != nil {
		response.InternalError(w, "failed to list reservations")
		return
	}

	out := make([]domain.ReservationDTO, 0, len(list))
	for _, res := range list {
		out = append(out, res.DTO())
	}
	writeJSON(w, http.StatusOK, out)
}
