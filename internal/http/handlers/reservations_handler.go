package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/stayline-hotel/internal/booking"
	"github.com/diagnosis/stayline-hotel/internal/domain"
	"github.com/diagnosis/stayline-hotel/internal/http/response"
	"github.com/diagnosis/stayline-hotel/internal/service"
)

type ReservationsHandler struct {
	Svc service.ReservationService
}

func NewReservationsHandler(svc service.ReservationService) *ReservationsHandler {
	return &ReservationsHandler{Svc: svc}
}

// Routes returns the guest-facing reservation routes. Lifecycle routes
// (check-in, check-out, cancel) are mounted separately behind staff auth.
func (h *ReservationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/{id}", h.getByID)
	r.Get("/{id}/card", h.card)
	return r
}

func (h *ReservationsHandler) StaffRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/{id}/checkin", h.checkIn)
	r.Post("/{id}/checkout", h.checkOut)
	r.Post("/{id}/cancel", h.cancel)
	return r
}

type createReservationReq struct {
	RoomID string `json:"room_id"`
	Notes  string `json:"notes"`
	booking.Form
}

func (h *ReservationsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in createReservationReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.RoomID == "" {
		response.BadRequest(w, "room_id is required")
		return
	}

	res, err := h.Svc.Confirm(r.Context(), in.Form, in.RoomID, in.Notes, r.Header.Get("Idempotency-Key"))
	if err != nil {
		response.FromDomain(w, err)
		return
	}

	out := res.DTO()
	out.Credential = res.Credential
	writeJSON(w, http.StatusCreated, out)
}

func (h *ReservationsHandler) getByID(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.GetReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.DTO())
}

// card renders the digital reservation card. format=qr returns the raw QR
// PNG for clients that print or embed it themselves; the default is the
// full HTML card.
func (h *ReservationsHandler) card(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Card(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomain(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "qr":
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(c.QRPNG)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(c.Text))
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(c.HTML))
	}
}

func (h *ReservationsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid limit")
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid offset")
			return
		}
		offset = n
	}

	var status *domain.ReservationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseReservationStatus(raw)
		if !ok {
			response.BadRequest(w, "invalid status (allowed: reserved, checked_in, checked_out, cancelled)")
			return
		}
		status = &st
	}

	list, err := h.Svc.ListReservations(r.Context(), limit, offset, status)
	if err != nil {
		response.FromDomain(w, err)
		return
	}

	out := make([]domain.ReservationDTO, 0, len(list))
	for _, res := range list {
		out = append(out, res.DTO())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ReservationsHandler) checkIn(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.CheckIn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.DTO())
}

func (h *ReservationsHandler) checkOut(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.CheckOut(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.DTO())
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *ReservationsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var in cancelReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&in)
	}

	res, err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "id"), in.Reason)
	if err != nil {
		response.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.DTO())
}
