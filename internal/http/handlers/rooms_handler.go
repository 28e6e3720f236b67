package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/stayline-hotel/internal/domain"
	"github.com/diagnosis/stayline-hotel/internal/http/response"
	"github.com/diagnosis/stayline-hotel/internal/service"
)

type RoomsHandler struct {
	Svc service.ReservationService
}

func NewRoomsHandler(svc service.ReservationService) *RoomsHandler {
	return &RoomsHandler{Svc: svc}
}

func (h *RoomsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/number/{number}", h.byNumber)
	r.Get("/{id}/availability", h.availability)
	r.Get("/{id}/reservations", h.reservations)
	return r
}

func (h *RoomsHandler) list(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Svc.ListRooms(r.Context())
	if err != nil {
		response.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// byNumber resolves a door number to its room, for front-desk lookups that
// start from what the guest says rather than an internal id.
func (h *RoomsHandler) byNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	room, err := h.Svc.RoomByNumber(r.Context(), number)
	if err != nil {
		response.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// availability returns the month grid. year and month default to the
// current month when absent so the booking page can load without params.
func (h *RoomsHandler) availability(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	now := time.Now()
	year := now.Year()
	month := now.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "invalid year")
			return
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			response.BadRequest(w, "invalid month")
			return
		}
		month = time.Month(n)
	}

	grid, err := h.Svc.Availability(r.Context(), roomID, year, month)
	if err != nil {
		response.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (h *RoomsHandler) reservations(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	list, err := h.Svc.RoomReservations(r.Context(), roomID)
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
