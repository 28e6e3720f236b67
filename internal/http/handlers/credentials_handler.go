package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/stayline-hotel/internal/http/response"
	"github.com/diagnosis/stayline-hotel/internal/service"
)

type CredentialsHandler struct {
	Svc service.ReservationService
}

func NewCredentialsHandler(svc service.ReservationService) *CredentialsHandler {
	return &CredentialsHandler{Svc: svc}
}

func (h *CredentialsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/verify", h.verify)
	return r
}

type verifyReq struct {
	Credential string `json:"credential"`
}

// verify resolves a scanned room-key payload to its reservation so the
// front desk can apply the matching lifecycle action.
func (h *CredentialsHandler) verify(w http.ResponseWriter, r *http.Request) {
	var in verifyReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.Credential == "" {
		response.BadRequest(w, "credential is required")
		return
	}

	res, err := h.Svc.VerifyCredential(r.Context(), in.Credential)
	if err != nil {
		response.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.DTO())
}
