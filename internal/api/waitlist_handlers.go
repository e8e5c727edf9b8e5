package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"agendalo/internal/auth"
	"agendalo/internal/db"
	"agendalo/internal/entities"
	"agendalo/internal/service"
)

const defaultEntryPriority = 100

type WaitlistHandler struct {
	Service *service.WaitlistService
}

func NewWaitlistHandler(svc *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{Service: svc}
}

func (h *WaitlistHandler) CreateWaitlist(w http.ResponseWriter, r *http.Request) {
	var req waitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	waitlist, err := h.Service.CreateWaitlist(r.Context(), actor, req.ServiceID, req.DesiredDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, waitlist)
}

func (h *WaitlistHandler) ListWaitlists(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	waitlists, err := h.Service.ListWaitlists(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, waitlists)
}

func (h *WaitlistHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	waitlistID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	var req waitlistEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	priority := defaultEntryPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	actor, _ := auth.ActorFromContext(r.Context())
	entry, err := h.Service.AddEntry(r.Context(), actor, waitlistID, req.ClientID, priority)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *WaitlistHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	offers, err := h.Service.ListOffers(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entities.OfferResponse, 0, len(offers))
	for i := range offers {
		out = append(out, toOfferResponse(&offers[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *WaitlistHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	offer, err := h.Service.Accept(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferResponse(offer))
}

func (h *WaitlistHandler) RejectOffer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	offer, err := h.Service.Reject(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferResponse(offer))
}

// OfferFromCancel re-triggers the offer protocol for an already cancelled
// appointment, for when the automatic hook found no waiting entry at the time.
func (h *WaitlistHandler) OfferFromCancel(w http.ResponseWriter, r *http.Request) {
	var req offerFromCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	offer, err := h.Service.OfferFromCancel(r.Context(), actor.TenantID, req.AppointmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if offer == nil {
		writeJSON(w, http.StatusOK, map[string]any{"offer": nil, "message": "No hay clientes en espera."})
		return
	}
	writeJSON(w, http.StatusCreated, toOfferResponse(offer))
}

func toOfferResponse(o *db.WaitlistOffer) entities.OfferResponse {
	return entities.OfferResponse{
		ID:            o.ID,
		AppointmentID: o.AppointmentID,
		EntryID:       o.EntryID,
		ExpiresAt:     o.ExpiresAt,
		Status:        o.Status,
	}
}
