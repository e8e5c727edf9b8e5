package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"agendalo/internal/auth"
	"agendalo/internal/db"
	"agendalo/internal/entities"
	"agendalo/internal/service"
)

type StaffHandler struct {
	Blocks *service.BlockService
	Auth   *service.AuthService
}

func NewStaffHandler(blocks *service.BlockService, authSvc *service.AuthService) *StaffHandler {
	return &StaffHandler{Blocks: blocks, Auth: authSvc}
}

func (h *StaffHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *StaffHandler) CreateBlockedSlot(w http.ResponseWriter, r *http.Request) {
	var req blockedSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	block, err := h.Blocks.Create(r.Context(), actor, req.MemberName, req.StartAt, req.EndAt, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBlockedSlotResponse(block))
}

func (h *StaffHandler) ListBlockedSlots(w http.ResponseWriter, r *http.Request) {
	var day *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		day = &parsed
	}
	actor, _ := auth.ActorFromContext(r.Context())
	blocks, err := h.Blocks.List(r.Context(), actor, day)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entities.BlockedSlotResponse, 0, len(blocks))
	for i := range blocks {
		out = append(out, toBlockedSlotResponse(&blocks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *StaffHandler) DeleteBlockedSlot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	if err := h.Blocks.Delete(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bloqueo eliminado"})
}

func toBlockedSlotResponse(b *db.BlockedSlot) entities.BlockedSlotResponse {
	return entities.BlockedSlotResponse{
		ID:         b.ID,
		MemberName: b.MemberName,
		StartAt:    b.StartAt,
		EndAt:      b.EndAt,
		Reason:     b.Reason,
	}
}
