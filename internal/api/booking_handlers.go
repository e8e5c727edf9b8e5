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

type BookingHandler struct {
	Booking      *service.BookingService
	Availability *service.AvailabilityService
	Catalog      service.CatalogStore
}

func NewBookingHandler(booking *service.BookingService, availability *service.AvailabilityService, catalog service.CatalogStore) *BookingHandler {
	return &BookingHandler{Booking: booking, Availability: availability, Catalog: catalog}
}

func (h *BookingHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	services, err := h.Catalog.ListServices(r.Context(), actor.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	resp, err := h.Availability.ComputeSlots(r.Context(), actor.TenantID, req.ServiceID, req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	appt, err := h.Booking.Book(r.Context(), actor, service.BookRequest{
		ServiceID:  req.ServiceID,
		StartAt:    req.Start,
		MemberName: req.Resource,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt, nil))
}

func (h *BookingHandler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	appt, err := h.Booking.Confirm(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt, nil))
}

func (h *BookingHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	appt, offer, err := h.Booking.Cancel(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt, offer))
}

func (h *BookingHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	appt, err := h.Booking.MarkNoShow(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt, nil))
}

func (h *BookingHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	appt, err := h.Booking.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt, nil))
}

func (h *BookingHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	appts, err := h.Booking.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entities.AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i], nil))
	}
	writeJSON(w, http.StatusOK, out)
}

func toAppointmentResponse(a *db.Appointment, offer *db.WaitlistOffer) entities.AppointmentResponse {
	resp := entities.AppointmentResponse{
		ID:         a.ID,
		ServiceID:  a.ServiceID,
		ClientID:   a.ClientID,
		MemberName: a.MemberName,
		StartAt:    a.StartAt,
		EndAt:      a.EndAt,
		Status:     a.Status,
		Notes:      a.Notes,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if offer != nil {
		id := offer.ID
		resp.OfferID = &id
	}
	return resp
}
