package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"agendalo/internal/auth"
)

// NewRouter mounts the HTTP surface. Everything except the staff login runs
// behind the bearer-token middleware; staff routes additionally require a
// staff role claim.
func NewRouter(booking *BookingHandler, waitlist *WaitlistHandler, staff *StaffHandler, jwtSecret string, log zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger(log))

	r.HandleFunc("/api/staff/login", staff.Login).Methods("POST")

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(auth.Middleware(jwtSecret))

	authed.HandleFunc("/services", booking.ListServices).Methods("GET")
	authed.HandleFunc("/availability", booking.CheckAvailability).Methods("POST")
	authed.HandleFunc("/appointments", booking.CreateAppointment).Methods("POST")
	authed.HandleFunc("/appointments", booking.ListAppointments).Methods("GET")
	authed.HandleFunc("/appointments/{id}", booking.GetAppointment).Methods("GET")
	authed.HandleFunc("/appointments/{id}/confirm", booking.ConfirmAppointment).Methods("POST")
	authed.HandleFunc("/appointments/{id}/cancel", booking.CancelAppointment).Methods("POST")

	authed.HandleFunc("/waitlists", waitlist.CreateWaitlist).Methods("POST")
	authed.HandleFunc("/waitlists", waitlist.ListWaitlists).Methods("GET")
	authed.HandleFunc("/waitlists/{id}/entries", waitlist.AddEntry).Methods("POST")
	authed.HandleFunc("/offers", waitlist.ListOffers).Methods("GET")
	authed.HandleFunc("/offers/{id}/accept", waitlist.AcceptOffer).Methods("POST")
	authed.HandleFunc("/offers/{id}/reject", waitlist.RejectOffer).Methods("POST")
	authed.HandleFunc("/offers/offer-from-cancel", waitlist.OfferFromCancel).Methods("POST")

	staffOnly := authed.PathPrefix("").Subrouter()
	staffOnly.Use(auth.RequireStaff)
	staffOnly.HandleFunc("/appointments/{id}/no-show", booking.MarkNoShow).Methods("POST")
	staffOnly.HandleFunc("/staff/blocked-slots", staff.CreateBlockedSlot).Methods("POST")
	staffOnly.HandleFunc("/staff/blocked-slots", staff.ListBlockedSlots).Methods("GET")
	staffOnly.HandleFunc("/staff/blocked-slots/{id}", staff.DeleteBlockedSlot).Methods("DELETE")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger emits one structured line per request.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(started)).
				Msg("request")
		})
	}
}
