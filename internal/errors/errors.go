package errors

import (
	"errors"
	"net/http"
)

// Kind is the stable tag callers use to translate a failure for the end user.
type Kind string

const (
	KindInvalidWindow             Kind = "invalid_window"
	KindResourceBusy              Kind = "resource_busy"
	KindResourceBlocked           Kind = "resource_blocked"
	KindResourceNotInPool         Kind = "resource_not_in_pool"
	KindNoAvailability            Kind = "no_availability"
	KindAlreadyConfirmedElsewhere Kind = "already_confirmed_elsewhere"
	KindNowBlocked                Kind = "now_blocked"
	KindIllegalTransition         Kind = "illegal_transition"
	KindOfferNotOpen              Kind = "offer_not_open"
	KindOfferExpired              Kind = "offer_expired"
	KindNotFound                  Kind = "not_found"
)

// Error is a non-fatal domain failure meant for direct user-facing translation.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// E builds a domain error with the given kind and message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the kind tag from err, or "" if err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Is makes errors.Is match two domain errors by kind.
func (e *Error) Is(target error) bool {
	var de *Error
	if errors.As(target, &de) {
		return e.Kind == de.Kind
	}
	return false
}

// HTTPStatus maps a kind to the status code the API surfaces.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidWindow, KindResourceNotInPool, KindIllegalTransition, KindOfferNotOpen, KindOfferExpired:
		return http.StatusBadRequest
	case KindResourceBusy, KindResourceBlocked, KindNoAvailability, KindAlreadyConfirmedElsewhere, KindNowBlocked:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
