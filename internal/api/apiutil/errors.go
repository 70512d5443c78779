package apiutil

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/arenahq/courtledger/internal/booking"
	"github.com/arenahq/courtledger/internal/ledger"
)

// WriteEngineError maps the engine's error taxonomy onto HTTP. Expected,
// user-recoverable outcomes (conflicts, insufficient funds) keep their
// own codes; anything unrecognized is logged and reported as internal.
func WriteEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr booking.ValidationError
	var fieldErr FieldError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &fieldErr),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrUnknownKind):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, booking.ErrSlotConflict):
		WriteError(w, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		WriteError(w, http.StatusConflict, "insufficient_funds", err.Error())
	case errors.Is(err, ledger.ErrPurchaseDecided):
		WriteError(w, http.StatusConflict, "purchase_already_decided", err.Error())
	case errors.Is(err, booking.ErrSlotIllegal):
		WriteError(w, http.StatusUnprocessableEntity, "slot_illegal", err.Error())
	case errors.Is(err, booking.ErrModificationLimit):
		WriteError(w, http.StatusUnprocessableEntity, "modification_limit_reached", err.Error())
	case errors.Is(err, booking.ErrTooCloseToStart):
		WriteError(w, http.StatusUnprocessableEntity, "too_close_to_start", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		WriteError(w, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, ledger.ErrPurchaseNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("Unhandled engine error")
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
	}
}
