// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/arenahq/courtledger/internal/api/apiutil"
	"github.com/arenahq/courtledger/internal/booking"
)

var (
	engine     *booking.Engine
	engineOnce sync.Once
	validate   = validator.New()
)

const bookingQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *booking.Engine) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
	})
}

func loadEngine(w http.ResponseWriter, r *http.Request) *booking.Engine {
	if engine == nil {
		log.Ctx(r.Context()).Error().Msg("Booking engine not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
		return nil
	}
	return engine
}

type createRequest struct {
	UserID        int64   `json:"user_id" validate:"required,gt=0"`
	Sport         string  `json:"sport" validate:"required"`
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartHour     int     `json:"start_hour" validate:"min=0,max=23"`
	DurationHours int     `json:"duration_hours" validate:"required,min=1,max=5"`
	CourtIDs      []int64 `json:"court_ids" validate:"required,min=1,dive,gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=credits bank_transfer"`
}

// POST /api/v1/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	created, err := e.Create(ctx, booking.CreateParams{
		UserID:        req.UserID,
		Sport:         req.Sport,
		Date:          req.Date,
		StartHour:     req.StartHour,
		DurationHours: req.DurationHours,
		CourtIDs:      req.CourtIDs,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	logger.Info().
		Str("booking_id", created.ID).
		Int64("user_id", created.UserID).
		Str("sport", created.Sport).
		Str("date", created.Date).
		Int("start_hour", created.StartHour).
		Msg("Booking created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Str("booking_id", created.ID).Msg("Failed to write booking response")
	}
}

// GET /api/v1/bookings/{id}
func HandleBookingGet(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	bookingID := strings.TrimSpace(r.PathValue("id"))
	if bookingID == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", "booking id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	b, err := e.Get(ctx, bookingID)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, b); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("booking_id", bookingID).Msg("Failed to write booking response")
	}
}

// GET /api/v1/users/{id}/bookings
func HandleUserBookingsList(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	userID, err := apiutil.ParsePositiveInt64Field(r.PathValue("id"), "user id")
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	list, err := e.ListForUser(ctx, userID)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, list); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("Failed to write bookings response")
	}
}

type modifyRequest struct {
	UserID        int64   `json:"user_id" validate:"required,gt=0"`
	Sport         *string `json:"sport,omitempty"`
	Date          *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartHour     *int    `json:"start_hour,omitempty" validate:"omitempty,min=0,max=23"`
	DurationHours *int    `json:"duration_hours,omitempty" validate:"omitempty,min=1,max=5"`
	CourtIDs      []int64 `json:"court_ids,omitempty" validate:"omitempty,min=1,dive,gt=0"`
}

// POST /api/v1/bookings/{id}/modify
func HandleBookingModify(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	bookingID := strings.TrimSpace(r.PathValue("id"))
	if bookingID == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", "booking id is required")
		return
	}

	var req modifyRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	modified, err := e.Modify(ctx, booking.ModifyParams{
		BookingID:     bookingID,
		UserID:        req.UserID,
		Sport:         req.Sport,
		Date:          req.Date,
		StartHour:     req.StartHour,
		DurationHours: req.DurationHours,
		CourtIDs:      req.CourtIDs,
	})
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	logger.Info().
		Str("booking_id", modified.ID).
		Int("modification_count", modified.ModificationCount).
		Int64("total_price", modified.TotalPrice).
		Msg("Booking modified")
	if err := apiutil.WriteJSON(w, http.StatusOK, modified); err != nil {
		logger.Error().Err(err).Str("booking_id", modified.ID).Msg("Failed to write booking response")
	}
}

type cancelRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// POST /api/v1/bookings/{id}/cancel
func HandleBookingCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	e := loadEngine(w, r)
	if e == nil {
		return
	}

	bookingID := strings.TrimSpace(r.PathValue("id"))
	if bookingID == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", "booking id is required")
		return
	}

	var req cancelRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	cancelled, err := e.Cancel(ctx, bookingID, req.UserID)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	logger.Info().
		Str("booking_id", cancelled.ID).
		Str("payment_status", cancelled.PaymentStatus).
		Msg("Booking cancelled")
	if err := apiutil.WriteJSON(w, http.StatusOK, cancelled); err != nil {
		logger.Error().Err(err).Str("booking_id", cancelled.ID).Msg("Failed to write booking response")
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fe.Field()
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
