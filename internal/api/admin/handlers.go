// internal/api/admin/handlers.go
//
// Administrative approval events arrive from an external collaborator
// (back-office tooling); these handlers only drive the state machines.
package admin

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arenahq/courtledger/internal/api/apiutil"
	"github.com/arenahq/courtledger/internal/booking"
	ledgersvc "github.com/arenahq/courtledger/internal/ledger"
)

var (
	engine   *booking.Engine
	service  *ledgersvc.Service
	initOnce sync.Once
)

const adminQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *booking.Engine, s *ledgersvc.Service) {
	if e == nil || s == nil {
		return
	}
	initOnce.Do(func() {
		engine = e
		service = s
	})
}

type decisionRequest struct {
	Approved bool `json:"approved"`
}

// POST /api/v1/admin/payment-proofs/{bookingID}/decide
func HandlePaymentProofDecision(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
		return
	}

	bookingID := strings.TrimSpace(r.PathValue("bookingID"))
	if bookingID == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", "booking id is required")
		return
	}

	var req decisionRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	decided, err := engine.DecidePaymentProof(ctx, bookingID, req.Approved)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	logger.Info().
		Str("booking_id", decided.ID).
		Bool("approved", req.Approved).
		Str("status", decided.Status).
		Msg("Payment proof decided")
	if err := apiutil.WriteJSON(w, http.StatusOK, decided); err != nil {
		logger.Error().Err(err).Str("booking_id", bookingID).Msg("Failed to write decision response")
	}
}

// POST /api/v1/admin/purchases/{purchaseID}/decide
func HandlePurchaseDecision(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if service == nil {
		logger.Error().Msg("Ledger service not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
		return
	}

	purchaseID, err := apiutil.ParsePositiveInt64Field(r.PathValue("purchaseID"), "purchase id")
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	var req decisionRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	decided, err := service.DecidePurchase(ctx, purchaseID, req.Approved)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	logger.Info().
		Int64("purchase_id", decided.ID).
		Bool("approved", req.Approved).
		Str("status", decided.Status).
		Msg("Purchase request decided")
	if err := apiutil.WriteJSON(w, http.StatusOK, decided); err != nil {
		logger.Error().Err(err).Int64("purchase_id", purchaseID).Msg("Failed to write decision response")
	}
}
