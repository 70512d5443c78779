// internal/api/ledger/handlers.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/arenahq/courtledger/internal/api/apiutil"
	ledgersvc "github.com/arenahq/courtledger/internal/ledger"
)

var (
	service     *ledgersvc.Service
	serviceOnce sync.Once
	validate    = validator.New()
)

const ledgerQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *ledgersvc.Service) {
	if s == nil {
		return
	}
	serviceOnce.Do(func() {
		service = s
	})
}

func loadService(w http.ResponseWriter, r *http.Request) *ledgersvc.Service {
	if service == nil {
		log.Ctx(r.Context()).Error().Msg("Ledger service not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
		return nil
	}
	return service
}

type entryRequest struct {
	Account   string `json:"account" validate:"required,oneof=credits points"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"omitempty,oneof=earned spent purchased refunded bonus"`
	BookingID *int64 `json:"booking_id,omitempty" validate:"omitempty,gt=0"`
}

// POST /api/v1/ledger/{userID}/spend
func HandleSpend(w http.ResponseWriter, r *http.Request) {
	handleEntry(w, r, func(ctx context.Context, s *ledgersvc.Service, p ledgersvc.EntryParams) (interface{}, error) {
		return s.Spend(ctx, p)
	})
}

// POST /api/v1/ledger/{userID}/earn
func HandleEarn(w http.ResponseWriter, r *http.Request) {
	handleEntry(w, r, func(ctx context.Context, s *ledgersvc.Service, p ledgersvc.EntryParams) (interface{}, error) {
		return s.Earn(ctx, p)
	})
}

// POST /api/v1/ledger/{userID}/refund
func HandleRefund(w http.ResponseWriter, r *http.Request) {
	handleEntry(w, r, func(ctx context.Context, s *ledgersvc.Service, p ledgersvc.EntryParams) (interface{}, error) {
		return s.Refund(ctx, p)
	})
}

func handleEntry(w http.ResponseWriter, r *http.Request, op func(context.Context, *ledgersvc.Service, ledgersvc.EntryParams) (interface{}, error)) {
	logger := log.Ctx(r.Context())
	s := loadService(w, r)
	if s == nil {
		return
	}

	userID, err := apiutil.ParsePositiveInt64Field(r.PathValue("userID"), "user id")
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	var req entryRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	params := ledgersvc.EntryParams{
		UserID: userID,
		Kind:   req.Account,
		Amount: req.Amount,
		Reason: req.Reason,
	}
	if req.BookingID != nil {
		params.BookingID = sql.NullInt64{Int64: *req.BookingID, Valid: true}
	}

	ctx, cancel := context.WithTimeout(r.Context(), ledgerQueryTimeout)
	defer cancel()

	entry, err := op(ctx, s, params)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	logger.Info().
		Int64("user_id", userID).
		Str("account", req.Account).
		Int64("amount", req.Amount).
		Msg("Ledger entry appended")
	if err := apiutil.WriteJSON(w, http.StatusCreated, entry); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to write ledger response")
	}
}

// GET /api/v1/ledger/{userID}/balance
func HandleBalance(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	s := loadService(w, r)
	if s == nil {
		return
	}

	userID, err := apiutil.ParsePositiveInt64Field(r.PathValue("userID"), "user id")
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ledgerQueryTimeout)
	defer cancel()

	credits, err := s.Balance(ctx, userID, ledgersvc.KindCredits)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	points, err := s.Balance(ctx, userID, ledgersvc.KindPoints)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	payload := map[string]int64{
		"credits": credits,
		"points":  points,
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, payload); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to write balance response")
	}
}

type purchaseRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// POST /api/v1/ledger/{userID}/purchases
func HandlePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	s := loadService(w, r)
	if s == nil {
		return
	}

	userID, err := apiutil.ParsePositiveInt64Field(r.PathValue("userID"), "user id")
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	var req purchaseRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ledgerQueryTimeout)
	defer cancel()

	purchase, err := s.RequestPurchase(ctx, userID, req.Amount)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	logger.Info().
		Int64("user_id", userID).
		Int64("purchase_id", purchase.ID).
		Int64("amount", purchase.Amount).
		Msg("Credit purchase requested")
	if err := apiutil.WriteJSON(w, http.StatusCreated, purchase); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to write purchase response")
	}
}

// GET /api/v1/ledger/{userID}/entries?account=credits
func HandleEntries(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	s := loadService(w, r)
	if s == nil {
		return
	}

	userID, err := apiutil.ParsePositiveInt64Field(r.PathValue("userID"), "user id")
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	account := strings.TrimSpace(r.URL.Query().Get("account"))
	if account == "" {
		account = ledgersvc.KindCredits
	}

	ctx, cancel := context.WithTimeout(r.Context(), ledgerQueryTimeout)
	defer cancel()

	entries, err := s.Entries(ctx, userID, account)
	if err != nil {
		if errors.Is(err, ledgersvc.ErrUnknownKind) {
			apiutil.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		apiutil.WriteEngineError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, entries); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to write entries response")
	}
}
