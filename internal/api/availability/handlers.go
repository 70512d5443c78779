// internal/api/availability/handlers.go
package availability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arenahq/courtledger/internal/api/apiutil"
	"github.com/arenahq/courtledger/internal/booking"
)

var (
	engine     *booking.Engine
	engineOnce sync.Once
)

const availabilityQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *booking.Engine) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
	})
}

// GET /api/v1/availability?sport=...&date=...&court_ids=1,2&duration_hours=2
//
// Read-only: the slot table is advisory and re-derived at commit time, so
// a stale response can never cause a double-booking.
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if engine == nil {
		logger.Error().Msg("Booking engine not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
		return
	}

	query := r.URL.Query()
	sport := strings.TrimSpace(query.Get("sport"))
	date := strings.TrimSpace(query.Get("date"))
	if sport == "" || date == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "validation_error", "sport and date are required")
		return
	}

	courtIDs, err := apiutil.ParseCourtIDs(query.Get("court_ids"))
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	duration := 1
	if raw := strings.TrimSpace(query.Get("duration_hours")); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, "validation_error", "duration_hours must be an integer")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	slots, err := engine.ComputeSlots(ctx, booking.SlotQuery{
		Sport:    sport,
		Date:     date,
		CourtIDs: courtIDs,
		Duration: duration,
	})
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	payload := map[string]interface{}{
		"sport": sport,
		"date":  date,
		"slots": slots,
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, payload); err != nil {
		logger.Error().Err(err).Str("sport", sport).Str("date", date).Msg("Failed to write availability response")
	}
}
