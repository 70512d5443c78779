package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arenahq/courtledger/internal/booking"
)

const (
	sweepJobName = "pending_booking_sweep"
	sweepCron    = "*/5 * * * *"
)

// RegisterPendingSweep registers the job that cancels pending bookings
// whose payment never arrived. The booking engine itself is strictly
// request-driven; this is the one timer in the system, and it only calls
// the same cancel transition any caller could.
func RegisterPendingSweep(engine *booking.Engine) error {
	if engine == nil {
		return fmt.Errorf("pending sweep requires booking engine")
	}

	jobLogger := log.With().
		Str("component", "pending_booking_sweep").
		Str("job_name", sweepJobName).
		Str("cron", sweepCron).
		Logger()

	_, err := AddJob(sweepJobName, sweepCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		expired, err := engine.ExpireStale(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Pending booking sweep failed")
			return
		}
		if expired > 0 {
			jobLogger.Info().Int("expired", expired).Msg("Expired stale pending bookings")
		}
	})
	if err != nil {
		return fmt.Errorf("registering pending sweep: %w", err)
	}
	return nil
}
