// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/arenahq/courtledger/internal/api/admin"
	"github.com/arenahq/courtledger/internal/api/availability"
	"github.com/arenahq/courtledger/internal/api/bookings"
	ledgerapi "github.com/arenahq/courtledger/internal/api/ledger"
	"github.com/arenahq/courtledger/internal/booking"
	"github.com/arenahq/courtledger/internal/catalog"
	"github.com/arenahq/courtledger/internal/clock"
	"github.com/arenahq/courtledger/internal/config"
	"github.com/arenahq/courtledger/internal/db"
	"github.com/arenahq/courtledger/internal/ledger"
	"github.com/arenahq/courtledger/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	facilityClock, err := clock.NewFacility(clock.System(), cfg.Facility.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize facility clock")
	}

	ctx := context.Background()
	inventory, err := catalog.Load(ctx, database.Queries, cfg.Facility)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load court catalog")
	}

	engine := booking.NewEngine(database, inventory, facilityClock, cfg.Booking, cfg.Ledger.PointsPerHour)
	ledgerService := ledger.NewService(database, facilityClock)

	bookings.InitHandlers(engine)
	availability.InitHandlers(engine)
	ledgerapi.InitHandlers(ledgerService)
	admin.InitHandlers(engine, ledgerService)

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := scheduler.RegisterPendingSweep(engine); err != nil {
		log.Fatal().Err(err).Msg("Failed to register pending booking sweep")
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}()

	// Create server instance
	server := newServer(cfg)

	// Setup graceful shutdown
	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, signalCtx := errgroup.WithContext(signalCtx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-signalCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("No config file found, using defaults")
		return config.Default(), nil
	}
	return config.Load(path)
}
