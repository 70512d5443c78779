// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/arenahq/courtledger/internal/api"
	"github.com/arenahq/courtledger/internal/api/admin"
	"github.com/arenahq/courtledger/internal/api/availability"
	"github.com/arenahq/courtledger/internal/api/bookings"
	ledgerapi "github.com/arenahq/courtledger/internal/api/ledger"
	"github.com/arenahq/courtledger/internal/config"
)

func newServer(cfg *config.Config) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	// Register routes
	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability
	mux.HandleFunc("GET /api/v1/availability", availability.HandleAvailability)

	// Bookings
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleBookingCreate)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleBookingGet)
	mux.HandleFunc("POST /api/v1/bookings/{id}/modify", bookings.HandleBookingModify)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleBookingCancel)
	mux.HandleFunc("GET /api/v1/users/{id}/bookings", bookings.HandleUserBookingsList)

	// Ledger
	mux.HandleFunc("GET /api/v1/ledger/{userID}/balance", ledgerapi.HandleBalance)
	mux.HandleFunc("GET /api/v1/ledger/{userID}/entries", ledgerapi.HandleEntries)
	mux.HandleFunc("POST /api/v1/ledger/{userID}/spend", ledgerapi.HandleSpend)
	mux.HandleFunc("POST /api/v1/ledger/{userID}/earn", ledgerapi.HandleEarn)
	mux.HandleFunc("POST /api/v1/ledger/{userID}/refund", ledgerapi.HandleRefund)
	mux.HandleFunc("POST /api/v1/ledger/{userID}/purchases", ledgerapi.HandlePurchaseRequest)

	// Administrative approvals (external back-office collaborator)
	mux.HandleFunc("POST /api/v1/admin/payment-proofs/{bookingID}/decide", admin.HandlePaymentProofDecision)
	mux.HandleFunc("POST /api/v1/admin/purchases/{purchaseID}/decide", admin.HandlePurchaseDecision)
}
