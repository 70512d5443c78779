package booking

// NOTE: Tests share a facility catalog seeded by migrations: badminton on
// courts 1-4 at 12 credits/hour, pickleball on courts 5-6 at 15, open
// 08:00-22:00 Asia/Bangkok.

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/arenahq/courtledger/internal/catalog"
	"github.com/arenahq/courtledger/internal/clock"
	"github.com/arenahq/courtledger/internal/config"
	appdb "github.com/arenahq/courtledger/internal/db"
	"github.com/arenahq/courtledger/internal/ledger"
	"github.com/arenahq/courtledger/internal/testutil"
)

var bangkok = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		panic(err)
	}
	return loc
}()

// baseNow is the default test clock: mid-morning, well before closing.
var baseNow = time.Date(2025, 7, 15, 10, 0, 0, 0, bangkok)

func newTestEngine(t *testing.T) (*Engine, *testutil.Clock, *appdb.DB) {
	t.Helper()

	database := testutil.NewTestDB(t)
	clk := testutil.NewClock(baseNow)

	fclock, err := clock.NewFacility(clk, "Asia/Bangkok")
	if err != nil {
		t.Fatalf("facility clock: %v", err)
	}

	cfg := config.Default()
	inventory, err := catalog.Load(context.Background(), database.Queries, cfg.Facility)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	engine := NewEngine(database, inventory, fclock, cfg.Booking, cfg.Ledger.PointsPerHour)
	return engine, clk, database
}

func seedCredits(t *testing.T, database *appdb.DB, userID, amount int64) {
	t.Helper()

	err := database.RunInTx(context.Background(), func(txdb *appdb.DB) error {
		_, err := ledger.Credit(context.Background(), txdb.Queries, ledger.EntryParams{
			UserID: userID,
			Kind:   ledger.KindCredits,
			Amount: amount,
			Reason: ledger.ReasonPurchased,
			At:     baseNow,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed credits: %v", err)
	}
}

func creditsBalance(t *testing.T, database *appdb.DB, userID int64) int64 {
	t.Helper()
	return accountBalance(t, database, userID, ledger.KindCredits)
}

func pointsBalance(t *testing.T, database *appdb.DB, userID int64) int64 {
	t.Helper()
	return accountBalance(t, database, userID, ledger.KindPoints)
}

func accountBalance(t *testing.T, database *appdb.DB, userID int64, kind string) int64 {
	t.Helper()

	account, err := database.Queries.GetAccount(context.Background(), userID, kind)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0
		}
		t.Fatalf("get account: %v", err)
	}

	// The cached balance must always equal the fold over entries.
	folded, err := database.Queries.SumLedgerEntries(context.Background(), userID, kind)
	if err != nil {
		t.Fatalf("sum entries: %v", err)
	}
	if account.Balance != folded {
		t.Fatalf("balance %d does not match entry sum %d for user %d %s",
			account.Balance, folded, userID, kind)
	}
	return account.Balance
}

func mustCreate(t *testing.T, e *Engine, p CreateParams) *Booking {
	t.Helper()

	b, err := e.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func defaultCreate(userID int64) CreateParams {
	return CreateParams{
		UserID:        userID,
		Sport:         "badminton",
		Date:          "2025-07-16",
		StartHour:     14,
		DurationHours: 2,
		CourtIDs:      []int64{1},
		PaymentMethod: MethodCredits,
	}
}
