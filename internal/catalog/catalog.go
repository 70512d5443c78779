// Package catalog holds the facility's static inventory: which courts
// exist per sport, when the facility is open, and what an hour costs.
// Nothing in the booking flow mutates it.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/arenahq/courtledger/internal/config"
	"github.com/arenahq/courtledger/internal/store"
)

// Court is one bookable court.
type Court struct {
	ID     int64
	Sport  string
	Label  string
	Active bool
}

// Catalog is the read-only inventory the engine consults.
type Catalog struct {
	OpeningHour int
	ClosingHour int

	rates  map[string]int64
	courts map[string][]Court
	byID   map[int64]Court
}

// Load builds the catalog from configuration and the seeded court rows.
// Court rows are reference data: they are read once here and never again.
func Load(ctx context.Context, q *store.Queries, cfg config.FacilityConfig) (*Catalog, error) {
	c := &Catalog{
		OpeningHour: cfg.OpeningHour,
		ClosingHour: cfg.ClosingHour,
		rates:       make(map[string]int64, len(cfg.Sports)),
		courts:      make(map[string][]Court, len(cfg.Sports)),
		byID:        make(map[int64]Court),
	}
	for sport, sc := range cfg.Sports {
		c.rates[sport] = sc.RatePerHour
	}

	rows, err := q.ListCourts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading courts: %w", err)
	}
	for _, row := range rows {
		if _, ok := c.rates[row.Sport]; !ok {
			return nil, fmt.Errorf("court %d has unconfigured sport %q", row.ID, row.Sport)
		}
		court := Court{ID: row.ID, Sport: row.Sport, Label: row.Label, Active: row.Active}
		c.byID[court.ID] = court
		if court.Active {
			c.courts[court.Sport] = append(c.courts[court.Sport], court)
		}
	}
	for sport := range c.rates {
		if len(c.courts[sport]) == 0 {
			return nil, fmt.Errorf("sport %q has no active courts", sport)
		}
		sort.Slice(c.courts[sport], func(i, j int) bool {
			return c.courts[sport][i].ID < c.courts[sport][j].ID
		})
	}
	return c, nil
}

// HasSport reports whether the sport is offered.
func (c *Catalog) HasSport(sport string) bool {
	_, ok := c.rates[sport]
	return ok
}

// RatePerHour returns the hourly rate in credits for one court.
func (c *Catalog) RatePerHour(sport string) int64 {
	return c.rates[sport]
}

// Courts returns the active courts for a sport, stable order.
func (c *Catalog) Courts(sport string) []Court {
	return c.courts[sport]
}

// Court looks up one court by id.
func (c *Catalog) Court(id int64) (Court, bool) {
	court, ok := c.byID[id]
	return court, ok
}

// Sports returns the offered sports in stable order.
func (c *Catalog) Sports() []string {
	names := make([]string, 0, len(c.rates))
	for sport := range c.rates {
		names = append(names, sport)
	}
	sort.Strings(names)
	return names
}

// MaxDuration returns the longest duration bookable at startHour, capped
// at 5 hours and by the closing hour.
func (c *Catalog) MaxDuration(startHour int) int {
	max := c.ClosingHour - startHour
	if max > 5 {
		max = 5
	}
	if max < 0 {
		max = 0
	}
	return max
}
