package booking

import (
	"context"
	"time"

	"github.com/arenahq/courtledger/internal/store"
)

// SlotQuery asks for the per-hour slot table of one sport and date.
type SlotQuery struct {
	Sport    string
	Date     string
	CourtIDs []int64 // empty means every active court of the sport
	Duration int     // hours, defaults to 1

	// buffer minutes between now and the slot start when Date is the
	// facility-local today: 30 for new bookings, 120 for modification
	// targets.
	BufferMinutes int

	// ExcludeBookingID removes a booking from its own conflict set while
	// evaluating a modification target.
	ExcludeBookingID string
}

// ComputeSlots derives the bookable slot table from the catalog, the
// clock, and existing bookings. Read-only; the commit paths re-run the
// same checks inside their transactions rather than trusting a previously
// fetched table.
func (e *Engine) ComputeSlots(ctx context.Context, query SlotQuery) ([]Slot, error) {
	if query.Duration == 0 {
		query.Duration = 1
	}
	if query.BufferMinutes == 0 {
		query.BufferMinutes = e.cfg.CreateBufferMinutes
	}
	courtIDs, err := e.resolveCourts(query.Sport, query.CourtIDs)
	if err != nil {
		return nil, err
	}
	if _, err := e.clock.ParseDate(query.Date); err != nil {
		return nil, ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if query.Duration < 1 || query.Duration > 5 {
		return nil, ValidationError{Field: "duration", Reason: "must be 1-5 hours"}
	}

	occupied, err := e.occupancyForDate(ctx, e.db.Queries, query.Date, query.ExcludeBookingID)
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, e.catalog.ClosingHour-e.catalog.OpeningHour)
	for hour := e.catalog.OpeningHour; hour < e.catalog.ClosingHour; hour++ {
		slot := Slot{
			StartHour: hour,
			Legal:     e.slotLegal(query.Date, hour, query.Duration, query.BufferMinutes),
		}
		if slot.Legal {
			slot.FreeCourts = occupied.freeCourts(courtIDs, hour, query.Duration)
			slot.FreeCount = len(slot.FreeCourts)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// slotLegal checks the closing-time fit and, for the facility-local
// today, the advance-notice buffer. Dates already past are never legal.
// All comparisons happen on (facility-zone date, minute-of-day); the date
// is never round-tripped through UTC.
func (e *Engine) slotLegal(date string, startHour, duration, bufferMinutes int) bool {
	if startHour < e.catalog.OpeningHour {
		return false
	}
	if startHour+duration > e.catalog.ClosingHour {
		return false
	}
	today := e.clock.Today()
	if date < today {
		return false
	}
	if date == today {
		return startHour*60 >= e.clock.MinuteOfDay()+bufferMinutes
	}
	return true
}

// resolveCourts validates the requested court ids against the catalog, or
// expands to the sport's full inventory when none were requested.
func (e *Engine) resolveCourts(sport string, courtIDs []int64) ([]int64, error) {
	if !e.catalog.HasSport(sport) {
		return nil, ValidationError{Field: "sport", Reason: "unknown sport"}
	}
	if len(courtIDs) == 0 {
		courts := e.catalog.Courts(sport)
		ids := make([]int64, len(courts))
		for i, court := range courts {
			ids[i] = court.ID
		}
		return ids, nil
	}

	seen := make(map[int64]struct{}, len(courtIDs))
	for _, id := range courtIDs {
		court, ok := e.catalog.Court(id)
		if !ok || !court.Active {
			return nil, ValidationError{Field: "court_ids", Reason: "unknown or inactive court"}
		}
		if court.Sport != sport {
			return nil, ValidationError{Field: "court_ids", Reason: "court does not belong to sport"}
		}
		if _, dup := seen[id]; dup {
			return nil, ValidationError{Field: "court_ids", Reason: "duplicate court"}
		}
		seen[id] = struct{}{}
	}
	return courtIDs, nil
}

// occupancy maps court id to the hours its live bookings cover on one
// date.
type occupancy map[int64][]hourSpan

type hourSpan struct {
	start, end int // [start, end)
}

// occupancyForDate loads the date's slot-holding bookings through q so a
// transaction sees its own snapshot. excludeBookingID drops the booking
// being modified from the map.
func (e *Engine) occupancyForDate(ctx context.Context, q *store.Queries, date, excludeBookingID string) (occupancy, error) {
	rows, err := q.ListLiveBookingsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	occ := make(occupancy)
	for _, row := range rows {
		if excludeBookingID != "" && row.GroupID == excludeBookingID {
			continue
		}
		occ[row.CourtID] = append(occ[row.CourtID], hourSpan{
			start: row.StartHour,
			end:   row.StartHour + row.DurationHours,
		})
	}
	return occ, nil
}

// free reports whether the court has no live booking overlapping
// [startHour, startHour+duration).
func (o occupancy) free(courtID int64, startHour, duration int) bool {
	for _, span := range o[courtID] {
		if startHour < span.end && startHour+duration > span.start {
			return false
		}
	}
	return true
}

// freeCourts filters courtIDs down to those free for the whole duration.
func (o occupancy) freeCourts(courtIDs []int64, startHour, duration int) []int64 {
	var free []int64
	for _, id := range courtIDs {
		if o.free(id, startHour, duration) {
			free = append(free, id)
		}
	}
	return free
}

// slotStart is a convenience over the facility clock.
func (e *Engine) slotStart(date string, startHour int) (time.Time, error) {
	return e.clock.SlotStart(date, startHour)
}
