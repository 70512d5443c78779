package booking

import (
	"context"
	"testing"
	"time"
)

func slotByHour(t *testing.T, slots []Slot, hour int) Slot {
	t.Helper()
	for _, slot := range slots {
		if slot.StartHour == hour {
			return slot
		}
	}
	t.Fatalf("no slot for hour %d", hour)
	return Slot{}
}

func TestComputeSlots_ClosingTimeFit(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	slots, err := engine.ComputeSlots(context.Background(), SlotQuery{
		Sport:    "badminton",
		Date:     "2025-07-16",
		Duration: 2,
	})
	if err != nil {
		t.Fatalf("compute slots: %v", err)
	}

	// Open 08:00, close 22:00: table covers 08..21.
	if len(slots) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(slots))
	}
	if !slotByHour(t, slots, 20).Legal {
		t.Error("20:00 should fit a 2h booking before 22:00 close")
	}
	if slotByHour(t, slots, 21).Legal {
		t.Error("21:00 must not fit a 2h booking before 22:00 close")
	}
}

func TestComputeSlots_AdvanceBuffer(t *testing.T) {
	engine, clk, _ := newTestEngine(t)
	clk.Set(time.Date(2025, 7, 15, 10, 45, 0, 0, bangkok))

	slots, err := engine.ComputeSlots(context.Background(), SlotQuery{
		Sport: "badminton",
		Date:  "2025-07-15", // facility-local today
	})
	if err != nil {
		t.Fatalf("compute slots: %v", err)
	}

	// 10:45 + 30min buffer = 11:15, so 11:00 is inside the buffer.
	if slotByHour(t, slots, 11).Legal {
		t.Error("11:00 is inside the 30min advance buffer")
	}
	if !slotByHour(t, slots, 12).Legal {
		t.Error("12:00 is past the advance buffer and should be legal")
	}
}

func TestComputeSlots_NoSlotsNearClose(t *testing.T) {
	engine, clk, _ := newTestEngine(t)
	clk.Set(time.Date(2025, 7, 15, 21, 15, 0, 0, bangkok))

	slots, err := engine.ComputeSlots(context.Background(), SlotQuery{
		Sport: "badminton",
		Date:  "2025-07-15",
	})
	if err != nil {
		t.Fatalf("compute slots: %v", err)
	}

	// 21:15 + 30min = 21:45; even the last 1h slot (21:00) is gone.
	for _, slot := range slots {
		if slot.Legal {
			t.Errorf("hour %d should be illegal at 21:15", slot.StartHour)
		}
	}
}

func TestComputeSlots_OccupiedSpan(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 7, 100)
	mustCreate(t, engine, defaultCreate(7)) // court 1, 14:00-16:00

	slots, err := engine.ComputeSlots(context.Background(), SlotQuery{
		Sport: "badminton",
		Date:  "2025-07-16",
	})
	if err != nil {
		t.Fatalf("compute slots: %v", err)
	}

	// Four badminton courts, one taken for 14:00 and 15:00.
	for _, hour := range []int{14, 15} {
		slot := slotByHour(t, slots, hour)
		if slot.FreeCount != 3 {
			t.Errorf("hour %d: expected 3 free courts, got %d", hour, slot.FreeCount)
		}
		for _, id := range slot.FreeCourts {
			if id == 1 {
				t.Errorf("hour %d: court 1 should be occupied", hour)
			}
		}
	}
	if slot := slotByHour(t, slots, 16); slot.FreeCount != 4 {
		t.Errorf("16:00: expected all 4 courts free, got %d", slot.FreeCount)
	}
}

// A caller west of the facility must not shift the calendar day: at
// 18:00 UTC on July 15 it is already July 16 in Bangkok, so July 15 is a
// past date and July 16 is "today" with the buffer applied.
func TestComputeSlots_FacilityDayNotUTCDay(t *testing.T) {
	engine, clk, _ := newTestEngine(t)
	clk.Set(time.Date(2025, 7, 15, 18, 0, 0, 0, time.UTC)) // 2025-07-16 01:00 Bangkok

	yesterday, err := engine.ComputeSlots(context.Background(), SlotQuery{
		Sport: "badminton",
		Date:  "2025-07-15",
	})
	if err != nil {
		t.Fatalf("compute slots: %v", err)
	}
	for _, slot := range yesterday {
		if slot.Legal {
			t.Errorf("hour %d on a facility-past date should be illegal", slot.StartHour)
		}
	}

	today, err := engine.ComputeSlots(context.Background(), SlotQuery{
		Sport: "badminton",
		Date:  "2025-07-16",
	})
	if err != nil {
		t.Fatalf("compute slots: %v", err)
	}
	// 01:00 facility time plus 30min buffer leaves the whole day legal.
	if !slotByHour(t, today, 8).Legal {
		t.Error("08:00 on the facility-local today should be legal")
	}
}

func TestComputeSlots_UnknownSport(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.ComputeSlots(context.Background(), SlotQuery{
		Sport: "squash",
		Date:  "2025-07-16",
	})
	if _, ok := err.(ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
