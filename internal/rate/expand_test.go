package rate

import (
	"errors"
	"testing"
	"time"
)

func TestExpandPlan(t *testing.T) {
	start := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)

	//nolint:exhaustruct
	plan := &Plan{
		HotelCode:       "H1",
		InvTypeCode:     "DLX",
		RatePlanCode:    "BB",
		Start:           start,
		End:             start.AddDate(0, 0, 6),
		Days:            Days{"sat": false, "sun": false, "mon": true},
		CurrencyCode:    "EUR",
		BaseByGuestAmts: []GuestAmount{{2, amt(1000)}},
		DataSource:      "Internal",
	}

	days, err := ExpandPlan(plan)
	if err != nil {
		t.Fatal(err)
	}

	if len(days) != 5 {
		t.Fatalf("got %d days, want 5", len(days))
	}

	for i, d := range days {
		want := time.Date(2026, 3, 2+i, 0, 0, 0, 0, time.UTC)
		if !d.StartDate.Equal(want) {
			t.Errorf("day %d starts %s, want %s", i, d.StartDate, want)
		}

		if d.EndDate.Sub(d.StartDate) != 24*time.Hour-time.Millisecond {
			t.Errorf("day %d ends %s", i, d.EndDate)
		}

		if d.DataSource != "Internal" || d.RatePlanCode != "BB" {
			t.Errorf("day %d lost plan fields: %+v", i, d)
		}
	}

	plan.End = start.AddDate(0, 0, -1)
	if _, err = ExpandPlan(plan); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("inverted range err = %v", err)
	}
}
