package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/rate"
)

func TestRateArgsRoundTrip(t *testing.T) {
	day := rate.Day{
		HotelCode:    "H1",
		InvTypeCode:  "DLX",
		RatePlanCode: "RO",
		StartDate:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 3, 2, 23, 59, 59, int(999*time.Millisecond), time.UTC),
		Days:         rate.Days{"sat": false},
		CurrencyCode: "USD",
		BaseByGuestAmts: []rate.GuestAmount{
			{NumberOfGuests: 2, AmountBeforeTax: decimal.RequireFromString("99.90")},
		},
		DataSource: "Internal",
	}

	args, err := rateArgs(&day)
	if err != nil {
		t.Fatal(err)
	}

	if len(args) != 12 {
		t.Fatalf("got %d args, want 12", len(args))
	}

	if args[9] != "[]" || args[11] != "{}" {
		t.Errorf("empty json columns = %v / %v, want [] / {}", args[9], args[11])
	}

	row := rateRow{
		HotelCode:              day.HotelCode,
		InvTypeCode:            day.InvTypeCode,
		RatePlanCode:           day.RatePlanCode,
		StartDate:              day.StartDate,
		EndDate:                day.EndDate,
		Days:                   []byte(args[6].(string)),
		CurrencyCode:           day.CurrencyCode,
		BaseByGuestAmts:        []byte(args[8].(string)),
		AdditionalGuestAmounts: []byte(args[9].(string)),
		DataSource:             day.DataSource,
		Restrictions:           []byte(args[11].(string)),
	}

	back, err := row.toDay()
	if err != nil {
		t.Fatal(err)
	}

	if len(back.BaseByGuestAmts) != 1 || !back.BaseByGuestAmts[0].AmountBeforeTax.Equal(decimal.RequireFromString("99.9")) {
		t.Errorf("tiers = %+v", back.BaseByGuestAmts)
	}

	if back.Days.Applies(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)) {
		t.Error("saturday flag lost")
	}

	if len(back.AdditionalGuestAmounts) != 0 {
		t.Errorf("surcharges = %+v, want none", back.AdditionalGuestAmounts)
	}
}

func TestApplyEachKeepsSiblings(t *testing.T) {
	changes := []inventory.StatusChange{
		{HotelCode: "H1", InvTypeCode: "DLX", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Status: inventory.StatusClose},
		{HotelCode: "H1", InvTypeCode: "BAD", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Status: inventory.StatusClose},
		{HotelCode: "H1", InvTypeCode: "STD", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Status: inventory.StatusClose},
	}

	errConflict := errors.New("deadlock detected")

	var applied []string

	set := func(_ context.Context, change inventory.StatusChange) (inventory.BulkResult, error) {
		if change.InvTypeCode == "BAD" {
			return inventory.BulkResult{}, errConflict
		}

		applied = append(applied, change.InvTypeCode)

		return inventory.BulkResult{Matched: 1, Modified: 1, Upserted: 0}, nil
	}

	total, err := applyEach(context.Background(), changes, set)
	if !errors.Is(err, errConflict) {
		t.Errorf("err = %v, want the failing cell's error", err)
	}

	if total.Matched != 2 || total.Modified != 2 || len(applied) != 2 || applied[1] != "STD" {
		t.Errorf("total = %+v applied = %v, want both siblings applied", total, applied)
	}
}
