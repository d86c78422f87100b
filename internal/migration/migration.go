package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/rate"
)

const (
	DemoHotel      = "H1"
	DemoRoomType   = "DLX"
	DemoSource     = "Internal"
	demoDays       = 30
	demoRoomsCount = 5
)

type storage interface {
	UpsertInventory(ctx context.Context, days []inventory.Day) (inventory.BulkResult, error)
	UpsertRates(ctx context.Context, days []rate.Day) (rate.WriteResult, error)
}

func amount(value int64) decimal.Decimal {
	return decimal.NewFromInt(value)
}

func demoPlans(start, end time.Time) []*rate.Plan {
	tiers := []rate.GuestAmount{
		{NumberOfGuests: 1, AmountBeforeTax: amount(900)},
		{NumberOfGuests: 2, AmountBeforeTax: amount(1000)},
		{NumberOfGuests: 3, AmountBeforeTax: amount(1200)},
	}

	surcharges := []rate.AdditionalGuestAmount{
		{AgeQualifyingCode: rate.AgeAdult, Amount: amount(300)},
		{AgeQualifyingCode: rate.AgeChild, Amount: amount(150)},
	}

	//nolint:exhaustruct
	return []*rate.Plan{
		{
			HotelCode: DemoHotel, HotelName: "Demo Harbour Hotel", InvTypeCode: DemoRoomType, RatePlanCode: "BAR",
			Start: start, End: end, CurrencyCode: "EUR",
			BaseByGuestAmts: tiers, AdditionalGuestAmounts: surcharges, DataSource: DemoSource,
		},
		{
			HotelCode: DemoHotel, HotelName: "Demo Harbour Hotel", InvTypeCode: DemoRoomType, RatePlanCode: "WKD",
			Start: start, End: end, CurrencyCode: "EUR",
			Days: rate.Days{"mon": false, "tue": false, "wed": false, "thu": false, "fri": true, "sat": true, "sun": false},
			BaseByGuestAmts: []rate.GuestAmount{
				{NumberOfGuests: 2, AmountBeforeTax: amount(950)},
			},
			AdditionalGuestAmounts: surcharges,
			DataSource:             DemoSource,
		},
	}
}

// Up seeds the demo hotel with open inventory and expanded rate plans for the coming month.
// It upserts, so running it on every start is harmless.
func Up(ctx context.Context, l *logger.Logger, storage storage, now time.Time) error {
	start := calendar.Today(now)
	end := start.AddDate(0, 0, demoDays-1)

	days := make([]inventory.Day, 0, demoDays)

	for _, date := range calendar.Span(start, end) {
		day := inventory.NewDay(DemoHotel, DemoRoomType, date, demoRoomsCount)
		day.HotelName = "Demo Harbour Hotel"
		day.DataSource = DemoSource
		days = append(days, day)
	}

	invRes, err := storage.UpsertInventory(ctx, days)
	if err != nil {
		return fmt.Errorf("seed inventory: %w", err)
	}

	var rates []rate.Day

	for _, plan := range demoPlans(start, end) {
		expanded, err := rate.ExpandPlan(plan)
		if err != nil {
			return fmt.Errorf("expand plan %s: %w", plan.RatePlanCode, err)
		}

		rates = append(rates, expanded...)
	}

	rateRes, err := storage.UpsertRates(ctx, rates)
	if err != nil {
		return fmt.Errorf("seed rates: %w", err)
	}

	l.LogInfo(
		"Demo data for %s/%s from %s: %d inventory day(s) (%d new), %d rate day(s) (%d new)",
		DemoHotel, DemoRoomType, calendar.Format(start),
		len(days), invRes.Upserted, len(rates), rateRes.Upserted,
	)

	return nil
}
