package reconcile_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/lock"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/rate"
	"github.com/avstrong/arisync/internal/reconcile"
	"github.com/avstrong/arisync/internal/storage/memory"
)

var (
	from = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
)

func day(d int) time.Time {
	return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC)
}

func rateDay(invType string, d int) rate.Day {
	//nolint:exhaustruct
	return rate.Day{
		HotelCode:       "H2",
		InvTypeCode:     invType,
		RatePlanCode:    "RO",
		StartDate:       day(d),
		CurrencyCode:    "EUR",
		BaseByGuestAmts: []rate.GuestAmount{{NumberOfGuests: 2, AmountBeforeTax: decimal.NewFromInt(80)}},
	}
}

func setup(t *testing.T) (*reconcile.Manager, *memory.DB) {
	t.Helper()

	l := logger.New(log.New(io.Discard, "", 0))
	db := memory.New(memory.Config{L: l})

	return reconcile.New(l, db, lock.NewMemory()), db
}

func sources(t *testing.T, db *memory.DB, invTypes ...string) map[string]int {
	t.Helper()

	counts := make(map[string]int)
	ctx := context.Background()

	for _, invType := range invTypes {
		rates, err := db.FindRates(ctx, "H2", invType, from, to)
		if err != nil {
			t.Fatal(err)
		}

		for _, r := range rates {
			counts[r.DataSource]++
		}

		days, err := db.FindInventory(ctx, "H2", invType, from, to)
		if err != nil {
			t.Fatal(err)
		}

		for _, d := range days {
			counts[d.DataSource]++
		}
	}

	return counts
}

func TestReconcileSwitchesSource(t *testing.T) {
	m, db := setup(t)
	ctx := context.Background()

	_, err := m.Reconcile(ctx, &reconcile.Input{
		HotelCode:  "H2",
		DataSource: "Wincloud",
		Rates:      []rate.Day{rateDay("STD", 1), rateDay("STD", 2), rateDay("FAM", 1)},
		Inventory:  []inventory.Day{inventory.NewDay("", "STD", day(1), 3), inventory.NewDay("", "FAM", day(2), 1)},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := m.Reconcile(ctx, &reconcile.Input{
		HotelCode:  "H2",
		DataSource: "QuotusPMS",
		Rates:      []rate.Day{rateDay("STD", 3)},
		Inventory:  []inventory.Day{inventory.NewDay("H2", "STD", day(3), 5)},
	})
	if err != nil {
		t.Fatal(err)
	}

	if !res.Replaced || res.PreviousSource != "Wincloud" || res.DeletedRates != 3 || res.DeletedInventory != 2 {
		t.Errorf("unexpected result %+v", res)
	}

	got := sources(t, db, "STD", "FAM")
	if got["Wincloud"] != 0 {
		t.Errorf("%d Wincloud row(s) left", got["Wincloud"])
	}

	if got["QuotusPMS"] != 2 || len(got) != 1 {
		t.Errorf("sources = %v, want 2 QuotusPMS rows only", got)
	}

	days, _ := db.FindInventory(ctx, "H2", "STD", day(3), day(3))
	if len(days) != 1 || days[0].Sold == nil || days[0].Blocked == nil || *days[0].Sold != 0 {
		t.Errorf("inventory counters not stamped: %+v", days)
	}

	rates, _ := db.FindRates(ctx, "H2", "STD", day(3), day(3))
	if len(rates) != 1 || rates[0].EndDate.Sub(rates[0].StartDate) != 24*time.Hour-time.Millisecond {
		t.Errorf("rate window not normalised: %+v", rates)
	}
}

func TestReconcileSameSourceKeepsRows(t *testing.T) {
	m, db := setup(t)
	ctx := context.Background()

	input := func(d int) *reconcile.Input {
		return &reconcile.Input{
			HotelCode:  "H2",
			DataSource: "Internal",
			Rates:      []rate.Day{rateDay("STD", d)},
			Inventory:  []inventory.Day{inventory.NewDay("H2", "STD", day(d), 2)},
		}
	}

	if _, err := m.Reconcile(ctx, input(1)); err != nil {
		t.Fatal(err)
	}

	res, err := m.Reconcile(ctx, input(2))
	if err != nil {
		t.Fatal(err)
	}

	if res.Replaced || res.DeletedRates != 0 {
		t.Errorf("same source must not wipe, got %+v", res)
	}

	if got := sources(t, db, "STD"); got["Internal"] != 4 {
		t.Errorf("sources = %v, want 4 Internal rows", got)
	}

	again, err := m.Reconcile(ctx, input(2))
	if err != nil {
		t.Fatal(err)
	}

	if again.Rates.Matched != 1 || again.Rates.Upserted != 0 {
		t.Errorf("redelivery rates = %+v, want one match", again.Rates)
	}
}

func TestReconcileSameSourceAfterIncrementalPush(t *testing.T) {
	m, db := setup(t)
	ctx := context.Background()

	feed := &reconcile.Input{
		HotelCode:  "H2",
		DataSource: "Wincloud",
		Rates:      []rate.Day{rateDay("STD", 1), rateDay("STD", 2)},
	}

	if _, err := m.Reconcile(ctx, feed); err != nil {
		t.Fatal(err)
	}

	// incremental pushes carry no data source
	push := []rate.Day{rateDay("STD", 1), rateDay("STD", 2)}
	for i := range push {
		push[i].Normalize()
		push[i].BaseByGuestAmts = []rate.GuestAmount{{NumberOfGuests: 2, AmountBeforeTax: decimal.NewFromInt(95)}}
	}

	if _, err := db.UpsertRates(ctx, push); err != nil {
		t.Fatal(err)
	}

	res, err := m.Reconcile(ctx, &reconcile.Input{
		HotelCode:  "H2",
		DataSource: "Wincloud",
		Rates:      []rate.Day{rateDay("STD", 3)},
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.Replaced || res.PreviousSource != "Wincloud" || res.DeletedRates != 0 {
		t.Errorf("same source feed wiped the hotel: %+v", res)
	}

	if got := sources(t, db, "STD"); got["Wincloud"] != 3 || len(got) != 1 {
		t.Errorf("sources = %v, want 3 Wincloud rows", got)
	}
}

func TestReconcileValidation(t *testing.T) {
	m, db := setup(t)

	foreign := rateDay("STD", 1)
	foreign.HotelCode = "H9"

	noTiers := rateDay("STD", 1)
	noTiers.BaseByGuestAmts = nil

	noGuests := rateDay("STD", 1)
	noGuests.BaseByGuestAmts = []rate.GuestAmount{{NumberOfGuests: 0, AmountBeforeTax: decimal.NewFromInt(80)}}

	negativeTier := rateDay("STD", 1)
	negativeTier.BaseByGuestAmts = []rate.GuestAmount{{NumberOfGuests: 2, AmountBeforeTax: decimal.NewFromInt(-80)}}

	negativeSurcharge := rateDay("STD", 1)
	negativeSurcharge.AdditionalGuestAmounts = []rate.AdditionalGuestAmount{{AgeQualifyingCode: rate.AgeAdult, Amount: decimal.NewFromInt(-5)}}

	unknownAge := rateDay("STD", 1)
	unknownAge.AdditionalGuestAmounts = []rate.AdditionalGuestAmount{{AgeQualifyingCode: "99", Amount: decimal.NewFromInt(5)}}

	tests := []struct {
		name  string
		input reconcile.Input
		field string
	}{
		{name: "missing hotel", input: reconcile.Input{DataSource: "X"}, field: "hotelCode"},
		{name: "missing source", input: reconcile.Input{HotelCode: "H2"}, field: "dataSource"},
		{name: "foreign rate", input: reconcile.Input{HotelCode: "H2", DataSource: "X", Rates: []rate.Day{foreign}}, field: "rates"},
		{name: "no tiers", input: reconcile.Input{HotelCode: "H2", DataSource: "X", Rates: []rate.Day{noTiers}}, field: "rates"},
		{name: "tier without guests", input: reconcile.Input{HotelCode: "H2", DataSource: "X", Rates: []rate.Day{noGuests}}, field: "rates"},
		{name: "negative tier", input: reconcile.Input{HotelCode: "H2", DataSource: "X", Rates: []rate.Day{negativeTier}}, field: "rates"},
		{name: "negative surcharge", input: reconcile.Input{HotelCode: "H2", DataSource: "X", Rates: []rate.Day{negativeSurcharge}}, field: "rates"},
		{name: "unknown age code", input: reconcile.Input{HotelCode: "H2", DataSource: "X", Rates: []rate.Day{unknownAge}}, field: "rates"},
		{
			name:  "negative count",
			input: reconcile.Input{HotelCode: "H2", DataSource: "X", Inventory: []inventory.Day{inventory.NewDay("H2", "STD", day(1), -1)}},
			field: "inventory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Reconcile(context.Background(), &tt.input)

			inputErr := reconcile.IsInputError(err)
			if inputErr == nil {
				t.Fatalf("err = %v, want InputError", err)
			}

			if _, ok := inputErr.Fields()[tt.field]; !ok {
				t.Errorf("fields = %v, want %s", inputErr.Fields(), tt.field)
			}
		})
	}

	if inv, rates := db.Counts(); inv != 0 || rates != 0 {
		t.Errorf("rejected feeds stored %d/%d row(s)", inv, rates)
	}
}

func TestReconcileLocked(t *testing.T) {
	l := logger.New(log.New(io.Discard, "", 0))
	locks := lock.NewMemory()
	m := reconcile.New(l, memory.New(memory.Config{L: l}), locks)
	ctx := context.Background()

	release, err := locks.Acquire(ctx, "hotel:H2")
	if err != nil {
		t.Fatal(err)
	}
	defer release(ctx) //nolint:errcheck

	_, err = m.Reconcile(ctx, &reconcile.Input{HotelCode: "H2", DataSource: "X"})
	if !errors.Is(err, reconcile.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}

type brokenStore struct {
	*memory.DB
}

func (brokenStore) DeleteRates(context.Context, string) (int64, error) {
	return 0, errors.New("primary stepped down")
}

func TestReconcileStoreFailure(t *testing.T) {
	l := logger.New(log.New(io.Discard, "", 0))
	m := reconcile.New(l, brokenStore{memory.New(memory.Config{L: l})}, lock.NewMemory())

	_, err := m.Reconcile(context.Background(), &reconcile.Input{HotelCode: "H2", DataSource: "X"})
	if !errors.Is(err, reconcile.ErrReplace) {
		t.Fatalf("err = %v, want ErrReplace", err)
	}
}
