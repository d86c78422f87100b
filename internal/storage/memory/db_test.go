package memory

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/rate"
)

func newDB() *DB {
	return New(Config{L: logger.New(log.New(io.Discard, "", 0))})
}

func date(day int) time.Time {
	return time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
}

func TestUpsertInventoryPreservesUnsetFields(t *testing.T) {
	db := newDB()
	ctx := context.Background()
	sold := 2

	first := inventory.NewDay("H1", "DLX", date(3), 5)
	first.Status = inventory.StatusClose
	first.Sold = &sold
	first.DataSource = "Internal"
	first.HotelName = "Harbour"

	res, _ := db.UpsertInventory(ctx, []inventory.Day{first})
	if res.Upserted != 1 {
		t.Errorf("first upsert = %+v", res)
	}

	// a time inside the day addresses the same row
	second := inventory.NewDay("H1", "DLX", date(3).Add(13*time.Hour), 8)

	res, _ = db.UpsertInventory(ctx, []inventory.Day{second})
	if res.Matched != 1 || res.Upserted != 0 {
		t.Errorf("second upsert = %+v", res)
	}

	days, _ := db.FindInventory(ctx, "H1", "DLX", date(1), date(9))
	if len(days) != 1 {
		t.Fatalf("got %d days", len(days))
	}

	d := days[0]
	if d.Availability.Count != 8 || d.Status != inventory.StatusClose || *d.Sold != 2 || d.DataSource != "Internal" || d.HotelName != "Harbour" {
		t.Errorf("merged day = %+v", d)
	}
}

func TestFindInventoryWindowIsInclusive(t *testing.T) {
	db := newDB()
	ctx := context.Background()

	var days []inventory.Day
	for day := 1; day <= 6; day++ {
		days = append(days, inventory.NewDay("H1", "DLX", date(day), day))
	}

	days = append(days, inventory.NewDay("H1", "STD", date(3), 1), inventory.NewDay("H2", "DLX", date(3), 1))

	if _, err := db.UpsertInventory(ctx, days); err != nil {
		t.Fatal(err)
	}

	found, _ := db.FindInventory(ctx, "H1", "DLX", date(2), date(4))
	if len(found) != 3 || found[0].Availability.Count != 2 || found[2].Availability.Count != 4 {
		t.Errorf("window = %+v", found)
	}
}

func TestStatusUpdatesDoNotInsert(t *testing.T) {
	db := newDB()
	ctx := context.Background()

	_, _ = db.UpsertInventory(ctx, []inventory.Day{inventory.NewDay("H1", "DLX", date(3), 1)})

	res, _ := db.BulkSetInventoryStatus(ctx, []inventory.StatusChange{
		{HotelCode: "H1", InvTypeCode: "DLX", Date: date(3), Status: inventory.StatusOpen},
		{HotelCode: "H1", InvTypeCode: "DLX", Date: date(4), Status: inventory.StatusClose},
	})

	if res.Matched != 1 || res.Modified != 0 || res.Upserted != 0 {
		t.Errorf("bulk = %+v, want matched 1 modified 0", res)
	}

	if inv, _ := db.Counts(); inv != 1 {
		t.Errorf("count = %d, want 1", inv)
	}
}

func TestRatesAndDataSource(t *testing.T) {
	db := newDB()
	ctx := context.Background()

	day := rate.Day{
		HotelCode:       "H2",
		InvTypeCode:     "STD",
		RatePlanCode:    "RO",
		StartDate:       date(3),
		EndDate:         date(3).Add(24*time.Hour - time.Millisecond),
		CurrencyCode:    "EUR",
		BaseByGuestAmts: []rate.GuestAmount{{NumberOfGuests: 2, AmountBeforeTax: decimal.NewFromInt(80)}},
		DataSource:      "Wincloud",
	}

	if source, _ := db.DataSource(ctx, "H2"); source != "" {
		t.Errorf("empty hotel source = %q", source)
	}

	res, _ := db.UpsertRates(ctx, []rate.Day{day, day})
	if res.Upserted != 1 || res.Matched != 1 {
		t.Errorf("rate upsert = %+v", res)
	}

	found, _ := db.FindRates(ctx, "H2", "STD", date(3), date(3))
	if len(found) != 1 {
		t.Fatalf("found %d rates", len(found))
	}

	found[0].BaseByGuestAmts[0].NumberOfGuests = 99

	again, _ := db.FindRates(ctx, "H2", "STD", date(3), date(3))
	if again[0].BaseByGuestAmts[0].NumberOfGuests != 2 {
		t.Error("FindRates leaked stored slices")
	}

	if source, _ := db.DataSource(ctx, "H2"); source != "Wincloud" {
		t.Errorf("source = %q, want Wincloud", source)
	}

	if n, _ := db.DeleteRates(ctx, "H2"); n != 1 {
		t.Errorf("deleted %d rates, want 1", n)
	}
}

func TestUpsertRatesKeepsSourceAndName(t *testing.T) {
	db := newDB()
	ctx := context.Background()

	day := rate.Day{
		HotelCode:       "H2",
		HotelName:       "Harbour",
		InvTypeCode:     "STD",
		RatePlanCode:    "RO",
		StartDate:       date(3),
		EndDate:         date(3).Add(24*time.Hour - time.Millisecond),
		CurrencyCode:    "EUR",
		BaseByGuestAmts: []rate.GuestAmount{{NumberOfGuests: 2, AmountBeforeTax: decimal.NewFromInt(80)}},
		DataSource:      "Wincloud",
	}

	_, _ = db.UpsertRates(ctx, []rate.Day{day})

	day.HotelName = ""
	day.DataSource = ""
	day.BaseByGuestAmts = []rate.GuestAmount{{NumberOfGuests: 2, AmountBeforeTax: decimal.NewFromInt(95)}}

	res, _ := db.UpsertRates(ctx, []rate.Day{day})
	if res.Matched != 1 || res.Upserted != 0 {
		t.Errorf("second upsert = %+v", res)
	}

	if source, _ := db.DataSource(ctx, "H2"); source != "Wincloud" {
		t.Errorf("source = %q, want Wincloud", source)
	}

	found, _ := db.FindRates(ctx, "H2", "STD", date(3), date(3))
	if len(found) != 1 || found[0].HotelName != "Harbour" || !found[0].BaseByGuestAmts[0].AmountBeforeTax.Equal(decimal.NewFromInt(95)) {
		t.Errorf("merged rate = %+v", found)
	}
}
