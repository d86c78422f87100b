package mongodb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/rate"
)

func lookup(d bson.D, key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}

	return nil, false
}

func TestInventoryUpsertKeepsUnsetFields(t *testing.T) {
	day := inventory.NewDay("H1", "DLX", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 4)

	_, update := inventoryUpsert(&day)

	set, _ := lookup(update, "$set")
	for _, key := range []string{"status", "hotelName", "dataSource", "sold", "blocked"} {
		if _, ok := lookup(set.(bson.D), key); ok {
			t.Errorf("$set carries %s for an empty field", key)
		}
	}

	onInsert, ok := lookup(update, "$setOnInsert")
	if !ok {
		t.Fatal("missing $setOnInsert")
	}

	if status, _ := lookup(onInsert.(bson.D), "status"); status != "open" {
		t.Errorf("$setOnInsert status = %v, want open", status)
	}
}

func TestInventoryUpsertStampsFeedFields(t *testing.T) {
	sold, blocked := 3, 1
	day := inventory.NewDay("H2", "STD", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 7)
	day.DataSource = "QuotusPMS"
	day.Status = inventory.StatusClose
	day.Sold = &sold
	day.Blocked = &blocked

	filter, update := inventoryUpsert(&day)

	if v, _ := lookup(filter, "availability.startDate"); !v.(time.Time).Equal(day.Availability.StartDate) {
		t.Errorf("filter start = %v", v)
	}

	set, _ := lookup(update, "$set")
	want := map[string]any{"status": "close", "dataSource": "QuotusPMS", "sold": 3, "blocked": 1, "availability.count": 7}

	for key, value := range want {
		if got, _ := lookup(set.(bson.D), key); got != value {
			t.Errorf("$set %s = %v, want %v", key, got, value)
		}
	}

	if _, ok := lookup(update, "$setOnInsert"); ok {
		t.Error("$setOnInsert must be absent when status is given")
	}
}

func TestRateDocConversion(t *testing.T) {
	day := rate.Day{
		HotelCode:    "H1",
		InvTypeCode:  "DLX",
		RatePlanCode: "BB",
		StartDate:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 3, 2, 23, 59, 59, int(999*time.Millisecond), time.UTC),
		CurrencyCode: "EUR",
		BaseByGuestAmts: []rate.GuestAmount{
			{NumberOfGuests: 2, AmountBeforeTax: decimal.RequireFromString("1000.25")},
		},
		AdditionalGuestAmounts: []rate.AdditionalGuestAmount{
			{AgeQualifyingCode: rate.AgeChild, Amount: decimal.RequireFromString("150")},
		},
	}

	doc, err := newRateDoc(&day)
	if err != nil {
		t.Fatal(err)
	}

	back, err := doc.toDay()
	if err != nil {
		t.Fatal(err)
	}

	if !back.BaseByGuestAmts[0].AmountBeforeTax.Equal(day.BaseByGuestAmts[0].AmountBeforeTax) {
		t.Errorf("tier amount = %s, want 1000.25", back.BaseByGuestAmts[0].AmountBeforeTax)
	}

	if !back.AdditionalGuestAmounts[0].Amount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("surcharge = %s, want 150", back.AdditionalGuestAmounts[0].Amount)
	}

	filter, _ := rateUpsert(&doc)
	if len(filter) != 5 {
		t.Errorf("rate upsert filter has %d keys, want 5", len(filter))
	}
}
