package migration_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/migration"
	"github.com/avstrong/arisync/internal/rate"
	"github.com/avstrong/arisync/internal/storage/memory"
)

func TestUpSeedsQuotableMonth(t *testing.T) {
	l := logger.New(log.New(io.Discard, "", 0))
	db := memory.New(memory.Config{L: l})
	ctx := context.Background()
	// Wednesday
	now := time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)

	for range 2 {
		if err := migration.Up(ctx, l, db, now); err != nil {
			t.Fatal(err)
		}
	}

	invCount, rateCount := db.Counts()
	if invCount != 30 {
		t.Errorf("inventory days = %d, want 30", invCount)
	}

	// 30 BAR days plus the Fridays and Saturdays of WKD.
	if rateCount != 30+8 {
		t.Errorf("rate days = %d, want 38", rateCount)
	}

	quotes := rate.New(l, db)

	res, err := quotes.Quote(ctx, &rate.Request{
		HotelCode:   migration.DemoHotel,
		InvTypeCode: migration.DemoRoomType,
		StartDate:   time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
		Adults:      2,
		Rooms:       1,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !res.Success || len(res.Quote.Nightly) != 2 {
		t.Fatalf("quote = %+v", res)
	}

	for _, night := range res.Quote.Nightly {
		if night.RatePlanCode != "WKD" {
			t.Errorf("%s priced with %s, want the cheaper WKD", night.Date, night.RatePlanCode)
		}
	}

	if *res.Quote.AvailableRooms != 5 {
		t.Errorf("AvailableRooms = %d, want 5", *res.Quote.AvailableRooms)
	}
}
