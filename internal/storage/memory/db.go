package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/rate"
)

type Config struct {
	L *logger.Logger
}

// DB keeps inventory and rate days in maps keyed the same way the document stores index them.
type DB struct {
	mu        sync.Mutex
	l         *logger.Logger
	inventory map[string]inventory.Day
	rates     map[string]rate.Day
}

func New(conf Config) *DB {
	//nolint:exhaustruct
	return &DB{
		l:         conf.L,
		inventory: make(map[string]inventory.Day),
		rates:     make(map[string]rate.Day),
	}
}

func inventoryKey(hotelCode, invTypeCode string, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s", hotelCode, invTypeCode, calendar.Day(date).Format(time.RFC3339))
}

func rateKey(d *rate.Day) string {
	return fmt.Sprintf(
		"%s_%s_%s_%s_%s",
		d.HotelCode, d.InvTypeCode, d.RatePlanCode,
		d.StartDate.UTC().Format(time.RFC3339Nano), d.EndDate.UTC().Format(time.RFC3339Nano),
	)
}

func within(date, from, to time.Time) bool {
	return !date.Before(calendar.Day(from)) && !date.After(calendar.Day(to))
}

func cloneRate(d rate.Day) rate.Day {
	d.BaseByGuestAmts = append([]rate.GuestAmount(nil), d.BaseByGuestAmts...)
	d.AdditionalGuestAmounts = append([]rate.AdditionalGuestAmount(nil), d.AdditionalGuestAmounts...)

	return d
}

func (db *DB) FindInventory(_ context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]inventory.Day, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []inventory.Day

	for _, d := range db.inventory {
		if d.HotelCode != hotelCode || d.InvTypeCode != invTypeCode || !within(d.Availability.StartDate, from, to) {
			continue
		}

		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Availability.StartDate.Before(result[j].Availability.StartDate)
	})

	return result, nil
}

func (db *DB) setStatus(change inventory.StatusChange) inventory.BulkResult {
	key := inventoryKey(change.HotelCode, change.InvTypeCode, change.Date)

	day, ok := db.inventory[key]
	if !ok {
		return inventory.BulkResult{}
	}

	if day.Status == change.Status {
		return inventory.BulkResult{Matched: 1, Modified: 0, Upserted: 0}
	}

	day.Status = change.Status
	db.inventory[key] = day

	return inventory.BulkResult{Matched: 1, Modified: 1, Upserted: 0}
}

func (db *DB) BulkSetInventoryStatus(_ context.Context, changes []inventory.StatusChange) (inventory.BulkResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var total inventory.BulkResult

	for _, change := range changes {
		res := db.setStatus(change)
		total.Matched += res.Matched
		total.Modified += res.Modified
	}

	return total, nil
}

func (db *DB) SetInventoryStatus(_ context.Context, change inventory.StatusChange) (inventory.BulkResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.setStatus(change), nil
}

func (db *DB) UpsertInventory(_ context.Context, days []inventory.Day) (inventory.BulkResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var total inventory.BulkResult

	for _, day := range days {
		day.Normalize()
		key := inventoryKey(day.HotelCode, day.InvTypeCode, day.Availability.StartDate)

		existing, ok := db.inventory[key]
		if !ok {
			if day.Status == "" {
				day.Status = inventory.StatusOpen
			}

			db.inventory[key] = day
			total.Upserted++

			continue
		}

		if day.Status == "" {
			day.Status = existing.Status
		}

		if day.Sold == nil {
			day.Sold = existing.Sold
		}

		if day.Blocked == nil {
			day.Blocked = existing.Blocked
		}

		if day.HotelName == "" {
			day.HotelName = existing.HotelName
		}

		if day.DataSource == "" {
			day.DataSource = existing.DataSource
		}

		total.Matched++
		db.inventory[key] = day
	}

	return total, nil
}

func (db *DB) DeleteInventory(_ context.Context, hotelCode string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var deleted int64

	for key, d := range db.inventory {
		if d.HotelCode == hotelCode {
			delete(db.inventory, key)
			deleted++
		}
	}

	return deleted, nil
}

func (db *DB) FindRates(_ context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]rate.Day, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []rate.Day

	for _, d := range db.rates {
		if d.HotelCode != hotelCode || d.InvTypeCode != invTypeCode || !within(calendar.Day(d.StartDate), from, to) {
			continue
		}

		result = append(result, cloneRate(d))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.Before(result[j].StartDate)
		}

		return result[i].RatePlanCode < result[j].RatePlanCode
	})

	return result, nil
}

func (db *DB) UpsertRates(_ context.Context, days []rate.Day) (rate.WriteResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var total rate.WriteResult

	for _, day := range days {
		key := rateKey(&day)

		existing, ok := db.rates[key]
		if !ok {
			total.Upserted++
			db.rates[key] = cloneRate(day)

			continue
		}

		if day.HotelName == "" {
			day.HotelName = existing.HotelName
		}

		if day.DataSource == "" {
			day.DataSource = existing.DataSource
		}

		total.Matched++

		db.rates[key] = cloneRate(day)
	}

	return total, nil
}

func (db *DB) DeleteRates(_ context.Context, hotelCode string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var deleted int64

	for key, d := range db.rates {
		if d.HotelCode == hotelCode {
			delete(db.rates, key)
			deleted++
		}
	}

	return deleted, nil
}

// DataSource returns the first recorded data source of a hotel, rates first.
func (db *DB) DataSource(_ context.Context, hotelCode string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, d := range db.rates {
		if d.HotelCode == hotelCode && d.DataSource != "" {
			return d.DataSource, nil
		}
	}

	for _, d := range db.inventory {
		if d.HotelCode == hotelCode && d.DataSource != "" {
			return d.DataSource, nil
		}
	}

	return "", nil
}

// Counts reports the number of stored inventory and rate days.
func (db *DB) Counts() (int, int) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.inventory), len(db.rates)
}
