// Package reconcile applies full availability and rate feeds, one active data source per hotel.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/lock"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/rate"
)

type storage interface {
	DataSource(ctx context.Context, hotelCode string) (string, error)
	DeleteRates(ctx context.Context, hotelCode string) (int64, error)
	DeleteInventory(ctx context.Context, hotelCode string) (int64, error)
	UpsertRates(ctx context.Context, days []rate.Day) (rate.WriteResult, error)
	UpsertInventory(ctx context.Context, days []inventory.Day) (inventory.BulkResult, error)
}

type locker interface {
	Acquire(ctx context.Context, key string) (lock.Release, error)
}

type Manager struct {
	l       *logger.Logger
	storage storage
	locker  locker
}

func New(l *logger.Logger, storage storage, locker locker) *Manager {
	return &Manager{
		l:       l.With("reconcile"),
		storage: storage,
		locker:  locker,
	}
}

type Input struct {
	HotelCode  string          `json:"hotelCode"`
	DataSource string          `json:"dataSource"`
	Rates      []rate.Day      `json:"rates"`
	Inventory  []inventory.Day `json:"inventory"`
}

type Result struct {
	HotelCode        string               `json:"hotelCode"`
	DataSource       string               `json:"dataSource"`
	PreviousSource   string               `json:"previousSource,omitempty"`
	Replaced         bool                 `json:"replaced"`
	DeletedRates     int64                `json:"deletedRates"`
	DeletedInventory int64                `json:"deletedInventory"`
	Rates            rate.WriteResult     `json:"rates"`
	Inventory        inventory.BulkResult `json:"inventory"`
}

// prepare validates the feed and stamps every row with the hotel and its source.
func prepare(input *Input) ([]rate.Day, []inventory.Day, error) {
	inputErr := newInputError()

	hotelCode := strings.TrimSpace(input.HotelCode)
	if hotelCode == "" {
		inputErr.addError("hotelCode", "provide hotelCode")
	}

	source := strings.TrimSpace(input.DataSource)
	if source == "" {
		inputErr.addError("dataSource", "provide dataSource")
	}

	rates := make([]rate.Day, 0, len(input.Rates))

	for idx, r := range input.Rates {
		if r.HotelCode != "" && r.HotelCode != hotelCode {
			inputErr.addError("rates", fmt.Sprintf("rates[%d] belongs to hotel %s", idx, r.HotelCode))
		}

		if r.InvTypeCode == "" || r.RatePlanCode == "" {
			inputErr.addError("rates", fmt.Sprintf("rates[%d] needs invTypeCode and ratePlanCode", idx))
		}

		if r.StartDate.IsZero() {
			inputErr.addError("rates", fmt.Sprintf("rates[%d] needs startDate", idx))
		}

		if r.CurrencyCode == "" {
			inputErr.addError("rates", fmt.Sprintf("rates[%d] needs currencyCode", idx))
		}

		if err := r.CheckPricing(); err != nil {
			inputErr.addError("rates", fmt.Sprintf("rates[%d]: %s", idx, err))
		}

		r.HotelCode = hotelCode
		r.DataSource = source
		r.Normalize()
		rates = append(rates, r)
	}

	days := make([]inventory.Day, 0, len(input.Inventory))

	for idx, d := range input.Inventory {
		if d.HotelCode != "" && d.HotelCode != hotelCode {
			inputErr.addError("inventory", fmt.Sprintf("inventory[%d] belongs to hotel %s", idx, d.HotelCode))
		}

		if d.InvTypeCode == "" {
			inputErr.addError("inventory", fmt.Sprintf("inventory[%d] needs invTypeCode", idx))
		}

		if d.Availability.StartDate.IsZero() {
			inputErr.addError("inventory", fmt.Sprintf("inventory[%d] needs availability.startDate", idx))
		}

		if d.Availability.Count < 0 {
			inputErr.addError("inventory", fmt.Sprintf("inventory[%d] count must not be negative", idx))
		}

		if d.Status != "" && !d.Status.Valid() {
			inputErr.addError("inventory", fmt.Sprintf("inventory[%d] status must be open or close", idx))
		}

		d.HotelCode = hotelCode
		d.DataSource = source
		d.Sold = counter(d.Sold)
		d.Blocked = counter(d.Blocked)
		d.Normalize()
		days = append(days, d)
	}

	if len(inputErr.fields) > 0 {
		return nil, nil, inputErr
	}

	input.HotelCode = hotelCode
	input.DataSource = source

	return rates, days, nil
}

func counter(v *int) *int {
	if v != nil {
		return v
	}

	zero := 0

	return &zero
}

// Reconcile applies a full feed for one hotel. When the hotel's recorded source differs from
// the feed's, or none is recorded, every stored rate and inventory day of the hotel is removed
// first so rows of two sources never coexist.
func (m *Manager) Reconcile(ctx context.Context, input *Input) (*Result, error) {
	rates, days, err := prepare(input)
	if err != nil {
		return nil, err
	}

	release, err := m.locker.Acquire(ctx, "hotel:"+input.HotelCode)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, fmt.Errorf("hotel %s: %w", input.HotelCode, ErrLocked)
		}

		return nil, fmt.Errorf("lock hotel %s: %w", input.HotelCode, err)
	}

	defer func() {
		// the request context may already be done
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second) //nolint:gomnd
		defer cancel()

		if err := release(releaseCtx); err != nil {
			m.l.LogErrorf("Failed to release lock of hotel %s: %v", input.HotelCode, err)
		}
	}()

	current, err := m.storage.DataSource(ctx, input.HotelCode)
	if err != nil {
		return nil, fmt.Errorf("%w: hotel %s: %w", ErrReplace, input.HotelCode, err)
	}

	//nolint:exhaustruct
	result := &Result{
		HotelCode:      input.HotelCode,
		DataSource:     input.DataSource,
		PreviousSource: current,
	}

	if current != input.DataSource {
		result.Replaced = true

		if result.DeletedRates, err = m.storage.DeleteRates(ctx, input.HotelCode); err != nil {
			return nil, fmt.Errorf("%w: hotel %s: %w", ErrReplace, input.HotelCode, err)
		}

		if result.DeletedInventory, err = m.storage.DeleteInventory(ctx, input.HotelCode); err != nil {
			return nil, fmt.Errorf("%w: hotel %s: %w", ErrReplace, input.HotelCode, err)
		}

		m.l.LogInfo(
			"Hotel %s switched source %q -> %q: removed %d rate and %d inventory day(s)",
			input.HotelCode, current, input.DataSource, result.DeletedRates, result.DeletedInventory,
		)
	}

	if len(rates) > 0 {
		if result.Rates, err = m.storage.UpsertRates(ctx, rates); err != nil {
			return nil, fmt.Errorf("%w: hotel %s rates: %w", ErrReplace, input.HotelCode, err)
		}
	}

	if len(days) > 0 {
		if result.Inventory, err = m.storage.UpsertInventory(ctx, days); err != nil {
			return nil, fmt.Errorf("%w: hotel %s inventory: %w", ErrReplace, input.HotelCode, err)
		}
	}

	m.l.LogInfo("Hotel %s feed from %s applied: %d rate and %d inventory day(s)",
		input.HotelCode, input.DataSource, len(rates), len(days))

	return result, nil
}
