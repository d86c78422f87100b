package rate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/logger"
)

type storage interface {
	FindInventory(ctx context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]inventory.Day, error)
	FindRates(ctx context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]Day, error)
}

// Manager quotes stays. It only reads from storage and holds no mutable state.
type Manager struct {
	l       *logger.Logger
	storage storage
}

func New(l *logger.Logger, storage storage) *Manager {
	return &Manager{
		l:       l.With("rate"),
		storage: storage,
	}
}

func failed(format string, v ...any) Result {
	//nolint:exhaustruct
	return Result{Message: fmt.Sprintf(format, v...)}
}

func (r *Request) validate() (Result, bool) {
	switch {
	case strings.TrimSpace(r.HotelCode) == "":
		return failed("hotelCode is required"), false
	case strings.TrimSpace(r.InvTypeCode) == "":
		return failed("invTypeCode is required"), false
	case r.StartDate.IsZero() || r.EndDate.IsZero():
		return failed("startDate and endDate are required"), false
	case !calendar.Day(r.StartDate).Before(calendar.Day(r.EndDate)):
		return failed("startDate must be before endDate"), false
	case calendar.Nights(r.StartDate, r.EndDate) > calendar.MaxSpanDays:
		return failed("a stay must not exceed %d nights", calendar.MaxSpanDays), false
	case r.Adults < 1:
		return failed("adults must be at least 1"), false
	case r.Children < 0:
		return failed("children must not be negative"), false
	case r.Rooms < 1:
		return failed("rooms must be at least 1"), false
	}

	return Result{}, true
}

// minAvailable returns the lowest count over the window and false when no rows exist.
func minAvailable(days []inventory.Day) (int, bool) {
	if len(days) == 0 {
		return 0, false
	}

	lowest := days[0].Availability.Count
	for _, d := range days[1:] {
		lowest = min(lowest, d.Availability.Count)
	}

	return lowest, true
}

// currencies lists the distinct currencies of the rates that could price a night of the stay.
func currencies(rates []Day, dates []time.Time) []string {
	seen := make(map[string]bool)

	var codes []string

	for _, date := range dates {
		for i := range rates {
			if !calendar.Day(rates[i].StartDate).Equal(date) || !rates[i].Days.Applies(date) {
				continue
			}

			code := strings.ToUpper(strings.TrimSpace(rates[i].CurrencyCode))
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}

	sort.Strings(codes)

	return codes
}

type candidate struct {
	day    *Day
	charge Charge
}

// cheapest picks the lowest priced applicable rate for a night. Ties go to the
// lexically smallest rate plan code so the choice is stable.
func (m *Manager) cheapest(rates []Day, date time.Time, req *Request) (*candidate, bool) {
	var applicable []*Day

	for i := range rates {
		if !calendar.Day(rates[i].StartDate).Equal(date) || !rates[i].Days.Applies(date) {
			continue
		}

		applicable = append(applicable, &rates[i])
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].RatePlanCode < applicable[j].RatePlanCode
	})

	var best *candidate

	for _, day := range applicable {
		charge, err := Price(day, req.Adults, req.Children, req.Rooms)
		if err != nil {
			m.l.LogWarnf("Skipping unusable rate on %s: %v", calendar.Format(date), err)

			continue
		}

		if best == nil || charge.TotalPerRoom.LessThan(best.charge.TotalPerRoom) {
			best = &candidate{day: day, charge: charge}
		}
	}

	return best, best != nil
}

// Quote prices every night of the stay. Business failures come back as an unsuccessful
// Result; the error is reserved for storage failures.
func (m *Manager) Quote(ctx context.Context, req *Request) (Result, error) {
	if res, ok := req.validate(); !ok {
		return res, nil
	}

	start := calendar.Day(req.StartDate)
	end := calendar.Day(req.EndDate)
	nights := calendar.Nights(start, end)

	days, err := m.storage.FindInventory(ctx, req.HotelCode, req.InvTypeCode, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("find inventory for %s/%s: %w", req.HotelCode, req.InvTypeCode, err)
	}

	available, known := minAvailable(days)
	if known && available < req.Rooms {
		return failed(
			"only %d room(s) of %s available between %s and %s, %d requested",
			available, req.InvTypeCode, calendar.Format(start), calendar.Format(end), req.Rooms,
		), nil
	}

	rates, err := m.storage.FindRates(ctx, req.HotelCode, req.InvTypeCode, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("find rates for %s/%s: %w", req.HotelCode, req.InvTypeCode, err)
	}

	stay := calendar.StayDates(start, end)

	// amounts in different currencies cannot be compared or summed
	if codes := currencies(rates, stay); len(codes) > 1 {
		return failed(
			"rates for %s between %s and %s are priced in more than one currency: %s",
			req.InvTypeCode, calendar.Format(start), calendar.Format(end), strings.Join(codes, ", "),
		), nil
	}

	//nolint:exhaustruct
	quote := &Quote{
		HotelCode:      req.HotelCode,
		InvTypeCode:    req.InvTypeCode,
		StartDate:      calendar.Format(start),
		EndDate:        calendar.Format(end),
		NumberOfNights: nights,
		Adults:         req.Adults,
		Children:       req.Children,
		RequestedRooms: req.Rooms,
		TotalAmount:    decimal.Zero,
		Nightly:        make([]NightRate, 0, nights),
	}

	if known {
		quote.AvailableRooms = &available
	}

	for _, date := range stay {
		best, ok := m.cheapest(rates, date, req)
		if !ok {
			return failed(
				"no rate available for %s on %s (%s)",
				req.InvTypeCode, calendar.Format(date), calendar.Weekday(date),
			), nil
		}

		quote.Nightly = append(quote.Nightly, NightRate{
			Date:                  calendar.Format(date),
			DayOfWeek:             calendar.Weekday(date),
			RatePlanCode:          best.day.RatePlanCode,
			BaseRate:              best.charge.BaseRate,
			BaseGuestsIncluded:    best.charge.BaseGuestsIncluded,
			ExtraAdults:           best.charge.ExtraAdults,
			ExtraChildren:         best.charge.ExtraChildren,
			AdditionalAdultCharge: best.charge.AdditionalAdultCharge,
			AdditionalChildCharge: best.charge.AdditionalChildCharge,
			AdditionalCharges:     best.charge.AdditionalCharges(),
			TotalPerRoom:          best.charge.TotalPerRoom,
			TotalForAllRooms:      best.charge.TotalForAllRooms,
			CurrencyCode:          best.day.CurrencyCode,
		})

		quote.TotalAmount = quote.TotalAmount.Add(best.charge.TotalForAllRooms)

		if quote.CurrencyCode == "" {
			quote.CurrencyCode = best.day.CurrencyCode
		}
	}

	return Result{Success: true, Message: "", Quote: quote}, nil
}
