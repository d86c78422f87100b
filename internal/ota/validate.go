package ota

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/rate"
)

var digits = regexp.MustCompile(`^\d+$`)

// AvailabilityEntry is one validated Inventory element.
type AvailabilityEntry struct {
	InvTypeCode string
	Start       time.Time
	End         time.Time
	Count       int
}

// RateEntry is one validated Rate of a RateAmountMessage.
type RateEntry struct {
	InvTypeCode            string
	RatePlanCode           string
	Start                  time.Time
	End                    time.Time
	Days                   rate.Days
	CurrencyCode           string
	BaseByGuestAmts        []rate.GuestAmount
	AdditionalGuestAmounts []rate.AdditionalGuestAmount
}

func validateHeader(h *Header) *Fault {
	var missing []string

	for name, value := range map[string]string{
		"EchoToken": h.EchoToken,
		"TimeStamp": h.TimeStamp,
		"Target":    h.Target,
		"Version":   h.Version,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)

		return newFault(StructuralError, "missing root attribute(s): %s", strings.Join(missing, ", "))
	}

	if h.POS == nil || len(h.POS.Source) == 0 || h.POS.Source[0].RequestorID == nil {
		return newFault(StructuralError, "missing POS/Source/RequestorID block")
	}

	return nil
}

type dateRange struct {
	start time.Time
	end   time.Time
}

// checkDates parses Start/End and rejects unparseable, past, inverted or oversized ranges.
func checkDates(ctl *StatusApplicationControl, where string, today time.Time) (dateRange, *Fault) {
	start, err := calendar.Parse(ctl.Start)
	if err != nil {
		return dateRange{}, newFault(DateError, "%s: Start %q is not a valid date", where, ctl.Start)
	}

	end, err := calendar.Parse(ctl.End)
	if err != nil {
		return dateRange{}, newFault(DateError, "%s: End %q is not a valid date", where, ctl.End)
	}

	if start.Before(today) {
		return dateRange{}, newFault(DateError, "%s: Start %s is in the past", where, calendar.Format(start))
	}

	if end.Before(today) {
		return dateRange{}, newFault(DateError, "%s: End %s is in the past", where, calendar.Format(end))
	}

	if end.Before(start) {
		return dateRange{}, newFault(DateError, "%s: Start %s is after End %s", where, calendar.Format(start), calendar.Format(end))
	}

	if calendar.Nights(start, end) >= calendar.MaxSpanDays {
		return dateRange{}, newFault(
			DateError, "%s: range %s to %s exceeds %d days",
			where, calendar.Format(start), calendar.Format(end), calendar.MaxSpanDays,
		)
	}

	return dateRange{start: start, end: end}, nil
}

func checkControlFields(ctl *StatusApplicationControl, where string) *Fault {
	if strings.TrimSpace(ctl.InvTypeCode) == "" {
		return newFault(FieldError, "%s: InvTypeCode is required", where)
	}

	if strings.TrimSpace(ctl.Start) == "" || strings.TrimSpace(ctl.End) == "" {
		return newFault(FieldError, "%s: Start and End are required", where)
	}

	return nil
}

func whereInventory(idx int) string {
	return "Inventory[" + strconv.Itoa(idx) + "]"
}

func whereMessage(idx int) string {
	return "RateAmountMessage[" + strconv.Itoa(idx) + "]"
}

// validateInvCount runs the structural, field and date stages in that order, so a
// structural defect anywhere wins over a field defect earlier in the document.
func validateInvCount(rq *InvCountNotifRQ, today time.Time) ([]AvailabilityEntry, *Fault) {
	if fault := validateHeader(&rq.Header); fault != nil {
		return nil, fault
	}

	if rq.Inventories == nil {
		return nil, newFault(StructuralError, "missing Inventories block")
	}

	if len(rq.Inventories.Inventory) == 0 {
		return nil, newFault(StructuralError, "Inventories must contain at least one Inventory")
	}

	for idx, inv := range rq.Inventories.Inventory {
		if inv.StatusApplicationControl == nil {
			return nil, newFault(StructuralError, "%s: missing StatusApplicationControl", whereInventory(idx))
		}

		if inv.InvCounts == nil || len(inv.InvCounts.InvCount) == 0 {
			return nil, newFault(StructuralError, "%s: missing InvCounts/InvCount", whereInventory(idx))
		}
	}

	if strings.TrimSpace(rq.Inventories.HotelCode) == "" {
		return nil, newFault(FieldError, "Inventories: HotelCode is required")
	}

	counts := make([]int, len(rq.Inventories.Inventory))

	for idx, inv := range rq.Inventories.Inventory {
		if fault := checkControlFields(inv.StatusApplicationControl, whereInventory(idx)); fault != nil {
			return nil, fault
		}

		raw := strings.TrimSpace(inv.InvCounts.InvCount[0].Count)
		if !digits.MatchString(raw) {
			return nil, newFault(FieldError, "%s: Count %q must be a non-negative integer", whereInventory(idx), raw)
		}

		count, err := strconv.Atoi(raw)
		if err != nil {
			return nil, newFault(FieldError, "%s: Count %q is out of range", whereInventory(idx), raw)
		}

		counts[idx] = count
	}

	entries := make([]AvailabilityEntry, 0, len(rq.Inventories.Inventory))

	for idx, inv := range rq.Inventories.Inventory {
		span, fault := checkDates(inv.StatusApplicationControl, whereInventory(idx), today)
		if fault != nil {
			return nil, fault
		}

		entries = append(entries, AvailabilityEntry{
			InvTypeCode: strings.TrimSpace(inv.StatusApplicationControl.InvTypeCode),
			Start:       span.start,
			End:         span.end,
			Count:       counts[idx],
		})
	}

	return entries, nil
}

func parseFlag(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

func dayFlags(ctl *StatusApplicationControl, where string) (rate.Days, *Fault) {
	days := rate.Days{}

	for key, value := range map[string]string{
		"mon": ctl.Mon, "tue": ctl.Tue, "wed": ctl.Weds, "thu": ctl.Thur,
		"fri": ctl.Fri, "sat": ctl.Sat, "sun": ctl.Sun,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}

		flag, ok := parseFlag(value)
		if !ok {
			return nil, newFault(FieldError, "%s: day flag %s=%q must be true or false", where, key, value)
		}

		days[key] = flag
	}

	return days, nil
}

func parseAmount(value, what, where string) (decimal.Decimal, *Fault) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || amount.IsNegative() {
		return decimal.Zero, newFault(FieldError, "%s: %s %q must be a non-negative amount", where, what, value)
	}

	return amount, nil
}

func rateFields(r *Rate, where string) (string, []rate.GuestAmount, []rate.AdditionalGuestAmount, *Fault) {
	currency := strings.TrimSpace(r.CurrencyCode)
	tiers := make([]rate.GuestAmount, 0, len(r.BaseByGuestAmts.BaseByGuestAmt))

	for _, amt := range r.BaseByGuestAmts.BaseByGuestAmt {
		raw := strings.TrimSpace(amt.NumberOfGuests)
		if !digits.MatchString(raw) {
			return "", nil, nil, newFault(FieldError, "%s: NumberOfGuests %q must be a positive integer", where, raw)
		}

		guests, err := strconv.Atoi(raw)
		if err != nil || guests < 1 {
			return "", nil, nil, newFault(FieldError, "%s: NumberOfGuests %q must be a positive integer", where, raw)
		}

		amount, fault := parseAmount(amt.AmountBeforeTax, "AmountBeforeTax", where)
		if fault != nil {
			return "", nil, nil, fault
		}

		if currency == "" {
			currency = strings.TrimSpace(amt.CurrencyCode)
		}

		tiers = append(tiers, rate.GuestAmount{NumberOfGuests: guests, AmountBeforeTax: amount})
	}

	if currency == "" {
		return "", nil, nil, newFault(FieldError, "%s: CurrencyCode is required", where)
	}

	var surcharges []rate.AdditionalGuestAmount

	if r.AdditionalGuestAmounts != nil {
		for _, add := range r.AdditionalGuestAmounts.AdditionalGuestAmount {
			code := strings.TrimSpace(add.AgeQualifyingCode)
			if !rate.ValidAgeQualifyingCode(code) {
				return "", nil, nil, newFault(FieldError, "%s: AgeQualifyingCode %q is not one of 10, 8, 7", where, code)
			}

			amount, fault := parseAmount(add.Amount, "Amount", where)
			if fault != nil {
				return "", nil, nil, fault
			}

			surcharges = append(surcharges, rate.AdditionalGuestAmount{AgeQualifyingCode: code, Amount: amount})
		}
	}

	return currency, tiers, surcharges, nil
}

func validateRateAmount(rq *RateAmountNotifRQ, today time.Time) ([]RateEntry, *Fault) {
	if fault := validateHeader(&rq.Header); fault != nil {
		return nil, fault
	}

	if rq.RateAmountMessages == nil {
		return nil, newFault(StructuralError, "missing RateAmountMessages block")
	}

	if len(rq.RateAmountMessages.RateAmountMessage) == 0 {
		return nil, newFault(StructuralError, "RateAmountMessages must contain at least one RateAmountMessage")
	}

	for idx, msg := range rq.RateAmountMessages.RateAmountMessage {
		if msg.StatusApplicationControl == nil {
			return nil, newFault(StructuralError, "%s: missing StatusApplicationControl", whereMessage(idx))
		}

		if msg.Rates == nil || len(msg.Rates.Rate) == 0 {
			return nil, newFault(StructuralError, "%s: missing Rates/Rate", whereMessage(idx))
		}

		for _, r := range msg.Rates.Rate {
			if r.BaseByGuestAmts == nil || len(r.BaseByGuestAmts.BaseByGuestAmt) == 0 {
				return nil, newFault(StructuralError, "%s: missing BaseByGuestAmts/BaseByGuestAmt", whereMessage(idx))
			}
		}
	}

	if strings.TrimSpace(rq.RateAmountMessages.HotelCode) == "" {
		return nil, newFault(FieldError, "RateAmountMessages: HotelCode is required")
	}

	var entries []RateEntry

	for idx, msg := range rq.RateAmountMessages.RateAmountMessage {
		where := whereMessage(idx)
		ctl := msg.StatusApplicationControl

		if fault := checkControlFields(ctl, where); fault != nil {
			return nil, fault
		}

		if strings.TrimSpace(ctl.RatePlanCode) == "" {
			return nil, newFault(FieldError, "%s: RatePlanCode is required", where)
		}

		days, fault := dayFlags(ctl, where)
		if fault != nil {
			return nil, fault
		}

		for _, r := range msg.Rates.Rate {
			currency, tiers, surcharges, fault := rateFields(&r, where)
			if fault != nil {
				return nil, fault
			}

			//nolint:exhaustruct
			entries = append(entries, RateEntry{
				InvTypeCode:            strings.TrimSpace(ctl.InvTypeCode),
				RatePlanCode:           strings.TrimSpace(ctl.RatePlanCode),
				Days:                   days,
				CurrencyCode:           currency,
				BaseByGuestAmts:        tiers,
				AdditionalGuestAmounts: surcharges,
			})
		}
	}

	pos := 0

	for idx, msg := range rq.RateAmountMessages.RateAmountMessage {
		span, fault := checkDates(msg.StatusApplicationControl, whereMessage(idx), today)
		if fault != nil {
			return nil, fault
		}

		for range msg.Rates.Rate {
			entries[pos].Start = span.start
			entries[pos].End = span.end
			pos++
		}
	}

	return entries, nil
}
