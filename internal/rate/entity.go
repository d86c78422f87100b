package rate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/arisync/internal/calendar"
)

// Age qualifying codes of the surcharge table.
const (
	AgeAdult  = "10"
	AgeChild  = "8"
	AgeInfant = "7"
)

func ValidAgeQualifyingCode(code string) bool {
	return code == AgeAdult || code == AgeChild || code == AgeInfant
}

type GuestAmount struct {
	NumberOfGuests  int             `json:"numberOfGuests"`
	AmountBeforeTax decimal.Decimal `json:"amountBeforeTax"`
}

type AdditionalGuestAmount struct {
	AgeQualifyingCode string          `json:"ageQualifyingCode"`
	Amount            decimal.Decimal `json:"amount"`
}

// Days holds day-of-week flags keyed mon..sun. A missing key means the day applies.
type Days map[string]bool

func (d Days) Applies(date time.Time) bool {
	allowed, ok := d[calendar.Weekday(date)]

	return !ok || allowed
}

// Day is one rate plan's pricing for one room type on one calendar day.
// Writers upsert on (HotelCode, InvTypeCode, RatePlanCode, StartDate, EndDate).
type Day struct {
	HotelCode              string                  `json:"hotelCode"`
	HotelName              string                  `json:"hotelName,omitempty"`
	InvTypeCode            string                  `json:"invTypeCode"`
	RatePlanCode           string                  `json:"ratePlanCode"`
	StartDate              time.Time               `json:"startDate"`
	EndDate                time.Time               `json:"endDate"`
	Days                   Days                    `json:"days,omitempty"`
	CurrencyCode           string                  `json:"currencyCode"`
	BaseByGuestAmts        []GuestAmount           `json:"baseByGuestAmts"`
	AdditionalGuestAmounts []AdditionalGuestAmount `json:"additionalGuestAmounts,omitempty"`
	DataSource             string                  `json:"dataSource,omitempty"`
	Restrictions           map[string]any          `json:"restrictions,omitempty"`
}

// Normalize pins the rate window to the calendar day of its start.
func (d *Day) Normalize() {
	d.StartDate = calendar.Day(d.StartDate)
	d.EndDate = calendar.EndOfDay(d.StartDate)
}

// CheckPricing reports the first defect of the tier and surcharge tables.
func (d *Day) CheckPricing() error {
	if len(d.BaseByGuestAmts) == 0 {
		return ErrNoTiers
	}

	for _, tier := range d.BaseByGuestAmts {
		if tier.NumberOfGuests < 1 {
			return fmt.Errorf("tier of %d guest(s): %w", tier.NumberOfGuests, ErrInvalidTier)
		}

		if tier.AmountBeforeTax.IsNegative() {
			return fmt.Errorf("tier of %d guest(s) amount %s: %w", tier.NumberOfGuests, tier.AmountBeforeTax, ErrNegative)
		}
	}

	for _, add := range d.AdditionalGuestAmounts {
		if !ValidAgeQualifyingCode(add.AgeQualifyingCode) {
			return fmt.Errorf("surcharge %q: %w", add.AgeQualifyingCode, ErrAgeCode)
		}

		if add.Amount.IsNegative() {
			return fmt.Errorf("surcharge %q amount %s: %w", add.AgeQualifyingCode, add.Amount, ErrNegative)
		}
	}

	return nil
}

// Plan is a rate plan over an inclusive date range, before expansion into days.
type Plan struct {
	HotelCode              string
	HotelName              string
	InvTypeCode            string
	RatePlanCode           string
	Start                  time.Time
	End                    time.Time
	Days                   Days
	CurrencyCode           string
	BaseByGuestAmts        []GuestAmount
	AdditionalGuestAmounts []AdditionalGuestAmount
	DataSource             string
	Restrictions           map[string]any
}

type Request struct {
	HotelCode   string    `json:"hotelCode"`
	InvTypeCode string    `json:"invTypeCode"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Adults      int       `json:"adults"`
	Children    int       `json:"children"`
	Rooms       int       `json:"rooms"`
}

type NightRate struct {
	Date                  string          `json:"date"`
	DayOfWeek             string          `json:"dayOfWeek"`
	RatePlanCode          string          `json:"ratePlanCode"`
	BaseRate              decimal.Decimal `json:"baseRate"`
	BaseGuestsIncluded    int             `json:"baseGuestsIncluded"`
	ExtraAdults           int             `json:"extraAdults"`
	ExtraChildren         int             `json:"extraChildren"`
	AdditionalAdultCharge decimal.Decimal `json:"additionalAdultCharge"`
	AdditionalChildCharge decimal.Decimal `json:"additionalChildCharge"`
	AdditionalCharges     decimal.Decimal `json:"additionalCharges"`
	TotalPerRoom          decimal.Decimal `json:"totalPerRoom"`
	TotalForAllRooms      decimal.Decimal `json:"totalForAllRooms"`
	CurrencyCode          string          `json:"currencyCode"`
}

type Quote struct {
	HotelCode      string          `json:"hotelCode"`
	InvTypeCode    string          `json:"invTypeCode"`
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate"`
	NumberOfNights int             `json:"numberOfNights"`
	Adults         int             `json:"adults"`
	Children       int             `json:"children"`
	RequestedRooms int             `json:"requestedRooms"`
	AvailableRooms *int            `json:"availableRooms"`
	CurrencyCode   string          `json:"currencyCode"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Nightly        []NightRate     `json:"nightly"`
}

// Result separates "no price available" outcomes from infrastructure errors.
// Success is false with a Message whenever a quote cannot be produced.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Quote   *Quote `json:"quote,omitempty"`
}

type WriteResult struct {
	Matched  int64 `json:"matchedCount"`
	Modified int64 `json:"modifiedCount"`
	Upserted int64 `json:"upsertedCount"`
}
