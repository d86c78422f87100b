package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/rate"
)

type availabilityDoc struct {
	StartDate time.Time `bson:"startDate"`
	EndDate   time.Time `bson:"endDate"`
	Count     int       `bson:"count"`
}

type inventoryDoc struct {
	ID           bson.ObjectID   `bson:"_id,omitempty"`
	HotelCode    string          `bson:"hotelCode"`
	HotelName    string          `bson:"hotelName,omitempty"`
	InvTypeCode  string          `bson:"invTypeCode"`
	Availability availabilityDoc `bson:"availability"`
	Status       string          `bson:"status"`
	DataSource   string          `bson:"dataSource,omitempty"`
	Sold         *int            `bson:"sold,omitempty"`
	Blocked      *int            `bson:"blocked,omitempty"`
}

func (d *inventoryDoc) toDay() inventory.Day {
	return inventory.Day{
		HotelCode:   d.HotelCode,
		HotelName:   d.HotelName,
		InvTypeCode: d.InvTypeCode,
		Availability: inventory.Availability{
			StartDate: d.Availability.StartDate.UTC(),
			EndDate:   d.Availability.EndDate.UTC(),
			Count:     d.Availability.Count,
		},
		Status:     inventory.Status(d.Status),
		DataSource: d.DataSource,
		Sold:       d.Sold,
		Blocked:    d.Blocked,
	}
}

type guestAmountDoc struct {
	NumberOfGuests  int             `bson:"numberOfGuests"`
	AmountBeforeTax bson.Decimal128 `bson:"amountBeforeTax"`
}

type additionalAmountDoc struct {
	AgeQualifyingCode string          `bson:"ageQualifyingCode"`
	Amount            bson.Decimal128 `bson:"amount"`
}

type rateDoc struct {
	ID                     bson.ObjectID         `bson:"_id,omitempty"`
	HotelCode              string                `bson:"hotelCode"`
	HotelName              string                `bson:"hotelName,omitempty"`
	InvTypeCode            string                `bson:"invTypeCode"`
	RatePlanCode           string                `bson:"ratePlanCode"`
	StartDate              time.Time             `bson:"startDate"`
	EndDate                time.Time             `bson:"endDate"`
	Days                   map[string]bool       `bson:"days,omitempty"`
	CurrencyCode           string                `bson:"currencyCode"`
	BaseByGuestAmts        []guestAmountDoc      `bson:"baseByGuestAmts"`
	AdditionalGuestAmounts []additionalAmountDoc `bson:"additionalGuestAmounts,omitempty"`
	DataSource             string                `bson:"dataSource,omitempty"`
	Restrictions           map[string]any        `bson:"restrictions,omitempty"`
}

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	value, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d.String(), err)
	}

	return value, nil
}

func fromDecimal128(d bson.Decimal128) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert decimal128 %s: %w", d.String(), err)
	}

	return value, nil
}

func newRateDoc(d *rate.Day) (rateDoc, error) {
	//nolint:exhaustruct
	doc := rateDoc{
		HotelCode:    d.HotelCode,
		HotelName:    d.HotelName,
		InvTypeCode:  d.InvTypeCode,
		RatePlanCode: d.RatePlanCode,
		StartDate:    d.StartDate.UTC(),
		EndDate:      d.EndDate.UTC(),
		Days:         d.Days,
		CurrencyCode: d.CurrencyCode,
		DataSource:   d.DataSource,
		Restrictions: d.Restrictions,
	}

	for _, tier := range d.BaseByGuestAmts {
		amount, err := toDecimal128(tier.AmountBeforeTax)
		if err != nil {
			return rateDoc{}, err
		}

		doc.BaseByGuestAmts = append(doc.BaseByGuestAmts, guestAmountDoc{NumberOfGuests: tier.NumberOfGuests, AmountBeforeTax: amount})
	}

	for _, add := range d.AdditionalGuestAmounts {
		amount, err := toDecimal128(add.Amount)
		if err != nil {
			return rateDoc{}, err
		}

		doc.AdditionalGuestAmounts = append(doc.AdditionalGuestAmounts, additionalAmountDoc{AgeQualifyingCode: add.AgeQualifyingCode, Amount: amount})
	}

	return doc, nil
}

func (d *rateDoc) toDay() (rate.Day, error) {
	//nolint:exhaustruct
	day := rate.Day{
		HotelCode:    d.HotelCode,
		HotelName:    d.HotelName,
		InvTypeCode:  d.InvTypeCode,
		RatePlanCode: d.RatePlanCode,
		StartDate:    d.StartDate.UTC(),
		EndDate:      d.EndDate.UTC(),
		Days:         d.Days,
		CurrencyCode: d.CurrencyCode,
		DataSource:   d.DataSource,
		Restrictions: d.Restrictions,
	}

	for _, tier := range d.BaseByGuestAmts {
		amount, err := fromDecimal128(tier.AmountBeforeTax)
		if err != nil {
			return rate.Day{}, err
		}

		day.BaseByGuestAmts = append(day.BaseByGuestAmts, rate.GuestAmount{NumberOfGuests: tier.NumberOfGuests, AmountBeforeTax: amount})
	}

	for _, add := range d.AdditionalGuestAmounts {
		amount, err := fromDecimal128(add.Amount)
		if err != nil {
			return rate.Day{}, err
		}

		day.AdditionalGuestAmounts = append(day.AdditionalGuestAmounts, rate.AdditionalGuestAmount{AgeQualifyingCode: add.AgeQualifyingCode, Amount: amount})
	}

	return day, nil
}

// dayFilter matches the document of one calendar day whatever time its start carries.
func dayFilter(hotelCode, invTypeCode string, date time.Time) bson.D {
	return bson.D{
		{Key: "hotelCode", Value: hotelCode},
		{Key: "invTypeCode", Value: invTypeCode},
		{Key: "availability.startDate", Value: bson.D{
			{Key: "$gte", Value: calendar.Day(date)},
			{Key: "$lte", Value: calendar.EndOfDay(date)},
		}},
	}
}

// inventoryUpsert builds the update of one availability push. Fields the caller left
// empty keep their stored value; a new day starts open.
func inventoryUpsert(day *inventory.Day) (bson.D, bson.D) {
	filter := bson.D{
		{Key: "hotelCode", Value: day.HotelCode},
		{Key: "invTypeCode", Value: day.InvTypeCode},
		{Key: "availability.startDate", Value: day.Availability.StartDate},
	}

	set := bson.D{
		{Key: "availability.endDate", Value: day.Availability.EndDate},
		{Key: "availability.count", Value: day.Availability.Count},
	}

	setOnInsert := bson.D{}

	if day.Status != "" {
		set = append(set, bson.E{Key: "status", Value: string(day.Status)})
	} else {
		setOnInsert = append(setOnInsert, bson.E{Key: "status", Value: string(inventory.StatusOpen)})
	}

	if day.HotelName != "" {
		set = append(set, bson.E{Key: "hotelName", Value: day.HotelName})
	}

	if day.DataSource != "" {
		set = append(set, bson.E{Key: "dataSource", Value: day.DataSource})
	}

	if day.Sold != nil {
		set = append(set, bson.E{Key: "sold", Value: *day.Sold})
	}

	if day.Blocked != nil {
		set = append(set, bson.E{Key: "blocked", Value: *day.Blocked})
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(setOnInsert) > 0 {
		update = append(update, bson.E{Key: "$setOnInsert", Value: setOnInsert})
	}

	return filter, update
}

func rateUpsert(doc *rateDoc) (bson.D, bson.D) {
	filter := bson.D{
		{Key: "hotelCode", Value: doc.HotelCode},
		{Key: "invTypeCode", Value: doc.InvTypeCode},
		{Key: "ratePlanCode", Value: doc.RatePlanCode},
		{Key: "startDate", Value: doc.StartDate},
		{Key: "endDate", Value: doc.EndDate},
	}

	return filter, bson.D{{Key: "$set", Value: doc}}
}
