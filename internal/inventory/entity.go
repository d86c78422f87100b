package inventory

import (
	"time"

	"github.com/avstrong/arisync/internal/calendar"
)

type Status string

const (
	StatusOpen  Status = "open"
	StatusClose Status = "close"
)

func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClose
}

type Availability struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Count     int       `json:"count"`
}

// Day is the authoritative availability of one room type on one calendar day.
// Writers upsert on (HotelCode, InvTypeCode, Availability.StartDate).
type Day struct {
	HotelCode    string       `json:"hotelCode"`
	HotelName    string       `json:"hotelName,omitempty"`
	InvTypeCode  string       `json:"invTypeCode"`
	Availability Availability `json:"availability"`
	Status       Status       `json:"status"`
	DataSource   string       `json:"dataSource,omitempty"`
	Sold         *int         `json:"sold,omitempty"`
	Blocked      *int         `json:"blocked,omitempty"`
}

func NewDay(hotelCode, invTypeCode string, date time.Time, count int) Day {
	//nolint:exhaustruct
	return Day{
		HotelCode:   hotelCode,
		InvTypeCode: invTypeCode,
		Availability: Availability{
			StartDate: calendar.Day(date),
			EndDate:   calendar.EndOfDay(date),
			Count:     count,
		},
	}
}

// Normalize pins the availability window to the calendar day of its start.
// An empty Status leaves the stored status untouched on upsert.
func (d *Day) Normalize() {
	d.Availability.StartDate = calendar.Day(d.Availability.StartDate)
	d.Availability.EndDate = calendar.EndOfDay(d.Availability.StartDate)
}

// StatusChange targets one (hotel, room type, day) cell. It never creates a day.
type StatusChange struct {
	HotelCode   string
	InvTypeCode string
	Date        time.Time
	Status      Status
}

type BulkResult struct {
	Matched  int64 `json:"matchedCount"`
	Modified int64 `json:"modifiedCount"`
	Upserted int64 `json:"upsertedCount"`
}

type DateStatus struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

type UpdateStatusInput struct {
	HotelCode      string       `json:"hotelCode"`
	InvTypeCodes   []string     `json:"invTypeCodes"`
	DateStatusList []DateStatus `json:"dateStatusList"`
}

type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
)

const (
	ReasonNoChange = "no_change"
	ReasonNotFound = "not_found"
)

type Detail struct {
	InvTypeCode string  `json:"invTypeCode"`
	Date        string  `json:"date"`
	Status      Status  `json:"status"`
	Outcome     Outcome `json:"outcome"`
	Reason      string  `json:"reason,omitempty"`
	Error       string  `json:"error,omitempty"`
}

type UpdateResult struct {
	MatchedCount       int64    `json:"matchedCount"`
	ModifiedCount      int64    `json:"modifiedCount"`
	RoomTypesProcessed int      `json:"roomTypesProcessed"`
	DatesProcessed     int      `json:"datesProcessed"`
	TotalOperations    int      `json:"totalOperations"`
	Details            []Detail `json:"details"`
}
