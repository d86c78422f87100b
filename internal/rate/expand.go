package rate

import (
	"fmt"

	"github.com/avstrong/arisync/internal/calendar"
)

// ExpandPlan turns a plan into one Day per calendar day of its range, skipping weekdays
// whose flag is explicitly false.
func ExpandPlan(plan *Plan) ([]Day, error) {
	start := calendar.Day(plan.Start)
	end := calendar.Day(plan.End)

	if end.Before(start) {
		return nil, fmt.Errorf("%s..%s: %w", calendar.Format(start), calendar.Format(end), ErrInvalidRange)
	}

	var days []Day

	for _, date := range calendar.Span(start, end) {
		if !plan.Days.Applies(date) {
			continue
		}

		days = append(days, Day{
			HotelCode:              plan.HotelCode,
			HotelName:              plan.HotelName,
			InvTypeCode:            plan.InvTypeCode,
			RatePlanCode:           plan.RatePlanCode,
			StartDate:              date,
			EndDate:                calendar.EndOfDay(date),
			Days:                   plan.Days,
			CurrencyCode:           plan.CurrencyCode,
			BaseByGuestAmts:        plan.BaseByGuestAmts,
			AdditionalGuestAmounts: plan.AdditionalGuestAmounts,
			DataSource:             plan.DataSource,
			Restrictions:           plan.Restrictions,
		})
	}

	return days, nil
}
