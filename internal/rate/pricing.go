package rate

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Charge is the price of one night for one room at a given occupancy.
type Charge struct {
	BaseRate              decimal.Decimal
	BaseGuestsIncluded    int
	ExtraAdults           int
	ExtraChildren         int
	AdditionalAdultCharge decimal.Decimal
	AdditionalChildCharge decimal.Decimal
	TotalPerRoom          decimal.Decimal
	TotalForAllRooms      decimal.Decimal
}

func (c Charge) AdditionalCharges() decimal.Decimal {
	return c.AdditionalAdultCharge.Add(c.AdditionalChildCharge)
}

func sortedTiers(tiers []GuestAmount) []GuestAmount {
	sorted := make([]GuestAmount, len(tiers))
	copy(sorted, tiers)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NumberOfGuests < sorted[j].NumberOfGuests
	})

	return sorted
}

// selectTier picks the smallest tier covering the party, or the largest tier when none does.
func selectTier(tiers []GuestAmount, guests int) GuestAmount {
	for _, tier := range tiers {
		if tier.NumberOfGuests >= guests {
			return tier
		}
	}

	return tiers[len(tiers)-1]
}

func surcharge(amounts []AdditionalGuestAmount, code string) decimal.Decimal {
	for _, a := range amounts {
		if a.AgeQualifyingCode == code {
			return a.Amount
		}
	}

	return decimal.Zero
}

// Price computes the nightly charge of a rate day. Adults are seated in the base tier
// before children; guests beyond the tier capacity pay the "10" (adult) and "8" (child)
// surcharges. Infants ("7") are never charged.
func Price(day *Day, adults, children, rooms int) (Charge, error) {
	if len(day.BaseByGuestAmts) == 0 {
		return Charge{}, fmt.Errorf("%s/%s/%s: %w", day.HotelCode, day.InvTypeCode, day.RatePlanCode, ErrNoTiers)
	}

	guests := adults + children
	tier := selectTier(sortedTiers(day.BaseByGuestAmts), guests)

	//nolint:exhaustruct
	charge := Charge{
		BaseRate:              tier.AmountBeforeTax,
		BaseGuestsIncluded:    tier.NumberOfGuests,
		AdditionalAdultCharge: decimal.Zero,
		AdditionalChildCharge: decimal.Zero,
	}

	if guests > tier.NumberOfGuests {
		extraGuests := guests - tier.NumberOfGuests

		if tier.NumberOfGuests >= adults {
			charge.ExtraChildren = min(children, extraGuests)
		} else {
			charge.ExtraAdults = adults - tier.NumberOfGuests
			charge.ExtraChildren = children
		}

		charge.AdditionalAdultCharge = decimal.NewFromInt(int64(charge.ExtraAdults)).
			Mul(surcharge(day.AdditionalGuestAmounts, AgeAdult))
		charge.AdditionalChildCharge = decimal.NewFromInt(int64(charge.ExtraChildren)).
			Mul(surcharge(day.AdditionalGuestAmounts, AgeChild))
	}

	charge.TotalPerRoom = charge.BaseRate.Add(charge.AdditionalCharges())
	charge.TotalForAllRooms = charge.TotalPerRoom.Mul(decimal.NewFromInt(int64(rooms)))

	return charge, nil
}
