package rate

import (
	"errors"
	"testing"
)

func TestCheckPricing(t *testing.T) {
	tests := []struct {
		name       string
		tiers      []GuestAmount
		surcharges []AdditionalGuestAmount
		want       error
	}{
		{"valid", []GuestAmount{{2, amt(100)}}, []AdditionalGuestAmount{{AgeInfant, amt(0)}}, nil},
		{"free tier", []GuestAmount{{1, amt(0)}}, nil, nil},
		{"no tiers", nil, nil, ErrNoTiers},
		{"zero guests", []GuestAmount{{0, amt(100)}}, nil, ErrInvalidTier},
		{"negative tier", []GuestAmount{{2, amt(-1)}}, nil, ErrNegative},
		{"negative surcharge", []GuestAmount{{2, amt(100)}}, []AdditionalGuestAmount{{AgeChild, amt(-1)}}, ErrNegative},
		{"unknown age code", []GuestAmount{{2, amt(100)}}, []AdditionalGuestAmount{{"11", amt(5)}}, ErrAgeCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dayWith(tt.tiers, tt.surcharges).CheckPricing()
			if !errors.Is(err, tt.want) {
				t.Errorf("CheckPricing() = %v, want %v", err, tt.want)
			}
		})
	}
}
