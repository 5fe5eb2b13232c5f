package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PlanTier string

const (
	PlanQuarter      PlanTier = "quarter"
	PlanHalf         PlanTier = "half"
	PlanThreeQuarter PlanTier = "threeQuarter"
	PlanFull         PlanTier = "full"
)

var planMultipliers = map[PlanTier]decimal.Decimal{
	PlanQuarter:      decimal.RequireFromString("0.25"),
	PlanHalf:         decimal.RequireFromString("0.5"),
	PlanThreeQuarter: decimal.RequireFromString("0.75"),
	PlanFull:         decimal.NewFromInt(1),
}

var planLabels = map[PlanTier]string{
	PlanQuarter:      "Quarter Plan",
	PlanHalf:         "Half Plan",
	PlanThreeQuarter: "Three-Quarter Plan",
	PlanFull:         "Full Plan",
}

// ParsePlanTier accepts the enumeration key in any casing, so the backend form
// ("threequarter") round-trips too.
func ParsePlanTier(s string) (PlanTier, error) {
	for tier := range planMultipliers {
		if strings.EqualFold(string(tier), s) {
			return tier, nil
		}
	}
	return "", fmt.Errorf("unknown plan tier %q", s)
}

func (p PlanTier) Valid() bool {
	_, ok := planMultipliers[p]
	return ok
}

func (p PlanTier) Multiplier() decimal.Decimal {
	return planMultipliers[p]
}

// ServerKey is the planType value the payment backend expects.
func (p PlanTier) ServerKey() string {
	return strings.ToLower(string(p))
}

func (p PlanTier) Label() string {
	return planLabels[p]
}

// PriceQuote is derived on every plan change and never stored.
type PriceQuote struct {
	Base     int64 `json:"base"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}
