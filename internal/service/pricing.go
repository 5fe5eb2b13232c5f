package service

import (
	"course-purchase/internal/model"

	"github.com/shopspring/decimal"
)

// PricingCalculator applies the current discount policy to a plan tier of a course.
type PricingCalculator struct {
	discountRate decimal.Decimal
}

func NewPricingCalculator(discountRate decimal.Decimal) *PricingCalculator {
	return &PricingCalculator{discountRate: clampRate(discountRate)}
}

func (pc *PricingCalculator) Quote(monthlyPrice int64, tier model.PlanTier) model.PriceQuote {
	return Quote(monthlyPrice, tier, pc.discountRate)
}

// Quote computes base = round(price * multiplier), discount = round(base * rate) and
// total = max(0, base - discount). Rounding is half-up on whole units.
func Quote(monthlyPrice int64, tier model.PlanTier, discountRate decimal.Decimal) model.PriceQuote {
	if monthlyPrice < 0 {
		monthlyPrice = 0
	}
	rate := clampRate(discountRate)

	base := decimal.NewFromInt(monthlyPrice).Mul(tier.Multiplier()).Round(0)
	discount := base.Mul(rate).Round(0)
	total := base.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return model.PriceQuote{
		Base:     base.IntPart(),
		Discount: discount.IntPart(),
		Total:    total.IntPart(),
	}
}

func clampRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return rate
}
