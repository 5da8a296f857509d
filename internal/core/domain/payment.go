package domain

import "github.com/shopspring/decimal"

// AmountDue computes the upfront payment for an order total. Full payments
// owe the whole total; advance payments owe the configured fraction of it,
// rounded to cents.
func AmountDue(total decimal.Decimal, method PaymentMethod, advanceRate decimal.Decimal) decimal.Decimal {
	if method == PaymentMethodAdvance {
		return total.Mul(advanceRate).Round(2)
	}
	return total
}
