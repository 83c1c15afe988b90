package domain

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits money is stored with.
const AmountScale = 2

// ValidAmount reports whether amount is positive and representable at
// AmountScale without rounding.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(AmountScale))
}
