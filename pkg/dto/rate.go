package dto

import (
	"github.com/shopspring/decimal"
)

// RateRead is one per-user exchange rate row, expressed against the user's
// anchor currency.
type RateRead struct {
	Currency     string
	RateToAnchor decimal.Decimal
}

// ConversionResult is the outcome of converting an amount between two
// currencies through the anchor. Rate is the effective direct rate
// (rateFrom / rateTo); amounts and rate are rounded to six decimal places.
type ConversionResult struct {
	OriginalAmount  decimal.Decimal
	ConvertedAmount decimal.Decimal
	Rate            decimal.Decimal
	IsConverted     bool
}
