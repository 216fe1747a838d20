package affiliate

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// DefaultRate applies to products outside the rate table.
	DefaultRate = decimal.RequireFromString("0.30")
	// RecurringRate applies to every renewal regardless of tier.
	RecurringRate = decimal.RequireFromString("0.40")

	firstSaleRates = map[string]decimal.Decimal{
		"starter":    decimal.RequireFromString("0.40"),
		"pro":        decimal.RequireFromString("0.40"),
		"franchise":  decimal.RequireFromString("0.30"),
		"enterprise": decimal.RequireFromString("0.30"),
	}
)

// ProductTier maps a product name such as "Pro Monthly" or "AgencyOS Franchise"
// to its tier key, or "" when no tier word is present.
func ProductTier(productName string) string {
	for _, word := range strings.FieldsFunc(strings.ToLower(productName), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/' || r == '(' || r == ')'
	}) {
		if _, ok := firstSaleRates[word]; ok {
			return word
		}
	}
	return ""
}

func CommissionRate(productName string, recurring bool) decimal.Decimal {
	if recurring {
		return RecurringRate
	}
	if rate, ok := firstSaleRates[ProductTier(productName)]; ok {
		return rate
	}
	return DefaultRate
}

// Commission is gross × rate rounded to cents.
func Commission(gross, rate decimal.Decimal) decimal.Decimal {
	return gross.Mul(rate).Round(2)
}
