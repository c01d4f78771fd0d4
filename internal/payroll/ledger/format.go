package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes formatted amounts.
const CurrencySymbol = "S/"

// FormatCurrency renders an amount as "S/ 1,234.50".
func FormatCurrency(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	sign := ""
	if amount.Round(2).IsNegative() {
		sign = "-"
	}
	return CurrencySymbol + " " + sign + b.String() + "." + frac
}
