package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatAmount is the only way amounts are turned into strings for the
// gateway: plain digits, no exponent, no trailing fractional zeros.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}

// ParseAmount accepts what FormatAmount produces, plus equivalent spellings
// such as "100.00", and returns the decimal value.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}
