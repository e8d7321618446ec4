// Package money holds the shared amount parsing and rounding helpers.
// Sheet cells arrive as accountant-formatted strings ("1,234.50",
// "(97.20)") and every balancing rule in the pipeline is defined on
// cent-rounded values, so all arithmetic that feeds a tolerance check
// goes through decimal instead of raw float math.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts a currency-formatted cell into a float amount.
// Thousands separators are stripped, parenthesized values are negative,
// stray currency symbols are dropped, and anything unparseable is 0.0.
func Parse(s string) float64 {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0.0
	}

	neg := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		neg = true
		v = v[1 : len(v)-1]
	}
	v = strings.ReplaceAll(v, ",", "")

	var b strings.Builder
	for _, r := range v {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	v = b.String()
	if v == "" || v == "-" || v == "." {
		return 0.0
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0.0
	}
	if neg {
		d = d.Neg()
	}
	f, _ := d.Float64()
	return f
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(f float64) float64 {
	r, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return r
}

// Sum2 adds amounts after rounding each to cents, so a group total
// matches what the sheet displays rather than the float residue.
func Sum2(amounts []float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a).Round(2))
	}
	f, _ := total.Float64()
	return f
}

// Close reports whether two amounts agree within the given tolerance.
func Close(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// IsZero reports whether an amount rounds to zero cents.
func IsZero(a float64) bool {
	return decimal.NewFromFloat(a).Round(2).IsZero()
}
