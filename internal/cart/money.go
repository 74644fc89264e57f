package cart

import (
	"fmt"
	"math"

	"github.com/appetiteclub/lastbite/internal/backend"
)

// TaxRate is the sales tax applied to the cart subtotal (8.875%).
const TaxRate = 0.08875

// Totals is a pre-checkout estimate. Values are unrounded; round with Round2
// or FormatAmount when displaying.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// ComputeTotals aggregates the lines without intermediate rounding.
func ComputeTotals(lines []backend.CartLine) Totals {
	var subtotal float64
	for _, line := range lines {
		subtotal += float64(line.Qty) * line.Price
	}
	tax := subtotal * TaxRate
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// LineTotal is qty times unit price for one line.
func LineTotal(line backend.CartLine) float64 {
	return float64(line.Qty) * line.Price
}

// ItemCount is the number of units in the cart, shown on the cart badge.
func ItemCount(lines []backend.CartLine) int {
	count := 0
	for _, line := range lines {
		count += line.Qty
	}
	return count
}

// Rounded returns the totals rounded to cents.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: Round2(t.Subtotal),
		Tax:      Round2(t.Tax),
		Total:    Round2(t.Total),
	}
}

// Round2 rounds half away from zero to two decimal places. Half-cent values
// that land a hair below the midpoint in binary still round away from zero.
func Round2(v float64) float64 {
	if v == 0 {
		return 0
	}
	return math.Round(v*100+math.Copysign(halfCentSlack, v)) / 100
}

const halfCentSlack = 1e-9

// FormatAmount renders an amount as dollars with two decimals.
func FormatAmount(v float64) string {
	return fmt.Sprintf("$%.2f", Round2(v))
}
