package marketplace

import "github.com/shopspring/decimal"

// orderTotal sums unit_price × quantity over items and rounds to cents,
// half away from zero. Each float is taken at its shortest decimal form so
// 2.675 rounds to 2.68 rather than the binary 2.67499….
func orderTotal(items []OrderItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.UnitPrice).Mul(decimal.NewFromFloat(it.Quantity))
		total = total.Add(line)
	}
	f, _ := total.Round(2).Float64()
	return f
}
