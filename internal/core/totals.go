package core

import "github.com/shopspring/decimal"

// TotalAmount sums the amounts exactly and rounds the result to two decimal
// places, half away from zero. The sum is order-independent, so 0.10 + 0.20
// is exactly 0.30.
func TotalAmount(records []ExpenseRecord) Money {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount.d)
	}
	return Money{d: sum}.Round2()
}
