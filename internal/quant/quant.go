// Package quant holds small, pure numeric helpers shared by the
// orchestrator and market feed: quantity sizing and decimal-string
// trimming. Kept deliberately tiny and dependency-free since both
// functions are exercised on every tick / every open request.
package quant

import (
	"fmt"
	"strconv"
	"strings"
)

// CalculateQuantity sizes an order in base units: margin * leverage /
// price, rounded to precision decimal places and formatted as a
// fixed-precision decimal string. Returns "0.0" if price is not strictly
// positive, to avoid a division by zero.
func CalculateQuantity(margin, leverage, price float64, precision int) string {
	if price <= 0 {
		return "0.0"
	}

	raw := margin * leverage / price
	return strconv.FormatFloat(raw, 'f', precision, 64)
}

// TrimTrailingZeros drops trailing zeros (and a trailing decimal point)
// from a decimal string: "1.2300" -> "1.23", "1.0" -> "1", "100" -> "100".
func TrimTrailingZeros(input string) string {
	if !strings.Contains(input, ".") {
		return input
	}
	trimmed := strings.TrimRight(input, "0")
	trimmed = strings.TrimRight(trimmed, ".")
	return trimmed
}

// FormatURL builds the per-symbol book-ticker stream URL.
func FormatURL(baseWSURL, sym string) string {
	return fmt.Sprintf("%s/ws/%s@bookTicker", strings.TrimRight(baseWSURL, "/"), sym)
}
