package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatCurrency renders amount with two decimals and the currency symbol.
// INR uses lakh grouping (1,00,000.00). NaN and infinities render as zero.
func FormatCurrency(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "INR"
	}
	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code + " "
	}

	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	if code == "INR" {
		intPart = groupIndian(intPart)
	} else {
		intPart = groupThousands(intPart)
	}
	return sign + symbol + intPart + "." + frac
}

// FormatCurrencyPtr is FormatCurrency for optional amounts; nil renders as zero.
func FormatCurrencyPtr(amount *float64, currency string) string {
	if amount == nil {
		return FormatCurrency(0, currency)
	}
	return FormatCurrency(*amount, currency)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// groupIndian groups the last three digits, then pairs: 12,34,56,789.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
