// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package charts

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"CAD": "CA$",
	"AUD": "A$",
}

// Formatter renders money amounts for chart labels and tables.
type Formatter struct {
	code   string
	symbol string
	p      *message.Printer
}

// DefaultFormatter formats US dollars.
var DefaultFormatter = Formatter{code: "USD", symbol: "$", p: message.NewPrinter(language.English)}

// NewFormatter validates an ISO 4217 code and returns a formatter for it.
func NewFormatter(code string) (Formatter, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultFormatter, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Formatter{}, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	symbol, ok := currencySymbols[unit.String()]
	if !ok {
		symbol = unit.String() + " "
	}
	return Formatter{code: unit.String(), symbol: symbol, p: message.NewPrinter(language.English)}, nil
}

// Code returns the ISO currency code.
func (f Formatter) Code() string {
	return f.code
}

// Amount formats v with grouping, dropping cents on whole amounts.
func (f Formatter) Amount(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	if v == math.Trunc(v) {
		return sign + f.symbol + f.p.Sprintf("%d", int64(v))
	}
	return sign + f.symbol + f.p.Sprintf("%.2f", v)
}

// Compact formats v for narrow axis labels: $950, $1.2k, $3.4M.
func (f Formatter) Compact(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e6:
		return sign + f.symbol + trimZero(fmt.Sprintf("%.1f", v/1e6)) + "M"
	case v >= 1e3:
		return sign + f.symbol + trimZero(fmt.Sprintf("%.1f", v/1e3)) + "k"
	default:
		return sign + f.symbol + fmt.Sprintf("%.0f", v)
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
