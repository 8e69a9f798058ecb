// Package format renders prices and counts for display in US English.
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency formats v in whole dollars: 1234567.89 -> "$1,234,568".
func Currency(v float64) string {
	return CurrencyDetailed(v, false)
}

// CurrencyDetailed formats v in dollars, with exactly two decimals when showDecimals is set.
func CurrencyDetailed(v float64, showDecimals bool) string {
	sign, abs := split(v)
	if showDecimals {
		return sign + "$" + printer.Sprintf("%.2f", abs)
	}
	return sign + "$" + printer.Sprintf("%d", int64(math.Round(abs)))
}

// Compact abbreviates thousands and millions with at most one decimal:
// 1500000 -> "$1.5M", 250000 -> "$250K", 2000000 -> "$2M", 950 -> "$950".
func Compact(v float64) string {
	sign, abs := split(v)
	switch {
	case abs >= 1e6:
		return sign + "$" + oneDecimal(abs/1e6) + "M"
	case abs >= 1e3:
		scaled := oneDecimal(abs / 1e3)
		if scaled == "1,000" {
			return sign + "$1M"
		}
		return sign + "$" + scaled + "K"
	default:
		return sign + "$" + oneDecimal(abs)
	}
}

// Number groups thousands and keeps up to three decimals: 1234567.5 -> "1,234,567.5".
func Number(v float64) string {
	sign, abs := split(v)
	return sign + trimZeros(printer.Sprintf("%.3f", abs))
}

func oneDecimal(v float64) string {
	return trimZeros(printer.Sprintf("%.1f", math.Round(v*10)/10))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func split(v float64) (string, float64) {
	if v < 0 {
		return "-", -v
	}
	return "", v
}

// ParsePrice accepts the forms produced by this package ("$1,250,000", "$1.5M", "250K")
// and plain numbers.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult, s = 1e6, s[:len(s)-1]
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult, s = 1e3, s[:len(s)-1]
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		f = -f
	}
	return f * mult, nil
}
