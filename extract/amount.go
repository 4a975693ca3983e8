package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// amountPattern is the shared money expression: optional "$", digits with
// thousands separators, optional decimals, optional magnitude suffix.
const amountPattern = `\$?\s*\d[\d,]*(?:\.\d+)?(?:\s*(?:thousand|million|billion|mm|k|m|b)\b)?`

var (
	amountRegexp = regexp.MustCompile(`(?i)\$?\s*(\d[\d,]*(?:\.\d+)?)(?:\s*(thousand|million|billion|mm|k|m|b)\b)?`)

	usd = message.NewPrinter(language.English)
)

// ParseAmount reads the first money expression in s and returns its value in
// dollars, applying K / M / B multipliers.
//
//	"$1,234" → 1234
//	"$1.5K"  → 1500
//	"$2M"    → 2000000
//
// No range or placeholder policy is applied here.
func ParseAmount(s string) (float64, bool) {
	m := amountRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}

	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		v *= 1_000
	case "m", "mm", "million":
		v *= 1_000_000
	case "b", "billion":
		v *= 1_000_000_000
	}
	return v, true
}

// FormatUSD renders v as a whole-dollar string like "$123,456".
// Zero or negative values render as "".
func FormatUSD(v float64) string {
	if v <= 0 {
		return ""
	}
	return usd.Sprintf("$%d", int64(math.Round(v)))
}

// Multiple returns price divided by profit, falling back to revenue, rounded
// to two decimals, plus the name of the basis used.
func Multiple(price, revenue, profit float64) (float64, string) {
	switch {
	case price <= 0:
		return 0, ""
	case profit > 0:
		return round2(price / profit), "profit"
	case revenue > 0:
		return round2(price / revenue), "revenue"
	}
	return 0, ""
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
