package extract

import (
	"regexp"
	"strings"
)

// Field identifies which financial figure to extract.
type Field int

const (
	FieldPrice Field = iota
	FieldRevenue
	FieldProfit
)

func (f Field) String() string {
	switch f {
	case FieldPrice:
		return "price"
	case FieldRevenue:
		return "revenue"
	case FieldProfit:
		return "profit"
	}
	return "unknown"
}

// monthlySuffix marks a figure quoted per month, e.g. "$12K/mo".
const monthlySuffix = `(\s*(?:/\s*mo(?:nth)?\b|per\s+month\b|a\s+month\b|monthly\b|mo\.))?`

type pattern struct {
	re *regexp.Regexp
	// monthly marks patterns whose label already says the figure is monthly.
	monthly bool
	// trailing patterns put the label after the amount.
	trailing bool
}

func labelled(label string) pattern {
	return pattern{re: regexp.MustCompile(`(?i)` + label + `\s*(?:\(ttm\)|\(annual\))?\s*[:\-]?\s*(` + amountPattern + `)` + monthlySuffix)}
}

func trailing(label string) pattern {
	return pattern{re: regexp.MustCompile(`(?i)(` + amountPattern + `)` + monthlySuffix + `\s*(?:in\s+)?` + label), trailing: true}
}

func monthlyLabel(label string) pattern {
	return pattern{re: regexp.MustCompile(`(?i)monthly\s+` + label + `\s*[:\-]?\s*(` + amountPattern + `)`), monthly: true}
}

// Patterns are tried in order; the first match the policy accepts wins.
var fieldPatterns = map[Field][]pattern{
	FieldPrice: {
		labelled(`(?:asking|list(?:ing)?|sale|purchase)\s+price`),
		labelled(`\bprice`),
		labelled(`(?:listed|offered|available|selling)\s+(?:for|at)`),
	},
	FieldRevenue: {
		monthlyLabel(`(?:revenue|sales)`),
		labelled(`(?:annual|yearly|gross|ttm|total)?\s*(?:revenue|sales|turnover)`),
		trailing(`(?:annual\s+|yearly\s+|gross\s+)?(?:revenue|sales)`),
	},
	FieldProfit: {
		monthlyLabel(`(?:net\s+)?(?:profit|cash\s*flow)`),
		labelled(`(?:net\s+profit|profit|cash\s*flow|sde|seller'?s?\s+discretionary\s+earnings|ebitda|net\s+income|earnings)`),
		trailing(`(?:annual\s+)?(?:net\s+)?(?:profit|cash\s*flow)`),
	},
}

// priceLabelBefore matches text that ends in a price label, so the amount
// that follows belongs to the price and not to a later trailing label.
var priceLabelBefore = regexp.MustCompile(`(?i)(?:price|asking|listed\s+for|offered\s+at|selling\s+for)\s*[:\-]?\s*$`)

// bareDollar is the last-resort price pattern: any "$X[KMB]" figure.
var bareDollar = regexp.MustCompile(`(?i)(\$\s*\d[\d,]*(?:\.\d+)?(?:\s*(?:thousand|million|billion|mm|k|m|b)\b)?)` + monthlySuffix)

// Financials is the result of running every field extractor over a text.
type Financials struct {
	Price   float64
	Revenue float64
	Profit  float64
}

// Extractor runs the ordered regex heuristics under a Policy.
type Extractor struct {
	policy *Policy
}

// NewExtractor returns an Extractor bound to policy.
func NewExtractor(policy *Policy) *Extractor {
	return &Extractor{policy: policy}
}

// Policy returns the policy this extractor enforces.
func (e *Extractor) Policy() *Policy { return e.policy }

// Price returns the asking price found in text as "$1,234", or "".
func (e *Extractor) Price(text string) string {
	return FormatUSD(e.ExtractAll(text).Price)
}

// Revenue returns the annual revenue found in text as "$1,234", or "".
func (e *Extractor) Revenue(text string) string {
	return FormatUSD(e.ExtractAll(text).Revenue)
}

// Profit returns the annual profit found in text as "$1,234", or "".
func (e *Extractor) Profit(text string) string {
	return FormatUSD(e.ExtractAll(text).Profit)
}

// ExtractAll extracts all three figures from a free-text blob. Labelled
// prices are claimed first, then revenue and profit, and the bare-dollar
// price fallback skips every span already claimed.
func (e *Extractor) ExtractAll(text string) Financials {
	var claimed [][2]int
	var out Financials

	out.Price, claimed = e.labelledValue(FieldPrice, text, claimed)
	out.Revenue, claimed = e.labelledValue(FieldRevenue, text, claimed)
	out.Profit, claimed = e.labelledValue(FieldProfit, text, claimed)

	if out.Price == 0 {
		for _, idx := range bareDollar.FindAllStringSubmatchIndex(text, -1) {
			if overlaps(claimed, idx[0], idx[1]) || isMonthly(text, idx) {
				continue
			}
			if v, ok := e.accept(text[idx[2]:idx[3]], false, FieldPrice); ok {
				out.Price = v
				break
			}
		}
	}
	return out
}

// FromField extracts a figure from the text of a dedicated element (for
// example the price badge of a card). Labels are optional there, so any
// acceptable money expression counts.
func (e *Extractor) FromField(f Field, text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	for _, p := range fieldPatterns[f] {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if v, ok := e.accept(text[idx[2]:idx[3]], p.monthly || isMonthly(text, idx), f); ok {
				return v
			}
		}
	}
	// Unlabelled element text: when any "$" is present only dollar figures
	// count, so stray years and counts are not mistaken for money.
	fallback := amountIndex
	if strings.Contains(text, "$") {
		fallback = bareDollar
	}
	for _, idx := range fallback.FindAllStringSubmatchIndex(text, -1) {
		if v, ok := e.accept(text[idx[2]:idx[3]], isMonthly(text, idx), f); ok {
			return v
		}
	}
	return 0
}

// Field extracts f, preferring the dedicated element text and falling back
// to the whole card text.
func (e *Extractor) Field(f Field, fieldText, cardText string) float64 {
	if v := e.FromField(f, fieldText); v > 0 {
		return v
	}
	all := e.ExtractAll(cardText)
	switch f {
	case FieldPrice:
		return all.Price
	case FieldRevenue:
		return all.Revenue
	case FieldProfit:
		return all.Profit
	}
	return 0
}

var amountIndex = regexp.MustCompile(`(?i)(` + amountPattern + `)` + monthlySuffix)

func (e *Extractor) labelledValue(f Field, text string, claimed [][2]int) (float64, [][2]int) {
	for _, p := range fieldPatterns[f] {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if overlaps(claimed, idx[2], idx[3]) {
				continue
			}
			if p.trailing && priceLabelBefore.MatchString(text[:idx[2]]) {
				continue
			}
			if v, ok := e.accept(text[idx[2]:idx[3]], p.monthly || isMonthly(text, idx), f); ok {
				return v, append(claimed, [2]int{idx[2], idx[3]})
			}
		}
	}
	return 0, claimed
}

// accept parses raw, rejects placeholders, annualises monthly revenue and
// profit, then applies the range check to the final value.
func (e *Extractor) accept(raw string, monthly bool, f Field) (float64, bool) {
	v, ok := ParseAmount(raw)
	if !ok || e.policy.IsPlaceholder(v) {
		return 0, false
	}
	if monthly {
		if f == FieldPrice {
			return 0, false
		}
		v *= 12
	}
	if !e.policy.Accept(v) {
		return 0, false
	}
	return v, true
}

// isMonthly checks the optional monthly-suffix group that every pattern
// carries as its last capture.
func isMonthly(text string, idx []int) bool {
	n := len(idx)
	return n >= 6 && idx[n-2] >= 0 && idx[n-1] > idx[n-2] && strings.TrimSpace(text[idx[n-2]:idx[n-1]]) != ""
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}
