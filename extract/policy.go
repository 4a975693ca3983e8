package extract

import (
	_ "embed"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

//go:embed policy.json
var defaultPolicyJSON []byte

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Category maps a business category to the keywords that identify it.
type Category struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Policy is the canonical acceptance policy for financial figures and the
// keyword lists used to filter noise. It is data, not code: the lists change
// every time a marketplace changes its markup.
type Policy struct {
	MinValue             float64    `json:"min_value"`
	MaxValue             float64    `json:"max_value"`
	PlaceholderValues    []string   `json:"placeholder_values"`
	UIKeywords           []string   `json:"ui_keywords"`
	ExcludedURLFragments []string   `json:"excluded_url_fragments"`
	FBAKeywords          []string   `json:"fba_keywords"`
	Categories           []Category `json:"categories"`
	DescriptionMaxRunes  int        `json:"description_max_runes"`

	placeholders map[int64]struct{}
	uiKeywords   map[string]struct{}
}

// DefaultPolicy returns the embedded policy.
func DefaultPolicy() *Policy {
	p, err := ParsePolicy(defaultPolicyJSON)
	if err != nil {
		panic(fmt.Sprintf("extract: embedded policy is invalid: %v", err))
	}
	return p
}

// LoadPolicy reads a policy from path, or returns the embedded default when
// path is empty.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %q: %w", path, err)
	}
	return ParsePolicy(data)
}

// minDescriptionRunes leaves room for the "..." suffix plus one rune.
const minDescriptionRunes = 4

// ParsePolicy decodes and indexes a JSON policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("policy: decode: %w", err)
	}
	if p.MinValue <= 0 || p.MaxValue <= p.MinValue {
		return nil, fmt.Errorf("policy: invalid range %.0f-%.0f", p.MinValue, p.MaxValue)
	}
	switch {
	case p.DescriptionMaxRunes == 0:
		p.DescriptionMaxRunes = 500
	case p.DescriptionMaxRunes < minDescriptionRunes:
		return nil, fmt.Errorf("policy: description_max_runes %d is below %d", p.DescriptionMaxRunes, minDescriptionRunes)
	}

	p.placeholders = make(map[int64]struct{}, len(p.PlaceholderValues))
	for _, raw := range p.PlaceholderValues {
		v, ok := ParseAmount(raw)
		if !ok {
			return nil, fmt.Errorf("policy: unparseable placeholder %q", raw)
		}
		p.placeholders[cents(v)] = struct{}{}
	}

	p.uiKeywords = make(map[string]struct{}, len(p.UIKeywords))
	for _, kw := range p.UIKeywords {
		p.uiKeywords[normaliseTitle(kw)] = struct{}{}
	}
	return &p, nil
}

// IsPlaceholder reports whether v is a denylisted template value.
func (p *Policy) IsPlaceholder(v float64) bool {
	_, ok := p.placeholders[cents(v)]
	return ok
}

// InRange reports whether v is inside the plausible price range.
func (p *Policy) InRange(v float64) bool {
	return v >= p.MinValue && v <= p.MaxValue
}

// Accept applies both the range and the placeholder check.
func (p *Policy) Accept(v float64) bool {
	return p.InRange(v) && !p.IsPlaceholder(v)
}

func cents(v float64) int64 {
	return int64(v*100 + 0.5)
}
