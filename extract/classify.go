package extract

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsNoise reports whether a card is site chrome (navigation, account links,
// "sell your business" banners) rather than a listing.
func (p *Policy) IsNoise(title, rawURL string) bool {
	t := normaliseTitle(title)
	if utf8.RuneCountInString(t) < 4 {
		return true
	}
	if _, ok := p.uiKeywords[t]; ok {
		return true
	}
	return p.isExcludedURL(rawURL)
}

func (p *Policy) isExcludedURL(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	path := lower
	if u, err := url.Parse(lower); err == nil && u.Path != "" {
		path = strings.TrimRight(u.Path, "/")
	}

	for _, frag := range p.ExcludedURLFragments {
		frag = strings.ToLower(frag)
		if strings.HasSuffix(frag, ":") {
			if strings.HasPrefix(lower, frag) {
				return true
			}
			continue
		}
		if path == frag || strings.HasSuffix(path, frag) || strings.Contains(path, frag+"/") {
			return true
		}
	}
	return false
}

// IsFBA reports whether text describes an Amazon FBA business.
func (p *Policy) IsFBA(text string) bool {
	return containsAny(strings.ToLower(text), p.FBAKeywords)
}

// Category returns the first configured category whose keywords appear in
// text, or "other".
func (p *Policy) Category(text string) string {
	lower := strings.ToLower(text)
	for _, c := range p.Categories {
		if containsAny(lower, c.Keywords) {
			return c.Name
		}
	}
	return "other"
}

// Truncate cuts s to the policy's description length on a rune boundary.
func (p *Policy) Truncate(s string) string {
	if utf8.RuneCountInString(s) <= p.DescriptionMaxRunes {
		return s
	}
	runes := []rune(s)
	if p.DescriptionMaxRunes < minDescriptionRunes {
		return string(runes[:max(p.DescriptionMaxRunes, 0)])
	}
	return strings.TrimSpace(string(runes[:p.DescriptionMaxRunes-3])) + "..."
}

// containsAny matches keywords on word boundaries so "fba" does not hit
// inside unrelated words.
func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		from := 0
		for {
			i := strings.Index(lower[from:], kw)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(kw)
			if boundary(lower, start-1) && boundary(lower, end) {
				return true
			}
			from = start + 1
		}
	}
	return false
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// NormaliseText trims and collapses internal whitespace.
func NormaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normaliseTitle lower-cases a title and strips decorative punctuation such
// as arrows and ellipses so "View all »" matches the "view all" keyword.
func normaliseTitle(s string) string {
	s = strings.ToLower(NormaliseText(s))
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TitleKey is the secondary dedup key: lower-case alphanumerics only.
func TitleKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
