package extract

import (
	"fmt"
	"strings"
	"testing"
)

func TestIsNoise(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		title string
		url   string
		want  bool
	}{
		{"Sell Your Business", "https://site.com/sell-your-business", true},
		{"View all »", "https://site.com/listings", true},
		{"Log In", "https://site.com/account/login", true},
		{"Our Blog", "https://site.com/blog/", true},
		{"FAQ", "https://site.com/help", true},
		{"Profitable Amazon FBA Kitchen Brand", "https://site.com/listing/123", false},
		{"About Face Cosmetics Store", "https://site.com/listing/about-face-cosmetics", false},
		{"Home Decor FBA Brand", "https://site.com/business/home-decor", false},
		{"Accounting Firm in Ohio", "https://site.com/accounting-firm-ohio", false},
		{"Email us", "mailto:broker@site.com", true},
	}

	for _, tt := range tests {
		if got := p.IsNoise(tt.title, tt.url); got != tt.want {
			t.Errorf("IsNoise(%q, %q) = %v; want %v", tt.title, tt.url, got, tt.want)
		}
	}
}

func TestIsFBA(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		text string
		want bool
	}{
		{"Established Amazon FBA brand in pet supplies", true},
		{"Sells through Fulfillment by Amazon", true},
		{"Shopify dropshipping store", false},
		{"Fbapp analytics tool", false},
	}

	for _, tt := range tests {
		if got := p.IsFBA(tt.text); got != tt.want {
			t.Errorf("IsFBA(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}

func TestCategory(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		text string
		want string
	}{
		{"Amazon FBA kitchen brand", "amazon_fba"},
		{"Shopify store selling candles", "ecommerce"},
		{"B2B SaaS for dentists", "saas"},
		{"Affiliate content site in the outdoor niche", "content"},
		{"Laundromat with real estate", "other"},
	}

	for _, tt := range tests {
		if got := p.Category(tt.text); got != tt.want {
			t.Errorf("Category(%q) = %q; want %q", tt.text, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	p := DefaultPolicy()
	long := strings.Repeat("a", 600)

	got := p.Truncate(long)
	if len([]rune(got)) != p.DescriptionMaxRunes {
		t.Errorf("truncated length: got %d, want %d", len([]rune(got)), p.DescriptionMaxRunes)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated text should end with ellipsis")
	}
	if p.Truncate("short") != "short" {
		t.Errorf("short text should be unchanged")
	}
}

func TestTitleKey(t *testing.T) {
	if TitleKey("Pet Brand - FBA!") != TitleKey("pet brand fba") {
		t.Errorf("TitleKey should ignore case and punctuation")
	}
}

func TestDetailFields(t *testing.T) {
	p := DefaultPolicy()
	text := "Business Overview\n" +
		"Location: Austin, TX\n" +
		"Established: 2017\n" +
		"Employees: 4\n" +
		"Monthly visitors: 45,000\n" +
		"Inventory value: $85,000\n"

	d := p.DetailFields(text)
	if d.Location != "Austin, TX" {
		t.Errorf("Location: got %q, want %q", d.Location, "Austin, TX")
	}
	if d.EstablishedYear != 2017 {
		t.Errorf("EstablishedYear: got %d, want 2017", d.EstablishedYear)
	}
	if d.Employees != 4 {
		t.Errorf("Employees: got %d, want 4", d.Employees)
	}
	if d.MonthlyTraffic != 45000 {
		t.Errorf("MonthlyTraffic: got %d, want 45000", d.MonthlyTraffic)
	}
	if d.Inventory != "$85,000" {
		t.Errorf("Inventory: got %q, want %q", d.Inventory, "$85,000")
	}
}

func TestDetailFieldsInlineEmployees(t *testing.T) {
	p := DefaultPolicy()
	d := p.DetailFields("Run by the owner with 12 full-time employees. Founded in 2009.")
	if d.Employees != 12 {
		t.Errorf("Employees: got %d, want 12", d.Employees)
	}
	if d.EstablishedYear != 2009 {
		t.Errorf("EstablishedYear: got %d, want 2009", d.EstablishedYear)
	}
}

func TestLoadPolicyRejectsBadRange(t *testing.T) {
	if _, err := ParsePolicy([]byte(`{"min_value": 10, "max_value": 5}`)); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestDescriptionLimitTooSmall(t *testing.T) {
	tests := []struct {
		limit   int
		wantErr bool
	}{
		{0, false},
		{1, true},
		{3, true},
		{4, false},
		{-5, true},
	}

	for _, tt := range tests {
		doc := fmt.Sprintf(`{"min_value": 1000, "max_value": 500000000, "description_max_runes": %d}`, tt.limit)
		p, err := ParsePolicy([]byte(doc))
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(limit=%d) error = %v; wantErr %v", tt.limit, err, tt.wantErr)
			continue
		}
		if err == nil {
			if got := p.Truncate("hello world"); len([]rune(got)) > p.DescriptionMaxRunes {
				t.Errorf("Truncate(limit=%d) = %q; longer than limit", p.DescriptionMaxRunes, got)
			}
		}
	}

	p := &Policy{DescriptionMaxRunes: 2}
	if got := p.Truncate("hello world"); got != "he" {
		t.Errorf("Truncate with limit 2 = %q; want %q", got, "he")
	}
}
