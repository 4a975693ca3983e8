package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Details are the optional fields the detail-page pass layers onto a listing.
type Details struct {
	Location        string
	Employees       int
	EstablishedYear int
	MonthlyTraffic  int64
	Inventory       string
}

var (
	establishedRegexp = regexp.MustCompile(`(?i)(?:year\s+established|established|founded|business\s+created|in\s+business\s+since|since)\s*(?:in)?\s*[:\-]?\s*((?:19|20)\d{2})\b`)
	employeesRegexp   = regexp.MustCompile(`(?i)(?:employees|staff|team\s+size)\s*[:\-]?\s*(\d{1,5})\b|\b(\d{1,5})\s+(?:full[- ]time\s+|part[- ]time\s+)?employees`)
	locationRegexp    = regexp.MustCompile(`(?i)(?:location|located\s+in|based\s+in)\s*[:\-]?\s*([^\n|;]{2,80})`)
	trafficRegexp     = regexp.MustCompile(`(?i)(?:monthly\s+(?:unique\s+)?(?:visitors|traffic|page\s*views|sessions)|(?:visitors|traffic|page\s*views|sessions)\s*(?:/|per)\s*mo(?:nth)?)\s*[:\-]?\s*(\d[\d,]*(?:\.\d+)?(?:[ \t]*[km]\b)?)`)
	inventoryRegexp   = regexp.MustCompile(`(?i)inventory\s*(?:value|included|at\s+cost)?\s*[:\-]?\s*(` + amountPattern + `)`)

	// locationStop cuts a captured location at the next field label.
	locationStop = regexp.MustCompile(`(?i)\s{2,}|\s+(?:employees|established|founded|asking|price|revenue|cash\s*flow|profit|inventory|reason|industry|category)\b`)
)

// DetailFields pulls the enhanced fields out of a detail page's text.
// Text should keep line breaks between blocks.
func (p *Policy) DetailFields(text string) Details {
	var d Details

	if m := establishedRegexp.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil && y >= 1900 && y <= time.Now().Year() {
			d.EstablishedYear = y
		}
	}

	if m := employeesRegexp.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if n, err := strconv.Atoi(raw); err == nil {
			d.Employees = n
		}
	}

	if m := locationRegexp.FindStringSubmatch(text); m != nil {
		loc := m[1]
		if i := locationStop.FindStringIndex(loc); i != nil {
			loc = loc[:i[0]]
		}
		loc = strings.Trim(NormaliseText(loc), " .,:-")
		if len(loc) >= 2 && !strings.ContainsAny(loc, "$") {
			d.Location = loc
		}
	}

	if m := trafficRegexp.FindStringSubmatch(text); m != nil {
		if v, ok := ParseAmount(m[1]); ok {
			d.MonthlyTraffic = int64(v)
		}
	}

	if m := inventoryRegexp.FindStringSubmatch(text); m != nil {
		if v, ok := ParseAmount(m[1]); ok && v > 0 && !p.IsPlaceholder(v) {
			d.Inventory = FormatUSD(v)
		}
	}

	return d
}
