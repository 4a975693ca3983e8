package sites

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bizlist-scraper/extract"
)

const leafBlocks = "h1, h2, h3, h4, h5, h6, p, li, dt, dd, td, th, div"

// PageText flattens a detail page into one line per leaf block, so labelled
// values ("Location: Austin, TX") stay on their own line. Scripts and page
// chrome are removed from doc in the process.
func PageText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer, header").Remove()

	var b strings.Builder
	doc.Find(leafBlocks).Each(func(_ int, s *goquery.Selection) {
		if s.Children().Filter(leafBlocks).Length() > 0 {
			return
		}
		text := extract.NormaliseText(s.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteByte('\n')
	})
	return b.String()
}

// PageDescription returns the meta description or the first substantial
// paragraph of a detail page.
func PageDescription(doc *goquery.Document) string {
	if d, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(d) != "" {
		return extract.NormaliseText(d)
	}
	var desc string
	doc.Find("main p, article p, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := extract.NormaliseText(s.Text())
		if len(t) > 60 {
			desc = t
			return false
		}
		return true
	})
	return desc
}
