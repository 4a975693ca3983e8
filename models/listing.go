package models

import "time"

// RawListing holds unprocessed card data exactly as scraped from a
// marketplace page. It is written to CSV before any cleaning.
type RawListing struct {
	Source      string
	Title       string
	URL         string
	RawPrice    string
	RawRevenue  string
	RawProfit   string
	Description string
	CardText    string
	ScrapedAt   time.Time
	RunID       string
}

// Listing is the cleaned, validated business-for-sale record.
//
// Financial figures are stored both as USD floats (0 means unknown) and as
// the "$123,456" display strings the CSV exports carry.
type Listing struct {
	ID     int64  `bson:"-" firestore:"-" bigquery:"-"`
	Source string `bson:"source" firestore:"source" bigquery:"source"`
	Name   string `bson:"name" firestore:"name" bigquery:"name"`
	URL    string `bson:"_id" firestore:"url" bigquery:"url"`

	Price   float64 `bson:"price" firestore:"price" bigquery:"price"`
	Revenue float64 `bson:"revenue" firestore:"revenue" bigquery:"revenue"`
	Profit  float64 `bson:"profit" firestore:"profit" bigquery:"profit"`

	PriceText   string `bson:"price_text" firestore:"price_text" bigquery:"price_text"`
	RevenueText string `bson:"revenue_text" firestore:"revenue_text" bigquery:"revenue_text"`
	ProfitText  string `bson:"profit_text" firestore:"profit_text" bigquery:"profit_text"`

	Multiple      float64 `bson:"multiple" firestore:"multiple" bigquery:"multiple"`
	MultipleBasis string  `bson:"multiple_basis" firestore:"multiple_basis" bigquery:"multiple_basis"`

	Description string `bson:"description" firestore:"description" bigquery:"description"`
	IsFBA       bool   `bson:"is_fba" firestore:"is_fba" bigquery:"is_fba"`
	Category    string `bson:"category" firestore:"category" bigquery:"category"`
	Quality     int    `bson:"quality" firestore:"quality" bigquery:"quality"`

	// Populated by the detail enricher.
	Location        string `bson:"location" firestore:"location" bigquery:"location"`
	Employees       int    `bson:"employees" firestore:"employees" bigquery:"employees"`
	EstablishedYear int    `bson:"established_year" firestore:"established_year" bigquery:"established_year"`
	MonthlyTraffic  int64  `bson:"monthly_traffic" firestore:"monthly_traffic" bigquery:"monthly_traffic"`
	Inventory       string `bson:"inventory" firestore:"inventory" bigquery:"inventory"`

	RunID     string    `bson:"run_id" firestore:"run_id" bigquery:"run_id"`
	ScrapedAt time.Time `bson:"scraped_at" firestore:"scraped_at" bigquery:"scraped_at"`
}

// HasFinancials reports whether at least one figure survived extraction.
func (l *Listing) HasFinancials() bool {
	return l.Price > 0 || l.Revenue > 0 || l.Profit > 0
}

// SourceStat is one row of the per-source breakdown.
type SourceStat struct {
	Source       string
	Listings     int
	FBAListings  int
	AveragePrice float64
}

// InsightReport holds the computed analytics over a cleaned dataset.
type InsightReport struct {
	TotalListings  int
	FBAListings    int
	PricedListings int
	AveragePrice   float64
	MedianPrice    float64
	MinPrice       float64
	MaxPrice       float64
	MedianMultiple float64
	MostExpensive  *Listing
	BestDeals      []*Listing
	BySource       []SourceStat
	ByCategory     map[string]int
}
