package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"bizlist-scraper/fetch"
)

// Fetch modes.
const (
	FetchModeProxy   = "proxy"
	FetchModeBrowser = "browser"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ScraperAPIKey      string
	ScraperAPIEndpoint string
	FetchMode          string
	RenderJS           bool
	CountryCode        string

	MaxConcurrency    int
	RateLimitMs       int
	MaxRetries        int
	RequestTimeoutSec int
	PagesPerSite      int
	MaxListings       int

	CSVOutputPath    string
	RawCSVOutputPath string
	XLSXOutputPath   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTLHours int

	GCPProject          string
	BigQueryDataset     string
	BigQueryTable       string
	FirestoreCollection string

	ChromeBin  string
	LogLevel   string
	PolicyPath string
	SitesPath  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		ScraperAPIKey:      getEnv("SCRAPERAPI_KEY", ""),
		ScraperAPIEndpoint: getEnv("SCRAPERAPI_ENDPOINT", fetch.DefaultEndpoint),
		FetchMode:          strings.ToLower(getEnv("FETCH_MODE", FetchModeProxy)),
		RenderJS:           getEnvBool("RENDER_JS", false),
		CountryCode:        getEnv("COUNTRY_CODE", "us"),

		MaxConcurrency:    getEnvInt("MAX_CONCURRENCY", 5),
		RateLimitMs:       getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		RequestTimeoutSec: getEnvInt("REQUEST_TIMEOUT_SEC", 70),
		PagesPerSite:      getEnvInt("PAGES_PER_SITE", 0),
		MaxListings:       getEnvInt("MAX_LISTINGS", 0),

		CSVOutputPath:    getEnv("CSV_OUTPUT_PATH", "./output/listings.csv"),
		RawCSVOutputPath: getEnv("RAW_CSV_OUTPUT_PATH", "./output/raw_listings.csv"),
		XLSXOutputPath:   getEnv("XLSX_OUTPUT_PATH", "./output/listings.xlsx"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "bizlist"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "bizlist"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTLHours: getEnvInt("CACHE_TTL_HOURS", 24),

		GCPProject:          getEnv("GCP_PROJECT", ""),
		BigQueryDataset:     getEnv("BIGQUERY_DATASET", "bizlist"),
		BigQueryTable:       getEnv("BIGQUERY_TABLE", "listings"),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", "business_listings"),

		ChromeBin:  getEnv("CHROME_BIN", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		PolicyPath: getEnv("POLICY_PATH", ""),
		SitesPath:  getEnv("SITES_PATH", ""),
	}
}

// Validate checks settings that would make a scrape run fail outright.
// A missing API key in proxy mode wraps fetch.ErrMissingAPIKey.
func (c *Config) Validate() error {
	switch c.FetchMode {
	case FetchModeProxy:
		if c.ScraperAPIKey == "" {
			return fmt.Errorf("config: SCRAPERAPI_KEY is required in %s mode: %w", FetchModeProxy, fetch.ErrMissingAPIKey)
		}
	case FetchModeBrowser:
	default:
		return fmt.Errorf("config: unknown FETCH_MODE %q (want %s or %s)", c.FetchMode, FetchModeProxy, FetchModeBrowser)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("config: MAX_CONCURRENCY must be at least 1, got %d", c.MaxConcurrency)
	}
	return nil
}

// RequestTimeout is the per-request timeout as a Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// CacheTTL is the page-cache lifetime as a Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
