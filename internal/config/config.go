package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/reportscan/internal/crawler"
	"github.com/nao1215/reportscan/internal/httpclient"
	"github.com/nao1215/reportscan/internal/identity"
	"github.com/nao1215/reportscan/internal/report"
	"github.com/nao1215/reportscan/internal/source"
	"github.com/nao1215/reportscan/internal/summary"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "reportscan"

	// DefaultWindowDays is the length of the default crawl window ending today.
	DefaultWindowDays = 7

	// DefaultRetryLimit is the number of fetch attempts before a crawl
	// stops with a partial result.
	DefaultRetryLimit = crawler.DefaultRetryLimit

	DefaultRetryBackoff = crawler.DefaultRetryBackoff
	DefaultWorkers      = crawler.DefaultWorkers

	// DefaultTimeout bounds a single HTTP request, PDF downloads included.
	DefaultTimeout = httpclient.DefaultTimeout

	DefaultMaxBodySize = httpclient.DefaultMaxBodySize

	// DefaultFormat is the output format for terminals.
	DefaultFormat = report.FormatText

	// DefaultWatchSchedule runs after the market closes on weekdays.
	DefaultWatchSchedule = "0 18 * * 1-5"

	// DefaultWatchDays is the rolling window of a scheduled crawl.
	DefaultWatchDays = 1
)

// Config holds all options of a crawl. It is built by the command line
// layer and passed down explicitly.
type Config struct {
	// StartDate and EndDate are the inclusive window as YYYY-MM-DD.
	StartDate string
	EndDate   string

	// Source names the portal fetcher (see source.Names).
	Source string

	// BaseURLs override the endpoint of a source, keyed by source name.
	BaseURLs map[string]string

	// PageSize overrides the rows per result page. Zero keeps the portal default.
	PageSize int

	// Brokerages is the target brokerage set.
	Brokerages []string

	// UserAgents is the identity pool rotated on fetch failures.
	UserAgents []string

	// CategoryFile is the path of the listed-company reference table.
	// Empty disables category lookup.
	CategoryFile string

	RetryLimit   int
	RetryBackoff time.Duration
	Workers      int
	Timeout      time.Duration

	// ProxyAddress is an optional SOCKS5 proxy, "host:port" or "socks5://host:port".
	ProxyAddress string

	// MaxBodySize caps HTTP response bodies in bytes. Zero uses the default.
	MaxBodySize int64

	// Summarizer names the summarizer (see summary.Names).
	Summarizer string

	SummarizerModel     string
	SummarizerBaseURL   string
	SummarizerMaxTokens int

	// SummarizerFallback falls back to the extractive summary when an LLM
	// call fails.
	SummarizerFallback bool

	// GeminiAPIKey and AnthropicAPIKey are read from the environment.
	GeminiAPIKey    string
	AnthropicAPIKey string

	// Format is the report format (see report.Formats).
	Format string

	// ReportFile is the output path. Empty writes to stdout.
	ReportFile string

	// SaveToDB stores runs in DBDir, or in DatabaseURL when that is set.
	SaveToDB    bool
	DBDir       string
	DatabaseURL string

	// WatchSchedule and WatchDays configure recurring crawls.
	WatchSchedule string
	WatchDays     int

	// ConfigFilePath is the explicit config file path, if any.
	ConfigFilePath string

	Verbose bool
}

// NewConfig returns a Config with defaults for a crawl of the last
// DefaultWindowDays days ending at now.
func NewConfig(now time.Time) *Config {
	from, to := Window(now, DefaultWindowDays)
	return &Config{
		StartDate:          from,
		EndDate:            to,
		Source:             source.NameHankyung,
		Brokerages:         slices.Clone(crawler.DefaultBrokerages),
		UserAgents:         slices.Clone(identity.DefaultUserAgents),
		RetryLimit:         DefaultRetryLimit,
		RetryBackoff:       DefaultRetryBackoff,
		Workers:            DefaultWorkers,
		Timeout:            DefaultTimeout,
		MaxBodySize:        DefaultMaxBodySize,
		Summarizer:         summary.NameExtractive,
		SummarizerFallback: true,
		Format:             DefaultFormat,
		SaveToDB:           true,
		DBDir:              XDGDataDir(),
		WatchSchedule:      DefaultWatchSchedule,
		WatchDays:          DefaultWatchDays,
	}
}

// Window returns the window of days calendar days ending at now, bounds
// included.
func Window(now time.Time, days int) (from, to string) {
	if days < 1 {
		days = 1
	}
	return now.AddDate(0, 0, -(days - 1)).Format(time.DateOnly), now.Format(time.DateOnly)
}

// XDGDataDir returns the XDG data directory, where the SQLite database lives.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// APIKey returns the key for the configured summarizer.
func (c *Config) APIKey() string {
	switch c.Summarizer {
	case summary.NameGemini:
		return c.GeminiAPIKey
	case summary.NameClaude:
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

// BaseURL returns the endpoint override for the configured source.
func (c *Config) BaseURL() string {
	return c.BaseURLs[c.Source]
}

// ApplyEnv reads secrets from the environment through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	} else if v := getenv("GOOGLE_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	start, err := time.Parse(time.DateOnly, c.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start date %q", ErrInvalidDate, c.StartDate)
	}
	end, err := time.Parse(time.DateOnly, c.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end date %q", ErrInvalidDate, c.EndDate)
	}
	if start.After(end) {
		return ErrDateOrder
	}

	if c.RetryLimit <= 0 {
		return ErrInvalidRetryLimit
	}
	if c.RetryBackoff < 0 {
		return ErrInvalidRetryBackoff
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if !slices.Contains(source.Names(), c.Source) {
		return fmt.Errorf("%w: %q", ErrUnknownSource, c.Source)
	}
	if !slices.Contains(summary.Names(), c.Summarizer) {
		return fmt.Errorf("%w: %q", ErrUnknownSummarizer, c.Summarizer)
	}
	if !slices.Contains(report.Formats(), c.Format) {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, c.Format)
	}

	if !slices.ContainsFunc(c.Brokerages, func(b string) bool { return strings.TrimSpace(b) != "" }) {
		return ErrNoBrokerage
	}
	return nil
}

// ValidateWatch checks the settings used only by recurring crawls.
func (c *Config) ValidateWatch() error {
	if c.WatchDays <= 0 {
		return ErrInvalidWatchDays
	}
	return nil
}
