package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Browser BrowserConfig
	Scraper ScraperConfig
	Extract ExtractConfig
	CORS    CORSConfig
	Log     LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: $PORT, then 3000
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 5

	// DefaultProxy is the proxy URL for all outgoing page loads.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls page rendering.
type ScraperConfig struct {
	// Navigator selects how pages are loaded: "browser" or "http".
	Navigator string // default: "browser"

	// RenderTimeout bounds navigation plus the network-idle wait.
	RenderTimeout time.Duration // default: 30s

	// IdleWindow is how long the network must stay quiet before the page
	// counts as rendered.
	IdleWindow time.Duration // default: 500ms

	// Stealth injects anti-automation-detection JS before navigation.
	Stealth bool // default: true

	// BlockTrackers fails requests to known ad and analytics hosts.
	BlockTrackers bool // default: false

	// BlockedResourceTypes lists resource types the browser never downloads,
	// any of "Image", "Stylesheet", "Font", "Media". Blocking anything swaps
	// the network-idle wait for a DOM-stability wait. default: none
	BlockedResourceTypes []string
}

// ExtractConfig controls URL validation and field normalization.
type ExtractConfig struct {
	// AllowedDomain is the only host (plus its subdomains) accepted.
	AllowedDomain string // default: "eurocompcr.com"

	// DescriptionLimit truncates descriptions to this many runes; 0 disables.
	DescriptionLimit int // default: 200

	TaxFactor    float64 // default: 1.13
	ExchangeRate float64 // default: 505
	TaxFirst     bool    // default: true

	// SelectorsFile optionally replaces the built-in selector candidates.
	SelectorsFile string
}

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	AllowedOrigins []string // default: ["*"]
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("EUROCOMP_HOST", "0.0.0.0"),
			Port: envIntOr("EUROCOMP_PORT", envIntOr("PORT", 3000)),
			Mode: envOr("EUROCOMP_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("EUROCOMP_HEADLESS", true),
			MaxPages:     envIntOr("EUROCOMP_MAX_PAGES", 5),
			DefaultProxy: os.Getenv("EUROCOMP_PROXY"),
			NoSandbox:    envBoolOr("EUROCOMP_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("EUROCOMP_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			Navigator:            envOr("EUROCOMP_NAVIGATOR", "browser"),
			RenderTimeout:        envDurationOr("EUROCOMP_RENDER_TIMEOUT", 30*time.Second),
			IdleWindow:           envDurationOr("EUROCOMP_IDLE_WINDOW", 500*time.Millisecond),
			Stealth:              envBoolOr("EUROCOMP_STEALTH", true),
			BlockTrackers:        envBoolOr("EUROCOMP_BLOCK_TRACKERS", false),
			BlockedResourceTypes: envSliceOr("EUROCOMP_BLOCKED_RESOURCES", nil),
		},
		Extract: ExtractConfig{
			AllowedDomain:    envOr("EUROCOMP_ALLOWED_DOMAIN", "eurocompcr.com"),
			DescriptionLimit: envIntOr("EUROCOMP_DESCRIPTION_LIMIT", 200),
			TaxFactor:        envFloatOr("EUROCOMP_TAX_FACTOR", 1.13),
			ExchangeRate:     envFloatOr("EUROCOMP_EXCHANGE_RATE", 505),
			TaxFirst:         envBoolOr("EUROCOMP_TAX_FIRST", true),
			SelectorsFile:    os.Getenv("EUROCOMP_SELECTORS_FILE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: envSliceOr("EUROCOMP_CORS_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  envOr("EUROCOMP_LOG_LEVEL", "info"),
			Format: envOr("EUROCOMP_LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Scraper.Navigator != "browser" && c.Scraper.Navigator != "http" {
		return fmt.Errorf("navigator must be 'browser' or 'http', got: %s", c.Scraper.Navigator)
	}
	if c.Scraper.RenderTimeout <= 0 {
		return fmt.Errorf("render timeout must be positive, got %s", c.Scraper.RenderTimeout)
	}
	if c.Browser.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive, got %d", c.Browser.MaxPages)
	}
	if c.Extract.AllowedDomain == "" {
		return fmt.Errorf("allowed domain is required (set EUROCOMP_ALLOWED_DOMAIN)")
	}
	if c.Extract.TaxFactor <= 0 || c.Extract.ExchangeRate <= 0 {
		return fmt.Errorf("tax factor and exchange rate must be positive, got %g and %g",
			c.Extract.TaxFactor, c.Extract.ExchangeRate)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
