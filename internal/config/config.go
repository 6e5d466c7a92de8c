// Package config defines fetch, render and archive options.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// RedirectPolicy defines how redirects are handled.
type RedirectPolicy string

const (
	RedirectFollow     RedirectPolicy = "follow"      // Follow redirects
	RedirectNoFollow   RedirectPolicy = "no_follow"   // Don't follow redirects
	RedirectFollowSame RedirectPolicy = "follow_same" // Follow only same-host redirects
)

// WaitCondition defines when a rendered page counts as loaded.
type WaitCondition string

const (
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitLoad             WaitCondition = "load"
	WaitSelector         WaitCondition = "selector"
)

// Config holds everything needed to fetch, render and archive responses.
type Config struct {
	// === Fetching ===

	// User-Agent string
	UserAgent string `json:"user_agent"`

	// Request timeout
	Timeout time.Duration `json:"timeout"`

	// Maximum number of retries for failed requests
	MaxRetries int `json:"max_retries"`

	// Base delay for exponential backoff
	RetryBackoff time.Duration `json:"retry_backoff"`

	// Maximum response size in bytes (0 = unlimited)
	MaxResponseSize int64 `json:"max_response_size"`

	// Maximum requests per second (0 = unlimited)
	RequestsPerSecond float64 `json:"requests_per_second"`

	// Headers added to every request
	CustomHeaders map[string]string `json:"custom_headers,omitempty"`

	// === Redirects ===

	MaxRedirects   int            `json:"max_redirects"`
	RedirectPolicy RedirectPolicy `json:"redirect_policy"`

	// === Decoding ===

	// Encoding forced on every text response (empty = resolve per response)
	ForceEncoding string `json:"force_encoding,omitempty"`

	// === Rendering ===

	RenderTimeout time.Duration `json:"render_timeout"`
	WaitCondition WaitCondition `json:"wait_condition"`

	// Selector to wait for (when WaitCondition = selector)
	WaitSelector string `json:"wait_selector,omitempty"`

	// Chromium executable path (empty = found on PATH)
	ChromiumPath string `json:"chromium_path,omitempty"`

	// === Archive ===

	// SQLite database file
	DatabasePath string `json:"database_path"`

	// Query parameters dropped when computing the normalized URL of an
	// archived response
	IgnoreQueryParams []string `json:"ignore_query_params"`

	// === Logging ===

	// zerolog level name: trace, debug, info, warn, error
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		UserAgent:         "scrapekit/1.0 (+https://github.com/spider-crawler/scrapekit)",
		Timeout:           30 * time.Second,
		MaxRetries:        2,
		RetryBackoff:      time.Second,
		MaxResponseSize:   10 * 1024 * 1024, // 10MB
		RequestsPerSecond: 5,

		MaxRedirects:   10,
		RedirectPolicy: RedirectFollow,

		RenderTimeout: 30 * time.Second,
		WaitCondition: WaitDOMContentLoaded,

		DatabasePath: "scrapekit.db",
		IgnoreQueryParams: []string{
			"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
			"gclid", "fbclid", "msclkid",
		},

		LogLevel: "info",
	}
}

// Validate clamps out-of-range values and rejects unknown enums.
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Timeout < time.Second {
		c.Timeout = time.Second
	}
	if c.MaxRedirects < 0 {
		c.MaxRedirects = 0
	}
	if c.RenderTimeout < time.Second {
		c.RenderTimeout = time.Second
	}
	if c.RequestsPerSecond < 0 {
		c.RequestsPerSecond = 0
	}

	switch c.RedirectPolicy {
	case RedirectFollow, RedirectNoFollow, RedirectFollowSame:
	case "":
		c.RedirectPolicy = RedirectFollow
	default:
		return fmt.Errorf("unknown redirect policy '%s'", c.RedirectPolicy)
	}

	switch c.WaitCondition {
	case WaitDOMContentLoaded, WaitLoad:
	case WaitSelector:
		if c.WaitSelector == "" {
			return fmt.Errorf("wait condition '%s' needs wait_selector", c.WaitCondition)
		}
	case "":
		c.WaitCondition = WaitDOMContentLoaded
	default:
		return fmt.Errorf("unknown wait condition '%s'", c.WaitCondition)
	}

	return nil
}

// Save saves the configuration to a JSON file.
func (c *Config) Save(filePath string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load reads a JSON file on top of DefaultConfig.
func Load(filePath string) (*Config, error) {
	return LoadOver(DefaultConfig(), filePath)
}

// LoadOver reads a JSON file on top of a copy of base. Fields the file does
// not set keep the value from base.
func LoadOver(base *Config, filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := base.Clone()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	clone.IgnoreQueryParams = make([]string, len(c.IgnoreQueryParams))
	copy(clone.IgnoreQueryParams, c.IgnoreQueryParams)

	if c.CustomHeaders != nil {
		clone.CustomHeaders = make(map[string]string, len(c.CustomHeaders))
		for k, v := range c.CustomHeaders {
			clone.CustomHeaders[k] = v
		}
	}

	return &clone
}

// Presets for common fetch scenarios
var (
	// PresetPolite fetches slowly with generous timeouts
	PresetPolite = &Config{
		RequestsPerSecond: 1,
		Timeout:           60 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      2 * time.Second,
	}

	// PresetFast trades politeness for throughput
	PresetFast = &Config{
		RequestsPerSecond: 50,
		Timeout:           10 * time.Second,
		MaxRetries:        0,
	}
)

// Preset returns DefaultConfig with the named preset's non-zero fields
// applied. Unknown names are an error.
func Preset(name string) (*Config, error) {
	var p *Config
	switch name {
	case "polite":
		p = PresetPolite
	case "fast":
		p = PresetFast
	default:
		return nil, fmt.Errorf("unknown preset '%s'", name)
	}

	c := DefaultConfig()
	if p.RequestsPerSecond != 0 {
		c.RequestsPerSecond = p.RequestsPerSecond
	}
	if p.Timeout != 0 {
		c.Timeout = p.Timeout
	}
	c.MaxRetries = p.MaxRetries
	if p.RetryBackoff != 0 {
		c.RetryBackoff = p.RetryBackoff
	}
	return c, nil
}
