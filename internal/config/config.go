package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type CommonHTTP struct {
	Timeout   time.Duration `yaml:"timeout"` // 0 = client default
	UserAgent string        `yaml:"user_agent"`
}

type BulletinConfig struct {
	Enabled bool       `yaml:"enabled"`
	URL     string     `yaml:"url"` // RSS/Atom bulletin feed
	HTTP    CommonHTTP `yaml:"http"`
}

type StatisticsConfig struct {
	Enabled  bool       `yaml:"enabled"`
	URL      string     `yaml:"url"`       // Socrata-style JSON endpoint
	Limit    int        `yaml:"limit"`     // total record cap per run
	PageSize int        `yaml:"page_size"` // records per request
	HTTP     CommonHTTP `yaml:"http"`
	// Passthrough routes tried after the direct URL, "{url}" is replaced by
	// the escaped target. At most two are used.
	Passthroughs    []string `yaml:"passthroughs"`
	DefaultDisease  string   `yaml:"default_disease"`
	DefaultCategory string   `yaml:"default_category"`
	DefaultPathogen string   `yaml:"default_pathogen"`
}

type NewsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`              // search passthrough, queried with ?q=
	MaxKeywords    int           `yaml:"max_keywords"`     // distinct keywords per run
	Delay          time.Duration `yaml:"delay"`            // pause between consecutive queries
	MaxResults     int           `yaml:"max_results"`      // accumulated item ceiling
	MaxRateLimited int           `yaml:"max_rate_limited"` // consecutive 429s before giving up
	HTTP           CommonHTTP    `yaml:"http"`
}

type SpreadsheetConfig struct {
	URL  string     `yaml:"url"`  // published CSV export
	Path string     `yaml:"path"` // local CSV, used when url is empty
	HTTP CommonHTTP `yaml:"http"`
}

type SourcesConfig struct {
	Bulletin    BulletinConfig    `yaml:"bulletin"`
	Statistics  StatisticsConfig  `yaml:"statistics"`
	News        NewsConfig        `yaml:"news"`
	Spreadsheet SpreadsheetConfig `yaml:"spreadsheet"`
}

type CacheConfig struct {
	MaxKeys int           `yaml:"max_keys"`
	TTL     time.Duration `yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"` // empty disables the shared cache
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type GeocodeConfig struct {
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"api_key"`     // empty disables the external tier
	Budget      int           `yaml:"budget"`      // external lookups per run
	Concurrency int           `yaml:"concurrency"` // parallel item resolutions
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	Cache       CacheConfig   `yaml:"cache"`
	Redis       RedisConfig   `yaml:"redis"`
}

type FilterConfig struct {
	ExtraCategoryLabels []string `yaml:"extra_category_labels"`
	ExtraNames          []string `yaml:"extra_names"`
}

type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type SessionConfig struct {
	PermissionTimeout time.Duration `yaml:"permission_timeout"`
	MaxSessions       int           `yaml:"max_sessions"`
	IdleTTL           time.Duration `yaml:"idle_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
}

type Config struct {
	Sources SourcesConfig `yaml:"sources"`
	Geocode GeocodeConfig `yaml:"geocode"`
	Filter  FilterConfig  `yaml:"filter"`
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// Load reads the YAML file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	applyEnv(c)
	c.applyDefaults()
	return c, nil
}

// Default returns a config with every source enabled and the documented
// defaults filled in.
func Default() *Config {
	c := &Config{}
	c.Sources.Bulletin.Enabled = true
	c.Sources.Statistics.Enabled = true
	c.Sources.News.Enabled = true
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	s := &c.Sources
	if s.Bulletin.URL == "" {
		s.Bulletin.URL = "https://www.who.int/feeds/entity/csr/don/en/rss.xml"
	}
	if s.Statistics.URL == "" {
		s.Statistics.URL = "https://data.cdc.gov/resource/pwn4-m3yp.json"
	}
	if s.Statistics.Limit <= 0 {
		s.Statistics.Limit = 500
	}
	if s.Statistics.PageSize <= 0 || s.Statistics.PageSize > s.Statistics.Limit {
		s.Statistics.PageSize = s.Statistics.Limit
	}
	if s.Statistics.Passthroughs == nil {
		s.Statistics.Passthroughs = []string{
			"https://corsproxy.io/?{url}",
			"https://api.allorigins.win/raw?url={url}",
		}
	}
	if s.Statistics.DefaultDisease == "" {
		s.Statistics.DefaultDisease = "COVID-19"
	}
	if s.Statistics.DefaultCategory == "" {
		s.Statistics.DefaultCategory = "Respiratory Outbreaks"
	}
	if s.Statistics.DefaultPathogen == "" {
		s.Statistics.DefaultPathogen = "SARS-CoV-2"
	}
	if s.News.MaxKeywords <= 0 {
		s.News.MaxKeywords = 15
	}
	if s.News.Delay == 0 {
		s.News.Delay = 1500 * time.Millisecond
	}
	if s.News.MaxResults <= 0 {
		s.News.MaxResults = 60
	}
	if s.News.MaxRateLimited <= 0 {
		s.News.MaxRateLimited = 3
	}
	g := &c.Geocode
	if g.URL == "" {
		g.URL = "https://api.opencagedata.com/geocode/v1/json"
	}
	if g.Budget <= 0 {
		g.Budget = 25
	}
	if g.Concurrency <= 0 {
		g.Concurrency = 8
	}
	if g.Timeout == 0 {
		g.Timeout = 8 * time.Second
	}
	if g.Cache.MaxKeys <= 0 {
		g.Cache.MaxKeys = 5000
	}
	if g.Cache.TTL == 0 {
		g.Cache.TTL = 24 * time.Hour
	}
	if g.Redis.TTL == 0 {
		g.Redis.TTL = 7 * 24 * time.Hour
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8088"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Session.PermissionTimeout == 0 {
		c.Session.PermissionTimeout = 10 * time.Second
	}
	if c.Session.MaxSessions <= 0 {
		c.Session.MaxSessions = 10000
	}
	if c.Session.IdleTTL == 0 {
		c.Session.IdleTTL = 30 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// applyEnv lets deployment secrets and toggles override the file.
func applyEnv(c *Config) {
	if v := strings.TrimSpace(os.Getenv("GEOCODE_API_KEY")); v != "" {
		c.Geocode.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		c.Geocode.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("SPREADSHEET_URL")); v != "" {
		c.Sources.Spreadsheet.URL = v
	}
	disable := map[string]*bool{
		"DISABLE_BULLETIN":   &c.Sources.Bulletin.Enabled,
		"DISABLE_STATISTICS": &c.Sources.Statistics.Enabled,
		"DISABLE_NEWS":       &c.Sources.News.Enabled,
	}
	for key, dst := range disable {
		if v, err := strconv.ParseBool(os.Getenv(key)); err == nil && v {
			*dst = false
		}
	}
}
