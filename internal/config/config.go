package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "SITELENS_CONFIG"
	listenAddrEnv    = "SITELENS_LISTEN_ADDR"
	storageRootEnv   = "SITELENS_STORAGE_ROOT"
	pageSpeedKeyEnv  = "PAGESPEED_API_KEY"
	whoisKeyEnv      = "WHOIS_API_KEY"
	aiAPIKeyEnv      = "AI_API_KEY"
	aiModelEnv       = "AI_MODEL"
	aiEndpointEnv    = "AI_ENDPOINT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Sources SourcesConfig `yaml:"sources"`
	AI      AIConfig      `yaml:"ai"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig describes the HTTP listener and local storage.
type ServerConfig struct {
	ListenAddr  string `yaml:"listenAddr"`
	StorageRoot string `yaml:"storageRoot"`

	// WebClientBackend selects the page-fetch backend ("nethttp" or "chromedp").
	WebClientBackend string `yaml:"webClientBackend"`
}

// SourcesConfig groups endpoints, credentials and per-source timeouts for the
// external data providers. A missing API key degrades the matching client to
// its documented mock fallback instead of failing.
type SourcesConfig struct {
	PageSpeedEndpoint string        `yaml:"pageSpeedEndpoint"`
	PageSpeedAPIKey   string        `yaml:"pageSpeedApiKey"`
	PageSpeedTimeout  time.Duration `yaml:"pageSpeedTimeout"`

	GeoIPEndpoint string        `yaml:"geoIpEndpoint"`
	GeoIPTimeout  time.Duration `yaml:"geoIpTimeout"`

	WhoisEndpoint string        `yaml:"whoisEndpoint"`
	WhoisAPIKey   string        `yaml:"whoisApiKey"`
	WhoisTimeout  time.Duration `yaml:"whoisTimeout"`

	PageTimeout   time.Duration `yaml:"pageTimeout"`
	StatusTimeout time.Duration `yaml:"statusTimeout"`
}

// AIConfig defines how to contact the hosted LLM.
type AIConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BackoffBase time.Duration `yaml:"backoffBase"`
}

// CacheConfig controls report caching.
type CacheConfig struct {
	ReportTTL time.Duration `yaml:"reportTtl"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = merge(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv(storageRootEnv); v != "" {
		c.Server.StorageRoot = v
	}
	if v := os.Getenv(pageSpeedKeyEnv); v != "" {
		c.Sources.PageSpeedAPIKey = v
	}
	if v := os.Getenv(whoisKeyEnv); v != "" {
		c.Sources.WhoisAPIKey = v
	}
	if v := os.Getenv(aiAPIKeyEnv); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv(aiModelEnv); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv(aiEndpointEnv); v != "" {
		c.AI.Endpoint = v
	}
}

func merge(base, override Config) Config {
	if override.Server.ListenAddr != "" {
		base.Server.ListenAddr = override.Server.ListenAddr
	}
	if override.Server.StorageRoot != "" {
		base.Server.StorageRoot = override.Server.StorageRoot
	}
	if override.Server.WebClientBackend != "" {
		base.Server.WebClientBackend = override.Server.WebClientBackend
	}

	if override.Sources.PageSpeedEndpoint != "" {
		base.Sources.PageSpeedEndpoint = override.Sources.PageSpeedEndpoint
	}
	if override.Sources.PageSpeedAPIKey != "" {
		base.Sources.PageSpeedAPIKey = override.Sources.PageSpeedAPIKey
	}
	if override.Sources.PageSpeedTimeout > 0 {
		base.Sources.PageSpeedTimeout = override.Sources.PageSpeedTimeout
	}
	if override.Sources.GeoIPEndpoint != "" {
		base.Sources.GeoIPEndpoint = override.Sources.GeoIPEndpoint
	}
	if override.Sources.GeoIPTimeout > 0 {
		base.Sources.GeoIPTimeout = override.Sources.GeoIPTimeout
	}
	if override.Sources.WhoisEndpoint != "" {
		base.Sources.WhoisEndpoint = override.Sources.WhoisEndpoint
	}
	if override.Sources.WhoisAPIKey != "" {
		base.Sources.WhoisAPIKey = override.Sources.WhoisAPIKey
	}
	if override.Sources.WhoisTimeout > 0 {
		base.Sources.WhoisTimeout = override.Sources.WhoisTimeout
	}
	if override.Sources.PageTimeout > 0 {
		base.Sources.PageTimeout = override.Sources.PageTimeout
	}
	if override.Sources.StatusTimeout > 0 {
		base.Sources.StatusTimeout = override.Sources.StatusTimeout
	}

	if override.AI.Endpoint != "" {
		base.AI.Endpoint = override.AI.Endpoint
	}
	if override.AI.Model != "" {
		base.AI.Model = override.AI.Model
	}
	if override.AI.APIKey != "" {
		base.AI.APIKey = override.AI.APIKey
	}
	if override.AI.MaxAttempts > 0 {
		base.AI.MaxAttempts = override.AI.MaxAttempts
	}
	if override.AI.BackoffBase > 0 {
		base.AI.BackoffBase = override.AI.BackoffBase
	}

	if override.Cache.ReportTTL > 0 {
		base.Cache.ReportTTL = override.Cache.ReportTTL
	}

	return base
}

// Default returns a Config populated with sensible development defaults.
// The fast-pass sources get short timeouts; the performance audit is the
// slow, expensive call and gets the long one.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:       ":8080",
			StorageRoot:      "~/.config/sitelens",
			WebClientBackend: "nethttp",
		},
		Sources: SourcesConfig{
			PageSpeedEndpoint: "https://www.googleapis.com/pagespeedonline/v5/runPagespeed",
			PageSpeedTimeout:  45 * time.Second,
			GeoIPEndpoint:     "http://ip-api.com/json",
			GeoIPTimeout:      5 * time.Second,
			WhoisEndpoint:     "https://www.whoisxmlapi.com/whoisserver/WhoisService",
			WhoisTimeout:      10 * time.Second,
			PageTimeout:       10 * time.Second,
			StatusTimeout:     8 * time.Second,
		},
		AI: AIConfig{
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			MaxAttempts: 3,
			BackoffBase: time.Second,
		},
		Cache: CacheConfig{
			ReportTTL: 24 * time.Hour,
		},
	}
}
