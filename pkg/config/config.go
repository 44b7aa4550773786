package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment selects which Saxo surface the gateway talks to.
type Environment string

const (
	EnvSim  Environment = "sim"
	EnvLive Environment = "live"
)

const (
	tokenURLLive = "https://live.logonvalidation.net/token"
	tokenURLSim  = "https://sim.logonvalidation.net/token"
	apiBaseLive  = "https://gateway.saxobank.com/openapi"
	apiBaseSim   = "https://gateway.saxobank.com/sim/openapi"
)

// SymbolSpec maps one inbound symbol onto a broker instrument.
type SymbolSpec struct {
	Uic       int    `yaml:"uic" json:"uic"`
	AssetType string `yaml:"asset_type" json:"asset_type"`
}

// Config is the full gateway configuration. Values come from a YAML/JSON
// file when one is given, then environment variables, then defaults.
type Config struct {
	Environment Environment

	ClientID     string
	ClientSecret string
	AccountKey   string
	RedirectURI  string

	// Overrides for the derived endpoints; normally empty.
	TokenURL string
	APIBase  string

	StorePath     string
	StoreKey      string // 32-byte hex/base64 at-rest encryption key, optional
	JournalPath   string
	ListenAddr    string
	WebhookSecret string // optional shared secret required on /webhook

	SafetyMargin  time.Duration
	DefaultExpiry time.Duration // applied when the provider omits expires_in
	PollInterval  time.Duration
	PollTimeout   time.Duration

	MaxConsecutiveFailures int

	LogLevel string
	LogFile  string

	Symbols map[string]SymbolSpec
}

// configFile mirrors Config for YAML/JSON decoding.
type configFile struct {
	Environment  string `yaml:"environment" json:"environment"`
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	AccountKey   string `yaml:"account_key" json:"account_key"`
	RedirectURI  string `yaml:"redirect_uri" json:"redirect_uri"`
	TokenURL     string `yaml:"token_url" json:"token_url"`
	APIBase      string `yaml:"api_base" json:"api_base"`

	StorePath     string `yaml:"store_path" json:"store_path"`
	StoreKey      string `yaml:"store_key" json:"store_key"`
	JournalPath   string `yaml:"journal_path" json:"journal_path"`
	ListenAddr    string `yaml:"listen_addr" json:"listen_addr"`
	WebhookSecret string `yaml:"webhook_secret" json:"webhook_secret"`

	SafetyMarginSeconds  int `yaml:"safety_margin_seconds" json:"safety_margin_seconds"`
	DefaultExpirySeconds int `yaml:"default_expiry_seconds" json:"default_expiry_seconds"`
	PollIntervalMillis   int `yaml:"poll_interval_millis" json:"poll_interval_millis"`
	PollTimeoutMillis    int `yaml:"poll_timeout_millis" json:"poll_timeout_millis"`

	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" json:"max_consecutive_failures"`

	LogLevel string `yaml:"log_level" json:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file"`

	Symbols map[string]SymbolSpec `yaml:"symbols" json:"symbols"`
}

// Load builds the configuration from an optional file path plus the process
// environment. An empty path means env/defaults only.
func Load(filePath string) (*Config, error) {
	var cf *configFile
	if filePath != "" {
		var err error
		cf, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", filePath, err)
		}
	}

	get := func(fileVal, envKey, def string) string {
		if fileVal != "" {
			return fileVal
		}
		return getEnv(envKey, def)
	}
	getInt := func(fileVal int, envKey string, def int) int {
		if fileVal > 0 {
			return fileVal
		}
		return parseIntEnv(envKey, def)
	}

	var fv configFile
	if cf != nil {
		fv = *cf
	}

	cfg := &Config{
		Environment:  Environment(strings.ToLower(get(fv.Environment, "SAXO_ENVIRONMENT", string(EnvSim)))),
		ClientID:     get(fv.ClientID, "SAXO_CLIENT_ID", ""),
		ClientSecret: get(fv.ClientSecret, "SAXO_CLIENT_SECRET", ""),
		AccountKey:   get(fv.AccountKey, "SAXO_ACCOUNT_KEY", ""),
		RedirectURI:  get(fv.RedirectURI, "SAXO_REDIRECT_URI", ""),
		TokenURL:     get(fv.TokenURL, "SAXO_TOKEN_URL", ""),
		APIBase:      get(fv.APIBase, "SAXO_API_BASE", ""),

		StorePath:     get(fv.StorePath, "STORE_PATH", "data/credstore"),
		StoreKey:      get(fv.StoreKey, "STORE_KEY", ""),
		JournalPath:   get(fv.JournalPath, "JOURNAL_PATH", "data/journal.db"),
		ListenAddr:    get(fv.ListenAddr, "LISTEN_ADDR", ":8080"),
		WebhookSecret: get(fv.WebhookSecret, "WEBHOOK_SECRET", ""),

		SafetyMargin:  time.Duration(getInt(fv.SafetyMarginSeconds, "TOKEN_SAFETY_MARGIN_SECONDS", 60)) * time.Second,
		DefaultExpiry: time.Duration(getInt(fv.DefaultExpirySeconds, "TOKEN_DEFAULT_EXPIRY_SECONDS", 1200)) * time.Second,
		PollInterval:  time.Duration(getInt(fv.PollIntervalMillis, "POSITION_POLL_INTERVAL_MILLIS", 250)) * time.Millisecond,
		PollTimeout:   time.Duration(getInt(fv.PollTimeoutMillis, "POSITION_POLL_TIMEOUT_MILLIS", 3000)) * time.Millisecond,

		MaxConsecutiveFailures: getInt(fv.MaxConsecutiveFailures, "MAX_CONSECUTIVE_FAILURES", 5),

		LogLevel: get(fv.LogLevel, "LOG_LEVEL", "info"),
		LogFile:  get(fv.LogFile, "LOG_FILE", "logs/gateway.log"),

		Symbols: defaultSymbols(),
	}

	// File-declared symbols extend or override the built-in table.
	for name, spec := range fv.Symbols {
		cfg.Symbols[strings.ToUpper(name)] = spec
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// defaultSymbols is the static symbol→instrument table. The Uics are Saxo's
// instrument identifiers for the CFD variants.
func defaultSymbols() map[string]SymbolSpec {
	return map[string]SymbolSpec{
		"GER40":  {Uic: 4910, AssetType: "CfdOnIndex"},
		"US500":  {Uic: 4913, AssetType: "CfdOnIndex"},
		"US30":   {Uic: 4911, AssetType: "CfdOnIndex"},
		"NAS100": {Uic: 1909050, AssetType: "CfdOnIndex"},
		"UK100":  {Uic: 4912, AssetType: "CfdOnIndex"},
		"EURUSD": {Uic: 21, AssetType: "FxSpot"},
		"GBPUSD": {Uic: 31, AssetType: "FxSpot"},
		"USDJPY": {Uic: 42, AssetType: "FxSpot"},
		"XAUUSD": {Uic: 8176, AssetType: "CfdOnFutures"},
	}
}

// TokenEndpoint returns the identity-provider token URL for the selected
// environment, unless explicitly overridden.
func (c *Config) TokenEndpoint() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	if c.Environment == EnvLive {
		return tokenURLLive
	}
	return tokenURLSim
}

// APIBaseURL returns the brokerage REST base for the selected environment,
// unless explicitly overridden.
func (c *Config) APIBaseURL() string {
	if c.APIBase != "" {
		return c.APIBase
	}
	if c.Environment == EnvLive {
		return apiBaseLive
	}
	return apiBaseSim
}

// Validate rejects configurations the gateway cannot run with.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvSim, EnvLive:
	default:
		return fmt.Errorf("environment must be %q or %q, got %q", EnvSim, EnvLive, c.Environment)
	}
	if c.ClientID == "" {
		return fmt.Errorf("SAXO_CLIENT_ID is not set")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("SAXO_CLIENT_SECRET is not set")
	}
	if c.AccountKey == "" {
		return fmt.Errorf("SAXO_ACCOUNT_KEY is not set")
	}
	if c.SafetyMargin <= 0 {
		return fmt.Errorf("token safety margin must be positive")
	}
	if c.PollInterval <= 0 || c.PollTimeout < c.PollInterval {
		return fmt.Errorf("position poll interval/timeout are inconsistent")
	}
	for name, spec := range c.Symbols {
		if spec.Uic <= 0 || spec.AssetType == "" {
			return fmt.Errorf("symbol %s has an incomplete instrument spec", name)
		}
	}
	return nil
}

func loadConfigFile(filePath string) (*configFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var cf configFile
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %s (want .yaml, .yml or .json)", ext)
	}
	return &cf, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
