package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for the index fund server.
type Config struct {
	Service         string         `yaml:"service"`
	Env             string         `yaml:"env"`
	GRPCListen      string         `yaml:"grpc_listen"`
	HTTPListen      string         `yaml:"http_listen"`
	APIToken        string         `yaml:"api_token"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"`
	Database        DatabaseConfig `yaml:"database"`
	Logging         LoggingConfig  `yaml:"logging"`
	Fund            FundConfig     `yaml:"fund"`
	Oracle          OracleConfig   `yaml:"oracle"`
}

// DatabaseConfig selects and locates the store.
type DatabaseConfig struct {
	Driver  string `yaml:"driver"` // sqlite or postgres
	Path    string `yaml:"path"`   // sqlite file
	ConnStr string `yaml:"conn_str"`
}

// LoggingConfig controls log level and optional file rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// FundConfig carries the minting policy and share token parameters.
type FundConfig struct {
	ShareSymbol    string `yaml:"share_symbol"`
	Admin          string `yaml:"admin"`
	Minter         string `yaml:"minter"`
	PriceDecimals  *uint8 `yaml:"price_decimals"`
	ValueDecimals  *uint8 `yaml:"value_decimals"`
	MinDeposit     string `yaml:"min_deposit"`
	BootstrapPrice string `yaml:"bootstrap_price"`
}

// OracleConfig lists the approved assets and their seed prices.
type OracleConfig struct {
	MaxAge  Duration     `yaml:"max_age"`
	Refresh bool         `yaml:"refresh"`
	Prices  []AssetPrice `yaml:"prices"`
}

// AssetPrice is a human readable price, e.g. "1.25".
type AssetPrice struct {
	Asset string `yaml:"asset"`
	Price string `yaml:"price"`
}

// Load reads configuration from the supplied path. An empty path yields
// the defaults. Environment overrides are applied before validation.
func Load(path string) (Config, error) {
	cfg := Config{}
	if strings.TrimSpace(path) != "" {
		file, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		dec := yaml.NewDecoder(file)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}
	applyEnv(&cfg, os.LookupEnv)
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("APP_ENV", &cfg.Env)
	set("GRPC_LISTEN", &cfg.GRPCListen)
	set("HTTP_LISTEN", &cfg.HTTPListen)
	set("API_TOKEN", &cfg.APIToken)
	set("DB_DRIVER", &cfg.Database.Driver)
	set("DB_PATH", &cfg.Database.Path)
	set("DB_CONN_STR", &cfg.Database.ConnStr)
	set("LOG_LEVEL", &cfg.Logging.Level)
}

func applyDefaults(cfg *Config) {
	if cfg.Service == "" {
		cfg.Service = "indexfund"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.GRPCListen == "" {
		cfg.GRPCListen = ":8080"
	}
	if cfg.HTTPListen == "" {
		cfg.HTTPListen = ":8081"
	}
	if cfg.ShutdownTimeout.Duration == 0 {
		cfg.ShutdownTimeout.Duration = 10 * time.Second
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "indexfund.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 30
	}
	if cfg.Fund.ShareSymbol == "" {
		cfg.Fund.ShareSymbol = "IDX"
	}
	if cfg.Fund.Admin == "" {
		cfg.Fund.Admin = "admin"
	}
	if cfg.Fund.Minter == "" {
		cfg.Fund.Minter = "deposit-engine"
	}
	if cfg.Fund.PriceDecimals == nil {
		cfg.Fund.PriceDecimals = uint8Ptr(18)
	}
	if cfg.Fund.ValueDecimals == nil {
		cfg.Fund.ValueDecimals = uint8Ptr(18)
	}
	if cfg.Fund.MinDeposit == "" {
		cfg.Fund.MinDeposit = "1000"
	}
	if cfg.Fund.BootstrapPrice == "" {
		cfg.Fund.BootstrapPrice = "100"
	}
}

func validate(cfg Config) error {
	switch cfg.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Database.Path) == "" {
			return errors.New("database path must be configured for sqlite")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Database.ConnStr) == "" {
			return errors.New("database conn_str must be configured for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Env == "production" && cfg.APIToken == "" {
		return errors.New("api_token must be configured in production")
	}
	if cfg.Fund.PriceDigits() > domain.MaxDecimals || cfg.Fund.ValueDigits() > domain.MaxDecimals {
		return fmt.Errorf("decimals must not exceed %d", domain.MaxDecimals)
	}
	if cfg.Fund.Admin == cfg.Fund.Minter {
		return errors.New("fund admin and minter must be different accounts")
	}
	if _, err := cfg.Fund.Policy(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Oracle.Prices))
	for _, p := range cfg.Oracle.Prices {
		id := strings.TrimSpace(p.Asset)
		if id == "" {
			return errors.New("oracle price asset must not be empty")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate oracle price for %s", id)
		}
		seen[id] = struct{}{}
	}
	if _, err := cfg.Oracle.ScaledPrices(cfg.Fund.PriceDigits()); err != nil {
		return err
	}
	return nil
}

// Policy converts the human readable fund parameters into a minting policy.
// min_deposit is scaled by value_decimals; bootstrap_price is the ratio of
// valuation to shares and must be a whole number.
func (f FundConfig) Policy() (domain.MintingPolicy, error) {
	minDeposit, err := domain.ParseUnits(f.MinDeposit, int32(f.ValueDigits()))
	if err != nil {
		return domain.MintingPolicy{}, fmt.Errorf("min_deposit: %w", err)
	}
	bootstrap, err := domain.ParseUnits(f.BootstrapPrice, 0)
	if err != nil {
		return domain.MintingPolicy{}, fmt.Errorf("bootstrap_price: %w", err)
	}

	policy := domain.MintingPolicy{MinDepositValuation: minDeposit, BootstrapPrice: bootstrap}
	if err := policy.Validate(); err != nil {
		return domain.MintingPolicy{}, err
	}
	return policy, nil
}

// PriceDigits returns the number of decimals oracle prices carry.
func (f FundConfig) PriceDigits() uint8 {
	if f.PriceDecimals == nil {
		return 18
	}
	return *f.PriceDecimals
}

// ValueDigits returns the number of decimals valuations and shares carry.
func (f FundConfig) ValueDigits() uint8 {
	if f.ValueDecimals == nil {
		return 18
	}
	return *f.ValueDecimals
}

// ScaledPrice is a configured price in oracle base units.
type ScaledPrice struct {
	AssetID domain.AssetID
	Price   *uint256.Int
}

// ScaledPrices returns the configured prices in oracle base units, in
// configuration order.
func (o OracleConfig) ScaledPrices(decimals uint8) ([]ScaledPrice, error) {
	out := make([]ScaledPrice, 0, len(o.Prices))
	for _, p := range o.Prices {
		price, err := domain.ParseUnits(p.Price, int32(decimals))
		if err != nil {
			return nil, fmt.Errorf("oracle price of %s: %w", p.Asset, err)
		}
		out = append(out, ScaledPrice{AssetID: domain.AssetID(strings.TrimSpace(p.Asset)), Price: price})
	}
	return out, nil
}

func uint8Ptr(v uint8) *uint8 { return &v }
