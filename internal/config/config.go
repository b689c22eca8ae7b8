package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the quiver platform.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Backtest BacktestConfig `yaml:"backtest"`
	Strategy StrategyConfig `yaml:"strategy"`
	Trading  TradingConfig  `yaml:"trading"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca broker API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls market-data gathering.
type GatherConfig struct {
	USDaily GatherJobConfig `yaml:"us_daily"`
}

// GatherJobConfig holds parameters for a single data gathering job.
type GatherJobConfig struct {
	Symbols         []string `yaml:"symbols"`
	StartDate       string   `yaml:"start_date"`
	BatchSize       int      `yaml:"batch_size"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
}

// BacktestConfig holds the simulation parameters for a backtest run.
type BacktestConfig struct {
	InitialCapital float64  `yaml:"initial_capital"`
	CommissionRate float64  `yaml:"commission_rate"`
	Slippage       float64  `yaml:"slippage"`
	NotionalCap    float64  `yaml:"notional_cap"`
	SizePct        float64  `yaml:"size_pct"`
	StartDate      string   `yaml:"start_date"`
	EndDate        string   `yaml:"end_date"`
	Symbols        []string `yaml:"symbols"`
}

// StrategyConfig holds tunables for the built-in strategies.
type StrategyConfig struct {
	SMAFastPeriod      int     `yaml:"sma_fast_period"`
	SMASlowPeriod      int     `yaml:"sma_slow_period"`
	DefaultConfidence  float64 `yaml:"default_confidence"`
	ModelBuyThreshold  float64 `yaml:"model_buy_threshold"`
	ModelSellThreshold float64 `yaml:"model_sell_threshold"`
}

// TradingConfig defines risk and execution parameters for live trading.
type TradingConfig struct {
	MaxPositionPct  float64 `yaml:"max_position_pct"`
	MaxDailyLossPct float64 `yaml:"max_daily_loss_pct"`
	PaperMode       bool    `yaml:"paper_mode"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills in values for backtest and strategy parameters that
// were omitted from the YAML file.
func applyDefaults(cfg *Config) {
	bt := &cfg.Backtest
	if bt.InitialCapital == 0 {
		bt.InitialCapital = 1_000_000
	}
	if bt.CommissionRate == 0 {
		bt.CommissionRate = 0.0020
	}
	if bt.Slippage == 0 {
		bt.Slippage = 0.0005
	}
	if bt.NotionalCap == 0 {
		bt.NotionalCap = 100_000
	}
	if bt.SizePct == 0 {
		bt.SizePct = 0.10
	}

	st := &cfg.Strategy
	if st.SMAFastPeriod == 0 {
		st.SMAFastPeriod = 10
	}
	if st.SMASlowPeriod == 0 {
		st.SMASlowPeriod = 20
	}
	if st.DefaultConfidence == 0 {
		st.DefaultConfidence = 0.6
	}
	if st.ModelBuyThreshold == 0 {
		st.ModelBuyThreshold = 0.55
	}
	if st.ModelSellThreshold == 0 {
		st.ModelSellThreshold = 0.45
	}
}
