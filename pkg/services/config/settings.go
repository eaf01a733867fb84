package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "MARKET_ATLAS"
	DefaultConfigName = "market-atlas"
)

type Settings struct {
	Strategy StrategySettings `mapstructure:"strategy"`
	Output   OutputSettings   `mapstructure:"output"`
	Ledger   LedgerSettings   `mapstructure:"ledger"`
	S3       S3Settings       `mapstructure:"s3"`
	Yahoo    YahooSettings    `mapstructure:"yahoo"`
	Log      LogSettings      `mapstructure:"log"`
	Server   ServerSettings   `mapstructure:"server"`
	Profiles ProfileSettings  `mapstructure:"profiles"`
}

type StrategySettings struct {
	Symbol       string `mapstructure:"symbol"`
	Period       string `mapstructure:"period"`
	Interval     string `mapstructure:"interval"`
	BaseCurrency string `mapstructure:"base_currency"`
	Windows      []int  `mapstructure:"windows"`
}

type OutputSettings struct {
	DataDir     string `mapstructure:"data_dir"`
	PlotDir     string `mapstructure:"plot_dir"`
	StatsDir    string `mapstructure:"stats_dir"`
	StatsFormat string `mapstructure:"stats_format"`
	// Plots turns chart rendering off when false; the run then writes tables and statistics only.
	Plots bool `mapstructure:"plots"`
	// MetricsFile receives the run's Prometheus metrics in the text format. Empty skips it.
	MetricsFile string `mapstructure:"metrics_file"`
}

type LedgerSettings struct {
	// Path of the DuckDB file. Empty disables the ledger.
	Path string `mapstructure:"path"`
}

type S3Settings struct {
	// Bucket empty disables publishing.
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
	// Profile names a shared AWS config profile. Empty uses the default credential chain.
	Profile string `mapstructure:"profile"`
}

type YahooSettings struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	Burst          int           `mapstructure:"burst"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
}

type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type ProfileSettings struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strategy.symbol", "AAPL")
	v.SetDefault("strategy.period", "1mo")
	v.SetDefault("strategy.interval", "1h")
	v.SetDefault("strategy.base_currency", "USD")
	v.SetDefault("strategy.windows", []int{10, 20, 30})

	v.SetDefault("output.data_dir", "data")
	v.SetDefault("output.plot_dir", "plots")
	v.SetDefault("output.stats_dir", "notebooks")
	v.SetDefault("output.stats_format", "txt")
	v.SetDefault("output.plots", true)
	v.SetDefault("output.metrics_file", "")

	v.SetDefault("ledger.path", "market-atlas.db")

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "market-atlas")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.profile", "")

	v.SetDefault("yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("yahoo.requests_per_sec", 2.0)
	v.SetDefault("yahoo.burst", 4)
	v.SetDefault("yahoo.timeout", 30*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")

	v.SetDefault("profiles.path", "market-atlas.ini")
}

// Load reads settings from path, or from market-atlas.yaml in the working directory when path
// is empty. A missing default file is not an error. MARKET_ATLAS_* variables override the file.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) Validate() error {
	if s.Strategy.Symbol == "" {
		return fmt.Errorf("invalid settings: strategy.symbol is required")
	}
	if len(s.Strategy.Windows) == 0 {
		return fmt.Errorf("invalid settings: strategy.windows must not be empty")
	}
	for _, w := range s.Strategy.Windows {
		if w < 1 {
			return fmt.Errorf("invalid settings: moving average window %d must be positive", w)
		}
	}
	for key, dir := range map[string]string{
		"output.data_dir":  s.Output.DataDir,
		"output.plot_dir":  s.Output.PlotDir,
		"output.stats_dir": s.Output.StatsDir,
	} {
		if dir == "" {
			return fmt.Errorf("invalid settings: %s is required", key)
		}
	}
	return nil
}

// ApplyProfile overrides the strategy parameters the profile sets.
func (s *Settings) ApplyProfile(p *Profile) {
	if p == nil {
		return
	}
	if p.Symbol != "" {
		s.Strategy.Symbol = p.Symbol
	}
	if p.Period != "" {
		s.Strategy.Period = p.Period
	}
	if p.Interval != "" {
		s.Strategy.Interval = p.Interval
	}
	if p.BaseCurrency != "" {
		s.Strategy.BaseCurrency = p.BaseCurrency
	}
}
