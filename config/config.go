package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/erain9/matchcore/pkg/loadgen"
	"github.com/erain9/matchcore/pkg/logging"
	"github.com/erain9/matchcore/pkg/otel"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MATCHCORE_LOG_LEVEL
const EnvPrefix = "MATCHCORE"

// Config represents the application configuration
type Config struct {
	Log       LogConfig
	Telemetry TelemetryConfig
	Engine    EngineConfig
	LoadTest  LoadTestConfig
}

// LogConfig configures pkg/logging
type LogConfig struct {
	Level  string
	Format string // json or pretty
}

// TelemetryConfig configures the OTLP exporters
type TelemetryConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	SampleRatio    float64
	MetricInterval time.Duration
	RuntimeMetrics bool
}

// EngineConfig configures the matching engine
type EngineConfig struct {
	BTreeDegree int
}

// LoadTestConfig configures cmd/loadtest
type LoadTestConfig struct {
	Workers     int
	Rate        float64 // submissions per second across all workers, 0 for unlimited
	Duration    time.Duration
	Instruments []string
	MaxOrders   int // per worker, 0 for no limit
	Owners      int
	Seed        int64

	RequoteInterval time.Duration

	// Resting liquidity quoted around MidPrice before the flow starts
	MidPrice      float64
	Levels        int
	SpreadPercent float64
	StepPercent   float64
	LevelSize     int64

	// Share of the flow per order kind; the rest are plain limit orders
	MarketRatio  float64
	FOKRatio     float64
	IcebergRatio float64
	StopRatio    float64
	MaxQuantity  int64
	PriceBand    float64 // percent around the mid price
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", otel.ServiceMatchingEngine)
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.metric_interval", "5s")
	v.SetDefault("telemetry.runtime_metrics", true)

	v.SetDefault("engine.btree_degree", 32)

	v.SetDefault("loadtest.workers", 4)
	v.SetDefault("loadtest.rate", 5000.0)
	v.SetDefault("loadtest.duration", "10s")
	v.SetDefault("loadtest.instruments", []string{"BTC-USD", "ETH-USD"})
	v.SetDefault("loadtest.max_orders", 0)
	v.SetDefault("loadtest.owners", 100)
	v.SetDefault("loadtest.seed", 1)
	v.SetDefault("loadtest.mid_price", 100.0)
	v.SetDefault("loadtest.levels", 10)
	v.SetDefault("loadtest.spread_percent", 0.2)
	v.SetDefault("loadtest.step_percent", 0.1)
	v.SetDefault("loadtest.level_size", 50)
	v.SetDefault("loadtest.market_ratio", 0.15)
	v.SetDefault("loadtest.fok_ratio", 0.05)
	v.SetDefault("loadtest.iceberg_ratio", 0.1)
	v.SetDefault("loadtest.stop_ratio", 0.1)
	v.SetDefault("loadtest.max_quantity", 20)
	v.SetDefault("loadtest.price_band", 1.0)
	v.SetDefault("loadtest.requote_interval", "1s")
}

// Load merges defaults, the optional config file at path (any format viper
// reads, usually YAML) and MATCHCORE_* environment variables.
func Load(path string) (*Config, error) {
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
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Telemetry: TelemetryConfig{
			Enabled:        v.GetBool("telemetry.enabled"),
			Endpoint:       v.GetString("telemetry.endpoint"),
			ServiceName:    v.GetString("telemetry.service_name"),
			SampleRatio:    v.GetFloat64("telemetry.sample_ratio"),
			MetricInterval: v.GetDuration("telemetry.metric_interval"),
			RuntimeMetrics: v.GetBool("telemetry.runtime_metrics"),
		},
		Engine: EngineConfig{
			BTreeDegree: v.GetInt("engine.btree_degree"),
		},
		LoadTest: LoadTestConfig{
			Workers:       v.GetInt("loadtest.workers"),
			Rate:          v.GetFloat64("loadtest.rate"),
			Duration:      v.GetDuration("loadtest.duration"),
			Instruments:   v.GetStringSlice("loadtest.instruments"),
			MaxOrders:     v.GetInt("loadtest.max_orders"),
			Owners:        v.GetInt("loadtest.owners"),
			Seed:          v.GetInt64("loadtest.seed"),
			MidPrice:      v.GetFloat64("loadtest.mid_price"),
			Levels:        v.GetInt("loadtest.levels"),
			SpreadPercent: v.GetFloat64("loadtest.spread_percent"),
			StepPercent:   v.GetFloat64("loadtest.step_percent"),
			LevelSize:     v.GetInt64("loadtest.level_size"),
			MarketRatio:   v.GetFloat64("loadtest.market_ratio"),
			FOKRatio:      v.GetFloat64("loadtest.fok_ratio"),
			IcebergRatio:  v.GetFloat64("loadtest.iceberg_ratio"),
			StopRatio:     v.GetFloat64("loadtest.stop_ratio"),
			MaxQuantity:   v.GetInt64("loadtest.max_quantity"),
			PriceBand:     v.GetFloat64("loadtest.price_band"),

			RequoteInterval: v.GetDuration("loadtest.requote_interval"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("log.format must be json or pretty, got %q", c.Log.Format)
	}
	if c.Engine.BTreeDegree < 2 {
		return fmt.Errorf("engine.btree_degree must be at least 2")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}

	lt := c.LoadTest
	if lt.Workers <= 0 {
		return fmt.Errorf("loadtest.workers must be positive")
	}
	if lt.Rate < 0 {
		return fmt.Errorf("loadtest.rate must not be negative")
	}
	if len(lt.Instruments) == 0 {
		return fmt.Errorf("loadtest.instruments must not be empty")
	}
	if lt.Duration <= 0 && lt.MaxOrders <= 0 {
		return fmt.Errorf("loadtest.duration or loadtest.max_orders must be positive")
	}
	if lt.MaxOrders < 0 || lt.RequoteInterval < 0 || lt.PriceBand <= 0 {
		return fmt.Errorf("loadtest.max_orders and requote_interval must not be negative, price_band must be positive")
	}
	if lt.Owners <= 0 {
		return fmt.Errorf("loadtest.owners must be positive")
	}
	if lt.MidPrice <= 0 {
		return fmt.Errorf("loadtest.mid_price must be positive")
	}
	if lt.Levels < 0 || lt.LevelSize <= 0 || lt.MaxQuantity <= 0 {
		return fmt.Errorf("loadtest.levels, level_size and max_quantity must be positive")
	}
	if lt.SpreadPercent <= 0 || lt.StepPercent <= 0 {
		return fmt.Errorf("loadtest.spread_percent and step_percent must be positive")
	}
	ratios := lt.MarketRatio + lt.FOKRatio + lt.IcebergRatio + lt.StopRatio
	if lt.MarketRatio < 0 || lt.FOKRatio < 0 || lt.IcebergRatio < 0 || lt.StopRatio < 0 || ratios > 1 {
		return fmt.Errorf("loadtest flow ratios must be non-negative and sum to at most 1")
	}
	return nil
}

// Logging converts the log section for pkg/logging
func (c *Config) Logging(out io.Writer) logging.Config {
	return logging.Config{
		Level:  c.Log.Level,
		Pretty: c.Log.Format == "pretty",
		Output: out,
	}
}

// Otel converts the telemetry section for pkg/otel
func (c *Config) Otel() otel.Config {
	return otel.Config{
		ServiceName:      c.Telemetry.ServiceName,
		Endpoint:         c.Telemetry.Endpoint,
		MetricInterval:   c.Telemetry.MetricInterval,
		SampleRatio:      c.Telemetry.SampleRatio,
		CollectorEnabled: c.Telemetry.Enabled,
	}
}

// LoadGen converts the loadtest section for pkg/loadgen
func (c *Config) LoadGen() loadgen.Config {
	lt := c.LoadTest
	return loadgen.Config{
		Instruments:     lt.Instruments,
		Workers:         lt.Workers,
		Rate:            lt.Rate,
		Duration:        lt.Duration,
		MaxOrders:       lt.MaxOrders,
		Owners:          lt.Owners,
		Seed:            lt.Seed,
		RequoteInterval: lt.RequoteInterval,
		Quotes: loadgen.QuoteConfig{
			MakerID:       "mm-01",
			MidPrice:      lt.MidPrice,
			Levels:        lt.Levels,
			SpreadPercent: lt.SpreadPercent,
			StepPercent:   lt.StepPercent,
			LevelSize:     lt.LevelSize,
		},
		Flow: loadgen.FlowConfig{
			MarketRatio:      lt.MarketRatio,
			FOKRatio:         lt.FOKRatio,
			IcebergRatio:     lt.IcebergRatio,
			StopRatio:        lt.StopRatio,
			MaxQuantity:      lt.MaxQuantity,
			PriceBandPercent: lt.PriceBand,
		},
	}
}

// Flags holds the command line overrides shared by the commands
type Flags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// RegisterFlags binds -config, -log_level and -log_format on fs
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file (YAML)")
	fs.StringVar(&f.LogLevel, "log_level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.LogFormat, "log_format", "", "Log format: json, pretty")
	return f
}

// Apply overrides cfg with the flags that were set
func (f *Flags) Apply(cfg *Config) error {
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.Log.Format = f.LogFormat
	}
	return cfg.Validate()
}
