package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"PriceSim/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CacheTTL        time.Duration `yaml:"cache_ttl" default:"15s"`
	} `yaml:"server"`
	Store struct {
		Backend string `yaml:"backend" default:"redis"` // redis or memory
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"pricesim"`
		} `yaml:"redis"`
		Keys struct {
			History       string `yaml:"history" default:"collected_prices/rolling_history_60min.json"`
			Latest        string `yaml:"latest" default:"simulated_data/latest_simulated_prices.json"`
			ArchivePrefix string `yaml:"archive_prefix" default:"simulated_data"`
		} `yaml:"keys"`
	} `yaml:"store"`
	Finnhub struct {
		APIKey         string        `yaml:"api_key"`
		BaseURL        string        `yaml:"base_url" default:"https://finnhub.io/api/v1"`
		Symbols        []string      `yaml:"symbols"`
		Timeout        time.Duration `yaml:"timeout" default:"10s"`
		CallsPerMinute int           `yaml:"calls_per_minute" default:"60"`
		FetchWorkers   int           `yaml:"fetch_workers" default:"4"`
	} `yaml:"finnhub"`
	History struct {
		Capacity           int           `yaml:"capacity" default:"60"`
		SampleInterval     time.Duration `yaml:"sample_interval" default:"1m"`
		ReadinessThreshold float64       `yaml:"readiness_threshold" default:"0.8"`
	} `yaml:"history"`
	Simulation struct {
		HorizonSteps       int           `yaml:"horizon_steps" default:"60"`
		StepDuration       time.Duration `yaml:"step_duration" default:"1m"`
		Amplification      float64       `yaml:"amplification" default:"2"`
		MaxStepFraction    float64       `yaml:"max_step_fraction" default:"0.05"`
		PriceFloorFraction float64       `yaml:"price_floor_fraction" default:"0.5"`
		VolatilityFloor    float64       `yaml:"volatility_floor" default:"0.02"`
		PricePrecision     int32         `yaml:"price_precision" default:"2"`
		Workers            int           `yaml:"workers" default:"8"`
	} `yaml:"simulation"`
	Schedule struct {
		CollectInterval  time.Duration `yaml:"collect_interval" default:"1m"`
		SimulateInterval time.Duration `yaml:"simulate_interval" default:"1h"`
	} `yaml:"schedule"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"1"`
		RetryLimit int           `yaml:"retry_limit" default:"0"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		KeyPrefix  string        `yaml:"key_prefix" default:"pricesim:queue"`
	} `yaml:"queue"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"simulation.published"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pricesim"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults without validating.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, overrides with environment variables
// (an optional .env file is read first) and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("FINNHUB_API_KEY"); ok && v != "" {
		c.Finnhub.APIKey = v
	}
	if v, ok := lookup("ASSETS_TO_TRACK"); ok && v != "" {
		symbols, err := parseSymbols(v)
		if err != nil {
			return fmt.Errorf("ASSETS_TO_TRACK: %w", err)
		}
		c.Finnhub.Symbols = symbols
	}
	if v, ok := lookup("STORE_BACKEND"); ok && v != "" {
		c.Store.Backend = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Store.Redis.Addr = v
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v, ok := lookup("KAFKA_TOPIC"); ok && v != "" {
		c.Kafka.Topic = v
	}
	if v, ok := lookup("CLICKHOUSE_HOST"); ok && v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	return nil
}

// parseSymbols accepts either a JSON array or a comma separated list.
func parseSymbols(v string) ([]string, error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "[") {
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, err
		}
		return util.NormalizeSymbols(out), nil
	}
	return util.NormalizeSymbols(strings.Split(v, ",")), nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Store.Backend != "redis" && c.Store.Backend != "memory" {
		return fmt.Errorf("store.backend must be 'redis' or 'memory', got '%s'", c.Store.Backend)
	}
	c.Finnhub.Symbols = util.NormalizeSymbols(c.Finnhub.Symbols)
	if len(c.Finnhub.Symbols) == 0 {
		return fmt.Errorf("finnhub.symbols cannot be empty")
	}
	if c.History.Capacity < 2 {
		return fmt.Errorf("history.capacity must be >= 2, got %d", c.History.Capacity)
	}
	if c.History.SampleInterval <= 0 {
		return fmt.Errorf("history.sample_interval must be positive")
	}
	if c.History.ReadinessThreshold <= 0 || c.History.ReadinessThreshold > 1 {
		return fmt.Errorf("history.readiness_threshold must be within (0,1]")
	}
	s := c.Simulation
	if s.HorizonSteps < 1 {
		return fmt.Errorf("simulation.horizon_steps must be >= 1")
	}
	if s.StepDuration <= 0 {
		return fmt.Errorf("simulation.step_duration must be positive")
	}
	if s.Amplification < 0 {
		return fmt.Errorf("simulation.amplification must be >= 0")
	}
	if s.MaxStepFraction <= 0 || s.MaxStepFraction >= 1 {
		return fmt.Errorf("simulation.max_step_fraction must be within (0,1)")
	}
	if s.PriceFloorFraction <= 0 || s.PriceFloorFraction > 1 {
		return fmt.Errorf("simulation.price_floor_fraction must be within (0,1]")
	}
	if s.VolatilityFloor < 0 {
		return fmt.Errorf("simulation.volatility_floor must be >= 0")
	}
	if s.PricePrecision < 0 {
		return fmt.Errorf("simulation.price_precision must be >= 0")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
