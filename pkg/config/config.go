package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode"`
		MaxConns int    `yaml:"max_conns"`
		MinConns int    `yaml:"min_conns"`

		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers         []string `yaml:"brokers"`
		CollectionTopic string   `yaml:"collection_topic"`
		AnalysisTopic   string   `yaml:"analysis_topic"`
		RequiredAcks    int      `yaml:"required_acks"`
		Compression     string   `yaml:"compression"`
		Producer        struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Exchanges []ExchangeConfig `yaml:"exchanges"`
	Stream    struct {
		Enabled        bool          `yaml:"enabled"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"stream"`
	Collection struct {
		IntervalMinutes int           `yaml:"interval_minutes"`
		Pause           time.Duration `yaml:"pause"`
		Workers         int           `yaml:"workers"`
		CandleLimit     int           `yaml:"candle_limit"`
		RetryLimit      int           `yaml:"retry_limit"`
		RetryDelay      time.Duration `yaml:"retry_delay"`
	} `yaml:"collection"`
	Analysis struct {
		WindowDays       int           `yaml:"window_days"`
		MaxHours         int           `yaml:"max_hours"`
		ProfitThreshold  float64       `yaml:"profit_threshold"`
		PublishThreshold float64       `yaml:"publish_threshold"`
		BatchSize        int           `yaml:"batch_size"`
		Workers          int           `yaml:"workers"`
		RetentionDays    int           `yaml:"retention_days"`
		DailyHourUTC     int           `yaml:"daily_hour_utc"`
		RetryLimit       int           `yaml:"retry_limit"`
		RetryDelay       time.Duration `yaml:"retry_delay"`
	} `yaml:"analysis"`
}

// ExchangeConfig describes one exchange to collect from.
type ExchangeConfig struct {
	Name    string   `yaml:"name"`
	Enabled bool     `yaml:"enabled"`
	BaseURL string   `yaml:"base_url"`
	Assets  []string `yaml:"assets"`
	Quote   string   `yaml:"quote"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Collection.IntervalMinutes <= 0 {
		c.Collection.IntervalMinutes = 3
	}
	if c.Collection.Pause <= 0 {
		c.Collection.Pause = 300 * time.Millisecond
	}
	if c.Collection.Workers <= 0 {
		c.Collection.Workers = 10
	}
	if c.Collection.CandleLimit <= 0 {
		c.Collection.CandleLimit = 50
	}
	if c.Analysis.WindowDays <= 0 {
		c.Analysis.WindowDays = 1
	}
	if c.Analysis.MaxHours <= 0 {
		c.Analysis.MaxHours = 24
	}
	if c.Analysis.ProfitThreshold <= 0 {
		c.Analysis.ProfitThreshold = 2.0
	}
	if c.Analysis.PublishThreshold <= 0 {
		c.Analysis.PublishThreshold = 2.5
	}
	if c.Analysis.BatchSize <= 0 {
		c.Analysis.BatchSize = 400
	}
	if c.Analysis.Workers <= 0 {
		c.Analysis.Workers = 5
	}
	if c.Analysis.RetentionDays <= 0 {
		c.Analysis.RetentionDays = 30
	}
	if c.Analysis.DailyHourUTC < 0 || c.Analysis.DailyHourUTC > 23 {
		c.Analysis.DailyHourUTC = 3
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		c.Postgres.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Redis.PoolSize <= 0 {
		c.Redis.PoolSize = 10
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Postgres.Database == "" {
		return fmt.Errorf("postgres.database is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("exchanges cannot be empty")
	}
	for i, ex := range c.Exchanges {
		if ex.Name == "" {
			return fmt.Errorf("exchanges[%d].name is required", i)
		}
		if len(ex.Assets) == 0 {
			return fmt.Errorf("exchanges[%d].assets cannot be empty", i)
		}
	}
	return nil
}
