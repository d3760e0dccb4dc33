package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Harness     HarnessConfig     `yaml:"harness"`
	REST        RESTConfig        `yaml:"rest"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Book        BookConfig        `yaml:"book"`
	Instruments InstrumentsConfig `yaml:"instruments"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type HarnessConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

type RESTConfig struct {
	BaseURL   string            `yaml:"base_url"`
	Timeout   time.Duration     `yaml:"timeout"`
	Headers   map[string]string `yaml:"headers"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type WebSocketConfig struct {
	MarketURL        string        `yaml:"market_url"`
	UserURL          string        `yaml:"user_url"`
	APIKey           string        `yaml:"api_key"`
	SecretKey        string        `yaml:"secret_key"`
	Timeout          time.Duration `yaml:"timeout"`
	ReceiveTimeout   time.Duration `yaml:"receive_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	Signing          string        `yaml:"signing"`
	RespondHeartbeat bool          `yaml:"respond_heartbeat"`
}

// BookConfig holds the nominal timings of the order book feed.
type BookConfig struct {
	ToleranceMs         int64 `yaml:"tolerance_ms"`
	SnapshotIntervalMs  int64 `yaml:"snapshot_interval_ms"`
	HeartbeatIntervalMs int64 `yaml:"heartbeat_interval_ms"`
}

type InstrumentsConfig struct {
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
	Invalid   string `yaml:"invalid"`
}

type StorageConfig struct {
	Capture CaptureConfig `yaml:"capture"`
	S3      S3Config      `yaml:"s3"`
}

type CaptureConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	Dir           string `yaml:"dir"`
	MaxAge        int    `yaml:"max_age"`
	CloudWatch    bool   `yaml:"cloudwatch"`
	Region        string `yaml:"region"`
	Namespace     string `yaml:"namespace"`
	DashboardName string `yaml:"dashboard_name"`
}

// Layer applies one configuration source on top of the previous ones.
type Layer func(*Config) error

// Defaults returns the base configuration every layer starts from.
func Defaults() Config {
	return Config{
		Harness: HarnessConfig{Name: "apiconform", Version: "1.0.0"},
		REST: RESTConfig{
			Timeout:   10 * time.Second,
			Headers:   map[string]string{"Content-Type": "application/json"},
			RateLimit: RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5},
		},
		WebSocket: WebSocketConfig{
			Timeout:          10 * time.Second,
			ReceiveTimeout:   time.Second,
			HandshakeTimeout: 10 * time.Second,
			Signing:          SigningUnsigned,
		},
		Book: BookConfig{
			ToleranceMs:         10,
			SnapshotIntervalMs:  500,
			HeartbeatIntervalMs: 5000,
		},
		Instruments: InstrumentsConfig{
			Primary:   "BTCUSD-PERP",
			Secondary: "ETHUSD-PERP",
			Invalid:   "INVALID-SYMBOL",
		},
		Storage: StorageConfig{Capture: CaptureConfig{Dir: "captures"}},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout", Namespace: "APIConform", DashboardName: "APIConform"},
	}
}

const (
	SigningUnsigned = "unsigned"
	SigningHMAC     = "hmac"
)

// Build applies layers in order over Defaults and validates the result.
func Build(layers ...Layer) (Config, error) {
	cfg := Defaults()
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if err := layer(&cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.Storage.S3.Bucket = strings.TrimSpace(cfg.Storage.S3.Bucket)
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfig builds the configuration the CLI uses: environment defaults for
// TEST_ENV, then the YAML file at path, then process environment overrides.
func LoadConfig(path string) (Config, error) {
	return Build(
		EnvironmentDefaults(Environment(os.LookupEnv)),
		YAMLFile(path),
		EnvOverrides(os.LookupEnv),
	)
}

// EnvironmentDefaults sets endpoint URLs and credentials for a named
// environment. Unknown names get the test endpoints.
func EnvironmentDefaults(env string) Layer {
	return func(cfg *Config) error {
		name := NormalizeEnvironment(env)
		ep, ok := environments[name]
		if !ok {
			ep = environments[EnvironmentTest]
		}
		cfg.Harness.Environment = name
		cfg.REST.BaseURL = ep.rest
		cfg.WebSocket.MarketURL = ep.wsMarket
		cfg.WebSocket.UserURL = ep.wsUser
		cfg.WebSocket.APIKey = ep.apiKey
		cfg.WebSocket.SecretKey = ep.secretKey
		return nil
	}
}

// YAMLFile overlays the YAML document at path. An empty or missing path is
// skipped.
func YAMLFile(path string) Layer {
	return func(cfg *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		return nil
	}
}

// EnvOverrides applies individual settings from environment variables.
func EnvOverrides(lookup func(string) (string, bool)) Layer {
	return func(cfg *Config) error {
		str := func(key string, dst *string) {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
			}
		}
		seconds := func(key string, dst *time.Duration) error {
			v, ok := lookup(key)
			if !ok || strings.TrimSpace(v) == "" {
				return nil
			}
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n <= 0 {
				return fmt.Errorf("%s must be a positive number of seconds, got %q", key, v)
			}
			*dst = time.Duration(n) * time.Second
			return nil
		}

		str("REST_BASE_URL", &cfg.REST.BaseURL)
		str("WS_MARKET_URL", &cfg.WebSocket.MarketURL)
		str("WS_USER_URL", &cfg.WebSocket.UserURL)
		str("WS_API_KEY", &cfg.WebSocket.APIKey)
		str("WS_SECRET_KEY", &cfg.WebSocket.SecretKey)
		if err := seconds("REST_TIMEOUT", &cfg.REST.Timeout); err != nil {
			return err
		}
		if err := seconds("WS_TIMEOUT", &cfg.WebSocket.Timeout); err != nil {
			return err
		}
		str("LOG_LEVEL", &cfg.Logging.Level)
		str("LOG_DIR", &cfg.Logging.Dir)
		str("AWS_REGION", &cfg.Storage.S3.Region)
		str("S3_BUCKET", &cfg.Storage.S3.Bucket)
		str("AWS_ACCESS_KEY_ID", &cfg.Storage.S3.AccessKeyID)
		str("AWS_SECRET_ACCESS_KEY", &cfg.Storage.S3.SecretAccessKey)
		return nil
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Harness.Name == "" {
		return fmt.Errorf("harness.name is required")
	}
	if cfg.REST.BaseURL == "" {
		return fmt.Errorf("rest.base_url is required")
	}
	if cfg.WebSocket.MarketURL == "" {
		return fmt.Errorf("websocket.market_url is required")
	}
	if cfg.REST.Timeout <= 0 {
		return fmt.Errorf("rest.timeout must be greater than 0")
	}
	if cfg.WebSocket.Timeout <= 0 {
		return fmt.Errorf("websocket.timeout must be greater than 0")
	}
	if cfg.WebSocket.ReceiveTimeout <= 0 {
		return fmt.Errorf("websocket.receive_timeout must be greater than 0")
	}
	if cfg.REST.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rest.rate_limit.requests_per_second must be greater than 0")
	}
	if cfg.REST.RateLimit.BurstSize <= 0 {
		return fmt.Errorf("rest.rate_limit.burst_size must be greater than 0")
	}
	switch cfg.WebSocket.Signing {
	case SigningUnsigned, SigningHMAC:
	default:
		return fmt.Errorf("websocket.signing '%s' is invalid", cfg.WebSocket.Signing)
	}
	if cfg.Book.ToleranceMs < 0 {
		return fmt.Errorf("book.tolerance_ms must not be negative")
	}
	if cfg.Book.SnapshotIntervalMs <= 0 || cfg.Book.HeartbeatIntervalMs <= 0 {
		return fmt.Errorf("book intervals must be greater than 0")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
