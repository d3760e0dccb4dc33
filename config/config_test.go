package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig writes content to a temporary YAML file and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestBuildDefaults(t *testing.T) {
	cfg, err := Build(EnvironmentDefaults(""))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if cfg.Harness.Environment != EnvironmentUAT {
		t.Errorf("unexpected environment: %s", cfg.Harness.Environment)
	}
	if cfg.REST.BaseURL != "https://uat-api.3ona.co/exchange/v1" {
		t.Errorf("unexpected rest url: %s", cfg.REST.BaseURL)
	}
	if cfg.WebSocket.APIKey != "API_KEY" || cfg.WebSocket.SecretKey != "SECRET_KEY" {
		t.Errorf("unexpected credentials: %+v", cfg.WebSocket)
	}
	if cfg.REST.Timeout != 10*time.Second || cfg.WebSocket.Timeout != 10*time.Second {
		t.Errorf("unexpected timeouts: %v %v", cfg.REST.Timeout, cfg.WebSocket.Timeout)
	}
	if cfg.WebSocket.ReceiveTimeout != time.Second {
		t.Errorf("unexpected receive timeout: %v", cfg.WebSocket.ReceiveTimeout)
	}
	if cfg.Book.ToleranceMs != 10 || cfg.Book.SnapshotIntervalMs != 500 || cfg.Book.HeartbeatIntervalMs != 5000 {
		t.Errorf("unexpected book timings: %+v", cfg.Book)
	}
	if cfg.WebSocket.Signing != SigningUnsigned {
		t.Errorf("unexpected signing mode: %s", cfg.WebSocket.Signing)
	}
	if cfg.REST.Headers["Content-Type"] != "application/json" {
		t.Errorf("missing default header: %v", cfg.REST.Headers)
	}
}

func TestEnvironmentDefaults(t *testing.T) {
	cases := []struct {
		env       string
		wantName  string
		wantREST  string
		wantWS    string
		wantAPIKy string
	}{
		{"uat", "uat", "https://uat-api.3ona.co/exchange/v1", "wss://uat-stream.3ona.co/exchange/v1/market", "API_KEY"},
		{"STAGGING", "staging", "https://staging-api.3ona.co/exchange/v1", "wss://uat-stream.3ona.co/exchange/v1/market", ""},
		{"production", "prod", "https://api.crypto.com/exchange/v1", "wss://stream.crypto.com/exchange/v1/market", ""},
		{"test", "test", "https://httpbin.org", "wss://echo.websocket.org", ""},
		{"qa", "qa", "https://httpbin.org", "wss://echo.websocket.org", ""},
	}
	for _, c := range cases {
		t.Run(c.env, func(t *testing.T) {
			cfg, err := Build(EnvironmentDefaults(c.env))
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if cfg.Harness.Environment != c.wantName {
				t.Errorf("environment = %s, want %s", cfg.Harness.Environment, c.wantName)
			}
			if cfg.REST.BaseURL != c.wantREST {
				t.Errorf("rest = %s, want %s", cfg.REST.BaseURL, c.wantREST)
			}
			if cfg.WebSocket.MarketURL != c.wantWS {
				t.Errorf("ws market = %s, want %s", cfg.WebSocket.MarketURL, c.wantWS)
			}
			if cfg.WebSocket.APIKey != c.wantAPIKy {
				t.Errorf("api key = %q, want %q", cfg.WebSocket.APIKey, c.wantAPIKy)
			}
		})
	}
}

func TestLayerPrecedence(t *testing.T) {
	path := writeTempConfig(t, `rest:
  base_url: "https://yaml.example/v1"
  timeout: 3s
websocket:
  market_url: "wss://yaml.example/market"
  signing: hmac
book:
  snapshot_interval_ms: 100
logging:
  level: debug
`)
	env := map[string]string{
		"REST_BASE_URL": "https://env.example/v1",
		"WS_TIMEOUT":    "4",
		"LOG_LEVEL":     "warn",
	}
	cfg, err := Build(EnvironmentDefaults("uat"), YAMLFile(path), EnvOverrides(lookupFrom(env)))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if cfg.REST.BaseURL != "https://env.example/v1" {
		t.Errorf("env override lost: %s", cfg.REST.BaseURL)
	}
	if cfg.WebSocket.MarketURL != "wss://yaml.example/market" {
		t.Errorf("yaml layer lost: %s", cfg.WebSocket.MarketURL)
	}
	if cfg.WebSocket.UserURL != "wss://uat-stream.3ona.co/exchange/v1/user" {
		t.Errorf("environment default lost: %s", cfg.WebSocket.UserURL)
	}
	if cfg.REST.Timeout != 3*time.Second {
		t.Errorf("yaml duration lost: %v", cfg.REST.Timeout)
	}
	if cfg.WebSocket.Timeout != 4*time.Second {
		t.Errorf("env seconds lost: %v", cfg.WebSocket.Timeout)
	}
	if cfg.Book.SnapshotIntervalMs != 100 || cfg.Book.HeartbeatIntervalMs != 5000 {
		t.Errorf("book overlay wrong: %+v", cfg.Book)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %s", cfg.Logging.Level)
	}
	if cfg.WebSocket.Signing != SigningHMAC {
		t.Errorf("signing = %s", cfg.WebSocket.Signing)
	}
}

func TestYAMLFileMissingIsSkipped(t *testing.T) {
	if _, err := Build(EnvironmentDefaults("uat"), YAMLFile("/nonexistent/apiconform.yml")); err != nil {
		t.Fatalf("missing file should be skipped: %v", err)
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name   string
		layers []Layer
	}{
		{"bad timeout", []Layer{EnvironmentDefaults("uat"), EnvOverrides(lookupFrom(map[string]string{"REST_TIMEOUT": "soon"}))}},
		{"no rest url", []Layer{func(c *Config) error { return nil }}},
		{"bad yaml", []Layer{EnvironmentDefaults("uat"), YAMLFile(writeTempConfig(t, "rest: [unclosed"))}},
		{"bad signing", []Layer{EnvironmentDefaults("uat"), func(c *Config) error { c.WebSocket.Signing = "rsa"; return nil }}},
		{"s3 without bucket", []Layer{EnvironmentDefaults("uat"), func(c *Config) error { c.Storage.S3.Enabled = true; return nil }}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Build(c.layers...); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNormalizeEnvironment(t *testing.T) {
	cases := map[string]string{
		"":           "uat",
		" UAT ":      "uat",
		"stag":       "staging",
		"production": "prod",
		"prod":       "prod",
		"local":      "local",
	}
	for in, want := range cases {
		if got := NormalizeEnvironment(in); got != want {
			t.Errorf("NormalizeEnvironment(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Environment(lookupFrom(map[string]string{"TEST_ENV": "Staging"})); got != "staging" {
		t.Errorf("Environment = %s", got)
	}
	if !IsProductionLike("prod") || IsProductionLike("uat") {
		t.Error("IsProductionLike mismatch")
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
