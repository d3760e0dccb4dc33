package config

import "strings"

const testEnvVar = "TEST_ENV"

const (
	EnvironmentTest       = "test"
	EnvironmentUAT        = "uat"
	EnvironmentStaging    = "staging"
	EnvironmentProduction = "prod"
)

var environmentAliases = map[string]string{
	"production":  EnvironmentProduction,
	"producation": EnvironmentProduction,
	"stag":        EnvironmentStaging,
	"stagging":    EnvironmentStaging,
}

type endpoints struct {
	rest      string
	wsMarket  string
	wsUser    string
	apiKey    string
	secretKey string
}

var environments = map[string]endpoints{
	EnvironmentTest: {
		rest:     "https://httpbin.org",
		wsMarket: "wss://echo.websocket.org",
		wsUser:   "wss://echo.websocket.org",
	},
	EnvironmentUAT: {
		rest:      "https://uat-api.3ona.co/exchange/v1",
		wsMarket:  "wss://uat-stream.3ona.co/exchange/v1/market",
		wsUser:    "wss://uat-stream.3ona.co/exchange/v1/user",
		apiKey:    "API_KEY",
		secretKey: "SECRET_KEY",
	},
	// staging shares the uat stream endpoints
	EnvironmentStaging: {
		rest:     "https://staging-api.3ona.co/exchange/v1",
		wsMarket: "wss://uat-stream.3ona.co/exchange/v1/market",
		wsUser:   "wss://uat-stream.3ona.co/exchange/v1/user",
	},
	EnvironmentProduction: {
		rest:     "https://api.crypto.com/exchange/v1",
		wsMarket: "wss://stream.crypto.com/exchange/v1/market",
		wsUser:   "wss://stream.crypto.com/exchange/v1/user",
	},
}

// NormalizeEnvironment lower-cases name and resolves aliases. An empty name
// means uat.
func NormalizeEnvironment(name string) string {
	env := strings.ToLower(strings.TrimSpace(name))
	if env == "" {
		return EnvironmentUAT
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// Environment reads TEST_ENV through lookup.
func Environment(lookup func(string) (string, bool)) string {
	v, _ := lookup(testEnvVar)
	return NormalizeEnvironment(v)
}

// KnownEnvironment reports whether env has its own endpoint set.
func KnownEnvironment(env string) bool {
	_, ok := environments[env]
	return ok
}

// IsProductionLike reports whether the provided environment talks to a
// production deployment.
func IsProductionLike(env string) bool {
	return env == EnvironmentProduction
}
