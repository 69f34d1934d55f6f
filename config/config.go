// Package config holds the engine-wide, process-global configuration
// that spec.md §5 calls out as shared resources with "init-once /
// never-destroyed lifecycles": default classifier, redirect/restart
// limits, auth cache sizing, and the optional circuit breaker and
// loop collaborators.
//
// Ambient config loading follows the retrieval pack's viper
// convention (webitel-im-delivery-service): Load reads engine
// defaults from a file/env layer for host applications that want to
// externalize them, while New alone gives a fully-usable zero-setup
// Config, matching the teacher's style of sensible zero-value
// defaults on Client/Transport.
package config

import (
	"time"

	"github.com/sony/gobreaker"
	"github.com/spf13/viper"

	"github.com/badu/httpmsg/errclass"
	"github.com/badu/httpmsg/loop"
)

// Config bundles the engine's tunables. All fields have defaults set
// by New; a Config is safe to share across Messages but its fields
// must not be mutated concurrently with in-flight dispatch (spec.md
// §5's single-threaded cooperative model extends to Config).
type Config struct {
	// Classifier derives {class, phrase} from a numeric code for
	// Message.SetError. Defaults to errclass.Default.
	Classifier errclass.Classifier

	// Loop is the ambient event loop collaborator used by the queue
	// facade and the TIMEOUT built-in handler. Defaults to a fresh
	// *loop.Reference.
	Loop loop.Loop

	// MaxRedirects bounds how many times the redirect built-in
	// handler will RESEND the same Message (SPEC_FULL.md §4.7,
	// grounded in libsoup's redirect-loop guard). Default 20.
	MaxRedirects int

	// MaxRestartsPerEvent bounds RESTART re-entries into run_handlers
	// for a single lifecycle event (spec.md §9 "RESTART ambiguity").
	// Default 16.
	MaxRestartsPerEvent int

	// AuthCacheSize bounds the per-endpoint Auth LRU used by the
	// auth/proxy-auth built-in handlers. Default 256.
	AuthCacheSize int

	// AuthCallback is the process-wide callback invoked by the auth
	// built-in handlers when an endpoint has no credentials
	// (spec.md §4.7, §6 "process-wide auth callback registration").
	// Nil means no callback is registered.
	AuthCallback func(endpointKey string) (user, password string, ok bool)

	// CircuitBreakerSettings, when non-nil, enables the queue
	// facade's per-endpoint circuit breaker (SPEC_FULL.md §4.6).
	// Nil (the default) disables it, matching spec.md's described
	// out-of-the-box behavior.
	CircuitBreakerSettings *gobreaker.Settings
}

// New returns a Config with the engine's documented defaults.
func New() *Config {
	return &Config{
		Classifier:          errclass.Default,
		Loop:                loop.NewReference(),
		MaxRedirects:        20,
		MaxRestartsPerEvent: 16,
		AuthCacheSize:       256,
	}
}

// Load builds a Config by layering a file/env source on top of New's
// defaults, using viper the way webitel-im-delivery-service wires its
// application configuration. Recognized keys: max_redirects,
// max_restarts_per_event, auth_cache_size, and circuit_breaker.enabled,
// circuit_breaker.max_requests, circuit_breaker.timeout,
// circuit_breaker.consecutive_failures. Unrecognized keys are
// ignored so embedders can share a config file with unrelated
// settings.
func Load(configPath string) (*Config, error) {
	cfg := New()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("httpmsg")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	if v.IsSet("max_redirects") {
		cfg.MaxRedirects = v.GetInt("max_redirects")
	}
	if v.IsSet("max_restarts_per_event") {
		cfg.MaxRestartsPerEvent = v.GetInt("max_restarts_per_event")
	}
	if v.IsSet("auth_cache_size") {
		cfg.AuthCacheSize = v.GetInt("auth_cache_size")
	}
	if v.IsSet("circuit_breaker.enabled") && v.GetBool("circuit_breaker.enabled") {
		cfg.CircuitBreakerSettings = &gobreaker.Settings{
			Name:        "httpmsg-endpoint",
			MaxRequests: uint32(v.GetInt("circuit_breaker.max_requests")),
			Timeout:     v.GetDuration("circuit_breaker.timeout"),
			ReadyToTrip: defaultReadyToTrip(v.GetInt("circuit_breaker.consecutive_failures")),
		}
	}

	return cfg, nil
}

func defaultReadyToTrip(consecutiveFailures int) func(counts gobreaker.Counts) bool {
	if consecutiveFailures <= 0 {
		consecutiveFailures = 5
	}
	return func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= uint32(consecutiveFailures)
	}
}

// DefaultCircuitBreakerTimeout is the gobreaker open-state duration
// used when a caller enables the breaker programmatically (via
// Config.CircuitBreakerSettings) without going through Load.
const DefaultCircuitBreakerTimeout = 30 * time.Second
