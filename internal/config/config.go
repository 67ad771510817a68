package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort            = "5000"
	defaultProviderBaseURL = "https://api.groq.com/openai/v1"
	defaultStatusChannel   = "chat-gateway:status"
	defaultFetchTimeout    = 5 * time.Second
	defaultSearchDeadline  = 12 * time.Second
	defaultProviderTimeout = 60 * time.Second

	// MaxFetchTimeout caps the per-source deadline so one slow source cannot
	// starve the general fallback.
	MaxFetchTimeout = 5 * time.Second
)

// Config is the process-wide configuration, read once at startup.
type Config struct {
	Port string

	ProviderAPIKey  string
	ProviderBaseURL string
	// ParamPrefix, when set, lets the provider token be resolved from AWS SSM
	// at startup if ProviderAPIKey is empty.
	ParamPrefix string

	NewsAPIKey    string
	WeatherAPIKey string

	FetchTimeout    time.Duration
	SearchDeadline  time.Duration
	ProviderTimeout time.Duration

	RedisURL      string
	StatusChannel string

	CORSAllowedOrigins []string

	AutoBrowseURLs      bool
	VerifiedMarkerCheck bool
	LogFormat           string

	Policy Policy
}

// Load reads configuration from the environment. POLICY_FILE replaces the
// embedded policy and BROWSING_TRIGGERS replaces its trigger phrases.
func Load() (Config, error) {
	var policy Policy
	var err error
	if path := strings.TrimSpace(os.Getenv("POLICY_FILE")); path != "" {
		policy, err = LoadPolicy(path)
	} else {
		policy, err = DefaultPolicy()
	}
	if err != nil {
		return Config{}, err
	}
	if triggers := envList("BROWSING_TRIGGERS"); len(triggers) > 0 {
		policy.TriggerPhrases = triggers
	}

	cfg := Config{
		Port:                envString("PORT", defaultPort),
		ProviderAPIKey:      firstEnv("PROVIDER_API_KEY", "GROQ_API_KEY"),
		ProviderBaseURL:     envString("PROVIDER_BASE_URL", defaultProviderBaseURL),
		ParamPrefix:         strings.TrimRight(strings.TrimSpace(os.Getenv("PARAM_PREFIX")), "/"),
		NewsAPIKey:          strings.TrimSpace(os.Getenv("NEWS_API_KEY")),
		WeatherAPIKey:       strings.TrimSpace(os.Getenv("WEATHER_API_KEY")),
		FetchTimeout:        envDuration("FETCH_TIMEOUT", defaultFetchTimeout),
		SearchDeadline:      envDuration("SEARCH_DEADLINE", defaultSearchDeadline),
		ProviderTimeout:     envDuration("PROVIDER_TIMEOUT", defaultProviderTimeout),
		RedisURL:            strings.TrimSpace(os.Getenv("REDIS_URL")),
		StatusChannel:       envString("STATUS_CHANNEL", defaultStatusChannel),
		CORSAllowedOrigins:  envList("CORS_ALLOWED_ORIGINS"),
		AutoBrowseURLs:      envBool("AUTO_BROWSE_URLS", true),
		VerifiedMarkerCheck: envBool("VERIFIED_MARKER_CHECK", false),
		LogFormat:           envString("LOG_FORMAT", "text"),
		Policy:              policy,
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the gateway cannot run with.
// A missing provider key is not an error: it puts the gateway in the
// unconfigured state instead.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("config: PORT must be a valid TCP port, got %q", c.Port)
	}
	if c.FetchTimeout <= 0 || c.FetchTimeout > MaxFetchTimeout {
		return fmt.Errorf("config: FETCH_TIMEOUT must be within (0, %s], got %s", MaxFetchTimeout, c.FetchTimeout)
	}
	// The general fallback needs its own fetch budget after a slow source.
	if c.SearchDeadline < 2*c.FetchTimeout {
		return fmt.Errorf("config: SEARCH_DEADLINE %s must be at least twice FETCH_TIMEOUT %s", c.SearchDeadline, c.FetchTimeout)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("config: PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout)
	}
	if strings.TrimSpace(c.ProviderBaseURL) == "" {
		return fmt.Errorf("config: PROVIDER_BASE_URL must not be empty")
	}
	if strings.TrimSpace(c.StatusChannel) == "" {
		return fmt.Errorf("config: STATUS_CHANNEL must not be empty")
	}
	for _, o := range c.CORSAllowedOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("config: CORS_ALLOWED_ORIGINS entries must be * or an http(s) origin, got %q", o)
		}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return c.Policy.Validate()
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare integers are seconds.
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return def
		}
		return time.Duration(n) * time.Second
	}
	return d
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
