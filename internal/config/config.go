package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, the dataset source,
// the dataset cache, request rate limiting, spreadsheet export and
// graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogLevel overrides the level implied by Environment when set
	LogLevel string `env:"LOG_LEVEL" yaml:"logLevel"`
	// Timezone is the IANA location used to decide what "today" is
	Timezone string `env:"TIMEZONE" env-default:"Local" yaml:"timezone"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"1m" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// TrustForwardedFor identifies clients by the first X-Forwarded-For entry
		TrustForwardedFor bool `env:"HTTP_TRUST_FORWARDED_FOR" env-default:"false" yaml:"trustForwardedFor"`
	} `yaml:"http"`

	// Source describes where the daily regional dataset comes from
	Source struct {
		// URL of the remote JSON dataset
		URL string `env:"SOURCE_URL" env-default:"https://raw.githubusercontent.com/pcm-dpc/COVID-19/refs/heads/master/dati-json/dpc-covid19-ita-province.json" yaml:"url"` //nolint: lll
		// File is a local JSON file used instead of URL when set
		File string `env:"SOURCE_FILE" yaml:"file"`
		// Timeout bounds a single fetch or file read
		Timeout time.Duration `env:"SOURCE_TIMEOUT" env-default:"30s" yaml:"timeout"`
		// UserAgent is sent with remote requests
		UserAgent string `env:"SOURCE_USER_AGENT" env-default:"covid-analyzer/1.0" yaml:"userAgent"`
		// MaxPayloadBytes rejects larger payloads, zero disables the check
		MaxPayloadBytes int64 `env:"SOURCE_MAX_PAYLOAD_BYTES" env-default:"268435456" yaml:"maxPayloadBytes"`
		// Normalizer selects the schema of the payload and the malformed record policy
		Normalizer struct {
			// Policy is either skip or strict
			Policy          string `env:"SOURCE_NORMALIZER_POLICY" env-default:"skip" yaml:"policy"`
			DateField       string `env:"SOURCE_NORMALIZER_DATE_FIELD" env-default:"data" yaml:"dateField"`
			RegionCodeField string `env:"SOURCE_NORMALIZER_REGION_CODE_FIELD" env-default:"codice_regione" yaml:"regionCodeField"` //nolint: lll
			RegionNameField string `env:"SOURCE_NORMALIZER_REGION_NAME_FIELD" env-default:"denominazione_regione" yaml:"regionNameField"` //nolint: lll
			CasesField      string `env:"SOURCE_NORMALIZER_CASES_FIELD" env-default:"totale_casi" yaml:"casesField"`
		} `yaml:"normalizer"`
	} `yaml:"source"`

	// Cache contains dataset cache related configurations
	Cache struct {
		// LoadTimeout bounds a whole reload, zero relies on the source timeout only
		LoadTimeout time.Duration `env:"CACHE_LOAD_TIMEOUT" env-default:"0s" yaml:"loadTimeout"`
	} `yaml:"cache"`

	// RateLimit contains request rate limiting configurations
	RateLimit struct {
		// Policy is one of fixed, sliding, token or redis
		Policy string `env:"RATE_LIMIT_POLICY" env-default:"fixed" yaml:"policy"`
		// Limit is the number of requests a client may issue per Window
		Limit int `env:"RATE_LIMIT_LIMIT" env-default:"5" yaml:"limit"`
		// Window is the length of the limiting window
		Window time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"1m" yaml:"window"`
		// CleanupInterval controls how often idle clients are evicted
		CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" env-default:"2m" yaml:"cleanupInterval"`
	} `yaml:"rateLimit"`

	// Redis contains the connection used by the redis rate limit policy
	Redis struct {
		// Addr is the host:port of the Redis server
		Addr string `env:"REDIS_ADDR" env-default:"localhost:6379" yaml:"addr"`
		// Password for Redis authentication
		Password string `env:"REDIS_PASSWORD" yaml:"password"`
		// DB is the Redis database number
		DB int `env:"REDIS_DB" env-default:"0" yaml:"db"`
		// KeyPrefix namespaces the limiter keys
		KeyPrefix string `env:"REDIS_KEY_PREFIX" env-default:"covid-analyzer:ratelimit" yaml:"keyPrefix"`
		// DialTimeout bounds connecting to Redis
		DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" env-default:"2s" yaml:"dialTimeout"`
	} `yaml:"redis"`

	// Tracing controls the OpenTelemetry trace pipeline
	Tracing struct {
		// Enabled installs a tracer provider exporting spans
		Enabled bool `env:"TRACING_ENABLED" env-default:"false" yaml:"enabled"`
		// Output is the file spans are written to as JSON, empty means stderr
		Output string `env:"TRACING_OUTPUT" yaml:"output"`
	} `yaml:"tracing"`

	// Export contains spreadsheet export configurations
	Export struct {
		// Output is the default workbook path, empty derives it from the window end
		Output string `env:"EXPORT_OUTPUT" yaml:"output"`
	} `yaml:"export"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
// A missing file is not an error, the configuration then comes from the
// environment and the defaults.
func Load(configPath string) (*Config, error) {
	var cfg Config

	_, err := os.Stat(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = cleanenv.ReadEnv(&cfg)
	case err != nil:
	default:
		err = cleanenv.ReadConfig(configPath, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.Source.Normalizer.Policy {
	case "skip", "strict":
	default:
		return fmt.Errorf("invalid normalizer policy %q, expected skip or strict", c.Source.Normalizer.Policy)
	}

	switch c.RateLimit.Policy {
	case "fixed", "sliding", "token", "redis":
	default:
		return fmt.Errorf("invalid rate limit policy %q, expected fixed, sliding, token or redis", c.RateLimit.Policy)
	}

	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	return loc, nil
}
