package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Telephony TelephonyConfig
	Calls     CallsConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type TelephonyConfig struct {
	// Provider selects the dialer: "twilio" or "noop" for local runs.
	Provider string

	AccountSID string
	AuthToken  string
	CallerID   string

	// WebhookSecret signs inbound status callbacks (HMAC-SHA256 over the
	// raw body).
	WebhookSecret string

	// StatusCallbackURL is where the provider posts call status events.
	StatusCallbackURL string
}

type CallsConfig struct {
	// DailyCap limits sessions initiated per lead per day.
	DailyCap int

	// StalenessThreshold is the age past which a lingering non-terminal
	// session is superseded by the next initiate.
	StalenessThreshold time.Duration

	// FreshnessWindow bounds how far back agent availability looks for a
	// blocking session.
	FreshnessWindow time.Duration

	// ReservationTTL bounds how long a routing reservation holds an agent.
	ReservationTTL time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Telephony.Provider = strings.TrimSpace(os.Getenv("TELEPHONY_PROVIDER"))
	c.Telephony.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Telephony.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Telephony.CallerID = strings.TrimSpace(os.Getenv("TELEPHONY_CALLER_ID"))
	c.Telephony.WebhookSecret = os.Getenv("TELEPHONY_WEBHOOK_SECRET")
	c.Telephony.StatusCallbackURL = strings.TrimSpace(os.Getenv("TELEPHONY_STATUS_CALLBACK_URL"))

	// Optional knobs; defaults applied in Validate().
	c.Calls.DailyCap = optInt("CALLS_DAILY_CAP", &parseErrs)
	c.Calls.StalenessThreshold = mustDuration("CALLS_STALENESS_THRESHOLD")
	c.Calls.FreshnessWindow = mustDuration("AGENTS_FRESHNESS_WINDOW")
	c.Calls.ReservationTTL = mustDuration("AGENTS_RESERVATION_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Telephony.Provider == "" {
		if c.IsProduction() {
			c.Telephony.Provider = "twilio"
		} else {
			c.Telephony.Provider = "noop"
		}
	}
	if c.Telephony.Provider != "twilio" && c.Telephony.Provider != "noop" {
		errs = append(errs, fmt.Errorf("TELEPHONY_PROVIDER must be twilio or noop, got %q", c.Telephony.Provider))
	}
	if c.Telephony.Provider == "twilio" {
		if c.Telephony.AccountSID == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
		}
		if c.Telephony.AuthToken == "" {
			errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
		}
		if c.Telephony.CallerID == "" {
			errs = append(errs, errors.New("TELEPHONY_CALLER_ID is required"))
		}
	}
	if c.Telephony.WebhookSecret == "" {
		errs = append(errs, errors.New("TELEPHONY_WEBHOOK_SECRET is required"))
	}

	if c.Calls.DailyCap <= 0 {
		c.Calls.DailyCap = 10
	}
	if c.Calls.StalenessThreshold <= 0 {
		c.Calls.StalenessThreshold = 300 * time.Second
	}
	if c.Calls.FreshnessWindow <= 0 {
		c.Calls.FreshnessWindow = time.Hour
	}
	if c.Calls.ReservationTTL <= 0 {
		c.Calls.ReservationTTL = 2 * time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optInt(key string, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return 0
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("configuration errors:")
	for _, e := range errs {
		b.WriteString("\n  - ")
		b.WriteString(e.Error())
	}
	return errors.New(b.String())
}
