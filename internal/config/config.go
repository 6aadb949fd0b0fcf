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
	Auth      AuthConfig
	Telephony TelephonyConfig
	Dialer    DialerConfig
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

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// TelephonyConfig covers the provider control API and the dialing defaults
// applied by the directive builder.
type TelephonyConfig struct {
	AccountSID string
	AuthToken  string

	// APIBaseURL is the provider control API root. Empty means the provider
	// adapter default.
	APIBaseURL string

	// CallbackBaseURL is the public base URL this service is reachable at.
	// Webhook callback URLs (voice, status, recording) are derived from it.
	CallbackBaseURL string

	// CallerID is the default outbound caller id (E.164).
	CallerID string

	// DefaultForwardNumber receives bare inbound calls that carry no
	// destination.
	DefaultForwardNumber string

	// CountryPrefix replaces a leading 0 during number normalization,
	// e.g. "+61".
	CountryPrefix string

	// FallbackCountryCode prefixes bare 10-digit numbers, e.g. "+1".
	FallbackCountryCode string

	// HoldMusicURL plays while a conference participant waits.
	HoldMusicURL string
}

// DialerConfig bounds campaign origination.
type DialerConfig struct {
	// MaxOutstandingPerCampaign caps concurrent in-flight originations for a
	// single campaign. This is the predictive-mode backpressure bound.
	MaxOutstandingPerCampaign int

	// OriginateTimeout bounds a single provider originate/update request.
	OriginateTimeout time.Duration
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

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Telephony.AccountSID = strings.TrimSpace(os.Getenv("TELEPHONY_ACCOUNT_SID"))
	c.Telephony.AuthToken = os.Getenv("TELEPHONY_AUTH_TOKEN")
	c.Telephony.APIBaseURL = strings.TrimSpace(os.Getenv("TELEPHONY_API_BASE_URL"))
	c.Telephony.CallbackBaseURL = strings.TrimSpace(os.Getenv("TELEPHONY_CALLBACK_BASE_URL"))
	c.Telephony.CallerID = strings.TrimSpace(os.Getenv("TELEPHONY_CALLER_ID"))
	c.Telephony.DefaultForwardNumber = strings.TrimSpace(os.Getenv("TELEPHONY_DEFAULT_FORWARD_NUMBER"))
	c.Telephony.CountryPrefix = strings.TrimSpace(os.Getenv("TELEPHONY_COUNTRY_PREFIX"))
	c.Telephony.FallbackCountryCode = strings.TrimSpace(os.Getenv("TELEPHONY_FALLBACK_COUNTRY_CODE"))
	c.Telephony.HoldMusicURL = strings.TrimSpace(os.Getenv("TELEPHONY_HOLD_MUSIC_URL"))

	{
		n, err := mustInt("DIALER_MAX_OUTSTANDING_PER_CAMPAIGN")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Dialer.MaxOutstandingPerCampaign = n
	}
	c.Dialer.OriginateTimeout = mustDuration("DIALER_ORIGINATE_TIMEOUT")

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
	if strings.TrimSpace(c.DB.SSLMode) == "" {
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

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Telephony.AccountSID == "" {
		errs = append(errs, errors.New("TELEPHONY_ACCOUNT_SID is required"))
	}
	if c.Telephony.AuthToken == "" {
		errs = append(errs, errors.New("TELEPHONY_AUTH_TOKEN is required"))
	}
	if c.Telephony.CallbackBaseURL == "" {
		errs = append(errs, errors.New("TELEPHONY_CALLBACK_BASE_URL is required"))
	}
	if c.Telephony.CallerID == "" {
		errs = append(errs, errors.New("TELEPHONY_CALLER_ID is required"))
	}
	if c.Telephony.DefaultForwardNumber == "" {
		errs = append(errs, errors.New("TELEPHONY_DEFAULT_FORWARD_NUMBER is required"))
	}
	if c.Telephony.CountryPrefix == "" {
		errs = append(errs, errors.New("TELEPHONY_COUNTRY_PREFIX is required"))
	} else if !strings.HasPrefix(c.Telephony.CountryPrefix, "+") {
		errs = append(errs, fmt.Errorf("TELEPHONY_COUNTRY_PREFIX must start with +, got %q", c.Telephony.CountryPrefix))
	}
	if c.Telephony.FallbackCountryCode == "" {
		errs = append(errs, errors.New("TELEPHONY_FALLBACK_COUNTRY_CODE is required"))
	} else if !strings.HasPrefix(c.Telephony.FallbackCountryCode, "+") {
		errs = append(errs, fmt.Errorf("TELEPHONY_FALLBACK_COUNTRY_CODE must start with +, got %q", c.Telephony.FallbackCountryCode))
	}

	if c.Dialer.MaxOutstandingPerCampaign <= 0 {
		errs = append(errs, fmt.Errorf("DIALER_MAX_OUTSTANDING_PER_CAMPAIGN must be > 0, got %d", c.Dialer.MaxOutstandingPerCampaign))
	}
	if c.Dialer.OriginateTimeout <= 0 {
		c.Dialer.OriginateTimeout = 10 * time.Second
	}

	return joinErrors(errs)
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c *Config) PostgresDSN() string {
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

func (c *Config) RedisAddr() string {
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
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
