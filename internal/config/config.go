package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 4000
	defaultEnv        = "development"
	defaultMongoURI   = "mongodb://localhost:27017"
	defaultMongoName  = "walpay"
	defaultRedisURL   = "redis://localhost:6379/0"

	defaultAccessTokenTTLMinutes = 15
	defaultRefreshTokenTTLDays   = 30
	defaultSessionMaxLifeDays    = 60
	defaultAccessTokenBytes      = 32
	defaultRefreshTokenBytes     = 48
	defaultPasswordIterations    = 120000

	defaultOtpLength     = 6
	defaultOtpTTLMinutes = 10

	defaultPlatformFeePercent = 2.0
	defaultCountry            = "Nigeria"

	defaultRateLimitMax           = 10
	defaultRateLimitWindowSeconds = 60
	defaultCacheTTLSeconds        = 30
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int             `yaml:"port"`
	Env            string          `yaml:"env"` // "development" | "production"
	Mongo          MongoConfig     `yaml:"mongo"`
	RedisURL       string          `yaml:"redis_url"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	Auth           AuthConfig      `yaml:"auth"`
	Otp            OtpConfig       `yaml:"otp"`
	Mail           MailConfig      `yaml:"mail"`
	Flow           FlowConfig      `yaml:"flow"`
	Payment        PaymentConfig   `yaml:"payment"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

type MongoConfig struct {
	URI  string `yaml:"uri"`
	Name string `yaml:"name"`
}

type AuthConfig struct {
	AccessTokenTTLMinutes int `yaml:"access_token_ttl_minutes"`
	RefreshTokenTTLDays   int `yaml:"refresh_token_ttl_days"`
	SessionMaxLifeDays    int `yaml:"session_max_life_days"`
	AccessTokenBytes      int `yaml:"access_token_bytes"`
	RefreshTokenBytes     int `yaml:"refresh_token_bytes"`
	PasswordIterations    int `yaml:"password_iterations"`
}

type OtpConfig struct {
	Length     int `yaml:"length"`
	TTLMinutes int `yaml:"ttl_minutes"`
}

type MailConfig struct {
	Enable    bool   `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	UseResend bool   `yaml:"use_resend"`
	ResendKey string `yaml:"resend_key"`
}

type FlowConfig struct {
	// AccessNode is the transaction submission endpoint. Empty means
	// transactions are acknowledged locally without hitting the chain.
	AccessNode string  `yaml:"access_node"`
	USDRate    float64 `yaml:"usd_rate"` // USD per 1 FLOW
}

type PaymentConfig struct {
	PlatformFeePercent float64 `yaml:"platform_fee_percent"`
	DefaultCountry     string  `yaml:"default_country"`
}

type RateLimitConfig struct {
	Max             int64 `yaml:"max"`
	WindowSeconds   int   `yaml:"window_seconds"`
	CacheTTLSeconds int   `yaml:"cache_ttl_seconds"`
}

// Load reads and validates the YAML config at path.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	normalize(&cfg)
	if err := validate(&cfg, path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Mongo: MongoConfig{
			URI:  defaultMongoURI,
			Name: defaultMongoName,
		},
		RedisURL: defaultRedisURL,
		Auth: AuthConfig{
			AccessTokenTTLMinutes: defaultAccessTokenTTLMinutes,
			RefreshTokenTTLDays:   defaultRefreshTokenTTLDays,
			SessionMaxLifeDays:    defaultSessionMaxLifeDays,
			AccessTokenBytes:      defaultAccessTokenBytes,
			RefreshTokenBytes:     defaultRefreshTokenBytes,
			PasswordIterations:    defaultPasswordIterations,
		},
		Otp: OtpConfig{
			Length:     defaultOtpLength,
			TTLMinutes: defaultOtpTTLMinutes,
		},
		Mail: MailConfig{
			Port: 587,
		},
		Payment: PaymentConfig{
			PlatformFeePercent: defaultPlatformFeePercent,
			DefaultCountry:     defaultCountry,
		},
		RateLimit: RateLimitConfig{
			Max:             defaultRateLimitMax,
			WindowSeconds:   defaultRateLimitWindowSeconds,
			CacheTTLSeconds: defaultCacheTTLSeconds,
		},
	}
}

func normalize(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Mongo.URI = strings.TrimSpace(cfg.Mongo.URI)
	cfg.Mongo.Name = strings.TrimSpace(cfg.Mongo.Name)
	if cfg.Mongo.Name == "" {
		cfg.Mongo.Name = defaultMongoName
	}
	cfg.RedisURL = normalizeRedisURL(cfg.RedisURL)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Flow.AccessNode = strings.TrimRight(strings.TrimSpace(cfg.Flow.AccessNode), "/")
	cfg.Payment.DefaultCountry = strings.TrimSpace(cfg.Payment.DefaultCountry)
	if cfg.Payment.DefaultCountry == "" {
		cfg.Payment.DefaultCountry = defaultCountry
	}
}

func validate(cfg *AppConfig, path string) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Mongo.URI == "" {
		return fmt.Errorf("missing mongo.uri in %q", path)
	}
	if cfg.Auth.AccessTokenTTLMinutes < 1 {
		return fmt.Errorf("invalid auth.access_token_ttl_minutes %d in %q, expected >= 1", cfg.Auth.AccessTokenTTLMinutes, path)
	}
	if cfg.Auth.RefreshTokenTTLDays < 1 {
		return fmt.Errorf("invalid auth.refresh_token_ttl_days %d in %q, expected >= 1", cfg.Auth.RefreshTokenTTLDays, path)
	}
	if cfg.Auth.SessionMaxLifeDays < cfg.Auth.RefreshTokenTTLDays {
		return fmt.Errorf("invalid auth.session_max_life_days %d in %q, expected >= refresh_token_ttl_days", cfg.Auth.SessionMaxLifeDays, path)
	}
	if cfg.Otp.Length < 4 || cfg.Otp.Length > 10 {
		return fmt.Errorf("invalid otp.length %d in %q, expected 4-10", cfg.Otp.Length, path)
	}
	if cfg.Otp.TTLMinutes < 1 {
		return fmt.Errorf("invalid otp.ttl_minutes %d in %q, expected >= 1", cfg.Otp.TTLMinutes, path)
	}
	if cfg.Payment.PlatformFeePercent < 0 || cfg.Payment.PlatformFeePercent >= 100 {
		return fmt.Errorf("invalid payment.platform_fee_percent %v in %q, expected 0-100", cfg.Payment.PlatformFeePercent, path)
	}
	if cfg.Flow.USDRate < 0 {
		return fmt.Errorf("invalid flow.usd_rate %v in %q, expected >= 0", cfg.Flow.USDRate, path)
	}
	if cfg.RateLimit.Max < 1 {
		return fmt.Errorf("invalid rate_limit.max %d in %q, expected >= 1", cfg.RateLimit.Max, path)
	}
	if cfg.RateLimit.WindowSeconds < 1 {
		return fmt.Errorf("invalid rate_limit.window_seconds %d in %q, expected >= 1", cfg.RateLimit.WindowSeconds, path)
	}
	if cfg.Mail.Enable && !cfg.Mail.UseResend {
		if cfg.Mail.Host == "" || cfg.Mail.User == "" {
			return fmt.Errorf("mail enabled in %q but mail.host or mail.user missing", path)
		}
	}
	return nil
}

func normalizeRedisURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultRedisURL
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLDays) * 24 * time.Hour
}

func (a AuthConfig) SessionMaxLife() time.Duration {
	return time.Duration(a.SessionMaxLifeDays) * 24 * time.Hour
}

func (o OtpConfig) TTL() time.Duration {
	return time.Duration(o.TTLMinutes) * time.Minute
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

func (r RateLimitConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}
