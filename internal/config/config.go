package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	PublicURL   string `yaml:"public_url"`
	FrontendURL string `yaml:"frontend_url"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	AuthSecret string `yaml:"auth_secret"`

	CORSOrigins []string `yaml:"cors_origins"`

	EnableGoogleAuth   bool   `yaml:"enable_google_auth"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	GoogleRedirectURI  string `yaml:"google_redirect_uri"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
	MailFrom string `yaml:"mail_from"`

	ResetTokenTTL string `yaml:"reset_token_ttl"`
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	pub := os.Getenv("PUBLIC_URL")
	return Config{
		HTTPAddr:    addr,
		PublicURL:   pub,
		FrontendURL: envOr("FRONTEND_URL", "http://localhost:3000"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"),

		EnableGoogleAuth:   envBool("ENABLE_GOOGLE_AUTH", false),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  envOr("GOOGLE_REDIRECT_URI", strings.TrimSuffix(pub, "/")+"/auth/google/callback"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: envOr("MAIL_FROM", "quizdeck@localhost"),

		ResetTokenTTL: envOr("RESET_TOKEN_TTL", "30m"),
	}
}

// LoadFile overlays values from a YAML file onto cfg. Missing file is not an
// error when optional is true, so `serve` works with env-only config.
func LoadFile(path string, cfg Config, optional bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func csvOr(k, def string) []string {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
