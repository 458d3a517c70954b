package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

type Config struct {
	HTTP            HTTPConfig
	Database        DatabaseConfig
	Auth            AuthConfig
	RateLimit       RateLimitConfig
	CORSOrigins     []string
	FrontendDistDir string
	AuditLogFile    string
	LogLevel        string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

// Enabled reports whether a SQL backend was configured. Without one the
// server runs on in-memory stores.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != ""
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	UserFile      string
	SeedDemoUsers bool
	CookieSecure  bool
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration

	// TrustProxyHeaders keys buckets on X-Forwarded-For / X-Real-IP. Only
	// safe when a proxy in front overwrites those headers.
	TrustProxyHeaders bool
}

func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            httpAddr(),
			ReadTimeout:     time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SEC", 10)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SEC", 15)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("HTTP_SHUTDOWN_TIMEOUT_SEC", 20)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "mysql")),
			DSN:    databaseDSN(),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			TokenTTL:      time.Duration(getEnvInt("AUTH_TOKEN_TTL_SEC", 86400)) * time.Second,
			UserFile:      getEnv("AUTH_USER_FILE", ""),
			SeedDemoUsers: getEnvBool("AUTH_SEED_DEMO_USERS", false),
			CookieSecure:  getEnvBool("AUTH_COOKIE_SECURE", true),
		},
		RateLimit: RateLimitConfig{
			Requests:          getEnvInt("RATE_LIMIT_REQUESTS", 100),
			Window:            time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SEC", 900)) * time.Second,
			TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		},
		CORSOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		FrontendDistDir: getEnv("FRONTEND_DIST_DIR", "./public"),
		AuditLogFile:    getEnv("AUDIT_LOG_FILE", "./data/audit.log"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if cfg.HTTP.Addr == "" {
		return Config{}, fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.Database.Driver != "mysql" && cfg.Database.Driver != "postgres" {
		return Config{}, fmt.Errorf("DB_DRIVER must be mysql or postgres, got %q", cfg.Database.Driver)
	}
	if cfg.Database.Driver == "mysql" && cfg.Database.Enabled() {
		dsn, err := normalizeMySQLDSN(cfg.Database.DSN)
		if err != nil {
			return Config{}, fmt.Errorf("DATABASE_DSN: %w", err)
		}
		cfg.Database.DSN = dsn
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if len(cfg.Auth.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("AUTH_TOKEN_TTL_SEC must be > 0")
	}
	if cfg.RateLimit.Requests <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if cfg.RateLimit.Window <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_WINDOW_SEC must be > 0")
	}
	if cfg.AuditLogFile == "" {
		return Config{}, fmt.Errorf("AUDIT_LOG_FILE must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	return cfg, nil
}

// httpAddr prefers HTTP_ADDR and falls back to the bare PORT convention.
func httpAddr() string {
	if addr := getEnv("HTTP_ADDR", ""); addr != "" {
		return addr
	}
	return ":" + getEnv("PORT", "3000")
}

// databaseDSN returns DATABASE_DSN verbatim or assembles a MySQL DSN from the
// DB_HOST/DB_USER/DB_PASSWORD/DB_NAME quartet. Empty means no database.
func databaseDSN() string {
	if dsn := getEnv("DATABASE_DSN", ""); dsn != "" {
		return dsn
	}
	host := getEnv("DB_HOST", "")
	if host == "" {
		return ""
	}
	if !strings.Contains(host, ":") {
		host += ":3306"
	}
	mc := mysql.NewConfig()
	mc.User = getEnv("DB_USER", "root")
	mc.Passwd = getEnv("DB_PASSWORD", "")
	mc.Net = "tcp"
	mc.Addr = host
	mc.DBName = getEnv("DB_NAME", "football_recruiting")
	return mc.FormatDSN()
}

// normalizeMySQLDSN forces parseTime and UTC so DATE and TIMESTAMP columns
// scan into time.Time.
func normalizeMySQLDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
