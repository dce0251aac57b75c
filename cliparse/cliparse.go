package cliparse

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	SessionSecret string
	SessionTTL    time.Duration
	AdminKey      string
	RedisAddr     string
	AMQPURL       string
	AuditQueue    string
}

// LoadEnv reads .env files into the process environment.
// Missing files are not an error; real environment variables win.
func LoadEnv(filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil {
		slog.Debug("no .env file loaded, using environment variables", "error", err)
	}
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("ku-polls", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for the audit trail (optional)")
	fs.StringVar(&cfg.AMQPURL, "amqp", "", "AMQP URL for audit events (optional)")
	fs.StringVar(&cfg.AuditQueue, "audit-queue", "", "AMQP queue for audit events")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 0, "Session lifetime")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "Session signing secret (prefer env)")
	fs.StringVar(&cfg.AdminKey, "admin-key", "", "Admin API key (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 8000 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.SessionTTL == 0 {
		if ttlStr := os.Getenv("SESSION_TTL"); ttlStr != "" {
			ttl, err := time.ParseDuration(ttlStr)
			if err != nil {
				return Config{}, errors.New("invalid SESSION_TTL env variable")
			}
			cfg.SessionTTL = ttl
		} else {
			cfg.SessionTTL = 24 * time.Hour
		}
	}

	if cfg.RedisAddr == "" {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if cfg.AMQPURL == "" {
		cfg.AMQPURL = os.Getenv("AMQP_URL")
	}
	if cfg.AuditQueue == "" {
		cfg.AuditQueue = os.Getenv("AUDIT_QUEUE")
		if cfg.AuditQueue == "" {
			cfg.AuditQueue = "poll-audit"
		}
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	if cfg.AdminKey == "" {
		cfg.AdminKey = os.Getenv("ADMIN_KEY")
	}
	if cfg.AdminKey == "" {
		return Config{}, errors.New("ADMIN_KEY required")
	}

	return cfg, nil
}
