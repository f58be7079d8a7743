package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Email        EmailConfig
	Invitation   InvitationConfig
	Sequence     SequenceConfig
	Admin        AdminConfig
	Organization OrganizationConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// EmailConfig for SMTP delivery. An empty SMTPHost logs emails instead of sending them.
type EmailConfig struct {
	FromAddress  string
	FromName     string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	WorkerInline bool // run the email worker inside the API process
}

// InvitationConfig controls links and deadlines of issued invitations.
type InvitationConfig struct {
	BaseURL      string        // frontend origin; links are {BaseURL}/invite/{token}
	PlatformName string        // shown in emails when the invitation has no organization
	TTL          time.Duration // lifetime of a newly issued invitation
	ResendTTL    time.Duration // lifetime after a resend
	BcryptCost   int
}

// SequenceConfig selects the counter store used for account identifiers.
type SequenceConfig struct {
	Backend string // "postgres" or "redis"
}

// AdminConfig seeds the first administrator when none exists.
type AdminConfig struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// OrganizationConfig describes the platform's own INTERNAL organization.
type OrganizationConfig struct {
	Name  string
	Email string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "onboarding"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Email: EmailConfig{
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@clarovate.io"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Clarovate"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASS", ""),
			WorkerInline: getEnvBool("EMAIL_WORKER_INLINE", false),
		},
		Invitation: InvitationConfig{
			BaseURL:      strings.TrimRight(getEnv("INVITE_BASE_URL", "http://localhost:5173"), "/"),
			PlatformName: getEnv("PLATFORM_NAME", "Clarovate"),
			TTL:          getEnvDuration("INVITATION_TTL", 48*time.Hour),
			ResendTTL:    getEnvDuration("RESEND_TTL", 24*time.Hour),
			BcryptCost:   getEnvInt("BCRYPT_COST", 10),
		},
		Sequence: SequenceConfig{
			Backend: strings.ToLower(getEnv("SEQUENCE_BACKEND", "postgres")),
		},
		Admin: AdminConfig{
			Email:     getEnv("ADMIN_EMAIL", ""),
			Password:  getEnv("ADMIN_PASSWORD", ""),
			FirstName: getEnv("ADMIN_NAME", "Admin"),
			LastName:  getEnv("ADMIN_LASTNAME", ""),
		},
		Organization: OrganizationConfig{
			Name:  getEnv("ORGANIZATION_NAME", "Clarovate"),
			Email: getEnv("ORGANIZATION_EMAIL", "admin@clarovate.io"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Sequence.Backend {
	case "postgres", "redis":
	default:
		return fmt.Errorf("SEQUENCE_BACKEND must be postgres or redis, got %q", c.Sequence.Backend)
	}
	if c.Invitation.TTL <= 0 || c.Invitation.ResendTTL <= 0 {
		return fmt.Errorf("INVITATION_TTL and RESEND_TTL must be positive")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
