package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port           int
	LogLevel       string
	AllowedOrigins []string

	// Nexora backend
	NexoraAPIURL   string
	RefreshPath    string
	HTTPTimeout    time.Duration
	MaxUploadBytes int64

	// Resilience
	MaxConcurrency int

	// Sessions
	SessionTTL           time.Duration
	SessionStore         string
	SessionFile          string
	SessionEncryptionKey string
	DatabaseURL          string

	// Observability
	OTLPEndpoint string

	// Loan contract
	EthRPCURL           string
	LoanContractAddress string
	LoanSignerKey       string
	ReceiptPollRetries  int
	ReceiptPollBackoff  time.Duration
}

// LoadDotEnv loads .env style files into the environment. Variables already
// set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:5001", "http://127.0.0.1:5001"),

		NexoraAPIURL:   getEnv("NEXORA_API_URL", "http://localhost:8000"),
		RefreshPath:    getEnv("REFRESH_PATH", "/refresh"),
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 60*time.Second),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		SessionTTL:           getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionStore:         getEnv("SESSION_STORE", StoreMemory),
		SessionFile:          getEnv("SESSION_FILE", ".nexora-session"),
		SessionEncryptionKey: getEnv("SESSION_ENCRYPTION_KEY", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		EthRPCURL:           getEnv("ETH_RPC_URL", ""),
		LoanContractAddress: getEnv("LOAN_CONTRACT_ADDRESS", ""),
		LoanSignerKey:       getEnv("LOAN_SIGNER_KEY", ""),
		ReceiptPollRetries:  getEnvInt("RECEIPT_POLL_RETRIES", 20),
		ReceiptPollBackoff:  getEnvDuration("RECEIPT_POLL_BACKOFF", 500*time.Millisecond),
	}
}

// Validate checks combinations Load cannot default away.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreMemory:
	case StoreFile:
		if c.SessionEncryptionKey == "" {
			return errors.New("SESSION_ENCRYPTION_KEY is required for the file session store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres session store")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q (want memory, file or postgres)", c.SessionStore)
	}
	if c.EthRPCURL != "" && c.LoanContractAddress == "" {
		return errors.New("LOAN_CONTRACT_ADDRESS is required when ETH_RPC_URL is set")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
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

func getEnvList(key string, fallback ...string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
