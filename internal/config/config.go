package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"recyclectl/internal/recycle"
)

type Config struct {
	StateRoot    string
	RecycleRoot  string
	AuditLogFile string

	ProfileRoot       string
	ExtraAllowedRoots []string
	GovernanceRoots   []string

	ScanRoots     []string
	CacheDirNames []string
	ScanMaxDepth  int
	ScanTimeout   time.Duration

	Retention recycle.Policy

	ServerBind   string
	ServerPort   string
	CORSOrigins  []string
	RateLimitRPM int

	LogLevel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	stateRoot := getEnv("STATE_ROOT", "./state")

	profileRoot := strings.TrimSpace(os.Getenv("PROFILE_ROOT"))
	if profileRoot == "" {
		if home, err := os.UserHomeDir(); err == nil {
			profileRoot = home
		} else {
			profileRoot = "."
		}
	}

	cfg := &Config{
		StateRoot:         stateRoot,
		RecycleRoot:       getEnv("RECYCLE_ROOT", filepath.Join(stateRoot, "recycle")),
		AuditLogFile:      getEnv("AUDIT_LOG_FILE", filepath.Join(stateRoot, "audit.log")),
		ProfileRoot:       profileRoot,
		ExtraAllowedRoots: splitCSV(strings.TrimSpace(os.Getenv("EXTRA_ALLOWED_ROOTS"))),
		GovernanceRoots:   splitCSV(strings.TrimSpace(os.Getenv("GOVERNANCE_ROOTS"))),
		ScanRoots:         splitCSV(getEnv("SCAN_ROOTS", profileRoot)),
		CacheDirNames:     splitCSV(getEnv("CACHE_DIR_NAMES", ".cache,Cache,CacheStorage,CachedData")),
		ScanMaxDepth:      getInt("SCAN_MAX_DEPTH", 6),
		ScanTimeout:       getDuration("SCAN_TIMEOUT", 30*time.Second),
		Retention: recycle.Policy{
			Enabled:         getBool("RETENTION_ENABLED", true),
			MaxAgeDays:      getInt("RETENTION_MAX_AGE_DAYS", 30),
			MinKeepBatches:  getInt("RETENTION_MIN_KEEP_BATCHES", 3),
			SizeThresholdGB: getFloat("RETENTION_SIZE_THRESHOLD_GB", 10),
		},
		ServerBind:   getEnv("SERVER_BIND", "127.0.0.1"),
		ServerPort:   getEnv("SERVER_PORT", "8090"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM: getInt("RATE_LIMIT_RPM", 120),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.StateRoot) == "" {
		return fmt.Errorf("STATE_ROOT cannot be empty")
	}

	if strings.TrimSpace(c.RecycleRoot) == "" {
		return fmt.Errorf("RECYCLE_ROOT cannot be empty")
	}

	if strings.TrimSpace(c.AuditLogFile) == "" {
		return fmt.Errorf("AUDIT_LOG_FILE cannot be empty")
	}

	if strings.TrimSpace(c.ProfileRoot) == "" {
		return fmt.Errorf("PROFILE_ROOT cannot be empty")
	}

	if len(c.ScanRoots) == 0 {
		return fmt.Errorf("SCAN_ROOTS cannot be empty")
	}

	if c.Retention.MaxAgeDays < 0 {
		return fmt.Errorf("RETENTION_MAX_AGE_DAYS cannot be negative")
	}

	if c.Retention.MinKeepBatches < 0 {
		return fmt.Errorf("RETENTION_MIN_KEEP_BATCHES cannot be negative")
	}

	if c.Retention.SizeThresholdGB < 0 {
		return fmt.Errorf("RETENTION_SIZE_THRESHOLD_GB cannot be negative")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	return nil
}

// AllowedRestoreRoots lists the roots a profile-scoped restore destination
// must resolve under.
func (c *Config) AllowedRestoreRoots() []string {
	roots := []string{c.ProfileRoot}
	return append(roots, c.ExtraAllowedRoots...)
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
