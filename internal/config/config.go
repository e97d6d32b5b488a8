// ./internal/config/config.go

package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"clinic-store/internal/globalconst"

	"github.com/joho/godotenv"
)

// envPrefix namespaces every environment override.
const envPrefix = "CLINICSTORE_"

// Config holds application-wide configuration.
type Config struct {
	DataFile        string
	FlushMode       string
	FlushQueueSize  int
	EnableBackups   bool
	BackupDir       string
	BackupInterval  time.Duration
	BackupRetention time.Duration
	AdminPassword   string
	LogLevel        slog.Level
}

// NewDefaultConfig creates a Config struct with sensible default values.
func NewDefaultConfig() Config {
	return Config{
		DataFile:        globalconst.DefaultDataFile,
		FlushMode:       globalconst.FlushModeAsync,
		FlushQueueSize:  64,
		EnableBackups:   false,
		BackupDir:       globalconst.BackupsDirName,
		BackupInterval:  1 * time.Hour,
		BackupRetention: 7 * 24 * time.Hour,
		AdminPassword:   "adminpass",
		LogLevel:        slog.LevelInfo,
	}
}

// LoadConfig loads configuration with a clear precedence:
// Environment > .env files > Defaults. With no files given, ".env" in the
// working directory is read if it exists.
func LoadConfig(envFiles ...string) Config {
	cfg := NewDefaultConfig()
	slog.Info("Loading configuration...")
	loadEnvFiles(envFiles)
	applyEnvConfig(&cfg)
	return cfg
}

// loadEnvFiles populates the environment from dotenv files without
// overriding variables that are already set.
func loadEnvFiles(files []string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("No env file found", "path", file)
				continue
			}
			slog.Warn("Failed to load env file", "path", file, "error", err)
			continue
		}
		slog.Info("Loaded env file", "path", file)
	}
}

// applyEnvConfig overrides config values from environment variables.
func applyEnvConfig(cfg *Config) {
	if v := os.Getenv(envPrefix + "DATA_FILE"); v != "" {
		cfg.DataFile = v
		slog.Info("Overriding DataFile from environment", "value", v)
	}

	if v := os.Getenv(envPrefix + "FLUSH_MODE"); v != "" {
		mode := strings.ToLower(v)
		if mode == globalconst.FlushModeAsync || mode == globalconst.FlushModeSync {
			cfg.FlushMode = mode
			slog.Info("Overriding FlushMode from environment", "value", mode)
		} else {
			slog.Warn("Invalid CLINICSTORE_FLUSH_MODE env var, using default", "value", v)
		}
	}

	if v := os.Getenv(envPrefix + "FLUSH_QUEUE_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.FlushQueueSize = i
			slog.Info("Overriding FlushQueueSize from environment", "value", i)
		} else {
			slog.Warn("Invalid CLINICSTORE_FLUSH_QUEUE_SIZE env var, using default", "value", v)
		}
	}

	if v := os.Getenv(envPrefix + "ENABLE_BACKUPS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EnableBackups = b
			slog.Info("Overriding EnableBackups from environment", "value", b)
		} else {
			slog.Warn("Invalid CLINICSTORE_ENABLE_BACKUPS env var, using default", "value", v)
		}
	}

	if v := os.Getenv(envPrefix + "BACKUP_DIR"); v != "" {
		cfg.BackupDir = v
		slog.Info("Overriding BackupDir from environment", "value", v)
	}

	if v := os.Getenv(envPrefix + "ADMIN_PASSWORD"); v != "" {
		cfg.AdminPassword = v
	}

	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err == nil {
			cfg.LogLevel = level
			slog.Info("Overriding LogLevel from environment", "value", level.String())
		} else {
			slog.Warn("Invalid CLINICSTORE_LOG_LEVEL env var, using default", "value", v)
		}
	}

	overrideDuration(envPrefix+"BACKUP_INTERVAL", &cfg.BackupInterval)
	overrideDuration(envPrefix+"BACKUP_RETENTION", &cfg.BackupRetention)
}

func overrideDuration(envKey string, target *time.Duration) {
	envVal := os.Getenv(envKey)
	if envVal != "" {
		if d, err := time.ParseDuration(envVal); err == nil {
			*target = d
			slog.Info("Overriding duration from environment", "key", envKey, "value", envVal)
		} else {
			slog.Warn("Invalid duration format in env var, using default", "key", envKey, "value", envVal)
		}
	}
}
