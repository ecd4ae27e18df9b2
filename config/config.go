package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "pup-ancestry-bot"
	EnvFileName = "config.env"
)

// RequiredEnvVars lists the environment variables that must be set for the bot to run.
var RequiredEnvVars = []string{"BOT_TOKEN", "GEMINI_API_KEY"}

// Config holds the runtime configuration read from the environment.
type Config struct {
	BotToken        string
	GeminiAPIKey    string
	GeminiModel     string        // Empty selects the default model
	CacheDBPath     string        // Empty disables the analysis cache
	MaxImages       int           // Images held per chat
	AnalysisTimeout time.Duration // Bound for a single analysis attempt
}

// Dir returns the application's config directory path.
// Creates the directory if it doesn't exist.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment take precedence.
func LoadEnvFile() {
	configPath, err := FilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// CheckRequired returns the names of required variables that are not set.
func CheckRequired() []string {
	var missing []string
	for _, v := range RequiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:        os.Getenv("BOT_TOKEN"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		CacheDBPath:     os.Getenv("PUP_CACHE_DB_PATH"),
		MaxImages:       10,
		AnalysisTimeout: 90 * time.Second,
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	if v := os.Getenv("PUP_MAX_IMAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("PUP_MAX_IMAGES must be a positive integer, got %q", v)
		}
		cfg.MaxImages = n
	}

	if v := os.Getenv("PUP_ANALYSIS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("PUP_ANALYSIS_TIMEOUT must be a positive duration such as 90s, got %q", v)
		}
		cfg.AnalysisTimeout = d
	}

	return cfg, nil
}
