package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Reddit   RedditConfig
	Database DatabaseConfig
	Output   OutputConfig
}

// RedditConfig holds Reddit API credentials and the fetch window
type RedditConfig struct {
	ClientID             string
	ClientSecret         string
	UserAgent            string
	SubredditName        string
	StartDate            time.Time
	EndDate              time.Time
	TopPostNumber        int
	MaxRequestsPerMinute int // value is per minute; Reddit allocates per 10-minute window
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string
}

// OutputConfig holds output file configuration
type OutputConfig struct {
	Dir string
}

// dateLayout is the wire format of start_date/end_date in config.json.
const dateLayout = "2006-01-02"

// LoadConfig loads credentials from a .env file and pipeline parameters
// from a JSON config file. All validation happens here, before any
// fetch is attempted.
func LoadConfig(envPath, configPath string, log *logrus.Logger) (*Config, error) {
	if envPath == "" {
		envPath = ".env"
	}
	if configPath == "" {
		configPath = "config.json"
	}

	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetDefault("reddit.top_post_number", 10)
	v.SetDefault("reddit.max_requests_per_minute", 100)
	v.SetDefault("database.path", "./reddit.db")
	v.SetDefault("output.dir", ".")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	startDate, err := parseDay(v.GetString("reddit.start_date"))
	if err != nil {
		return nil, fmt.Errorf("invalid reddit.start_date: %w", err)
	}
	endDate, err := parseDay(v.GetString("reddit.end_date"))
	if err != nil {
		return nil, fmt.Errorf("invalid reddit.end_date: %w", err)
	}

	config := &Config{
		Reddit: RedditConfig{
			ClientID:             getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret:         getEnv("REDDIT_CLIENT_SECRET", ""),
			UserAgent:            getEnv("REDDIT_USER_AGENT", ""),
			SubredditName:        v.GetString("reddit.subreddit_name"),
			StartDate:            startDate,
			EndDate:              endDate,
			TopPostNumber:        v.GetInt("reddit.top_post_number"),
			MaxRequestsPerMinute: v.GetInt("reddit.max_requests_per_minute"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Output: OutputConfig{
			Dir: v.GetString("output.dir"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"env_file":    envPath,
		"config_file": configPath,
	}).Info("Config loaded successfully")
	return config, nil
}

// parseDay parses a YYYY-MM-DD day string as midnight UTC.
func parseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("date is required (format %s)", dateLayout)
	}
	day, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %q: %w", value, err)
	}
	return day, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	// Check Reddit API credentials
	if config.Reddit.ClientID == "" {
		return fmt.Errorf("REDDIT_CLIENT_ID environment variable is required")
	}
	if config.Reddit.ClientSecret == "" {
		return fmt.Errorf("REDDIT_CLIENT_SECRET environment variable is required")
	}

	// User-Agent required per API documentation; it has strict requirements.  see example.env
	if config.Reddit.UserAgent == "" {
		return fmt.Errorf("REDDIT_USER_AGENT environment variable is required")
	}
	if config.Reddit.SubredditName == "" {
		return fmt.Errorf("reddit.subreddit_name config field is required")
	}
	if config.Reddit.EndDate.Before(config.Reddit.StartDate) {
		return fmt.Errorf("reddit.end_date %s is before reddit.start_date %s",
			config.Reddit.EndDate.Format(dateLayout), config.Reddit.StartDate.Format(dateLayout))
	}
	if config.Reddit.TopPostNumber < 1 {
		return fmt.Errorf("reddit.top_post_number must be positive")
	}
	if config.Reddit.MaxRequestsPerMinute < 1 {
		return fmt.Errorf("reddit.max_requests_per_minute must be positive")
	}

	// if we are storing the db in a nested directory, create the directory
	dbDir := filepath.Dir(config.Database.Path)
	if dbDir != "." && dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if config.Output.Dir != "." && config.Output.Dir != "" {
		if err := os.MkdirAll(config.Output.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	return nil
}
