package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	ReportInterval time.Duration
	ReportTime     string // HH:MM; when set, wins over the interval
	Locale         language.Tag
}

// Load reads configuration from a local .env file (if any) and the
// environment, with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[warn] load .env: %v", err)
	}

	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ReportInterval: parseInterval(strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS"))),
		ReportTime:     strings.TrimSpace(os.Getenv("REPORT_TIME")),
		Locale:         parseLocale(strings.TrimSpace(os.Getenv("LOCALE"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "todo_keeper.db"
	}

	if cfg.ReportInterval == 0 && cfg.ReportTime == "" {
		cfg.ReportInterval = 5 * time.Hour
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

// parseLocale falls back to Russian, the default list language.
func parseLocale(raw string) language.Tag {
	if raw == "" {
		return language.Russian
	}
	tag, err := language.Parse(raw)
	if err != nil {
		log.Printf("[warn] invalid LOCALE %q, using ru", raw)
		return language.Russian
	}
	return tag
}
