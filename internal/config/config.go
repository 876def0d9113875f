package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/validator"
)

// Defaults for everything that isn't a credential.
const (
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultAnalysisMode     = "combined"
	defaultRequestTimeout   = 10 * time.Second
	defaultITADShops        = "steam,humble,gog,fanatical,greenmangaming,wingamestore"
	defaultITADCountry      = "US"
	defaultDescriptionLimit = 1500
	defaultShutdownGrace    = 30 * time.Second
)

type Config struct {
	TelegramToken string `validate:"required"`
	SteamAPIKey   string `validate:"required"`
	OpenAIAPIKey  string `validate:"required"`
	ITADAPIKey    string `validate:"required"`

	OpenAIModel      string `validate:"required"`
	AnalysisMode     string `validate:"oneof=combined split"`
	RequestTimeout   time.Duration
	ITADShops        []string `validate:"min=1"`
	ITADCountry      string   `validate:"len=2"`
	DescriptionLimit int      `validate:"gt=0"`
	ShutdownGrace    time.Duration

	// Base URLs are only overridden in tests.
	SteamBaseURL  string
	ITADBaseURL   string
	OpenAIBaseURL string
}

// Load reads configuration from the environment, pulling in a .env file
// first when one exists. A missing credential is an error; the process
// must not start without all four.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file")
	}

	cfg := &Config{
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		SteamAPIKey:      os.Getenv("STEAM_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		ITADAPIKey:       os.Getenv("ITAD_API_KEY"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", defaultOpenAIModel),
		AnalysisMode:     envOrDefault("ANALYSIS_MODE", defaultAnalysisMode),
		ITADCountry:      envOrDefault("ITAD_COUNTRY", defaultITADCountry),
		ITADShops:        splitList(envOrDefault("ITAD_SHOPS", defaultITADShops)),
		DescriptionLimit: defaultDescriptionLimit,
		SteamBaseURL:     os.Getenv("STEAM_BASE_URL"),
		ITADBaseURL:      os.Getenv("ITAD_BASE_URL"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
	}

	for name, value := range map[string]string{
		"TELEGRAM_TOKEN": cfg.TelegramToken,
		"STEAM_API_KEY":  cfg.SteamAPIKey,
		"OPENAI_API_KEY": cfg.OpenAIAPIKey,
		"ITAD_API_KEY":   cfg.ITADAPIKey,
	} {
		if value == "" {
			return nil, fmt.Errorf("%s environment variable is required but not set", name)
		}
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", defaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = durationEnv("SHUTDOWN_GRACE_PERIOD", defaultShutdownGrace); err != nil {
		return nil, err
	}
	if v := os.Getenv("DESCRIPTION_LIMIT"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DESCRIPTION_LIMIT %q: %w", v, err)
		}
		cfg.DescriptionLimit = parsed
	}

	if err := validator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
