// Package config reads the bot configuration from a JSON file.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"assistantbot/feed"
	"assistantbot/weather"
)

// Config keeps bot configuration.
type Config struct {
	// TgToken authenticates the bot to the Telegram Bot API.
	TgToken string `json:"TgToken"`
	// DefaultFeed is the news source for users without a /setfeed preference.
	DefaultFeed string `json:"DefaultFeed"`
	// WeatherURL is the base address of the weather-by-text service.
	WeatherURL string `json:"WeatherURL"`
}

// Load reads configuration from the given file and makes sure all
// required fields are present. Optional fields get their defaults.
func Load(cfgFile string) (*Config, error) {
	raw, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read configuration from file %q", cfgFile)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "couldn't unmarshal configuration")
	}

	if cfg.TgToken == "" {
		return nil, errors.New("configuration is missing field: TgToken")
	}

	if cfg.DefaultFeed == "" {
		cfg.DefaultFeed = feed.DefaultURL
	}
	if cfg.WeatherURL == "" {
		cfg.WeatherURL = weather.DefaultBaseURL
	}

	return &cfg, nil
}
