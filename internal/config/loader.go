package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Settings are the process-level knobs read from the environment.
type Settings struct {
	DBPath           string `env:"DB_PATH"    envDefault:"rss2x.sqlite"`
	PostDelaySeconds int    `env:"POST_DELAY" envDefault:"30"`
}

func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse environment: %w", err)
	}

	if s.PostDelaySeconds < 0 {
		return Settings{}, fmt.Errorf("POST_DELAY must be non-negative, got %d", s.PostDelaySeconds)
	}

	return s, nil
}

func (s Settings) PostDelay() time.Duration {
	return time.Duration(s.PostDelaySeconds) * time.Second
}

// LoadFile reads a YAML accounts file. Records that fail validation are
// returned in LoadResult.Skipped rather than aborting the load; only an
// unreadable or unparsable file is fatal.
func LoadFile(path string, defaultDelay time.Duration) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	var doc struct {
		Accounts []rawAccount `yaml:"accounts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse accounts file %s: %w", path, err)
	}

	if len(doc.Accounts) == 0 {
		return nil, fmt.Errorf("accounts file %s defines no accounts", path)
	}

	return buildResult(doc.Accounts, defaultDelay)
}

// LoadEnv reads numbered per-account environment blocks: FEED1_URL plus
// ACCOUNT1_API_KEY, ACCOUNT1_API_SECRET, ACCOUNT1_ACCESS_TOKEN and
// ACCOUNT1_ACCESS_TOKEN_SECRET, then FEED2_URL and so on. Enumeration stops
// at the first n with no FEEDn_URL set.
func LoadEnv(defaultDelay time.Duration) (*LoadResult, error) {
	var raws []rawAccount

	for n := 1; ; n++ {
		feedURL := strings.TrimSpace(os.Getenv(envKey("FEED", n, "URL")))
		if feedURL == "" {
			break
		}

		name := strings.TrimSpace(os.Getenv(envKey("ACCOUNT", n, "NAME")))
		if name == "" {
			name = "Account " + strconv.Itoa(n)
		}

		raws = append(raws, rawAccount{
			Name:     name,
			Platform: os.Getenv(envKey("ACCOUNT", n, "PLATFORM")),
			Credentials: Credentials{
				APIKey:            os.Getenv(envKey("ACCOUNT", n, "API_KEY")),
				APISecret:         os.Getenv(envKey("ACCOUNT", n, "API_SECRET")),
				AccessToken:       os.Getenv(envKey("ACCOUNT", n, "ACCESS_TOKEN")),
				AccessTokenSecret: os.Getenv(envKey("ACCOUNT", n, "ACCESS_TOKEN_SECRET")),
				BotToken:          os.Getenv(envKey("ACCOUNT", n, "BOT_TOKEN")),
				ChatID:            os.Getenv(envKey("ACCOUNT", n, "CHAT_ID")),
			},
			FeedURLs: []string{feedURL},
			Format:   os.Getenv(envKey("ACCOUNT", n, "FORMAT")),
		})
	}

	if len(raws) == 0 {
		return nil, fmt.Errorf("no accounts configured: FEED1_URL is not set")
	}

	return buildResult(raws, defaultDelay)
}

func envKey(prefix string, n int, suffix string) string {
	return prefix + strconv.Itoa(n) + "_" + suffix
}
