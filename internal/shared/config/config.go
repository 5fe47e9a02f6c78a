package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/khaingmyozaw/file-search-bot/internal/shared/errors"
)

// AppEnv represents the application environment
type AppEnv string

const (
	AppEnvLocal       AppEnv = "local"
	AppEnvProduction  AppEnv = "production"
	AppEnvDevelopment AppEnv = "development"
	AppEnvTesting     AppEnv = "testing"
)

type Config struct {
	TelegramBotToken string `koanf:"telegram_bot_token"`
	TelegramAPIURL   string `koanf:"telegram_api_url"`
	OwnerUserID      int64  `koanf:"owner_user_id"`
	DBPath           string `koanf:"db_path"`
	IndexPath        string `koanf:"index_path"`
	HTTPPort         string `koanf:"http_port"`
	MaxResults       int    `koanf:"max_results"`
	PurgeOnRevoke    bool   `koanf:"purge_on_revoke"`
	AppEnv           AppEnv `koanf:"app_env"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	// Use lo.Find to find the first existing config file
	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Load environment variables (they override config file values)
	// Convert TELEGRAM_BOT_TOKEN -> telegram_bot_token
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Set defaults
	if !k.Exists("telegram_api_url") {
		k.Set("telegram_api_url", "https://api.telegram.org")
	}
	if !k.Exists("db_path") {
		k.Set("db_path", "./data/search_index.db")
	}
	if !k.Exists("index_path") {
		k.Set("index_path", "./data/search_index.bleve")
	}
	if !k.Exists("http_port") {
		k.Set("http_port", "8080")
	}
	if !k.Exists("max_results") {
		k.Set("max_results", 10)
	}
	if !k.Exists("app_env") {
		k.Set("app_env", "production")
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// Env vars arrive as strings, so numeric fields may need explicit parsing
	if cfg.OwnerUserID == 0 {
		if id, err := ParseUserID(k.String("owner_user_id")); err == nil {
			cfg.OwnerUserID = id
		}
	}
	if cfg.MaxResults <= 0 {
		if n := k.Int("max_results"); n > 0 {
			cfg.MaxResults = n
		} else {
			cfg.MaxResults = 10
		}
	}

	// Parse AppEnv from string if needed
	switch AppEnv(k.String("app_env")) {
	case AppEnvLocal, AppEnvProduction, AppEnvDevelopment, AppEnvTesting:
		cfg.AppEnv = AppEnv(k.String("app_env"))
	default:
		cfg.AppEnv = AppEnvProduction
	}

	// Validate required fields
	if cfg.TelegramBotToken == "" {
		return nil, errors.ErrMissingBotToken
	}
	if cfg.OwnerUserID <= 0 {
		return nil, errors.ErrMissingOwnerID
	}

	return &cfg, nil
}

// ParseUserID parses a Telegram user id from its decimal string form.
func ParseUserID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, oops.Errorf("empty user id")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, oops.With("value", s).Wrap(err)
	}
	return id, nil
}
