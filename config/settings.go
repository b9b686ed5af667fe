// Package config provides application settings loaded from environment
// variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/memory"
)

// Settings holds all application configuration.
type Settings struct {
	Provider ProviderConfig
	Memory   MemoryConfig
	Storage  StorageConfig
	Tools    ToolsConfig
}

// ProviderConfig selects the model backend.
type ProviderConfig struct {
	Type  llm.ProviderType
	Model string // default answering model; "" uses the provider default
}

// MemoryConfig holds the context-assembly and profile limits.
type MemoryConfig struct {
	HistoryLimit       int
	ShortWindow        int
	DigestLimit        int
	ProfileSourceLimit int
	ProfileCharBudget  int
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string // "file" or "sqlite"
	Dir     string // file backend root; also holds the sqlite file
}

// ToolsConfig holds tool execution limits.
type ToolsConfig struct {
	TimeoutSecs    int
	SearchMaxFetch int
}

// Model environment variable per provider.
var modelEnvVars = map[llm.ProviderType]string{
	llm.ProviderOpenAI:    "OPENAI_MODEL",
	llm.ProviderAnthropic: "ANTHROPIC_MODEL",
	llm.ProviderDeepSeek:  "DEEPSEEK_MODEL",
	llm.ProviderGemini:    "GEMINI_MODEL",
}

// New creates settings for the specified provider, loading values from
// environment variables. Returns an error if the provider is unknown or
// an environment variable contains an invalid value.
func New(provider string) (Settings, error) {
	providerType, err := llm.ParseProviderType(provider)
	if err != nil {
		return Settings{}, err
	}

	historyLimit, err := getEnvInt("HERMES_HISTORY_LIMIT", memory.DefaultHistoryLimit)
	if err != nil {
		return Settings{}, err
	}
	shortWindow, err := getEnvInt("HERMES_SHORT_WINDOW", memory.DefaultShortWindow)
	if err != nil {
		return Settings{}, err
	}
	digestLimit, err := getEnvInt("HERMES_DIGEST_LIMIT", memory.DefaultDigestLimit)
	if err != nil {
		return Settings{}, err
	}
	sourceLimit, err := getEnvInt("HERMES_PROFILE_SOURCE_LIMIT", memory.DefaultProfileSourceLimit)
	if err != nil {
		return Settings{}, err
	}
	charBudget, err := getEnvInt("HERMES_PROFILE_CHAR_BUDGET", memory.DefaultProfileCharBudget)
	if err != nil {
		return Settings{}, err
	}
	toolTimeout, err := getEnvInt("HERMES_TOOL_TIMEOUT_SECS", 60)
	if err != nil {
		return Settings{}, err
	}
	searchMaxFetch, err := getEnvInt("HERMES_SEARCH_MAX_FETCH", 8)
	if err != nil {
		return Settings{}, err
	}

	backend := strings.ToLower(getEnv("HERMES_STORAGE", "file"))
	if backend != "file" && backend != "sqlite" {
		return Settings{}, fmt.Errorf("invalid value for HERMES_STORAGE: %q (want file or sqlite)", backend)
	}

	return Settings{
		Provider: ProviderConfig{
			Type:  providerType,
			Model: os.Getenv(modelEnvVars[providerType]),
		},
		Memory: MemoryConfig{
			HistoryLimit:       historyLimit,
			ShortWindow:        shortWindow,
			DigestLimit:        digestLimit,
			ProfileSourceLimit: sourceLimit,
			ProfileCharBudget:  charBudget,
		},
		Storage: StorageConfig{
			Backend: backend,
			Dir:     getEnv("HERMES_DATA_DIR", ".hermes"),
		},
		Tools: ToolsConfig{
			TimeoutSecs:    toolTimeout,
			SearchMaxFetch: searchMaxFetch,
		},
	}, nil
}

// MustNew creates settings for the specified provider. Panics if the
// provider is unknown or environment variables are invalid. Use this only
// when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}
