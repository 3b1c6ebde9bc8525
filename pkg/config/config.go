package config

import (
	"encoding/json"
	"log"
	"os"
)

type Config struct {
	App       AppConfig                 `json:"app"`
	Gateways  map[string]GatewayConfig  `json:"gateways"`
	Providers map[string]ProviderConfig `json:"providers"`
	Memory    MemoryConfig              `json:"memory"`
	Agent     AgentConfig               `json:"agent"`
}

type AppConfig struct {
	Name      string `json:"name"`
	CacheDir  string `json:"cache_dir"`
	UserAgent string `json:"user_agent"`
	Prompts   string `json:"prompts"`
}

type GatewayConfig struct {
	Token   string `json:"token"`
	Addr    string `json:"addr,omitempty"`
	Enabled bool   `json:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type MemoryConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// AgentConfig tunes recovery budgets and tool governance. Zero values
// mean "use the built-in defaults".
type AgentConfig struct {
	MaxReplanningAttempts int      `json:"max_replanning_attempts"`
	MaxTotalReplannings   int      `json:"max_total_replannings"`
	MinFallbackYear       int      `json:"min_fallback_year"`
	DeniedTools           []string `json:"denied_tools"`
}

func LoadConfig(path string) *Config {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	return &cfg
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled {
		return tg, true
	}
	return GatewayConfig{}, false
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	dc, ok := c.Gateways["discord"]
	if ok && dc.Enabled {
		return dc, true
	}
	return GatewayConfig{}, false
}

// GetHTTPConfig returns the HTTP API config if enabled
func (c *Config) GetHTTPConfig() (GatewayConfig, bool) {
	h, ok := c.Gateways["http"]
	if ok && h.Enabled {
		return h, true
	}
	return GatewayConfig{}, false
}
