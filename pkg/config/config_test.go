package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `{
	"app": {
		"name": "secagent",
		"cache_dir": ".cache/secagent",
		"user_agent": "secagent admin@example.com",
		"prompts": "./prompts"
	},
	"gateways": {
		"telegram": {"token": "tg-token", "enabled": true},
		"discord": {"token": "dc-token", "enabled": false},
		"http": {"addr": ":8080", "enabled": true}
	},
	"providers": {
		"openai": {"api_key": "sk-test", "model": "gpt-4o-mini", "enabled": true}
	},
	"memory": {"type": "sqlite", "path": "history.db"},
	"agent": {
		"max_replanning_attempts": 3,
		"max_total_replannings": 10,
		"min_fallback_year": 2015,
		"denied_tools": ["get_filing_content"]
	}
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(writeConfig(t, sampleConfig))

	if cfg.App.Name != "secagent" || cfg.App.UserAgent != "secagent admin@example.com" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Memory.Path != "history.db" {
		t.Errorf("memory = %+v", cfg.Memory)
	}
	if cfg.Agent.MaxReplanningAttempts != 3 || cfg.Agent.MaxTotalReplannings != 10 {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Agent.MinFallbackYear != 2015 || len(cfg.Agent.DeniedTools) != 1 {
		t.Errorf("agent = %+v", cfg.Agent)
	}
}

func TestGatewayGetters(t *testing.T) {
	cfg := LoadConfig(writeConfig(t, sampleConfig))

	tg, ok := cfg.GetTelegramConfig()
	if !ok || tg.Token != "tg-token" {
		t.Errorf("telegram = %+v, ok=%v", tg, ok)
	}

	// Present but disabled.
	if _, ok := cfg.GetDiscordConfig(); ok {
		t.Error("disabled discord gateway reported enabled")
	}

	httpCfg, ok := cfg.GetHTTPConfig()
	if !ok || httpCfg.Addr != ":8080" {
		t.Errorf("http = %+v, ok=%v", httpCfg, ok)
	}
}

func TestGetDefaultProvider(t *testing.T) {
	cfg := LoadConfig(writeConfig(t, sampleConfig))

	name, provider := cfg.GetDefaultProvider()
	if name != "openai" || provider.Model != "gpt-4o-mini" {
		t.Errorf("provider = %q %+v", name, provider)
	}

	none := &Config{Providers: map[string]ProviderConfig{"openai": {Enabled: false}}}
	if name, _ := none.GetDefaultProvider(); name != "" {
		t.Errorf("expected no provider, got %q", name)
	}
}
