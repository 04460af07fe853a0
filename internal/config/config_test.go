package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOA_SEED", "GOA_DB_PATH", "GOA_JOURNAL_DIR", "GOA_API_PORT", "GOA_ADMIN_KEY", "GOA_SPEED", "GOA_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "goasim.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MarketUpdateInterval() != 30*time.Second || cfg.NPCTradeInterval() != 10*time.Second {
		t.Fatalf("intervals %v %v", cfg.MarketUpdateInterval(), cfg.NPCTradeInterval())
	}
	if cfg.StartLocation != "ribeira_grande" || cfg.MarketOpenHour != 6 || cfg.MarketCloseHour != 20 {
		t.Fatalf("cfg %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, `
seed: 1590
speed: 4
market_update_interval_sec: 12.5
log_level: debug
start_location: bazaar
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 1590 || cfg.Speed != 4 || cfg.StartLocation != "bazaar" {
		t.Fatalf("cfg %+v", cfg)
	}
	if cfg.MarketUpdateInterval() != 12500*time.Millisecond {
		t.Fatalf("interval %v", cfg.MarketUpdateInterval())
	}
	if cfg.NPCTradeIntervalSec != 10 {
		t.Fatalf("unset key lost its default: %v", cfg.NPCTradeIntervalSec)
	}
	if cfg.SlogLevel().String() != "DEBUG" {
		t.Fatalf("level %v", cfg.SlogLevel())
	}
}

func TestLoad_SchemaRejects(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"negative interval": "npc_trade_interval_sec: -5\n",
		"zero speed":        "speed: 0\n",
		"unknown key":       "tick_rate: 60\n",
		"bad level":         "log_level: loud\n",
		"wrong type":        "api_port: eighty\n",
	}
	for name, body := range tests {
		if _, err := Load(writeFile(t, body)); err == nil {
			t.Fatalf("%s: accepted", name)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOA_SEED", "42")
	t.Setenv("GOA_DB_PATH", "/tmp/goa.db")
	t.Setenv("GOA_SPEED", "8")
	t.Setenv("GOA_API_PORT", "not-a-port")

	p := writeFile(t, "seed: 7\napi_port: 9000\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 42 || cfg.DBPath != "/tmp/goa.db" || cfg.Speed != 8 {
		t.Fatalf("cfg %+v", cfg)
	}
	if cfg.APIPort != 9000 {
		t.Fatalf("malformed env value replaced the file value: %d", cfg.APIPort)
	}

	t.Setenv("GOA_SPEED", "-1")
	if _, err := Load(p); err == nil || !strings.Contains(err.Error(), "environment") {
		t.Fatalf("negative speed from env accepted: %v", err)
	}
}

func TestLoad_EmptyMarketHours(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "market_open_hour: 20\nmarket_close_hour: 6\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("inverted market hours accepted")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
