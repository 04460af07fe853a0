// Package config loads the simulation tuning file and its environment overrides.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

// Config is the tuning of one simulation run.
type Config struct {
	Seed       int64  `yaml:"seed" json:"seed"`
	DBPath     string `yaml:"db_path" json:"db_path"`
	JournalDir string `yaml:"journal_dir" json:"journal_dir"`
	APIPort    int    `yaml:"api_port" json:"api_port"`
	AdminKey   string `yaml:"admin_key" json:"admin_key"`
	LogLevel   string `yaml:"log_level" json:"log_level"`

	// Speed multiplies virtual time against wall time.
	Speed            float64 `yaml:"speed" json:"speed"`
	MinutesPerSecond float64 `yaml:"minutes_per_second" json:"minutes_per_second"`
	FrameIntervalMs  int     `yaml:"frame_interval_ms" json:"frame_interval_ms"`

	MarketUpdateIntervalSec float64 `yaml:"market_update_interval_sec" json:"market_update_interval_sec"`
	NPCTradeIntervalSec     float64 `yaml:"npc_trade_interval_sec" json:"npc_trade_interval_sec"`
	AutosaveDays            int     `yaml:"autosave_days" json:"autosave_days"`

	MarketOpenHour  int `yaml:"market_open_hour" json:"market_open_hour"`
	MarketCloseHour int `yaml:"market_close_hour" json:"market_close_hour"`

	StartLocation string `yaml:"start_location" json:"start_location"`
	PlayerGold    int    `yaml:"player_gold" json:"player_gold"`
}

// Default returns the built-in tuning.
func Default() Config {
	return Config{
		DBPath:                  "data/goa1590.db",
		JournalDir:              "data/journal",
		APIPort:                 8090,
		LogLevel:                "info",
		Speed:                   1,
		MinutesPerSecond:        1,
		FrameIntervalMs:         16,
		MarketUpdateIntervalSec: 30,
		NPCTradeIntervalSec:     10,
		AutosaveDays:            1,
		MarketOpenHour:          6,
		MarketCloseHour:         20,
		StartLocation:           "ribeira_grande",
		PlayerGold:              100,
	}
}

// FrameInterval is the real time between engine frames.
func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

// MarketUpdateInterval is the virtual time between market updates.
func (c Config) MarketUpdateInterval() time.Duration {
	return seconds(c.MarketUpdateIntervalSec)
}

// NPCTradeInterval is the virtual time between NPC trading rounds.
func (c Config) NPCTradeInterval() time.Duration {
	return seconds(c.NPCTradeIntervalSec)
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Load reads the tuning file at path, or starts from the defaults when path is empty, then
// applies environment overrides. The file and the final configuration are both checked
// against the schema.
func Load(path string) (Config, error) {
	schema, err := compileSchema()
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := validateYAML(schema, raw); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := validateStruct(schema, cfg); err != nil {
		return Config{}, fmt.Errorf("config after environment overrides: %w", err)
	}
	if cfg.MarketOpenHour >= cfg.MarketCloseHour {
		return Config{}, fmt.Errorf("market hours %d-%d are empty", cfg.MarketOpenHour, cfg.MarketCloseHour)
	}
	return cfg, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}
	return s, nil
}

// validateYAML checks a YAML document by converting it to its JSON value.
func validateYAML(schema *jsonschema.Schema, raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	return validateValue(schema, doc)
}

func validateStruct(schema *jsonschema.Schema, cfg Config) error {
	return validateValue(schema, cfg)
}

func validateValue(schema *jsonschema.Schema, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decode for validation: %w", err)
	}
	return schema.Validate(doc)
}

func applyEnv(cfg *Config) {
	cfg.Seed = envInt64Default("GOA_SEED", cfg.Seed)
	cfg.DBPath = envDefault("GOA_DB_PATH", cfg.DBPath)
	cfg.JournalDir = envDefault("GOA_JOURNAL_DIR", cfg.JournalDir)
	cfg.APIPort = int(envInt64Default("GOA_API_PORT", int64(cfg.APIPort)))
	cfg.AdminKey = envDefault("GOA_ADMIN_KEY", cfg.AdminKey)
	cfg.Speed = envFloatDefault("GOA_SPEED", cfg.Speed)
	cfg.LogLevel = envDefault("GOA_LOG_LEVEL", cfg.LogLevel)
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("ignoring malformed environment value", "key", key, "value", v)
		return fallback
	}
	return n
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring malformed environment value", "key", key, "value", v)
		return fallback
	}
	return f
}
