package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cat-engine/backend/internal/cat"
	"github.com/cat-engine/backend/internal/itembank"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration shared by the server and catctl.
type Config struct {
	HTTPAddr    string          `yaml:"http_addr"`
	LogMode     string          `yaml:"log_mode"`
	ItemBank    itembank.Source `yaml:"item_bank"`
	CORSOrigins []string        `yaml:"cors_origins"`
	Stop        cat.StopOptions `yaml:"stopping"`
}

func Default() *Config {
	return &Config{
		HTTPAddr: ":8080",
		LogMode:  "development",
		ItemBank: itembank.Source{
			Kind: itembank.SourceCSV,
			Path: "data/items.csv",
		},
		CORSOrigins: []string{"*"},
		Stop: cat.StopOptions{
			MaxItems:    cat.DefaultMaxItems,
			SEThreshold: cat.DefaultSEThreshold,
		},
	}
}

// Load reads a YAML config file over the defaults and then applies
// environment overrides. An empty path or a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if port := getEnv("PORT", ""); port != "" {
		c.HTTPAddr = ":" + port
	}
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogMode = getEnv("LOG_MODE", c.LogMode)
	c.ItemBank.Kind = getEnv("ITEM_BANK_SOURCE", c.ItemBank.Kind)
	c.ItemBank.Path = getEnv("ITEM_BANK_PATH", c.ItemBank.Path)
	c.ItemBank.DSN = getEnv("DB_DSN", c.ItemBank.DSN)

	if v := getEnv("CORS_ORIGINS", ""); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := getEnv("CAT_MAX_ITEMS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CAT_MAX_ITEMS %q: %w", v, err)
		}
		c.Stop.MaxItems = n
	}
	if v := getEnv("CAT_TARGET_SE", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid CAT_TARGET_SE %q: %w", v, err)
		}
		c.Stop.SEThreshold = f
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
