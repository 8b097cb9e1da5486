package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// GmxRouter pairs a perpetuals exchange router with the order vault
// that must receive everything routed through it.
type GmxRouter struct {
	ROUTER      string `yaml:"ROUTER"`
	ORDER_VAULT string `yaml:"ORDER_VAULT"`
}

type Config struct {
	// Chain access
	RPC_URL        string `yaml:"RPC_URL"`
	CUSTODY_WALLET string `yaml:"CUSTODY_WALLET"` // wallet whose balances the envelope measures
	PRIVATE_KEY    string `yaml:"PRIVATE_KEY"`    // manager key (only for the execution wrapper)

	// Audit trail + admin HTTP surface
	AUDIT_DB_PATH string `yaml:"AUDIT_DB_PATH"`
	LISTEN_ADDR   string `yaml:"LISTEN_ADDR"`

	// Blocked-action alerting (optional)
	TELEGRAM_TOKEN   string `yaml:"TELEGRAM_TOKEN"`
	TELEGRAM_CHAT_ID int64  `yaml:"TELEGRAM_CHAT_ID"`

	// Whitelist seeds, applied at startup with an audit note each
	ALLOWED_SENDERS   []string `yaml:"ALLOWED_SENDERS"`
	ALLOWED_ASSETS    []string `yaml:"ALLOWED_ASSETS"`
	ALLOWED_RECEIVERS []string `yaml:"ALLOWED_RECEIVERS"`

	// Protocol registrations
	UNISWAP_V2_ROUTERS []string    `yaml:"UNISWAP_V2_ROUTERS"`
	UNISWAP_V3_ROUTERS []string    `yaml:"UNISWAP_V3_ROUTERS"`
	GMX_ROUTERS        []GmxRouter `yaml:"GMX_ROUTERS"`
	COREWRITER_ADDRESS string      `yaml:"COREWRITER_ADDRESS"`
	AGGREGATORS        []string    `yaml:"AGGREGATORS"`
	ERC4626_VAULTS     []string    `yaml:"ERC4626_VAULTS"`
	COW_SETTLEMENTS    []string    `yaml:"COW_SETTLEMENTS"`

	// Extra exact call sites, "0xtarget#aabbccdd"
	CALL_SITES []string `yaml:"CALL_SITES"`

	DEBUG bool `yaml:"DEBUG"`
}

const DefaultPath = "guard.yml"

func Default() *Config {
	return &Config{
		RPC_URL:       "",
		AUDIT_DB_PATH: "guard-audit.db",
		LISTEN_ADDR:   "127.0.0.1:8787",

		ALLOWED_SENDERS:   []string{},
		ALLOWED_ASSETS:    []string{},
		ALLOWED_RECEIVERS: []string{},

		UNISWAP_V2_ROUTERS: []string{},
		UNISWAP_V3_ROUTERS: []string{},
		GMX_ROUTERS:        []GmxRouter{},
		AGGREGATORS:        []string{},
		ERC4626_VAULTS:     []string{},
		COW_SETTLEMENTS:    []string{},
		CALL_SITES:         []string{},

		DEBUG: false,
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RPC_URL"); v != "" {
		c.RPC_URL = v
	}
	if v := os.Getenv("CUSTODY_WALLET"); v != "" {
		c.CUSTODY_WALLET = v
	}
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		c.PRIVATE_KEY = v
	}
	if v := os.Getenv("AUDIT_DB_PATH"); v != "" {
		c.AUDIT_DB_PATH = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.LISTEN_ADDR = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.TELEGRAM_TOKEN = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.TELEGRAM_CHAT_ID = id
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.DEBUG = v == "true" || v == "1"
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	// create if missing
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.CUSTODY_WALLET == "" {
		return fmt.Errorf("CUSTODY_WALLET is required (set in %s or CUSTODY_WALLET env)", DefaultPath)
	}
	if c.AUDIT_DB_PATH == "" {
		return fmt.Errorf("AUDIT_DB_PATH is required")
	}
	return nil
}

func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0600)
}
