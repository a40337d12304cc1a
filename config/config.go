package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// TxSentinel C-Chain on Avalanche etna
const DefaultChainID = "0x43117"

// Page identifies a top-level view
type Page int

const (
	PageSession Page = iota
	PageServers
	PageWallets
	PageHome
)

// Config represents the application configuration
type Config struct {
	Servers          []Endpoint    `json:"servers" toml:"servers" yaml:"servers"`
	RPCURL           string        `json:"rpc_url,omitempty" toml:"rpc_url,omitempty" yaml:"rpc_url,omitempty"`
	ChainID          string        `json:"chain_id,omitempty" toml:"chain_id,omitempty" yaml:"chain_id,omitempty"`
	ExplorerURL      string        `json:"explorer_url,omitempty" toml:"explorer_url,omitempty" yaml:"explorer_url,omitempty"`
	Wallets          []WalletEntry `json:"wallets" toml:"wallets" yaml:"wallets"`
	Notifications    string        `json:"notifications,omitempty" toml:"notifications,omitempty" yaml:"notifications,omitempty"`
	HandshakeTimeout string        `json:"handshake_timeout,omitempty" toml:"handshake_timeout,omitempty" yaml:"handshake_timeout,omitempty"`
	Logger           bool          `json:"logger" toml:"logger" yaml:"logger"`

	// PrivateKey is only ever read from the environment
	PrivateKey string `json:"-" toml:"-" yaml:"-"`
}

// Endpoint represents a TxSentinel websocket endpoint
type Endpoint struct {
	Name   string `json:"name" toml:"name" yaml:"name"`
	URL    string `json:"url" toml:"url" yaml:"url"`
	Active bool   `json:"active" toml:"active" yaml:"active"`
}

// WalletEntry represents a wallet in the config
type WalletEntry struct {
	Address string `json:"address" toml:"address" yaml:"address"`
	Name    string `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty"`
	Active  bool   `json:"active" toml:"active" yaml:"active"`
}

type format int

const (
	formatJSON format = iota
	formatTOML
	formatYAML
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML
	case ".yaml", ".yml":
		return formatYAML
	}
	return formatJSON
}

// Load reads the config from the specified path. The format follows the file
// extension: .toml, .yaml/.yml, anything else is JSON.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	switch formatOf(path) {
	case formatTOML:
		_, err = toml.Decode(string(data), &cfg)
	case formatYAML:
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	var (
		data []byte
		err  error
	)
	switch formatOf(path) {
	case formatTOML:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	case formatYAML:
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a new configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Servers: []Endpoint{
			{
				Name:   "Local TxSentinel",
				URL:    "ws://localhost:8080/wallet/",
				Active: true,
			},
		},
		RPCURL:        "http://localhost:8080",
		ChainID:       DefaultChainID,
		ExplorerURL:   "https://snowtrace.io/",
		Wallets:       []WalletEntry{},
		Notifications: "prompt",
		Logger:        false,
	}
}

// LoadOrCreate loads config from path, or creates a default one if not found
func LoadOrCreate(path string) Config {
	// Try to read existing config
	cfg, err := Load(path)
	if err == nil {
		return cfg
	}

	if os.IsNotExist(err) {
		// File doesn't exist, create default
		cfg = DefaultConfig()
		_ = Save(path, cfg)
		return cfg
	}

	// Invalid config, return default without overwriting it
	return DefaultConfig()
}

// ApplyEnv overrides config values from the environment
func ApplyEnv(cfg Config, getenv func(string) string) Config {
	if url := strings.TrimSpace(getenv("TXSENTINEL_URL")); url != "" {
		found := false
		for i := range cfg.Servers {
			cfg.Servers[i].Active = cfg.Servers[i].URL == url
			found = found || cfg.Servers[i].Active
		}
		if !found {
			cfg.Servers = append(cfg.Servers, Endpoint{Name: "Environment", URL: url, Active: true})
		}
	}
	if rpc := strings.TrimSpace(getenv("TXSENTINEL_RPC_URL")); rpc != "" {
		cfg.RPCURL = rpc
	}
	if key := strings.TrimSpace(getenv("TXSENTINEL_PRIVATE_KEY")); key != "" {
		cfg.PrivateKey = key
	}
	return cfg
}

// ActiveServer returns the endpoint marked active, or the first one
func (c Config) ActiveServer() (Endpoint, bool) {
	for _, s := range c.Servers {
		if s.Active {
			return s, true
		}
	}
	if len(c.Servers) > 0 {
		return c.Servers[0], true
	}
	return Endpoint{}, false
}

// Handshake returns the configured handshake timeout; zero means none
func (c Config) Handshake() time.Duration {
	if c.HandshakeTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.HandshakeTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Path returns the config location, honouring TXSENTINEL_CONFIG
func Path(getenv func(string) string) string {
	if p := strings.TrimSpace(getenv("TXSENTINEL_CONFIG")); p != "" {
		return p
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".txsentinel-config.json")
}
