package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config drives the pool node: storage location, RPC binding, the typed-data
// domain parameters, and the bootstrap entity addresses.
type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	Ephemeral      bool   `toml:"Ephemeral"`
	Environment    string `toml:"Environment"`

	ChainID       uint64 `toml:"ChainID"`
	DomainName    string `toml:"DomainName"`
	DomainVersion string `toml:"DomainVersion"`

	// Hex-encoded 20-byte addresses.
	PoolAddress  string `toml:"PoolAddress"`
	VaultAddress string `toml:"VaultAddress"`
	OwnerAddress string `toml:"OwnerAddress"`
	FeeCollector string `toml:"FeeCollector"`
	TokenAsset   string `toml:"TokenAsset"`

	// Asset ledgers served by the node, as hex-encoded 20-byte asset ids.
	ERC20Assets      []string `toml:"ERC20Assets"`
	NFTAssets        []string `toml:"NFTAssets"`
	MultiTokenAssets []string `toml:"MultiTokenAssets"`
}

// Load reads the configuration from path, writing a default file first when
// none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8080"
	}
	if strings.TrimSpace(c.MetricsAddress) == "" {
		c.MetricsAddress = ":9091"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./pool-data"
	}
	if strings.TrimSpace(c.DomainName) == "" {
		c.DomainName = "safepool"
	}
	if strings.TrimSpace(c.DomainVersion) == "" {
		c.DomainVersion = "1"
	}
	if c.ChainID == 0 {
		c.ChainID = 1
	}
}

// Validate checks the address fields decode to 20-byte values. Optional
// fields may be empty.
func (c *Config) Validate() error {
	required := map[string]string{
		"PoolAddress":  c.PoolAddress,
		"VaultAddress": c.VaultAddress,
		"OwnerAddress": c.OwnerAddress,
	}
	for field, value := range required {
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
	}
	for field, value := range map[string]string{
		"FeeCollector": c.FeeCollector,
		"TokenAsset":   c.TokenAsset,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
	}
	for field, list := range map[string][]string{
		"ERC20Assets":      c.ERC20Assets,
		"NFTAssets":        c.NFTAssets,
		"MultiTokenAssets": c.MultiTokenAssets,
	} {
		for _, value := range list {
			if _, err := ParseAddress(value); err != nil {
				return fmt.Errorf("config: %s: %w", field, err)
			}
		}
	}
	return nil
}

// ParseAddress decodes a hex-encoded 20-byte address, with or without a 0x
// prefix.
func ParseAddress(s string) ([20]byte, error) {
	var out [20]byte
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != 20 {
		return out, fmt.Errorf("address must be 20 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// createDefault writes and returns a default configuration.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:     ":8080",
		MetricsAddress: ":9091",
		DataDir:        "./pool-data",
		Environment:    "local",
		ChainID:        1,
		DomainName:     "safepool",
		DomainVersion:  "1",
		PoolAddress:    hex.EncodeToString(make([]byte, 20)),
		VaultAddress:   hex.EncodeToString(make([]byte, 20)),
		OwnerAddress:   hex.EncodeToString(make([]byte, 20)),
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
