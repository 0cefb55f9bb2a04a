package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"salechain/core/types"
)

// Config carries the runtime configuration for the sale service: the HTTP
// listen address, the storage location, the injected admin allow-list and the
// fixed identities the contribution protocol validates against.
type Config struct {
	ListenAddress string   `toml:"ListenAddress"`
	DataDir       string   `toml:"DataDir"`
	Admins        []string `toml:"Admins"`
	Treasury      string   `toml:"Treasury"`
	PriceFeed     string   `toml:"PriceFeed"`

	// StableAssets lists the USD-pegged symbols the service accepts.
	StableAssets []string `toml:"StableAssets"`

	// OracleMaxAgeSecs bounds the age of an accepted native-asset quote.
	// Zero disables the staleness guard.
	OracleMaxAgeSecs uint64 `toml:"OracleMaxAgeSecs"`
	// OracleFixedPrice / OracleFixedExpo configure the fixed oracle used
	// when no live feed is wired (local runs and tests).
	OracleFixedPrice uint64 `toml:"OracleFixedPrice"`
	OracleFixedExpo  uint32 `toml:"OracleFixedExpo"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./saled-data"
	}
	if cfg.Admins == nil {
		cfg.Admins = []string{}
	}
	if len(cfg.StableAssets) == 0 {
		cfg.StableAssets = []string{string(types.AssetUSDT), string(types.AssetUSDC)}
	}
	if cfg.OracleMaxAgeSecs == 0 {
		cfg.OracleMaxAgeSecs = 60
	}
	if cfg.OracleFixedPrice == 0 {
		cfg.OracleFixedPrice = 14_400_000_000
		cfg.OracleFixedExpo = 8
	}
}

// Validate checks that every configured identity parses as an address.
func (c *Config) Validate() error {
	for _, admin := range c.Admins {
		if _, err := ParseAddress(admin); err != nil {
			return fmt.Errorf("config: invalid admin address %q: %w", admin, err)
		}
	}
	if strings.TrimSpace(c.Treasury) != "" {
		if _, err := ParseAddress(c.Treasury); err != nil {
			return fmt.Errorf("config: invalid treasury address %q: %w", c.Treasury, err)
		}
	}
	if strings.TrimSpace(c.PriceFeed) != "" {
		if _, err := ParseAddress(c.PriceFeed); err != nil {
			return fmt.Errorf("config: invalid price feed address %q: %w", c.PriceFeed, err)
		}
	}
	for _, symbol := range c.StableAssets {
		asset, err := types.ParseAsset(symbol)
		if err != nil {
			return fmt.Errorf("config: invalid stable asset %q: %w", symbol, err)
		}
		if !asset.Stable() {
			return fmt.Errorf("config: asset %q is not a stablecoin", symbol)
		}
	}
	return nil
}

// StableAssetList returns the parsed stable asset set.
func (c *Config) StableAssetList() ([]types.Asset, error) {
	assets := make([]types.Asset, 0, len(c.StableAssets))
	for _, symbol := range c.StableAssets {
		asset, err := types.ParseAsset(symbol)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// AdminAddresses returns the parsed admin allow-list.
func (c *Config) AdminAddresses() ([][20]byte, error) {
	admins := make([][20]byte, 0, len(c.Admins))
	for _, admin := range c.Admins {
		addr, err := ParseAddress(admin)
		if err != nil {
			return nil, err
		}
		admins = append(admins, addr)
	}
	return admins, nil
}

// TreasuryAddress returns the parsed treasury identity.
func (c *Config) TreasuryAddress() ([20]byte, error) {
	return ParseAddress(c.Treasury)
}

// PriceFeedAddress returns the parsed price feed identity.
func (c *Config) PriceFeedAddress() ([20]byte, error) {
	return ParseAddress(c.PriceFeed)
}

// ParseAddress decodes a 0x-prefixed hex address.
func ParseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("not a hex address: %q", value)
	}
	return [20]byte(common.HexToAddress(trimmed)), nil
}
