package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, "safepool", cfg.DomainName)

	// The default file was written and loads back cleanly.
	_, err = os.Stat(path)
	require.NoError(t, err)
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, again.RPCAddress)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
PoolAddress = "00112233445566778899aabbccddeeff00112233"
VaultAddress = "0x00112233445566778899aabbccddeeff00112244"
OwnerAddress = "00112233445566778899aabbccddeeff00112255"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, uint64(1), cfg.ChainID)
	require.Equal(t, "./pool-data", cfg.DataDir)
}

func TestValidateRejectsBadAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
PoolAddress = "zz"
VaultAddress = "00112233445566778899aabbccddeeff00112244"
OwnerAddress = "00112233445566778899aabbccddeeff00112255"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00112233445566778899aabbccddeeff00112233")
	require.NoError(t, err)
	require.Equal(t, byte(0x33), addr[19])

	_, err = ParseAddress("0011")
	require.Error(t, err)
	_, err = ParseAddress("not hex at all")
	require.Error(t, err)
}
