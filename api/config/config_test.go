package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pbapctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
	assert.Equal(t, DefaultAddress, cfg.Address)
	assert.Equal(t, TransportSim, cfg.Transport)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
address = "11:22:33:44:55:66"
transport = "bluez"
password = "1234"
pull_path = "SIM1/telecom/pb.vcf"
format = "vcard30"

[log]
level = "debug"
no_color = true
`))
	require.NoError(t, err)

	assert.Equal(t, "11:22:33:44:55:66", cfg.Address)
	assert.Equal(t, TransportBluez, cfg.Transport)
	assert.Equal(t, "1234", cfg.Password)
	assert.Equal(t, "SIM1/telecom/pb.vcf", cfg.PullPath)
	assert.Equal(t, DefaultLookupNumber, cfg.LookupNumber)
	assert.Equal(t, "vcard30", cfg.Format)
	assert.Equal(t, LogConfig{Level: "debug", NoColor: true, Timestamp: true}, cfg.Log)
}

func TestLoadRejects(t *testing.T) {
	for name, content := range map[string]string{
		"syntax":    `address = `,
		"transport": `transport = "serial"`,
		"format":    `format = "vcard40"`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
