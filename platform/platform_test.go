package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bluetuith-org/pbap-client/api/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimTransport(t *testing.T) {
	backend, err := Transport(config.New(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	assert.NotNil(t, backend.Transport)
	assert.Equal(t, SimulatorStack, backend.Info.Stack)
	assert.NotEmpty(t, backend.Info.OS)
}

func TestUnknownTransport(t *testing.T) {
	cfg := config.New()
	cfg.Transport = "serial"

	_, err := Transport(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestSimServerPhonebook(t *testing.T) {
	cfg := config.New()
	cfg.Phonebook = filepath.Join(t.TempDir(), "missing.json")

	_, err := SimServer(cfg, zerolog.Nop())
	assert.Error(t, err)

	cfg.Phonebook = filepath.Join(t.TempDir(), "book.json")
	require.NoError(t, os.WriteFile(cfg.Phonebook, []byte(`{"telecom/pb.vcf":[{"name":"Solo","phones":["123"]}]}`), 0o600))

	server, err := SimServer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, server)
}
