package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--log-level", "disabled"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := root.ExecuteContext(ctx)

	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pbapctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestCommandTree(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	for _, name := range []string{"console", "pull", "size", "lookup", "serve", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, name := range []string{"config", "address", "transport", "phonebook", "password", "sim-address", "format", "log-level", "json"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestConfigFileAndFlags(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "transport = \"bluez\"\n")

	out, err := execute(t, "", "version", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Stack: BlueZ obexd (DBus)")

	out, err = execute(t, "", "version", "--config", path, "--transport", "sim", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"bluetooth_stack":"Simulator"`)
	assert.Contains(t, out, `"version":"dev"`)
}

func TestConfigRejected(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "version", "--transport", "serial")
	require.Error(t, err)

	_, err = execute(t, "", "version", "--address", "not-an-address")
	require.Error(t, err)

	_, err = execute(t, "", "version", "--config", writeConfig(t, "transport = "))
	require.Error(t, err)
}

func TestPull(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "pull")
	require.NoError(t, err)

	assert.Contains(t, out, "[+] Received telecom/pb.vcf")
	assert.Contains(t, out, "BEGIN:VCARD")
	assert.Contains(t, out, "FN:Alice Doe")
	assert.Contains(t, out, "[=] pull-object: ok")
	assert.Contains(t, out, "disconnected")
}

func TestPullToFile(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "ich.vcf")

	out, err := execute(t, "", "pull", "telecom/ich.vcf", "--output", output)
	require.NoError(t, err)
	assert.NotContains(t, out, "BEGIN:VCARD")

	object, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(object), "Bob Roe")
}

func TestPullMissingObject(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "pull", "telecom/nope.vcf")
	require.Error(t, err)
	assert.Contains(t, out, "[=] pull-object: not found")
}

func TestSizeAndLookup(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "size")
	require.NoError(t, err)
	assert.Contains(t, out, "[+] Phonebook size: 4")

	out, err = execute(t, "", "lookup", "911", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"Emergency"`)
	assert.Contains(t, out, `"kind":"lookup-by-number"`)
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "sim_password = \"4321\"\n")

	out, err := execute(t, "", "size", "--config", path, "--password", "4321")
	require.NoError(t, err)
	assert.Contains(t, out, "requests authentication")
	assert.Contains(t, out, "[+] Phonebook size: 4")

	_, err = execute(t, "", "size", "--config", path, "--password", "0000")
	require.Error(t, err)
}

func TestConsole(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "status\nbogus\nquit\n", "console")
	require.NoError(t, err)

	assert.Contains(t, out, "Phonebook access client console")
	assert.Contains(t, out, "State:    disconnected")
	assert.Contains(t, out, "[!] ")
}

func TestServeStopsWithContext(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "--listen", "127.0.0.1:0", "--log-level", "disabled"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
