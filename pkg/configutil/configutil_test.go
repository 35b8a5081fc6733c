package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port    int    `json:"port"`
	Name    string `json:"name"`
	Verbose bool   `json:"verbose"`
	Nested  struct {
		Url string `json:"url"`
	} `json:"nested"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
}

func TestReadConfigMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		port: 8080,
		name: "campusd",
		nested: { url: "https://selfservice.campus-dual.de" },
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		port: 9090,
		nested: { url: "http://127.0.0.1:4000" },
	}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "campusd", cfg.Name)
	require.Equal(t, "http://127.0.0.1:4000", cfg.Nested.Url)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{ name: "local" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
}

func TestOverrideFromEnv(t *testing.T) {
	value := "from-file"
	t.Setenv("CAMPUS_TEST_OVERRIDE", "")
	OverrideFromEnv(&value, "CAMPUS_TEST_OVERRIDE")
	require.Equal(t, "from-file", value)

	t.Setenv("CAMPUS_TEST_OVERRIDE", "from-env")
	OverrideFromEnv(&value, "CAMPUS_TEST_OVERRIDE")
	require.Equal(t, "from-env", value)
}

func TestReadRecursivelyWalksUp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cli.json5"), `{ name: "parent" }`)
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	cfg, err := ReadRecursively[testConfig]("cli.json5")
	require.NoError(t, err)
	require.Equal(t, "parent", cfg.Name)
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("CAMPUS_TEST_SECRET", "")

	_, err := ResolveSecret("session.aes_key", "", "CAMPUS_TEST_SECRET", 8)
	require.ErrorContains(t, err, "CAMPUS_TEST_SECRET")

	_, err = ResolveSecret("session.aes_key", "short", "CAMPUS_TEST_SECRET", 8)
	require.ErrorContains(t, err, "at least 8 bytes")
	require.NotContains(t, err.Error(), "short")

	secret, err := ResolveSecret("session.aes_key", "from the file", "CAMPUS_TEST_SECRET", 8)
	require.NoError(t, err)
	require.Equal(t, "from the file", secret)

	t.Setenv("CAMPUS_TEST_SECRET", "from the environment")
	secret, err = ResolveSecret("session.aes_key", "short", "CAMPUS_TEST_SECRET", 8)
	require.NoError(t, err)
	require.Equal(t, "from the environment", secret)
}
