package main

import (
	"bytes"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/zitadel/ciba/example/server/config"
	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/crypto"
)

func TestEncryptCommand(t *testing.T) {
	const key = "0123456789abcdef"
	var out bytes.Buffer
	app := &cli.App{
		Writer:   &out,
		Commands: []*cli.Command{encryptCommand},
	}
	require.NoError(t, app.Run([]string{"ciba-server", "encrypt", "--key", key, "server-key"}))

	encrypted := strings.TrimSpace(out.String())
	decrypted, err := crypto.DecryptAES(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, "server-key", decrypted)

	notifier, err := ciba.NewEndUserNotifier(ciba.NotificationConfig{
		URL:           "https://fcm.example.com/send",
		ServerKey:     encrypted,
		EncryptionKey: key,
	})
	require.NoError(t, err)
	assert.NotNil(t, notifier)
}

func TestEncryptServerKey_InvalidKey(t *testing.T) {
	_, err := encryptServerKey("server-key", "short")
	assert.ErrorIs(t, err, crypto.ErrKeySize)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	file := path.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("TEST_CIBA_SECRET=from-env-file\n"), 0666))

	require.NoError(t, loadEnv(file, true))
	assert.Equal(t, "from-env-file", os.Getenv("TEST_CIBA_SECRET"))
	os.Unsetenv("TEST_CIBA_SECRET")

	assert.NoError(t, loadEnv(path.Join(dir, "missing"), false))
	assert.Error(t, loadEnv(path.Join(dir, "missing"), true))
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		_, err := newLogger(level)
		assert.NoError(t, err, level)
	}
	_, err := newLogger("verbose")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "7777")
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.Port)
	assert.Equal(t, config.StoreMemory, cfg.Store.Driver)

	file := path.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("store:\n  driver: mongo\n"), 0666))
	_, err = loadConfig(file)
	assert.Error(t, err)
}
