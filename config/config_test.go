package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not: t.Setenv testin sonunda eski değeri geri yükler ve testi paralel
// koşudan çıkarır — env'e dokunan testler için doğru araç budur.

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sohbet_test")
	t.Setenv("CHAT_USER_ID", "u1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Store.FetchLimit)
	assert.Equal(t, "ws://localhost:9090/ws", cfg.Realtime.URL)
	assert.Equal(t, "./data/sohbet_prefs.db", cfg.Prefs.Path)
	assert.Equal(t, "0.0.0.0:9090", cfg.Relay.Addr())
	assert.Equal(t, []string{"*"}, cfg.Relay.AllowedOrigins)
}

func TestLoadUsernameFallsBackToID(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sohbet_test")
	t.Setenv("CHAT_USER_ID", "u1")
	t.Setenv("CHAT_USERNAME", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "u1", cfg.User.Username, "görünen ad verilmemişse ID kullanılır")
}

func TestLoadInvalidFetchLimit(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sohbet_test")
	t.Setenv("FETCH_LIMIT", "beş yüz")

	_, err := Load()

	assert.Error(t, err)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, splitOrigins("*"))
	assert.Equal(t,
		[]string{"http://localhost:3000", "https://sohbet.example.com"},
		splitOrigins(" http://localhost:3000 , https://sohbet.example.com ,, "),
		"boş parçalar ve kenar boşlukları temizlenir")
}
