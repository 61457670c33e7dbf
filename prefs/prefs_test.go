package prefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDefaults(t *testing.T) {
	s := newTestStore(t)

	dnd, err := s.DoNotDisturb()
	require.NoError(t, err)
	assert.False(t, dnd, "DND varsayılan olarak kapalı olmalı")

	sound, err := s.SoundEnabled()
	require.NoError(t, err)
	assert.True(t, sound, "ses varsayılan olarak açık olmalı")

	muted, err := s.IsMuted("broadcast")
	require.NoError(t, err)
	assert.False(t, muted)

	draft, err := s.Draft("broadcast")
	require.NoError(t, err)
	assert.Empty(t, draft)

	keys, err := s.MutedConversations()
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestSettingsRoundtrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetDoNotDisturb(true))
	dnd, err := s.DoNotDisturb()
	require.NoError(t, err)
	assert.True(t, dnd)

	require.NoError(t, s.SetSoundEnabled(false))
	sound, err := s.SoundEnabled()
	require.NoError(t, err)
	assert.False(t, sound)

	// Tekrar değiştir — upsert üzerine yazmalı
	require.NoError(t, s.SetDoNotDisturb(false))
	dnd, err = s.DoNotDisturb()
	require.NoError(t, err)
	assert.False(t, dnd)
}

func TestMuteUnmute(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetMuted("alice", true))
	// İkinci mute hata vermemeli (INSERT OR IGNORE)
	require.NoError(t, s.SetMuted("alice", true))

	muted, err := s.IsMuted("alice")
	require.NoError(t, err)
	assert.True(t, muted)

	keys, err := s.MutedConversations()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, keys)

	require.NoError(t, s.SetMuted("alice", false))
	muted, err = s.IsMuted("alice")
	require.NoError(t, err)
	assert.False(t, muted)
}

func TestDraftSaveAndClear(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetDraft("bob", "yarım kalan mesaj"))
	draft, err := s.Draft("bob")
	require.NoError(t, err)
	assert.Equal(t, "yarım kalan mesaj", draft)

	// Üzerine yaz
	require.NoError(t, s.SetDraft("bob", "yeni taslak"))
	draft, err = s.Draft("bob")
	require.NoError(t, err)
	assert.Equal(t, "yeni taslak", draft)

	// Boş taslak satırı silmeli
	require.NoError(t, s.SetDraft("bob", ""))
	draft, err = s.Draft("bob")
	require.NoError(t, err)
	assert.Empty(t, draft)
}

func TestDraftsSnapshot(t *testing.T) {
	s := newTestStore(t)

	drafts, err := s.Drafts()
	require.NoError(t, err)
	assert.Empty(t, drafts)

	require.NoError(t, s.SetDraft("alice", "merhaba"))
	require.NoError(t, s.SetDraft("broadcast", "duyuru taslağı"))
	require.NoError(t, s.SetDraft("bob", "silinecek"))
	require.NoError(t, s.SetDraft("bob", "")) // boş taslak snapshot'a girmez

	drafts, err = s.Drafts()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"alice":     "merhaba",
		"broadcast": "duyuru taslağı",
	}, drafts)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetDoNotDisturb(true))
	require.NoError(t, s.SetMuted("broadcast", true))
	require.NoError(t, s.SetDraft("alice", "taslak"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	dnd, err := s.DoNotDisturb()
	require.NoError(t, err)
	assert.True(t, dnd)

	muted, err := s.IsMuted("broadcast")
	require.NoError(t, err)
	assert.True(t, muted)

	draft, err := s.Draft("alice")
	require.NoError(t, err)
	assert.Equal(t, "taslak", draft)
}
