package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/sohbet/engine"
	"github.com/akinalp/sohbet/models"
)

// Komutlar mesajları ID önekiyle seçer. Önek çözümü SADECE görünür
// mesajlar üzerinde çalışır — başka sohbetteki bir mesaj yanlışlıkla
// hedeflenemez.

func appWithMessages(ids ...string) *app {
	msgs := make([]models.Message, len(ids))
	for i, id := range ids {
		msgs[i] = models.Message{ID: id}
	}
	return &app{snap: engine.Snapshot{Messages: msgs}}
}

func TestResolveIDUniquePrefix(t *testing.T) {
	a := appWithMessages("aabb1111-0000", "ccdd2222-0000")

	id, ok := a.resolveID("aa")

	require.True(t, ok)
	assert.Equal(t, "aabb1111-0000", id)
	assert.Empty(t, a.status)
}

func TestResolveIDCaseInsensitive(t *testing.T) {
	a := appWithMessages("AABB1111-0000")

	id, ok := a.resolveID("aabb")

	require.True(t, ok)
	assert.Equal(t, "AABB1111-0000", id)
}

func TestResolveIDAmbiguous(t *testing.T) {
	a := appWithMessages("aabb1111-0000", "aabb2222-0000")

	_, ok := a.resolveID("aabb")

	assert.False(t, ok)
	assert.Contains(t, a.status, "ambiguous")
}

func TestResolveIDNoMatch(t *testing.T) {
	a := appWithMessages("aabb1111-0000")

	_, ok := a.resolveID("zz")

	assert.False(t, ok)
	assert.Contains(t, a.status, "no visible message")
}

func TestResolveIDFullIDAlwaysWorks(t *testing.T) {
	a := appWithMessages("aabb1111-0000", "aabb1111-0001")

	id, ok := a.resolveID("aabb1111-0001")

	require.True(t, ok)
	assert.Equal(t, "aabb1111-0001", id)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "aabb1111", shortID("aabb1111-2222-3333"))
	assert.Equal(t, "kisa", shortID("kisa"))
}

func TestUnknownCommandSetsStatus(t *testing.T) {
	a := appWithMessages()

	a.runCommand("/uydurma arg")

	assert.Contains(t, a.status, "unknown command /uydurma")
}

func TestReplyUsageWithoutArgs(t *testing.T) {
	a := appWithMessages()

	a.runCommand("/reply")

	assert.Contains(t, a.status, "usage: /reply")
}

func TestTypingLine(t *testing.T) {
	assert.Empty(t, typingLine(nil))
	assert.Equal(t, "ayşe is typing…",
		typingLine([]engine.TypingIndicator{{UserID: "u1", Username: "ayşe"}}))
	assert.Equal(t, "ayşe and bora are typing…",
		typingLine([]engine.TypingIndicator{
			{UserID: "u1", Username: "ayşe"},
			{UserID: "u2", Username: "bora"},
		}))
	assert.Equal(t, "several people are typing…",
		typingLine([]engine.TypingIndicator{
			{UserID: "u1", Username: "a"},
			{UserID: "u2", Username: "b"},
			{UserID: "u3", Username: "c"},
		}))
}
