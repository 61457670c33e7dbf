package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageRequestValidate(t *testing.T) {
	t.Run("valid broadcast", func(t *testing.T) {
		r := SendMessageRequest{Content: "merhaba"}
		assert.NoError(t, r.Validate())
	})

	t.Run("trims whitespace", func(t *testing.T) {
		r := SendMessageRequest{Content: "  selam  "}
		require.NoError(t, r.Validate())
		assert.Equal(t, "selam", r.Content)
	})

	t.Run("empty content", func(t *testing.T) {
		r := SendMessageRequest{Content: "   "}
		assert.Error(t, r.Validate())
	})

	t.Run("content at limit", func(t *testing.T) {
		// 2000 adet çok byte'lı rune — sınır byte değil rune sayısıyla ölçülür
		r := SendMessageRequest{Content: strings.Repeat("ğ", 2000)}
		assert.NoError(t, r.Validate())
	})

	t.Run("content over limit", func(t *testing.T) {
		r := SendMessageRequest{Content: strings.Repeat("a", 2001)}
		assert.Error(t, r.Validate())
	})

	t.Run("empty recipient rejected", func(t *testing.T) {
		empty := "  "
		r := SendMessageRequest{Content: "selam", RecipientID: &empty}
		assert.Error(t, r.Validate(), "recipient verildiyse boş olamaz — boş string broadcast DEĞİLDİR")
	})

	t.Run("nil recipient is broadcast", func(t *testing.T) {
		r := SendMessageRequest{Content: "duyuru"}
		assert.NoError(t, r.Validate())
		assert.Nil(t, r.RecipientID)
	})
}

func TestUpdateMessageRequestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := UpdateMessageRequest{Content: "düzeltme"}
		assert.NoError(t, r.Validate())
	})

	t.Run("empty", func(t *testing.T) {
		r := UpdateMessageRequest{Content: ""}
		assert.Error(t, r.Validate())
	})

	t.Run("over limit", func(t *testing.T) {
		r := UpdateMessageRequest{Content: strings.Repeat("x", 2001)}
		assert.Error(t, r.Validate())
	})
}

func TestIsDeleted(t *testing.T) {
	now := time.Now()
	alive := Message{ID: "m1"}
	dead := Message{ID: "m2", DeletedAt: &now}

	assert.False(t, alive.IsDeleted())
	assert.True(t, dead.IsDeleted())
}

func TestReadByUser(t *testing.T) {
	m := Message{ID: "m1", ReadBy: []string{"u1", "u2"}}

	assert.True(t, m.ReadByUser("u1"))
	assert.False(t, m.ReadByUser("u3"))

	var empty Message
	assert.False(t, empty.ReadByUser("u1"), "nil read-by set kimseyi içermez")
}
