package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ConversationKey, mirror'daki her mesajın hangi sohbete düştüğünü
// belirleyen TEK fonksiyondur — unread sayaçları, sohbet listesi ve aktif
// görünüm hep bu anahtara bakar. Kurallar viewer'a görelidir: aynı mesaj
// iki farklı kullanıcının mirror'ında farklı anahtara düşer.

func strPtr(s string) *string { return &s }

func TestConversationKeyBroadcast(t *testing.T) {
	m := &Message{ID: "m1", AuthorID: "u1", RecipientID: nil}

	assert.Equal(t, BroadcastKey, ConversationKey("u1", m), "yazar için de broadcast")
	assert.Equal(t, BroadcastKey, ConversationKey("u2", m), "herkes için broadcast")
}

func TestConversationKeyViewerIsAuthor(t *testing.T) {
	m := &Message{ID: "m1", AuthorID: "ben", RecipientID: strPtr("sen")}

	assert.Equal(t, "sen", ConversationKey("ben", m),
		"kendi gönderdiğim DM karşı tarafın sohbetine düşer")
}

func TestConversationKeyViewerIsRecipient(t *testing.T) {
	m := &Message{ID: "m1", AuthorID: "sen", RecipientID: strPtr("ben")}

	assert.Equal(t, "sen", ConversationKey("ben", m),
		"bana gelen DM yazarın sohbetine düşer")
}

func TestConversationKeyThirdParty(t *testing.T) {
	m := &Message{ID: "m1", AuthorID: "u1", RecipientID: strPtr("u2")}

	assert.Empty(t, ConversationKey("u3", m),
		"başkalarının DM'i üçüncü tarafın hiçbir sohbetine sayılmaz")
}

func TestConversationKeySelfDM(t *testing.T) {
	// Kendine DM: author == recipient. Kural sırası gereği "viewer yazar"
	// dalı kazanır ve anahtar yine kullanıcının kendisi olur.
	m := &Message{ID: "m1", AuthorID: "ben", RecipientID: strPtr("ben")}

	assert.Equal(t, "ben", ConversationKey("ben", m))
}

func TestIsDirect(t *testing.T) {
	assert.False(t, IsDirect(BroadcastKey))
	assert.False(t, IsDirect(""))
	assert.True(t, IsDirect("u1"))
}
