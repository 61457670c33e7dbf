package models

import "time"

// BroadcastKey, recipient'ı olmayan mesajların düştüğü ortak kanalın
// conversation key'idir. Tüm katılımcılar görür.
const BroadcastKey = "broadcast"

// Conversation, türetilmiş bir sohbet listesi girdisidir.
//
// Dikkat: DB'de conversation tablosu YOKTUR. Sohbet listesi her seferinde
// mirror'daki mesajlardan ve presence roster'ından yeniden hesaplanır.
// Bir mesajın hangi sohbete ait olduğu sadece (author, recipient)
// çiftinden türetilir — ayrı bir kimliği yoktur.
type Conversation struct {
	Key          string    `json:"key"`            // BroadcastKey veya karşı tarafın kullanıcı ID'si
	Name         string    `json:"name"`           // DM'de karşı tarafın bilinen adı; broadcast'te boş
	LastActivity time.Time `json:"last_activity"`  // En yeni silinmemiş mesajın zamanı; mesaj yoksa zero
	UnreadCount  int       `json:"unread_count"`
	Muted        bool      `json:"muted"`
}

// ConversationKey, bir mesajın viewer'a göre hangi sohbete düştüğünü hesaplar.
//
// Kurallar:
//   - recipient nil              → BroadcastKey (herkese açık kanal)
//   - viewer mesajın yazarı      → karşı taraf recipient'tır
//   - viewer mesajın alıcısı     → karşı taraf yazardır
//   - viewer ikisi de değil      → "" (bu mesaj viewer'ın hiçbir sohbetine sayılmaz)
//
// Son kural önemli: üçüncü bir kullanıcının mirror'ına başkalarının DM'i
// düşse bile hiçbir unread sayacına ya da görünüme girmez.
func ConversationKey(viewerID string, m *Message) string {
	if m.RecipientID == nil {
		return BroadcastKey
	}
	switch viewerID {
	case m.AuthorID:
		return *m.RecipientID
	case *m.RecipientID:
		return m.AuthorID
	default:
		return ""
	}
}

// IsDirect, key'in iki kişilik bir DM sohbetini gösterip göstermediğini döner.
func IsDirect(key string) bool {
	return key != "" && key != BroadcastKey
}
