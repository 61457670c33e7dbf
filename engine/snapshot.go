package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/akinalp/sohbet/models"
)

// Snapshot, engine durumunun dışarıya verilen okunur kopyasıdır.
//
// Loop içinde üretilir, bu yüzden her zaman tutarlıdır — yarıda kalmış
// bir merge görülemez. Mesaj struct'ları değerle kopyalanır; içlerindeki
// slice'lar paylaşılır ama engine slice'ları ASLA yerinde değiştirmez
// (her mutasyon yeni slice üretir), dolayısıyla paylaşım güvenlidir.
type Snapshot struct {
	Phase     PanelPhase
	ActiveKey string
	AtBottom  bool
	Focused   bool

	Compose     string
	SearchOpen  bool
	SearchQuery string
	EmojiOpen   bool

	Connected     bool
	Loading       bool
	SetupRequired bool
	LastError     string

	DND     bool
	SoundOn bool

	// Conversations, sohbet listesi — son aktiviteye göre yeniden eskiye.
	// Hiç mesajı olmayan sohbetler listenin sonunda, kendi aralarında
	// ilk görülme sırasını korur (broadcast her zaman ilk aday).
	Conversations []models.Conversation

	// Messages, aktif sohbetin mesajları — eskiden yeniye. Arama açıksa
	// filtrelenmiş alt kümedir. Aktif sohbet yoksa nil.
	Messages []models.Message

	// Typing, aktif sohbette şu an yazmakta olanlar.
	Typing []TypingIndicator

	Presence map[string]models.PresenceStatus
	Names    map[string]string

	Unread      map[string]int
	UnreadTotal int
}

// TypingIndicator, tek bir yazarın "yazıyor" göstergesi.
type TypingIndicator struct {
	UserID   string
	Username string
}

// snapshot, güncel durumun kopyasını üretir. SADECE loop'tan çağrılır.
func (e *Engine) snapshot() Snapshot {
	s := Snapshot{
		Phase:     e.phase,
		ActiveKey: e.active,
		AtBottom:  e.atBottom,
		Focused:   e.focused,

		Compose:     e.compose,
		SearchOpen:  e.searchOpen,
		SearchQuery: e.searchQuery,
		EmojiOpen:   e.emojiOpen,

		Connected:     e.connected,
		Loading:       e.loading,
		SetupRequired: e.setupRequired,
		LastError:     e.lastError,

		DND:     e.dnd,
		SoundOn: e.soundOn,

		Conversations: e.conversationList(),
		Messages:      e.activeMessages(),
		Typing:        e.activeTyping(),

		Presence: make(map[string]models.PresenceStatus, len(e.presence)),
		Names:    make(map[string]string, len(e.names)),
		Unread:   make(map[string]int, len(e.unread)),
	}

	for id, p := range e.presence {
		s.Presence[id] = p.status
	}
	for id, name := range e.names {
		s.Names[id] = name
	}
	for key, n := range e.unread {
		s.Unread[key] = n
		s.UnreadTotal += n
	}

	return s
}

// conversationList, sohbet listesini mirror'dan türetir.
//
// DB'de conversation tablosu yok — liste her snapshot'ta yeniden
// hesaplanır. Adaylar: broadcast + ilk görülme sırasıyla DM partner'ları.
// Son aktivite silinmemiş en yeni mesajın zamanıdır; tombstone'lar
// sıralamayı yukarı itmez.
func (e *Engine) conversationList() []models.Conversation {
	lastActivity := make(map[string]time.Time)
	for _, m := range e.messages {
		if m.IsDeleted() {
			continue
		}
		key := models.ConversationKey(e.cfg.UserID, &m)
		if key == "" {
			continue
		}
		if m.CreatedAt.After(lastActivity[key]) {
			lastActivity[key] = m.CreatedAt
		}
	}

	keys := make([]string, 0, 1+len(e.participantOrder))
	keys = append(keys, models.BroadcastKey)
	keys = append(keys, e.participantOrder...)

	list := make([]models.Conversation, 0, len(keys))
	for _, key := range keys {
		c := models.Conversation{
			Key:          key,
			LastActivity: lastActivity[key],
			UnreadCount:  e.unread[key],
			Muted:        e.muted[key],
		}
		if models.IsDirect(key) {
			c.Name = e.displayName(key)
		}
		list = append(list, c)
	}

	// Aktiviteye göre yeniden eskiye; zero zamanlar (boş sohbetler)
	// birbirine eşittir ve stable sort inşa sırasını korur.
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastActivity.After(list[j].LastActivity)
	})

	return list
}

// activeMessages, aktif sohbetin kronolojik mesaj listesini üretir.
// Arama açıkken içerik case-insensitive filtrelenir; tombstone'ların
// içeriği görünmez olduğu için arama sonuçlarına giremezler.
func (e *Engine) activeMessages() []models.Message {
	if e.active == "" {
		return nil
	}

	query := ""
	if e.searchOpen {
		query = strings.ToLower(strings.TrimSpace(e.searchQuery))
	}

	var list []models.Message
	for _, m := range e.messages {
		if models.ConversationKey(e.cfg.UserID, &m) != e.active {
			continue
		}
		if query != "" {
			if m.IsDeleted() || !strings.Contains(strings.ToLower(m.Content), query) {
				continue
			}
		}
		list = append(list, m)
	}

	// Kronolojik sıra; aynı anda yaratılmış mesajlarda ID tie-break —
	// map iterasyonu rastgeledir, snapshot deterministik olmalı.
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})

	return list
}

// activeTyping, aktif sohbette yazmakta olanları alfabetik sırada döner.
func (e *Engine) activeTyping() []TypingIndicator {
	if e.active == "" {
		return nil
	}

	var list []TypingIndicator
	for authorID, ts := range e.typing {
		if ts.conversationKey != e.active {
			continue
		}
		list = append(list, TypingIndicator{UserID: authorID, Username: ts.username})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Username != list[j].Username {
			return list[i].Username < list[j].Username
		}
		return list[i].UserID < list[j].UserID
	})

	return list
}
