package engine

import (
	"github.com/akinalp/sohbet/backend"
	"github.com/akinalp/sohbet/models"
)

// event, engine loop'una post edilen iç event'lerin marker interface'i.
//
// Neden interface + type switch?
// Loop tek goroutine'de çalışır ve her event türü için ayrı bir handler
// vardır. Tipli struct'lar sayesinde her event kendi payload'ını taşır,
// handle() içindeki type switch hangi handler'ın çalışacağını seçer.
// Testler de aynı kapıdan girer: handle(ev) doğrudan çağrılır, loop
// başlatmadan deterministik test yapılır.
type event interface{ isEvent() }

// ─── Dış dünyadan gelen event'ler ───

// evChange, messages topic'inden gelen bir satır değişikliği.
type evChange struct{ change backend.ChangeEvent }

// evTyping, typing topic'inden gelen ephemeral sinyal.
type evTyping struct{ typing backend.TypingEvent }

// evPresence, presence topic'inden gelen durum değişikliği.
type evPresence struct{ presence backend.PresenceEvent }

// evStatus, relay bağlantı durumu değişti.
type evStatus struct{ connected bool }

// evFetchDone, startFetch goroutine'inin sonucu.
type evFetchDone struct {
	messages []models.Message
	err      error
}

// evWriteDone, optimistic bir yazının sonucu.
// opID pending map'indeki revert closure'ını bulur.
type evWriteDone struct {
	opID string
	err  error
}

// evTypingExpired, bir yazarın typing göstergesinin süresi doldu.
// gen, timer kurulduğu andaki jenerasyon — eski timer'ın yeni
// broadcast'le yenilenmiş göstergeyi söndürmesini engeller.
type evTypingExpired struct {
	authorID string
	gen      int64
}

// ─── Panel event'leri ───

type evOpenPanel struct{}
type evClosePanel struct{}
type evMinimize struct{}
type evRestore struct{}
type evBackToList struct{}
type evOpenConversation struct{ key string }
type evSetAtBottom struct{ atBottom bool }
type evSetFocused struct{ focused bool }
type evSetCompose struct{ text string }
type evToggleSearch struct{}
type evSetSearchQuery struct{ query string }
type evToggleEmoji struct{}

// ─── Kullanıcı aksiyonları ───

type evSend struct {
	content   string
	replyToID string // boşsa reply değil
}

type evEdit struct {
	id      string
	content string
}

type evSoftDelete struct{ id string }

type evReact struct {
	id    string
	emoji string
}

type evTogglePin struct{ id string }

type evCreateTask struct{ id string }

type evToggleMute struct{ key string }
type evSetDND struct{ on bool }
type evSetSound struct{ on bool }

// evRefresh, mirror'ı baştan çekme isteği (manuel yenileme / retry).
type evRefresh struct{}

// evStateReq, snapshot isteği — yanıt reply channel'ından döner.
type evStateReq struct{ reply chan Snapshot }

// isEvent implementasyonları — marker method, davranış taşımaz.
func (evChange) isEvent()           {}
func (evTyping) isEvent()           {}
func (evPresence) isEvent()         {}
func (evStatus) isEvent()           {}
func (evFetchDone) isEvent()        {}
func (evWriteDone) isEvent()        {}
func (evTypingExpired) isEvent()    {}
func (evOpenPanel) isEvent()        {}
func (evClosePanel) isEvent()       {}
func (evMinimize) isEvent()         {}
func (evRestore) isEvent()          {}
func (evBackToList) isEvent()       {}
func (evOpenConversation) isEvent() {}
func (evSetAtBottom) isEvent()      {}
func (evSetFocused) isEvent()       {}
func (evSetCompose) isEvent()       {}
func (evToggleSearch) isEvent()     {}
func (evSetSearchQuery) isEvent()   {}
func (evToggleEmoji) isEvent()      {}
func (evSend) isEvent()             {}
func (evEdit) isEvent()             {}
func (evSoftDelete) isEvent()       {}
func (evReact) isEvent()            {}
func (evTogglePin) isEvent()        {}
func (evCreateTask) isEvent()       {}
func (evToggleMute) isEvent()       {}
func (evSetDND) isEvent()           {}
func (evSetSound) isEvent()         {}
func (evRefresh) isEvent()          {}
func (evStateReq) isEvent()         {}
