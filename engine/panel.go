package engine

import "log"

// PanelPhase, chat panelinin hangi ekranda olduğunu söyleyen TEK enum'dur.
//
// Önceki nesil panel implementasyonları bu bilgiyi bağımsız boolean'lara
// (open, minimized, showingList, ...) dağıtır ve kombinasyonların yarısı
// anlamsız olurdu (open=false ama minimized=true gibi). Tek enum ile
// geçersiz kombinasyon temsil bile edilemez. Arama ve emoji picker gibi
// gerçekten dik (orthogonal) bayraklar enum'un DIŞINDA ayrı alan olarak
// durur — onlar her fazla birleşebilir.
//
// Geçiş grafiği:
//
//	Closed → ListView → ConversationView ⇄ Minimized
//	   ▲        ▲               │
//	   └────────┴───────────────┘  (Close: her fazdan; Back: ConversationView'den)
//
// Geçersiz geçişler sessizce yoksayılır — event tabanlı bir makinede
// geç kalmış bir UI event'i (ör. panel kapandıktan sonra gelen Minimize)
// hata değil gürültüdür.
type PanelPhase int

const (
	// PhaseClosed: panel kapalı. Abonelikler AÇIK kalır — unread
	// sayaçları panel kapalıyken de birikir, rozet bunun için var.
	PhaseClosed PanelPhase = iota

	// PhaseListView: sohbet listesi görünümde, hiçbir sohbet aktif değil.
	PhaseListView

	// PhaseConversationView: tek bir sohbet açık (active alanı dolu).
	PhaseConversationView

	// PhaseMinimized: sohbet açıkken panel küçültülmüş. active korunur
	// ama attentive-viewing testi artık geçmez — unread birikir.
	PhaseMinimized
)

// String, log ve test çıktıları için okunabilir faz adı döner.
func (p PanelPhase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseListView:
		return "list"
	case PhaseConversationView:
		return "conversation"
	case PhaseMinimized:
		return "minimized"
	default:
		return "unknown"
	}
}

// handleOpenPanel: Closed → ListView.
func (e *Engine) handleOpenPanel() {
	if e.phase != PhaseClosed {
		return
	}
	e.phase = PhaseListView
}

// handleClosePanel: her fazdan → Closed.
// Taslak saklanır, arama/emoji alt durumları sıfırlanır, aktif sohbet
// unutulur. Abonelikler ve mirror olduğu gibi kalır — panel tekrar
// açıldığında fetch gerekmez.
func (e *Engine) handleClosePanel() {
	if e.phase == PhaseClosed {
		return
	}
	e.stashDraft()
	e.phase = PhaseClosed
	e.active = ""
	e.compose = ""
	e.clearSearch()
	e.emojiOpen = false
}

// handleMinimize: ConversationView → Minimized.
func (e *Engine) handleMinimize() {
	if e.phase != PhaseConversationView {
		return
	}
	e.phase = PhaseMinimized
}

// handleRestore: Minimized → ConversationView.
// Kullanıcı kaldığı yere döner; en alttaysa birikmiş unread anında
// sıfırlanır ve read receipt'ler yayılır.
func (e *Engine) handleRestore() {
	if e.phase != PhaseMinimized {
		return
	}
	e.phase = PhaseConversationView
	if e.atBottom {
		e.markAttentive()
	}
}

// handleBackToList: ConversationView → ListView.
func (e *Engine) handleBackToList() {
	if e.phase != PhaseConversationView {
		return
	}
	e.stashDraft()
	e.phase = PhaseListView
	e.active = ""
	e.compose = ""
	e.clearSearch()
	e.emojiOpen = false
}

// handleOpenConversation, bir sohbeti aktif hale getirir.
// ListView'den (Select geçişi) veya ConversationView'den (sohbet
// değiştirme) çağrılabilir; diğer fazlarda yoksayılır.
//
// Sohbet değiştirirken giden sohbetin taslağı saklanır, gelenin taslağı
// compose'a geri yüklenir. Panel her zaman en alta scroll edilmiş açılır —
// attentive test ilk andan geçer, unread sıfırlanır, receipt'ler yayılır.
func (e *Engine) handleOpenConversation(key string) {
	if key == "" {
		return
	}
	if e.phase != PhaseListView && e.phase != PhaseConversationView {
		return
	}
	if e.phase == PhaseConversationView && e.active == key {
		return
	}

	e.stashDraft()
	e.clearSearch()
	e.emojiOpen = false

	e.phase = PhaseConversationView
	e.active = key
	e.atBottom = true
	e.compose = e.drafts[key]

	e.markAttentive()
}

// handleSetAtBottom, scroll pozisyonunu günceller.
// Alta dönüş attentive-viewing koşulunu tamamlayabilir: o anda aktif
// sohbette ne birikmişse okunmuş sayılır.
func (e *Engine) handleSetAtBottom(atBottom bool) {
	e.atBottom = atBottom
	if atBottom && e.phase == PhaseConversationView {
		e.markAttentive()
	}
}

// handleSetCompose, compose alanını günceller ve karşı tarafa throttle'lı
// "yazıyor" sinyali yayınlar.
func (e *Engine) handleSetCompose(text string) {
	e.compose = text
	if text != "" {
		e.maybeSendTyping()
	}
}

// handleToggleSearch, arama alt durumunu açıp kapatır.
// Arama sadece ConversationView'de anlamlıdır — görünür mesaj listesini
// filtreler. Kapanırken query temizlenir, yarım arama durumu kalmaz.
func (e *Engine) handleToggleSearch() {
	if e.phase != PhaseConversationView {
		return
	}
	if e.searchOpen {
		e.clearSearch()
		return
	}
	e.searchOpen = true
}

func (e *Engine) handleSetSearchQuery(query string) {
	if !e.searchOpen {
		return
	}
	e.searchQuery = query
}

func (e *Engine) handleToggleEmoji() {
	if e.phase != PhaseConversationView {
		return
	}
	e.emojiOpen = !e.emojiOpen
}

// markAttentive, "kullanıcı şu anda bu sohbete dikkatle bakıyor" anının
// tek noktadan işlenmesidir: unread sayacı sıfırlanır ve aktif sohbetin
// okunmamış mesajlarına read receipt yayılımı tetiklenir.
//
// Çağıranlar attentive koşulunun kendi paylarını garanti eder
// (faz + atBottom); burada sadece sonuç uygulanır.
func (e *Engine) markAttentive() {
	if e.active == "" {
		return
	}
	delete(e.unread, e.active)
	e.propagateReceipts()
}

// stashDraft, aktif sohbetin compose içeriğini taslak olarak saklar.
// Hem in-memory map'e (anında geri yükleme) hem prefs'e (kalıcılık)
// yazılır. Prefs yazısı goroutine'de koşar — loop disk beklemez.
func (e *Engine) stashDraft() {
	if e.active == "" {
		return
	}
	key, text := e.active, e.compose
	if e.drafts[key] == text {
		return
	}
	if text == "" {
		delete(e.drafts, key)
	} else {
		e.drafts[key] = text
	}

	if p := e.cfg.Prefs; p != nil {
		go func() {
			if err := p.SetDraft(key, text); err != nil {
				log.Printf("[engine] failed to persist draft for %s: %v", key, err)
			}
		}()
	}
}

func (e *Engine) clearSearch() {
	e.searchOpen = false
	e.searchQuery = ""
}
