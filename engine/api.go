package engine

// Bu dosya engine'in dış API'sidir. Her metod bir event post eder ve
// HEMEN döner — gerçek iş loop goroutine'inde, sırayla yapılır.
// UI thread'i (bubbletea Update) bu metodları korkusuzca çağırabilir:
// hiçbiri bloklamaz, hiçbiri state'e doğrudan dokunmaz.

// ─── Panel ───

// Open, kapalı paneli liste görünümünde açar.
func (e *Engine) Open() { e.post(evOpenPanel{}) }

// Close, paneli tamamen kapatır. Abonelikler ve mirror YAŞAMAYA devam
// eder — arka planda unread birikir, panel tekrar açılınca hazırdır.
func (e *Engine) Close() { e.post(evClosePanel{}) }

// Minimize, aktif sohbeti küçültür (sohbet seçili kalır).
func (e *Engine) Minimize() { e.post(evMinimize{}) }

// Restore, küçültülmüş sohbeti geri açar.
func (e *Engine) Restore() { e.post(evRestore{}) }

// Back, sohbet görünümünden liste görünümüne döner.
func (e *Engine) Back() { e.post(evBackToList{}) }

// OpenConversation, verilen sohbeti açar (listeden veya doğrudan).
func (e *Engine) OpenConversation(key string) { e.post(evOpenConversation{key: key}) }

// SetAtBottom, scroll pozisyonunun en altta olup olmadığını bildirir.
// En alta dönüş, aktif sohbetin birikmiş unread'ini sıfırlar.
func (e *Engine) SetAtBottom(atBottom bool) { e.post(evSetAtBottom{atBottom: atBottom}) }

// SetFocused, uygulama penceresinin odak durumunu bildirir.
// Odak dışındayken gelen mesajlar sistem bildirimi üretir.
func (e *Engine) SetFocused(focused bool) { e.post(evSetFocused{focused: focused}) }

// SetCompose, compose alanının güncel metnini bildirir.
// Boş olmayan metin typing sinyali yayınlatabilir (throttle'lı).
func (e *Engine) SetCompose(text string) { e.post(evSetCompose{text: text}) }

// ToggleSearch, sohbet içi aramayı açıp kapatır.
func (e *Engine) ToggleSearch() { e.post(evToggleSearch{}) }

// SetSearchQuery, arama metnini günceller (arama açıkken).
func (e *Engine) SetSearchQuery(query string) { e.post(evSetSearchQuery{query: query}) }

// ToggleEmoji, emoji seçiciyi açıp kapatır.
func (e *Engine) ToggleEmoji() { e.post(evToggleEmoji{}) }

// ─── Mesaj aksiyonları ───

// Send, compose içeriğini aktif sohbete gönderir.
// replyToID doluysa mesaj o mesaja yanıt olarak işaretlenir.
func (e *Engine) Send(content, replyToID string) {
	e.post(evSend{content: content, replyToID: replyToID})
}

// Edit, kendi mesajımızın içeriğini değiştirir.
func (e *Engine) Edit(id, content string) { e.post(evEdit{id: id, content: content}) }

// Delete, kendi mesajımızı soft-delete eder (tombstone).
func (e *Engine) Delete(id string) { e.post(evSoftDelete{id: id}) }

// React, mesaja emoji reaction toggle'lar.
func (e *Engine) React(id, emoji string) { e.post(evReact{id: id, emoji: emoji}) }

// TogglePin, mesajı sabitler / sabitlemeyi kaldırır.
func (e *Engine) TogglePin(id string) { e.post(evTogglePin{id: id}) }

// CreateTaskFromMessage, mesajdan görev taslağı türetir ve
// Config.OnCreateTask'e iletir.
func (e *Engine) CreateTaskFromMessage(id string) { e.post(evCreateTask{id: id}) }

// ─── Tercihler ───

// ToggleMute, sohbetin sessize alma durumunu çevirir.
func (e *Engine) ToggleMute(key string) { e.post(evToggleMute{key: key}) }

// SetDoNotDisturb, DND modunu açar/kapatır (sadece sesi keser).
func (e *Engine) SetDoNotDisturb(on bool) { e.post(evSetDND{on: on}) }

// SetSoundEnabled, bildirim sesini açar/kapatır.
func (e *Engine) SetSoundEnabled(on bool) { e.post(evSetSound{on: on}) }

// Refresh, mirror'ı remote'tan baştan çeker.
// Geçici fetch hatasından sonra retry butonunun arkasındaki çağrı budur.
func (e *Engine) Refresh() { e.post(evRefresh{}) }
