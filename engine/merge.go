package engine

import (
	"errors"
	"log"
	"time"

	"github.com/akinalp/sohbet/backend"
	"github.com/akinalp/sohbet/models"
	"github.com/akinalp/sohbet/pkg"
)

// ─── Full fetch ───

// handleFetchDone, startFetch goroutine'inin sonucunu mirror'a uygular.
//
// Başarıda mirror WHOLESALE değiştirilir: eski map atılır, gelen liste
// yeni gerçektir. Subscribe fetch'ten ÖNCE yapıldığı için fetch sırasında
// kaçan her değişiklik ya listede zaten vardır ya da buffer'da bekleyen
// bir event olarak birazdan idempotent merge ile işlenir.
//
// Hatada mirror'a DOKUNULMAZ — eski veri boş ekrandan iyidir. Hata türü
// ayrıştırılır: ErrStoreMissing kalıcı "kurulum gerekli" durumudur ve
// otomatik retry edilmez; diğer her şey geçici sayılır ve kullanıcıya
// retry sunulur.
func (e *Engine) handleFetchDone(ev evFetchDone) {
	e.loading = false

	if ev.err != nil {
		if errors.Is(ev.err, pkg.ErrStoreMissing) {
			e.setupRequired = true
			log.Printf("[engine] store not provisioned: %v", ev.err)
			return
		}
		e.lastError = ev.err.Error()
		log.Printf("[engine] fetch failed: %v", ev.err)
		return
	}

	e.setupRequired = false
	e.lastError = ""

	e.messages = make(map[string]models.Message, len(ev.messages))
	for _, m := range ev.messages {
		e.messages[m.ID] = m
		e.noteParticipant(&m)
	}
	log.Printf("[engine] mirror loaded: %d messages", len(ev.messages))

	// Mirror değişti — aktif sohbete dikkatle bakılıyorsa birikmiş
	// okunmamışlar şimdi damgalanır.
	if e.phase == PhaseConversationView && e.atBottom {
		e.markAttentive()
	}
}

// ─── Messages topic ───

// handleChange, messages topic'inden gelen tek bir satır değişikliğini
// türüne göre merge eder.
func (e *Engine) handleChange(ev backend.ChangeEvent) {
	switch ev.Kind {
	case backend.ChangeInsert:
		e.mergeInsert(ev.Message)
	case backend.ChangeUpdate:
		e.mergeUpdate(ev.Message)
	case backend.ChangeDelete:
		e.mergeDelete(ev.Message.ID)
	default:
		log.Printf("[engine] unknown change kind: %s", ev.Kind)
	}
}

// mergeInsert, yeni bir satır imajını mirror'a ekler.
//
// İdempotenlik ilk kuraldır: ID zaten varsa event düşer. Bu tek kontrol
// iki ayrı senaryoyu birden çözer — relay'in duplicate teslimatı ve
// göndericinin kendi optimistic kaydının echo olarak geri dönmesi.
// Sıralamaya güvenilmez, SADECE ID'ye güvenilir.
func (e *Engine) mergeInsert(m models.Message) {
	if _, exists := e.messages[m.ID]; exists {
		return
	}

	e.messages[m.ID] = m
	e.noteParticipant(&m)

	// Mesajı gönderen artık yazmıyordur — göstergesi varsa söndür.
	e.clearTyping(m.AuthorID)

	if m.AuthorID == e.cfg.UserID {
		return
	}

	key := models.ConversationKey(e.cfg.UserID, &m)
	if key == "" {
		// Üçüncü tarafların DM'i — bu viewer'ın hiçbir sohbetine sayılmaz.
		return
	}

	// Attentive-viewing testi: DÖRT koşulun HEPSİ sağlanırsa mesaj anında
	// okunmuş sayılır. Tek bir koşulun düşmesi mesajı unread yapar.
	// (panel açık + liste modunda değil) ≡ faz ConversationView;
	// aktif sohbet eşleşiyor; scroll en altta.
	attentive := e.phase == PhaseConversationView && e.active == key && e.atBottom
	if attentive {
		e.propagateReceipts()
		return
	}

	e.unread[key]++
	e.notifyInsert(&m, key)
}

// mergeUpdate, mevcut bir satırın mutable alanlarını yeniler.
//
// ID mirror'da yoksa event SESSİZCE düşer — yarım bir kayıt uydurmak
// yasaktır (mesaj henüz fetch edilmemiş olabilir; bir sonraki full fetch
// onu zaten tam haliyle getirir).
//
// ReadBy özel işlem görür: düz replace yerine UNION alınır. Push
// kanalında sıra garantisi yoktur — eski bir satır imajı geç gelirse
// read-by set'i küçültemez; set monoton büyür, bu invariant'tır.
func (e *Engine) mergeUpdate(m models.Message) {
	existing, exists := e.messages[m.ID]
	if !exists {
		return
	}

	existing.Content = m.Content
	existing.EditedAt = m.EditedAt
	existing.DeletedAt = m.DeletedAt
	existing.Pinned = m.Pinned
	existing.PinnedBy = m.PinnedBy
	existing.PinnedAt = m.PinnedAt
	existing.Reactions = m.Reactions
	existing.ReadBy = unionReadBy(existing.ReadBy, m.ReadBy)

	e.messages[m.ID] = existing

	// Aktif sohbetin görünür seti değişti — dikkatle bakılıyorsa
	// receipt yayılımı yeniden koşar (membership guard'ı idempotent tutar).
	if e.phase == PhaseConversationView && e.atBottom {
		e.propagateReceipts()
	}
}

// mergeDelete, satırı mirror'dan kalıcı olarak çıkarır (hard delete).
// Soft delete buradan GEÇMEZ — o, DeletedAt damgalı bir update'tir.
// Bilinmeyen ID no-op: silinmesi istenen şey zaten yok.
func (e *Engine) mergeDelete(id string) {
	delete(e.messages, id)
}

// unionReadBy, iki read-by set'inin birleşimini eldeki sıra korunarak döner.
func unionReadBy(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, id := range existing {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range incoming {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ─── Typing topic ───

// handleTyping, ephemeral "yazıyor" sinyalini işler.
//
// Sinyaldeki conversation key göndericinin perspektifindendir: broadcast
// için herkese aynı, DM için HEDEF kullanıcının ID'si. Bu yüzden çeviri
// gerekir:
//   - key == broadcast        → bizim key'imiz de broadcast
//   - key == bizim ID'miz     → bize yazılan DM; bizim key'imiz yazarın ID'si
//   - key == başka birinin ID → başkasının DM'i, bizi ilgilendirmez (düşür)
//
// Üçüncü kural mesajlardaki ConversationKey türetmesinin typing karşılığıdır:
// relay typing'i tüm abonelere fan-out eder ama C, A'nın B'ye yazdığını görmez.
func (e *Engine) handleTyping(ev backend.TypingEvent) {
	if ev.UserID == e.cfg.UserID {
		return
	}
	e.noteName(ev.UserID, ev.Username)

	key := ev.ConversationKey
	if key != models.BroadcastKey {
		if key != e.cfg.UserID {
			return
		}
		key = ev.UserID
	}

	// Jenerasyon sayacı timer yarışını çözer: her yeni sinyal gen'i
	// artırır ve 3 saniyelik YENİ bir timer kurar. Eski timer'ın expiry
	// event'i eski gen taşır ve handleTypingExpired'da elenir — erken
	// sönme imkânsız.
	gen := e.typingGen[ev.UserID] + 1
	e.typingGen[ev.UserID] = gen
	e.typing[ev.UserID] = typingState{
		username:        ev.Username,
		conversationKey: key,
		gen:             gen,
	}

	if timer, ok := e.typingTimers[ev.UserID]; ok {
		timer.Stop()
	}
	authorID := ev.UserID
	e.typingTimers[ev.UserID] = time.AfterFunc(typingTTL, func() {
		e.post(evTypingExpired{authorID: authorID, gen: gen})
	})
}

// handleTypingExpired, süresi dolan typing göstergesini söndürür.
// Gen eşleşmiyorsa timer bayattır — gösterge o timer kurulduktan sonra
// yenilenmiştir, dokunulmaz.
func (e *Engine) handleTypingExpired(ev evTypingExpired) {
	if e.typingGen[ev.authorID] != ev.gen {
		return
	}
	e.clearTyping(ev.authorID)
}

// clearTyping, bir yazarın typing göstergesini ve timer'ını düşürür.
func (e *Engine) clearTyping(authorID string) {
	if timer, ok := e.typingTimers[authorID]; ok {
		timer.Stop()
		delete(e.typingTimers, authorID)
	}
	delete(e.typing, authorID)
}

// ─── Presence topic ───

// handlePresence, bir kullanıcının durumunu yerinde günceller.
// Bu path'ten expiry YOKTUR: offline da bir durumdur ve karşı taraf
// 30 saniyelik heartbeat ile kendini yeniler. Bilinmeyen status düşer.
func (e *Engine) handlePresence(ev backend.PresenceEvent) {
	if !ev.Status.Valid() {
		log.Printf("[engine] invalid presence status from %s: %s", ev.UserID, ev.Status)
		return
	}
	if ev.UserID == e.cfg.UserID {
		return
	}

	e.noteName(ev.UserID, ev.Username)
	e.presence[ev.UserID] = presenceState{
		username: ev.Username,
		status:   ev.Status,
	}

	// Presence roster'ında görülen herkes sohbet listesine aday olur —
	// hiç mesajlaşılmamış bir takım arkadaşına DM başlatılabilsin.
	e.addParticipant(ev.UserID)
}

// ─── Katılımcı ve isim defteri ───

// noteParticipant, bir mesajın ima ettiği DM partner'ını katılımcı
// listesine işler. Broadcast mesajları partner üretmez; üçüncü tarafların
// DM'leri (key == "") de üretmez.
func (e *Engine) noteParticipant(m *models.Message) {
	key := models.ConversationKey(e.cfg.UserID, m)
	if models.IsDirect(key) {
		e.addParticipant(key)
	}
}

// addParticipant, kullanıcıyı ilk-görülme sırası korunarak kaydeder.
// Sohbet listesinin "boş sohbetler kendi aralarında stabil" kuralı
// bu sıraya yaslanır.
func (e *Engine) addParticipant(userID string) {
	if userID == "" || userID == e.cfg.UserID || e.participantSeen[userID] {
		return
	}
	e.participantSeen[userID] = true
	e.participantOrder = append(e.participantOrder, userID)
}

// noteName, userID → görünen ad eşlemesini günceller.
// İsimler typing ve presence event'lerinden damlar; mention çözümü ve
// snapshot'taki ad gösterimi bu defteri kullanır.
func (e *Engine) noteName(userID, username string) {
	if userID == "" || username == "" {
		return
	}
	e.names[userID] = username
}

// ─── Bildirim yan etkileri ───

// notifyInsert, unread'e sayılmış bir mesajın yan etkilerini tetikler.
//
// Karar tablosu (mute her yan etkiyi bastırır; rozet sayımını ASLA):
//   - ses:      mute değil + ses açık + DND kapalı
//   - bildirim: mute değil + uygulama odakta değil
//
// Notifier çağrıları goroutine'de koşar — implementasyon bloklasa bile
// event işleme durmaz.
func (e *Engine) notifyInsert(m *models.Message, key string) {
	n := e.cfg.Notifier
	if n == nil || e.muted[key] {
		return
	}

	if e.soundOn && !e.dnd {
		go n.PlaySound()
	}

	if !e.focused {
		title := "New message in team chat"
		if models.IsDirect(key) {
			title = "Direct message from " + e.displayName(m.AuthorID)
		}
		body := truncateBody(m.Content, notifyBodyLimit)
		go n.Notify(title, body)
	}
}

// displayName, kullanıcının bilinen adını, yoksa ID'sini döner.
func (e *Engine) displayName(userID string) string {
	if name, ok := e.names[userID]; ok {
		return name
	}
	return userID
}

// truncateBody, bildirim gövdesini rune sınırında kırpar ve üç nokta ekler.
// Byte değil rune sayılır — çok byte'lı bir karakterin ortasından kesmek
// bozuk çıktı üretir.
func truncateBody(body string, limit int) string {
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return string(runes[:limit]) + "…"
}
