package engine

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/akinalp/sohbet/backend"
	"github.com/akinalp/sohbet/models"
)

// Bu dosya optimistic mutation katmanıdır. Ortak desen:
//
//  1. Doğrula — geçersiz istek lokal state'e hiç dokunmaz.
//  2. Lokal uygula — mirror anında değişir, UI bekletilmez.
//  3. Revert closure'ı pending'e koy — SADECE değiştirilen alanları
//     geri alır (cerrahî revert: araya giren başka güncellemeler ezilmez).
//  4. Uzak yazıyı goroutine'de başlat — sonuç evWriteDone olarak döner.
//
// Başarılı yazının satır imajı relay'den echo olarak gelir ve merge
// katmanı ID dedup'u / union sayesinde absorbe eder. Başarısız yazıda
// handleWriteDone revert'ü koşar ve hatayı kullanıcıya gösterir.

const (
	// replySnippetLimit: Yanıt referansına kopyalanan içerik parçasının
	// maksimum rune sayısı.
	replySnippetLimit = 100

	// taskTitleLimit: Mesajdan türetilen görev başlığının maksimum rune sayısı.
	taskTitleLimit = 100
)

// ─── Gönderme ───

// handleSend, compose içeriğini aktif sohbete gönderir.
//
// Mesaj ID'si BURADA üretilir (UUID) — remote'a yazılmadan önce mirror'a
// girer, echo döndüğünde aynı ID sayesinde duplicate oluşmaz.
func (e *Engine) handleSend(ev evSend) {
	if e.phase != PhaseConversationView || e.active == "" {
		return
	}

	req := models.SendMessageRequest{Content: ev.content}
	if models.IsDirect(e.active) {
		recipient := e.active
		req.RecipientID = &recipient
	}
	if err := req.Validate(); err != nil {
		e.lastError = err.Error()
		return
	}

	m := models.Message{
		ID:        uuid.NewString(),
		AuthorID:  e.cfg.UserID,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
		Mentions:  e.parseMentions(req.Content),
		ReadBy:    []string{e.cfg.UserID}, // yazar kendi mesajını okumuştur
	}
	if req.RecipientID != nil {
		recipient := *req.RecipientID
		m.RecipientID = &recipient
	}

	if ev.replyToID != "" {
		if ref, ok := e.replyRefFor(ev.replyToID); ok {
			m.ReplyRefs = []models.ReplyRef{ref}
		} else {
			log.Printf("[engine] reply target %s not in mirror, sending without ref", ev.replyToID)
		}
	}

	// Optimistic insert + compose temizliği. stashDraft boş compose'u
	// görüp taslağı da siler — gönderilen metin taslak olarak kalmaz.
	e.messages[m.ID] = m
	e.noteParticipant(&m)
	prevCompose := ev.content
	key := e.active
	e.compose = ""
	e.stashDraft()

	e.pending[m.ID] = func() {
		delete(e.messages, m.ID)
		e.restoreCompose(key, prevCompose)
	}

	e.startWrite(m.ID, func(ctx context.Context) error {
		return e.cfg.Store.InsertMessage(ctx, m)
	})
}

// replyRefFor, yanıtlanan mesajın gönderim anındaki snapshot'ını üretir.
// Parent soft-delete edilmişse snippet boş kalır — tombstone'un içeriği
// kopyalanmaz.
func (e *Engine) replyRefFor(id string) (models.ReplyRef, bool) {
	parent, ok := e.messages[id]
	if !ok {
		return models.ReplyRef{}, false
	}

	ref := models.ReplyRef{
		MessageID: parent.ID,
		AuthorID:  parent.AuthorID,
	}
	if !parent.IsDeleted() {
		ref.Snippet = truncateBody(parent.Content, replySnippetLimit)
	}
	return ref, true
}

// ─── Düzenleme ───

// handleEdit, kendi mesajımızın içeriğini değiştirir.
// Başkasının mesajı veya tombstone düzenlenemez.
func (e *Engine) handleEdit(ev evEdit) {
	m, ok := e.messages[ev.id]
	if !ok {
		return
	}
	if m.AuthorID != e.cfg.UserID {
		log.Printf("[engine] refusing to edit foreign message %s", ev.id)
		return
	}
	if m.IsDeleted() {
		return
	}

	req := models.UpdateMessageRequest{Content: ev.content}
	if err := req.Validate(); err != nil {
		e.lastError = err.Error()
		return
	}

	prevContent, prevEditedAt := m.Content, m.EditedAt
	now := time.Now().UTC()
	m.Content = req.Content
	m.EditedAt = &now
	e.messages[ev.id] = m

	id := ev.id
	key := models.ConversationKey(e.cfg.UserID, &m)
	attempted := ev.content
	opID := uuid.NewString()

	e.pending[opID] = func() {
		if cur, ok := e.messages[id]; ok {
			cur.Content = prevContent
			cur.EditedAt = prevEditedAt
			e.messages[id] = cur
		}
		e.restoreCompose(key, attempted)
	}

	content := req.Content
	e.startWrite(opID, func(ctx context.Context) error {
		_, err := e.cfg.Store.UpdateMessage(ctx, id, backend.MessageUpdate{
			Content:  &content,
			EditedAt: &now,
		})
		return err
	})
}

// ─── Soft delete ───

// handleSoftDelete, kendi mesajımızı tombstone'a çevirir.
// Satır mirror'dan ÇIKMAZ — DeletedAt damgalanır, içerik UI'da gizlenir.
func (e *Engine) handleSoftDelete(ev evSoftDelete) {
	m, ok := e.messages[ev.id]
	if !ok {
		return
	}
	if m.AuthorID != e.cfg.UserID {
		log.Printf("[engine] refusing to delete foreign message %s", ev.id)
		return
	}
	if m.IsDeleted() {
		return
	}

	now := time.Now().UTC()
	m.DeletedAt = &now
	e.messages[ev.id] = m

	id := ev.id
	opID := uuid.NewString()
	e.pending[opID] = func() {
		if cur, ok := e.messages[id]; ok {
			cur.DeletedAt = nil
			e.messages[id] = cur
		}
	}

	e.startWrite(opID, func(ctx context.Context) error {
		_, err := e.cfg.Store.UpdateMessage(ctx, id, backend.MessageUpdate{
			DeletedAt: &now,
		})
		return err
	})
}

// ─── Reaction ───

// handleReact, mesaja emoji reaction toggle'lar.
// Toggle semantiği ToggleReaction'dadır: aynı emoji → kaldır, farklı
// emoji → değiştir, hiç yok → ekle. Kullanıcı başına en fazla bir reaction.
func (e *Engine) handleReact(ev evReact) {
	m, ok := e.messages[ev.id]
	if !ok || m.IsDeleted() {
		return
	}
	if ev.emoji == "" {
		return
	}

	prev := m.Reactions
	m.Reactions = models.ToggleReaction(m.Reactions, e.cfg.UserID, ev.emoji, time.Now().UTC())
	e.messages[ev.id] = m

	id := ev.id
	opID := uuid.NewString()
	e.pending[opID] = func() {
		if cur, ok := e.messages[id]; ok {
			cur.Reactions = prev
			e.messages[id] = cur
		}
	}

	reactions := m.Reactions
	e.startWrite(opID, func(ctx context.Context) error {
		_, err := e.cfg.Store.UpdateMessage(ctx, id, backend.MessageUpdate{
			Reactions: &reactions,
		})
		return err
	})
}

// ─── Pin ───

// handleTogglePin, mesajı sabitler veya sabitlemeyi kaldırır.
// Sahiplik aranmaz — herkes her mesajı pinleyebilir, PinnedBy kimin
// pinlediğini zaten söyler. Tombstone pinlenemez.
func (e *Engine) handleTogglePin(ev evTogglePin) {
	m, ok := e.messages[ev.id]
	if !ok || m.IsDeleted() {
		return
	}

	prevPinned, prevBy, prevAt := m.Pinned, m.PinnedBy, m.PinnedAt

	var pin backend.PinUpdate
	if m.Pinned {
		m.Pinned = false
		m.PinnedBy = nil
		m.PinnedAt = nil
		pin = backend.PinUpdate{Pinned: false}
	} else {
		now := time.Now().UTC()
		by := e.cfg.UserID
		m.Pinned = true
		m.PinnedBy = &by
		m.PinnedAt = &now
		pin = backend.PinUpdate{Pinned: true, By: by, At: now}
	}
	e.messages[ev.id] = m

	id := ev.id
	opID := uuid.NewString()
	e.pending[opID] = func() {
		if cur, ok := e.messages[id]; ok {
			cur.Pinned = prevPinned
			cur.PinnedBy = prevBy
			cur.PinnedAt = prevAt
			e.messages[id] = cur
		}
	}

	e.startWrite(opID, func(ctx context.Context) error {
		_, err := e.cfg.Store.UpdateMessage(ctx, id, backend.MessageUpdate{Pin: &pin})
		return err
	})
}

// ─── Görevleştirme ───

// handleCreateTask, mesajdan bir görev taslağı türetip callback'e verir.
//
// Başlık içeriğin ilk satırından kırpılır. Önerilen atanan: mesajda
// mention varsa ilki, yoksa mesajın yazarı. Engine görev SAKLAMAZ —
// kalıcılaştırma OnCreateTask sahibinin işidir.
func (e *Engine) handleCreateTask(ev evCreateTask) {
	m, ok := e.messages[ev.id]
	if !ok || m.IsDeleted() {
		return
	}

	cb := e.cfg.OnCreateTask
	if cb == nil {
		log.Println("[engine] task creation requested but no handler configured")
		return
	}

	title := m.Content
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = truncateBody(strings.TrimSpace(title), taskTitleLimit)

	assignee := m.AuthorID
	if len(m.Mentions) > 0 {
		assignee = m.Mentions[0]
	}

	draft := models.TaskDraft{
		Title:               title,
		SuggestedAssigneeID: assignee,
		SourceMessageID:     m.ID,
		CreatedBy:           e.cfg.UserID,
	}
	go cb(draft)
}

// ─── Tercihler ───

// handleToggleMute, sohbetin sessize alma durumunu çevirir.
// Mute SADECE ses ve bildirim yan etkilerini bastırır — unread rozeti
// saymaya devam eder.
func (e *Engine) handleToggleMute(key string) {
	if key == "" {
		return
	}

	muted := !e.muted[key]
	if muted {
		e.muted[key] = true
	} else {
		delete(e.muted, key)
	}

	if p := e.cfg.Prefs; p != nil {
		persistPref("mute state", func() error { return p.SetMuted(key, muted) })
	}
}

func (e *Engine) handleSetDND(on bool) {
	e.dnd = on
	if p := e.cfg.Prefs; p != nil {
		persistPref("DND pref", func() error { return p.SetDoNotDisturb(on) })
	}
}

func (e *Engine) handleSetSound(on bool) {
	e.soundOn = on
	if p := e.cfg.Prefs; p != nil {
		persistPref("sound pref", func() error { return p.SetSoundEnabled(on) })
	}
}

// ─── Yazı sonuçları ───

// handleWriteDone, bir uzak yazının sonucunu işler.
//
// Başarı: revert closure sessizce düşer — lokal optimistic hal zaten
// doğruydu, echo gelince merge absorbe eder.
// Hata: revert koşar, hata kullanıcıya gösterilir. Revert cerrahîdir —
// yazı uçuştayken mirror'a karışan BAŞKA değişiklikler korunur.
func (e *Engine) handleWriteDone(ev evWriteDone) {
	revert, ok := e.pending[ev.opID]
	if !ok {
		return
	}
	delete(e.pending, ev.opID)

	if ev.err == nil {
		return
	}

	revert()
	e.lastError = ev.err.Error()
	log.Printf("[engine] write %s failed, rolled back: %v", ev.opID, ev.err)
}

// ─── Yardımcılar ───

// startWrite, optimistic bir yazının uzak bacağını başlatır.
// Sonuç handleWriteDone'a evWriteDone olarak döner.
func (e *Engine) startWrite(opID string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		e.post(evWriteDone{opID: opID, err: fn(ctx)})
	}()
}

// restoreCompose, başarısız bir yazının metnini kullanıcıya geri verir.
// Sohbet hâlâ aktifse ve kullanıcı yeni bir şey yazmamışsa compose'a;
// değilse (başka sohbete geçilmiş ya da yazılmaya başlanmış) taslağa.
// Her iki durumda da kullanıcının ELDEKİ metni asla ezilmez.
func (e *Engine) restoreCompose(key, text string) {
	if text == "" {
		return
	}

	if e.active == key && e.compose == "" {
		e.compose = text
		return
	}

	if e.drafts[key] != "" {
		return
	}
	e.drafts[key] = text
	if p := e.cfg.Prefs; p != nil {
		persistPref("draft", func() error { return p.SetDraft(key, text) })
	}
}

// maybeSendTyping, kendi typing sinyalimizi throttle'layarak yayınlar.
//
// Wire'daki conversation key aktif sohbetin key'idir: broadcast için
// "broadcast", DM için partner'ın kullanıcı ID'si. Karşı taraf bu key'i
// kendi perspektifine çevirir (kendi ID'sini görürse bizim ID'mize mapler).
func (e *Engine) maybeSendTyping() {
	rt := e.cfg.Realtime
	if rt == nil || e.phase != PhaseConversationView || e.active == "" {
		return
	}
	if time.Since(e.lastTypingSent) < typingThrottle {
		return
	}
	e.lastTypingSent = time.Now()

	key := e.active
	go func() {
		if err := rt.SendTyping(key); err != nil {
			log.Printf("[engine] typing broadcast failed: %v", err)
		}
	}()
}

// parseMentions, içerikteki @name token'larını bilinen kullanıcılara çözer.
//
// Eşleşme isim defterine (names) karşı case-insensitive yapılır;
// çözülemeyen token'lar sessizce düşer — düz metin olarak kalırlar.
// Sonuç ilk-geçiş sırasında ve tekrarsızdır.
func (e *Engine) parseMentions(content string) []string {
	if !strings.Contains(content, "@") {
		return nil
	}

	byName := make(map[string]string, len(e.names))
	for id, name := range e.names {
		byName[strings.ToLower(name)] = id
	}

	var (
		mentions []string
		seen     = make(map[string]bool)
	)
	for _, token := range strings.Fields(content) {
		if !strings.HasPrefix(token, "@") || len(token) < 2 {
			continue
		}
		name := strings.TrimRightFunc(token[1:], func(r rune) bool {
			return !isNameRune(r)
		})
		id, ok := byName[strings.ToLower(name)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		mentions = append(mentions, id)
	}
	return mentions
}

// isNameRune, kullanıcı adında geçebilecek karakterleri tanımlar.
func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
}

// persistPref, bir tercih yazısını arka planda koşturur; hata sadece loglanır.
func persistPref(what string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			log.Printf("[engine] failed to persist %s: %v", what, err)
		}
	}()
}
