package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/sohbet/models"
)

// ─── Send ───

func TestSendOptimisticThenConfirmed(t *testing.T) {
	e, store, _ := newTestEngine(t)
	openConversation(e, models.BroadcastKey)
	e.handle(evSetCompose{text: "selam ekip"})

	e.handle(evSend{content: "selam ekip"})

	// Optimistic: yazı daha dönmeden mesaj mirror'da, compose boş
	require.Len(t, e.messages, 1)
	assert.Empty(t, e.compose)
	assert.Len(t, e.pending, 1, "in-flight yazının revert closure'ı beklemede")

	wd := pumpWriteDone(t, e)
	require.NoError(t, wd.err)

	assert.Empty(t, e.pending, "başarılı yazı pending'den düşer")
	sent := store.insertedMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "selam ekip", sent[0].Content)
	assert.Equal(t, testUserID, sent[0].AuthorID)
	assert.Nil(t, sent[0].RecipientID, "broadcast mesajında recipient yok")
	assert.NotEmpty(t, sent[0].ID, "ID client tarafında üretilir")
	assert.Equal(t, []string{testUserID}, sent[0].ReadBy, "yazar kendi mesajını okumuştur")
}

func TestSendFailureRollsBackAndRestoresCompose(t *testing.T) {
	e, store, _ := newTestEngine(t)
	store.mu.Lock()
	store.insertErr = assert.AnError
	store.mu.Unlock()
	openConversation(e, models.BroadcastKey)

	e.handle(evSend{content: "gidemeyecek mesaj"})
	require.Len(t, e.messages, 1)

	pumpWriteDone(t, e)

	assert.Empty(t, e.messages, "başarısız insert mirror'dan geri alınır")
	assert.Equal(t, "gidemeyecek mesaj", e.compose, "compose metni kurtarılır")
	assert.Equal(t, assert.AnError.Error(), e.lastError)
}

func TestSendFailureDoesNotClobberNewCompose(t *testing.T) {
	e, store, _ := newTestEngine(t)
	store.mu.Lock()
	store.insertErr = assert.AnError
	store.mu.Unlock()
	openConversation(e, models.BroadcastKey)

	e.handle(evSend{content: "ilk deneme"})
	// Yazı uçuştayken kullanıcı yeni bir şey yazmaya başladı
	e.handle(evSetCompose{text: "ikinci mesaj taslağı"})

	pumpWriteDone(t, e)

	assert.Equal(t, "ikinci mesaj taslağı", e.compose,
		"eldeki metin asla ezilmez")
	assert.Equal(t, "ilk deneme", e.drafts[models.BroadcastKey],
		"kurtarılan metin taslağa düşer")
}

func TestSendValidationRejected(t *testing.T) {
	e, store, _ := newTestEngine(t)
	openConversation(e, models.BroadcastKey)

	e.handle(evSend{content: "   "})

	assert.Empty(t, e.messages, "boş içerik lokal state'e dokunmaz")
	assert.Empty(t, e.pending)
	assert.NotEmpty(t, e.lastError)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.insertedMessages(), "geçersiz istek remote'a hiç gitmez")
}

func TestSendRejectsOverlongContent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	openConversation(e, models.BroadcastKey)

	e.handle(evSend{content: strings.Repeat("a", 2001)})

	assert.Empty(t, e.messages)
	assert.Contains(t, e.lastError, "2000")
}

func TestSendIgnoredOutsideConversation(t *testing.T) {
	e, store, _ := newTestEngine(t)
	e.handle(evOpenPanel{})

	e.handle(evSend{content: "nereye gidecek ki"})

	assert.Empty(t, e.messages)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.insertedMessages())
}

func TestSendDMCarriesRecipient(t *testing.T) {
	e, store, _ := newTestEngine(t)
	openConversation(e, "u1")

	e.handle(evSend{content: "özelden selam"})
	pumpWriteDone(t, e)

	sent := store.insertedMessages()
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].RecipientID)
	assert.Equal(t, "u1", *sent[0].RecipientID)
}

func TestSendClearsDraft(t *testing.T) {
	e, _, _ := newTestEngine(t)
	prefs := e.cfg.Prefs.(*memPrefs)
	require.NoError(t, prefs.SetDraft("u1", "eski taslak"))

	e2, _, _ := newTestEngine(t, func(cfg *Config) { cfg.Prefs = prefs })
	openConversation(e2, "u1")
	require.Equal(t, "eski taslak", e2.compose)

	e2.handle(evSend{content: e2.compose})
	pumpWriteDone(t, e2)

	assert.Empty(t, e2.drafts["u1"], "gönderilen metin taslak olarak kalmaz")
	require.Eventually(t, func() bool {
		return prefs.draftOf("u1") == ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendReplyRefSnapshot(t *testing.T) {
	e, store, _ := newTestEngine(t)
	longContent := strings.Repeat("uzun içerik ", 20) // 240 karakter
	loadMirror(e, broadcastMsg("parent", "u1", longContent, at(0)))
	openConversation(e, models.BroadcastKey)

	e.handle(evSend{content: "katılıyorum", replyToID: "parent"})
	pumpWriteDone(t, e)

	sent := store.insertedMessages()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].ReplyRefs, 1)

	ref := sent[0].ReplyRefs[0]
	assert.Equal(t, "parent", ref.MessageID)
	assert.Equal(t, "u1", ref.AuthorID)
	assert.LessOrEqual(t, len([]rune(ref.Snippet)), replySnippetLimit+1,
		"snippet rune sınırında kırpılır")
	assert.True(t, strings.HasPrefix(ref.Snippet, "uzun içerik"))
}

func TestReplyToTombstoneHasEmptySnippet(t *testing.T) {
	e, store, _ := newTestEngine(t)
	parent := broadcastMsg("parent", "u1", "silinecek içerik", at(0))
	delTime := at(1)
	parent.DeletedAt = &delTime
	loadMirror(e, parent)
	openConversation(e, models.BroadcastKey)

	e.handle(evSend{content: "geç kalmış yanıt", replyToID: "parent"})
	pumpWriteDone(t, e)

	sent := store.insertedMessages()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].ReplyRefs, 1)
	assert.Empty(t, sent[0].ReplyRefs[0].Snippet, "tombstone içeriği snapshot'a kopyalanmaz")
}

func TestSendResolvesMentions(t *testing.T) {
	e, store, _ := newTestEngine(t)
	// İsim defterini doldur
	e.handle(evPresence{presence: presenceSignal("u1", "Ayşe", models.PresenceOnline)})
	e.handle(evPresence{presence: presenceSignal("u2", "bora", models.PresenceOnline)})
	openConversation(e, models.BroadcastKey)

	e.handle(evSend{content: "@ayşe ve @Bora, raporu @ayşe görsün; @hayalet tanınmaz"})
	pumpWriteDone(t, e)

	sent := store.insertedMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"u1", "u2"}, sent[0].Mentions,
		"case-insensitive eşleşme, ilk geçiş sırası, tekrarsız; bilinmeyen adlar düşer")
}

// ─── Edit ───

func TestEditOptimisticThenConfirmed(t *testing.T) {
	e, store, _ := newTestEngine(t)
	loadMirror(e, broadcastMsg("m1", testUserID, "ilk hali", at(0)))

	e.handle(evEdit{id: "m1", content: "düzeltilmiş hali"})

	got := e.messages["m1"]
	assert.Equal(t, "düzeltilmiş hali", got.Content)
	require.NotNil(t, got.EditedAt, "düzenleme damgası optimistic aşamada basılır")

	wd := pumpWriteDone(t, e)
	require.NoError(t, wd.err)

	updates := store.updatesFor("m1")
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Content)
	assert.Equal(t, "düzeltilmiş hali", *updates[0].Content)
	require.NotNil(t, updates[0].EditedAt)
	assert.Nil(t, updates[0].DeletedAt, "edit başka alana dokunmaz")
}

func TestEditFailureRestoresOriginal(t *testing.T) {
	e, store, _ := newTestEngine(t)
	store.mu.Lock()
	store.updateErr = assert.AnError
	store.mu.Unlock()
	loadMirror(e, broadcastMsg("m1", testUserID, "orijinal", at(0)))
	openConversation(e, models.BroadcastKey)

	e.handle(evEdit{id: "m1", content: "tutmayacak düzenleme"})
	pumpWriteDone(t, e)

	got := e.messages["m1"]
	assert.Equal(t, "orijinal", got.Content)
	assert.Nil(t, got.EditedAt, "rollback düzenleme damgasını da geri alır")
	assert.Equal(t, "tutmayacak düzenleme", e.compose,
		"denenen metin kullanıcıya geri verilir")
}

func TestEditForeignMessageRefused(t *testing.T) {
	e, store, _ := newTestEngine(t)
	loadMirror(e, broadcastMsg("m1", "u1", "başkasının sözü", at(0)))

	e.handle(evEdit{id: "m1", content: "sansür denemesi"})

	assert.Equal(t, "başkasının sözü", e.messages["m1"].Content)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.appliedUpdates())
}

func TestEditTombstoneRefused(t *testing.T) {
	e, _, _ := newTestEngine(t)
	m := broadcastMsg("m1", testUserID, "silindi", at(0))
	delTime := at(1)
	m.DeletedAt = &delTime
	loadMirror(e, m)

	e.handle(evEdit{id: "m1", content: "diriltme denemesi"})

	assert.Equal(t, "silindi", e.messages["m1"].Content)
	assert.Empty(t, e.pending)
}

// ─── Soft delete ───

func TestSoftDeleteOptimisticThenConfirmed(t *testing.T) {
	e, store, _ := newTestEngine(t)
	loadMirror(e, broadcastMsg("m1", testUserID, "gidiyor", at(0)))

	e.handle(evSoftDelete{id: "m1"})

	assert.True(t, e.messages["m1"].IsDeleted(), "tombstone optimistic basılır")
	assert.Len(t, e.messages, 1, "soft delete satırı mirror'dan çıkarmaz")

	pumpWriteDone(t, e)

	updates := store.updatesFor("m1")
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].DeletedAt)
	assert.Nil(t, updates[0].Content)
}

func TestSoftDeleteFailureRestores(t *testing.T) {
	e, store, _ := newTestEngine(t)
	store.mu.Lock()
	store.updateErr = assert.AnError
	store.mu.Unlock()
	loadMirror(e, broadcastMsg("m1", testUserID, "kalacak", at(0)))

	e.handle(evSoftDelete{id: "m1"})
	pumpWriteDone(t, e)

	assert.False(t, e.messages["m1"].IsDeleted(), "başarısız silme geri alınır")
}

func TestSoftDeleteForeignRefused(t *testing.T) {
	e, store, _ := newTestEngine(t)
	loadMirror(e, broadcastMsg("m1", "u1", "dokunulmaz", at(0)))

	e.handle(evSoftDelete{id: "m1"})

	assert.False(t, e.messages["m1"].IsDeleted())
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.appliedUpdates())
}

// ─── Reaction ───

func TestReactionToggleCycle(t *testing.T) {
	e, _, _ := newTestEngine(t)
	loadMirror(e, broadcastMsg("m1", "u1", "tepki ver", at(0)))

	// Ekle
	e.handle(evReact{id: "m1", emoji: "👍"})
	pumpWriteDone(t, e)
	require.Len(t, e.messages["m1"].Reactions, 1)
	assert.Equal(t, "👍", e.messages["m1"].Reactions[0].Emoji)

	// Farklı emoji → değiştir (kullanıcı başına tek reaction)
	e.handle(evReact{id: "m1", emoji: "❤️"})
	pumpWriteDone(t, e)
	require.Len(t, e.messages["m1"].Reactions, 1)
	assert.Equal(t, "❤️", e.messages["m1"].Reactions[0].Emoji)

	// Aynı emoji → kaldır
	e.handle(evReact{id: "m1", emoji: "❤️"})
	pumpWriteDone(t, e)
	assert.Empty(t, e.messages["m1"].Reactions, "çift toggle başlangıç durumuna döner")
}

func TestReactionFailureRestores(t *testing.T) {
	e, store, _ := newTestEngine(t)
	m := broadcastMsg("m1", "u1", "tepkili", at(0))
	m.Reactions = []models.Reaction{{UserID: "u2", Emoji: "🎉", CreatedAt: at(1)}}
	loadMirror(e, m)
	store.mu.Lock()
	store.updateErr = assert.AnError
	store.mu.Unlock()

	e.handle(evReact{id: "m1", emoji: "👍"})
	require.Len(t, e.messages["m1"].Reactions, 2, "optimistic ekleme görünür")

	pumpWriteDone(t, e)

	got := e.messages["m1"].Reactions
	require.Len(t, got, 1, "rollback bizim reaction'ı söker, başkasınınkine dokunmaz")
	assert.Equal(t, "u2", got[0].UserID)
}

func TestReactionOnTombstoneRefused(t *testing.T) {
	e, _, _ := newTestEngine(t)
	m := broadcastMsg("m1", "u1", "silindi", at(0))
	delTime := at(1)
	m.DeletedAt = &delTime
	loadMirror(e, m)

	e.handle(evReact{id: "m1", emoji: "👍"})

	assert.Empty(t, e.messages["m1"].Reactions)
	assert.Empty(t, e.pending)
}

// ─── Pin ───

func TestTogglePinSetsAndClears(t *testing.T) {
	e, store, _ := newTestEngine(t)
	loadMirror(e, broadcastMsg("m1", "u1", "önemli karar", at(0)))

	// Herkes pinleyebilir — sahiplik aranmaz
	e.handle(evTogglePin{id: "m1"})
	pumpWriteDone(t, e)

	got := e.messages["m1"]
	assert.True(t, got.Pinned)
	require.NotNil(t, got.PinnedBy)
	assert.Equal(t, testUserID, *got.PinnedBy)
	require.NotNil(t, got.PinnedAt)

	updates := store.updatesFor("m1")
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Pin)
	assert.True(t, updates[0].Pin.Pinned)
	assert.Equal(t, testUserID, updates[0].Pin.By)

	// İkinci toggle kaldırır
	e.handle(evTogglePin{id: "m1"})
	pumpWriteDone(t, e)

	got = e.messages["m1"]
	assert.False(t, got.Pinned)
	assert.Nil(t, got.PinnedBy)
	assert.Nil(t, got.PinnedAt)
}

func TestTogglePinFailureRestores(t *testing.T) {
	e, store, _ := newTestEngine(t)
	store.mu.Lock()
	store.updateErr = assert.AnError
	store.mu.Unlock()
	loadMirror(e, broadcastMsg("m1", "u1", "pinlenemedi", at(0)))

	e.handle(evTogglePin{id: "m1"})
	pumpWriteDone(t, e)

	assert.False(t, e.messages["m1"].Pinned)
	assert.Nil(t, e.messages["m1"].PinnedBy)
}

// ─── Görevleştirme ───

func TestCreateTaskDraftFromMessage(t *testing.T) {
	got := make(chan models.TaskDraft, 1)
	e, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.OnCreateTask = func(d models.TaskDraft) { got <- d }
	})

	m := broadcastMsg("m1", "u1", "Deploy'u yarına alalım\nDetaylar thread'de", at(0))
	m.Mentions = []string{"u2", "u3"}
	loadMirror(e, m)

	e.handle(evCreateTask{id: "m1"})

	select {
	case draft := <-got:
		assert.Equal(t, "Deploy'u yarına alalım", draft.Title, "başlık ilk satırdan gelir")
		assert.Equal(t, "u2", draft.SuggestedAssigneeID, "ilk mention önerilen atanandır")
		assert.Equal(t, "m1", draft.SourceMessageID)
		assert.Equal(t, testUserID, draft.CreatedBy)
	case <-time.After(2 * time.Second):
		t.Fatal("görev taslağı callback'e ulaşmadı")
	}
}

func TestCreateTaskAssigneeFallsBackToAuthor(t *testing.T) {
	got := make(chan models.TaskDraft, 1)
	e, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.OnCreateTask = func(d models.TaskDraft) { got <- d }
	})
	loadMirror(e, broadcastMsg("m1", "u1", "mention'sız iş", at(0)))

	e.handle(evCreateTask{id: "m1"})

	select {
	case draft := <-got:
		assert.Equal(t, "u1", draft.SuggestedAssigneeID, "mention yoksa yazar önerilir")
	case <-time.After(2 * time.Second):
		t.Fatal("görev taslağı callback'e ulaşmadı")
	}
}

func TestCreateTaskFromTombstoneRefused(t *testing.T) {
	called := make(chan struct{}, 1)
	e, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.OnCreateTask = func(models.TaskDraft) { called <- struct{}{} }
	})
	m := broadcastMsg("m1", "u1", "silinmiş iş", at(0))
	delTime := at(1)
	m.DeletedAt = &delTime
	loadMirror(e, m)

	e.handle(evCreateTask{id: "m1"})

	select {
	case <-called:
		t.Fatal("tombstone'dan görev türetilemez")
	case <-time.After(50 * time.Millisecond):
	}
}

// ─── Yazı sonuçları ───

func TestWriteDoneForUnknownOpIgnored(t *testing.T) {
	e, _, _ := newTestEngine(t)
	loadMirror(e, broadcastMsg("m1", testUserID, "sabit", at(0)))

	// Tanınmayan opID — state'e dokunmamalı, panic olmamalı
	e.handle(evWriteDone{opID: "hayalet-op", err: assert.AnError})

	assert.Equal(t, "sabit", e.messages["m1"].Content)
	assert.Empty(t, e.lastError, "bilinmeyen op hata raporlamaz")
}
