package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/sohbet/models"
)

func TestOpeningConversationStampsUnreadMessages(t *testing.T) {
	e, store, _ := newTestEngine(t)

	m1 := broadcastMsg("m1", "u1", "okunmamış bir", at(0))
	m1.ReadBy = []string{"u1"}
	m2 := broadcastMsg("m2", "u2", "okunmamış iki", at(1))
	own := broadcastMsg("m3", testUserID, "kendi mesajım", at(2))
	loadMirror(e, m1, m2, own)

	openConversation(e, models.BroadcastKey)

	// Lokal damga senkron basılır
	assert.True(t, e.messages["m1"].ReadByUser(testUserID))
	assert.True(t, e.messages["m2"].ReadByUser(testUserID))
	assert.ElementsMatch(t, []string{"u1", testUserID}, e.messages["m1"].ReadBy,
		"mevcut okuyucular korunur, biz eklenir")

	// Uzak yazı asenkron gider
	require.Eventually(t, func() bool {
		return len(store.updatesFor("m1")) == 1 && len(store.updatesFor("m2")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	updates := store.updatesFor("m1")
	require.NotNil(t, updates[0].ReadBy)
	assert.ElementsMatch(t, []string{"u1", testUserID}, *updates[0].ReadBy)
	assert.Nil(t, updates[0].Content, "receipt başka alana dokunmaz")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.updatesFor("m3"), "kendi mesajımıza receipt yazılmaz")
}

func TestReceiptPropagationIsIdempotent(t *testing.T) {
	e, store, _ := newTestEngine(t)
	loadMirror(e, broadcastMsg("m1", "u1", "bir kez damgalanır", at(0)))

	openConversation(e, models.BroadcastKey)
	require.Eventually(t, func() bool {
		return len(store.updatesFor("m1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Attentive an tekrar tekrar gelir: scroll, restore, yeni event...
	e.handle(evSetAtBottom{atBottom: true})
	e.handle(evSetAtBottom{atBottom: true})

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, store.updatesFor("m1"), 1,
		"damgalı mesaja ikinci receipt yazılmaz")
}

func TestReceiptsScopedToActiveConversation(t *testing.T) {
	e, store, _ := newTestEngine(t)
	loadMirror(e,
		broadcastMsg("m1", "u1", "kanal mesajı", at(0)),
		dmMsg("m2", "u2", testUserID, "başka sohbetin DM'i", at(1)),
	)

	openConversation(e, models.BroadcastKey)

	require.Eventually(t, func() bool {
		return len(store.updatesFor("m1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, e.messages["m2"].ReadByUser(testUserID),
		"membership guard: aktif olmayan sohbetin mesajı damgalanmaz")
	assert.Empty(t, store.updatesFor("m2"))
}

func TestReceiptFailureKeepsLocalStamp(t *testing.T) {
	e, store, _ := newTestEngine(t)
	store.mu.Lock()
	store.updateErr = assert.AnError
	store.mu.Unlock()
	loadMirror(e, broadcastMsg("m1", "u1", "uzağa yazılamadı", at(0)))

	openConversation(e, models.BroadcastKey)

	time.Sleep(100 * time.Millisecond)
	assert.True(t, e.messages["m1"].ReadByUser(testUserID),
		"receipt fire-and-forget'tır: uzak hata lokal damgayı geri almaz")
	assert.Empty(t, e.lastError, "receipt hatası kullanıcıya gösterilmez")
}

func TestNoReceiptsOutsideConversationView(t *testing.T) {
	e, store, _ := newTestEngine(t)
	loadMirror(e, broadcastMsg("m1", "u1", "görülmedi", at(0)))
	e.handle(evOpenPanel{})

	// Liste görünümündeyken attentive an yoktur
	e.propagateReceipts()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, e.messages["m1"].ReadByUser(testUserID))
	assert.Empty(t, store.appliedUpdates())
}

func TestLateInsertWhileAttentiveGetsStamped(t *testing.T) {
	e, store, _ := newTestEngine(t)
	openConversation(e, models.BroadcastKey)

	insertFrom(e, broadcastMsg("m1", "u1", "bakarken geldi", at(0)))

	assert.True(t, e.messages["m1"].ReadByUser(testUserID),
		"attentive izlerken gelen mesaj anında damgalanır")
	require.Eventually(t, func() bool {
		return len(store.updatesFor("m1")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
