package backend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/sohbet/models"
	"github.com/akinalp/sohbet/relay"
)

// newTestRelay, gerçek bir relay server'ı httptest üzerinde ayağa kaldırır.
// Backend'in realtime implementasyonu bu server'a gerçek WebSocket ile bağlanır —
// iki taraf birlikte test edilir.
func newTestRelay(t *testing.T) string {
	t.Helper()

	hub := relay.NewHub()
	go hub.Run()

	handler := relay.NewHandler(hub, []string{"*"})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.HandleConnection)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Shutdown()
		server.Close()
	})

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// connectAndSubscribe, bağlanır, callback'leri kaydeder ve ready bekler.
func connectAndSubscribe(t *testing.T, url, userID string) (Realtime, chan ChangeEvent, chan TypingEvent, chan PresenceEvent) {
	t.Helper()

	rt, err := ConnectRealtime(url, userID, userID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	changes := make(chan ChangeEvent, 16)
	typings := make(chan TypingEvent, 16)
	presences := make(chan PresenceEvent, 16)
	ready := make(chan bool, 1)

	rt.OnChange(func(ev ChangeEvent) { changes <- ev })
	rt.OnTyping(func(ev TypingEvent) { typings <- ev })
	rt.OnPresence(func(ev PresenceEvent) { presences <- ev })
	rt.OnStatus(func(connected bool) {
		if connected {
			select {
			case ready <- true:
			default:
			}
		}
	})

	require.NoError(t, rt.Subscribe())

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatalf("user %s ready beklerken timeout", userID)
	}

	return rt, changes, typings, presences
}

func TestPublishedRowImageReachesAllSubscribersIncludingSender(t *testing.T) {
	url := newTestRelay(t)

	alice, aliceChanges, _, _ := connectAndSubscribe(t, url, "alice")
	_, bobChanges, _, _ := connectAndSubscribe(t, url, "bob")

	msg := models.Message{ID: "m1", AuthorID: "alice", Content: "merhaba"}
	require.NoError(t, alice.Publish(relay.OpMessageInsert, msg))

	// Bob satır imajını almalı
	select {
	case ev := <-bobChanges:
		assert.Equal(t, ChangeInsert, ev.Kind)
		assert.Equal(t, "m1", ev.Message.ID)
		assert.Equal(t, "merhaba", ev.Message.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("bob insert event'ini alamadı")
	}

	// Gönderen de kendi echo'sunu almalı (idempotent merge absorbe edecek)
	select {
	case ev := <-aliceChanges:
		assert.Equal(t, ChangeInsert, ev.Kind)
		assert.Equal(t, "m1", ev.Message.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("alice kendi echo'sunu alamadı")
	}
}

func TestTypingIdentityStampedFromConnection(t *testing.T) {
	url := newTestRelay(t)

	alice, _, aliceTypings, _ := connectAndSubscribe(t, url, "alice")
	_, _, bobTypings, _ := connectAndSubscribe(t, url, "bob")

	require.NoError(t, alice.SendTyping("broadcast"))

	select {
	case ev := <-bobTypings:
		assert.Equal(t, "alice", ev.UserID, "kimlik bağlantıdan damgalanmalı")
		assert.Equal(t, "broadcast", ev.ConversationKey)
	case <-time.After(2 * time.Second):
		t.Fatal("bob typing event'ini alamadı")
	}

	// Gönderen kendi typing'ini almamalı
	select {
	case <-aliceTypings:
		t.Fatal("alice kendi typing event'ini aldı")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPresenceRosterReplayedToLateSubscriber(t *testing.T) {
	url := newTestRelay(t)

	alice, _, _, _ := connectAndSubscribe(t, url, "alice")
	require.NoError(t, alice.SendPresence(models.PresenceIdle))

	// Relay'in presence'ı cache'lemesine fırsat ver
	time.Sleep(100 * time.Millisecond)

	// Bob sonradan katılıyor — roster replay ile alice'in durumunu görmeli
	_, _, _, bobPresences := connectAndSubscribe(t, url, "bob")

	select {
	case ev := <-bobPresences:
		assert.Equal(t, "alice", ev.UserID)
		assert.Equal(t, models.PresenceIdle, ev.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("bob roster replay'i alamadı")
	}
}

func TestPresenceChangeBroadcastToOthers(t *testing.T) {
	url := newTestRelay(t)

	alice, _, _, _ := connectAndSubscribe(t, url, "alice")
	_, _, _, bobPresences := connectAndSubscribe(t, url, "bob")

	require.NoError(t, alice.SendPresence(models.PresenceOnline))

	select {
	case ev := <-bobPresences:
		assert.Equal(t, "alice", ev.UserID)
		assert.Equal(t, models.PresenceOnline, ev.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("bob presence değişikliğini alamadı")
	}
}

func TestStatusFalseWhenConnectionDrops(t *testing.T) {
	hub := relay.NewHub()
	go hub.Run()

	handler := relay.NewHandler(hub, []string{"*"})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.HandleConnection)
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	rt, err := ConnectRealtime(url, "alice", "alice")
	require.NoError(t, err)
	defer rt.Close()

	status := make(chan bool, 4)
	rt.OnStatus(func(connected bool) { status <- connected })
	require.NoError(t, rt.Subscribe())

	select {
	case connected := <-status:
		require.True(t, connected)
	case <-time.After(2 * time.Second):
		t.Fatal("ready beklerken timeout")
	}

	// Server tarafı tüm bağlantıları kapatıyor
	hub.Shutdown()

	select {
	case connected := <-status:
		assert.False(t, connected, "kopuş connected=false olarak bildirilmeli")
	case <-time.After(2 * time.Second):
		t.Fatal("kopuş bildirimi gelmedi")
	}
}
