package backend

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/sohbet/models"
	"github.com/akinalp/sohbet/relay"
)

// Bağlantı sabitleri — relay tarafıyla aynı ritim.
const (
	// rtWriteWait: Bir frame'i yazmak için maksimum bekleme süresi.
	rtWriteWait = 10 * time.Second

	// rtPongWait: heartbeat_ack beklenen maksimum süre.
	// 3 ack kaçırma = 30s × 3 = 90s → bağlantı kopmuş sayılır.
	rtPongWait = 90 * time.Second

	// rtHeartbeatInterval: heartbeat gönderme sıklığı.
	rtHeartbeatInterval = 30 * time.Second

	// rtMaxMessageSize: relay'den gelebilecek maksimum frame boyutu.
	rtMaxMessageSize = 16384
)

// relayConn, Realtime interface'inin gorilla/websocket implementasyonu.
//
// Tek bağlantı, iki goroutine:
// - readLoop: gelen event'leri okur, decode eder, callback'lere dağıtır
// - heartbeatLoop: 30 saniyede bir heartbeat yazar
//
// Yazma tarafında pump yok: client'ın kendi yazma hızı düşüktür,
// her yazı writeMu altında doğrudan conn'a gider.
type relayConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // gorilla conn'a eşzamanlı yazma yasak

	// Callback'ler — OnX setter'ları ile kaydedilir, readLoop okur.
	cbMu       sync.RWMutex
	onChange   func(ChangeEvent)
	onTyping   func(TypingEvent)
	onPresence func(PresenceEvent)
	onStatus   func(bool)

	// done: Close() çağrıldığını goroutine'lere duyurur.
	// Kasıtlı kapanış ile ağ hatasını ayırt etmek için kullanılır.
	done      chan struct{}
	closeOnce sync.Once
}

// ConnectRealtime, relay'e bağlanır ve iç goroutine'leri başlatır.
//
// Kimlik query parameter'ları ile taşınır: ws://relay/ws?user_id=u1&username=alice
// Bağlantı kurulamazsa error döner — otomatik reconnect YOK, karar
// çağıranındır (engine bağlantı kopuşunu connected=false olarak yüzeye çıkarır).
func ConnectRealtime(rawURL, userID, username string) (Realtime, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}

	q := u.Query()
	q.Set("user_id", userID)
	q.Set("username", username)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}

	r := &relayConn{
		conn: conn,
		done: make(chan struct{}),
	}

	conn.SetReadLimit(rtMaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(rtPongWait)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	go r.readLoop()
	go r.heartbeatLoop()

	return r, nil
}

func (r *relayConn) OnChange(fn func(ChangeEvent)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.onChange = fn
}

func (r *relayConn) OnTyping(fn func(TypingEvent)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.onTyping = fn
}

func (r *relayConn) OnPresence(fn func(PresenceEvent)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.onPresence = fn
}

func (r *relayConn) OnStatus(fn func(bool)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.onStatus = fn
}

// Subscribe, üç topic'in abonelik frame'ini gönderir.
// Relay ready ile yanıtlar, ardından presence roster'ını replay eder.
func (r *relayConn) Subscribe() error {
	return r.writeEvent(relay.Event{
		Op: relay.OpSubscribe,
		Data: relay.SubscribeData{
			Topics: []string{relay.TopicMessages, relay.TopicTyping, relay.TopicPresence},
		},
	})
}

// Publish, keyfi bir op + payload'ı relay'e gönderir.
// Store, SQL commit sonrası satır imajlarını bununla duyurur.
func (r *relayConn) Publish(op string, payload any) error {
	return r.writeEvent(relay.Event{Op: op, Data: payload})
}

func (r *relayConn) SendTyping(conversationKey string) error {
	return r.Publish(relay.OpTyping, relay.TypingData{ConversationKey: conversationKey})
}

func (r *relayConn) SendPresence(status models.PresenceStatus) error {
	return r.Publish(relay.OpPresenceUpdate, relay.PresenceData{Status: string(status)})
}

// Close, bağlantıyı kapatır. İkinci çağrı no-op'tur.
func (r *relayConn) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		// Best effort close frame — karşı tarafa "normal kapanış" bildir
		_ = r.writeMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = r.conn.Close()
	})
	return err
}

// readLoop, relay'den gelen event'leri okur ve dağıtır.
// Bağlantı kasıtsız koptuğunda onStatus(false) tetiklenir ve loop biter.
func (r *relayConn) readLoop() {
	for {
		_, raw, err := r.conn.ReadMessage()
		if err != nil {
			select {
			case <-r.done:
				// Kasıtlı kapanış — sessizce çık
			default:
				log.Printf("[backend] relay connection lost: %v", err)
				r.notifyStatus(false)
			}
			return
		}

		var event relay.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[backend] invalid event from relay: %v", err)
			continue
		}

		r.handleEvent(event)
	}
}

// handleEvent, relay'den gelen event'leri türüne göre callback'lere dağıtır.
func (r *relayConn) handleEvent(event relay.Event) {
	switch event.Op {
	case relay.OpHeartbeatAck:
		// Ack geldi — read deadline'ı yenile
		if err := r.conn.SetReadDeadline(time.Now().Add(rtPongWait)); err != nil {
			log.Printf("[backend] failed to renew read deadline: %v", err)
		}

	case relay.OpReady:
		var ready relay.ReadyData
		if err := decodeInto(event.Data, &ready); err == nil {
			log.Printf("[backend] relay ready (%d online)", len(ready.OnlineUserIDs))
		}
		r.notifyStatus(true)

	case relay.OpMessageInsert, relay.OpMessageUpdate, relay.OpMessageDelete:
		var m models.Message
		if err := decodeInto(event.Data, &m); err != nil {
			log.Printf("[backend] invalid message payload for %s: %v", event.Op, err)
			return
		}

		kind := ChangeInsert
		switch event.Op {
		case relay.OpMessageUpdate:
			kind = ChangeUpdate
		case relay.OpMessageDelete:
			kind = ChangeDelete
		}

		r.cbMu.RLock()
		fn := r.onChange
		r.cbMu.RUnlock()
		if fn != nil {
			fn(ChangeEvent{Kind: kind, Message: m})
		}

	case relay.OpTypingStart:
		var typing relay.TypingStartData
		if err := decodeInto(event.Data, &typing); err != nil {
			log.Printf("[backend] invalid typing payload: %v", err)
			return
		}

		r.cbMu.RLock()
		fn := r.onTyping
		r.cbMu.RUnlock()
		if fn != nil {
			fn(TypingEvent{
				UserID:          typing.UserID,
				Username:        typing.Username,
				ConversationKey: typing.ConversationKey,
			})
		}

	case relay.OpPresenceUpdate:
		var presence relay.PresenceData
		if err := decodeInto(event.Data, &presence); err != nil {
			log.Printf("[backend] invalid presence payload: %v", err)
			return
		}

		r.cbMu.RLock()
		fn := r.onPresence
		r.cbMu.RUnlock()
		if fn != nil {
			fn(PresenceEvent{
				UserID:   presence.UserID,
				Username: presence.Username,
				Status:   models.PresenceStatus(presence.Status),
			})
		}

	default:
		log.Printf("[backend] unknown op from relay: %s", event.Op)
	}
}

// heartbeatLoop, 30 saniyede bir heartbeat gönderir.
// Yazma hatası burada sadece loglanır — bağlantı gerçekten koptuysa
// readLoop da hata alır ve status'u o bildirir.
func (r *relayConn) heartbeatLoop() {
	ticker := time.NewTicker(rtHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.writeEvent(relay.Event{Op: relay.OpHeartbeat}); err != nil {
				log.Printf("[backend] heartbeat failed: %v", err)
			}
		case <-r.done:
			return
		}
	}
}

// writeEvent, event'i marshal edip bağlantıya yazar.
func (r *relayConn) writeEvent(event relay.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.writeMessage(websocket.TextMessage, data)
}

// writeMessage, WebSocket'e mesaj yazar (mutex ile korunur).
func (r *relayConn) writeMessage(messageType int, data []byte) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.conn.SetWriteDeadline(time.Now().Add(rtWriteWait)); err != nil {
		return err
	}
	return r.conn.WriteMessage(messageType, data)
}

// notifyStatus, bağlantı durumu callback'ini tetikler (kayıtlıysa).
func (r *relayConn) notifyStatus(connected bool) {
	r.cbMu.RLock()
	fn := r.onStatus
	r.cbMu.RUnlock()
	if fn != nil {
		fn(connected)
	}
}

// decodeInto, any tipindeki event data'sını hedef struct'a çevirir.
//
// json.Marshal + json.Unmarshal neden?
// event.Data tipi `any` (decode edilmiş JSON map'i), doğrudan cast edemeyiz.
// JSON'a çevirip tekrar parse etmek en güvenli yöntem.
func decodeInto(data, dst any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
