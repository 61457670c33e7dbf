package relay

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	// Bu süre aşılırsa bağlantı kapatılır (ağ sorunu olabilir).
	writeWait = 10 * time.Second

	// pongWait: Client'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	// Bu sürede heartbeat gelmezse client bağlantısı kopmuş sayılır.
	pongWait = 90 * time.Second

	// maxMessageSize: Client'ın gönderebileceği maksimum mesaj boyutu (byte).
	// Satır imajları JSONB alanlarıyla birlikte büyüyebilir — 4KB yerine 16KB.
	maxMessageSize = 16384

	// sendBufferSize: Her client'ın send channel'ının buffer boyutu.
	// Buffer doluysa (client yavaş) mesajlar kaybolur — bu durumda client disconnect edilir.
	sendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısını temsil eder.
//
// Go'da WebSocket bağlantı yönetimi pattern'i:
// Her bağlantı için iki goroutine oluşturulur:
// - ReadPump: Client'dan gelen mesajları okur → Hub'a iletir
// - WritePump: Hub'dan gelen mesajları client'a yazar
//
// Neden iki goroutine?
// gorilla/websocket aynı anda sadece bir okuma ve bir yazma işlemi destekler.
// İki ayrı goroutine kullanarak okuma ve yazma birbirini bloklamaz.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	userID   string
	username string

	// send, client'a gönderilecek mesajların buffer'landığı channel.
	// Hub mesaj göndermek istediğinde `client.send <- data` yapar,
	// WritePump `data := <-client.send` ile okur.
	send chan []byte
	mu   sync.Mutex // conn.WriteMessage çağrılarını korur

	// topics: Bu bağlantının abone olduğu topic'ler.
	// ReadPump (subscribe) yazar, Hub'ın broadcast goroutine'leri okur —
	// bu yüzden kendi mutex'i ile korunur.
	topics   map[string]bool
	topicsMu sync.RWMutex
}

// subscribed, client'ın verilen topic'e abone olup olmadığını döner.
func (c *Client) subscribed(topic string) bool {
	c.topicsMu.RLock()
	defer c.topicsMu.RUnlock()
	return c.topics[topic]
}

// ReadPump, WebSocket bağlantısından gelen mesajları okur ve işler.
//
// Bu fonksiyon bir goroutine olarak çalışır — bağlantı kapanana kadar döngüde kalır.
// Bağlantı kapandığında Hub'dan çıkış yapar ve kaynakları temizler.
func (c *Client) ReadPump() {
	// defer: Fonksiyon bittiğinde (return veya panic) çalışır.
	// Bağlantı kapandığında client'ı Hub'dan çıkar ve WS bağlantısını kapat.
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	// SetReadDeadline: Bu süre içinde mesaj gelmezse Read hata verir.
	// Her heartbeat geldiğinde deadline yenilenir.
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[relay] failed to set read deadline for user %s: %v", c.userID, err)
		return
	}

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			// Bağlantı kapandı veya hata oluştu — ReadPump sonlanır.
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[relay] unexpected close for user %s: %v", c.userID, err)
			}
			return
		}

		// Gelen mesajı parse et
		var event Event
		if err := json.Unmarshal(rawMessage, &event); err != nil {
			log.Printf("[relay] invalid message from user %s: %v", c.userID, err)
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, client'dan gelen event'leri türüne göre işler.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		// Heartbeat geldi — deadline'ı yenile ve ack gönder.
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("[relay] failed to set read deadline for user %s: %v", c.userID, err)
			return
		}
		c.sendEvent(Event{Op: OpHeartbeatAck})

	case OpSubscribe:
		c.handleSubscribe(event)

	case OpTyping:
		// Typing event'ini kimlik damgalayıp typing topic'ine broadcast et.
		c.handleTyping(event)

	case OpPresenceUpdate:
		// Kullanıcı durumunu değiştirdi (online/idle/offline)
		c.handlePresenceUpdate(event)

	case OpMessageInsert:
		// Yeni satır publish'i flood frenine tabidir. Düşen publish kayıp
		// değildir: satır DB'de duruyor, aboneler sonraki full fetch'te alır.
		if !c.hub.limiter.Allow(c.userID) {
			log.Printf("[relay] insert publish rate limited for user %s (retry in %s)",
				c.userID, c.hub.limiter.RetryAfter(c.userID).Round(time.Second))
			return
		}
		c.hub.BroadcastToTopic(TopicMessages, Event{Op: event.Op, Data: event.Data})

	case OpMessageUpdate, OpMessageDelete:
		// Satır imajı publish'i — opak passthrough, fren yok.
		// Read receipt yayılımı tek hamlede onlarca update üretir; bunları
		// frenlemek meşru trafiği keserdi. Gönderen DAHİL herkese gider:
		// gönderen kendi echo'sunu idempotent merge ile absorbe eder,
		// diğer cihazları da senkron kalır.
		c.hub.BroadcastToTopic(TopicMessages, Event{Op: event.Op, Data: event.Data})

	default:
		log.Printf("[relay] unknown op from user %s: %s", c.userID, event.Op)
	}
}

// handleSubscribe, client'ın topic aboneliğini kaydeder ve ready yanıtı gönderir.
//
// Presence topic'ine abone olan client'a mevcut roster replay edilir:
// cache'teki her kayıt ayrı bir presence_update event'i olarak gönderilir.
// Böylece panel açıldığında "kim online" bilgisi için ayrıca sorgu gerekmez.
func (c *Client) handleSubscribe(event Event) {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	var data SubscribeData
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return
	}

	topics := make(map[string]bool, len(data.Topics))
	for _, topic := range data.Topics {
		switch topic {
		case TopicMessages, TopicTyping, TopicPresence:
			topics[topic] = true
		default:
			log.Printf("[relay] unknown topic from user %s: %s", c.userID, topic)
		}
	}

	c.topicsMu.Lock()
	c.topics = topics
	c.topicsMu.Unlock()

	c.sendEvent(Event{Op: OpReady, Data: ReadyData{
		OnlineUserIDs: c.hub.GetOnlineUserIDs(),
	}})

	if topics[TopicPresence] {
		for _, presence := range c.hub.PresenceRoster() {
			c.sendEvent(Event{Op: OpPresenceUpdate, Data: presence})
		}
	}
}

// handleTyping, typing event'ini işler ve diğer kullanıcılara broadcast eder.
func (c *Client) handleTyping(event Event) {
	// Event data'sını JSON'dan TypingData'ya parse et.
	//
	// json.Marshal + json.Unmarshal neden?
	// event.Data tipi `any` (interface{}), doğrudan cast edemeyiz.
	// JSON'a çevirip tekrar parse etmek en güvenli yöntem.
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	var typing TypingData
	if err := json.Unmarshal(dataBytes, &typing); err != nil {
		return
	}

	if typing.ConversationKey == "" {
		return
	}

	// Broadcast: typing_start event'ini topic abonelerine gönder (gönderen hariç).
	// Kimlik bağlantıdan damgalanır — client kendi adına konuşamaz.
	c.hub.BroadcastToTopicExcept(TopicTyping, c.userID, Event{
		Op: OpTypingStart,
		Data: TypingStartData{
			UserID:          c.userID,
			Username:        c.username,
			ConversationKey: typing.ConversationKey,
		},
	})
}

// handlePresenceUpdate, client'dan gelen presence değişikliğini işler.
//
// Client { op: "presence_update", d: { status: "idle" } } gönderir.
// Relay kimliği damgalar, cache'i günceller (replay için) ve
// presence topic'ine broadcast eder.
func (c *Client) handlePresenceUpdate(event Event) {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	var data PresenceData
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return
	}

	// Geçerli status kontrolü
	switch data.Status {
	case "online", "idle", "offline":
		// geçerli
	default:
		log.Printf("[relay] invalid presence status from user %s: %s", c.userID, data.Status)
		return
	}

	stamped := PresenceData{
		UserID:   c.userID,
		Username: c.username,
		Status:   data.Status,
	}

	c.hub.SetPresence(stamped)
	c.hub.BroadcastToTopicExcept(TopicPresence, c.userID, Event{
		Op:   OpPresenceUpdate,
		Data: stamped,
	})
}

// sendEvent, client'a tek bir event gönderir.
func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[relay] failed to marshal event for user %s: %v", c.userID, err)
		return
	}

	select {
	case c.send <- data:
		// Başarıyla buffer'a eklendi
	default:
		// Buffer dolu — client muhtemelen donmuş, bağlantıyı kapat
		log.Printf("[relay] send buffer full for user %s, dropping connection", c.userID)
		c.hub.unregister <- c
	}
}

// WritePump, Hub'dan gelen mesajları WebSocket bağlantısına yazar.
//
// Bu fonksiyon bir goroutine olarak çalışır.
// send channel'dan mesaj bekler ve WS'e yazar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			// Channel kapatıldı — Hub client'ı çıkardı
			c.writeMessage(websocket.CloseMessage, nil)
			return
		}

		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// writeMessage, WebSocket'e mesaj yazar (mutex ile korunur).
// gorilla/websocket conn'a aynı anda birden fazla yazma YASAK —
// hem WritePump hem sendEvent'in close yolu yazabildiği için mutex şart.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
