package relay

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akinalp/sohbet/pkg/cache"
	"github.com/akinalp/sohbet/pkg/ratelimit"
)

// Presence cache ayarları.
// TTL = 3 heartbeat kaçırma (30s × 3): client presence'ını her heartbeat'te
// yeniler, 90 saniye ses çıkmayan kullanıcı roster'dan düşer.
const (
	presenceTTL             = 90 * time.Second
	presenceCleanupInterval = time.Minute
)

// Insert publish freni: pencere başına 10 yeni mesaj, aşımda 15 saniye ceza.
// Sadece insert frenlenir — update publish'leri (read receipt dalgaları,
// reaction'lar) doğası gereği bursty'dir ve frene girmez.
const (
	insertBurst    = 10
	insertWindow   = 5 * time.Second
	insertCooldown = 15 * time.Second
)

// Hub, tüm WebSocket bağlantılarını yöneten merkezi yapıdır (Observer pattern).
//
// Observer pattern nedir?
// Bir "subject" (Hub) birden fazla "observer"ı (Client) takip eder.
// Bir event olduğunda Hub, ilgili topic'e abone tüm observer'lara iletir.
//
// Go channel nedir? (register, unregister)
// Goroutine'ler arası güvenli iletişim sağlayan yapılar.
// Hub.Run() goroutine'i bu channel'lardan `select` ile okur:
// - register channel'dan yeni client gelirse → clients map'e ekle
// - unregister channel'dan client gelirse → map'ten çıkar
type Hub struct {
	// clients: userID → Client set (bir kullanıcının birden fazla cihazı olabilir).
	// map[string]map[*Client]bool — Go'da set yoktur, map[*Client]bool kullanılır.
	// bool değeri her zaman true'dur — sadece varlık kontrolü için kullanılır.
	clients map[string]map[*Client]bool

	// mu: clients map'ini koruyan read-write mutex.
	// Broadcast'ler okuma ağırlıklıdır — RLock ile paralel çalışabilirler.
	mu sync.RWMutex

	// register/unregister: Client giriş/çıkış sinyalleri.
	register   chan *Client
	unregister chan *Client

	// seq: Her outbound event'e verilen artan sayaç.
	// atomic.Int64: Birden fazla goroutine'in güvenle okuyup yazabildiği sayı.
	// Normal int64 kullanılsaydı race condition oluşurdu.
	seq atomic.Int64

	// presence: userID → son bilinen presence payload'ı.
	// Yeni bağlanan client'a roster replay yapmak için tutulur.
	// TTL sayesinde heartbeat'i kesilen kullanıcılar kendiliğinden düşer.
	presence *cache.TTLCache[string, PresenceData]

	// limiter: insert publish'lerini kullanıcı bazında frenler.
	// Düşen publish kayıp veri değildir — satır DB'de, abone full fetch'te alır.
	limiter *ratelimit.Limiter

	// Lifecycle callback'leri — main tarafından Run()'dan ÖNCE set edilir.
	// Hub, presence senteziyle kendisi ilgilenmez; "ilk bağlantı" ve
	// "son bağlantı koptu" sinyallerini dışarı verir, kararı main verir.
	OnUserFirstConnect      func(userID, username string)
	OnUserFullyDisconnected func(userID, username string)
}

// NewHub, yeni bir Hub oluşturur.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		presence:   cache.New[string, PresenceData](presenceTTL, presenceCleanupInterval),
		limiter:    ratelimit.New(insertBurst, insertWindow, insertCooldown),
	}
}

// Run, Hub'ın ana event loop'udur. main'de `go hub.Run()` ile başlatılır.
//
// select nedir?
// Birden fazla channel'ı aynı anda dinler.
// Hangi channel'dan veri gelirse o case çalışır.
// Hiçbirinden gelmezse bekler (blocking).
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// addClient, yeni bir client'ı Hub'a ekler.
// Kullanıcının İLK bağlantısıysa OnUserFirstConnect callback'i tetiklenir.
func (h *Hub) addClient(client *Client) {
	h.mu.Lock()

	first := false
	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
		first = true
	}
	h.clients[client.userID][client] = true
	total := len(h.clients[client.userID])

	h.mu.Unlock()

	log.Printf("[relay] client connected: user=%s (total connections for user: %d)",
		client.userID, total)

	// Callback'ler go func ile çağrılır — callback içinden Hub metodu
	// çağrılırsa (broadcast gibi) deadlock oluşmasın.
	if first && h.OnUserFirstConnect != nil {
		go h.OnUserFirstConnect(client.userID, client.username)
	}
}

// removeClient, bir client'ı Hub'dan çıkarır ve send channel'ını kapatır.
// Kullanıcının SON bağlantısıysa OnUserFullyDisconnected callback'i tetiklenir.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()

	last := false
	if clients, ok := h.clients[client.userID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.send)

			// Kullanıcının başka bağlantısı kalmadıysa map'ten sil
			if len(clients) == 0 {
				delete(h.clients, client.userID)
				last = true
			}
		}
	}

	h.mu.Unlock()

	if last {
		log.Printf("[relay] user fully disconnected: %s", client.userID)
		if h.OnUserFullyDisconnected != nil {
			go h.OnUserFullyDisconnected(client.userID, client.username)
		}
	} else {
		log.Printf("[relay] client disconnected: user=%s", client.userID)
	}
}

// BroadcastToTopic, bir topic'e abone tüm client'lara event gönderir.
func (h *Hub) BroadcastToTopic(topic string, event Event) {
	h.broadcast(topic, "", event)
}

// BroadcastToTopicExcept, belirli bir kullanıcı hariç topic abonelerine event gönderir.
// Typing gibi durumlarda gönderen kişiye kendi event'i geri gitmez.
func (h *Hub) BroadcastToTopicExcept(topic, excludeUserID string, event Event) {
	h.broadcast(topic, excludeUserID, event)
}

// broadcast, fan-out'un ortak gövdesi. excludeUserID boşsa kimse hariç tutulmaz.
func (h *Hub) broadcast(topic, excludeUserID string, event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[relay] failed to marshal broadcast event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, clients := range h.clients {
		if excludeUserID != "" && userID == excludeUserID {
			continue
		}
		for client := range clients {
			if !client.subscribed(topic) {
				continue
			}
			select {
			case client.send <- data:
			default:
				// Buffer dolu — bu client yavaş, kapat
				go func(c *Client) { h.unregister <- c }(client)
			}
		}
	}
}

// GetOnlineUserIDs, bağlı olan tüm kullanıcı ID'lerini döner.
func (h *Hub) GetOnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		ids = append(ids, userID)
	}
	return ids
}

// ConnectionCount, toplam aktif bağlantı sayısını döner (stats endpoint'i için).
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// SetPresence, bir kullanıcının son presence durumunu cache'ler.
// Offline geçişte kayıt silinir — roster'da hayalet "offline" satırı tutmanın anlamı yok.
func (h *Hub) SetPresence(data PresenceData) {
	if data.Status == "offline" {
		h.presence.Delete(data.UserID)
		return
	}
	h.presence.Set(data.UserID, data)
}

// ClearPresence, bir kullanıcının presence kaydını düşürür (bağlantı koptuğunda).
func (h *Hub) ClearPresence(userID string) {
	h.presence.Delete(userID)
}

// PresenceRoster, süresi dolmamış tüm presence kayıtlarını döner.
// Yeni subscribe olan client'a replay edilir.
func (h *Hub) PresenceRoster() []PresenceData {
	items := h.presence.Items()
	roster := make([]PresenceData, 0, len(items))
	for _, data := range items {
		roster = append(roster, data)
	}
	return roster
}

// Shutdown, tüm client bağlantılarını ve arka plan yapılarını kapatır
// (graceful shutdown).
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
	}
	h.clients = make(map[string]map[*Client]bool)
	h.presence.Close()
	h.limiter.Stop()
	log.Println("[relay] hub shut down, all connections closed")
}
