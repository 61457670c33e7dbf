package relay

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler, yeni bir WebSocket handler oluşturur.
//
// allowedOrigins: CORS origin whitelist'i. "*" içeriyorsa tüm origin'lere
// izin verilir (development). Origin header'ı olmayan istekler (TUI client,
// curl gibi tarayıcı dışı client'lar) her zaman kabul edilir — Origin
// kontrolü bir tarayıcı güvenlik mekanizmasıdır, native client'ları bağlamaz.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAll {
					return true
				}
				return allowed[origin]
			},
		},
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir ve client'ı Hub'a kaydeder.
//
// Kimlik query parameter'larından gelir:
//
//	ws://relay/ws?user_id=u1&username=alice
//
// Relay bir iç ağ bileşenidir ve kimlik beyanına güvenir — kimlik
// doğrulama (varsa) önündeki reverse proxy'nin işidir. Relay'in garantisi
// şudur: typing/presence event'lerinde damgalanan kimlik her zaman
// BAĞLANTININ kimliğidir, payload'da beyan edilen değil.
//
// Flow:
// 1. Query'den user_id + username al
// 2. HTTP → WebSocket upgrade
// 3. Client oluştur, Hub'a kaydet
// 4. ReadPump ve WritePump goroutine'lerini başlat
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		username = userID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[relay] upgrade failed for user %s: %v", userID, err)
		return
	}

	client := &Client{
		hub:      h.hub,
		conn:     conn,
		userID:   userID,
		username: username,
		send:     make(chan []byte, sendBufferSize),
		topics:   make(map[string]bool),
	}

	h.hub.register <- client

	// `go client.WritePump()` → yeni goroutine başlatır.
	// ReadPump mevcut goroutine'de çalışmalı — aksi halde bu fonksiyon hemen
	// döner ve HTTP handler sonlanır. ReadPump bağlantı kapanana kadar bloklar.
	go client.WritePump()
	client.ReadPump()
}
