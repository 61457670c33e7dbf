// Package main, sohbetd relay daemon'unun giriş noktasıdır.
//
// Bu dosyanın görevi — wire-up:
//  1. Config'i yükle
//  2. Postgres'e bağlan, migration'ları çalıştır
//  3. WebSocket Hub'ı başlat
//  4. HTTP router'ı kur (/ws + health/stats)
//  5. CORS yapılandır
//  6. HTTP Server'ı başlat
//  7. Graceful shutdown
//
// Relay'in kendisi DB'ye dokunmaz — mesaj trafiği opak fan-out'tur.
// Postgres bağlantısı iki iş için var: başlangıçta şema migration'ı
// (tek merkezi süreç burası, client'lara migration yaptırmayız) ve
// health endpoint'inin DB erişilebilirliği raporlaması.
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akinalp/sohbet/config"
	"github.com/akinalp/sohbet/database"
	"github.com/akinalp/sohbet/pkg"
	"github.com/akinalp/sohbet/relay"
	"github.com/rs/cors"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] sohbetd relay starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (addr=%s)", cfg.Relay.Addr())

	// ─── 2. Database + Migrations ───
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := database.Connect(ctx, cfg.Store.URL)
	cancel()
	if err != nil {
		log.Fatalf("[main] failed to connect to database: %v", err)
	}
	defer pool.Close()

	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		log.Fatalf("[main] failed to access embedded migrations: %v", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), time.Minute)
	err = database.Migrate(ctx, pool, migrations)
	cancel()
	if err != nil {
		log.Fatalf("[main] failed to run migrations: %v", err)
	}

	// ─── 3. WebSocket Hub ───
	hub := relay.NewHub()

	// Lifecycle callback'leri — Hub presence senteziyle kendisi ilgilenmez,
	// kararı wire-up noktası verir. Kullanıcının son bağlantısı koptuğunda
	// cache'teki kaydı düşür ve sentetik offline event'i broadcast et:
	// peer'lar TTL'in dolmasını beklemeden "çıktı" görsün.
	hub.OnUserFirstConnect = func(userID, _ string) {
		log.Printf("[presence] user %s connected", userID)
	}
	hub.OnUserFullyDisconnected = func(userID, username string) {
		hub.ClearPresence(userID)
		hub.BroadcastToTopic(relay.TopicPresence, relay.Event{
			Op: relay.OpPresenceUpdate,
			Data: relay.PresenceData{
				UserID:   userID,
				Username: username,
				Status:   "offline",
			},
		})
		log.Printf("[presence] user %s went offline", userID)
	}

	go hub.Run()

	// ─── 4. HTTP Router ───
	wsHandler := relay.NewHandler(hub, cfg.Relay.AllowedOrigins)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", wsHandler.HandleConnection)

	// Health — DB erişilebilirliğini de raporlar. Relay mesaj yolu DB'siz
	// çalışır ama client'ların yazacağı store ayaktaysa "ok" demek daha dürüst.
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer pingCancel()

		dbStatus := "ok"
		if err := pool.Ping(pingCtx); err != nil {
			dbStatus = "unreachable"
		}

		pkg.JSON(w, http.StatusOK, map[string]any{
			"service":  "sohbetd",
			"database": dbStatus,
		})
	})

	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		pkg.JSON(w, http.StatusOK, map[string]any{
			"connections":  hub.ConnectionCount(),
			"online_users": hub.GetOnlineUserIDs(),
		})
	})

	// ─── 5. CORS ───
	// WS upgrade origin kontrolünü handler kendisi yapıyor; CORS katmanı
	// health/stats endpoint'lerinin tarayıcıdan sorgulanabilmesi için.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Relay.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	handler := corsHandler.Handler(mux)

	// ─── 6. HTTP Server ───
	srv := &http.Server{
		Addr:        cfg.Relay.Addr(),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout YOK: WebSocket bağlantıları uzun ömürlüdür,
		// server-level write timeout upgrade edilmiş bağlantıyı da keser.
		IdleTimeout: 60 * time.Second,
	}

	// ─── 7. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] relay listening on %s", cfg.Relay.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce WebSocket bağlantılarını kapat — client'lar kopuşu görüp
	// reconnect döngüsüne geçer. Sonra HTTP server'ı kapat: yeni istek
	// kabul etmeyi durdurur, mevcutların bitmesini bekler (5sn timeout).
	hub.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] relay stopped gracefully")
}
