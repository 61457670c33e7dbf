// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Hem TUI client (sohbet) hem de relay daemon (sohbetd) aynı Load()'u kullanır —
// her binary kendi ihtiyacı olan bölümü alır, gerisini görmezden gelir.
// Böylece tek bir .env dosyası ile her iki süreç de ayağa kalkar.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — her struct tek bir concern'ü temsil eder.
type Config struct {
	User     UserConfig
	Store    StoreConfig
	Realtime RealtimeConfig
	Prefs    PrefsConfig
	Relay    RelayConfig
}

// UserConfig, client'ın hangi kullanıcı olarak çalıştığı.
// Relay daemon için gerekli değildir — sadece TUI client kontrol eder.
type UserConfig struct {
	ID       string // Kalıcı kullanıcı kimliği (mesajların author_id'si)
	Username string // Görünen ad — boşsa ID kullanılır
}

// StoreConfig, kalıcı mesaj deposu (Postgres) ayarları.
type StoreConfig struct {
	URL        string // Postgres bağlantı URL'i (ör: postgres://localhost/sohbet)
	FetchLimit int    // Aktivasyonda çekilecek max mesaj sayısı (varsayılan: 500)
}

// RealtimeConfig, relay'in WebSocket endpoint ayarları (client tarafı).
type RealtimeConfig struct {
	URL string // Relay WebSocket URL (ör: ws://localhost:9090/ws)
}

// PrefsConfig, lokal kullanıcı tercihleri (SQLite) ayarları.
type PrefsConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/sohbet_prefs.db)
}

// RelayConfig, relay daemon'un HTTP/WebSocket server ayarları.
type RelayConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS için izinli origin listesi
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
//
// DATABASE_URL her iki binary için de zorunludur: client mesajları oradan
// çeker, daemon migration'ları orada çalıştırır. Diğer her şeyin makul
// bir varsayılanı vardır.
func Load() (*Config, error) {
	// .env dosyasını yükle — dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	storeURL := getEnv("DATABASE_URL", "")
	if storeURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	fetchLimit, err := strconv.Atoi(getEnv("FETCH_LIMIT", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_LIMIT: %w", err)
	}

	relayPort, err := strconv.Atoi(getEnv("RELAY_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid RELAY_PORT: %w", err)
	}

	userID := getEnv("CHAT_USER_ID", "")
	username := getEnv("CHAT_USERNAME", "")
	if username == "" {
		username = userID
	}

	cfg := &Config{
		User: UserConfig{
			ID:       userID,
			Username: username,
		},
		Store: StoreConfig{
			URL:        storeURL,
			FetchLimit: fetchLimit,
		},
		Realtime: RealtimeConfig{
			URL: getEnv("RELAY_URL", "ws://localhost:9090/ws"),
		},
		Prefs: PrefsConfig{
			Path: getEnv("PREFS_PATH", "./data/sohbet_prefs.db"),
		},
		Relay: RelayConfig{
			Host:           getEnv("RELAY_HOST", "0.0.0.0"),
			Port:           relayPort,
			AllowedOrigins: splitOrigins(getEnv("RELAY_ALLOWED_ORIGINS", "*")),
		},
	}

	return cfg, nil
}

// Addr, relay server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *RelayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// splitOrigins, virgülle ayrılmış origin listesini parse eder.
// Boş parçalar ve baştaki/sondaki boşluklar temizlenir.
func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
