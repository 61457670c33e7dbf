// Package main, sohbet TUI client'ının giriş noktasıdır.
//
// Bu dosyanın görevi — wire-up:
//  1. Config'i yükle (kullanıcı kimliği zorunlu)
//  2. Log çıkışını dosyaya yönlendir (terminal TUI'ye ait)
//  3. Postgres'e bağlan (mesaj deposu)
//  4. Relay'e bağlan (gerçek zamanlı akışlar) — başarısızlık ölümcül değil
//  5. Lokal tercih deposunu aç (SQLite)
//  6. Engine'i kur ve başlat
//  7. Bubbletea programını çalıştır
//  8. Düzenli kapanış: engine teardown'ının bitmesini bekle
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/akinalp/sohbet/backend"
	"github.com/akinalp/sohbet/config"
	"github.com/akinalp/sohbet/database"
	"github.com/akinalp/sohbet/engine"
	"github.com/akinalp/sohbet/models"
	"github.com/akinalp/sohbet/prefs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sohbet: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.User.ID == "" {
		return fmt.Errorf("CHAT_USER_ID environment variable is required")
	}

	// ─── 2. Log Dosyası ───
	// TUI terminali kaplar — stderr'e yazan her log satırı ekranı bozar.
	// Engine ve backend stdlib log kullanır; çıkışı dosyaya yönlendiriyoruz.
	logPath := filepath.Join(filepath.Dir(cfg.Prefs.Path), "sohbet.log")
	logFile, err := tea.LogToFile(logPath, "sohbet")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Printf("[main] sohbet starting (user=%s)", cfg.User.ID)

	// ─── 3. Postgres ───
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := database.Connect(ctx, cfg.Store.URL)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// ─── 4. Realtime ───
	// Relay'e ulaşılamıyorsa yine de açılırız: mesajlar DB'den okunur,
	// yazılar DB'ye gider, sadece canlı akışlar (push, typing, presence)
	// olmaz. Engine bağlantısızlığı UI'da "çevrimdışı" olarak gösterir.
	var rt backend.Realtime
	var pub backend.Publisher
	if conn, err := backend.ConnectRealtime(cfg.Realtime.URL, cfg.User.ID, cfg.User.Username); err != nil {
		log.Printf("[main] relay unreachable, running without live updates: %v", err)
	} else {
		rt = conn
		pub = conn
	}

	store := backend.NewPostgresStore(pool, pub)

	// ─── 5. Lokal Tercihler ───
	prefsStore, err := prefs.NewSQLiteStore(cfg.Prefs.Path)
	if err != nil {
		return fmt.Errorf("failed to open prefs store: %w", err)
	}
	defer prefsStore.Close()

	// ─── 6. Engine ───
	eng := engine.New(engine.Config{
		UserID:     cfg.User.ID,
		Username:   cfg.User.Username,
		Store:      store,
		Realtime:   rt,
		Prefs:      prefsStore,
		Notifier:   newTermNotifier(),
		FetchLimit: cfg.Store.FetchLimit,

		// Mesajdan türetilen görev tasks tablosuna yazılır.
		// Engine callback'i kendi goroutine'inde çağırır — burada
		// bloklanmak serbest ama yine de timeout'la sınırlıyoruz.
		OnCreateTask: func(draft models.TaskDraft) {
			task := models.Task{
				ID:        uuid.NewString(),
				Title:     draft.Title,
				CreatedBy: draft.CreatedBy,
				CreatedAt: time.Now().UTC(),
			}
			if draft.SuggestedAssigneeID != "" {
				task.AssigneeID = &draft.SuggestedAssigneeID
			}
			if draft.SourceMessageID != "" {
				task.SourceMessageID = &draft.SourceMessageID
			}

			taskCtx, taskCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer taskCancel()
			if err := store.InsertTask(taskCtx, task); err != nil {
				log.Printf("[main] failed to save task from message %s: %v", draft.SourceMessageID, err)
				return
			}
			log.Printf("[main] task created from message %s", draft.SourceMessageID)
		},
	})

	engineDone := make(chan struct{})
	go func() {
		eng.Run()
		close(engineDone)
	}()

	// ─── 7. TUI ───
	p := tea.NewProgram(
		newApp(eng, cfg.User.ID),
		tea.WithAltScreen(),    // vim gibi alternatif ekran buffer'ı
		tea.WithReportFocus(),  // terminal focus/blur event'leri — dikkat testi için
		tea.WithMouseCellMotion(), // scroll wheel viewport'u kaydırır
	)

	_, runErr := p.Run()

	// ─── 8. Kapanış ───
	// Shutdown sinyal verir; teardown loop goroutine'inde çalışır
	// (aktif taslak senkron diske yazılır, relay kapanır). Process
	// çıkmadan önce bitmesini beklemek zorundayız.
	eng.Shutdown()
	<-engineDone

	if runErr != nil {
		return fmt.Errorf("tui error: %w", runErr)
	}
	log.Println("[main] sohbet stopped")
	return nil
}
