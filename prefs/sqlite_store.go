package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver — CGO gerekmez, her platformda çalışır
)

// sqliteStore, Store interface'inin SQLite implementasyonu.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore, verilen dosya yolunda bir tercih deposu açar (yoksa oluşturur).
//
// Migration sistemi yok: şema üç küçük tablodan ibaret ve hiç değişmedi.
// CREATE TABLE IF NOT EXISTS ile her açılışta bootstrap edilir —
// idempotent olduğu için versiyonlama gerekmez.
func NewSQLiteStore(path string) (Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create prefs directory: %w", err)
	}

	// WAL: TUI thread'i okurken engine'in write-through'u bloklanmasın
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open prefs database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping prefs database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS muted_conversations (
			conversation_key TEXT PRIMARY KEY,
			muted_at         DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS drafts (
			conversation_key TEXT PRIMARY KEY,
			content          TEXT NOT NULL,
			updated_at       DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to bootstrap prefs schema: %w", err)
		}
	}

	return &sqliteStore{db: db}, nil
}

// Ayar anahtarları — settings tablosundaki key kolonunun değerleri.
const (
	keyDoNotDisturb = "do_not_disturb"
	keySoundEnabled = "sound_enabled"
)

func (s *sqliteStore) DoNotDisturb() (bool, error) {
	return s.boolSetting(keyDoNotDisturb, false)
}

func (s *sqliteStore) SetDoNotDisturb(on bool) error {
	return s.setSetting(keyDoNotDisturb, strconv.FormatBool(on))
}

func (s *sqliteStore) SoundEnabled() (bool, error) {
	return s.boolSetting(keySoundEnabled, true)
}

func (s *sqliteStore) SetSoundEnabled(on bool) error {
	return s.setSetting(keySoundEnabled, strconv.FormatBool(on))
}

func (s *sqliteStore) IsMuted(conversationKey string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM muted_conversations WHERE conversation_key = ?", conversationKey,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query mute state: %w", err)
	}
	return true, nil
}

func (s *sqliteStore) SetMuted(conversationKey string, muted bool) error {
	if muted {
		// INSERT OR IGNORE: zaten mute'luysa tekrar eklemeye çalışmak hata değildir
		_, err := s.db.Exec(
			"INSERT OR IGNORE INTO muted_conversations (conversation_key) VALUES (?)",
			conversationKey,
		)
		if err != nil {
			return fmt.Errorf("failed to mute conversation: %w", err)
		}
		return nil
	}

	_, err := s.db.Exec(
		"DELETE FROM muted_conversations WHERE conversation_key = ?", conversationKey,
	)
	if err != nil {
		return fmt.Errorf("failed to unmute conversation: %w", err)
	}
	return nil
}

func (s *sqliteStore) MutedConversations() ([]string, error) {
	rows, err := s.db.Query("SELECT conversation_key FROM muted_conversations")
	if err != nil {
		return nil, fmt.Errorf("failed to query muted conversations: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan muted conversation: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating muted conversations: %w", err)
	}

	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (s *sqliteStore) Draft(conversationKey string) (string, error) {
	var content string
	err := s.db.QueryRow(
		"SELECT content FROM drafts WHERE conversation_key = ?", conversationKey,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query draft: %w", err)
	}
	return content, nil
}

func (s *sqliteStore) SetDraft(conversationKey, text string) error {
	// Boş taslak saklamak anlamsız — satırı sil ki tablo büyümesin
	if text == "" {
		_, err := s.db.Exec(
			"DELETE FROM drafts WHERE conversation_key = ?", conversationKey,
		)
		if err != nil {
			return fmt.Errorf("failed to clear draft: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO drafts (conversation_key, content, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(conversation_key)
		DO UPDATE SET content = excluded.content,
		              updated_at = excluded.updated_at`

	if _, err := s.db.Exec(query, conversationKey, text); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *sqliteStore) Drafts() (map[string]string, error) {
	rows, err := s.db.Query("SELECT conversation_key, content FROM drafts")
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	drafts := make(map[string]string)
	for rows.Next() {
		var key, content string
		if err := rows.Scan(&key, &content); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts[key] = content
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", err)
	}
	return drafts, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// boolSetting, settings tablosundan bool değer okur; kayıt yoksa fallback döner.
func (s *sqliteStore) boolSetting(key string, fallback bool) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("failed to query setting %s: %w", key, err)
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, fmt.Errorf("corrupt setting %s: %w", key, err)
	}
	return val, nil
}

// setSetting, settings tablosuna upsert yapar (SQLite upsert pattern).
func (s *sqliteStore) setSetting(key, value string) error {
	query := `
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key)
		DO UPDATE SET value = excluded.value`

	if _, err := s.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}
