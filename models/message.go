package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Message, chat panelindeki tek bir mesajı temsil eder.
// Uzak "messages" tablosunun Go karşılığı — local mirror'da da aynı tip tutulur.
//
// ID client tarafında üretilir (UUID). Neden server değil?
// Optimistic insert için: mesaj daha remote'a yazılmadan mirror'a eklenir,
// sonra remote'tan echo olarak geri geldiğinde ID üzerinden dedup yapılır.
// Server ID üretseydi echo'yu optimistic kayıtla eşleştiremezdik.
type Message struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	RecipientID *string    `json:"recipient_id"`           // nil → broadcast; dolu → iki kişilik DM
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"created_at"`
	EditedAt    *time.Time `json:"edited_at"`              // Düzenlendiyse zaman damgası
	DeletedAt   *time.Time `json:"deleted_at"`             // Soft delete — satır silinmez, işaretlenir
	Pinned      bool       `json:"pinned"`
	PinnedBy    *string    `json:"pinned_by"`              // Sadece pinli iken dolu
	PinnedAt    *time.Time `json:"pinned_at"`
	ReplyRefs   []ReplyRef `json:"reply_refs,omitempty"`   // Yanıtlanan mesaj(lar)ın snapshot'ı
	Mentions    []string   `json:"mentions,omitempty"`     // @name parse sonucu kullanıcı ID'leri
	Reactions   []Reaction `json:"reactions,omitempty"`
	ReadBy      []string   `json:"read_by,omitempty"`      // Mesajı görmüş kullanıcı ID'leri
}

// ReplyRef, yanıtlanan mesajın gönderim anındaki snapshot'ı.
//
// Neden snapshot, neden sadece ID değil?
// Parent mesaj sonradan düzenlenebilir veya soft-delete edilebilir —
// yanıt baloncuğu yine de gönderim anındaki halini göstermelidir.
// Snippet bu yüzden gönderim anında kopyalanır (max 100 karakter).
type ReplyRef struct {
	MessageID string `json:"message_id"`
	AuthorID  string `json:"author_id"`
	Snippet   string `json:"snippet"`
}

// IsDeleted, mesajın soft-delete edilmiş olup olmadığını döner.
func (m Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// ReadByUser, verilen kullanıcının read-by set'inde olup olmadığını kontrol eder.
// Read-receipt propagation bu kontrolle idempotent kalır.
func (m Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// SendMessageRequest, yeni mesaj gönderme isteği.
type SendMessageRequest struct {
	Content     string  `json:"content"`
	RecipientID *string `json:"recipient_id,omitempty"` // nil → broadcast kanalına gider
	ReplyToID   *string `json:"reply_to_id,omitempty"`
}

// Validate, SendMessageRequest'in geçerli olup olmadığını kontrol eder.
// İçerik 1-2000 karakter arası olmalı (rune sayısı, byte değil —
// emoji ve Türkçe karakterler tek karakter sayılır).
func (r *SendMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)
	if contentLen < 1 {
		return fmt.Errorf("message content is required")
	}
	if contentLen > 2000 {
		return fmt.Errorf("message content must be at most 2000 characters")
	}
	if r.RecipientID != nil && strings.TrimSpace(*r.RecipientID) == "" {
		return fmt.Errorf("recipient id cannot be empty")
	}
	return nil
}

// UpdateMessageRequest, mesaj düzenleme isteği.
type UpdateMessageRequest struct {
	Content string `json:"content"`
}

// Validate, UpdateMessageRequest'in geçerli olup olmadığını kontrol eder.
func (r *UpdateMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)
	if contentLen < 1 {
		return fmt.Errorf("message content is required")
	}
	if contentLen > 2000 {
		return fmt.Errorf("message content must be at most 2000 characters")
	}
	return nil
}
