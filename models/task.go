package models

import "time"

// TaskDraft, "mesajdan görev oluştur" hook'unun payload'ı.
// Engine bu draft'ı üretir ve dışarıya verilen callback'i çağırır —
// görevi nereye yazacağına uygulama karar verir (referans wiring
// backend.Store.InsertTask ile tasks tablosuna yazar).
type TaskDraft struct {
	Title               string `json:"title"`                 // Mesajın gövdesi
	SuggestedAssigneeID string `json:"suggested_assignee_id"` // Mesajın yazarı
	SourceMessageID     string `json:"source_message_id"`
	CreatedBy           string `json:"created_by"` // Hook'u tetikleyen viewer
}

// Task, tasks tablosundaki kalıcı görev satırı.
// Uygulamanın görev tarafının geri kalanı bu repo'nun kapsamı dışında —
// chat'ten görev üretme akışının yazdığı satır burada modellenir.
type Task struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	AssigneeID      *string   `json:"assignee_id"`
	SourceMessageID *string   `json:"source_message_id"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}
