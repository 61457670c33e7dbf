// Package backend, uzak tarafı panel'e opak bir arayüz olarak sunar.
//
// Panel'in uzak taraf hakkında bildiği her şey iki interface'ten ibarettir:
// - Store: kalıcı mesaj log'u (Postgres) — fetch, insert, partial update, delete
// - Realtime: relay bağlantısı — üç topic'e abonelik + ephemeral publish
//
// Neden iki ayrı interface?
// Engine testlerinde ikisi ayrı ayrı fake'lenir: Store'u fake'leyip
// Realtime'dan gerçek event akıtmak (veya tersi) mümkün olur.
// Production'da ikisini aynı süreç sağlar ama engine bunu bilmez.
//
// Yazma akışı (satır imajı pattern'i):
// 1. Store SQL yazar (INSERT/UPDATE ... RETURNING)
// 2. Başarılıysa dönen satır imajını Publisher üzerinden relay'e publish eder
// 3. Relay, imajı TÜM abonelere iletir — yazan dahil
// 4. Yazanın kendi echo'su idempotent merge ile absorbe edilir
// Böylece "DB'ye yazıldı ama kimse duymadı" penceresi tek bir publish
// çağrısına iner; o da kaçarsa bir sonraki full fetch telafi eder.
package backend

import (
	"context"
	"time"

	"github.com/akinalp/sohbet/models"
)

// ChangeKind, kalıcı log'daki bir değişikliğin türü.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ChangeEvent, messages topic'inden gelen tek bir değişiklik.
// Message her üç tür için de TAM satır imajıdır — delete'te bile satırın
// silinmeden önceki hali gelir (engine sadece ID'sini kullanır).
type ChangeEvent struct {
	Kind    ChangeKind
	Message models.Message
}

// TypingEvent, typing topic'inden gelen ephemeral sinyal.
// Kimlik relay tarafından damgalanmıştır — güvenilebilir.
type TypingEvent struct {
	UserID          string
	Username        string
	ConversationKey string
}

// PresenceEvent, presence topic'inden gelen ephemeral durum değişikliği.
type PresenceEvent struct {
	UserID   string
	Username string
	Status   models.PresenceStatus
}

// PinUpdate, bir mesajın pin durumu değişikliği.
// Pinned=false geçişinde By ve At yoksayılır — kolonlar NULL'lanır.
type PinUpdate struct {
	Pinned bool
	By     string
	At     time.Time
}

// MessageUpdate, UPDATE için partial alan seti.
//
// Pointer semantiği: nil alan "dokunma" demektir.
// Slice alanlarda *[]T kullanılır — nil pointer "dokunma",
// boş slice'a pointer ise "boş listeye SET ET" anlamına gelir.
// (Son reaction kaldırıldığında ikisinin farkı kritiktir.)
type MessageUpdate struct {
	Content   *string
	EditedAt  *time.Time
	DeletedAt *time.Time
	Pin       *PinUpdate
	Reactions *[]models.Reaction
	ReadBy    *[]string
}

// Store, kalıcı mesaj deposunun davranışını tanımlar.
type Store interface {
	// FetchMessages, en yeni limit mesajı KRONOLOJİK (eskiden yeniye) sırada döner.
	FetchMessages(ctx context.Context, limit int) ([]models.Message, error)

	// InsertMessage, yeni bir satır ekler ve imajını publish eder.
	InsertMessage(ctx context.Context, m models.Message) error

	// UpdateMessage, belirtilen alanları günceller ve güncel satır imajını döner.
	// Satır yoksa pkg.ErrNotFound.
	UpdateMessage(ctx context.Context, id string, update MessageUpdate) (models.Message, error)

	// DeleteMessage, satırı kalıcı olarak siler (hard delete).
	DeleteMessage(ctx context.Context, id string) error

	// InsertTask, mesajdan türetilen görevi kaydeder.
	InsertTask(ctx context.Context, task models.Task) error
}

// Publisher, relay'e event publish etmeyi soyutlar.
// Store SQL yazdıktan sonra satır imajını bununla duyurur.
type Publisher interface {
	Publish(op string, payload any) error
}

// Realtime, relay bağlantısının engine'e dönük yüzü.
//
// Callback'ler Subscribe'dan ÖNCE kaydedilmelidir — aksi halde subscribe
// yanıtıyla gelen presence roster replay'i düşer. Callback'ler bağlantının
// okuma goroutine'inden çağrılır; uzun iş yapmamalı, event'i kendi
// loop'una post edip dönmelidir.
type Realtime interface {
	Publisher

	// Subscribe, üç topic'e abonelik frame'ini gönderir.
	// Yanıt olarak ready + (presence aboneliği varsa) roster replay gelir.
	Subscribe() error

	OnChange(fn func(ChangeEvent))
	OnTyping(fn func(TypingEvent))
	OnPresence(fn func(PresenceEvent))

	// OnStatus, bağlantı durumu değiştiğinde çağrılır:
	// ready alındığında true, bağlantı koptuğunda false.
	OnStatus(fn func(connected bool))

	// SendTyping, "yazıyorum" sinyali yayınlar (ephemeral, persist edilmez).
	SendTyping(conversationKey string) error

	// SendPresence, kendi durumunu yayınlar (ephemeral, persist edilmez).
	SendPresence(status models.PresenceStatus) error

	Close() error
}
