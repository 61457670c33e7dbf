package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akinalp/sohbet/database"
	"github.com/akinalp/sohbet/models"
	"github.com/akinalp/sohbet/pkg"
	"github.com/akinalp/sohbet/relay"
)

// messageColumns, messages tablosunun kolon listesi — SELECT/RETURNING'de
// hep aynı sırada kullanılır ki scanMessage tek yerden yönetilsin.
const messageColumns = `id, author_id, recipient_id, content, created_at, edited_at,
	deleted_at, pinned, pinned_by, pinned_at, reply_refs, mentions, reactions, read_by`

// defaultFetchLimit, geçersiz limit verilirse kullanılacak güvenli üst sınır.
const defaultFetchLimit = 500

// postgresStore, Store interface'inin Postgres implementasyonu.
//
// database.TxQuerier alır — normal çalışmada *pgxpool.Pool geçilir,
// transaction içinde pgx.Tx de geçilebilir (kod değişmez).
type postgresStore struct {
	db  database.TxQuerier
	pub Publisher
}

// NewPostgresStore, constructor — interface döner.
// pub nil olabilir (publish istenmiyorsa, ör. bazı testler ve bakım araçları).
func NewPostgresStore(db database.TxQuerier, pub Publisher) Store {
	return &postgresStore{db: db, pub: pub}
}

// FetchMessages, en yeni limit mesajı kronolojik sırada döner.
//
// SQL en yeniden eskiye çeker (LIMIT en yenileri alsın diye),
// sonra Go tarafında ters çevrilir — UI eskiden yeniye ister.
func (s *postgresStore) FetchMessages(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	query := `SELECT ` + messageColumns + `
		FROM messages
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", classify(err))
	}
	defer rows.Close()

	var newest []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		newest = append(newest, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", classify(err))
	}

	// Ters çevir: DESC geldi, ASC dönmeli
	messages := make([]models.Message, len(newest))
	for i, m := range newest {
		messages[len(newest)-1-i] = m
	}

	return messages, nil
}

// InsertMessage, yeni bir satır ekler ve imajını messages topic'ine publish eder.
func (s *postgresStore) InsertMessage(ctx context.Context, m models.Message) error {
	m = normalizeMessage(m)

	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.db.Exec(ctx, query,
		m.ID, m.AuthorID, m.RecipientID, m.Content, m.CreatedAt, m.EditedAt,
		m.DeletedAt, m.Pinned, m.PinnedBy, m.PinnedAt, m.ReplyRefs, m.Mentions,
		m.Reactions, m.ReadBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", classify(err))
	}

	s.publish(relay.OpMessageInsert, m)
	return nil
}

// UpdateMessage, sadece verilen alanları günceller (partial update).
//
// SET listesi dinamik kurulur — nil alanlara hiç dokunulmaz.
// RETURNING ile güncel satır imajı alınır ve publish edilir:
// böylece diğer client'lar bizim görmediğimiz alanları da (başkasının
// eşzamanlı reaction'ı gibi) tam haliyle alır.
func (s *postgresStore) UpdateMessage(ctx context.Context, id string, update MessageUpdate) (models.Message, error) {
	var sets []string
	args := []any{id}
	next := 2

	arg := func(v any) string {
		args = append(args, v)
		ph := fmt.Sprintf("$%d", next)
		next++
		return ph
	}

	if update.Content != nil {
		sets = append(sets, "content = "+arg(*update.Content))
	}
	if update.EditedAt != nil {
		sets = append(sets, "edited_at = "+arg(*update.EditedAt))
	}
	if update.DeletedAt != nil {
		sets = append(sets, "deleted_at = "+arg(*update.DeletedAt))
	}
	if update.Pin != nil {
		if update.Pin.Pinned {
			sets = append(sets, "pinned = TRUE")
			sets = append(sets, "pinned_by = "+arg(update.Pin.By))
			sets = append(sets, "pinned_at = "+arg(update.Pin.At))
		} else {
			// Unpin: aktör ve zaman damgası anlamını yitirir — NULL'la
			sets = append(sets, "pinned = FALSE", "pinned_by = NULL", "pinned_at = NULL")
		}
	}
	if update.Reactions != nil {
		sets = append(sets, "reactions = "+arg(*update.Reactions))
	}
	if update.ReadBy != nil {
		sets = append(sets, "read_by = "+arg(*update.ReadBy))
	}

	if len(sets) == 0 {
		return models.Message{}, fmt.Errorf("%w: no fields to update", pkg.ErrBadRequest)
	}

	query := `UPDATE messages SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1
		RETURNING ` + messageColumns

	m, err := scanMessage(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to update message: %w", classify(err))
	}

	s.publish(relay.OpMessageUpdate, m)
	return m, nil
}

// DeleteMessage, satırı kalıcı olarak siler ve son imajını publish eder.
// Soft delete bu değildir — o UpdateMessage + DeletedAt ile yapılır.
func (s *postgresStore) DeleteMessage(ctx context.Context, id string) error {
	query := `DELETE FROM messages WHERE id = $1 RETURNING ` + messageColumns

	m, err := scanMessage(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", classify(err))
	}

	s.publish(relay.OpMessageDelete, m)
	return nil
}

// InsertTask, mesajdan türetilen görevi tasks tablosuna yazar.
func (s *postgresStore) InsertTask(ctx context.Context, task models.Task) error {
	query := `
		INSERT INTO tasks (id, title, assignee_id, source_message_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.Exec(ctx, query,
		task.ID, task.Title, task.AssigneeID, task.SourceMessageID,
		task.CreatedBy, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", classify(err))
	}
	return nil
}

// publish, satır imajını relay'e duyurur.
//
// Publish hatası SQL başarısını GERİ ALMAZ: yazı kalıcı, duyuru değil.
// Diğer client'lar event'i kaçırır ama bir sonraki full fetch'te yakalar.
func (s *postgresStore) publish(op string, payload any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(op, payload); err != nil {
		log.Printf("[backend] publish failed for %s: %v", op, err)
	}
}

// scanMessage, tek bir satırı models.Message'a okur.
// pgx.Rows da pgx.Row'u karşılar — iki yol da buradan geçer.
// JSONB kolonlar (reply_refs, mentions, reactions, read_by) pgx'in
// JSON codec'i ile doğrudan Go slice'larına açılır.
func scanMessage(row pgx.Row) (models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID, &m.AuthorID, &m.RecipientID, &m.Content, &m.CreatedAt, &m.EditedAt,
		&m.DeletedAt, &m.Pinned, &m.PinnedBy, &m.PinnedAt, &m.ReplyRefs, &m.Mentions,
		&m.Reactions, &m.ReadBy,
	)
	if err != nil {
		return models.Message{}, err
	}
	return normalizeMessage(m), nil
}

// normalizeMessage, nil slice'ları boş slice'a çevirir.
// İki sebep: JSONB kolonlar NOT NULL (nil slice JSON null üretir),
// ve JSON çıktıda [] görmek null görmekten iyidir.
func normalizeMessage(m models.Message) models.Message {
	if m.ReplyRefs == nil {
		m.ReplyRefs = []models.ReplyRef{}
	}
	if m.Mentions == nil {
		m.Mentions = []string{}
	}
	if m.Reactions == nil {
		m.Reactions = []models.Reaction{}
	}
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	}
	return m
}

// classify, pgx hatalarını pkg sentinel'lerine çevirir.
//
// En kritiği 42P01 (undefined_table): "relation ... does not exist".
// Bu hata transient DEĞİLDİR — tablo yok demektir, retry anlamsızdır.
// Engine bunu "kurulum gerekli" moduna çevirir. SQLSTATE koduna ek olarak
// mesaj metni de kontrol edilir: hata pgx dışı bir katmandan sarılı
// gelirse (ör. pool iç hataları) kod kaybolabilir.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: message", pkg.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("%w: %s", pkg.ErrStoreMissing, pgErr.Message)
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", pkg.ErrAlreadyExists, pgErr.Message)
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist") {
		return fmt.Errorf("%w: %v", pkg.ErrStoreMissing, err)
	}

	return err
}
