package engine

import (
	"context"
	"log"

	"github.com/akinalp/sohbet/backend"
	"github.com/akinalp/sohbet/models"
)

// propagateReceipts, aktif sohbette görünür olup henüz okumadığımız
// mesajlara read-receipt damgası basar.
//
// İki aşama:
//  1. Lokal damga (senkron, loop içinde): mirror'daki her uygun mesajın
//     ReadBy set'ine kendi ID'miz eklenir. UI anında "okundu" gösterir.
//  2. Uzak yazı (asenkron): her damga için fire-and-forget bir update.
//     Hata sadece loglanır — rollback YOK. Uzak yazı kaybolursa mesaj
//     remote'ta okunmamış kalır ve bir sonraki full fetch lokal damgayı
//     union merge sayesinde korurken durumu kendiliğinden onarır.
//
// Membership guard: SADECE aktif sohbete ait mesajlar damgalanır.
// Conversation key türetmesi burada da geçerlidir — başka bir DM'in
// mesajına receipt basmak hem yanlış hem sızıntı olurdu.
//
// İdempotenlik: ReadByUser kontrolü sayesinde ikinci çağrı (scroll
// oynaması, yeni mesaj, panel restore) damgalı mesajlara dokunmaz.
func (e *Engine) propagateReceipts() {
	if e.phase != PhaseConversationView || e.active == "" {
		return
	}

	type stamp struct {
		id     string
		readBy []string
	}
	var stamps []stamp

	for id, m := range e.messages {
		if m.AuthorID == e.cfg.UserID {
			continue
		}
		if models.ConversationKey(e.cfg.UserID, &m) != e.active {
			continue
		}
		if m.ReadByUser(e.cfg.UserID) {
			continue
		}

		// Slice kopyalanır — snapshot'larla paylaşılan array'e append
		// etmek başka bir kopyanın altını oyabilirdi.
		readBy := make([]string, 0, len(m.ReadBy)+1)
		readBy = append(readBy, m.ReadBy...)
		readBy = append(readBy, e.cfg.UserID)

		m.ReadBy = readBy
		e.messages[id] = m
		stamps = append(stamps, stamp{id: id, readBy: readBy})
	}

	if len(stamps) == 0 {
		return
	}

	store := e.cfg.Store
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		for _, s := range stamps {
			readBy := s.readBy
			_, err := store.UpdateMessage(ctx, s.id, backend.MessageUpdate{ReadBy: &readBy})
			if err != nil {
				log.Printf("[engine] read receipt for %s failed: %v", s.id, err)
			}
		}
	}()
}
