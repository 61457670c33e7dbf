package models

import "time"

// Reaction, bir kullanıcının bir mesaja verdiği tek emoji tepkisini temsil eder.
// Mesaj satırının reactions listesi içinde saklanır (ayrı tablo yok —
// remote log satır bazlı güncellenir, reaction listesi satırla birlikte taşınır).
//
// Kural: bir kullanıcının bir mesajda en fazla BİR reaction'ı olabilir.
// Aynı emoji tekrar uygulanırsa kaldırılır (toggle), farklı emoji
// uygulanırsa eskisinin yerine geçer. ToggleReaction bu kuralı uygular.
type Reaction struct {
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ToggleReaction, reaction listesine toggle semantiği uygular ve YENİ bir liste döner.
// Girdi listesi değiştirilmez — optimistic rollback eski listeyi saklamaya devam edebilir.
//
// Üç durum:
//  1. Kullanıcının reaction'ı yok        → ekle
//  2. Aynı emoji ile reaction'ı var      → kaldır (toggle off)
//  3. Farklı emoji ile reaction'ı var    → değiştir (replace)
//
// İki kez aynı emoji ile çağrılırsa liste başlangıç haline döner (idempotent çift uygulama).
func ToggleReaction(reactions []Reaction, userID, emoji string, at time.Time) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	removed := false
	for _, r := range reactions {
		if r.UserID == userID {
			if r.Emoji == emoji {
				// Aynı emoji — toggle off, kopyalama
				removed = true
				continue
			}
			// Farklı emoji — eskisi düşer, yenisi aşağıda eklenir
			continue
		}
		out = append(out, r)
	}
	if !removed {
		out = append(out, Reaction{UserID: userID, Emoji: emoji, CreatedAt: at})
	}
	return out
}

// ReactionOf, kullanıcının mevcut reaction'ını döner (varsa).
func ReactionOf(reactions []Reaction, userID string) (Reaction, bool) {
	for _, r := range reactions {
		if r.UserID == userID {
			return r, true
		}
	}
	return Reaction{}, false
}
