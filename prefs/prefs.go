// Package prefs, kullanıcının lokal tercihlerini yönetir.
//
// Bu tercihler cihaza aittir, sunucuya gitmez: rahatsız etme modu (DND),
// bildirim sesi, sessize alınan konuşmalar ve yarım kalan mesaj taslakları.
// Kalıcılık için SQLite kullanılır — tek dosya, sıfır kurulum.
//
// Engine bu paketi doğrudan kullanmaz: başlangıçta snapshot alır, değişiklik
// olduğunda write-through yapar. Böylece mesaj işleme sırasında disk I/O
// beklenmez.
package prefs

// Store, lokal tercih deposunun davranışını tanımlar.
//
// Interface olmasının sebebi test edilebilirlik: engine testlerinde
// gerçek SQLite yerine in-memory bir fake geçilebilir.
type Store interface {
	// DoNotDisturb, DND modunun açık olup olmadığını döner (varsayılan: kapalı).
	DoNotDisturb() (bool, error)
	SetDoNotDisturb(on bool) error

	// SoundEnabled, bildirim sesinin açık olup olmadığını döner (varsayılan: açık).
	SoundEnabled() (bool, error)
	SetSoundEnabled(on bool) error

	// IsMuted, belirli bir konuşmanın sessize alınıp alınmadığını döner.
	IsMuted(conversationKey string) (bool, error)
	SetMuted(conversationKey string, muted bool) error
	MutedConversations() ([]string, error)

	// Draft, bir konuşma için kayıtlı taslağı döner (yoksa boş string).
	Draft(conversationKey string) (string, error)
	SetDraft(conversationKey, text string) error

	// Drafts, tüm kayıtlı taslakların snapshot'ını döner.
	// Engine başlangıçta bunu bir kez çağırır; boş taslaklar listede yer almaz.
	Drafts() (map[string]string, error)

	Close() error
}
