package engine

// Notifier, unread mesaj yan etkilerinin çıkış noktası.
//
// Engine "ne zaman" kararını verir (DND, mute, focus, attentive kuralları),
// Notifier "nasıl" kısmını üstlenir. TUI'de ses terminal bell'idir,
// sistem bildirimi ise masaüstü notification'ı.
//
// Metodlar engine loop'u DIŞINDA (goroutine ile) çağrılır —
// implementasyonların bloklaması event işlemeyi durdurmaz.
type Notifier interface {
	// PlaySound, yeni mesaj sesini çalar.
	PlaySound()

	// Notify, sistem bildirimi gösterir.
	// body en fazla 100 karakterdir — kırpma engine tarafında yapılır.
	Notify(title, body string)
}
