// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Go'da error'lar basit değerlerdir (string taşıyan struct'lar).
// errors.New() ile sabit error değişkenleri tanımlarız.
// Böylece error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrStoreMissing) { ... }
//
// Bu, typo'ya açık string karşılaştırmasından çok daha güvenlidir.
// Backend katmanı SQL hatalarını bu sentinel'lere map'ler, engine ise
// sentinel'e bakarak hangi degraded-mode'a geçeceğine karar verir.
package pkg

import "errors"

// Domain-level error'lar.
// Engine bunları UI durumlarına, relay'in HTTP yüzeyi status code'larına map'ler.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")

	// ErrStoreMissing: remote şema hiç kurulmamış — "relation does not exist".
	//
	// Bu error'ın ayrı bir sentinel olması kritik: geçici bir network
	// hatasından FARKLI davranış gerektirir. Geçici hata "tekrar dene"
	// mesajı üretirken, store missing kalıcı bir "migration çalıştır"
	// ekranı üretir ve otomatik retry YAPILMAZ.
	ErrStoreMissing = errors.New("backing store not provisioned")
)
