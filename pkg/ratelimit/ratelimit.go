// Package ratelimit — relay'in publish akışını kullanıcı bazında frenleyen
// in-memory fren.
//
// Korunan şey relay'in kendisi: kaçak bir client saniyede yüzlerce satır
// imajı publish ederse fan-out maliyeti abone sayısıyla çarpılır ve yavaş
// client'lar buffer taşmasından kopmaya başlar. Fren publish'i düşürür,
// veritabanına dokunmaz — satır zaten client tarafından SQL ile yazılmıştır.
// Abonelerin kaçırdığı imajı bir sonraki full fetch getirir; mimari
// kaçırılmış push'a zaten dayanıklıdır.
//
// Mekanik: pencere + ceza. Pencere içinde maxEvents publish serbesttir;
// aşan kullanıcı cooldown boyunca tamamen susturulur, süre bitince temiz
// bir pencereyle döner. Pencere kısa, ceza uzun — tuşa yapışmış birinin
// ritmini kırmak için.
//
// Neden in-memory?
// Fren durumu kaybolursa olacak tek şey bir pencerelik ekstra tolerans.
// Bu kadar ucuz bir state için harici store taşımaya değmez.
// sync.RWMutex ile thread-safe: RLock okuma, Lock yazma.
package ratelimit

import (
	"sync"
	"time"
)

// bucket, tek kullanıcının pencere sayacı ve ceza durumu.
// cooldownUntil zero value ise ceza yok demektir.
type bucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time
}

// Limiter, kullanıcı başına publish frekans freni.
//
// Kullanım:
//
//	lim := ratelimit.New(5, 5*time.Second, 15*time.Second)
//	defer lim.Stop()
//	if !lim.Allow(userID) { /* event'i düşür */ }
type Limiter struct {
	mu        sync.RWMutex
	buckets   map[string]*bucket
	maxEvents int
	window    time.Duration
	cooldown  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// New, Limiter kurar ve arka plan temizleme goroutine'ini başlatır.
// İş bitince Stop çağrılmalıdır, yoksa goroutine sızar.
func New(maxEvents int, window, cooldown time.Duration) *Limiter {
	l := &Limiter{
		buckets:   make(map[string]*bucket),
		maxEvents: maxEvents,
		window:    window,
		cooldown:  cooldown,
		stop:      make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow, kullanıcının bir publish daha yapıp yapamayacağını söyler.
// false dönerse caller event'i düşürmelidir.
func (l *Limiter) Allow(userID string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[userID]
	if !exists {
		// İlk publish — yeni bucket
		l.buckets[userID] = &bucket{count: 1, windowStart: now}
		return true
	}

	// Ceza sürüyor mu?
	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		// Ceza bitti — temiz pencere
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	// Pencere dolmuş mu?
	if now.Sub(b.windowStart) > l.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > l.maxEvents {
		// Pencere taştı — cezayı başlat. Bu publish de düşer.
		b.cooldownUntil = now.Add(l.cooldown)
		return false
	}
	return true
}

// RetryAfter, kullanıcının cezasından kalan süreyi döner. Ceza yoksa 0.
// Log satırlarında "şu kadar sonra dene" bilgisi için.
func (l *Limiter) RetryAfter(userID string) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, exists := l.buckets[userID]
	if !exists || b.cooldownUntil.IsZero() {
		return 0
	}

	remaining := time.Until(b.cooldownUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Stop, temizleme goroutine'ini durdurur. İkinci çağrı no-op.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// cleanupLoop, pencere ve cezası bitmiş bucket'ları periyodik siler.
// Bağlanıp giden her kullanıcı bir kayıt bıraktığı için uzun ömürlü
// süreçte map sınırsız büyür — temizlik bunu keser.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep, hem penceresi hem cezası geçmiş bucket'ları düşürür.
func (l *Limiter) sweep() {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for userID, b := range l.buckets {
		windowOver := now.Sub(b.windowStart) > l.window
		cooldownOver := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)
		if windowOver && cooldownOver {
			delete(l.buckets, userID)
		}
	}
}
