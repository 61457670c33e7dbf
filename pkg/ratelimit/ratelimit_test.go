package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinWindow(t *testing.T) {
	lim := New(3, time.Minute, time.Minute)
	defer lim.Stop()

	assert.True(t, lim.Allow("u1"))
	assert.True(t, lim.Allow("u1"))
	assert.True(t, lim.Allow("u1"))
	assert.False(t, lim.Allow("u1"), "pencereyi taşıran publish düşmeli")
}

func TestUsersIsolated(t *testing.T) {
	lim := New(1, time.Minute, time.Minute)
	defer lim.Stop()

	assert.True(t, lim.Allow("u1"))
	assert.False(t, lim.Allow("u1"))
	assert.True(t, lim.Allow("u2"), "bir kullanıcının cezası diğerini etkilememeli")
}

func TestCooldownSilencesUntilExpiry(t *testing.T) {
	lim := New(1, 10*time.Millisecond, 500*time.Millisecond)
	defer lim.Stop()

	assert.True(t, lim.Allow("u1"))
	assert.False(t, lim.Allow("u1"), "taşan publish cezayı başlatır")

	// Pencere çoktan doldu ama ceza sürüyor — her publish düşer
	time.Sleep(50 * time.Millisecond)
	assert.False(t, lim.Allow("u1"))
	assert.Positive(t, lim.RetryAfter("u1"))

	// Ceza bitti — temiz pencereyle döner
	time.Sleep(600 * time.Millisecond)
	assert.True(t, lim.Allow("u1"))
	assert.Zero(t, lim.RetryAfter("u1"))
}

func TestWindowResetsAfterExpiry(t *testing.T) {
	lim := New(2, 20*time.Millisecond, time.Minute)
	defer lim.Stop()

	assert.True(t, lim.Allow("u1"))
	assert.True(t, lim.Allow("u1"))

	// Pencere taşmadan doldu — yeni pencere sayacı sıfırdan başlar
	time.Sleep(50 * time.Millisecond)
	assert.True(t, lim.Allow("u1"))
	assert.True(t, lim.Allow("u1"))
}

func TestRetryAfterZeroWithoutCooldown(t *testing.T) {
	lim := New(5, time.Minute, time.Minute)
	defer lim.Stop()

	assert.Zero(t, lim.RetryAfter("hiç-görülmemiş"))

	lim.Allow("u1")
	assert.Zero(t, lim.RetryAfter("u1"), "ceza yokken RetryAfter sıfır olmalı")
}

func TestSweepDropsExpiredBuckets(t *testing.T) {
	lim := New(1, 5*time.Millisecond, 5*time.Millisecond)
	defer lim.Stop()

	lim.Allow("u1")
	lim.Allow("u2")
	lim.Allow("u2") // u2 cezaya girdi

	time.Sleep(50 * time.Millisecond)
	lim.sweep()

	lim.mu.RLock()
	defer lim.mu.RUnlock()
	assert.Empty(t, lim.buckets, "süresi geçmiş bucket'lar silinmeli")
}

func TestStopIsIdempotent(t *testing.T) {
	lim := New(1, time.Minute, time.Minute)
	lim.Stop()
	lim.Stop() // panic etmemeli
}
