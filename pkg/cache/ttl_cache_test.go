package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGetDelete(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", 1)

	val, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, val)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestExpiredEntryNotReturned(t *testing.T) {
	// Cleanup interval uzun — süre kontrolü Get içinde yapılmalı
	c := New[string, string](30*time.Millisecond, time.Minute)
	defer c.Close()

	c.Set("a", "x")
	time.Sleep(60 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok, "süresi dolan entry dönmemeli")
}

func TestSetResetsExpiry(t *testing.T) {
	c := New[string, string](80*time.Millisecond, time.Minute)
	defer c.Close()

	c.Set("a", "x")
	time.Sleep(50 * time.Millisecond)

	// Heartbeat yenileme senaryosu: tekrar Set süreyi sıfırlar
	c.Set("a", "x")
	time.Sleep(50 * time.Millisecond)

	_, ok := c.Get("a")
	assert.True(t, ok, "yenilenen entry hâlâ canlı olmalı")
}

func TestItemsSkipsExpired(t *testing.T) {
	c := New[string, int](40*time.Millisecond, time.Minute)
	defer c.Close()

	c.Set("eski", 1)
	time.Sleep(60 * time.Millisecond)
	c.Set("yeni", 2)

	items := c.Items()
	assert.Equal(t, map[string]int{"yeni": 2}, items)

	// Dönen map kopyadır — değiştirmek cache'i etkilememeli
	items["yeni"] = 99
	val, ok := c.Get("yeni")
	assert.True(t, ok)
	assert.Equal(t, 2, val)
}
