package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// termNotifier, engine.Notifier'ın terminal-native implementasyonu.
//
// Ses BEL karakteridir (\a), bildirim OSC 9 escape dizisidir — ikisi de
// tty'ye yazılır ve SSH üzerinden LOKAL terminale ulaşır. Masaüstü
// bildirim daemon'ları (D-Bus vb.) uzak makinede anlamsızdır; sohbet
// çoğunlukla SSH oturumlarında çalıştığı için terminal yolu doğru yol.
// OSC 9'u tanımayan terminaller diziyi sessizce yutar.
//
// Yazılar stderr'e gider: bubbletea stdout'u alternatif ekranda kullanır,
// stderr aynı tty'dir ama render pipeline'ına karışmaz. Kontrol dizileri
// görünür çıktı üretmediği için ekran bozulmaz.
type termNotifier struct {
	mu  sync.Mutex
	out *os.File
}

func newTermNotifier() *termNotifier {
	return &termNotifier{out: os.Stderr}
}

func (n *termNotifier) PlaySound() {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprint(n.out, "\a")
}

func (n *termNotifier) Notify(title, body string) {
	// OSC 9 tek satır metin taşır; escape dizisini kıracak karakterleri ayıkla
	text := sanitizeOSC(title)
	if body != "" {
		text += ": " + sanitizeOSC(body)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "\x1b]9;%s\x07", text)
}

// sanitizeOSC, OSC payload'ından kontrol karakterlerini temizler.
// ESC veya BEL payload içinde kalırsa terminal diziyi erken sonlandırır.
func sanitizeOSC(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}
