package main

import (
	"fmt"
	"strings"
)

// Slash komutları mesaj seviyesindeki işlemlerin klavye yoludur: yanıt,
// düzenleme, silme, reaction, pin, görev. Mesajlar tam UUID yerine benzersiz
// bir ID ÖNEKİ ile seçilir — görünümde her mesajın yanında ilk 8 karakter
// durur, o kadarını yazmak yeter.

const helpText = "/reply <id> <text> · /edit <id> <text> · /del <id> · /react <id> <emoji> · /pin <id> · /task <id> · /mute · /dnd · /sound · /refresh"

// runCommand, "/" ile başlayan compose içeriğini çalıştırır.
// Sonuç (veya hata) durum satırına yazılır; mesaj akışına hiçbir şey girmez.
func (a *app) runCommand(raw string) {
	parts := strings.SplitN(raw, " ", 3)
	cmd := parts[0]

	// İki argümanlı komutlar: ilk token ID, kalanı serbest metin.
	arg, rest := "", ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		rest = strings.TrimSpace(parts[2])
	}

	switch cmd {
	case "/reply":
		if arg == "" || rest == "" {
			a.status = "usage: /reply <id> <text>"
			return
		}
		id, ok := a.resolveID(arg)
		if !ok {
			return
		}
		a.engine.Send(rest, id)

	case "/edit":
		if arg == "" || rest == "" {
			a.status = "usage: /edit <id> <text>"
			return
		}
		id, ok := a.resolveID(arg)
		if !ok {
			return
		}
		a.engine.Edit(id, rest)

	case "/del":
		if arg == "" {
			a.status = "usage: /del <id>"
			return
		}
		id, ok := a.resolveID(arg)
		if !ok {
			return
		}
		a.engine.Delete(id)

	case "/react":
		if arg == "" || rest == "" {
			a.status = "usage: /react <id> <emoji>"
			return
		}
		id, ok := a.resolveID(arg)
		if !ok {
			return
		}
		a.engine.React(id, rest)

	case "/pin":
		if arg == "" {
			a.status = "usage: /pin <id>"
			return
		}
		id, ok := a.resolveID(arg)
		if !ok {
			return
		}
		a.engine.TogglePin(id)

	case "/task":
		if arg == "" {
			a.status = "usage: /task <id>"
			return
		}
		id, ok := a.resolveID(arg)
		if !ok {
			return
		}
		a.engine.CreateTaskFromMessage(id)
		a.status = "task created from message " + shortID(id)

	case "/mute":
		a.engine.ToggleMute(a.snap.ActiveKey)

	case "/dnd":
		a.engine.SetDoNotDisturb(!a.snap.DND)

	case "/sound":
		a.engine.SetSoundEnabled(!a.snap.SoundOn)

	case "/refresh":
		a.engine.Refresh()
		a.status = "refreshing…"

	case "/help":
		a.status = helpText

	default:
		a.status = fmt.Sprintf("unknown command %s — try /help", cmd)
	}
}

// resolveID, bir ID önekini görünür mesajlar arasında tam ID'ye çözer.
// Önek tam olarak bir mesaja uymalıdır; aksi halde durum satırına hata
// yazılır ve komut çalışmaz.
func (a *app) resolveID(prefix string) (string, bool) {
	prefix = strings.ToLower(prefix)

	var match string
	for i := range a.snap.Messages {
		id := a.snap.Messages[i].ID
		if !strings.HasPrefix(strings.ToLower(id), prefix) {
			continue
		}
		if match != "" && match != id {
			a.status = fmt.Sprintf("ambiguous id %q — type more characters", prefix)
			return "", false
		}
		match = id
	}

	if match == "" {
		a.status = fmt.Sprintf("no visible message with id %q", prefix)
		return "", false
	}
	return match, true
}

// shortID, UUID'nin görünümde kullanılan kısa halini döner.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
