package main

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/akinalp/sohbet/engine"
	"github.com/akinalp/sohbet/models"
)

// ─── Stiller ─────────────────────────────────────────────────────────────────

var (
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	accentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	badgeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("161")).Padding(0, 1)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	idleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tombstoneStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240"))
	mentionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("221"))
)

// authorPalette, yazar adlarını ID'den türetilmiş sabit bir renge boyar.
// Aynı kullanıcı her oturumda aynı rengi alır.
var authorPalette = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("79")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("135")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("80")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("168")),
}

func authorStyle(userID string) lipgloss.Style {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return authorPalette[h.Sum32()%uint32(len(authorPalette))]
}

// ─── Faz görünümleri ─────────────────────────────────────────────────────────

func (a app) View() string {
	if a.width == 0 {
		return "starting…"
	}

	switch a.snap.Phase {
	case engine.PhaseClosed:
		return a.viewClosed()
	case engine.PhaseListView:
		return a.viewList()
	case engine.PhaseConversationView:
		return a.viewConversation()
	case engine.PhaseMinimized:
		return a.viewMinimized()
	}
	return ""
}

func (a app) viewClosed() string {
	lines := []string{
		headerStyle.Padding(0, 2).Render("sohbet"),
		"",
		a.connLabel(),
	}

	if a.snap.UnreadTotal > 0 {
		lines = append(lines, "", badgeStyle.Render(fmt.Sprintf("%d unread", a.snap.UnreadTotal)))
	}

	lines = append(lines, "", dimStyle.Render("enter open · q quit"))

	box := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

func (a app) viewList() string {
	var b strings.Builder

	title := "sohbet"
	if a.snap.UnreadTotal > 0 {
		title = fmt.Sprintf("sohbet (%d)", a.snap.UnreadTotal)
	}
	b.WriteString(headerStyle.Width(a.width).Render(padLine(" "+title, a.statusIcons()+" ", a.width)))
	b.WriteByte('\n')

	for i, c := range a.snap.Conversations {
		b.WriteByte('\n')
		b.WriteString(a.renderListRow(i, c))
	}

	if len(a.snap.Conversations) == 0 {
		b.WriteString("\n" + dimStyle.Render("  no conversations yet"))
	}

	footer := a.infoLine()
	if footer == "" {
		footer = dimStyle.Render("enter open · m mute · d dnd · s sound · r refresh · esc close")
	}

	body := b.String()
	used := lipgloss.Height(body) + 1
	if pad := a.height - used; pad > 0 {
		body += strings.Repeat("\n", pad)
	}
	return body + "\n" + footer
}

func (a app) renderListRow(i int, c models.Conversation) string {
	cursor, title := "  ", a.conversationTitle(c)
	if i == a.listIndex {
		cursor, title = selectedStyle.Render("❯ "), selectedStyle.Render(title)
	}

	left := cursor + a.presenceDot(c.Key) + " " + title
	if c.UnreadCount > 0 {
		left += " " + badgeStyle.Render(fmt.Sprintf("%d", c.UnreadCount))
	}
	if c.Muted {
		left += " " + dimStyle.Render("muted")
	}

	return padLine(left, dimStyle.Render(formatActivity(c.LastActivity))+" ", a.width)
}

func (a app) viewConversation() string {
	if a.snap.SetupRequired {
		return a.viewSetupRequired()
	}

	var b strings.Builder

	title := a.activeTitle()
	b.WriteString(headerStyle.Width(a.width).Render(padLine(" "+title, a.connLabel()+" ", a.width)))
	b.WriteByte('\n')

	b.WriteString(a.vp.View())
	b.WriteByte('\n')

	b.WriteString(a.infoLine())
	b.WriteByte('\n')

	if a.snap.SearchOpen {
		b.WriteString(a.search.View())
		b.WriteString(strings.Repeat("\n", composeHeight-1))
	} else {
		b.WriteString(a.input.View())
	}
	b.WriteByte('\n')

	b.WriteString(dimStyle.Render("enter send · ctrl+j newline · ctrl+f find · ctrl+e emoji · ctrl+b minimize · esc back"))

	return b.String()
}

func (a app) viewMinimized() string {
	label := "sohbet minimized"
	if a.snap.UnreadTotal > 0 {
		label = fmt.Sprintf("sohbet minimized — %d unread", a.snap.UnreadTotal)
	}

	bar := lipgloss.JoinVertical(lipgloss.Center,
		headerStyle.Padding(0, 2).Render(label),
		"",
		dimStyle.Render("enter restore · esc close"),
	)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, bar)
}

// viewSetupRequired: mirror'ın konuştuğu tablo yok. Panel kullanılabilir
// durumda değildir; kullanıcıya tek yapması gerekeni söyleriz.
func (a app) viewSetupRequired() string {
	box := lipgloss.JoinVertical(lipgloss.Center,
		errorStyle.Render("database schema missing"),
		"",
		"The messages table does not exist yet.",
		"Start the relay daemon once to apply migrations:",
		"",
		accentStyle.Render("  sohbetd"),
		"",
		dimStyle.Render("r retry · esc back"),
	)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

// ─── Mesaj akışı ─────────────────────────────────────────────────────────────

// renderMessages, viewport içeriğini üretir: aktif sohbetin mesajları
// eskiden yeniye, her biri meta satırı + gövde (+ yanıt alıntısı,
// reaction özeti) olarak.
func (a app) renderMessages() string {
	msgs := a.snap.Messages

	if len(msgs) == 0 {
		switch {
		case a.snap.SearchOpen && strings.TrimSpace(a.snap.SearchQuery) != "":
			return dimStyle.Render("  no matches")
		case a.snap.Loading:
			return dimStyle.Render("  loading…")
		default:
			return dimStyle.Render("  no messages yet — say hi")
		}
	}

	var b strings.Builder
	for i := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(a.renderMessage(&msgs[i]))
	}
	return b.String()
}

func (a app) renderMessage(m *models.Message) string {
	var b strings.Builder

	// Meta satırı: kısa ID, saat, yazar, işaretler.
	meta := dimStyle.Render(shortID(m.ID)+" "+m.CreatedAt.Local().Format("15:04")) + " "
	if m.AuthorID == a.selfID {
		meta += accentStyle.Render(a.name(m.AuthorID))
	} else {
		meta += authorStyle(m.AuthorID).Render(a.name(m.AuthorID))
	}
	if m.Pinned {
		meta += " 📌"
	}
	if m.EditedAt != nil && !m.IsDeleted() {
		meta += dimStyle.Render(" (edited)")
	}
	if a.mentionsSelf(m) {
		meta += " " + mentionStyle.Render("@you")
	}
	if m.AuthorID == a.selfID {
		if n := othersWhoRead(m, a.selfID); n > 0 {
			meta += dimStyle.Render(fmt.Sprintf(" ✓%d", n))
		}
	}
	b.WriteString(meta)
	b.WriteByte('\n')

	// Yanıt alıntıları: gönderim anındaki snapshot, parent sonradan
	// değişmiş olsa bile.
	for _, rr := range m.ReplyRefs {
		quote := "  ↳ " + a.name(rr.AuthorID) + ": " + rr.Snippet
		b.WriteString(dimStyle.Render(truncate(quote, a.width-2)))
		b.WriteByte('\n')
	}

	// Gövde.
	if m.IsDeleted() {
		b.WriteString("  " + tombstoneStyle.Render("(message deleted)"))
		b.WriteByte('\n')
	} else {
		body := lipgloss.NewStyle().Width(max(a.width-4, 10)).Render(m.Content)
		for _, line := range strings.Split(body, "\n") {
			b.WriteString("  " + line)
			b.WriteByte('\n')
		}
	}

	if line := a.renderReactions(m); line != "" {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

// renderReactions, reaction'ları emojiye göre gruplar: "👍 2 · ❤️ 1".
// Kullanıcının kendi reaction'ı vurgulanır.
func (a app) renderReactions(m *models.Message) string {
	if len(m.Reactions) == 0 || m.IsDeleted() {
		return ""
	}

	counts := make(map[string]int)
	mine := make(map[string]bool)
	var order []string
	for _, r := range m.Reactions {
		if counts[r.Emoji] == 0 {
			order = append(order, r.Emoji)
		}
		counts[r.Emoji]++
		if r.UserID == a.selfID {
			mine[r.Emoji] = true
		}
	}

	parts := make([]string, 0, len(order))
	for _, emoji := range order {
		s := fmt.Sprintf("%s %d", emoji, counts[emoji])
		if mine[emoji] {
			s = accentStyle.Render(s)
		} else {
			s = dimStyle.Render(s)
		}
		parts = append(parts, s)
	}
	return "  " + strings.Join(parts, dimStyle.Render(" · "))
}

// ─── Parçalar ────────────────────────────────────────────────────────────────

// infoLine, tek satırlık durum alanının içeriğini öncelik sırasıyla seçer:
// emoji picker > hata > komut geri bildirimi > arama sonucu > yazıyor.
func (a app) infoLine() string {
	if a.snap.EmojiOpen {
		parts := make([]string, len(pickerEmoji))
		for i, e := range pickerEmoji {
			parts[i] = fmt.Sprintf("%d %s", i+1, e)
		}
		return accentStyle.Render(strings.Join(parts, "  ")) + dimStyle.Render("  esc close")
	}
	if a.snap.LastError != "" {
		return errorStyle.Render("✗ " + truncate(a.snap.LastError, a.width-2))
	}
	if a.status != "" {
		return truncate(a.status, a.width-2)
	}
	if a.snap.SearchOpen && strings.TrimSpace(a.snap.SearchQuery) != "" {
		return dimStyle.Render(fmt.Sprintf("%d match(es)", len(a.snap.Messages)))
	}
	if line := typingLine(a.snap.Typing); line != "" {
		return dimStyle.Render(line)
	}
	return ""
}

func typingLine(typing []engine.TypingIndicator) string {
	switch len(typing) {
	case 0:
		return ""
	case 1:
		return typing[0].Username + " is typing…"
	case 2:
		return typing[0].Username + " and " + typing[1].Username + " are typing…"
	default:
		return "several people are typing…"
	}
}

func (a app) statusIcons() string {
	icons := a.connLabel()
	if a.snap.DND {
		icons += " · dnd"
	}
	if !a.snap.SoundOn {
		icons += " · silent"
	}
	return icons
}

func (a app) connLabel() string {
	switch {
	case a.snap.Loading:
		return idleStyle.Render("⟳ syncing")
	case a.snap.Connected:
		return okStyle.Render("● live")
	default:
		return dimStyle.Render("○ offline")
	}
}

// presenceDot, DM satırları için karşı tarafın durumunu, broadcast için
// nötr bir işaret döner.
func (a app) presenceDot(key string) string {
	if !models.IsDirect(key) {
		return dimStyle.Render("#")
	}
	switch a.snap.Presence[key] {
	case models.PresenceOnline:
		return okStyle.Render("●")
	case models.PresenceIdle:
		return idleStyle.Render("◐")
	default:
		return dimStyle.Render("○")
	}
}

func (a app) conversationTitle(c models.Conversation) string {
	if c.Key == models.BroadcastKey {
		return "team chat"
	}
	if c.Name != "" {
		return c.Name
	}
	return a.name(c.Key)
}

func (a app) activeTitle() string {
	key := a.snap.ActiveKey
	if key == models.BroadcastKey {
		return "# team chat"
	}
	return "@ " + a.name(key)
}

// name, kullanıcı ID'sini görünen ada çevirir. Ad henüz öğrenilmediyse
// kısa ID gösterilir — relay'den ilk mesaj veya presence gelince düzelir.
func (a app) name(userID string) string {
	if userID == a.selfID {
		return "you"
	}
	if n := a.snap.Names[userID]; n != "" {
		return n
	}
	return shortID(userID)
}

func (a app) mentionsSelf(m *models.Message) bool {
	for _, id := range m.Mentions {
		if id == a.selfID {
			return true
		}
	}
	return false
}

func othersWhoRead(m *models.Message, selfID string) int {
	n := 0
	for _, id := range m.ReadBy {
		if id != selfID {
			n++
		}
	}
	return n
}

// padLine, left ve right'ı aynı satırda iki yana yaslar. Ölçüm ANSI
// farkındalığıyla yapılır — stillenmiş parçalar doğru hizalanır.
func padLine(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func truncate(s string, limit int) string {
	if limit < 4 || lipgloss.Width(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit-1 {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func formatActivity(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	local := t.Local()
	now := time.Now()
	if local.Year() == now.Year() && local.YearDay() == now.YearDay() {
		return local.Format("15:04")
	}
	return local.Format("Jan 2")
}
