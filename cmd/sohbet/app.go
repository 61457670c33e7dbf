package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/akinalp/sohbet/engine"
	"github.com/akinalp/sohbet/models"
)

// engineUpdateMsg, engine'in Updates() kanalından sinyal geldiğini söyler.
// İçinde veri taşımaz — model State() ile güncel snapshot'ı kendisi çeker.
// Sinyal coalesce edildiği için bir msg birden çok değişikliği temsil edebilir.
type engineUpdateMsg struct{}

// Sohbet görünümünde viewport dışında kalan sabit satırlar:
// başlık + bilgi satırı + compose alanı + kısayol satırı.
// Viewport yüksekliği terminal yüksekliğinden bunlar düşülerek bulunur.
const (
	composeHeight = 2
	chromeHeight  = composeHeight + 3
)

// pickerEmoji, emoji picker'ın sabit paleti. Picker açıkken 1-8 tuşları
// compose'a ilgili emojiyi ekler.
var pickerEmoji = []string{"👍", "❤️", "😂", "🎉", "😮", "😢", "👀", "✅"}

// app, bubbletea modeli.
//
// Durumun sahibi HER ZAMAN engine'dir: tuşlar engine'e event atar, engine
// işleyip Updates() üzerinden sinyal verir, model State() ile taze snapshot
// çekip yeniden çizer. Model kendi başına sadece saf görünüm durumu tutar
// (viewport scroll ofseti, liste imleci, geçici durum satırı) — sohbet
// verisinin tek kopyası yoktur, hepsi snap içinden okunur.
type app struct {
	engine *engine.Engine
	selfID string

	snap engine.Snapshot

	vp     viewport.Model
	input  textarea.Model
	search textinput.Model

	width  int
	height int

	listIndex int    // sohbet listesinde seçili satır
	status    string // son komutun tek satırlık geri bildirimi
}

func newApp(eng *engine.Engine, selfID string) app {
	input := textarea.New()
	input.Placeholder = "write a message — / for commands"
	input.ShowLineNumbers = false
	input.CharLimit = 2000 // yazma yolundaki içerik doğrulamasıyla aynı sınır
	input.SetHeight(composeHeight)
	input.Cursor.SetChar("▍")
	input.SetPromptFunc(2, func(_ int) string { return "› " })
	// Enter gönderir; satır içi newline ctrl+j ile eklenir.
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	search := textinput.New()
	search.Placeholder = "search messages"
	search.Prompt = "⌕ "
	search.CharLimit = 200

	return app{
		engine: eng,
		selfID: selfID,
		snap:   eng.State(),
		vp:     viewport.New(0, 0),
		input:  input,
		search: search,
	}
}

func (a app) Init() tea.Cmd {
	return tea.Batch(a.waitForUpdate(), textarea.Blink)
}

// waitForUpdate, engine sinyal kanalını dinleyen tea.Cmd üretir.
// Her engineUpdateMsg işlendiğinde yeniden kurulur — bubbletea'nın
// harici event kaynağı pattern'i.
func (a app) waitForUpdate() tea.Cmd {
	updates := a.engine.Updates()
	return func() tea.Msg {
		<-updates
		return engineUpdateMsg{}
	}
}

func (a app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.layout()
		return a, nil

	case tea.FocusMsg:
		// Terminal focus'u attentive-viewing koşullarından biridir:
		// odak dönünce engine gerekirse unread'i sıfırlar.
		a.engine.SetFocused(true)
		return a, nil

	case tea.BlurMsg:
		a.engine.SetFocused(false)
		return a, nil

	case engineUpdateMsg:
		a.refresh()
		return a, a.waitForUpdate()

	case tea.MouseMsg:
		if a.snap.Phase == engine.PhaseConversationView {
			var cmd tea.Cmd
			a.vp, cmd = a.vp.Update(msg)
			a.syncAtBottom()
			return a, cmd
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

// refresh, engine'den taze snapshot çekip görünüm bileşenlerini hizalar.
//
// Compose senkronu tek yönlü görünür ama iki tarafı da kapsar: kullanıcı
// yazdıkça her tuş SetCompose ile engine'e gider; engine compose'u kendi
// başına değiştirdiğinde (taslak geri yükleme, gönderimde temizleme,
// başarısız gönderimde kurtarma) buradaki karşılaştırma textarea'yı
// yakalar. SetCompose ve State aynı FIFO kanaldan geçtiği için snapshot
// hiçbir zaman son yazılandan eski olamaz — döngü yok.
func (a *app) refresh() {
	a.snap = a.engine.State()

	if a.snap.Compose != a.input.Value() {
		a.input.SetValue(a.snap.Compose)
	}

	// Arama engine tarafında kapanmış olabilir (Back, sohbet değiştirme):
	// focus'u snapshot'a göre hizala.
	if a.snap.SearchOpen && !a.search.Focused() {
		a.search.Focus()
		a.input.Blur()
	} else if !a.snap.SearchOpen && a.search.Focused() {
		a.search.Blur()
		a.search.Reset()
		a.input.Focus()
	}

	if n := len(a.snap.Conversations); n > 0 && a.listIndex >= n {
		a.listIndex = n - 1
	}

	a.rebuildViewport()
}

// layout, pencere boyutuna göre bileşen ölçülerini günceller.
func (a *app) layout() {
	if a.width <= 0 {
		return
	}
	a.vp.Width = a.width
	a.vp.Height = max(a.height-chromeHeight, 3)
	a.input.SetWidth(a.width - 2)
	a.search.Width = max(a.width-8, 10)
	a.rebuildViewport()
}

// rebuildViewport, aktif sohbetin mesajlarını render edip viewport'a basar.
// Kullanıcı en alttaysa yeni içerikle birlikte altta kalır; yukarı
// scroll etmişse ofseti korunur.
func (a *app) rebuildViewport() {
	if a.snap.Phase != engine.PhaseConversationView {
		return
	}
	a.vp.SetContent(a.renderMessages())
	if a.snap.AtBottom {
		a.vp.GotoBottom()
	}
}

// syncAtBottom, viewport'un alt durumunu engine'e bildirir.
// Alta dönüş attentive-viewing testini tamamlayabilir — unread'in
// sıfırlanması bu sinyale bağlıdır.
func (a *app) syncAtBottom() {
	if at := a.vp.AtBottom(); at != a.snap.AtBottom {
		a.engine.SetAtBottom(at)
	}
}

func (a app) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	// Geçici durum satırı bir sonraki tuşta temizlenir.
	a.status = ""

	switch a.snap.Phase {
	case engine.PhaseClosed:
		return a.handleClosedKey(msg)
	case engine.PhaseListView:
		return a.handleListKey(msg)
	case engine.PhaseConversationView:
		return a.handleConversationKey(msg)
	case engine.PhaseMinimized:
		return a.handleMinimizedKey(msg)
	}
	return a, nil
}

func (a app) handleClosedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "o":
		a.engine.Open()
	case "r":
		a.engine.Refresh()
	case "q", "esc":
		return a, tea.Quit
	}
	return a, nil
}

func (a app) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if a.listIndex > 0 {
			a.listIndex--
		}
	case "down", "j":
		if a.listIndex < len(a.snap.Conversations)-1 {
			a.listIndex++
		}
	case "enter":
		if c, ok := a.selectedConversation(); ok {
			a.engine.OpenConversation(c.Key)
		}
	case "m":
		if c, ok := a.selectedConversation(); ok {
			a.engine.ToggleMute(c.Key)
		}
	case "d":
		a.engine.SetDoNotDisturb(!a.snap.DND)
	case "s":
		a.engine.SetSoundEnabled(!a.snap.SoundOn)
	case "r":
		a.engine.Refresh()
	case "esc", "q":
		a.engine.Close()
	}
	return a, nil
}

func (a app) handleMinimizedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "o":
		a.engine.Restore()
	case "esc", "q":
		a.engine.Close()
	}
	return a, nil
}

func (a app) handleConversationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Şema yokken panel kullanılamaz — sadece yeniden dene / geri.
	if a.snap.SetupRequired {
		switch msg.String() {
		case "r":
			a.engine.Refresh()
		case "esc", "q":
			a.engine.Back()
		}
		return a, nil
	}

	// Arama açıkken tuşlar arama kutusuna akar; her değişiklik engine'de
	// görünür listeyi anında filtreler.
	if a.snap.SearchOpen {
		switch msg.String() {
		case "esc", "ctrl+f":
			a.engine.ToggleSearch()
			return a, nil
		case "enter":
			// Arama canlı çalışır — enter'ın ek işi yok.
			return a, nil
		}
		var cmd tea.Cmd
		a.search, cmd = a.search.Update(msg)
		a.engine.SetSearchQuery(a.search.Value())
		return a, cmd
	}

	// Emoji picker modaldır: rakam seçer, esc kapatır, gerisi yutulur.
	if a.snap.EmojiOpen {
		switch key := msg.String(); key {
		case "esc", "ctrl+e":
			a.engine.ToggleEmoji()
		default:
			if len(key) == 1 && key[0] >= '1' && key[0] <= '8' {
				a.input.InsertString(pickerEmoji[key[0]-'1'])
				a.engine.ToggleEmoji()
				a.pushCompose()
			}
		}
		return a, nil
	}

	switch msg.String() {
	case "esc":
		a.engine.Back()
		return a, nil
	case "ctrl+f":
		a.engine.ToggleSearch()
		return a, nil
	case "ctrl+e":
		a.engine.ToggleEmoji()
		return a, nil
	case "ctrl+b":
		a.engine.Minimize()
		return a, nil
	case "enter":
		return a.submitCompose()
	case "ctrl+j":
		a.input.InsertString("\n")
		a.pushCompose()
		return a, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		a.vp, cmd = a.vp.Update(msg)
		a.syncAtBottom()
		return a, cmd
	case "home":
		a.vp.GotoTop()
		a.syncAtBottom()
		return a, nil
	case "end":
		a.vp.GotoBottom()
		a.syncAtBottom()
		return a, nil
	}

	// Geri kalan her tuş compose'a. Her değişiklik engine'e itilir:
	// taslak takibi ve "yazıyor" sinyali oradan beslenir.
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.pushCompose()
	return a, cmd
}

func (a *app) pushCompose() {
	a.engine.SetCompose(a.input.Value())
}

func (a app) submitCompose() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(a.input.Value())
	if value == "" {
		return a, nil
	}

	if strings.HasPrefix(value, "/") {
		a.runCommand(value)
		a.input.Reset()
		a.pushCompose() // komut metni taslak değildir — engine tarafını da temizle
		return a, nil
	}

	a.engine.Send(value, "")
	a.input.Reset()
	return a, nil
}

func (a app) selectedConversation() (models.Conversation, bool) {
	if a.listIndex < 0 || a.listIndex >= len(a.snap.Conversations) {
		return models.Conversation{}, false
	}
	return a.snap.Conversations[a.listIndex], true
}
