// Package engine, chat panelinin durum makinesidir: uzak append-only mesaj
// log'unun lokal aynasını (mirror) tutar ve üç gerçek zamanlı akışı
// (mesaj değişiklikleri, typing, presence) bu aynayla birleştirir.
//
// Tek goroutine modeli:
// Tüm state TEK bir goroutine'e aittir — Run() loop'u. Dışarıdan gelen
// her şey (relay callback'leri, kullanıcı aksiyonları, timer'lar, yazı
// sonuçları) birer event olarak events channel'ına post edilir ve sırayla
// işlenir. Bu sayede:
// 1. Hiçbir state alanı mutex istemez — data race imkânsız
// 2. Event işleme sırası deterministiktir — testler loop başlatmadan
//    handle()'ı doğrudan çağırır
// 3. I/O asla loop'u bloklamaz — fetch, SQL yazıları, publish'ler ayrı
//    goroutine'lerde koşar, SONUÇLARI event olarak geri gelir
//
// Optimistic write akışı:
// Kullanıcı aksiyonu önce lokal state'e uygulanır (UI anında tepki verir),
// sonra yazı goroutine'de başlar. pending map'i her in-flight yazı için
// bir revert closure tutar: yazı başarısız olursa closure lokal değişikliği
// geri alır ve varsa compose metnini kurtarır. Başarılı yazının satır
// imajı relay'den echo olarak döner ve idempotent merge absorbe eder.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/akinalp/sohbet/backend"
	"github.com/akinalp/sohbet/models"
	"github.com/akinalp/sohbet/prefs"
)

const (
	// typingTTL: Bir yazarın typing göstergesinin ömrü.
	// Yeni broadcast süreyi sıfırlar; süre dolunca gösterge söner.
	typingTTL = 3 * time.Second

	// presenceInterval: Kendi presence'ımızı yayınlama sıklığı.
	// Relay tarafındaki roster cache TTL'i bunun 3 katıdır.
	presenceInterval = 30 * time.Second

	// typingThrottle: Kendi typing sinyalimizi en sık bu aralıkla yayınlarız.
	// Her tuş vuruşunda broadcast etmek relay'i boğar.
	typingThrottle = 2 * time.Second

	// eventBufferSize: events channel buffer'ı. Dolarsa post blocking'e
	// döner — relay okuma goroutine'i doğal backpressure uygular.
	eventBufferSize = 256

	// notifyBodyLimit: Sistem bildirimi gövdesinin maksimum karakter sayısı.
	notifyBodyLimit = 100

	// fetchTimeout: Full fetch için üst sınır.
	fetchTimeout = 30 * time.Second

	// writeTimeout: Tek bir uzak yazı (insert, update, receipt) için üst sınır.
	writeTimeout = 10 * time.Second
)

// Config, engine'in tüm dış bağımlılıkları.
//
// Hepsi enjekte edilir — engine hiçbir global'e uzanmaz. Testler Store'u
// ve Notifier'ı fake'ler, Prefs'e in-memory store geçer, Realtime'ı
// hiç vermez (nil) ve event'leri elle post eder.
type Config struct {
	UserID   string
	Username string

	Store    backend.Store
	Realtime backend.Realtime
	Prefs    prefs.Store
	Notifier Notifier

	// OnCreateTask, "mesajdan görev oluştur" aksiyonunun çıkış noktası.
	// Engine görev kaydetmez — taslağı üretir, gerisi çağıranın işi.
	OnCreateTask func(models.TaskDraft)

	// FetchLimit, aktivasyonda çekilecek mesaj sayısı (0 → 500).
	FetchLimit int
}

// typingState, bir yazarın aktif typing göstergesi.
type typingState struct {
	username        string
	conversationKey string
	gen             int64
}

// presenceState, bir kullanıcının son bilinen durumu.
// Süresi dolmaz — offline da bir durumdur, yokluk değil.
type presenceState struct {
	username string
	status   models.PresenceStatus
}

// Engine, panel durumunun tek sahibi.
type Engine struct {
	cfg Config

	events  chan event
	updates chan struct{}
	done    chan struct{}
	closing sync.Once

	// ─── Loop-owned state ───
	// Aşağıdaki alanlara SADECE loop goroutine'i dokunur. Mutex yok —
	// dış dünya events channel'ından geçmek zorunda.

	messages         map[string]models.Message // mirror: ID → satır imajı
	participantOrder []string                  // DM partner'ları ilk görülme sırasıyla
	participantSeen  map[string]bool

	typing       map[string]typingState // authorID → gösterge
	typingTimers map[string]*time.Timer
	typingGen    map[string]int64

	presence map[string]presenceState // userID → durum
	unread   map[string]int           // conversationKey → sayaç
	names    map[string]string        // userID → görünen ad (typing/presence'tan damlar)

	phase       PanelPhase
	active      string // aktif conversation key (ConversationView/Minimized)
	atBottom    bool
	focused     bool
	compose     string
	searchOpen  bool
	searchQuery string
	emojiOpen   bool

	connected     bool
	loading       bool
	setupRequired bool
	lastError     string

	dnd     bool
	soundOn bool
	muted   map[string]bool
	drafts  map[string]string // conversationKey → gönderilmemiş compose metni

	pending map[string]func() // opID → revert closure

	lastTypingSent time.Time
}

// New, engine'i kurar: prefs snapshot'ı alınır, relay callback'leri
// kaydedilir. Loop HENÜZ çalışmaz — `go e.Run()` çağıranın işi.
//
// Callback kaydı Run'dan önce yapılır ki Subscribe yanıtıyla gelen
// presence roster replay'i kaçmasın (event'ler buffer'da bekler).
func New(cfg Config) *Engine {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 500
	}

	e := &Engine{
		cfg:             cfg,
		events:          make(chan event, eventBufferSize),
		updates:         make(chan struct{}, 1),
		done:            make(chan struct{}),
		messages:        make(map[string]models.Message),
		participantSeen: make(map[string]bool),
		typing:          make(map[string]typingState),
		typingTimers:    make(map[string]*time.Timer),
		typingGen:       make(map[string]int64),
		presence:        make(map[string]presenceState),
		unread:          make(map[string]int),
		names:           make(map[string]string),
		pending:         make(map[string]func()),
		phase:           PhaseClosed,
		atBottom:        true,
		focused:         true,
		soundOn:         true,
	}

	e.loadPrefs()
	e.noteName(cfg.UserID, cfg.Username)

	if rt := cfg.Realtime; rt != nil {
		rt.OnChange(func(ev backend.ChangeEvent) { e.post(evChange{change: ev}) })
		rt.OnTyping(func(ev backend.TypingEvent) { e.post(evTyping{typing: ev}) })
		rt.OnPresence(func(ev backend.PresenceEvent) { e.post(evPresence{presence: ev}) })
		rt.OnStatus(func(connected bool) { e.post(evStatus{connected: connected}) })
	}

	return e
}

// loadPrefs, lokal tercihlerin başlangıç snapshot'ını alır.
// Okuma hatası ölümcül değildir — varsayılanlarla devam edilir.
func (e *Engine) loadPrefs() {
	e.muted = make(map[string]bool)
	e.drafts = make(map[string]string)

	p := e.cfg.Prefs
	if p == nil {
		return
	}

	if dnd, err := p.DoNotDisturb(); err == nil {
		e.dnd = dnd
	} else {
		log.Printf("[engine] failed to load DND pref: %v", err)
	}

	if sound, err := p.SoundEnabled(); err == nil {
		e.soundOn = sound
	} else {
		log.Printf("[engine] failed to load sound pref: %v", err)
	}

	if keys, err := p.MutedConversations(); err == nil {
		for _, key := range keys {
			e.muted[key] = true
		}
	} else {
		log.Printf("[engine] failed to load muted conversations: %v", err)
	}

	if drafts, err := p.Drafts(); err == nil {
		e.drafts = drafts
	} else {
		log.Printf("[engine] failed to load drafts: %v", err)
	}
}

// Run, engine'in ana event loop'udur — `go engine.Run()` ile başlatılır.
// Shutdown çağrılana kadar döner.
func (e *Engine) Run() {
	// Aktivasyon: önce abone ol, SONRA full fetch başlat.
	// Bu sıra kritiktir — fetch sırasında gelen event'ler buffer'da
	// bekler ve fetch bitince idempotent merge ile absorbe edilir.
	// Ters sırada arada olan değişiklikler sonsuza dek kaçardı.
	if rt := e.cfg.Realtime; rt != nil {
		if err := rt.Subscribe(); err != nil {
			log.Printf("[engine] subscribe failed: %v", err)
			e.lastError = err.Error()
		}
	}
	e.startFetch()

	ticker := time.NewTicker(presenceInterval)
	defer ticker.Stop()

	e.broadcastPresence()

	for {
		select {
		case ev := <-e.events:
			e.handle(ev)
			// Snapshot isteği salt okumadır — sinyal üretmez. Üretseydi
			// her State() çağrısı yeni bir çizim turu tetikler ve UI
			// kendi kendini sonsuza dek uyandırırdı.
			if _, readOnly := ev.(evStateReq); !readOnly {
				e.signalUpdate()
			}

		case <-ticker.C:
			e.broadcastPresence()

		case <-e.done:
			e.teardown()
			return
		}
	}
}

// handle, tek bir event'i işler. Loop goroutine'inden (veya testlerden
// doğrudan) çağrılır — başka yerden ASLA.
func (e *Engine) handle(ev event) {
	switch ev := ev.(type) {
	case evChange:
		e.handleChange(ev.change)
	case evTyping:
		e.handleTyping(ev.typing)
	case evPresence:
		e.handlePresence(ev.presence)
	case evStatus:
		e.connected = ev.connected
	case evFetchDone:
		e.handleFetchDone(ev)
	case evWriteDone:
		e.handleWriteDone(ev)
	case evTypingExpired:
		e.handleTypingExpired(ev)

	case evOpenPanel:
		e.handleOpenPanel()
	case evClosePanel:
		e.handleClosePanel()
	case evMinimize:
		e.handleMinimize()
	case evRestore:
		e.handleRestore()
	case evBackToList:
		e.handleBackToList()
	case evOpenConversation:
		e.handleOpenConversation(ev.key)
	case evSetAtBottom:
		e.handleSetAtBottom(ev.atBottom)
	case evSetFocused:
		e.focused = ev.focused
	case evSetCompose:
		e.handleSetCompose(ev.text)
	case evToggleSearch:
		e.handleToggleSearch()
	case evSetSearchQuery:
		e.handleSetSearchQuery(ev.query)
	case evToggleEmoji:
		e.handleToggleEmoji()

	case evSend:
		e.handleSend(ev)
	case evEdit:
		e.handleEdit(ev)
	case evSoftDelete:
		e.handleSoftDelete(ev)
	case evReact:
		e.handleReact(ev)
	case evTogglePin:
		e.handleTogglePin(ev)
	case evCreateTask:
		e.handleCreateTask(ev)
	case evToggleMute:
		e.handleToggleMute(ev.key)
	case evSetDND:
		e.handleSetDND(ev.on)
	case evSetSound:
		e.handleSetSound(ev.on)
	case evRefresh:
		e.startFetch()

	case evStateReq:
		ev.reply <- e.snapshot()
	}
}

// post, bir event'i loop'a gönderir. Her goroutine'den güvenle çağrılır.
// Engine kapanmışsa event sessizce düşer — kapanış sırasında gelen
// relay callback'leri deadlock yaratmaz.
func (e *Engine) post(ev event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

// signalUpdate, UI'a "state değişti, yeniden çiz" sinyali verir.
// Channel 1 buffer'lıdır ve doluysa sinyal düşer — UI zaten çizecek.
func (e *Engine) signalUpdate() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

// Updates, state her değiştiğinde sinyal veren channel'ı döner.
// Sinyaller coalesce edilir: N değişiklik 1 sinyale inebilir,
// UI her sinyalde State() ile güncel snapshot'ı çeker.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

// State, güncel durumun kopyasını döner (thread-safe).
// Snapshot loop içinde üretilir — yarıda kalmış state görülemez.
func (e *Engine) State() Snapshot {
	reply := make(chan Snapshot, 1)
	e.post(evStateReq{reply: reply})

	select {
	case s := <-reply:
		return s
	case <-e.done:
		return Snapshot{}
	}
}

// Shutdown, loop'u durdurur ve kaynakları bırakır. İkinci çağrı no-op.
func (e *Engine) Shutdown() {
	e.closing.Do(func() { close(e.done) })
}

// teardown, loop goroutine'inde çalışır: aktif taslak kalıcılaştırılır,
// timer'lar durdurulur, relay bağlantısı (üç aboneliğiyle birlikte) kapatılır.
func (e *Engine) teardown() {
	// Kullanıcı yazarken kapatılan uygulama taslağını kaybetmesin.
	// Buradaki yazı SENKRON — process çıkmak üzereyken goroutine'e
	// bırakılan bir disk yazısı hedefe ulaşamayabilir.
	if e.active != "" && e.drafts[e.active] != e.compose {
		if p := e.cfg.Prefs; p != nil {
			if err := p.SetDraft(e.active, e.compose); err != nil {
				log.Printf("[engine] failed to persist draft for %s: %v", e.active, err)
			}
		}
	}

	for author, timer := range e.typingTimers {
		timer.Stop()
		delete(e.typingTimers, author)
	}

	if rt := e.cfg.Realtime; rt != nil {
		if err := rt.Close(); err != nil {
			log.Printf("[engine] realtime close failed: %v", err)
		}
	}

	log.Println("[engine] shut down")
}

// startFetch, mirror'ı wholesale yenileyecek full fetch'i başlatır.
// Sonuç evFetchDone olarak loop'a döner.
func (e *Engine) startFetch() {
	e.loading = true
	e.lastError = ""

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		messages, err := e.cfg.Store.FetchMessages(ctx, e.cfg.FetchLimit)
		e.post(evFetchDone{messages: messages, err: err})
	}()
}

// broadcastPresence, kendi durumumuzu yayınlar.
// Focus varken online, yokken idle — karşı taraf "orada ama meşgul"
// ayrımını görebilsin.
func (e *Engine) broadcastPresence() {
	rt := e.cfg.Realtime
	if rt == nil {
		return
	}

	status := models.PresenceOnline
	if !e.focused {
		status = models.PresenceIdle
	}

	go func() {
		if err := rt.SendPresence(status); err != nil {
			log.Printf("[engine] presence broadcast failed: %v", err)
		}
	}()
}
