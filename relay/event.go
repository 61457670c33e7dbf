// Package relay, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
// - Hub: Tüm bağlantıları yöneten merkezi yapı (Observer pattern)
// - Client: Her WebSocket bağlantısını temsil eder
// - Event: Client-relay arası iletilen mesaj formatı
//
// Relay "akıllı" bir server değildir — mesaj içeriğine bakmaz, DB'ye yazmaz.
// Görevi üç topic üzerinden fan-out yapmaktır:
// 1. Panel mesajı Postgres'e yazar, satır imajını relay'e publish eder
// 2. Relay, event'i o topic'e abone tüm client'lara iletir
// 3. Gönderen de dahil — kendi echo'su client tarafında idempotent absorbe edilir
//
// Typing ve presence ephemeral'dır: hiçbir yere yazılmaz, sadece iletilir.
// Presence için küçük bir istisna var — son durum TTL cache'te tutulur ki
// yeni bağlanan client mevcut roster'ı görebilsin (replay).
package relay

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü — "message_insert", "heartbeat" vb.
// Data: Event'e özgü payload — satır imajı, typing bilgisi vb.
// Seq (sequence number): Her outbound event'e verilen artan sayı.
//   Client eksik event tespit etmek için seq'i takip eder.
//   Örnek: seq 5'ten sonra seq 7 gelirse, 6 kaybolmuş demektir.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// ────────────────────────────────────────────
// Topic sabitleri
// ────────────────────────────────────────────

// Client'lar subscribe event'i ile hangi topic'leri dinleyeceğini bildirir.
// Üç bağımsız akış — panel üçüne ayrı ayrı abone olur ve ayrı ayrı kapatır.
const (
	TopicMessages = "messages" // Kalıcı mesaj değişiklikleri (insert/update/delete)
	TopicTyping   = "typing"   // Ephemeral: kullanıcı yazıyor sinyalleri
	TopicPresence = "presence" // Ephemeral: online/idle/offline durumları
)

// ────────────────────────────────────────────
// Operation sabitleri
// ────────────────────────────────────────────

// Client → Relay operasyonları
const (
	OpSubscribe      = "subscribe"       // Topic aboneliği bildir — yanıt olarak ready gelir
	OpHeartbeat      = "heartbeat"       // Client her 30sn'de gönderir — "hâlâ bağlıyım" sinyali
	OpTyping         = "typing"          // Kullanıcı yazıyor
	OpPresenceUpdate = "presence_update" // Durum değişikliği (online/idle/offline)
)

// Relay → Client operasyonları
const (
	OpReady        = "ready"         // Subscribe'a yanıt — online kullanıcı listesi
	OpHeartbeatAck = "heartbeat_ack" // Heartbeat'e yanıt — "seni duydum"
	OpTypingStart  = "typing_start"  // Bir kullanıcı yazıyor (kimlik relay tarafından damgalanır)
)

// Mesaj operasyonları — iki yönlü.
// Yazan client SQL commit'ten sonra satır imajını bu op'larla publish eder,
// relay aynı op ile messages topic'ine fan-out yapar. Data opak geçer:
// relay mesaj şemasını bilmez, bilmek zorunda da değil.
const (
	OpMessageInsert = "message_insert" // Yeni satır eklendi
	OpMessageUpdate = "message_update" // Satır güncellendi (edit, pin, reaction, read_by, soft delete)
	OpMessageDelete = "message_delete" // Satır kalıcı olarak silindi (hard delete)
)

// topicForOp, bir operasyonun hangi topic'e fan-out edileceğini döner.
// Bilinmeyen op için boş string — event düşürülür.
func topicForOp(op string) string {
	switch op {
	case OpMessageInsert, OpMessageUpdate, OpMessageDelete:
		return TopicMessages
	case OpTyping, OpTypingStart:
		return TopicTyping
	case OpPresenceUpdate:
		return TopicPresence
	default:
		return ""
	}
}

// SubscribeData, subscribe event'inin payload'ı (Client → Relay).
type SubscribeData struct {
	Topics []string `json:"topics"`
}

// ReadyData, subscribe sonrası client'a gönderilen ilk event'in payload'ı.
// Client bu event ile bağlantının hazır olduğunu anlar ve online listesini alır.
type ReadyData struct {
	OnlineUserIDs []string `json:"online_user_ids"`
}

// TypingData, typing event'inin payload'ı (Client → Relay).
// Kimlik bilgisi YOK — client kendi kimliğini beyan edemez,
// relay bağlantıdan bildiği kimliği damgalar.
type TypingData struct {
	ConversationKey string `json:"conversation_key"`
}

// TypingStartData, typing_start event'inin payload'ı (broadcast edilen).
type TypingStartData struct {
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	ConversationKey string `json:"conversation_key"`
}

// PresenceData, bir kullanıcının durumu değiştiğinde broadcast edilen payload.
// Client → Relay yönünde sadece Status dolu gelir; UserID ve Username
// relay tarafından bağlantı kimliğinden damgalanır (typing ile aynı kural).
type PresenceData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}
