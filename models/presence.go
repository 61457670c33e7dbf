package models

// PresenceStatus, bir kullanıcının anlık durumunu temsil eder.
// Ephemeral'dir — hiçbir zaman DB'ye yazılmaz, sadece broadcast edilir.
// Heartbeat ile periyodik olarak yenilenir; bu path'ten expiry yoktur.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceIdle    PresenceStatus = "idle"
	PresenceOffline PresenceStatus = "offline"
)

// Valid, status'un bilinen bir değer olup olmadığını kontrol eder.
// Bilinmeyen status'lar merge sırasında sessizce düşürülür.
func (s PresenceStatus) Valid() bool {
	switch s {
	case PresenceOnline, PresenceIdle, PresenceOffline:
		return true
	}
	return false
}
