package game

import (
	"encoding/json"
	"time"
)

// EventType enum for battle log classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeDamage
	EventTypeKill
	EventTypeBattleStart
	EventTypeBattleEnd
	EventTypeReload
)

// EventVersion for backwards compatibility when replaying log files
const EventVersion uint8 = 1

// Event is the core record appended to the battle event log.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic per log
	TickNum   uint64    `json:"tickNum"`   // Tick this occurred in
	PlayerID  string    `json:"playerId"`  // Source player (for rate limiting)
	Payload   []byte    `json:"payload"`   // JSON-encoded payload
}

// String returns the human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeDamage:
		return "damage"
	case EventTypeKill:
		return "kill"
	case EventTypeBattleStart:
		return "battle_start"
	case EventTypeBattleEnd:
		return "battle_end"
	case EventTypeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// PlayerJoinPayload contains registration details
type PlayerJoinPayload struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	SpawnX     float64 `json:"spawnX"`
	SpawnY     float64 `json:"spawnY"`
	Color      string  `json:"color"`
}

// PlayerLeavePayload contains deregistration details
type PlayerLeavePayload struct {
	PlayerID           string `json:"playerId"`
	RemovedProjectiles int    `json:"removedProjectiles"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	ShooterID    string `json:"shooterId"`
	VictimID     string `json:"victimId"`
	Damage       int    `json:"damage"`
	VictimHP     int    `json:"victimHp"`
	ProjectileID string `json:"projectileId"`
}

// KillPayload contains kill event details
type KillPayload struct {
	KillerID    string `json:"killerId"`
	VictimID    string `json:"victimId"`
	KillerKills int    `json:"killerKills"`
}

// BattleStartPayload contains battle start details
type BattleStartPayload struct {
	PlayerCount int   `json:"playerCount"`
	StartTick   int64 `json:"startTick"`
}

// BattleEndPayload contains battle end details
type BattleEndPayload struct {
	WinnerID  string `json:"winnerId"`
	WinnerHP  int    `json:"winnerHp"`
	EndTick   int64  `json:"endTick"`
	TimeLimit bool   `json:"timeLimit"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, playerID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
