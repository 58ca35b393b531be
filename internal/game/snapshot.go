package game

// Three distinct, explicitly-typed views are derived from the same entity
// data: the full spectator state, the per-player filtered state, and the
// debug state. They share field shapes but never optional-field overloading.

// ArenaView is the immutable arena description included in snapshots.
type ArenaView struct {
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Obstacles []Obstacle `json:"obstacles"`
}

// PlayerView is an immutable copy of one player's visible state.
type PlayerView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Color          string  `json:"color"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	HP             int     `json:"hp"`
	MaxHP          int     `json:"maxHp"`
	Ammo           int     `json:"ammo"`
	MaxAmmo        int     `json:"maxAmmo"`
	ReloadCooldown int     `json:"reloadCooldown"`
	Alive          bool    `json:"alive"`
	Ready          bool    `json:"ready"`
	Kills          int     `json:"kills"`
	DamageDealt    int     `json:"damageDealt"`
}

// ProjectileView is an immutable copy of one live projectile.
type ProjectileView struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"ownerId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
}

// FullState is the complete spectator snapshot, emitted once per tick.
// Consumers must treat it as immutable once received.
type FullState struct {
	Mode        Mode             `json:"mode"`
	Tick        int64            `json:"tick"`
	Arena       ArenaView        `json:"arena"`
	Players     []PlayerView     `json:"players"`
	Projectiles []ProjectileView `json:"projectiles"`
	Winner      *PlayerView      `json:"winner"`
}

// PlayerStateView is the same data scoped to one player: only players and
// projectiles within the view radius are included (distance filter, the
// arena itself is not culled).
type PlayerStateView struct {
	Mode        Mode             `json:"mode"`
	Tick        int64            `json:"tick"`
	Arena       ArenaView        `json:"arena"`
	Self        PlayerView       `json:"self"`
	Nearby      []PlayerView     `json:"nearby"`
	Projectiles []ProjectileView `json:"projectiles"`
	Winner      *PlayerView      `json:"winner"`
}

// DebugState extends the full snapshot with engine internals: pending
// action slots and the most recent battle log entries.
type DebugState struct {
	FullState
	PendingActions map[string]Action `json:"pendingActions"`
	Events         []Event           `json:"events"`
}
