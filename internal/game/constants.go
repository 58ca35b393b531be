package game

// Gameplay constants. The engine is tuned for a 20 TPS authoritative loop;
// speeds and lifetimes below are expressed in arena units (or ticks) per tick.
const (
	DefaultTickRate = 20 // authoritative ticks per second

	MaxHP        = 100
	MaxAmmo      = 5
	BulletDamage = 25

	PlayerRadius = 15.0 // collision circle radius
	BulletRadius = 4.0

	PlayerSpeed = 5.0  // units moved per move action
	BulletSpeed = 25.0 // units traveled per tick

	BulletLifetime      = 40 // ticks (2s at 20 TPS)
	MaxBulletsPerPlayer = 3  // live projectiles outstanding per owner

	ReloadAmount        = 5
	ReloadCooldownTicks = 30 // 1.5s at 20 TPS

	DefaultMaxBattleTicks = 2400 // 2 minute battle cap at 20 TPS

	ViewRadius = 250.0 // per-player state filter distance

	// MuzzleGap keeps a freshly spawned bullet from overlapping its shooter.
	MuzzleGap = 1.0

	DefaultArenaWidth  = 800.0
	DefaultArenaHeight = 600.0
)

var playerColors = []string{
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4",
	"#ffeaa7", "#dfe6e9", "#fd79a8", "#00b894",
	"#6c5ce7", "#fdcb6e", "#e17055", "#00cec9",
}
