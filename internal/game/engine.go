package game

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Mode is the engine's game-mode state machine.
type Mode string

const (
	ModeTest     Mode = "test"     // sandbox practice, no win condition
	ModeBattle   Mode = "battle"   // active combat with win checks
	ModeFinished Mode = "finished" // terminal, loop stopped, winner fixed
)

// DebugEventCount is how many recent log entries DebugState includes.
const DebugEventCount = 50

// StateListener receives the full snapshot once per tick. Listeners run
// on their own goroutine; a slow consumer never stalls the loop.
type StateListener func(FullState)

// Config tunes one engine instance.
type Config struct {
	TickRate       int    // authoritative ticks per second
	MaxBattleTicks int64  // battle duration cap in ticks
	Arena          *Arena // exclusively owned by this engine
}

// Engine owns the authoritative collections of players and projectiles
// plus the arena, and runs the fixed-rate tick loop. The tick loop is the
// sole mutator; all reads are snapshots taken under the lock.
//
// Ticks execute on a single goroutine, so at most one tick is ever in
// flight per instance.
type Engine struct {
	mu    sync.Mutex
	arena *Arena

	players     map[string]*Player
	order       []*Player // registration order: the stable iteration order
	projectiles []*Projectile

	tickCount       int64
	battleStartTick int64
	mode            Mode
	winner          *PlayerView
	everRegistered  int

	nextPlayerSeq int
	nextBulletSeq int

	tickRate       int
	maxBattleTicks int64

	eventLog *EventLog

	started  bool
	loopStop chan struct{} // non-nil while a loop is running

	listeners      map[int]StateListener
	nextListenerID int

	// onTickDuration receives each tick's wall time. Guarded by mu like
	// the listeners; set through SetTickDurationHook.
	onTickDuration func(time.Duration)
}

// NewEngine creates an engine in test mode. The loop does not run until
// Start is called.
func NewEngine(cfg Config) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.MaxBattleTicks <= 0 {
		cfg.MaxBattleTicks = DefaultMaxBattleTicks
	}
	if cfg.Arena == nil {
		cfg.Arena = DefaultArena(time.Now().UnixNano())
	}

	return &Engine{
		arena:          cfg.Arena,
		players:        make(map[string]*Player),
		projectiles:    make([]*Projectile, 0, 64),
		mode:           ModeTest,
		tickRate:       cfg.TickRate,
		maxBattleTicks: cfg.MaxBattleTicks,
		eventLog:       NewEventLog(),
		listeners:      make(map[int]StateListener),
	}
}

// Start begins the tick loop. Safe to call once; subsequent calls no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return
	}
	e.started = true
	e.startLoopLocked()
	log.Printf("engine started at %d TPS", e.tickRate)
}

// Stop tears down the tick loop. Idempotent; no scheduled tick mutates
// state after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.started = false
	e.stopLoopLocked()
}

// startLoopLocked spins the loop goroutine if the engine is started and no
// loop is already running. Caller holds e.mu.
func (e *Engine) startLoopLocked() {
	if !e.started || e.loopStop != nil {
		return
	}
	stop := make(chan struct{})
	e.loopStop = stop
	ticker := time.NewTicker(time.Second / time.Duration(e.tickRate))

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// A fire queued at the moment of cancellation must
				// not execute.
				select {
				case <-stop:
					return
				default:
				}
				e.tickAs(stop)
			}
		}
	}()
}

// stopLoopLocked cancels the running loop. Idempotent. Caller holds e.mu,
// which also guarantees no tick is mid-flight while we cancel.
func (e *Engine) stopLoopLocked() {
	if e.loopStop == nil {
		return
	}
	close(e.loopStop)
	e.loopStop = nil
}

// tick runs one authoritative simulation step. Phase order is fixed and
// load-bearing: action resolution, projectile advance, swept collisions,
// wall collisions, cooldowns, GC, win check, broadcast.
func (e *Engine) tick() {
	e.tickAs(nil)
}

// tickAs runs one step on behalf of the loop identified by stop. A fire
// that dequeued before Stop closed the channel can reach here after
// teardown; re-checking the channel identity under the lock guarantees a
// stale fire never mutates state. nil skips the check (manual stepping).
func (e *Engine) tickAs(stop chan struct{}) {
	start := time.Now()

	e.mu.Lock()
	if stop != nil && e.loopStop != stop {
		e.mu.Unlock()
		return
	}
	if e.mode == ModeFinished {
		e.mu.Unlock()
		return
	}

	e.tickCount++

	e.resolveActions()
	e.advanceProjectiles()
	e.collideProjectilesWithPlayers()
	e.collideProjectilesWithWalls()
	e.tickCooldowns()
	e.pruneProjectiles()
	if e.mode == ModeBattle {
		e.checkWinCondition()
	}

	snap := e.fullStateLocked()
	listeners := make([]StateListener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	hook := e.onTickDuration
	e.mu.Unlock()

	// Broadcast outside the lock, fire-and-forget: the next tick's
	// scheduling never waits on a consumer.
	for _, l := range listeners {
		go l(snap)
	}

	if hook != nil {
		hook(time.Since(start))
	}
}

// resolveActions dispatches every living player's pending action and
// clears the slot. Dead players' pending actions are dropped silently.
func (e *Engine) resolveActions() {
	for _, p := range e.order {
		act, ok := p.takePending()
		if !ok || !p.Alive {
			continue
		}
		switch act.Kind {
		case ActionMove:
			e.resolveMove(p, act)
		case ActionShoot:
			e.resolveShoot(p, act)
		case ActionReload:
			if p.reload() {
				e.eventLog.EmitSimple(EventTypeReload, uint64(e.tickCount), p.ID, nil)
			}
		}
	}
}

// resolveMove applies a displacement unless the destination circle
// overlaps blocked geometry or another living player. A rejected move is a
// full block: no partial move, no error surfaced.
func (e *Engine) resolveMove(p *Player, act Action) {
	dx, dy := act.vector()
	nx := p.X + dx*PlayerSpeed
	ny := p.Y + dy*PlayerSpeed

	if e.arena.IsBlocked(nx, ny, PlayerRadius) {
		return
	}
	for _, other := range e.order {
		if other == p || !other.Alive {
			continue
		}
		ddx := other.X - nx
		ddy := other.Y - ny
		if ddx*ddx+ddy*ddy < (2*PlayerRadius)*(2*PlayerRadius) {
			return
		}
	}

	p.X = nx
	p.Y = ny
}

// resolveShoot spawns a projectile just outside the shooter's collision
// radius. Silent no-op on empty ammo, active reload cooldown, or the
// per-player live-bullet cap.
func (e *Engine) resolveShoot(p *Player, act Action) {
	if p.Ammo <= 0 || p.ReloadCooldown > 0 {
		return
	}
	live := 0
	for _, pr := range e.projectiles {
		if pr.Alive && pr.OwnerID == p.ID {
			live++
		}
	}
	if live >= MaxBulletsPerPlayer {
		return
	}

	dx, dy := act.vector()
	offset := PlayerRadius + BulletRadius + MuzzleGap
	origin := Point{X: p.X + dx*offset, Y: p.Y + dy*offset}

	e.nextBulletSeq++
	id := fmt.Sprintf("b%d", e.nextBulletSeq)
	e.projectiles = append(e.projectiles, newProjectile(id, p.ID, origin, dx, dy))
	p.Ammo--
}

// advanceProjectiles moves every live projectile one step and expires the
// ones past their lifetime cap.
func (e *Engine) advanceProjectiles() {
	for _, pr := range e.projectiles {
		if pr.Alive {
			pr.advance()
		}
	}
}

// collideProjectilesWithPlayers runs the swept segment check for every
// live projectile against every living, non-owning player. A projectile
// hits at most one target per tick: the first match in stable player
// order ends that projectile's scan.
func (e *Engine) collideProjectilesWithPlayers() {
	for _, pr := range e.projectiles {
		if !pr.Alive {
			continue
		}
		for _, target := range e.order {
			if !pr.sweptHit(target) {
				continue
			}

			dealt := target.applyDamage(pr.Damage)
			pr.Alive = false

			e.eventLog.EmitSimple(EventTypeDamage, uint64(e.tickCount), pr.OwnerID,
				DamagePayload{
					ShooterID:    pr.OwnerID,
					VictimID:     target.ID,
					Damage:       dealt,
					VictimHP:     target.HP,
					ProjectileID: pr.ID,
				})

			// The owner may have deregistered while the bullet was in
			// flight; kill attribution tolerates a missing shooter.
			if shooter, ok := e.players[pr.OwnerID]; ok && shooter != target {
				shooter.DamageDealt += dealt
				if !target.Alive {
					shooter.Kills++
					e.eventLog.EmitSimple(EventTypeKill, uint64(e.tickCount), shooter.ID,
						KillPayload{
							KillerID:    shooter.ID,
							VictimID:    target.ID,
							KillerKills: shooter.Kills,
						})
				}
			}
			break
		}
	}
}

// collideProjectilesWithWalls destroys any live projectile whose current
// position is blocked by the arena.
func (e *Engine) collideProjectilesWithWalls() {
	for _, pr := range e.projectiles {
		if pr.Alive && e.arena.IsBlocked(pr.X, pr.Y, BulletRadius) {
			pr.Alive = false
		}
	}
}

func (e *Engine) tickCooldowns() {
	for _, p := range e.order {
		p.tickCooldowns()
	}
}

// pruneProjectiles garbage-collects dead projectiles in place.
func (e *Engine) pruneProjectiles() {
	n := 0
	for _, pr := range e.projectiles {
		if pr.Alive {
			e.projectiles[n] = pr
			n++
		}
	}
	e.projectiles = e.projectiles[:n]
}

// checkWinCondition ends the battle on the duration cap, or when more
// than one player was ever registered and at most one remains alive.
func (e *Engine) checkWinCondition() {
	if e.tickCount-e.battleStartTick >= e.maxBattleTicks {
		e.endBattleLocked(true)
		return
	}

	alive := 0
	for _, p := range e.order {
		if p.Alive {
			alive++
		}
	}
	if e.everRegistered > 1 && alive <= 1 {
		e.endBattleLocked(false)
	}
}

// endBattleLocked stops the loop, fixes the winner, and enters the
// terminal mode. The winner is the sole survivor if exactly one player is
// alive, otherwise the highest-HP player; ties break to the lowest ID
// (registration order is lowest-seq first, so "first strictly greater"
// gives exactly that).
func (e *Engine) endBattleLocked(timeLimit bool) {
	var winner *Player
	for _, p := range e.order {
		if winner == nil || p.HP > winner.HP {
			winner = p
		}
	}

	e.mode = ModeFinished
	e.stopLoopLocked()

	if winner != nil {
		v := winner.View()
		e.winner = &v
		e.eventLog.EmitSimple(EventTypeBattleEnd, uint64(e.tickCount), winner.ID,
			BattleEndPayload{
				WinnerID:  winner.ID,
				WinnerHP:  winner.HP,
				EndTick:   e.tickCount,
				TimeLimit: timeLimit,
			})
		log.Printf("battle over: %s wins with %d hp (tick %d)", winner.Name, winner.HP, e.tickCount)
	} else {
		e.eventLog.EmitSimple(EventTypeBattleEnd, uint64(e.tickCount), "",
			BattleEndPayload{EndTick: e.tickCount, TimeLimit: timeLimit})
	}
}

// Register creates a player at a spawn point chosen away from everyone
// already placed. Duplicate display names within this engine are rejected.
func (e *Engine) Register(name string) (PlayerView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range e.order {
		if p.Name == name {
			return PlayerView{}, ErrDuplicateName
		}
	}

	occupied := make([]Point, 0, len(e.order))
	for _, p := range e.order {
		occupied = append(occupied, Point{X: p.X, Y: p.Y})
	}
	spawn := e.arena.SpawnPoint(occupied)

	seq := e.nextPlayerSeq
	e.nextPlayerSeq++
	e.everRegistered++

	p := newPlayer(fmt.Sprintf("p%d", seq+1), name, seq, spawn)
	e.players[p.ID] = p
	e.order = append(e.order, p)

	e.eventLog.EmitSimple(EventTypePlayerJoin, uint64(e.tickCount), p.ID,
		PlayerJoinPayload{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			SpawnX:     p.X,
			SpawnY:     p.Y,
			Color:      p.Color,
		})

	log.Printf("player registered: %s (%s)", p.Name, p.ID)
	return p.View(), nil
}

// Unregister removes a player and cascades to every live projectile that
// player owns. Bullets are deleted, never orphaned.
func (e *Engine) Unregister(playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	delete(e.players, playerID)
	for i, q := range e.order {
		if q == p {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}

	removed := 0
	n := 0
	for _, pr := range e.projectiles {
		if pr.OwnerID == playerID {
			removed++
			continue
		}
		e.projectiles[n] = pr
		n++
	}
	e.projectiles = e.projectiles[:n]

	e.eventLog.EmitSimple(EventTypePlayerLeave, uint64(e.tickCount), playerID,
		PlayerLeavePayload{PlayerID: playerID, RemovedProjectiles: removed})
	return nil
}

// SubmitAction validates an action and queues it, overwriting any
// unconsumed previous one. Validation failures are the only synchronous
// errors; everything else resolves (or silently no-ops) at tick time.
func (e *Engine) SubmitAction(playerID string, act Action) error {
	if err := act.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	p.queueAction(act)
	return nil
}

// SetReady flags a player as opted into the battle start and reports the
// current ready tally.
func (e *Engine) SetReady(playerID string) (ready, total int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.players[playerID]
	if !ok {
		return 0, 0, ErrUnknownPlayer
	}
	p.Ready = true

	for _, q := range e.order {
		if q.Ready {
			ready++
		}
	}
	return ready, len(e.order), nil
}

// StartBattle transitions test → battle: players are respawned at full
// hp/ammo with per-battle stats cleared, stray projectiles are removed,
// and the loop is restarted. Any prior loop is stopped first so two loops
// can never run concurrently.
func (e *Engine) StartBattle() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode == ModeBattle {
		return ErrBattleActive
	}
	if len(e.order) == 0 {
		return ErrNoPlayers
	}

	e.stopLoopLocked()
	e.beginBattleLocked()
	e.startLoopLocked()
	return nil
}

// beginBattleLocked prepares the battle world without touching the loop.
// Split from StartBattle so deterministic tests can step ticks by hand.
func (e *Engine) beginBattleLocked() {
	e.projectiles = e.projectiles[:0]

	occupied := make([]Point, 0, len(e.order))
	for _, p := range e.order {
		spawn := e.arena.SpawnPoint(occupied)
		p.resetForBattle(spawn)
		occupied = append(occupied, spawn)
	}

	e.mode = ModeBattle
	e.battleStartTick = e.tickCount
	e.winner = nil

	e.eventLog.EmitSimple(EventTypeBattleStart, uint64(e.tickCount), "",
		BattleStartPayload{PlayerCount: len(e.order), StartTick: e.tickCount})
	log.Printf("battle started with %d players", len(e.order))
}

// ResetToLobby returns the engine to test mode. Always safe to call: the
// running loop (if any) is stopped first and restarted for practice.
func (e *Engine) ResetToLobby() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLoopLocked()
	e.projectiles = e.projectiles[:0]
	e.mode = ModeTest
	e.winner = nil

	occupied := make([]Point, 0, len(e.order))
	for _, p := range e.order {
		spawn := e.arena.SpawnPoint(occupied)
		p.resetForBattle(spawn)
		p.Ready = false
		occupied = append(occupied, spawn)
	}

	e.startLoopLocked()
}

// SetTickDurationHook installs a callback receiving each tick's wall
// time. The serving layer wires this to metrics. Safe to call while the
// loop is running; pass nil to clear.
func (e *Engine) SetTickDurationHook(fn func(time.Duration)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTickDuration = fn
}

// Subscribe registers a per-tick snapshot listener and returns its id.
func (e *Engine) Subscribe(l StateListener) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextListenerID++
	id := e.nextListenerID
	e.listeners[id] = l
	return id
}

// Unsubscribe removes a listener. Unknown ids are ignored.
func (e *Engine) Unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, id)
}

// FullState returns the complete spectator snapshot.
func (e *Engine) FullState() FullState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fullStateLocked()
}

func (e *Engine) fullStateLocked() FullState {
	players := make([]PlayerView, 0, len(e.order))
	for _, p := range e.order {
		players = append(players, p.View())
	}
	projectiles := make([]ProjectileView, 0, len(e.projectiles))
	for _, pr := range e.projectiles {
		if pr.Alive {
			projectiles = append(projectiles, pr.View())
		}
	}

	var winner *PlayerView
	if e.winner != nil {
		w := *e.winner
		winner = &w
	}

	return FullState{
		Mode:        e.mode,
		Tick:        e.tickCount,
		Arena:       e.arena.View(),
		Players:     players,
		Projectiles: projectiles,
		Winner:      winner,
	}
}

// PlayerState returns the snapshot scoped to one player: only players and
// projectiles within the view radius are included. Returns false when the
// player is unknown.
func (e *Engine) PlayerState(playerID string) (PlayerStateView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.players[playerID]
	if !ok {
		return PlayerStateView{}, false
	}

	nearby := make([]PlayerView, 0, len(e.order))
	for _, q := range e.order {
		if q == p {
			continue
		}
		if inRange(p.X, p.Y, q.X, q.Y, ViewRadius) {
			nearby = append(nearby, q.View())
		}
	}
	projectiles := make([]ProjectileView, 0, len(e.projectiles))
	for _, pr := range e.projectiles {
		if pr.Alive && inRange(p.X, p.Y, pr.X, pr.Y, ViewRadius) {
			projectiles = append(projectiles, pr.View())
		}
	}

	var winner *PlayerView
	if e.winner != nil {
		w := *e.winner
		winner = &w
	}

	return PlayerStateView{
		Mode:        e.mode,
		Tick:        e.tickCount,
		Arena:       e.arena.View(),
		Self:        p.View(),
		Nearby:      nearby,
		Projectiles: projectiles,
		Winner:      winner,
	}, true
}

// DebugState returns the extended snapshot with pending actions and the
// most recent battle log entries.
func (e *Engine) DebugState() DebugState {
	e.mu.Lock()
	pending := make(map[string]Action)
	for _, p := range e.order {
		if p.pending != nil {
			pending[p.ID] = *p.pending
		}
	}
	full := e.fullStateLocked()
	e.mu.Unlock()

	return DebugState{
		FullState:      full,
		PendingActions: pending,
		Events:         e.eventLog.Recent(DebugEventCount),
	}
}

// StartEventLog begins persisting battle events to the given file.
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event log writer.
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring.
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// TickRate returns the configured tick rate.
func (e *Engine) TickRate() int {
	return e.tickRate
}

func inRange(x1, y1, x2, y2, radius float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx+dy*dy <= radius*radius
}
