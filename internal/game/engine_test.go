package game

import (
	"errors"
	"testing"
	"time"
)

// newTestEngine builds an engine over an open arena with no obstacles so
// tests can place players at exact positions without geometry surprises.
// The loop is not started; tests drive ticks by hand for determinism.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(Config{
		TickRate: DefaultTickRate,
		Arena:    NewArena(800, 600, nil, 1),
	})
}

// placePlayer registers a player and moves them to an exact position.
func placePlayer(t *testing.T, e *Engine, name string, x, y float64) string {
	t.Helper()
	view, err := e.Register(name)
	if err != nil {
		t.Fatalf("Register(%q): %v", name, err)
	}
	e.mu.Lock()
	p := e.players[view.ID]
	p.X = x
	p.Y = y
	e.mu.Unlock()
	return view.ID
}

func TestRegister(t *testing.T) {
	e := newTestEngine(t)

	alice, err := e.Register("alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if alice.ID != "p1" {
		t.Errorf("id = %q, want p1", alice.ID)
	}
	if alice.HP != MaxHP || alice.Ammo != MaxAmmo || !alice.Alive {
		t.Error("new player should spawn at full hp and ammo, alive")
	}

	bob, err := e.Register("bob")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if bob.ID != "p2" {
		t.Errorf("id = %q, want p2", bob.ID)
	}

	if _, err := e.Register("alice"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate name error = %v, want ErrDuplicateName", err)
	}
}

func TestSubmitActionValidation(t *testing.T) {
	e := newTestEngine(t)
	id := placePlayer(t, e, "alice", 400, 300)

	tests := []struct {
		name     string
		playerID string
		action   Action
		wantErr  error
	}{
		{"valid move", id, Action{Kind: ActionMove, Direction: "up"}, nil},
		{"unknown kind", id, Action{Kind: "teleport"}, ErrUnknownAction},
		{"missing direction", id, Action{Kind: ActionShoot}, ErrMissingDirection},
		{"bad direction", id, Action{Kind: ActionMove, Direction: "sideways"}, ErrBadDirection},
		{"unknown player", "p99", Action{Kind: ActionReload}, ErrUnknownPlayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.SubmitAction(tt.playerID, tt.action)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SubmitAction = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMoveResolvesAtTick(t *testing.T) {
	e := newTestEngine(t)
	id := placePlayer(t, e, "alice", 400, 300)

	if err := e.SubmitAction(id, Action{Kind: ActionMove, Direction: "right"}); err != nil {
		t.Fatal(err)
	}

	// Nothing moves before the tick boundary.
	if s := e.FullState(); s.Players[0].X != 400 {
		t.Error("player moved before the tick resolved")
	}

	e.tick()
	s := e.FullState()
	if s.Players[0].X != 400+PlayerSpeed || s.Players[0].Y != 300 {
		t.Errorf("pos = (%v, %v), want (%v, 300)", s.Players[0].X, s.Players[0].Y, 400+PlayerSpeed)
	}

	// The pending slot was consumed: the next tick must not replay it.
	e.tick()
	if s := e.FullState(); s.Players[0].X != 400+PlayerSpeed {
		t.Error("consumed action resolved a second time")
	}
}

func TestBlockedMoveIsFullStop(t *testing.T) {
	e := newTestEngine(t)
	// Close enough to the wall that one full step would cross it.
	id := placePlayer(t, e, "alice", 800-PlayerRadius-2, 300)

	e.SubmitAction(id, Action{Kind: ActionMove, Direction: "right"})
	e.tick()

	s := e.FullState()
	if s.Players[0].X != 800-PlayerRadius-2 {
		t.Errorf("x = %v; a blocked move must not apply partially", s.Players[0].X)
	}
}

func TestMoveBlockedByOtherPlayer(t *testing.T) {
	e := newTestEngine(t)
	alice := placePlayer(t, e, "alice", 400, 300)
	placePlayer(t, e, "bob", 400+2*PlayerRadius+3, 300)

	e.SubmitAction(alice, Action{Kind: ActionMove, Direction: "right"})
	e.tick()

	if s := e.FullState(); s.Players[0].X != 400 {
		t.Errorf("x = %v; move into another player's circle must be rejected", s.Players[0].X)
	}
}

func TestShootSpawnsProjectile(t *testing.T) {
	e := newTestEngine(t)
	id := placePlayer(t, e, "alice", 400, 300)

	e.SubmitAction(id, Action{Kind: ActionShoot, Direction: "right"})
	e.tick()

	s := e.FullState()
	if len(s.Projectiles) != 1 {
		t.Fatalf("projectiles = %d, want 1", len(s.Projectiles))
	}
	if s.Players[0].Ammo != MaxAmmo-1 {
		t.Errorf("ammo = %d, want %d", s.Players[0].Ammo, MaxAmmo-1)
	}

	// Spawned just outside the muzzle, then advanced once this tick.
	pr := s.Projectiles[0]
	wantX := 400 + PlayerRadius + BulletRadius + MuzzleGap + BulletSpeed
	if pr.X != wantX || pr.Y != 300 {
		t.Errorf("projectile at (%v, %v), want (%v, 300)", pr.X, pr.Y, wantX)
	}
	if pr.OwnerID != id {
		t.Errorf("owner = %q, want %q", pr.OwnerID, id)
	}
}

func TestShootWithZeroAmmoIsSilentNoOp(t *testing.T) {
	e := newTestEngine(t)
	id := placePlayer(t, e, "alice", 400, 300)

	e.mu.Lock()
	e.players[id].Ammo = 0
	e.mu.Unlock()

	// Submission still succeeds: running out of ammo is a tick-time
	// policy rejection, not a validation error.
	if err := e.SubmitAction(id, Action{Kind: ActionShoot, Direction: "up"}); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}
	e.tick()

	if s := e.FullState(); len(s.Projectiles) != 0 {
		t.Error("shot fired with zero ammo")
	}
}

func TestLiveBulletCap(t *testing.T) {
	e := newTestEngine(t)
	id := placePlayer(t, e, "alice", 100, 300)

	// Fire every tick; from the fourth shot on, three bullets are still
	// in flight and the cap silently swallows the action.
	for i := 0; i < MaxBulletsPerPlayer+1; i++ {
		e.SubmitAction(id, Action{Kind: ActionShoot, Direction: "right"})
		e.tick()
	}

	s := e.FullState()
	if len(s.Projectiles) != MaxBulletsPerPlayer {
		t.Errorf("live projectiles = %d, want cap %d", len(s.Projectiles), MaxBulletsPerPlayer)
	}
	if s.Players[0].Ammo != MaxAmmo-MaxBulletsPerPlayer {
		t.Errorf("ammo = %d; the capped shot must not cost ammo", s.Players[0].Ammo)
	}
}

func TestReloadAction(t *testing.T) {
	e := newTestEngine(t)
	id := placePlayer(t, e, "alice", 400, 300)

	e.mu.Lock()
	e.players[id].Ammo = 0
	e.mu.Unlock()

	e.SubmitAction(id, Action{Kind: ActionReload})
	e.tick()

	s := e.FullState()
	if s.Players[0].Ammo != ReloadAmount {
		t.Errorf("ammo = %d, want %d", s.Players[0].Ammo, ReloadAmount)
	}
	if s.Players[0].ReloadCooldown == 0 {
		t.Error("reload should start a cooldown")
	}

	// Shooting while the cooldown runs is a silent no-op.
	e.SubmitAction(id, Action{Kind: ActionShoot, Direction: "up"})
	e.tick()
	if s := e.FullState(); len(s.Projectiles) != 0 {
		t.Error("shot fired during reload cooldown")
	}

	// Cooldown counts down one per tick.
	for i := 0; i < ReloadCooldownTicks; i++ {
		e.tick()
	}
	if s := e.FullState(); s.Players[0].ReloadCooldown != 0 {
		t.Errorf("cooldown = %d after waiting it out", s.Players[0].ReloadCooldown)
	}
}

func TestDeadPlayerActionsAreDropped(t *testing.T) {
	e := newTestEngine(t)
	id := placePlayer(t, e, "alice", 400, 300)

	e.mu.Lock()
	e.players[id].HP = 0
	e.players[id].Alive = false
	e.mu.Unlock()

	// Submission succeeds; resolution silently drops it.
	if err := e.SubmitAction(id, Action{Kind: ActionMove, Direction: "right"}); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}
	e.tick()

	if s := e.FullState(); s.Players[0].X != 400 {
		t.Error("dead player moved")
	}
}

func TestBattleDamageAndWin(t *testing.T) {
	e := newTestEngine(t)
	alice := placePlayer(t, e, "alice", 100, 300)
	bob := placePlayer(t, e, "bob", 160, 300)

	e.mu.Lock()
	e.beginBattleLocked()
	// Battle start respawns everyone; pin the duel positions back down.
	e.players[alice].X, e.players[alice].Y = 100, 300
	e.players[bob].X, e.players[bob].Y = 160, 300
	e.mu.Unlock()

	// Bob is 60 units east. Each bullet spawns 20 units out and sweeps
	// 25 more on its first step, ending 15 from Bob's center: a hit on
	// the very tick it is fired. Four hits at 25 damage is a kill.
	hitsToKill := MaxHP / BulletDamage
	for i := 0; i < hitsToKill; i++ {
		if err := e.SubmitAction(alice, Action{Kind: ActionShoot, Direction: "right"}); err != nil {
			t.Fatal(err)
		}
		e.tick()

		s := e.FullState()
		wantHP := MaxHP - (i+1)*BulletDamage
		if s.Players[1].HP != wantHP {
			t.Fatalf("after shot %d: bob hp = %d, want %d", i+1, s.Players[1].HP, wantHP)
		}
	}

	s := e.FullState()
	if s.Mode != ModeFinished {
		t.Fatalf("mode = %q, want finished", s.Mode)
	}
	if s.Winner == nil || s.Winner.ID != alice {
		t.Fatalf("winner = %+v, want alice", s.Winner)
	}
	if s.Players[0].Kills != 1 {
		t.Errorf("alice kills = %d, want 1", s.Players[0].Kills)
	}
	if s.Players[0].DamageDealt != MaxHP {
		t.Errorf("alice damage dealt = %d, want %d", s.Players[0].DamageDealt, MaxHP)
	}
	if s.Players[1].Alive {
		t.Error("bob should be dead")
	}

	// The terminal mode is inert: further ticks change nothing.
	before := e.FullState().Tick
	e.tick()
	if e.FullState().Tick != before {
		t.Error("tick advanced after the battle finished")
	}
}

func TestBattleTimeLimitTieBreaksToLowestID(t *testing.T) {
	e := NewEngine(Config{
		TickRate:       DefaultTickRate,
		MaxBattleTicks: 3,
		Arena:          NewArena(800, 600, nil, 1),
	})
	alice := placePlayer(t, e, "alice", 100, 100)
	placePlayer(t, e, "bob", 700, 500)

	e.mu.Lock()
	e.beginBattleLocked()
	e.mu.Unlock()

	for i := 0; i < 3; i++ {
		e.tick()
	}

	s := e.FullState()
	if s.Mode != ModeFinished {
		t.Fatalf("mode = %q, want finished at the time limit", s.Mode)
	}
	// Both at full HP: the tie goes to the earliest registration.
	if s.Winner == nil || s.Winner.ID != alice {
		t.Errorf("winner = %+v, want alice on the tie-break", s.Winner)
	}
}

func TestSoloPracticeNeverEnds(t *testing.T) {
	e := newTestEngine(t)
	placePlayer(t, e, "alice", 400, 300)

	e.mu.Lock()
	e.beginBattleLocked()
	e.mu.Unlock()

	// One player was ever registered: the last-alive rule must not fire.
	for i := 0; i < 10; i++ {
		e.tick()
	}
	if s := e.FullState(); s.Mode != ModeBattle {
		t.Errorf("mode = %q, a lone player's battle should keep running", s.Mode)
	}
}

func TestStartBattleErrors(t *testing.T) {
	e := newTestEngine(t)

	if err := e.StartBattle(); !errors.Is(err, ErrNoPlayers) {
		t.Errorf("StartBattle with no players = %v, want ErrNoPlayers", err)
	}

	placePlayer(t, e, "alice", 400, 300)
	if err := e.StartBattle(); err != nil {
		t.Fatalf("StartBattle: %v", err)
	}
	if err := e.StartBattle(); !errors.Is(err, ErrBattleActive) {
		t.Errorf("second StartBattle = %v, want ErrBattleActive", err)
	}
}

func TestStartBattleResetsWorld(t *testing.T) {
	e := newTestEngine(t)
	id := placePlayer(t, e, "alice", 400, 300)
	placePlayer(t, e, "bob", 100, 100)

	// Scuff the world in test mode.
	e.SubmitAction(id, Action{Kind: ActionShoot, Direction: "right"})
	e.tick()
	e.mu.Lock()
	e.players[id].HP = 40
	e.players[id].Kills = 2
	e.mu.Unlock()

	if err := e.StartBattle(); err != nil {
		t.Fatal(err)
	}

	s := e.FullState()
	if s.Mode != ModeBattle {
		t.Fatalf("mode = %q, want battle", s.Mode)
	}
	if len(s.Projectiles) != 0 {
		t.Error("stray test-mode projectiles survived the battle start")
	}
	for _, p := range s.Players {
		if p.HP != MaxHP || p.Ammo != MaxAmmo || p.Kills != 0 {
			t.Errorf("player %s not reset: %+v", p.ID, p)
		}
	}
}

func TestSetReady(t *testing.T) {
	e := newTestEngine(t)
	alice := placePlayer(t, e, "alice", 400, 300)
	bob := placePlayer(t, e, "bob", 100, 100)

	ready, total, err := e.SetReady(alice)
	if err != nil || ready != 1 || total != 2 {
		t.Errorf("SetReady = (%d, %d, %v), want (1, 2, nil)", ready, total, err)
	}

	// Ready is idempotent.
	ready, _, _ = e.SetReady(alice)
	if ready != 1 {
		t.Errorf("repeated ready counted twice: %d", ready)
	}

	ready, total, _ = e.SetReady(bob)
	if ready != 2 || total != 2 {
		t.Errorf("SetReady = (%d, %d), want (2, 2)", ready, total)
	}

	if _, _, err := e.SetReady("p99"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("unknown player = %v, want ErrUnknownPlayer", err)
	}
}

func TestResetToLobby(t *testing.T) {
	e := newTestEngine(t)
	alice := placePlayer(t, e, "alice", 100, 300)
	bob := placePlayer(t, e, "bob", 160, 300)
	e.SetReady(alice)
	e.SetReady(bob)

	e.mu.Lock()
	e.beginBattleLocked()
	e.players[alice].X, e.players[alice].Y = 100, 300
	e.players[bob].X, e.players[bob].Y = 160, 300
	e.mu.Unlock()

	// Finish the battle, then reset.
	for i := 0; i < MaxHP/BulletDamage; i++ {
		e.SubmitAction(alice, Action{Kind: ActionShoot, Direction: "right"})
		e.tick()
	}
	if e.FullState().Mode != ModeFinished {
		t.Fatal("battle did not finish")
	}

	e.ResetToLobby()

	s := e.FullState()
	if s.Mode != ModeTest {
		t.Errorf("mode = %q, want test", s.Mode)
	}
	if s.Winner != nil {
		t.Error("winner should be cleared")
	}
	for _, p := range s.Players {
		if !p.Alive || p.HP != MaxHP || p.Ready {
			t.Errorf("player %s not back to lobby condition: %+v", p.ID, p)
		}
	}

	// Reset is always safe to call again.
	e.ResetToLobby()
	if s := e.FullState(); s.Mode != ModeTest {
		t.Error("repeated reset broke the mode")
	}
}

func TestUnregisterCascadesToProjectiles(t *testing.T) {
	e := newTestEngine(t)
	alice := placePlayer(t, e, "alice", 100, 300)
	placePlayer(t, e, "bob", 700, 300)

	e.SubmitAction(alice, Action{Kind: ActionShoot, Direction: "right"})
	e.tick()
	if len(e.FullState().Projectiles) != 1 {
		t.Fatal("expected one projectile in flight")
	}

	if err := e.Unregister(alice); err != nil {
		t.Fatalf("Unregister: %v", err)
	}

	s := e.FullState()
	if len(s.Players) != 1 {
		t.Errorf("players = %d, want 1", len(s.Players))
	}
	if len(s.Projectiles) != 0 {
		t.Error("departed player's projectile was orphaned instead of removed")
	}

	if err := e.Unregister(alice); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("second Unregister = %v, want ErrUnknownPlayer", err)
	}
}

func TestStopHaltsSimulation(t *testing.T) {
	e := NewEngine(Config{
		TickRate: 200, // fast loop keeps the wall-clock wait short
		Arena:    NewArena(800, 600, nil, 1),
	})
	placePlayer(t, e, "alice", 400, 300)

	e.Start()
	time.Sleep(50 * time.Millisecond)
	e.Stop()

	tick := e.FullState().Tick
	if tick == 0 {
		t.Fatal("loop never ticked")
	}

	time.Sleep(50 * time.Millisecond)
	if got := e.FullState().Tick; got != tick {
		t.Errorf("tick advanced from %d to %d after Stop", tick, got)
	}
}

func TestTickDurationHook(t *testing.T) {
	e := newTestEngine(t)
	placePlayer(t, e, "alice", 400, 300)

	var calls int
	e.SetTickDurationHook(func(d time.Duration) {
		calls++
		if d < 0 {
			t.Errorf("negative tick duration %v", d)
		}
	})

	e.tick()
	e.tick()
	if calls != 2 {
		t.Errorf("hook called %d times, want 2", calls)
	}

	e.SetTickDurationHook(nil)
	e.tick()
	if calls != 2 {
		t.Error("cleared hook still invoked")
	}
}

func TestSetTickDurationHookWhileRunning(t *testing.T) {
	e := NewEngine(Config{
		TickRate: 200,
		Arena:    NewArena(800, 600, nil, 1),
	})
	placePlayer(t, e, "alice", 400, 300)

	// Installing the hook after the loop is already ticking must be
	// safe: both sides go through the engine lock.
	e.Start()
	defer e.Stop()

	called := make(chan struct{}, 1)
	e.SetTickDurationHook(func(time.Duration) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("hook installed mid-run was never invoked")
	}
}

func TestStaleLoopFireCannotMutateAfterStop(t *testing.T) {
	e := newTestEngine(t)
	placePlayer(t, e, "alice", 400, 300)

	e.Start()
	e.mu.Lock()
	stale := e.loopStop
	e.mu.Unlock()
	e.Stop()

	// A ticker fire dequeued just before Stop closed the channel arrives
	// carrying the old loop's identity; it must be discarded.
	before := e.FullState().Tick
	e.tickAs(stale)
	if got := e.FullState().Tick; got != before {
		t.Errorf("stale fire advanced tick from %d to %d after Stop", before, got)
	}

	// Same across a stop-then-restart: the old loop's fires stay dead
	// while the new loop owns the engine.
	e.Start()
	defer e.Stop()
	e.tickAs(stale)
	e.mu.Lock()
	current := e.loopStop
	e.mu.Unlock()
	if stale == current {
		t.Fatal("restart reused the old stop channel")
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	e := newTestEngine(t)
	placePlayer(t, e, "alice", 400, 300)

	got := make(chan FullState, 1)
	id := e.Subscribe(func(s FullState) {
		select {
		case got <- s:
		default:
		}
	})
	defer e.Unsubscribe(id)

	e.tick()

	select {
	case s := <-got:
		if s.Tick != 1 {
			t.Errorf("snapshot tick = %d, want 1", s.Tick)
		}
		if len(s.Players) != 1 {
			t.Errorf("snapshot players = %d, want 1", len(s.Players))
		}
	case <-time.After(time.Second):
		t.Fatal("listener never received a snapshot")
	}
}

func TestPlayerStateFiltersByViewRadius(t *testing.T) {
	e := newTestEngine(t)
	alice := placePlayer(t, e, "alice", 100, 300)
	placePlayer(t, e, "near", 100+ViewRadius-10, 300)
	placePlayer(t, e, "far", 100+ViewRadius+50, 300)

	view, ok := e.PlayerState(alice)
	if !ok {
		t.Fatal("PlayerState returned not-ok for a known player")
	}
	if view.Self.ID != alice {
		t.Errorf("self = %q, want %q", view.Self.ID, alice)
	}
	if len(view.Nearby) != 1 || view.Nearby[0].Name != "near" {
		t.Errorf("nearby = %+v, want only the near player", view.Nearby)
	}

	if _, ok := e.PlayerState("p99"); ok {
		t.Error("PlayerState returned ok for an unknown player")
	}
}

func TestDebugStateExposesPendingActions(t *testing.T) {
	e := newTestEngine(t)
	alice := placePlayer(t, e, "alice", 400, 300)

	e.SubmitAction(alice, Action{Kind: ActionMove, Direction: "up"})

	d := e.DebugState()
	act, ok := d.PendingActions[alice]
	if !ok {
		t.Fatal("pending action missing from debug state")
	}
	if act.Kind != ActionMove || act.Direction != "up" {
		t.Errorf("pending = %+v", act)
	}
	if len(d.Events) == 0 {
		t.Error("debug state should include the join event")
	}

	// Consumed actions disappear from the debug view.
	e.tick()
	if d := e.DebugState(); len(d.PendingActions) != 0 {
		t.Error("consumed action still pending in debug state")
	}
}
