package game

// Player is a combatant in one engine instance. All fields are mutated
// only by the owning engine's tick phases (or by operations holding the
// engine lock), so the struct itself carries no synchronization.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`

	X float64 `json:"x"`
	Y float64 `json:"y"`

	HP             int `json:"hp"`
	MaxHP          int `json:"maxHp"`
	Ammo           int `json:"ammo"`
	MaxAmmo        int `json:"maxAmmo"`
	ReloadCooldown int `json:"reloadCooldown"`

	Alive bool `json:"alive"`
	Ready bool `json:"ready"`

	Kills       int `json:"kills"`
	DamageDealt int `json:"damageDealt"`

	// seq is the registration index within this engine; it is the
	// stable iteration order and the explicit tie-break key.
	seq int

	// pending is the single queued action slot. Overwritten by new
	// submissions, cleared the moment a tick consumes it.
	pending *Action
}

func newPlayer(id, name string, seq int, spawn Point) *Player {
	return &Player{
		ID:      id,
		Name:    name,
		Color:   playerColors[seq%len(playerColors)],
		X:       spawn.X,
		Y:       spawn.Y,
		HP:      MaxHP,
		MaxHP:   MaxHP,
		Ammo:    MaxAmmo,
		MaxAmmo: MaxAmmo,
		Alive:   true,
		seq:     seq,
	}
}

// queueAction overwrites the pending slot. Only the last action submitted
// before the tick boundary is honored.
func (p *Player) queueAction(a Action) {
	p.pending = &a
}

// takePending consumes and clears the pending slot so a stale action is
// never replayed on a later tick.
func (p *Player) takePending() (Action, bool) {
	if p.pending == nil {
		return Action{}, false
	}
	a := *p.pending
	p.pending = nil
	return a, true
}

// applyDamage subtracts raw damage, floors HP at zero, and returns the
// amount actually dealt (for shooter attribution).
func (p *Player) applyDamage(amount int) int {
	if !p.Alive || amount <= 0 {
		return 0
	}
	dealt := amount
	if dealt > p.HP {
		dealt = p.HP
	}
	p.HP -= dealt
	if p.HP <= 0 {
		p.HP = 0
		p.Alive = false
	}
	return dealt
}

// reload restores ammo and starts the cooldown. Returns false when the
// action is a policy no-op (full ammo or cooldown still running).
func (p *Player) reload() bool {
	if p.Ammo >= p.MaxAmmo || p.ReloadCooldown > 0 {
		return false
	}
	p.Ammo += ReloadAmount
	if p.Ammo > p.MaxAmmo {
		p.Ammo = p.MaxAmmo
	}
	p.ReloadCooldown = ReloadCooldownTicks
	return true
}

// tickCooldowns decrements per-tick counters toward zero.
func (p *Player) tickCooldowns() {
	if p.ReloadCooldown > 0 {
		p.ReloadCooldown--
	}
}

// resetForBattle restores a player to fighting condition at a fresh spawn.
// Kills and damage are cleared: stats are per-battle.
func (p *Player) resetForBattle(spawn Point) {
	p.X = spawn.X
	p.Y = spawn.Y
	p.HP = p.MaxHP
	p.Ammo = p.MaxAmmo
	p.ReloadCooldown = 0
	p.Alive = true
	p.Kills = 0
	p.DamageDealt = 0
	p.pending = nil
}

// View returns the immutable per-player snapshot used in all state views.
func (p *Player) View() PlayerView {
	return PlayerView{
		ID:             p.ID,
		Name:           p.Name,
		Color:          p.Color,
		X:              p.X,
		Y:              p.Y,
		HP:             p.HP,
		MaxHP:          p.MaxHP,
		Ammo:           p.Ammo,
		MaxAmmo:        p.MaxAmmo,
		ReloadCooldown: p.ReloadCooldown,
		Alive:          p.Alive,
		Ready:          p.Ready,
		Kills:          p.Kills,
		DamageDealt:    p.DamageDealt,
	}
}
