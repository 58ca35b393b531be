package game

import (
	"sync"
	"time"
)

// SandboxManager maintains one isolated engine instance per practice
// player and routes each player's actions only into their own instance.
// Sandboxes share no mutable state with each other or with the battle
// engine; every instance gets its own arena and its own loop.
type SandboxManager struct {
	mu      sync.Mutex
	newCfg  func() Config
	engines map[string]*Engine // player id → that player's engine
}

// NewSandboxManager creates a manager. newCfg is invoked once per sandbox
// so each engine receives a fresh, exclusively-owned arena; pass nil for
// defaults.
func NewSandboxManager(newCfg func() Config) *SandboxManager {
	if newCfg == nil {
		newCfg = func() Config {
			return Config{Arena: DefaultArena(time.Now().UnixNano())}
		}
	}
	return &SandboxManager{
		newCfg:  newCfg,
		engines: make(map[string]*Engine),
	}
}

// Register spins up a dedicated engine for one practice player, registers
// them, and starts the loop in test mode.
func (m *SandboxManager) Register(name string) (PlayerView, error) {
	engine := NewEngine(m.newCfg())

	view, err := engine.Register(name)
	if err != nil {
		return PlayerView{}, err
	}
	engine.Start()

	m.mu.Lock()
	m.engines[view.ID] = engine
	m.mu.Unlock()

	return view, nil
}

// Engine returns the sandbox engine owned by the given player.
func (m *SandboxManager) Engine(playerID string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[playerID]
	return e, ok
}

// SubmitAction routes an action into the player's own sandbox.
func (m *SandboxManager) SubmitAction(playerID string, act Action) error {
	e, ok := m.Engine(playerID)
	if !ok {
		return ErrUnknownPlayer
	}
	return e.SubmitAction(playerID, act)
}

// PlayerState returns the filtered view from the player's own sandbox.
func (m *SandboxManager) PlayerState(playerID string) (PlayerStateView, bool) {
	e, ok := m.Engine(playerID)
	if !ok {
		return PlayerStateView{}, false
	}
	return e.PlayerState(playerID)
}

// FullState returns the complete snapshot of the player's sandbox.
func (m *SandboxManager) FullState(playerID string) (FullState, bool) {
	e, ok := m.Engine(playerID)
	if !ok {
		return FullState{}, false
	}
	return e.FullState(), true
}

// Remove tears down a player's sandbox: the loop is stopped and the
// instance dropped. Idempotent for unknown players.
func (m *SandboxManager) Remove(playerID string) {
	m.mu.Lock()
	e, ok := m.engines[playerID]
	delete(m.engines, playerID)
	m.mu.Unlock()

	if ok {
		e.Stop()
		e.StopEventLog()
	}
}

// Count returns the number of active sandboxes.
func (m *SandboxManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}

// Shutdown stops every sandbox engine.
func (m *SandboxManager) Shutdown() {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	m.engines = make(map[string]*Engine)
	m.mu.Unlock()

	for _, e := range engines {
		e.Stop()
		e.StopEventLog()
	}
}
