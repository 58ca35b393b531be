package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"api-pvp/internal/game"
	"api-pvp/internal/render"

	"github.com/go-chi/chi/v5"
)

// routerHandlers holds the handler dependencies: the shared battle engine
// and the sandbox manager for per-player practice instances.
type routerHandlers struct {
	battle  *game.Engine
	sandbox *game.SandboxManager
}

// actionRequest is the flattened submitAction payload.
type actionRequest struct {
	PlayerID  string   `json:"playerId"`
	Action    string   `json:"action"`
	Direction string   `json:"direction,omitempty"`
	Angle     *float64 `json:"angle,omitempty"`
}

func (r actionRequest) toAction() game.Action {
	return game.Action{
		Kind:      game.ActionKind(r.Action),
		Direction: r.Direction,
		Angle:     r.Angle,
	}
}

// statusFor maps core validation errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrDuplicateName), errors.Is(err, game.ErrBattleActive):
		return http.StatusConflict
	case errors.Is(err, game.ErrUnknownPlayer):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func (h *routerHandlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		writeError(w, "Username is required", http.StatusBadRequest)
		return
	}

	player, err := h.battle.Register(req.Username)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]interface{}{"player": player})
}

func (h *routerHandlers) handleUnregister(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if err := h.battle.Unregister(playerID); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.battle.SubmitAction(req.PlayerID, req.toAction()); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleReady(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	ready, total, err := h.battle.SetReady(req.PlayerID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	// Orchestration-layer policy: once everyone has opted in and there
	// is an opponent, kick the battle off without a separate start call.
	started := false
	if ready == total && total >= 2 {
		if err := h.battle.StartBattle(); err == nil {
			RecordBattleStarted()
			started = true
		}
	}

	writeJSON(w, map[string]interface{}{
		"success":      true,
		"readyCount":   ready,
		"totalPlayers": total,
		"started":      started,
	})
}

func (h *routerHandlers) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.battle.StartBattle(); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	RecordBattleStarted()
	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "battle started",
	})
}

func (h *routerHandlers) handleReset(w http.ResponseWriter, r *http.Request) {
	h.battle.ResetToLobby()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.battle.FullState())
}

func (h *routerHandlers) handleGetPlayerState(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	view, ok := h.battle.PlayerState(playerID)
	if !ok {
		writeError(w, game.ErrUnknownPlayer.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (h *routerHandlers) handleGetDebugState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.battle.DebugState())
}

func (h *routerHandlers) handleArenaPNG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	if err := render.WritePNG(w, h.battle.FullState()); err != nil {
		writeError(w, "render failed", http.StatusInternalServerError)
	}
}

// Sandbox handlers: same operations, routed into the caller's own
// isolated engine instance.

func (h *routerHandlers) handleSandboxRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		writeError(w, "Username is required", http.StatusBadRequest)
		return
	}

	player, err := h.sandbox.Register(req.Username)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	UpdateSandboxCount(h.sandbox.Count())
	writeJSON(w, map[string]interface{}{"player": player})
}

func (h *routerHandlers) handleSandboxAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.sandbox.SubmitAction(req.PlayerID, req.toAction()); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleSandboxState(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	view, ok := h.sandbox.PlayerState(playerID)
	if !ok {
		writeError(w, game.ErrUnknownPlayer.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (h *routerHandlers) handleSandboxRemove(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	h.sandbox.Remove(playerID)
	UpdateSandboxCount(h.sandbox.Count())
	writeJSON(w, map[string]bool{"success": true})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
