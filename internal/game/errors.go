package game

import "errors"

// Validation errors returned synchronously to callers. Policy rejections
// (no ammo, blocked movement, acting while dead) are deliberately NOT
// errors: they resolve as silent no-ops at tick time.
var (
	ErrDuplicateName    = errors.New("username already taken")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrUnknownAction    = errors.New("unknown action kind")
	ErrMissingDirection = errors.New("action requires a direction or angle")
	ErrBadDirection     = errors.New("unrecognized direction")
	ErrBattleActive     = errors.New("battle already in progress")
	ErrNoPlayers        = errors.New("cannot start a battle with no players")
)
