package game

import (
	"math"
)

// ActionKind identifies what a queued action does when its tick resolves.
type ActionKind string

const (
	ActionMove   ActionKind = "move"
	ActionShoot  ActionKind = "shoot"
	ActionReload ActionKind = "reload"
)

// Action is a single player intent. At most one is pending per player; a
// new submission overwrites an unconsumed one, it is never queued behind it.
//
// Directional actions (move, shoot) take either a named cardinal direction
// or an angle in degrees. When both are present the angle wins.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Direction string     `json:"direction,omitempty"`
	Angle     *float64   `json:"angle,omitempty"`
}

// directionVectors maps the eight named directions to unit vectors.
// Screen convention: +x is east, +y is south.
var directionVectors = map[string][2]float64{
	"up":        {0, -1},
	"down":      {0, 1},
	"left":      {-1, 0},
	"right":     {1, 0},
	"upleft":    {-math.Sqrt2 / 2, -math.Sqrt2 / 2},
	"upright":   {math.Sqrt2 / 2, -math.Sqrt2 / 2},
	"downleft":  {-math.Sqrt2 / 2, math.Sqrt2 / 2},
	"downright": {math.Sqrt2 / 2, math.Sqrt2 / 2},
}

// Validate checks an action at submission time. This is the only
// synchronous failure path: anything that passes here either resolves or
// becomes a silent no-op when its tick runs.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionMove, ActionShoot:
		if a.Angle != nil {
			return nil
		}
		if a.Direction == "" {
			return ErrMissingDirection
		}
		if _, ok := directionVectors[a.Direction]; !ok {
			return ErrBadDirection
		}
		return nil
	case ActionReload:
		return nil
	default:
		return ErrUnknownAction
	}
}

// vector resolves the action's firing/movement unit vector. Angle takes
// precedence over a named direction. Angles are degrees, 0 pointing east,
// increasing clockwise (y grows downward).
func (a Action) vector() (dx, dy float64) {
	if a.Angle != nil {
		rad := *a.Angle * math.Pi / 180
		return math.Cos(rad), math.Sin(rad)
	}
	v := directionVectors[a.Direction]
	return v[0], v[1]
}
