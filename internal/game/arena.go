package game

import (
	"math"
	"math/rand"
)

// Point is a position in arena units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Obstacle is an axis-aligned rectangle (wall or crate) that blocks
// movement and stops bullets.
type Obstacle struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// blocks reports whether a circle at (x, y) with the given radius overlaps
// this rectangle. Standard closest-point circle/rect test.
func (o Obstacle) blocks(x, y, radius float64) bool {
	cx := math.Max(o.X, math.Min(x, o.X+o.W))
	cy := math.Max(o.Y, math.Min(y, o.Y+o.H))
	dx := x - cx
	dy := y - cy
	return dx*dx+dy*dy < radius*radius
}

// Arena owns the static geometry of a play field. It answers blocking
// queries and hands out spawn points; it never mutates between ticks.
//
// An Arena belongs to exactly one engine and is queried only under that
// engine's lock, so the embedded RNG needs no synchronization of its own.
type Arena struct {
	Width     float64
	Height    float64
	Obstacles []Obstacle

	rng *rand.Rand
}

// spawnAttempts is how many candidate points SpawnPoint samples before
// settling on the one farthest from every occupied position.
const spawnAttempts = 32

// NewArena creates an arena with the given dimensions and obstacle layout.
func NewArena(width, height float64, obstacles []Obstacle, seed int64) *Arena {
	return &Arena{
		Width:     width,
		Height:    height,
		Obstacles: obstacles,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// DefaultArena builds the standard layout at the default dimensions.
func DefaultArena(seed int64) *Arena {
	return StandardArena(DefaultArenaWidth, DefaultArenaHeight, seed)
}

// StandardArena builds the standard layout at the given dimensions: a
// bordered field with a center wall pair and a few crates for cover.
func StandardArena(w, h float64, seed int64) *Arena {
	obstacles := []Obstacle{
		// Center walls with a gap between them.
		{X: w/2 - 10, Y: h/2 - 150, W: 20, H: 110},
		{X: w/2 - 10, Y: h/2 + 40, W: 20, H: 110},
		// Corner crates.
		{X: 140, Y: 120, W: 50, H: 50},
		{X: w - 190, Y: 120, W: 50, H: 50},
		{X: 140, Y: h - 170, W: 50, H: 50},
		{X: w - 190, Y: h - 170, W: 50, H: 50},
	}
	return NewArena(w, h, obstacles, seed)
}

// IsBlocked reports whether a circle at (x, y) with the given radius is
// outside the arena bounds or overlaps any obstacle.
func (a *Arena) IsBlocked(x, y, radius float64) bool {
	if x-radius < 0 || x+radius > a.Width || y-radius < 0 || y+radius > a.Height {
		return true
	}
	for _, o := range a.Obstacles {
		if o.blocks(x, y, radius) {
			return true
		}
	}
	return false
}

// SpawnPoint picks a free position for a new player, preferring the
// candidate farthest from every already-occupied point. Falls back to the
// arena center if no unblocked candidate is found (a degenerate layout).
func (a *Arena) SpawnPoint(occupied []Point) Point {
	best := Point{X: a.Width / 2, Y: a.Height / 2}
	bestScore := -1.0

	for i := 0; i < spawnAttempts; i++ {
		x := PlayerRadius + a.rng.Float64()*(a.Width-2*PlayerRadius)
		y := PlayerRadius + a.rng.Float64()*(a.Height-2*PlayerRadius)
		if a.IsBlocked(x, y, PlayerRadius) {
			continue
		}

		score := math.Inf(1)
		for _, p := range occupied {
			dx := p.X - x
			dy := p.Y - y
			if d := math.Sqrt(dx*dx + dy*dy); d < score {
				score = d
			}
		}
		if len(occupied) == 0 {
			// Any free point works when the arena is empty.
			return Point{X: x, Y: y}
		}
		if score > bestScore {
			bestScore = score
			best = Point{X: x, Y: y}
		}
	}
	return best
}

// View returns the immutable arena description included in snapshots.
func (a *Arena) View() ArenaView {
	obstacles := make([]Obstacle, len(a.Obstacles))
	copy(obstacles, a.Obstacles)
	return ArenaView{
		Width:     a.Width,
		Height:    a.Height,
		Obstacles: obstacles,
	}
}
