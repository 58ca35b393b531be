package game

import "math"

// Projectile is a short-lived bullet. Its velocity is fixed at spawn time
// (direction × bullet speed) and never changes; it advances one step per
// tick and self-expires at its lifetime cap.
type Projectile struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`

	X float64 `json:"x"`
	Y float64 `json:"y"`
	// Pre-move position, kept for the swept collision segment.
	PrevX float64 `json:"-"`
	PrevY float64 `json:"-"`

	VX float64 `json:"vx"`
	VY float64 `json:"vy"`

	Damage      int  `json:"-"`
	TicksLived  int  `json:"-"`
	MaxLifetime int  `json:"-"`
	Alive       bool `json:"-"`
}

func newProjectile(id, ownerID string, origin Point, dirX, dirY float64) *Projectile {
	return &Projectile{
		ID:          id,
		OwnerID:     ownerID,
		X:           origin.X,
		Y:           origin.Y,
		PrevX:       origin.X,
		PrevY:       origin.Y,
		VX:          dirX * BulletSpeed,
		VY:          dirY * BulletSpeed,
		Damage:      BulletDamage,
		MaxLifetime: BulletLifetime,
		Alive:       true,
	}
}

// advance moves the projectile by its per-tick velocity and expires it at
// the lifetime cap. The pre-move position is retained for swept checks.
func (pr *Projectile) advance() {
	pr.PrevX = pr.X
	pr.PrevY = pr.Y
	pr.X += pr.VX
	pr.Y += pr.VY
	pr.TicksLived++
	if pr.TicksLived >= pr.MaxLifetime {
		pr.Alive = false
	}
}

// sweptHit tests the segment from the projectile's previous position to
// its current one against the target's collision circle. A bullet covering
// several player diameters in one tick still registers the hit; a plain
// point check would tunnel straight through.
func (pr *Projectile) sweptHit(target *Player) bool {
	if !pr.Alive || !target.Alive || target.ID == pr.OwnerID {
		return false
	}
	dist := pointSegmentDistance(target.X, target.Y, pr.PrevX, pr.PrevY, pr.X, pr.Y)
	return dist < BulletRadius+PlayerRadius
}

// View returns the immutable projectile snapshot for state views.
func (pr *Projectile) View() ProjectileView {
	return ProjectileView{
		ID:      pr.ID,
		OwnerID: pr.OwnerID,
		X:       pr.X,
		Y:       pr.Y,
		VX:      pr.VX,
		VY:      pr.VY,
	}
}

// pointSegmentDistance returns the minimum distance from point (px, py) to
// the segment (x1, y1)-(x2, y2).
func pointSegmentDistance(px, py, x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-x1, py-y1)
	}
	t := ((px-x1)*dx + (py-y1)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx := x1 + t*dx
	cy := y1 + t*dy
	return math.Hypot(px-cx, py-cy)
}
