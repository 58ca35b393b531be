// Package render draws a point-in-time arena snapshot as a PNG. Player
// bots have no graphical client, so this is the quickest way for a human
// to eyeball what their script is doing.
package render

import (
	"io"
	"math"

	"api-pvp/internal/game"

	"github.com/fogleman/gg"
)

const (
	backgroundColor = "#1a1a2e"
	obstacleColor   = "#4a4a6a"
	borderColor     = "#8888aa"
	bulletColor     = "#ffdd55"
	deadColor       = "#555555"
	hpBackColor     = "#330000"
	hpFillColor     = "#44cc44"
	textColor       = "#eeeeee"
)

const (
	hpBarWidth  = 34.0
	hpBarHeight = 5.0
	hpBarOffset = 8.0
)

// WritePNG renders the snapshot and writes the encoded PNG to w.
func WritePNG(w io.Writer, state game.FullState) error {
	width := int(state.Arena.Width)
	height := int(state.Arena.Height)
	if width <= 0 || height <= 0 {
		width, height = game.DefaultArenaWidth, game.DefaultArenaHeight
	}

	dc := gg.NewContext(width, height)

	dc.SetHexColor(backgroundColor)
	dc.Clear()

	dc.SetHexColor(obstacleColor)
	for _, o := range state.Arena.Obstacles {
		dc.DrawRectangle(o.X, o.Y, o.W, o.H)
		dc.Fill()
	}

	dc.SetHexColor(borderColor)
	dc.SetLineWidth(2)
	dc.DrawRectangle(1, 1, float64(width)-2, float64(height)-2)
	dc.Stroke()

	dc.SetHexColor(bulletColor)
	for _, p := range state.Projectiles {
		dc.DrawCircle(p.X, p.Y, game.BulletRadius)
		dc.Fill()
	}

	for _, p := range state.Players {
		drawPlayer(dc, p)
	}

	drawStatus(dc, state, width)

	return dc.EncodePNG(w)
}

func drawPlayer(dc *gg.Context, p game.PlayerView) {
	color := p.Color
	if !p.Alive {
		color = deadColor
	}
	dc.SetHexColor(color)
	dc.DrawCircle(p.X, p.Y, game.PlayerRadius)
	dc.Fill()

	dc.SetHexColor(textColor)
	dc.DrawStringAnchored(p.Name, p.X, p.Y+game.PlayerRadius+12, 0.5, 0.5)

	if !p.Alive {
		return
	}

	// HP bar above the head.
	barX := p.X - hpBarWidth/2
	barY := p.Y - game.PlayerRadius - hpBarOffset - hpBarHeight
	dc.SetHexColor(hpBackColor)
	dc.DrawRectangle(barX, barY, hpBarWidth, hpBarHeight)
	dc.Fill()

	frac := math.Max(0, float64(p.HP)/float64(p.MaxHP))
	dc.SetHexColor(hpFillColor)
	dc.DrawRectangle(barX, barY, hpBarWidth*frac, hpBarHeight)
	dc.Fill()
}

func drawStatus(dc *gg.Context, state game.FullState, width int) {
	label := string(state.Mode)
	if state.Winner != nil {
		label = "winner: " + state.Winner.Name
	}
	dc.SetHexColor(textColor)
	dc.DrawStringAnchored(label, float64(width)/2, 14, 0.5, 0.5)
}
