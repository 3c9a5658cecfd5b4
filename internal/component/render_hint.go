package component

import (
	"terminus-core/internal/ecs"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const CRenderHint ecs.ComponentType = 3

// RenderHint tells a renderer how to draw an entity. The core never draws;
// it only carries the hint and drops it from remembered tiles.
type RenderHint struct {
	Glyph string
	FG    tcell.Color
	BG    tcell.Color
	Order int
	Width int // terminal cells occupied by Glyph
}

func (RenderHint) Type() ecs.ComponentType { return CRenderHint }

// NewRenderHint builds a hint from a glyph and color names ("red",
// "#ff8800"). Unknown color names fall back to the terminal default. Named
// colors are stored as RGB so a persisted hint decodes to an equal value.
func NewRenderHint(glyph, fg, bg string, order int) RenderHint {
	return RenderHint{
		Glyph: glyph,
		FG:    parseColor(fg),
		BG:    parseColor(bg),
		Order: order,
		Width: runewidth.StringWidth(glyph),
	}
}

func parseColor(name string) tcell.Color {
	c := tcell.GetColor(name)
	if c == tcell.ColorDefault {
		return c
	}
	return c.TrueColor()
}
