package component

import (
	"encoding/json"
	"errors"
	"fmt"

	"terminus-core/internal/ecs"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Tags are the stable, persisted tags for component types. They never
// change once written; the numeric ComponentType is an in-memory detail.
const (
	TagPosition   = "position"
	TagHealth     = "health"
	TagRenderHint = "render_hint"
	TagCombat     = "combat"
	TagAI         = "ai"
	TagInventory  = "inventory"
	TagActor      = "actor"
	TagBlocking   = "blocking"
	TagViewer     = "viewer"
	TagItem       = "item"
)

// ErrUnknownKind is returned when decoding a component tag this build does not know.
var ErrUnknownKind = errors.New("component: unknown kind")

type renderHintV1 struct {
	Glyph string `json:"glyph"`
	FG    int32  `json:"fg"` // -1 = terminal default
	BG    int32  `json:"bg"`
	Order int    `json:"order"`
}

// Encode returns the persisted tag and JSON body for c.
func Encode(c ecs.Component) (string, json.RawMessage, error) {
	var (
		kind string
		body any = c
	)
	switch v := c.(type) {
	case Position:
		kind = TagPosition
	case Health:
		kind = TagHealth
	case Combat:
		kind = TagCombat
	case AI:
		kind = TagAI
	case Inventory:
		kind = TagInventory
	case Actor:
		kind = TagActor
	case Blocking:
		kind = TagBlocking
	case Viewer:
		kind = TagViewer
	case Item:
		kind = TagItem
	case RenderHint:
		kind = TagRenderHint
		body = renderHintV1{Glyph: v.Glyph, FG: colorHex(v.FG), BG: colorHex(v.BG), Order: v.Order}
	default:
		return "", nil, fmt.Errorf("%w: type %d", ErrUnknownKind, c.Type())
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return kind, raw, nil
}

// Decode rebuilds a component from its persisted tag and JSON body.
func Decode(kind string, raw []byte) (ecs.Component, error) {
	switch kind {
	case TagPosition:
		return decodeAs[Position](kind, raw)
	case TagHealth:
		return decodeAs[Health](kind, raw)
	case TagCombat:
		return decodeAs[Combat](kind, raw)
	case TagAI:
		return decodeAs[AI](kind, raw)
	case TagInventory:
		return decodeAs[Inventory](kind, raw)
	case TagActor:
		return decodeAs[Actor](kind, raw)
	case TagBlocking:
		return Blocking{}, nil
	case TagViewer:
		return decodeAs[Viewer](kind, raw)
	case TagItem:
		return decodeAs[Item](kind, raw)
	case TagRenderHint:
		var v renderHintV1
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return RenderHint{
			Glyph: v.Glyph,
			FG:    hexColor(v.FG),
			BG:    hexColor(v.BG),
			Order: v.Order,
			Width: runewidth.StringWidth(v.Glyph),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func decodeAs[T ecs.Component](kind string, raw []byte) (ecs.Component, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return v, nil
}

func colorHex(c tcell.Color) int32 {
	if c == tcell.ColorDefault {
		return -1
	}
	return c.TrueColor().Hex()
}

func hexColor(v int32) tcell.Color {
	if v < 0 {
		return tcell.ColorDefault
	}
	return tcell.NewHexColor(v)
}
