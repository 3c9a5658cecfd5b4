package component

import "terminus-core/internal/ecs"

const (
	CActor    ecs.ComponentType = 8
	CBlocking ecs.ComponentType = 9
	CViewer   ecs.ComponentType = 10
)

// ActorKind tags what a placeable entity is.
type ActorKind uint8

const (
	KindPlayer ActorKind = iota + 1
	KindMonster
	KindItem
)

func (k ActorKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMonster:
		return "monster"
	case KindItem:
		return "item"
	default:
		return "unknown"
	}
}

// Actor is the tagged variant shared by everything placeable on the map.
// Systems switch on Kind instead of relying on per-kind interfaces.
type Actor struct {
	Kind       ActorKind `json:"kind"`
	Name       string    `json:"name"`
	TemplateID string    `json:"template,omitempty"`
}

func (Actor) Type() ecs.ComponentType { return CActor }

// Blocking marks an entity that occupies its tile (blocks movement).
type Blocking struct{}

func (Blocking) Type() ecs.ComponentType { return CBlocking }

// Viewer marks an entity whose field of view is tracked between ticks.
type Viewer struct {
	Radius int `json:"radius"`
}

func (Viewer) Type() ecs.ComponentType { return CViewer }
