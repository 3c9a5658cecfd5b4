// Package template holds the static definitions entities are spawned from.
// The simulation only sees the Source interface; tables can be built in
// code or loaded from YAML and swapped on reload.
package template

import (
	"errors"
	"fmt"
	"slices"

	"terminus-core/internal/component"
	"terminus-core/internal/ecs"
)

// ErrInvalid marks a template table that cannot be used.
var ErrInvalid = errors.New("template: invalid")

// Source resolves template ids. Lookups must be cheap; they happen on every
// spawn.
type Source interface {
	Lookup(id string) (Template, bool)
}

// Kind names what a template spawns.
type Kind string

const (
	KindPlayer  Kind = "player"
	KindMonster Kind = "monster"
	KindItem    Kind = "item"
)

func (k Kind) actorKind() (component.ActorKind, bool) {
	switch k {
	case KindPlayer:
		return component.KindPlayer, true
	case KindMonster:
		return component.KindMonster, true
	case KindItem:
		return component.KindItem, true
	}
	return 0, false
}

// Template is one spawnable definition. Zero fields fall back to defaults
// when components are built.
type Template struct {
	ID    string `yaml:"id"`
	Kind  Kind   `yaml:"kind"`
	Name  string `yaml:"name"`
	Glyph string `yaml:"glyph"`
	FG    string `yaml:"fg,omitempty"`
	BG    string `yaml:"bg,omitempty"`
	Order int    `yaml:"order,omitempty"`
	Lore  string `yaml:"lore,omitempty"`

	// actors
	HP           int    `yaml:"hp,omitempty"`
	Attack       int    `yaml:"atk,omitempty"`
	Defense      int    `yaml:"def,omitempty"`
	Behavior     string `yaml:"behavior,omitempty"`
	Sight        int    `yaml:"sight,omitempty"`
	PatrolRadius int    `yaml:"patrol_radius,omitempty"`
	Capacity     int    `yaml:"capacity,omitempty"`
	FOV          int    `yaml:"fov,omitempty"`

	// items
	Slot     component.ItemSlot `yaml:"slot,omitempty"`
	BonusATK int                `yaml:"bonus_atk,omitempty"`
	BonusDEF int                `yaml:"bonus_def,omitempty"`
	Heal     int                `yaml:"heal,omitempty"`
}

const (
	defaultFOV      = 8
	defaultCapacity = 10
)

// Validate checks the fields a spawn depends on.
func (t Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: template without id", ErrInvalid)
	}
	if _, ok := t.Kind.actorKind(); !ok {
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalid, t.ID, t.Kind)
	}
	if t.Glyph == "" {
		return fmt.Errorf("%w: %s: empty glyph", ErrInvalid, t.ID)
	}
	if t.Kind != KindItem && t.HP <= 0 {
		return fmt.Errorf("%w: %s: hp must be positive", ErrInvalid, t.ID)
	}
	if t.Kind == KindMonster {
		if _, ok := component.ParseBehavior(t.Behavior); !ok {
			return fmt.Errorf("%w: %s: unknown behavior %q", ErrInvalid, t.ID, t.Behavior)
		}
	}
	return nil
}

// Components builds the component set for an entity spawned from t at the
// given position. Callers add them in order; Position comes last so the
// spatial index sees a fully formed entity.
func (t Template) Components(x, y, z int) []ecs.Component {
	kind, _ := t.Kind.actorKind()
	fg := t.FG
	order := t.Order
	var cs []ecs.Component
	cs = append(cs, component.Actor{Kind: kind, Name: t.Name, TemplateID: t.ID})

	switch t.Kind {
	case KindPlayer:
		if fg == "" {
			fg = "yellow"
		}
		if order == 0 {
			order = 10
		}
		fov := t.FOV
		if fov <= 0 {
			fov = defaultFOV
		}
		capacity := t.Capacity
		if capacity <= 0 {
			capacity = defaultCapacity
		}
		cs = append(cs,
			component.Health{Current: t.HP, Max: t.HP},
			component.Combat{Attack: t.Attack, Defense: t.Defense},
			component.Inventory{Capacity: capacity},
			component.Viewer{Radius: fov},
			component.Blocking{},
		)
	case KindMonster:
		if fg == "" {
			fg = "red"
		}
		if order == 0 {
			order = 5
		}
		behavior, _ := component.ParseBehavior(t.Behavior)
		cs = append(cs,
			component.Health{Current: t.HP, Max: t.HP},
			component.Combat{Attack: t.Attack, Defense: t.Defense},
			component.AI{Behavior: behavior, SightRange: t.Sight, HomeX: x, HomeY: y, PatrolRadius: t.PatrolRadius},
			component.Blocking{},
		)
		if t.Capacity > 0 {
			cs = append(cs, component.Inventory{Capacity: t.Capacity})
		}
	case KindItem:
		if fg == "" {
			fg = "green"
		}
		if order == 0 {
			order = 2
		}
		cs = append(cs, component.Item{Slot: t.Slot, BonusATK: t.BonusATK, BonusDEF: t.BonusDEF, Heal: t.Heal})
	}
	cs = append(cs,
		component.NewRenderHint(t.Glyph, fg, t.BG, order),
		component.Position{X: x, Y: y, Z: z},
	)
	return cs
}

// Table is an immutable Source built from a list of templates.
type Table struct {
	byID map[string]Template
	ids  []string
}

// NewTable validates ts and indexes them by id. Duplicate ids are an error.
func NewTable(ts ...Template) (*Table, error) {
	t := &Table{byID: make(map[string]Template, len(ts))}
	var errs []error
	for _, tpl := range ts {
		if err := tpl.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := t.byID[tpl.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate id %q", ErrInvalid, tpl.ID))
			continue
		}
		t.byID[tpl.ID] = tpl
		t.ids = append(t.ids, tpl.ID)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	slices.Sort(t.ids)
	return t, nil
}

// MustTable is NewTable for built-in tables that are known to be valid.
func MustTable(ts ...Template) *Table {
	t, err := NewTable(ts...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Lookup(id string) (Template, bool) {
	tpl, ok := t.byID[id]
	return tpl, ok
}

// IDs returns every template id, sorted.
func (t *Table) IDs() []string { return slices.Clone(t.ids) }

func (t *Table) Len() int { return len(t.ids) }
