package component

import "terminus-core/internal/ecs"

const CAI ecs.ComponentType = 5

// AIBehavior describes how an entity acts when its batch comes up.
type AIBehavior uint8

const (
	BehaviorPassive    AIBehavior = iota // occasional random step
	BehaviorAggressive                   // chase the nearest player in range, attack if adjacent
	BehaviorPatrol                       // frequent random steps around home
	BehaviorStatic                       // never moves
)

var behaviorNames = map[string]AIBehavior{
	"passive":    BehaviorPassive,
	"aggressive": BehaviorAggressive,
	"patrol":     BehaviorPatrol,
	"static":     BehaviorStatic,
}

// ParseBehavior maps a template behavior id to an AIBehavior.
func ParseBehavior(name string) (AIBehavior, bool) {
	b, ok := behaviorNames[name]
	return b, ok
}

func (b AIBehavior) String() string {
	for name, v := range behaviorNames {
		if v == b {
			return name
		}
	}
	return "unknown"
}

type AI struct {
	Behavior     AIBehavior `json:"behavior"`
	SightRange   int        `json:"sight"`
	HomeX        int        `json:"home_x"`
	HomeY        int        `json:"home_y"`
	PatrolRadius int        `json:"patrol_radius,omitempty"`
}

func (AI) Type() ecs.ComponentType { return CAI }
