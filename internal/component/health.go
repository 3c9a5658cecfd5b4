package component

import "terminus-core/internal/ecs"

const CHealth ecs.ComponentType = 2

type Health struct {
	Current int `json:"cur"`
	Max     int `json:"max"`
}

func (Health) Type() ecs.ComponentType { return CHealth }
