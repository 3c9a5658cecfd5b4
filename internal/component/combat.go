package component

import "terminus-core/internal/ecs"

const CCombat ecs.ComponentType = 4

type Combat struct {
	Attack  int `json:"atk"`
	Defense int `json:"def"`
}

func (Combat) Type() ecs.ComponentType { return CCombat }
