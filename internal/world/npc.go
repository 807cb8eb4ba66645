package world

// NPCScript drives an NPC. Implemented by the script host.
type NPCScript interface {
	NextCycle(n *NPC)
	AbortRoute(n *NPC)
}

// NPC is a scripted, immortal world fixture.
type NPC struct {
	Char
	ScriptName string
	Script     NPCScript
	OnRoute    bool
	Waypoints  Waypoints
}

func NewNPC(id uint32, name string, pos Position, hp int, limits *Limits) *NPC {
	n := &NPC{
		Char: Char{
			ID:    id,
			Kind:  KindNPC,
			Name:  name,
			Pos:   pos,
			HP:    hp,
			MaxHP: hp,
		},
	}
	n.SetLimits(limits)
	return n
}
