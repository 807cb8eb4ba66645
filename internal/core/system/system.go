package system

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhasePlayers  Phase = iota // 0: connections, commands, saves, logouts
	PhaseMonsters              // 1: spawning and monster AI
	PhaseNPCs                  // 2: scripted NPCs
)

func (p Phase) String() string {
	switch p {
	case PhasePlayers:
		return "players"
	case PhaseMonsters:
		return "monsters"
	case PhaseNPCs:
		return "npcs"
	}
	return "unknown"
}

// Pass is one population pass of the world turn. ap is the number of
// action points granted by the tick.
type Pass interface {
	Phase() Phase
	Run(ap int)
}
