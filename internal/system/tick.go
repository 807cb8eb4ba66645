package system

import (
	coresys "github.com/illarion/server/internal/core/system"
)

// TurnTheWorld is the tick driver. Action points are ledgered against the
// time elapsed since the simulation was built: every MinAPUpdate of real
// time is worth one AP, and a tick hands out whatever the ledger owes.
// A late tick therefore grants the backlog at once and the ledger never
// runs ahead of the clock. Ticks that owe nothing do nothing.
func (s *Simulation) TurnTheWorld() {
	s.mustBeBuilt()
	elapsed := s.now().Sub(s.startTime)
	s.ap = int(int64(elapsed/s.cfg.MinAPUpdate) - s.usedAP)
	if s.ap <= 0 {
		return
	}
	s.usedAP += int64(s.ap)
	s.runner.Tick(s.ap)
}

type playerPass struct{ s *Simulation }

func (p *playerPass) Phase() coresys.Phase { return coresys.PhasePlayers }
func (p *playerPass) Run(ap int)           { p.s.checkPlayers(ap) }

type monsterPass struct{ s *Simulation }

func (p *monsterPass) Phase() coresys.Phase { return coresys.PhaseMonsters }
func (p *monsterPass) Run(ap int)           { p.s.checkMonsters(ap) }

type npcPass struct{ s *Simulation }

func (p *npcPass) Phase() coresys.Phase { return coresys.PhaseNPCs }
func (p *npcPass) Run(ap int)           { p.s.checkNPCs(ap) }
