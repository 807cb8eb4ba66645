package system

import (
	"go.uber.org/zap"

	"github.com/illarion/server/internal/data"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

// checkNPCs is the NPC pass. Lost NPCs are purged first. Living NPCs near a
// player (or walking a route) run their script cycle; dead NPCs stand up
// again at full health.
func (s *Simulation) checkNPCs(ap int) {
	s.deleteLostNPCs()

	s.npcs.Pass(func(n *world.NPC) {
		if !n.Alive() {
			n.HP = n.MaxHP
			s.sendSpinToAllVisiblePlayers(&n.Char)
			return
		}
		n.IncreaseActionPoints(ap)
		s.checkEffects(&n.Char)

		if !s.isPlayerNearby(n.Pos) && !n.OnRoute {
			return
		}
		if !n.CanAct() || n.Script == nil {
			return
		}
		n.Script.NextCycle(n)
		if n.OnRoute && !n.Waypoints.MakeMove(n.Pos, func(d world.Direction) bool {
			return s.moveCharacter(n, d, packet.MoveNormal)
		}) {
			n.OnRoute = false
			n.Script.AbortRoute(n)
		}
	})
}

// AddNPC places an NPC and attaches its script. An NPC whose script cannot
// be found is marked lost and purged by the next NPC pass.
func (s *Simulation) AddNPC(n *world.NPC) bool {
	s.mustBeBuilt()
	n.SetLimits(&s.limits)
	if n.ScriptName != "" && n.Script == nil {
		if sc, ok := s.scripts.NPC(n.ScriptName); ok {
			n.Script = sc
		} else {
			s.log.Warn("npc script not loaded",
				zap.String("npc", n.Name),
				zap.String("script", n.ScriptName),
			)
			s.MarkNPCLost(n.ID)
		}
	}
	if !s.npcs.Insert(n) {
		return false
	}
	if f, err := s.fields.At(n.Pos); err == nil {
		f.SetChar(n.ID)
	}
	s.sendCharacterMoveToAllVisiblePlayers(&n.Char, packet.MoveNormal, 4)
	return true
}

// MarkNPCLost queues an NPC for removal by the next NPC pass.
func (s *Simulation) MarkNPCLost(id uint32) {
	s.lostNPCs = append(s.lostNPCs, id)
}

func (s *Simulation) deleteLostNPCs() {
	for _, id := range s.lostNPCs {
		n, ok := s.npcs.Find(id)
		if !ok {
			continue
		}
		s.removeFromField(&n.Char)
		s.sendRemoveCharToVisiblePlayers(n.ID, n.Pos)
		s.npcs.Erase(id)
		s.log.Info("lost npc removed", zap.Uint32("id", id), zap.String("npc", n.Name))
	}
	s.lostNPCs = s.lostNPCs[:0]
}

// InitNPC removes every NPC from the world, typically before reloading them.
// LoadNPCs replaces the NPC population with the given placements and
// returns how many were added.
func (s *Simulation) LoadNPCs(defs []data.NPCDef) int {
	s.InitNPC()
	added := 0
	for i := range defs {
		d := &defs[i]
		n := world.NewNPC(world.NextNPCID(), d.Name, d.Pos(), d.HP, nil)
		n.Facing = world.Direction(d.Facing)
		n.ScriptName = d.Script
		if f, err := s.fields.At(n.Pos); err != nil || f.Occupied() {
			s.log.Warn("npc field unusable", zap.String("npc", d.Name), zap.Stringer("pos", n.Pos))
			continue
		}
		if s.AddNPC(n) {
			added++
		}
	}
	s.log.Info("npcs loaded", zap.Int("count", added))
	return added
}

func (s *Simulation) InitNPC() {
	s.mustBeBuilt()
	s.npcs.ForEach(func(n *world.NPC) {
		s.removeFromField(&n.Char)
		s.sendRemoveCharToVisiblePlayers(n.ID, n.Pos)
	})
	s.npcs.Clear()
	s.lostNPCs = s.lostNPCs[:0]
}
