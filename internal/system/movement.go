package system

import (
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

// stepDuration is the animation length of one step in 100ms units.
const stepDuration = 4

// moveCharacter makes one step in direction d. The character turns even if
// the step is blocked. A successful step costs StepCost AP and is shown to
// every player that can see the old or the new position.
func (s *Simulation) moveCharacter(c world.Character, d world.Direction, mode byte) bool {
	b := c.Base()
	b.Facing = d
	to := b.Pos.Moved(d)
	dst, err := s.fields.At(to)
	if err != nil || !dst.Free() {
		return false
	}
	if src, err := s.fields.At(b.Pos); err == nil && src.Occupant() == b.ID {
		src.RemoveChar()
	}
	dst.SetChar(b.ID)

	from := b.Pos
	b.Pos = to
	s.relocate(b)
	b.IncreaseActionPoints(-s.cfg.StepCost)

	for _, p := range s.players.Within(from, s.cfg.VisibleRange) {
		if !p.Pos.InRange(to, s.cfg.VisibleRange) {
			send(p, packet.RemoveChar(b.ID))
		}
	}
	s.sendCharacterMoveToAllVisiblePlayers(b, mode, stepDuration)
	return true
}

// performStep moves c one step towards target, trying the straight
// direction first and then its two neighbours.
func (s *Simulation) performStep(c world.Character, target world.Position) bool {
	d, ok := c.Base().Pos.DirectionTo(target)
	if !ok {
		return false
	}
	for _, turn := range []int{0, 1, -1} {
		if s.moveCharacter(c, d.Rotate(turn), packet.MoveNormal) {
			return true
		}
	}
	return false
}

// Warp puts a character on pos without walking, if the field is free.
func (s *Simulation) Warp(c world.Character, pos world.Position) bool {
	b := c.Base()
	dst, err := s.fields.At(pos)
	if err != nil || !dst.Free() {
		return false
	}
	s.removeFromField(b)
	s.sendRemoveCharToVisiblePlayers(b.ID, b.Pos)
	dst.SetChar(b.ID)
	b.Pos = pos
	s.relocate(b)
	s.sendCharacterMoveToAllVisiblePlayers(b, packet.MoveNormal, 0)
	return true
}

func (s *Simulation) relocate(b *world.Char) {
	switch b.Kind {
	case world.KindPlayer:
		s.players.Relocate(b.ID, b.Pos)
	case world.KindMonster:
		s.monsters.Relocate(b.ID, b.Pos)
	case world.KindNPC:
		s.npcs.Relocate(b.ID, b.Pos)
	}
}

// findCharacter looks an object ID up in the population its range belongs to.
func (s *Simulation) findCharacter(id uint32) (world.Character, bool) {
	switch world.KindOf(id) {
	case world.KindMonster:
		if m, ok := s.monsters.Find(id); ok {
			return m, true
		}
	case world.KindNPC:
		if n, ok := s.npcs.Find(id); ok {
			return n, true
		}
	default:
		if p, ok := s.players.Find(id); ok {
			return p, true
		}
	}
	return nil, false
}

// freeFieldNear returns pos if it is free, else the nearest free field in
// growing squares up to radius.
func (s *Simulation) freeFieldNear(pos world.Position, radius int) (world.Position, bool) {
	if s.fields.Free(pos) {
		return pos, true
	}
	for r := 1; r <= radius; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				p := world.Position{X: pos.X + int16(dx), Y: pos.Y + int16(dy), Z: pos.Z}
				if s.fields.Free(p) {
					return p, true
				}
			}
		}
	}
	return world.Position{}, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
