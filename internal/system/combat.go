package system

import (
	"go.uber.org/zap"

	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

// characterAttacks resolves one attack of attacker on defender. It returns
// false when the defender is dead or out of weapon range. A hit costs
// AttackCost FP; the damage comes from the fighting script.
func (s *Simulation) characterAttacks(attacker, defender world.Character) bool {
	a, d := attacker.Base(), defender.Base()
	if !d.Alive() || !a.Pos.InRange(d.Pos, s.attackRange(a)) {
		return false
	}
	a.IncreaseFightPoints(-s.cfg.AttackCost)
	damage := s.scripts.OnAttack(attacker, defender)
	killed := d.Damage(damage)
	s.sendHealth(d)
	if killed {
		s.characterDied(defender, attacker)
	}
	return true
}

// characterDied handles a character reaching zero hitpoints. Monsters are
// collected by the monster pass and NPCs revived by the NPC pass.
func (s *Simulation) characterDied(victim, killer world.Character) {
	v := victim.Base()
	s.log.Debug("character died",
		zap.Uint32("id", v.ID),
		zap.Stringer("kind", v.Kind),
		zap.Uint32("killer", killer.Base().ID),
	)
	if p, ok := victim.(*world.Player); ok {
		p.FightMode = false
		p.EnemyID = 0
		p.Action.Abort()
		send(p, packet.Info("You have been defeated."))
	}
	if p, ok := killer.(*world.Player); ok && p.EnemyID == v.ID {
		p.FightMode = false
		p.EnemyID = 0
	}
}

// healthPermille is the health bar value of a character.
func healthPermille(c *world.Char) uint16 {
	if c.MaxHP <= 0 {
		return 0
	}
	return uint16(c.HP * 1000 / c.MaxHP)
}
