package system

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/server/internal/core/event"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

const saveTimeout = 5 * time.Second

// checkPlayers is the player pass. Online players within the keepalive
// window get their AP and FP, work off queued commands, fight, finish
// long-time actions and tick effects. At most one player is saved per pass.
// Players that went silent get a graceful logout; players whose connection
// is gone leave the world.
func (s *Simulation) checkPlayers(ap int) {
	now := s.now()
	savedOne := false
	var lost []*world.Player

	s.players.Pass(func(p *world.Player) {
		if p.Online() {
			since := now.Sub(p.Conn.LastKeepalive())
			if since >= 0 && since <= s.cfg.ClientTimeout {
				p.IncreaseActionPoints(ap)
				p.IncreaseFightPoints(ap)
				s.workoutCommands(p)
				s.checkFightMode(p)
				p.Action.Check(now)
				s.checkEffects(&p.Char)

				if !savedOne && now.Sub(p.LastSaveTime) >= s.cfg.PlayerSaveInterval {
					s.savePlayer(p, now)
					savedOne = true
				}
				return
			}
			s.log.Info("player timed out",
				zap.String("player", p.Name),
				zap.Duration("since_keepalive", since),
			)
			p.Conn.ShutdownSend(packet.LogOut(packet.LogoutUnstableConnection))
			return
		}

		s.log.Info("player is offline", zap.String("player", p.Name))
		s.removeFromField(&p.Char)
		s.log.Info("logout", zap.String("player", p.Name))
		s.scripts.OnLogout(p)
		s.logout.Push(p)
		s.sendRemoveCharToVisiblePlayers(p.ID, p.Pos)
		lost = append(lost, p)
	})

	for _, p := range lost {
		s.players.Erase(p.ID)
	}
	if len(lost) > 0 {
		for _, p := range lost {
			event.Emit(s.bus, event.PlayerLoggedOut{PlayerID: p.ID, Name: p.Name, Reason: "offline"})
		}
		s.updatePlayerList()
	}
}

// savePlayer is the blocking per-tick save.
func (s *Simulation) savePlayer(p *world.Player, now time.Time) bool {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.saver.SavePlayer(ctx, p); err != nil {
		s.log.Error("save player", zap.String("player", p.Name), zap.Error(err))
		return false
	}
	p.LastSaveTime = now
	return true
}

// SaveAllPlayers persists every player, ignoring the per-tick budget.
// Used on shutdown.
func (s *Simulation) SaveAllPlayers() int {
	s.mustBeBuilt()
	now := s.now()
	saved := 0
	s.players.ForEach(func(p *world.Player) {
		if s.savePlayer(p, now) {
			saved++
		}
	})
	return saved
}

// removeFromField frees the field a character stands on. A missing field
// is not an error for the caller.
func (s *Simulation) removeFromField(c *world.Char) {
	f, err := s.fields.At(c.Pos)
	if err != nil {
		if errors.Is(err, world.ErrFieldNotFound) {
			s.log.Info("remove character from missing field",
				zap.Uint32("id", c.ID),
				zap.Stringer("pos", c.Pos),
			)
		}
		return
	}
	if f.Occupant() == c.ID {
		if c.Kind == world.KindPlayer {
			f.RemovePlayer()
		} else {
			f.RemoveChar()
		}
	}
}

// checkEffects advances the effect bag one cycle.
func (s *Simulation) checkEffects(c *world.Char) {
	for _, eff := range c.Effects.Check() {
		s.log.Debug("effect expired",
			zap.Uint32("id", c.ID),
			zap.Uint16("effect", eff.ID),
			zap.String("name", eff.Name),
		)
	}
}

// workoutCommands executes queued commands while the player can act. A
// move the player cannot afford yet stays queued, together with everything
// behind it.
func (s *Simulation) workoutCommands(p *world.Player) {
	cmds := p.TakeCommands()
	for i, cmd := range cmds {
		if cmd.Op == world.CmdMove && !p.CanAct() {
			p.Requeue(cmds[i:])
			return
		}
		s.execute(p, cmd)
	}
}

// checkFightMode lets a player in fight mode attack the chosen enemy.
func (s *Simulation) checkFightMode(p *world.Player) {
	if !p.FightMode || p.EnemyID == 0 {
		return
	}
	target, ok := s.findCharacter(p.EnemyID)
	if !ok || !target.Base().Alive() {
		p.FightMode = false
		p.EnemyID = 0
		return
	}
	if !p.Pos.InRange(target.Base().Pos, s.attackRange(&p.Char)) {
		return
	}
	p.Turn(target.Base().Pos)
	if p.CanFight() {
		s.characterAttacks(p, target)
	}
}
