package system

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/server/internal/core/event"
	"github.com/illarion/server/internal/monitor"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

const onlineWriteTimeout = 5 * time.Second

func send(p *world.Player, frame []byte) {
	if p.Conn != nil {
		p.Conn.Send(frame)
	}
}

// visiblePlayers returns the players that can see pos.
func (s *Simulation) visiblePlayers(pos world.Position) []*world.Player {
	return s.players.Within(pos, s.cfg.VisibleRange)
}

func (s *Simulation) sendRemoveCharToVisiblePlayers(id uint32, pos world.Position) {
	frame := packet.RemoveChar(id)
	for _, p := range s.visiblePlayers(pos) {
		if p.ID != id {
			send(p, frame)
		}
	}
}

func (s *Simulation) sendCharacterMoveToAllVisiblePlayers(c *world.Char, mode, duration byte) {
	frame := packet.Move(c.ID, c.Pos.X, c.Pos.Y, c.Pos.Z, mode, duration)
	for _, p := range s.visiblePlayers(c.Pos) {
		send(p, frame)
	}
}

func (s *Simulation) sendSpinToAllVisiblePlayers(c *world.Char) {
	frame := packet.Spin(c.ID, byte(c.Facing))
	for _, p := range s.visiblePlayers(c.Pos) {
		send(p, frame)
	}
}

func (s *Simulation) sendHealth(c *world.Char) {
	frame := packet.Health(c.ID, healthPermille(c))
	for _, p := range s.visiblePlayers(c.Pos) {
		send(p, frame)
	}
}

func (s *Simulation) sendSay(c *world.Char, text string) {
	frame := packet.Say(c.ID, c.Pos.X, c.Pos.Y, c.Pos.Z, text)
	for _, p := range s.visiblePlayers(c.Pos) {
		send(p, frame)
	}
}

func (s *Simulation) igTimeFrame(now time.Time) []byte {
	t := s.cal.At(now)
	return packet.IGTime(t.Year, t.Month, t.Day, t.Hour, t.Minute)
}

func (s *Simulation) sendIGTimeToAllPlayers() {
	frame := s.igTimeFrame(s.now())
	s.players.ForEach(func(p *world.Player) {
		send(p, frame)
	})
}

// sendWorldTo shows a newly arrived player everyone already around it.
func (s *Simulation) sendWorldTo(p *world.Player) {
	r := s.cfg.VisibleRange
	for _, o := range s.players.Within(p.Pos, r) {
		if o.ID != p.ID {
			send(p, packet.Move(o.ID, o.Pos.X, o.Pos.Y, o.Pos.Z, packet.MoveNormal, 0))
		}
	}
	for _, m := range s.monsters.Within(p.Pos, r) {
		send(p, packet.Move(m.ID, m.Pos.X, m.Pos.Y, m.Pos.Z, packet.MoveNormal, 0))
	}
	for _, n := range s.npcs.Within(p.Pos, r) {
		send(p, packet.Move(n.ID, n.Pos.X, n.Pos.Y, n.Pos.Z, packet.MoveNormal, 0))
	}
}

// OnlineNames returns the names of all players in the world, sorted.
func (s *Simulation) OnlineNames() []string {
	var names []string
	s.players.ForEach(func(p *world.Player) {
		names = append(names, p.Name)
	})
	sort.Strings(names)
	return names
}

// updatePlayerList publishes the online list. Subscribers see it at the
// start of the next step.
func (s *Simulation) updatePlayerList() {
	event.Emit(s.bus, event.PlayerListChanged{Online: s.OnlineNames()})
}

// subscribe wires the event consumers the simulation owns.
func (s *Simulation) subscribe() {
	event.Subscribe(s.bus, func(e event.PlayerListChanged) {
		if s.monitor != nil {
			s.monitor.PlayersChanged(e.Online)
		}
		if s.online == nil {
			return
		}
		s.onlineSeq++
		seq, names, at := s.onlineSeq, e.Online, s.now()
		go s.writeOnline(seq, names, at)
	})
	event.Subscribe(s.bus, func(e event.IGDayChanged) {
		s.log.Info("new in-game day",
			zap.Int("year", e.Year),
			zap.Int("month", e.Month),
			zap.Int("day", e.Day),
		)
	})
	event.Subscribe(s.bus, func(e event.PlayerLoggedIn) {
		s.traffic.Logins++
	})
	event.Subscribe(s.bus, func(e event.PlayerLoggedOut) {
		s.traffic.Logouts++
		s.log.Info("player gone",
			zap.String("player", e.Name),
			zap.Uint32("id", e.PlayerID),
			zap.String("reason", e.Reason),
		)
	})
	event.Subscribe(s.bus, func(e event.MonsterSpawned) {
		s.traffic.Spawned++
		s.log.Debug("monster spawned",
			zap.Uint32("id", e.MonsterID),
			zap.Uint16("race", e.Race),
			zap.Uint32("spawn", e.SpawnID),
		)
	})
	event.Subscribe(s.bus, func(e event.MonsterDied) {
		s.traffic.Died++
		s.log.Debug("monster died",
			zap.Uint32("id", e.MonsterID),
			zap.Uint16("race", e.Race),
			zap.Uint32("spawn", e.SpawnID),
		)
	})
	event.Subscribe(s.bus, func(e event.SpawnsReloaded) {
		if !e.OK {
			s.log.Warn("spawn reload left no spawn points", zap.Int("count", e.SpawnPoints))
			return
		}
		s.log.Info("spawns reloaded", zap.Int("count", e.SpawnPoints))
	})
}

// Traffic counts world events since boot, as seen by bus subscribers.
type Traffic struct {
	Logins, Logouts uint64
	Spawned, Died   uint64
}

// Counters returns the event counters.
func (s *Simulation) Counters() Traffic { return s.traffic }

// writeOnline stores one online list. Lists that arrive after a newer one
// was written are dropped.
func (s *Simulation) writeOnline(seq uint64, names []string, at time.Time) {
	s.onlineMu.Lock()
	defer s.onlineMu.Unlock()
	if seq <= s.onlineWritten {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), onlineWriteTimeout)
	defer cancel()
	if err := s.online.Replace(ctx, names, at); err != nil {
		s.log.Warn("write online list", zap.Error(err))
		return
	}
	s.onlineWritten = seq
}

// snapshot is the status pushed to operators.
func (s *Simulation) snapshot() monitor.Snapshot {
	now := s.now()
	t := s.cal.At(now)
	return monitor.Snapshot{
		Type:     "STATUS",
		Time:     now,
		Players:  s.players.Len(),
		Monsters: s.monsters.Len(),
		NPCs:     s.npcs.Len(),
		UsedAP:   s.usedAP,
		IGTime:   fmt.Sprintf("%d-%02d-%02d %02d:%02d", t.Year, t.Month, t.Day, t.Hour, t.Minute),
		Logins:   s.traffic.Logins,
		Logouts:  s.traffic.Logouts,
		Spawned:  s.traffic.Spawned,
		Died:     s.traffic.Died,
	}
}
