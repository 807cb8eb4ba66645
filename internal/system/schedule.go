package system

import (
	"go.uber.org/zap"

	"github.com/illarion/server/internal/core/event"
	"github.com/illarion/server/internal/world"
)

// InitScheduler registers the recurring maintenance tasks. The world turn
// is one of them; update_ig_day first fires at the next in-game day change.
func (s *Simulation) InitScheduler() {
	s.mustBeBuilt()
	c := s.schedCfg
	sch := s.scheduler

	reduceMC := func(ch world.Character) {
		if ch.Base().MentalCapacity > 0 {
			s.scripts.ReduceMC(ch)
		}
	}

	sch.AddRecurringTask("increase_player_learn_points", c.ReduceMentalCapacity, func() {
		s.players.ForEach(func(p *world.Player) { reduceMC(p) })
	})
	sch.AddRecurringTask("increase_monster_learn_points", c.ReduceMentalCapacity, func() {
		s.monsters.ForEach(func(m *world.Monster) { reduceMC(m) })
		s.npcs.ForEach(func(n *world.NPC) { reduceMC(n) })
	})
	sch.AddRecurringTask("check_monitoring_clients", c.CheckMonitoringClients, s.checkMonitoringClients)
	sch.AddRecurringTask("check_scheduled_scripts", c.ScheduledScripts, func() {
		s.scripts.NextScheduledCycle(s.now())
	})
	sch.AddRecurringTask("age_inventory", c.WearReduction, s.ageInventory)
	sch.AddRecurringTask("age_maps", c.WearReduction, s.ageMaps)
	sch.AddRecurringTask("turntheworld", c.GameLoop, s.TurnTheWorld)
	sch.AddAnchoredTask("update_ig_day", c.IngameTimeUpdate, s.cal.NextDayAnchor(s.now()), s.updateIGDay)
}

func (s *Simulation) checkMonitoringClients() {
	if s.monitor == nil {
		return
	}
	s.monitor.CheckClients(s.snapshot())
}

func (s *Simulation) ageInventory() {
	rotted := 0
	s.players.ForEach(func(p *world.Player) { rotted += p.AgeItems() })
	s.monsters.ForEach(func(m *world.Monster) { rotted += m.AgeItems() })
	s.npcs.ForEach(func(n *world.NPC) { rotted += n.AgeItems() })
	if rotted > 0 {
		s.log.Debug("inventory aged", zap.Int("rotted", rotted))
	}
}

func (s *Simulation) ageMaps() {
	if rotted := s.fields.Age(); rotted > 0 {
		s.log.Debug("maps aged", zap.Int("rotted", rotted))
	}
}

// updateIGDay sends the in-game time to everyone and runs the day change
// work when a new in-game day began.
func (s *Simulation) updateIGDay() {
	now := s.now()
	s.sendIGTimeToAllPlayers()

	day := s.cal.DayNumber(now)
	if day == s.igDay {
		return
	}
	s.igDay = day
	s.InvalidatePlayerDialogs()
	t := s.cal.At(now)
	event.Emit(s.bus, event.IGDayChanged{Year: t.Year, Month: t.Month, Day: t.Day, At: now})
}

// InvalidatePlayerDialogs closes every open dialog of every player.
func (s *Simulation) InvalidatePlayerDialogs() {
	s.players.ForEach(func(p *world.Player) { p.InvalidateDialogs() })
}
