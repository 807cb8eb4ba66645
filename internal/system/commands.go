package system

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

// immediateQueue hands players with immediate commands from the network
// goroutines to the simulation goroutine.
type immediateQueue struct {
	mu      deadlock.Mutex
	players []*world.Player
}

// AddPlayerImmediateActionQueue schedules p's immediate commands for the
// next CheckPlayerImmediateCommands. Safe to call from any goroutine.
func (s *Simulation) AddPlayerImmediateActionQueue(p *world.Player) {
	s.immediate.mu.Lock()
	s.immediate.players = append(s.immediate.players, p)
	s.immediate.mu.Unlock()
}

// CheckPlayerImmediateCommands drains the immediate queue. The lock is
// released while a player's commands run so producers never wait on them.
func (s *Simulation) CheckPlayerImmediateCommands() {
	q := &s.immediate
	q.mu.Lock()
	for len(q.players) > 0 {
		p := q.players[0]
		q.players[0] = nil
		q.players = q.players[1:]
		q.mu.Unlock()

		if p.Online() {
			for _, cmd := range p.TakeImmediate() {
				s.execute(p, cmd)
			}
		}

		q.mu.Lock()
	}
	q.players = nil
	q.mu.Unlock()
}

// execute runs one player command on the simulation goroutine.
func (s *Simulation) execute(p *world.Player, cmd world.Command) {
	switch cmd.Op {
	case world.CmdMove:
		if !cmd.Dir.Valid() {
			return
		}
		if !s.moveCharacter(p, cmd.Dir, packet.MoveNormal) {
			send(p, packet.Move(p.ID, p.Pos.X, p.Pos.Y, p.Pos.Z, packet.MoveNoMove, 0))
		}
	case world.CmdTurn:
		if !cmd.Dir.Valid() {
			return
		}
		p.Facing = cmd.Dir
		s.sendSpinToAllVisiblePlayers(&p.Char)
	case world.CmdSay:
		if strings.HasPrefix(cmd.Text, "!") && s.ExecuteUserCommand(p, cmd.Text, s.commands) {
			return
		}
		s.sendSay(&p.Char, cmd.Text)
	case world.CmdAttack:
		if _, ok := s.findCharacter(cmd.Target); !ok || cmd.Target == p.ID {
			return
		}
		p.EnemyID = cmd.Target
		p.FightMode = true
	case world.CmdStopAttack:
		p.EnemyID = 0
		p.FightMode = false
	}
}

// CommandFunc handles one "!name args" player command.
type CommandFunc func(s *Simulation, p *world.Player, args string)

// CommandMap maps command names to handlers.
type CommandMap map[string]CommandFunc

var commandPattern = regexp.MustCompile(`^!([^ ]+) ?(.*)?$`)

// ExecuteUserCommand dispatches "!name args" to the handler registered for
// name and reports whether one was found.
func (s *Simulation) ExecuteUserCommand(p *world.Player, input string, commands CommandMap) bool {
	m := commandPattern.FindStringSubmatch(input)
	if m == nil {
		return false
	}
	fn, ok := commands[m[1]]
	if !ok {
		return false
	}
	s.log.Debug("user command", zap.String("player", p.Name), zap.String("command", m[1]))
	fn(s, p, m[2])
	return true
}

// DefaultCommands returns the commands every player may use.
func DefaultCommands() CommandMap {
	return CommandMap{
		"who":   cmdWho,
		"loc":   cmdLoc,
		"fight": cmdFight,
		"dir":   cmdDir,
	}
}

func cmdWho(s *Simulation, p *world.Player, _ string) {
	names := s.OnlineNames()
	send(p, packet.Info(fmt.Sprintf("%d online: %s", len(names), strings.Join(names, ", "))))
}

func cmdLoc(_ *Simulation, p *world.Player, _ string) {
	send(p, packet.Info(fmt.Sprintf("Position %s facing %s", p.Pos, p.Facing)))
}

func cmdFight(_ *Simulation, p *world.Player, _ string) {
	p.FightMode = !p.FightMode
	if !p.FightMode {
		p.EnemyID = 0
	}
	send(p, packet.Info(fmt.Sprintf("Fight mode: %t", p.FightMode)))
}

func cmdDir(s *Simulation, p *world.Player, args string) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 0 || n > int(world.MaxDirection) {
		send(p, packet.Info("usage: !dir <0-7>"))
		return
	}
	p.Facing = world.Direction(n)
	s.sendSpinToAllVisiblePlayers(&p.Char)
}
