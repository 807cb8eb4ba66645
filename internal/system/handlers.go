package system

import (
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/illarion/server/internal/net"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

const maxNameLength = 32

// Handlers turns client frames into login requests and player commands.
// Every method runs on a session's reader goroutine.
type Handlers struct {
	sim           *Simulation
	pm            *PlayerManager
	clientVersion uint16
	log           *zap.Logger
}

// RegisterHandlers installs the client opcodes on reg.
func RegisterHandlers(reg *packet.Registry, sim *Simulation, pm *PlayerManager, clientVersion int, log *zap.Logger) *Handlers {
	h := &Handlers{sim: sim, pm: pm, clientVersion: uint16(clientVersion), log: log}
	allStates := []packet.SessionState{packet.StateConnected, packet.StateLoggingIn, packet.StateInWorld, packet.StateDisconnecting}
	inWorld := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.C_LOGIN, []packet.SessionState{packet.StateConnected}, h.login)
	reg.Register(packet.C_KEEPALIVE, allStates, func(any, *packet.Reader) {})
	reg.Register(packet.C_LOGOUT, []packet.SessionState{packet.StateLoggingIn, packet.StateInWorld}, h.logout)
	reg.Register(packet.C_MOVE, inWorld, h.move)
	reg.Register(packet.C_TURN, inWorld, h.turn)
	reg.Register(packet.C_SAY, inWorld, h.say)
	reg.Register(packet.C_ATTACK, inWorld, h.attack)
	reg.Register(packet.C_STOPATTACK, inWorld, h.stopAttack)
	return h
}

func (h *Handlers) login(s any, r *packet.Reader) {
	sess := s.(*net.Session)
	version := r.ReadH()
	name := r.ReadS()

	if h.clientVersion != 0 && version < h.clientVersion {
		h.log.Info("old client refused", zap.String("ip", sess.IP), zap.Uint16("version", version))
		sess.ShutdownSend(packet.LogOut(packet.LogoutOldClient))
		return
	}
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		sess.ShutdownSend(packet.LogOut(packet.LogoutWrongPassword))
		return
	}
	sess.SetState(packet.StateLoggingIn)
	if !h.pm.RequestLogin(name, sess) {
		h.log.Warn("login queue full", zap.String("player", name))
		sess.ShutdownSend(packet.LogOut(packet.LogoutUnstableConnection))
	}
}

func (h *Handlers) logout(s any, _ *packet.Reader) {
	sess := s.(*net.Session)
	sess.SetState(packet.StateDisconnecting)
	sess.ShutdownSend(packet.LogOut(packet.LogoutByPlayer))
}

// immediate queues a command that does not wait for the next tick.
func (h *Handlers) immediate(s any, cmd world.Command) {
	p := s.(*net.Session).Player()
	if p == nil {
		return
	}
	p.EnqueueImmediate(cmd)
	h.sim.AddPlayerImmediateActionQueue(p)
}

func (h *Handlers) move(s any, r *packet.Reader) {
	p := s.(*net.Session).Player()
	if p == nil {
		return
	}
	p.Enqueue(world.Command{Op: world.CmdMove, Dir: world.Direction(r.ReadC())})
}

func (h *Handlers) turn(s any, r *packet.Reader) {
	h.immediate(s, world.Command{Op: world.CmdTurn, Dir: world.Direction(r.ReadC())})
}

func (h *Handlers) say(s any, r *packet.Reader) {
	h.immediate(s, world.Command{Op: world.CmdSay, Text: r.ReadS()})
}

func (h *Handlers) attack(s any, r *packet.Reader) {
	h.immediate(s, world.Command{Op: world.CmdAttack, Target: uint32(r.ReadD())})
}

func (h *Handlers) stopAttack(s any, _ *packet.Reader) {
	h.immediate(s, world.Command{Op: world.CmdStopAttack})
}

// Frame is the net.FrameHandler feeding reg.
func Frame(reg *packet.Registry) net.FrameHandler {
	return func(sess *net.Session, frame []byte) {
		_ = reg.Dispatch(sess, sess.State(), frame)
	}
}
