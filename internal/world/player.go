package world

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Connection is the network side of a player as seen by the simulation.
// Implementations are safe for concurrent use.
type Connection interface {
	Online() bool
	LastKeepalive() time.Time
	// Send queues a frame for the client.
	Send(frame []byte)
	// ShutdownSend queues a final frame and closes the connection after it
	// is written. Online turns false once the connection is gone.
	ShutdownSend(frame []byte)
}

// CommandOp identifies a queued player command.
type CommandOp uint8

const (
	CmdMove CommandOp = iota + 1
	CmdTurn
	CmdSay
	CmdAttack
	CmdStopAttack
)

// Command is one client request waiting for the simulation goroutine.
type Command struct {
	Op     CommandOp
	Dir    Direction
	Text   string
	Target uint32
}

// Player is a connected character.
type Player struct {
	Char
	Conn         Connection
	LastSaveTime time.Time
	Action       LongTimeAction
	FightMode    bool
	EnemyID      uint32

	dialogs    map[uint32]string // open dialog ID → dialog kind
	nextDialog uint32

	cmdMu     deadlock.Mutex // both queues are filled by network goroutines
	commands  []Command
	immediate []Command
}

func NewPlayer(id uint32, name string, pos Position, conn Connection, limits *Limits) *Player {
	p := &Player{
		Char: Char{
			ID:    id,
			Kind:  KindPlayer,
			Name:  name,
			Pos:   pos,
			HP:    10000,
			MaxHP: 10000,
		},
		Conn:    conn,
		dialogs: make(map[uint32]string),
	}
	p.SetLimits(limits)
	return p
}

// Online reports whether the player still has a live connection.
func (p *Player) Online() bool {
	return p.Conn != nil && p.Conn.Online()
}

// Enqueue appends a command. Safe to call from any goroutine.
func (p *Player) Enqueue(cmd Command) {
	p.cmdMu.Lock()
	p.commands = append(p.commands, cmd)
	p.cmdMu.Unlock()
}

// TakeCommands removes and returns all queued commands in arrival order.
func (p *Player) TakeCommands() []Command {
	p.cmdMu.Lock()
	cmds := p.commands
	p.commands = nil
	p.cmdMu.Unlock()
	return cmds
}

// Requeue puts commands back in front of the queue, keeping their order.
func (p *Player) Requeue(cmds []Command) {
	if len(cmds) == 0 {
		return
	}
	p.cmdMu.Lock()
	p.commands = append(append(make([]Command, 0, len(cmds)+len(p.commands)), cmds...), p.commands...)
	p.cmdMu.Unlock()
}

// EnqueueImmediate appends a command that does not wait for action points.
func (p *Player) EnqueueImmediate(cmd Command) {
	p.cmdMu.Lock()
	p.immediate = append(p.immediate, cmd)
	p.cmdMu.Unlock()
}

// TakeImmediate removes and returns the immediate commands in arrival order.
func (p *Player) TakeImmediate() []Command {
	p.cmdMu.Lock()
	cmds := p.immediate
	p.immediate = nil
	p.cmdMu.Unlock()
	return cmds
}

// PendingCommands returns the number of queued commands.
func (p *Player) PendingCommands() int {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	return len(p.commands)
}

// OpenDialog registers an open dialog and returns its ID.
func (p *Player) OpenDialog(kind string) uint32 {
	p.nextDialog++
	p.dialogs[p.nextDialog] = kind
	return p.nextDialog
}

// CloseDialog closes one dialog and reports whether it was open.
func (p *Player) CloseDialog(id uint32) bool {
	if _, ok := p.dialogs[id]; !ok {
		return false
	}
	delete(p.dialogs, id)
	return true
}

func (p *Player) OpenDialogs() int { return len(p.dialogs) }

// InvalidateDialogs closes every open dialog and returns how many were open.
func (p *Player) InvalidateDialogs() int {
	n := len(p.dialogs)
	clear(p.dialogs)
	return n
}
