package world

// Kind discriminates the three populations.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindMonster
	KindNPC
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMonster:
		return "monster"
	case KindNPC:
		return "npc"
	}
	return "unknown"
}

// Equipment slots used for weapon range lookup.
const (
	LeftTool = iota
	RightTool
)

// Limits caps the action and fight point reservoirs and sets the
// thresholds for acting and fighting. Shared by all characters.
type Limits struct {
	MaxAP      int
	MaxFP      int
	MinActAP   int
	MinFightFP int
}

// DefaultLimits mirrors the shipped configuration.
var DefaultLimits = Limits{MaxAP: 21, MaxFP: 21, MinActAP: 18, MinFightFP: 18}

// Char is the state shared by players, monsters and NPCs.
// Mutated only from the simulation goroutine.
type Char struct {
	ID             uint32
	Kind           Kind
	Name           string
	Pos            Position
	Facing         Direction
	AP             int
	FP             int
	HP             int
	MaxHP          int
	MentalCapacity int
	Effects        Effects
	Tools          [2]Item
	Items          []Item

	limits *Limits
}

// Character is implemented by *Player, *Monster and *NPC.
type Character interface {
	Base() *Char
}

func (c *Char) Base() *Char { return c }

func (c *Char) lim() *Limits {
	if c.limits == nil {
		return &DefaultLimits
	}
	return c.limits
}

// SetLimits points the character at a shared limit set.
func (c *Char) SetLimits(l *Limits) { c.limits = l }

func (c *Char) Alive() bool { return c.HP > 0 }

// IncreaseActionPoints adds n (possibly negative) AP, capped at MaxAP.
func (c *Char) IncreaseActionPoints(n int) {
	c.AP += n
	if limit := c.lim().MaxAP; c.AP > limit {
		c.AP = limit
	}
}

// IncreaseFightPoints adds n (possibly negative) FP, capped at MaxFP.
func (c *Char) IncreaseFightPoints(n int) {
	c.FP += n
	if limit := c.lim().MaxFP; c.FP > limit {
		c.FP = limit
	}
}

func (c *Char) CanAct() bool   { return c.AP >= c.lim().MinActAP }
func (c *Char) CanFight() bool { return c.FP >= c.lim().MinFightFP }

// Turn faces the character towards pos.
func (c *Char) Turn(pos Position) {
	if d, ok := c.Pos.DirectionTo(pos); ok {
		c.Facing = d
	}
}

// Heal restores a tenth of the maximum hitpoints (at least one).
func (c *Char) Heal() {
	if !c.Alive() {
		return
	}
	amount := c.MaxHP / 10
	if amount < 1 {
		amount = 1
	}
	c.HP += amount
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
}

// Damage lowers hitpoints, never below zero, and reports whether the hit was lethal.
func (c *Char) Damage(n int) bool {
	if n <= 0 || !c.Alive() {
		return false
	}
	c.HP -= n
	if c.HP <= 0 {
		c.HP = 0
		return true
	}
	return false
}

// AgeItems applies one wear step to tools and carried items and returns how many rotted.
func (c *Char) AgeItems() int {
	rotted := 0
	for i := range c.Tools {
		if c.Tools[i].Age() {
			rotted++
		}
	}
	var n int
	c.Items, n = ageItems(c.Items)
	return rotted + n
}
