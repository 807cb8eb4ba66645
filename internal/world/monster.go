package world

// Monster is a hostile character, usually owned by a spawn point.
type Monster struct {
	Char
	Race               uint16
	EnemyID            uint32
	EnemyKind          Kind
	LastTargetPosition Position
	LastTargetSeen     bool
	SpawnID            uint32 // 0 when not spawned by a spawn point
	OnRoute            bool
	Waypoints          Waypoints
	AttackEnabled      bool
}

func NewMonster(id uint32, race uint16, name string, pos Position, hp int, spawnID uint32, limits *Limits) *Monster {
	m := &Monster{
		Char: Char{
			ID:    id,
			Kind:  KindMonster,
			Name:  name,
			Pos:   pos,
			HP:    hp,
			MaxHP: hp,
		},
		Race:          race,
		SpawnID:       spawnID,
		AttackEnabled: true,
	}
	m.SetLimits(limits)
	return m
}

func (m *Monster) CanAttack() bool { return m.AttackEnabled }

// SetTarget records the chosen enemy and remembers where it was seen.
func (m *Monster) SetTarget(target *Char) {
	m.EnemyID = target.ID
	m.EnemyKind = target.Kind
	m.LastTargetPosition = target.Pos
	m.LastTargetSeen = true
}
