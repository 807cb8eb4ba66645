package event

import "time"

type PlayerLoggedIn struct {
	PlayerID uint32
	Name     string
}

type PlayerLoggedOut struct {
	PlayerID uint32
	Name     string
	Reason   string
}

type PlayerListChanged struct {
	Online []string
}

type MonsterSpawned struct {
	MonsterID uint32
	Race      uint16
	SpawnID   uint32 // 0 when created by a script
}

type MonsterDied struct {
	MonsterID uint32
	Race      uint16
	SpawnID   uint32
}

type IGDayChanged struct {
	Year, Month, Day int
	At               time.Time
}

type SpawnsReloaded struct {
	SpawnPoints int
	OK          bool
}
