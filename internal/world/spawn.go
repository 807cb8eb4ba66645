package world

import (
	"fmt"
	"math/rand"
	"time"
)

// maxPlacementTries bounds the search for a free field when spawning.
const maxPlacementTries = 10

// SpawnTemplate is one monster race a spawn point keeps populated.
type SpawnTemplate struct {
	Race  uint16
	Max   int
	Alive int
}

// SpawnPoint keeps its templates populated within SpawnRange of Center.
// Its monsters wander within Range (L∞) of Center.
type SpawnPoint struct {
	ID           uint32
	Center       Position
	Range        int
	SpawnRange   int
	MinSpawnTime int // minutes
	MaxSpawnTime int // minutes
	SpawnAll     bool
	Templates    []*SpawnTemplate

	nextSpawn time.Time
}

// MonsterFactory creates monster instances for spawn points.
type MonsterFactory interface {
	CreateMonster(race uint16, pos Position, spawnID uint32) (*Monster, error)
}

// AddTemplate registers a race with the number of monsters to keep alive.
func (sp *SpawnPoint) AddTemplate(race uint16, count int) {
	for _, t := range sp.Templates {
		if t.Race == race {
			t.Max += count
			return
		}
	}
	sp.Templates = append(sp.Templates, &SpawnTemplate{Race: race, Max: count})
}

// NextSpawn returns when the spawn point is due again.
func (sp *SpawnPoint) NextSpawn() time.Time { return sp.nextSpawn }

// Spawn creates missing monsters if the spawn point is due and appends them
// to out. Every placed monster already occupies its field. With SpawnAll all
// missing monsters of a template are created, otherwise a random number
// between one and the missing count. Afterwards the next deadline is drawn
// from [MinSpawnTime, MaxSpawnTime] minutes.
func (sp *SpawnPoint) Spawn(now time.Time, rng *rand.Rand, fields *FieldMap, factory MonsterFactory, out []*Monster) ([]*Monster, error) {
	if now.Before(sp.nextSpawn) {
		return out, nil
	}
	var firstErr error
	for _, t := range sp.Templates {
		missing := t.Max - t.Alive
		if missing <= 0 {
			continue
		}
		num := missing
		if !sp.SpawnAll {
			num = 1 + rng.Intn(missing)
		}
		for i := 0; i < num; i++ {
			pos, ok := sp.freePosition(rng, fields)
			if !ok {
				break
			}
			m, err := factory.CreateMonster(t.Race, pos, sp.ID)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("spawn point %d race %d: %w", sp.ID, t.Race, err)
				}
				break
			}
			if f, err := fields.At(pos); err == nil {
				f.SetChar(m.ID)
			}
			t.Alive++
			out = append(out, m)
		}
	}
	sp.nextSpawn = now.Add(sp.spawnDelay(rng))
	return out, firstErr
}

func (sp *SpawnPoint) spawnDelay(rng *rand.Rand) time.Duration {
	lo, hi := sp.MinSpawnTime, sp.MaxSpawnTime
	if hi < lo {
		lo, hi = hi, lo
	}
	minutes := lo
	if hi > lo {
		minutes += rng.Intn(hi - lo + 1)
	}
	return time.Duration(minutes) * time.Minute
}

func (sp *SpawnPoint) freePosition(rng *rand.Rand, fields *FieldMap) (Position, bool) {
	r := sp.SpawnRange
	if r < 0 {
		r = 0
	}
	for i := 0; i < maxPlacementTries; i++ {
		p := Position{
			X: sp.Center.X + int16(rng.Intn(2*r+1)-r),
			Y: sp.Center.Y + int16(rng.Intn(2*r+1)-r),
			Z: sp.Center.Z,
		}
		if fields.Free(p) {
			return p, true
		}
	}
	return Position{}, false
}

// Dead frees one slot of the given race.
func (sp *SpawnPoint) Dead(race uint16) {
	for _, t := range sp.Templates {
		if t.Race == race {
			if t.Alive > 0 {
				t.Alive--
			}
			return
		}
	}
}

// Alive returns the number of living monsters the spawn point owns.
func (sp *SpawnPoint) Alive() int {
	n := 0
	for _, t := range sp.Templates {
		n += t.Alive
	}
	return n
}

// SpawnList owns every spawn point. Mutated only at startup and on reload.
type SpawnList struct {
	points []*SpawnPoint
	byID   map[uint32]*SpawnPoint
}

func NewSpawnList() *SpawnList {
	return &SpawnList{byID: make(map[uint32]*SpawnPoint)}
}

func (l *SpawnList) Add(sp *SpawnPoint) {
	if _, dup := l.byID[sp.ID]; dup {
		return
	}
	l.points = append(l.points, sp)
	l.byID[sp.ID] = sp
}

// Get resolves a monster's spawn back-reference.
func (l *SpawnList) Get(id uint32) (*SpawnPoint, bool) {
	if id == 0 {
		return nil, false
	}
	sp, ok := l.byID[id]
	return sp, ok
}

func (l *SpawnList) All() []*SpawnPoint { return l.points }
func (l *SpawnList) Len() int           { return len(l.points) }

func (l *SpawnList) Clear() {
	l.points = nil
	clear(l.byID)
}
