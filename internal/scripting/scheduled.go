package scripting

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/server/internal/data"
)

type scheduledEntry struct {
	def  data.ScheduledScript
	next time.Time
}

// ScheduledTable calls script functions at randomised cycle times. Each
// entry fires once its deadline passes and is re-armed to a random delay in
// [MinCycle, MaxCycle] seconds.
type ScheduledTable struct {
	e       *Engine
	rng     *rand.Rand
	log     *zap.Logger
	entries []scheduledEntry
}

func NewScheduledTable(e *Engine, defs []data.ScheduledScript, now time.Time, rng *rand.Rand, log *zap.Logger) *ScheduledTable {
	t := &ScheduledTable{e: e, rng: rng, log: log}
	for _, d := range defs {
		if !e.Has(d.Script) {
			log.Warn("scheduled script not loaded", zap.String("script", d.Script))
			continue
		}
		t.entries = append(t.entries, scheduledEntry{def: d, next: t.arm(now, d)})
	}
	return t
}

func (t *ScheduledTable) arm(now time.Time, d data.ScheduledScript) time.Time {
	secs := d.MinCycle
	if d.MaxCycle > d.MinCycle {
		secs += t.rng.Intn(d.MaxCycle - d.MinCycle + 1)
	}
	return now.Add(time.Duration(secs) * time.Second)
}

func (t *ScheduledTable) Len() int { return len(t.entries) }

// NextCycle runs every due entry and returns how many ran.
func (t *ScheduledTable) NextCycle(now time.Time) int {
	ran := 0
	for i := range t.entries {
		en := &t.entries[i]
		if now.Before(en.next) {
			continue
		}
		t.e.script(en.def.Script).Call(en.def.Function)
		en.next = t.arm(now, en.def)
		ran++
	}
	return ran
}
