package world

import "sync/atomic"

// Object ID ranges. Player IDs come from the database and stay below MonsterIDBase.
const (
	MonsterIDBase uint32 = 0xFE000000
	NPCIDBase     uint32 = 0xFF000000
)

var (
	monsterIDCounter atomic.Uint32
	npcIDCounter     atomic.Uint32
)

func init() {
	monsterIDCounter.Store(MonsterIDBase)
	npcIDCounter.Store(NPCIDBase)
}

// NextMonsterID returns a unique object ID for a monster instance.
func NextMonsterID() uint32 {
	return monsterIDCounter.Add(1)
}

// NextNPCID returns a unique object ID for an NPC instance.
func NextNPCID() uint32 {
	return npcIDCounter.Add(1)
}

// KindOf classifies an object ID by range.
func KindOf(id uint32) Kind {
	switch {
	case id >= NPCIDBase:
		return KindNPC
	case id >= MonsterIDBase:
		return KindMonster
	}
	return KindPlayer
}
