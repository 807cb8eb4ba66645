package event

import "testing"

func TestEventsDeliveredAfterSwap(t *testing.T) {
	b := NewBus()
	var got []uint32
	Subscribe(b, func(ev MonsterSpawned) { got = append(got, ev.MonsterID) })

	Emit(b, MonsterSpawned{MonsterID: 7})
	Emit(b, MonsterSpawned{MonsterID: 8})
	if n := b.DispatchAll(); n != 0 || len(got) != 0 {
		t.Fatalf("events delivered before swap: n=%d got=%v", n, got)
	}
	if b.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", b.Pending())
	}

	b.SwapBuffers()
	if n := b.DispatchAll(); n != 2 {
		t.Fatalf("dispatched %d, want 2", n)
	}
	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Fatalf("got %v", got)
	}

	// Next tick: front is cleared by the following swap.
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 {
		t.Fatalf("events redelivered: %v", got)
	}
}

func TestHandlersOnlySeeTheirType(t *testing.T) {
	b := NewBus()
	spawned, died := 0, 0
	Subscribe(b, func(MonsterSpawned) { spawned++ })
	Subscribe(b, func(MonsterDied) { died++ })

	Emit(b, MonsterDied{MonsterID: 1})
	Emit(b, MonsterDied{MonsterID: 2})
	Emit(b, MonsterSpawned{MonsterID: 3})
	b.SwapBuffers()
	b.DispatchAll()
	if spawned != 1 || died != 2 {
		t.Fatalf("spawned=%d died=%d", spawned, died)
	}
}

func TestDispatchOrderFollowsFirstEmission(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(PlayerLoggedIn) { order = append(order, "in") })
	Subscribe(b, func(PlayerLoggedOut) { order = append(order, "out") })

	Emit(b, PlayerLoggedOut{PlayerID: 1})
	Emit(b, PlayerLoggedIn{PlayerID: 2})
	b.SwapBuffers()
	b.DispatchAll()
	if len(order) != 2 || order[0] != "out" || order[1] != "in" {
		t.Fatalf("order = %v", order)
	}
}
