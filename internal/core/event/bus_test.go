package event

import "testing"

func TestEventsDeliveredNextTick(t *testing.T) {
	b := NewBus()
	var got []PlayerKilled
	Subscribe(b, func(ev PlayerKilled) { got = append(got, ev) })

	Emit(b, PlayerKilled{VictimID: 7})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("event must not be visible in the tick it was emitted")
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0].VictimID != 7 {
		t.Fatalf("expected one PlayerKilled for victim 7, got %+v", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Fatalf("event delivered twice")
	}
}

func TestEmitDuringDispatchLandsInNextTick(t *testing.T) {
	b := NewBus()
	kills := 0
	Subscribe(b, func(ObstacleDestroyed) { Emit(b, PlayerKilled{}) })
	Subscribe(b, func(PlayerKilled) { kills++ })

	Emit(b, ObstacleDestroyed{})
	b.SwapBuffers()
	b.DispatchAll()
	if kills != 0 {
		t.Fatalf("chained event must wait one tick")
	}
	b.SwapBuffers()
	b.DispatchAll()
	if kills != 1 {
		t.Fatalf("expected chained event delivered, got %d", kills)
	}
}

func TestDispatchFollowsEmitOrder(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(ev PlayerKilled) { order = append(order, "kill") })
	Subscribe(b, func(ev ObstacleDestroyed) { order = append(order, "obstacle") })
	Subscribe(b, func(ev PlayerKilled) { order = append(order, "kill2") })

	Emit(b, ObstacleDestroyed{})
	Emit(b, PlayerKilled{VictimID: 1})
	Emit(b, ObstacleDestroyed{})
	b.SwapBuffers()
	if n := b.DispatchAll(); n != 3 {
		t.Fatalf("dispatched %d events, want 3", n)
	}
	want := []string{"obstacle", "kill", "kill2", "obstacle"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
