package events

import (
	"testing"
)

func TestBus_OnEmit(t *testing.T) {
	b := NewBus()

	var got []interface{}
	b.On("ecg", func(payload interface{}) {
		got = append(got, payload)
	})

	b.Emit("ecg", 42)
	b.Emit("ecg", 43)

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0] != 42 || got[1] != 43 {
		t.Errorf("unexpected payloads: %v", got)
	}
}

func TestBus_Off(t *testing.T) {
	b := NewBus()

	called := false
	id := b.On("temperature", func(payload interface{}) {
		called = true
	})

	b.Off("temperature", id)
	b.Emit("temperature", nil)

	if called {
		t.Error("listener should not be invoked after Off")
	}
	if b.ListenerCount("temperature") != 0 {
		t.Error("listener list should be empty")
	}
}

func TestBus_OffRemovesOnlyMatchingListener(t *testing.T) {
	b := NewBus()

	var first, second int
	id := b.On("battery", func(payload interface{}) { first++ })
	b.On("battery", func(payload interface{}) { second++ })

	b.Off("battery", id)
	b.Emit("battery", nil)

	if first != 0 {
		t.Error("removed listener was invoked")
	}
	if second != 1 {
		t.Error("remaining listener was not invoked")
	}
}

func TestBus_OffUnknownID(t *testing.T) {
	b := NewBus()
	b.On("ecg", func(payload interface{}) {})

	// Should not panic or remove anything
	b.Off("ecg", "no-such-id")

	if b.ListenerCount("ecg") != 1 {
		t.Error("listener should still be registered")
	}
}

func TestBus_EmitOrder(t *testing.T) {
	b := NewBus()

	var order []int
	b.On("ecg", func(payload interface{}) { order = append(order, 1) })
	b.On("ecg", func(payload interface{}) { order = append(order, 2) })
	b.On("ecg", func(payload interface{}) { order = append(order, 3) })

	b.Emit("ecg", nil)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("listeners ran out of registration order: %v", order)
	}
}

func TestBus_PanicIsolation(t *testing.T) {
	b := NewBus()

	var got interface{}
	b.On("ecg", func(payload interface{}) {
		panic("listener failure")
	})
	b.On("ecg", func(payload interface{}) {
		got = payload
	})

	b.Emit("ecg", "payload")

	if got != "payload" {
		t.Error("second listener should run with the same payload after first panics")
	}
}

func TestBus_EmitNoListeners(t *testing.T) {
	b := NewBus()
	// Should be a no-op
	b.Emit("disconnected", nil)
}
