package event

import "testing"

func TestHubBroadcastOrder(t *testing.T) {
	var h Hub[int]
	var got []int

	h.Subscribe(func(m int) { got = append(got, m*10) })
	h.Subscribe(func(m int) { got = append(got, m*100) })
	h.Broadcast(2)

	if len(got) != 2 || got[0] != 20 || got[1] != 200 {
		t.Errorf("unexpected delivery %v", got)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	var h Hub[string]
	calls := 0

	id := h.Subscribe(func(string) { calls++ })
	h.Unsubscribe(id)
	h.Broadcast("x")

	if calls != 0 {
		t.Errorf("expected no calls after unsubscribe, got %d", calls)
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
}

func TestHubUnsubscribeDuringBroadcast(t *testing.T) {
	var h Hub[int]
	var id Subscription
	calls := 0

	id = h.Subscribe(func(int) {
		calls++
		h.Unsubscribe(id)
	})
	h.Broadcast(1)
	h.Broadcast(2)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
