// ABOUTME: Tests for the observer registry
// ABOUTME: Tests subscription order and unsubscribe behaviour
package notify

import (
	"slices"
	"testing"
)

func TestNotifyOrder(t *testing.T) {
	var n Notifier[int]
	var got []string

	n.Subscribe(func(v int) { got = append(got, "a") })
	n.Subscribe(func(v int) { got = append(got, "b") })

	n.Notify(1)

	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	var n Notifier[int]
	calls := 0

	unsubscribe := n.Subscribe(func(v int) { calls += v })
	n.Notify(1)
	unsubscribe()
	unsubscribe()
	n.Notify(1)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if n.Len() != 0 {
		t.Errorf("expected no handlers, got %d", n.Len())
	}
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	var n Notifier[string]
	var unsubscribe func()
	calls := 0

	unsubscribe = n.Subscribe(func(string) {
		calls++
		unsubscribe()
	})

	n.Notify("x")
	n.Notify("y")

	if calls != 1 {
		t.Errorf("expected handler to run once, got %d", calls)
	}
}

func TestNotifyWithoutHandlers(t *testing.T) {
	var n Notifier[[]float32]
	n.Notify([]float32{1, 2})
}
