package notify

import (
	"reflect"
	"testing"
)

func TestHubDeliversInOrder(t *testing.T) {
	h := NewHub()
	var got []string
	h.Subscribe(func(c Change) { got = append(got, "a:"+string(c.Kind)) })
	h.Subscribe(func(c Change) { got = append(got, "b:"+string(c.Kind)) })

	h.Publish(Change{Kind: KindSale, Op: OpCreate, ID: 1})
	want := []string{"a:sale", "b:sale"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub()
	calls := 0
	stop := h.Subscribe(func(Change) { calls++ })
	h.Publish(Change{Kind: KindExpense})
	stop()
	stop() // second call is a no-op
	h.Publish(Change{Kind: KindExpense})

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if h.Len() != 0 {
		t.Fatalf("expected no listeners, got %d", h.Len())
	}
}

func TestHubListenerMaySubscribe(t *testing.T) {
	h := NewHub()
	nested := 0
	h.Subscribe(func(Change) {
		h.Subscribe(func(Change) { nested++ })
	})
	h.Publish(Change{Kind: KindAll, Op: OpClear})
	if nested != 0 {
		t.Fatalf("listener added during publish should not see that change")
	}
	h.Publish(Change{Kind: KindAll, Op: OpClear})
	if nested != 1 {
		t.Fatalf("expected nested listener to run once, got %d", nested)
	}
}
