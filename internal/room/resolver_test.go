package room

import (
	"errors"
	"testing"
)

func TestResolveGlobal(t *testing.T) {
	got, err := Resolve(Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Global {
		t.Fatalf("expected %q, got %q", Global, got)
	}
}

func TestResolveOrderIndependence(t *testing.T) {
	cases := []struct {
		name  string
		trade string
	}{
		{"private", ""},
		{"trade-scoped", "P123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ab, err := Resolve(Context{IsPrivate: true, SelfID: "alice", OtherID: "bob", TradeContextID: tc.trade})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ba, err := Resolve(Context{IsPrivate: true, SelfID: "bob", OtherID: "alice", TradeContextID: tc.trade})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ab != ba {
				t.Fatalf("room depends on initiator: %q vs %q", ab, ba)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	ctx := Context{IsPrivate: true, SelfID: "u1", OtherID: "u2", TradeContextID: "t9"}
	first, err := Resolve(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Resolve(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("resolve not deterministic: %q vs %q", again, first)
		}
	}
}

func TestResolveVariantIsolation(t *testing.T) {
	private, _ := Resolve(Context{IsPrivate: true, SelfID: "alice", OtherID: "bob"})
	trade1, _ := Resolve(Context{IsPrivate: true, SelfID: "alice", OtherID: "bob", TradeContextID: "t1"})
	trade2, _ := Resolve(Context{IsPrivate: true, SelfID: "alice", OtherID: "bob", TradeContextID: "t2"})

	if private == Global || trade1 == Global {
		t.Fatal("private rooms must never collide with the global room")
	}
	if trade1 == private || trade2 == private {
		t.Fatal("trade rooms must be isolated from the plain private room")
	}
	if trade1 == trade2 {
		t.Fatal("distinct trade contexts must resolve to distinct rooms")
	}
}

func TestResolveMissingIdentity(t *testing.T) {
	cases := []Context{
		{IsPrivate: true, SelfID: "alice"},
		{IsPrivate: true, OtherID: "bob"},
		{IsPrivate: true},
		{IsPrivate: true, SelfID: "  ", OtherID: "bob"},
	}
	for _, c := range cases {
		if _, err := Resolve(c); !errors.Is(err, ErrMissingParticipant) {
			t.Fatalf("context %+v: expected ErrMissingParticipant, got %v", c, err)
		}
	}
}
