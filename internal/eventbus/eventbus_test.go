package eventbus

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type ping struct{ N int }

type pong struct{ S string }

func TestEmit_DispatchesByType(t *testing.T) {
	b := New()
	var pings []int
	var pongs []string
	On(b, func(_ context.Context, e ping) { pings = append(pings, e.N) })
	On(b, func(_ context.Context, e ping) { pings = append(pings, e.N*10) })
	On(b, func(_ context.Context, e pong) { pongs = append(pongs, e.S) })

	Emit(context.Background(), b, ping{N: 1})
	Emit(context.Background(), b, pong{S: "x"})

	if diff := cmp.Diff([]int{1, 10}, pings); diff != "" {
		t.Fatalf("pings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x"}, pongs); diff != "" {
		t.Fatalf("pongs mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribe_RemovesOnlyThatHandler(t *testing.T) {
	b := New()
	var got []string
	unsubA := On(b, func(_ context.Context, e ping) { got = append(got, "a") })
	On(b, func(_ context.Context, e ping) { got = append(got, "b") })

	unsubA()
	unsubA()
	Emit(context.Background(), b, ping{})

	if diff := cmp.Diff([]string{"b"}, got); diff != "" {
		t.Fatalf("handlers mismatch (-want +got):\n%s", diff)
	}
}

func TestGlobal_PublishWithoutBusIsNoop(t *testing.T) {
	Use(nil)
	unsub := Subscribe(func(_ context.Context, e ping) { t.Fatal("unexpected delivery") })
	Publish(context.Background(), ping{})
	unsub()

	b := New()
	Use(b)
	defer Use(nil)
	var n int
	Subscribe(func(_ context.Context, e ping) { n += e.N })
	Publish(context.Background(), ping{N: 3})
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}
