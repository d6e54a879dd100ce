package reqid

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("expected %q from context, got %q ok=%v", id, got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("unexpected id in empty context")
	}
}

func TestWithID(t *testing.T) {
	ctx, id := WithID(context.Background(), "abc")
	if got, _ := FromContext(ctx); got != "abc" || id != "abc" {
		t.Fatalf("expected abc, got %q/%q", got, id)
	}
	_, fresh := WithID(context.Background(), "")
	if fresh == "" {
		t.Fatal("expected a generated id")
	}
}

func TestSeqDistinguishesRepeatedIDs(t *testing.T) {
	a, _ := WithID(context.Background(), "retry-1")
	b, _ := WithID(context.Background(), "retry-1")
	sa, okA := Seq(a)
	sb, okB := Seq(b)
	if !okA || !okB {
		t.Fatalf("expected sequence numbers, got ok=%v/%v", okA, okB)
	}
	if sa == sb {
		t.Fatalf("contexts sharing id %q share sequence %d", "retry-1", sa)
	}
	if _, ok := Seq(context.Background()); ok {
		t.Fatalf("unexpected sequence in empty context")
	}
}
