package core_test

import (
	"testing"

	core "graylogoperator/pkg/core"
)

func TestFIFOKeepsOrderAndDuplicates(t *testing.T) {
	q := core.NewFIFO[string]("changed")
	q.Push("broken", "changed")
	if q.Len() != 3 {
		t.Fatalf("expected len 3, got %d", q.Len())
	}
	for _, want := range []string{"changed", "broken", "changed"} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("expected %q, got %q %v", want, got, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestFIFOPushAfterDrain(t *testing.T) {
	q := core.NewFIFO[int]()
	if _, ok := q.Pop(); ok {
		t.Fatalf("expected empty queue")
	}
	q.Push(7)
	if v, ok := q.Pop(); !ok || v != 7 {
		t.Fatalf("expected 7, got %v %v", v, ok)
	}
}
