package trace

import "testing"

func TestBatchImmutable(t *testing.T) {
	records := []string{"a", "b", "c"}
	b := NewBatch(records...)
	records[0] = "mutated"
	if b.At(0) != "a" {
		t.Fatalf("Batch should copy the provided records. Got: %v", b.At(0))
	}

	out := b.Records()
	out[1] = "mutated"
	if b.At(1) != "b" {
		t.Fatalf("Records should return a copy. Got: %v", b.At(1))
	}
	if b.Len() != 3 || b.Empty() {
		t.Fatalf("Batch should contain three records. Len: %v", b.Len())
	}
}

func TestEmptyBatch(t *testing.T) {
	b := NewBatch[int]()
	if !b.Empty() || b.Len() != 0 {
		t.Fatalf("Batch with no records should be empty. Len: %v", b.Len())
	}
}

func TestTraceTruncateAndRemove(t *testing.T) {
	tr := NewTrace(
		NewBatch(1),
		NewBatch(2),
		NewBatch(3),
		NewBatch(4),
	)

	short := tr.Truncate(2)
	if short.Len() != 2 {
		t.Fatalf("Truncated trace should have two steps. Got: %v", short.Len())
	}
	if tr.Len() != 4 {
		t.Fatalf("Truncate should not modify the original trace. Len: %v", tr.Len())
	}

	removed := tr.Remove(1)
	if removed.Len() != 3 {
		t.Fatalf("Remove should drop one step. Got: %v", removed.Len())
	}
	if removed.Batch(1).At(0) != 3 {
		t.Fatalf("Remove should close the gap. Step 1: %v", removed.Batch(1))
	}
	if tr.Batch(1).At(0) != 2 {
		t.Fatalf("Remove should not modify the original trace. Step 1: %v", tr.Batch(1))
	}

	over := tr.Truncate(10)
	if over.Len() != 4 {
		t.Fatalf("Truncating beyond the length should return the full trace. Got: %v", over.Len())
	}
}
