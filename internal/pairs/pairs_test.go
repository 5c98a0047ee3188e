package pairs

import (
	"fmt"
	"testing"
)

func collect[T any](items []T) []Pair[T] {
	var out []Pair[T]
	for p := range Generate(items) {
		out = append(out, p)
	}
	return out
}

func TestGenerate_CanonicalOrder(t *testing.T) {
	got := collect([]int{1, 2, 3})
	want := [][2]int{{1, 2}, {1, 3}, {2, 3}}

	if len(got) != len(want) {
		t.Fatalf("expected %d pairs, got %d", len(want), len(got))
	}
	for k, p := range got {
		if p.First != want[k][0] || p.Second != want[k][1] {
			t.Errorf("pair %d: expected %v, got (%d, %d)", k, want[k], p.First, p.Second)
		}
	}
}

func TestGenerate_Empty(t *testing.T) {
	if got := collect([]int{}); len(got) != 0 {
		t.Errorf("expected no pairs for empty input, got %d", len(got))
	}
	if got := collect([]int{7}); len(got) != 0 {
		t.Errorf("expected no pairs for single item, got %d", len(got))
	}
}

func TestGenerate_CountAndUniqueness(t *testing.T) {
	for n := 0; n <= 40; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}

		seen := make(map[[2]int]bool)
		count := 0
		for p := range Generate(items) {
			key := [2]int{p.I, p.J}
			if seen[key] {
				t.Fatalf("n=%d: duplicate pair %v", n, key)
			}
			if p.I >= p.J {
				t.Fatalf("n=%d: expected I < J, got %v", n, key)
			}
			seen[key] = true
			count++
		}

		if count != Count(n) {
			t.Errorf("n=%d: expected %d pairs, got %d", n, Count(n), count)
		}
	}
}

func TestGenerate_Restartable(t *testing.T) {
	seq := Generate([]string{"a", "b", "c", "d"})

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 6 || second != 6 {
		t.Errorf("expected 6 pairs on each pass, got %d and %d", first, second)
	}
}

func TestGenerate_EarlyStop(t *testing.T) {
	count := 0
	for range Generate([]int{1, 2, 3, 4, 5}) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("expected iteration to stop at 3, got %d", count)
	}
}

func TestGenerate_DuplicateLabels(t *testing.T) {
	got := collect([]string{"x", "x", "x"})
	if len(got) != 3 {
		t.Fatalf("expected 3 pairs for duplicated items, got %d", len(got))
	}
}

func TestAccumulator(t *testing.T) {
	var acc Accumulator[string]
	total := 0
	seen := make(map[string]bool)

	for k := 1; k <= 8; k++ {
		label := fmt.Sprintf("p%d", k-1)
		for p := range acc.Add(label) {
			if p.J != k-1 {
				t.Fatalf("pair %v emitted before its later endpoint arrived", p)
			}
			key := fmt.Sprintf("%d-%d", p.I, p.J)
			if seen[key] {
				t.Fatalf("duplicate pair %s", key)
			}
			seen[key] = true
			total++
		}

		if total != Count(k) {
			t.Fatalf("after %d items: expected %d pairs, got %d", k, Count(k), total)
		}
	}

	if acc.Len() != 8 {
		t.Errorf("expected 8 items, got %d", acc.Len())
	}
}
