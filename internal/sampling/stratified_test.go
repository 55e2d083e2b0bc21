// internal/sampling/stratified_test.go
package sampling

import (
	"fmt"
	"reflect"
	"testing"
)

type item struct {
	id  string
	cat string
}

func catOf(i item) string { return i.cat }

func population(counts map[string]int) []item {
	var items []item
	for _, cat := range []string{"a", "b", "c", "d", ""} {
		for i := 0; i < counts[cat]; i++ {
			items = append(items, item{id: fmt.Sprintf("%s-%d", cat, i), cat: cat})
		}
	}
	return items
}

func TestStratifiedIsProportional(t *testing.T) {
	items := population(map[string]int{"a": 60, "b": 30, "c": 10})
	got := StratifiedSeed(items, 10, catOf, 42)
	if len(got) != 10 {
		t.Fatalf("expected 10 items, got %d", len(got))
	}
	counts := map[string]int{}
	seen := map[string]bool{}
	for _, it := range got {
		counts[it.cat]++
		if seen[it.id] {
			t.Fatalf("duplicate item %s", it.id)
		}
		seen[it.id] = true
	}
	if counts["a"] != 6 || counts["b"] != 3 || counts["c"] != 1 {
		t.Fatalf("unexpected category counts %v", counts)
	}
}

func TestStratifiedIsDeterministic(t *testing.T) {
	items := population(map[string]int{"a": 17, "b": 9, "c": 4})
	first := StratifiedSeed(items, 7, catOf, 99)
	second := StratifiedSeed(items, 7, catOf, 99)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical samples for identical seeds:\n%v\n%v", first, second)
	}
}

func TestStratifiedKeepsSmallCategories(t *testing.T) {
	items := population(map[string]int{"a": 97, "b": 1, "c": 1, "d": 1})
	got := StratifiedSeed(items, 5, catOf, 1)
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
}

func TestStratifiedTrimsOverAllocation(t *testing.T) {
	// Four categories each demand at least one item but only three are wanted.
	items := population(map[string]int{"a": 2, "b": 2, "c": 2, "d": 2})
	got := StratifiedSeed(items, 3, catOf, 5)
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
}

func TestStratifiedTopsUpUnderAllocation(t *testing.T) {
	items := population(map[string]int{"a": 3, "b": 3, "c": 3})
	got := StratifiedSeed(items, 8, catOf, 5)
	if len(got) != 8 {
		t.Fatalf("expected 8 items, got %d", len(got))
	}
}

func TestStratifiedEdgeCases(t *testing.T) {
	if got := StratifiedSeed([]item{}, 5, catOf, 1); len(got) != 0 {
		t.Fatalf("expected empty output, got %v", got)
	}
	items := population(map[string]int{"a": 2, "": 1})
	got := StratifiedSeed(items, 10, catOf, 1)
	if !reflect.DeepEqual(got, items) {
		t.Fatalf("expected all items when n exceeds population, got %v", got)
	}
	got[0].id = "mutated"
	if items[0].id == "mutated" {
		t.Fatal("expected a copy of the input")
	}
}
