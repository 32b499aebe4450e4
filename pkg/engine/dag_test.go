package engine

import (
	"slices"
	"testing"
)

func TestTopoSort(t *testing.T) {
	inputs := map[int][]int{
		0: {2, 1},
		1: {},
		2: {1},
		3: {0, 2},
	}
	order, err := TopoSort([]int{0, 1, 2, 3}, func(id int) []int { return inputs[id] })
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 nodes, got %v", order)
	}
	for _, id := range order {
		pos := slices.Index(order, id)
		for _, dep := range inputs[id] {
			if slices.Index(order, dep) > pos {
				t.Errorf("node %d is ordered before its input %d: %v", id, dep, order)
			}
		}
	}
}

func TestTopoSortRejectsCycles(t *testing.T) {
	inputs := map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": {},
	}
	if _, err := TopoSort([]string{"a", "b", "c"}, func(id string) []string { return inputs[id] }); err == nil {
		t.Fatalf("expected an error for a cyclic graph")
	}
}

func TestTopoSortRejectsMissingInputs(t *testing.T) {
	if _, err := TopoSort([]int{0}, func(int) []int { return []int{7} }); err == nil {
		t.Fatalf("expected an error for a dangling input")
	}
}
