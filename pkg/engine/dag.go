package engine

import "fmt"

// TopoSort orders nodes so that each one comes after everything deps
// returns for it. Dependencies outside nodes are treated as never ready, so
// they fail the sort just as a cycle does.
func TopoSort[K comparable](nodes []K, deps func(K) []K) ([]K, error) {
	order := make([]K, 0, len(nodes))
	done := make(map[K]bool, len(nodes))

	for {
		progress := false
		for _, id := range nodes {
			if done[id] {
				continue
			}

			ready := true
			for _, dep := range deps(id) {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				done[id] = true
				order = append(order, id)
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	for _, id := range nodes {
		if !done[id] {
			return nil, fmt.Errorf("node %v could not be ordered (cycle or missing input in graph)", id)
		}
	}
	return order, nil
}
