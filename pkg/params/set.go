// Package params loads and saves named sets of parameter arrays.
package params

import (
	"slices"

	"github.com/justinsb/mxnet-go/pkg/mx"
)

// Set is a collection of arrays keyed by parameter name. It holds one
// reference to each array until Free is called.
type Set struct {
	arrays map[string]*mx.NDArray
}

func NewSet() *Set {
	return &Set{arrays: make(map[string]*mx.NDArray)}
}

// Add stores a under name, taking over the caller's reference. An array
// already stored under name is freed.
func (s *Set) Add(name string, a *mx.NDArray) {
	if old, ok := s.arrays[name]; ok {
		old.Free()
	}
	s.arrays[name] = a
}

func (s *Set) Get(name string) (*mx.NDArray, bool) {
	a, ok := s.arrays[name]
	return a, ok
}

func (s *Set) Len() int {
	return len(s.arrays)
}

// Names returns the parameter names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.arrays))
	for name := range s.arrays {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Free drops the set's reference to every array.
func (s *Set) Free() {
	for name, a := range s.arrays {
		a.Free()
		delete(s.arrays, name)
	}
}
