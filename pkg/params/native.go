package params

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/justinsb/mxnet-go/pkg/engine"
	"github.com/justinsb/mxnet-go/pkg/mx"
)

// Load reads a parameter file in the engine's own format. Arrays saved
// without names are keyed by their position.
func Load(rt *mx.Runtime, path string) (*Set, error) {
	handles, names, err := rt.Engine().Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading parameters from %q: %w", path, err)
	}

	arrays := make([]*mx.NDArray, len(handles))
	for i, h := range handles {
		arrays[i] = rt.NDArrayFromHandle(h)
	}

	set := NewSet()
	for i, a := range arrays {
		name := strconv.Itoa(i)
		if len(names) != 0 {
			name = names[i]
		}
		if _, exists := set.Get(name); exists {
			set.Free()
			for _, rest := range arrays[i:] {
				rest.Free()
			}
			return nil, fmt.Errorf("parameter %q appears more than once in %q", name, path)
		}
		set.Add(name, a)
	}
	return set, nil
}

// Save writes the set to path in the engine's own format.
func Save(rt *mx.Runtime, path string, set *Set) error {
	names := set.Names()
	handles := make([]engine.Handle, len(names))
	for i, name := range names {
		a, _ := set.Get(name)
		handles[i] = a.Handle()
		if handles[i] == 0 {
			return fmt.Errorf("parameter %q: %w", name, mx.ErrNilValue)
		}
	}
	defer runtime.KeepAlive(set)

	if err := rt.Engine().Save(path, handles, names); err != nil {
		return fmt.Errorf("saving parameters to %q: %w", path, err)
	}
	return nil
}
