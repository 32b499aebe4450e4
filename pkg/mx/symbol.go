package mx

import (
	"fmt"
	"runtime"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

// Symbol is one holder of an engine graph node. Like NDArray, clones share
// the node and the last holder to go releases it.
type Symbol struct {
	rt  *Runtime
	ref *ref
}

var _ Handler = (*Symbol)(nil)

// Variable creates a graph input called name.
func (r *Runtime) Variable(name string) (*Symbol, error) {
	h, err := r.engine.CreateVariable(name)
	if err != nil {
		return nil, fmt.Errorf("creating variable %q: %w", name, err)
	}
	return r.SymbolFromHandle(h), nil
}

// SymbolFromHandle takes ownership of h, which must be a live symbol handle
// that nothing else will release.
func (r *Runtime) SymbolFromHandle(h engine.Handle) *Symbol {
	return r.wrapSymbol(newBlob("Symbol", h, r.engine.FreeSymbol, r.log))
}

// SymbolFromJSON loads a graph saved by ToJSON.
func (r *Runtime) SymbolFromJSON(data string) (*Symbol, error) {
	h, err := r.engine.SymbolFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("loading symbol from JSON: %w", err)
	}
	return r.SymbolFromHandle(h), nil
}

func (r *Runtime) wrapSymbol(share *ref) *Symbol {
	s := &Symbol{rt: r, ref: share}
	track(s, s.ref)
	return s
}

func (s *Symbol) Handle() engine.Handle {
	if s == nil {
		return 0
	}
	return s.ref.handle()
}

// Clone returns a new holder of the same node. A clone of a freed holder is
// itself freed.
func (s *Symbol) Clone() *Symbol {
	return s.rt.wrapSymbol(s.ref.clone())
}

// Copy asks the engine for a separate copy of the node.
func (s *Symbol) Copy() (*Symbol, error) {
	defer runtime.KeepAlive(s)
	h, err := s.rt.engine.CopySymbol(s.Handle())
	if err != nil {
		return nil, fmt.Errorf("copying symbol: %w", err)
	}
	return s.rt.SymbolFromHandle(h), nil
}

// Free drops this holder. It is safe to call more than once.
func (s *Symbol) Free() {
	if s == nil {
		return
	}
	s.ref.drop()
}

// Name returns the node name, or "" if the node has none yet.
func (s *Symbol) Name() (string, error) {
	defer runtime.KeepAlive(s)
	name, ok, err := s.rt.engine.SymbolName(s.Handle())
	if err != nil {
		return "", fmt.Errorf("getting symbol name: %w", err)
	}
	if !ok {
		return "", nil
	}
	return name, nil
}

func (s *Symbol) ListArguments() ([]string, error) {
	defer runtime.KeepAlive(s)
	args, err := s.rt.engine.ListArguments(s.Handle())
	if err != nil {
		return nil, fmt.Errorf("listing symbol arguments: %w", err)
	}
	return args, nil
}

func (s *Symbol) ListOutputs() ([]string, error) {
	defer runtime.KeepAlive(s)
	outputs, err := s.rt.engine.ListOutputs(s.Handle())
	if err != nil {
		return nil, fmt.Errorf("listing symbol outputs: %w", err)
	}
	return outputs, nil
}

func (s *Symbol) ToJSON() (string, error) {
	defer runtime.KeepAlive(s)
	data, err := s.rt.engine.SymbolToJSON(s.Handle())
	if err != nil {
		return "", fmt.Errorf("saving symbol to JSON: %w", err)
	}
	return data, nil
}

func (s *Symbol) String() string {
	name, err := s.Name()
	if err != nil {
		return fmt.Sprintf("Symbol(%v)", err)
	}
	return fmt.Sprintf("Symbol(%s)", name)
}
