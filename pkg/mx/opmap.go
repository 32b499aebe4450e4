package mx

import (
	"fmt"
	"slices"
	"time"

	"github.com/justinsb/mxnet-go/pkg/engine"
	"k8s.io/klog/v2"
)

// OpMap resolves operator names to engine creators. It is read-only once
// built and safe for concurrent use.
type OpMap struct {
	engine engine.Operators

	// creators holds the composable operators, with their descriptions.
	creators map[string]engine.Creator
	infos    map[string]*engine.CreatorInfo

	// ops holds every operator the engine registers, by name.
	ops map[string]engine.Creator
}

func buildOpMap(e engine.Operators, log klog.Logger) (*OpMap, error) {
	startedAt := time.Now()

	m := &OpMap{
		engine:   e,
		creators: make(map[string]engine.Creator),
		infos:    make(map[string]*engine.CreatorInfo),
		ops:      make(map[string]engine.Creator),
	}

	creators, err := e.ListCreators()
	if err != nil {
		return nil, fmt.Errorf("listing operator creators: %w", err)
	}
	for _, c := range creators {
		info, err := e.CreatorInfo(c)
		if err != nil {
			return nil, fmt.Errorf("describing operator creator %#x: %w", uintptr(c), err)
		}
		m.creators[info.Name] = c
		m.infos[info.Name] = info
	}

	names, err := e.ListOpNames()
	if err != nil {
		return nil, fmt.Errorf("listing operator names: %w", err)
	}
	for _, name := range names {
		h, err := e.OpHandle(name)
		if err != nil {
			return nil, fmt.Errorf("getting handle for operator %q: %w", name, err)
		}
		m.ops[name] = h
	}

	log.Info("built operator registry", "creators", len(m.creators), "ops", len(m.ops), "duration", time.Since(startedAt))
	return m, nil
}

// SymbolCreator returns the creator for a composable operator, falling back
// to the engine's operator handle.
func (m *OpMap) SymbolCreator(name string) (engine.Creator, error) {
	if c, ok := m.creators[name]; ok {
		return c, nil
	}
	return m.OpHandle(name)
}

// IsComposable reports whether name is listed among the engine's symbol
// creators.
func (m *OpMap) IsComposable(name string) bool {
	_, ok := m.creators[name]
	return ok
}

// OpHandle returns the engine's handle for an operator.
func (m *OpMap) OpHandle(name string) (engine.Creator, error) {
	if h, ok := m.ops[name]; ok {
		return h, nil
	}
	return 0, &UnknownOperatorError{Name: name}
}

// Describe returns the argument names and types of an operator.
func (m *OpMap) Describe(name string) (*engine.CreatorInfo, error) {
	if info, ok := m.infos[name]; ok {
		return cloneInfo(info), nil
	}
	h, err := m.OpHandle(name)
	if err != nil {
		return nil, err
	}
	info, err := m.engine.CreatorInfo(h)
	if err != nil {
		return nil, fmt.Errorf("describing operator %q: %w", name, err)
	}
	return info, nil
}

// Names returns every known operator name, sorted.
func (m *OpMap) Names() []string {
	var names []string
	for name := range m.ops {
		names = append(names, name)
	}
	for name := range m.creators {
		if _, ok := m.ops[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func cloneInfo(info *engine.CreatorInfo) *engine.CreatorInfo {
	out := *info
	out.ArgNames = slices.Clone(info.ArgNames)
	out.ArgTypes = slices.Clone(info.ArgTypes)
	out.ArgDescriptions = slices.Clone(info.ArgDescriptions)
	return &out
}
