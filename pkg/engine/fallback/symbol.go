package fallback

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

// node is one vertex of a symbolic graph. Composed nodes are never mutated,
// so graphs share them freely.
type node struct {
	Name   string
	Op     string
	Params map[string]string
	Inputs []*node
}

func (n *node) isVariable() bool {
	return n.Op == ""
}

type symbol struct {
	node     *node
	composed bool
}

func (e *Engine) lookupSymbol(call string, h Handle) (*symbol, error) {
	s, ok := e.symbols[h]
	if !ok {
		return nil, callError(call, "symbol handle %#x is not live", uintptr(h))
	}
	return s, nil
}

func (e *Engine) allocSymbol(s *symbol) Handle {
	h := e.newHandle()
	e.symbols[h] = s
	e.stats.SymbolsAllocated++
	return h
}

// IsLiveSymbol reports whether h names an allocated, unreleased symbol.
func (e *Engine) IsLiveSymbol(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.symbols[h]
	return ok
}

func (e *Engine) CreateVariable(name string) (Handle, error) {
	const call = "MXSymbolCreateVariable"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return 0, err
	}
	if name == "" {
		return 0, callError(call, "variable name must not be empty")
	}
	return e.allocSymbol(&symbol{node: &node{Name: name}, composed: true}), nil
}

func (e *Engine) CreateAtomicSymbol(c Creator, keys, values []string) (Handle, error) {
	const call = "MXSymbolCreateAtomicSymbol"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return 0, err
	}
	cr, err := e.lookupCreator(call, c)
	if err != nil {
		return 0, err
	}
	if len(keys) != len(values) {
		return 0, callError(call, "%d parameter keys for %d values", len(keys), len(values))
	}
	n := &node{Op: cr.info.Name}
	if len(keys) != 0 {
		n.Params = make(map[string]string, len(keys))
		for i, k := range keys {
			n.Params[k] = values[i]
		}
	}
	return e.allocSymbol(&symbol{node: n}), nil
}

// inputSlots returns the argument names of c that take graph inputs.
func inputSlots(c *creator) []string {
	var slots []string
	for i, name := range c.info.ArgNames {
		if i < len(c.info.ArgTypes) && strings.HasPrefix(c.info.ArgTypes[i], ndarrayOrSymbol) {
			slots = append(slots, name)
		}
	}
	return slots
}

func (e *Engine) Compose(sym Handle, name string, keys []string, args []Handle) error {
	const call = "MXSymbolCompose"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return err
	}
	s, err := e.lookupSymbol(call, sym)
	if err != nil {
		return err
	}
	if s.composed {
		return callError(call, "symbol %q is already composed", s.node.Name)
	}
	if len(keys) != 0 && len(keys) != len(args) {
		return callError(call, "%d keys for %d args", len(keys), len(args))
	}
	cr := e.creators[e.byName[s.node.Op]-1]

	inputs := make([]*node, len(args))
	for i, h := range args {
		arg, err := e.lookupSymbol(call, h)
		if err != nil {
			return err
		}
		inputs[i] = arg.node
	}

	slots := inputSlots(cr)
	variadic := cr.info.KeyVarNumArgs != ""
	if len(keys) != 0 {
		if variadic {
			return callError(call, "%s takes a variable number of inputs and cannot bind them by name", cr.info.Name)
		}
		ordered := make([]*node, 0, len(inputs))
		for _, slot := range slots {
			if i := slices.Index(keys, slot); i >= 0 {
				ordered = append(ordered, inputs[i])
			}
		}
		for _, k := range keys {
			if !slices.Contains(slots, k) {
				return callError(call, "%s has no argument %q", cr.info.Name, k)
			}
		}
		inputs = ordered
	} else if !variadic && len(inputs) > len(slots) {
		return callError(call, "%s takes %d inputs, got %d", cr.info.Name, len(slots), len(inputs))
	}

	if name == "" {
		base := strings.ToLower(cr.info.Name)
		name = fmt.Sprintf("%s%d", base, e.autoNameID[base])
		e.autoNameID[base]++
	}
	s.node.Name = name
	s.node.Inputs = inputs
	s.composed = true
	return nil
}

func (e *Engine) FreeSymbol(h Handle) error {
	const call = "MXSymbolFree"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return err
	}
	if _, err := e.lookupSymbol(call, h); err != nil {
		return err
	}
	delete(e.symbols, h)
	e.stats.SymbolsReleased++
	return nil
}

func cloneNode(n *node) *node {
	out := &node{Name: n.Name, Op: n.Op, Inputs: slices.Clone(n.Inputs)}
	if n.Params != nil {
		out.Params = make(map[string]string, len(n.Params))
		for k, v := range n.Params {
			out.Params[k] = v
		}
	}
	return out
}

func (e *Engine) CopySymbol(h Handle) (Handle, error) {
	const call = "MXSymbolCopy"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return 0, err
	}
	s, err := e.lookupSymbol(call, h)
	if err != nil {
		return 0, err
	}
	return e.allocSymbol(&symbol{node: cloneNode(s.node), composed: s.composed}), nil
}

func (e *Engine) SymbolName(h Handle) (string, bool, error) {
	const call = "MXSymbolGetName"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return "", false, err
	}
	s, err := e.lookupSymbol(call, h)
	if err != nil {
		return "", false, err
	}
	if !s.composed {
		return "", false, nil
	}
	return s.node.Name, true, nil
}

func (e *Engine) ListArguments(h Handle) ([]string, error) {
	const call = "MXSymbolListArguments"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return nil, err
	}
	s, err := e.lookupSymbol(call, h)
	if err != nil {
		return nil, err
	}
	var args []string
	var visit func(n *node)
	visit = func(n *node) {
		if n.isVariable() {
			if !slices.Contains(args, n.Name) {
				args = append(args, n.Name)
			}
			return
		}
		for _, in := range n.Inputs {
			visit(in)
		}
	}
	visit(s.node)
	return args, nil
}

func (e *Engine) ListOutputs(h Handle) ([]string, error) {
	const call = "MXSymbolListOutputs"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return nil, err
	}
	s, err := e.lookupSymbol(call, h)
	if err != nil {
		return nil, err
	}
	if s.node.isVariable() {
		return []string{s.node.Name}, nil
	}
	return []string{s.node.Name + "_output"}, nil
}

func (e *Engine) SymbolToJSON(h Handle) (string, error) {
	const call = "MXSymbolSaveToJSON"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return "", err
	}
	s, err := e.lookupSymbol(call, h)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(encodeGraph(s.node))
	if err != nil {
		return "", callError(call, "encoding symbol: %v", err)
	}
	return string(b), nil
}

func (e *Engine) SymbolFromJSON(data string) (Handle, error) {
	const call = "MXSymbolCreateFromJSON"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return 0, err
	}
	g := &graphJSON{}
	if err := json.Unmarshal([]byte(data), g); err != nil {
		return 0, callError(call, "decoding symbol: %v", err)
	}
	n, err := e.decodeGraph(g)
	if err != nil {
		return 0, callError(call, "%v", err)
	}
	return e.allocSymbol(&symbol{node: n, composed: true}), nil
}

// graphJSON is the engine's flat graph format. Inputs and heads are
// [node, output, version] triples; variables have op "null".
type graphJSON struct {
	Nodes    []nodeJSON `json:"nodes"`
	ArgNodes []int      `json:"arg_nodes"`
	Heads    [][3]int   `json:"heads"`
}

type nodeJSON struct {
	Op     string            `json:"op"`
	Name   string            `json:"name"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	Inputs [][3]int          `json:"inputs"`
}

const variableOp = "null"

func encodeGraph(root *node) *graphJSON {
	g := &graphJSON{ArgNodes: []int{}}
	index := make(map[*node]int)

	var visit func(n *node) int
	visit = func(n *node) int {
		if i, ok := index[n]; ok {
			return i
		}
		nj := nodeJSON{Op: variableOp, Name: n.Name, Attrs: n.Params, Inputs: [][3]int{}}
		if !n.isVariable() {
			nj.Op = n.Op
			for _, in := range n.Inputs {
				nj.Inputs = append(nj.Inputs, [3]int{visit(in), 0, 0})
			}
		}
		i := len(g.Nodes)
		index[n] = i
		g.Nodes = append(g.Nodes, nj)
		if n.isVariable() {
			g.ArgNodes = append(g.ArgNodes, i)
		}
		return i
	}
	g.Heads = [][3]int{{visit(root), 0, 0}}
	return g
}

func (e *Engine) decodeGraph(g *graphJSON) (*node, error) {
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("graph has no nodes")
	}
	if len(g.Heads) != 1 {
		return nil, fmt.Errorf("graph has %d heads, expected 1", len(g.Heads))
	}

	ids := make([]int, len(g.Nodes))
	for i, nj := range g.Nodes {
		ids[i] = i
		for _, in := range nj.Inputs {
			if in[0] < 0 || in[0] >= len(g.Nodes) {
				return nil, fmt.Errorf("node %q refers to missing input %d", nj.Name, in[0])
			}
		}
	}
	order, err := engine.TopoSort(ids, func(i int) []int {
		var deps []int
		for _, in := range g.Nodes[i].Inputs {
			deps = append(deps, in[0])
		}
		return deps
	})
	if err != nil {
		return nil, err
	}

	nodes := make([]*node, len(g.Nodes))
	for _, i := range order {
		nj := g.Nodes[i]
		if nj.Name == "" {
			return nil, fmt.Errorf("node %d has no name", i)
		}
		n := &node{Name: nj.Name, Params: nj.Attrs}
		if nj.Op == variableOp || nj.Op == "" {
			if len(nj.Inputs) != 0 {
				return nil, fmt.Errorf("variable %q has inputs", nj.Name)
			}
		} else {
			if _, ok := e.byName[nj.Op]; !ok {
				return nil, fmt.Errorf("node %q uses unknown operator %q", nj.Name, nj.Op)
			}
			n.Op = nj.Op
			for _, in := range nj.Inputs {
				n.Inputs = append(n.Inputs, nodes[in[0]])
			}
		}
		nodes[i] = n
	}

	head := g.Heads[0][0]
	if head < 0 || head >= len(nodes) {
		return nil, fmt.Errorf("graph head refers to missing node %d", head)
	}
	return nodes[head], nil
}
