package fallback

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

func composePlus(t *testing.T, e *Engine, name string, lhs, rhs Handle) Handle {
	t.Helper()
	op, err := e.OpHandle("_Plus")
	if err != nil {
		t.Fatalf("failed to find _Plus: %v", err)
	}
	h, err := e.CreateAtomicSymbol(op, nil, nil)
	if err != nil {
		t.Fatalf("failed to create symbol: %v", err)
	}
	if err := e.Compose(h, name, nil, []Handle{lhs, rhs}); err != nil {
		t.Fatalf("failed to compose: %v", err)
	}
	return h
}

func TestSharedInputsAreWrittenOnce(t *testing.T) {
	e := New()
	x, err := e.CreateVariable("x")
	if err != nil {
		t.Fatalf("failed to create variable: %v", err)
	}
	double := composePlus(t, e, "", x, x)

	js, err := e.SymbolToJSON(double)
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	var g graphJSON
	if err := json.Unmarshal([]byte(js), &g); err != nil {
		t.Fatalf("failed to parse %s: %v", js, err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %s", js)
	}
	if g.Nodes[0].Op != "null" || g.Nodes[1].Name != "_plus0" {
		t.Errorf("unexpected nodes %s", js)
	}
	if len(g.ArgNodes) != 1 || g.ArgNodes[0] != 0 {
		t.Errorf("expected arg_nodes [0], got %v", g.ArgNodes)
	}
	if g.Heads[0][0] != 1 {
		t.Errorf("expected head 1, got %v", g.Heads)
	}
}

func TestLoadAcceptsNodesInAnyOrder(t *testing.T) {
	e := New()
	h, err := e.SymbolFromJSON(`{
		"nodes": [
			{"op": "_Plus", "name": "sum", "inputs": [[1, 0, 0], [2, 0, 0]]},
			{"op": "null", "name": "a", "inputs": []},
			{"op": "null", "name": "b", "inputs": []}
		],
		"arg_nodes": [1, 2],
		"heads": [[0, 0, 0]]
	}`)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	args, err := e.ListArguments(h)
	if err != nil {
		t.Fatalf("failed to list arguments: %v", err)
	}
	if strings.Join(args, ",") != "a,b" {
		t.Errorf("expected arguments a,b, got %v", args)
	}
}

func TestComposeErrors(t *testing.T) {
	e := New()
	x, _ := e.CreateVariable("x")
	sum := composePlus(t, e, "sum", x, x)

	if err := e.Compose(sum, "again", nil, []Handle{x, x}); err == nil {
		t.Errorf("expected composing twice to fail")
	}

	op, _ := e.OpHandle("_Plus")
	h, _ := e.CreateAtomicSymbol(op, nil, nil)
	err := e.Compose(h, "", []string{"lhs", "bogus"}, []Handle{x, x})
	if err == nil || !strings.Contains(err.Error(), `no argument "bogus"`) {
		t.Errorf("expected unknown argument error, got %v", err)
	}

	addN, _ := e.OpHandle("add_n")
	h, _ = e.CreateAtomicSymbol(addN, nil, nil)
	if err := e.Compose(h, "", []string{"args"}, []Handle{x}); err == nil {
		t.Errorf("expected named inputs to a variadic operator to fail")
	}
}

func TestInjectedFailure(t *testing.T) {
	e := New()
	e.InjectFailure("MXNDArrayCreateNone", "out of memory")

	_, err := e.CreateNone()
	callErr, ok := err.(*engine.CallError)
	if !ok {
		t.Fatalf("expected a CallError, got %v", err)
	}
	if callErr.Message != "out of memory" {
		t.Errorf("unexpected message %q", callErr.Message)
	}

	if _, err := e.CreateNone(); err != nil {
		t.Errorf("expected the failure to apply once, got %v", err)
	}
	if n := e.Stats().Calls["MXNDArrayCreateNone"]; n != 2 {
		t.Errorf("expected 2 calls, got %d", n)
	}
}

func TestLoadRejectsMixedNames(t *testing.T) {
	e := New()
	a, _ := e.Create([]uint32{1}, devCPU, 0, false, 0)
	b, _ := e.Create([]uint32{1}, devCPU, 0, false, 0)

	path := filepath.Join(t.TempDir(), "mixed.params")
	if err := e.Save(path, []Handle{a, b}, []string{"a", ""}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	before := e.Stats().ArraysAllocated
	if _, _, err := e.Load(path); err == nil {
		t.Fatalf("expected loading mixed names to fail")
	}
	if after := e.Stats().ArraysAllocated; after != before {
		t.Errorf("failed load allocated %d arrays", after-before)
	}

	if _, _, err := e.Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("expected loading a missing file to fail")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected the saved file to exist: %v", err)
	}
}
