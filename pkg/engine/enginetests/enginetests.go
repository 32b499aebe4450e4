// Package enginetests holds checks that every engine.Engine implementation
// must pass. Engine packages call Run from their own tests.
package enginetests

import (
	"math"
	"path/filepath"
	"slices"
	"testing"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

// Run exercises e through the raw primitives, without the bindings.
func Run(t *testing.T, e engine.Engine) {
	t.Run("ImperativeAdd", func(t *testing.T) { testImperativeAdd(t, e) })
	t.Run("InvokeIntoOutput", func(t *testing.T) { testInvokeIntoOutput(t, e) })
	t.Run("Compose", func(t *testing.T) { testCompose(t, e) })
	t.Run("Autograd", func(t *testing.T) { testAutograd(t, e) })
	t.Run("SaveLoad", func(t *testing.T) { testSaveLoad(t, e) })
}

func FloatingPointEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i, value := range a {
		if math.Abs(float64(value-b[i])) > 0.00001 {
			return false
		}
	}
	return true
}

func newArray(t *testing.T, e engine.Engine, shape []uint32, values []float32) engine.Handle {
	t.Helper()
	h, err := e.Create(shape, 1, 0, false, 0)
	if err != nil {
		t.Fatalf("failed to create array: %v", err)
	}
	t.Cleanup(func() {
		if err := e.Free(h); err != nil {
			t.Errorf("failed to free array: %v", err)
		}
	})
	if err := e.CopyFromHost(h, values); err != nil {
		t.Fatalf("failed to copy values in: %v", err)
	}
	return h
}

func readValues(t *testing.T, e engine.Engine, h engine.Handle) []float32 {
	t.Helper()
	if err := e.WaitToRead(h); err != nil {
		t.Fatalf("failed to wait for array: %v", err)
	}
	shape, err := e.Shape(h)
	if err != nil {
		t.Fatalf("failed to get shape: %v", err)
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	values := make([]float32, n)
	if err := e.CopyToHost(h, values); err != nil {
		t.Fatalf("failed to copy values out: %v", err)
	}
	return values
}

func testImperativeAdd(t *testing.T, e engine.Engine) {
	op, err := e.OpHandle("_plus")
	if err != nil {
		t.Fatalf("failed to find _plus: %v", err)
	}

	a := newArray(t, e, []uint32{3}, []float32{1, 2, 3})
	b := newArray(t, e, []uint32{3}, []float32{10, 20, 30})

	outputs, err := e.ImperativeInvoke(op, []engine.Handle{a, b}, nil, nil, nil)
	if err != nil {
		t.Fatalf("failed to invoke _plus: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(outputs))
	}
	defer e.Free(outputs[0])

	shape, err := e.Shape(outputs[0])
	if err != nil {
		t.Fatalf("failed to get shape: %v", err)
	}
	if !slices.Equal(shape, []uint32{3}) {
		t.Errorf("expected shape [3], got %v", shape)
	}

	values := readValues(t, e, outputs[0])
	expected := []float32{11, 22, 33}
	if !FloatingPointEqual(values, expected) {
		t.Errorf("expected %+v, got %+v", expected, values)
	}
}

func testInvokeIntoOutput(t *testing.T, e engine.Engine) {
	op, err := e.OpHandle("_mul_scalar")
	if err != nil {
		t.Fatalf("failed to find _mul_scalar: %v", err)
	}

	a := newArray(t, e, []uint32{2, 2}, []float32{1, 2, 3, 4})
	outputs, err := e.ImperativeInvoke(op, []engine.Handle{a}, []engine.Handle{a}, []string{"scalar"}, []string{"0.5"})
	if err != nil {
		t.Fatalf("failed to invoke _mul_scalar: %v", err)
	}
	if len(outputs) != 1 || outputs[0] != a {
		t.Fatalf("expected the output to be the supplied array, got %v", outputs)
	}

	values := readValues(t, e, a)
	expected := []float32{0.5, 1, 1.5, 2}
	if !FloatingPointEqual(values, expected) {
		t.Errorf("expected %+v, got %+v", expected, values)
	}
}

func testCompose(t *testing.T, e engine.Engine) {
	creators, err := e.ListCreators()
	if err != nil {
		t.Fatalf("failed to list creators: %v", err)
	}
	var plus engine.Creator
	for _, c := range creators {
		info, err := e.CreatorInfo(c)
		if err != nil {
			t.Fatalf("failed to describe creator: %v", err)
		}
		if info.Name == "_Plus" {
			plus = c
		}
	}
	if plus == 0 {
		t.Fatalf("_Plus is not a listed creator")
	}

	x, err := e.CreateVariable("x")
	if err != nil {
		t.Fatalf("failed to create variable: %v", err)
	}
	defer e.FreeSymbol(x)
	y, err := e.CreateVariable("y")
	if err != nil {
		t.Fatalf("failed to create variable: %v", err)
	}
	defer e.FreeSymbol(y)

	sum, err := e.CreateAtomicSymbol(plus, nil, nil)
	if err != nil {
		t.Fatalf("failed to create atomic symbol: %v", err)
	}
	defer e.FreeSymbol(sum)

	if err := e.Compose(sum, "sum", nil, []engine.Handle{x, y}); err != nil {
		t.Fatalf("failed to compose: %v", err)
	}

	name, ok, err := e.SymbolName(sum)
	if err != nil {
		t.Fatalf("failed to get symbol name: %v", err)
	}
	if !ok || name != "sum" {
		t.Errorf("expected name %q, got %q (ok=%v)", "sum", name, ok)
	}

	args, err := e.ListArguments(sum)
	if err != nil {
		t.Fatalf("failed to list arguments: %v", err)
	}
	if !slices.Equal(args, []string{"x", "y"}) {
		t.Errorf("expected arguments [x y], got %v", args)
	}

	json, err := e.SymbolToJSON(sum)
	if err != nil {
		t.Fatalf("failed to serialize symbol: %v", err)
	}
	loaded, err := e.SymbolFromJSON(json)
	if err != nil {
		t.Fatalf("failed to load symbol: %v", err)
	}
	defer e.FreeSymbol(loaded)

	args, err = e.ListArguments(loaded)
	if err != nil {
		t.Fatalf("failed to list arguments: %v", err)
	}
	if !slices.Equal(args, []string{"x", "y"}) {
		t.Errorf("expected loaded arguments [x y], got %v", args)
	}
}

func testAutograd(t *testing.T, e engine.Engine) {
	prev, err := e.SetRecording(true)
	if err != nil {
		t.Fatalf("failed to set recording: %v", err)
	}
	defer e.SetRecording(prev)

	recording, err := e.IsRecording()
	if err != nil {
		t.Fatalf("failed to query recording: %v", err)
	}
	if !recording {
		t.Errorf("expected recording to be on")
	}

	was, err := e.SetRecording(prev)
	if err != nil {
		t.Fatalf("failed to restore recording: %v", err)
	}
	if !was {
		t.Errorf("expected SetRecording to report the previous state as true")
	}
}

func testSaveLoad(t *testing.T, e engine.Engine) {
	a := newArray(t, e, []uint32{2}, []float32{1.5, -2})
	b := newArray(t, e, []uint32{1, 3}, []float32{7, 8, 9})

	path := filepath.Join(t.TempDir(), "arrays.params")
	if err := e.Save(path, []engine.Handle{a, b}, []string{"a", "b"}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	handles, names, err := e.Load(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	defer func() {
		for _, h := range handles {
			e.Free(h)
		}
	}()

	if !slices.Equal(names, []string{"a", "b"}) {
		t.Fatalf("expected names [a b], got %v", names)
	}
	if values := readValues(t, e, handles[1]); !FloatingPointEqual(values, []float32{7, 8, 9}) {
		t.Errorf("expected [7 8 9], got %+v", values)
	}
}
