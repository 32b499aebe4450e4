package fallback

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

type kernel func(inputs []*array, params map[string]string) (*array, error)

type creator struct {
	info engine.CreatorInfo
	// listed creators are reported by ListCreators; the rest are reachable
	// only through OpHandle.
	listed bool
	kernel kernel
}

const ndarrayOrSymbol = "NDArray-or-Symbol"

func (e *Engine) register(c *creator) {
	e.creators = append(e.creators, c)
	e.byName[c.info.Name] = Creator(len(e.creators))
}

func (e *Engine) registerOperators() {
	binaryOps := []struct {
		name       string
		symbolName string
		fn         func(a, b float32) float32
	}{
		{"_plus", "_Plus", func(a, b float32) float32 { return a + b }},
		{"_minus", "_Minus", func(a, b float32) float32 { return a - b }},
		{"_mul", "_Mul", func(a, b float32) float32 { return a * b }},
		{"_div", "_Div", func(a, b float32) float32 { return a / b }},
		{"_mod", "_Mod", func(a, b float32) float32 { return float32(math.Mod(float64(a), float64(b))) }},
	}
	for _, op := range binaryOps {
		for _, name := range []string{op.name, op.symbolName} {
			e.register(&creator{
				info: engine.CreatorInfo{
					Name:        name,
					Description: fmt.Sprintf("Element-wise %s of two arrays.", strings.Trim(op.name, "_")),
					ArgNames:    []string{"lhs", "rhs"},
					ArgTypes:    []string{ndarrayOrSymbol, ndarrayOrSymbol},
					ReturnType:  ndarrayOrSymbol,
				},
				listed: true,
				kernel: binaryKernel(op.fn),
			})
		}
		for _, name := range []string{op.name + "_scalar", op.symbolName + "Scalar"} {
			e.register(&creator{
				info: engine.CreatorInfo{
					Name:        name,
					Description: fmt.Sprintf("Element-wise %s of an array and a scalar.", strings.Trim(op.name, "_")),
					ArgNames:    []string{"data", "scalar"},
					ArgTypes:    []string{ndarrayOrSymbol, "float, required"},
					ReturnType:  ndarrayOrSymbol,
				},
				listed: true,
				kernel: scalarKernel(op.fn),
			})
		}
	}

	e.register(&creator{
		info: engine.CreatorInfo{
			Name:          "add_n",
			Description:   "Adds all input arguments element-wise.",
			ArgNames:      []string{"args", "num_args"},
			ArgTypes:      []string{"NDArray-or-Symbol[]", "int, required"},
			KeyVarNumArgs: "num_args",
			ReturnType:    ndarrayOrSymbol,
		},
		listed: true,
		kernel: addN,
	})

	for _, fill := range []struct {
		name  string
		value float32
	}{{"_zeros", 0}, {"_ones", 1}} {
		e.register(&creator{
			info: engine.CreatorInfo{
				Name:        fill.name,
				Description: fmt.Sprintf("Returns a new array filled with %v.", fill.value),
				ArgNames:    []string{"shape", "ctx", "dtype"},
				ArgTypes:    []string{"Shape(tuple), optional, default=[]", "string, optional, default=''", "string, optional, default='float32'"},
				ReturnType:  ndarrayOrSymbol,
			},
			listed: true,
			kernel: fillKernel(fill.value),
		})
	}

	e.register(&creator{
		info: engine.CreatorInfo{
			Name:        "_copyto",
			Description: "Copies the input into the output array.",
			ArgNames:    []string{"data"},
			ArgTypes:    []string{"NDArray"},
			ReturnType:  "NDArray",
		},
		kernel: copyKernel,
	})
}

func (e *Engine) lookupCreator(call string, c Creator) (*creator, error) {
	i := int(c) - 1
	if i < 0 || i >= len(e.creators) {
		return nil, callError(call, "invalid creator %#x", uintptr(c))
	}
	return e.creators[i], nil
}

func (e *Engine) ListCreators() ([]Creator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("MXSymbolListAtomicSymbolCreators"); err != nil {
		return nil, err
	}
	var out []Creator
	for i, c := range e.creators {
		if c.listed {
			out = append(out, Creator(i+1))
		}
	}
	return out, nil
}

func (e *Engine) CreatorInfo(c Creator) (*engine.CreatorInfo, error) {
	const call = "MXSymbolGetAtomicSymbolInfo"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return nil, err
	}
	cr, err := e.lookupCreator(call, c)
	if err != nil {
		return nil, err
	}
	info := cr.info
	info.ArgNames = slices.Clone(info.ArgNames)
	info.ArgTypes = slices.Clone(info.ArgTypes)
	info.ArgDescriptions = slices.Clone(info.ArgDescriptions)
	return &info, nil
}

func (e *Engine) ListOpNames() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("MXListAllOpNames"); err != nil {
		return nil, err
	}
	out := make([]string, len(e.creators))
	for i, c := range e.creators {
		out[i] = c.info.Name
	}
	return out, nil
}

func (e *Engine) OpHandle(name string) (Creator, error) {
	const call = "NNGetOpHandle"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return 0, err
	}
	c, ok := e.byName[name]
	if !ok {
		return 0, callError(call, "operator %q is not registered", name)
	}
	return c, nil
}

func (e *Engine) ImperativeInvoke(c Creator, inputs []Handle, outputs []Handle, keys, values []string) ([]Handle, error) {
	const call = "MXImperativeInvoke"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return nil, err
	}
	cr, err := e.lookupCreator(call, c)
	if err != nil {
		return nil, err
	}
	if len(keys) != len(values) {
		return nil, callError(call, "%d parameter keys for %d values", len(keys), len(values))
	}
	if len(outputs) > 1 {
		return nil, callError(call, "operator %s has 1 output, but %d were supplied", cr.info.Name, len(outputs))
	}
	params := make(map[string]string, len(keys))
	for i, k := range keys {
		params[k] = values[i]
	}
	in := make([]*array, len(inputs))
	for i, h := range inputs {
		a, err := e.lookupArray(call, h)
		if err != nil {
			return nil, err
		}
		in[i] = a
	}

	result, err := cr.kernel(in, params)
	if err != nil {
		return nil, callError(call, "%s: %v", cr.info.Name, err)
	}

	if len(outputs) == 1 {
		out, err := e.lookupArray(call, outputs[0])
		if err != nil {
			return nil, err
		}
		out.shape = result.shape
		out.dtype = result.dtype
		out.data = result.data
		return slices.Clone(outputs), nil
	}

	result.devType, result.devID = devCPU, 0
	if len(in) != 0 {
		result.devType, result.devID = in[0].devType, in[0].devID
	}
	return []Handle{e.allocArray(result)}, nil
}

func checkInputs(inputs []*array, n int) error {
	if len(inputs) != n {
		return fmt.Errorf("expected %d inputs, got %d", n, len(inputs))
	}
	for i, a := range inputs {
		if len(a.shape) == 0 {
			return fmt.Errorf("input %d has no shape", i)
		}
	}
	return nil
}

func binaryKernel(fn func(a, b float32) float32) kernel {
	return func(inputs []*array, _ map[string]string) (*array, error) {
		if err := checkInputs(inputs, 2); err != nil {
			return nil, err
		}
		lhs, rhs := inputs[0], inputs[1]
		a, b := lhs.values(), rhs.values()

		shape := lhs.shape
		switch {
		case slices.Equal(lhs.shape, rhs.shape):
		case len(b) == 1:
		case len(a) == 1:
			shape = rhs.shape
		default:
			return nil, fmt.Errorf("incompatible shapes %v and %v", lhs.shape, rhs.shape)
		}

		out := make([]float32, numElements(shape))
		for i := range out {
			x, y := a[0], b[0]
			if len(a) > 1 {
				x = a[i]
			}
			if len(b) > 1 {
				y = b[i]
			}
			out[i] = fn(x, y)
		}
		return &array{shape: slices.Clone(shape), dtype: lhs.dtype, data: out}, nil
	}
}

func scalarKernel(fn func(a, b float32) float32) kernel {
	return func(inputs []*array, params map[string]string) (*array, error) {
		if err := checkInputs(inputs, 1); err != nil {
			return nil, err
		}
		s, ok := params["scalar"]
		if !ok {
			return nil, fmt.Errorf("required parameter scalar is missing")
		}
		scalar, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid scalar %q: %w", s, err)
		}
		src := inputs[0].values()
		out := make([]float32, len(src))
		for i, v := range src {
			out[i] = fn(v, float32(scalar))
		}
		return &array{shape: slices.Clone(inputs[0].shape), dtype: inputs[0].dtype, data: out}, nil
	}
}

func addN(inputs []*array, params map[string]string) (*array, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("add_n requires at least one input")
	}
	if s, ok := params["num_args"]; ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid num_args %q: %w", s, err)
		}
		if n != len(inputs) {
			return nil, fmt.Errorf("num_args is %d, but %d inputs were supplied", n, len(inputs))
		}
	}
	if err := checkInputs(inputs, len(inputs)); err != nil {
		return nil, err
	}
	shape := inputs[0].shape
	out := make([]float32, numElements(shape))
	for i, a := range inputs {
		if !slices.Equal(a.shape, shape) {
			return nil, fmt.Errorf("input %d has shape %v, expected %v", i, a.shape, shape)
		}
		for j, v := range a.values() {
			out[j] += v
		}
	}
	return &array{shape: slices.Clone(shape), dtype: inputs[0].dtype, data: out}, nil
}

func fillKernel(value float32) kernel {
	return func(inputs []*array, params map[string]string) (*array, error) {
		if len(inputs) != 0 {
			return nil, fmt.Errorf("expected no inputs, got %d", len(inputs))
		}
		shape, err := parseShape(params["shape"])
		if err != nil {
			return nil, err
		}
		out := make([]float32, numElements(shape))
		for i := range out {
			out[i] = value
		}
		return &array{shape: shape, data: out}, nil
	}
}

func copyKernel(inputs []*array, _ map[string]string) (*array, error) {
	if err := checkInputs(inputs, 1); err != nil {
		return nil, err
	}
	src := inputs[0]
	return &array{shape: slices.Clone(src.shape), dtype: src.dtype, data: slices.Clone(src.values())}, nil
}

// parseShape parses the engine's textual tuple form, e.g. "(2,3)" or "(4,)".
func parseShape(s string) ([]uint32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	var shape []uint32
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		d, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid shape %q: %w", s, err)
		}
		shape = append(shape, uint32(d))
	}
	return shape, nil
}
