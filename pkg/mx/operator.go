package mx

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

// Operator accumulates the inputs and parameters of one operator call. Its
// methods chain; the first error is recorded and returned by the terminal
// call (Invoke, InvokeWith, InvokeWithHandles or CreateSymbol). An Operator
// can be invoked once.
type Operator struct {
	rt      *Runtime
	opMap   *OpMap
	name    string
	creator engine.Creator

	argNames       []string
	argNamesLoaded bool

	inputs    []engine.Handle
	inputKeys []string
	// holders keeps the input values reachable until the engine call returns.
	holders []Handler

	paramKeys []string
	params    map[string]string

	// position is the argument index used by PushParam.
	position int

	spent bool
	err   error
}

// NewOperator starts building a call to the named operator.
func (r *Runtime) NewOperator(name string) *Operator {
	o := &Operator{
		rt:     r,
		name:   name,
		params: make(map[string]string),
	}
	m, err := r.OpMap()
	if err != nil {
		o.err = err
		return o
	}
	o.opMap = m
	o.creator, o.err = m.SymbolCreator(name)
	return o
}

// Err returns the first error recorded while building.
func (o *Operator) Err() error {
	return o.err
}

func (o *Operator) fail(err error) *Operator {
	if o.err == nil {
		o.err = err
	}
	return o
}

func (o *Operator) addInput(v Handler) (engine.Handle, bool) {
	if o.err != nil {
		return 0, false
	}
	if o.spent {
		o.fail(ErrOperatorSpent)
		return 0, false
	}
	var h engine.Handle
	if v != nil {
		h = v.Handle()
	}
	if h == 0 {
		o.fail(fmt.Errorf("input %d of %s: %w", len(o.inputs), o.name, ErrNilValue))
		return 0, false
	}
	o.holders = append(o.holders, v)
	o.inputs = append(o.inputs, h)
	o.position++
	return h, true
}

// PushInput appends a positional input.
func (o *Operator) PushInput(v Handler) *Operator {
	o.addInput(v)
	return o
}

// SetInput appends an input bound to the named argument. Inputs must be
// either all named or all positional.
func (o *Operator) SetInput(name string, v Handler) *Operator {
	if _, ok := o.addInput(v); ok {
		o.inputKeys = append(o.inputKeys, name)
	}
	return o
}

// SetParam sets a parameter, converting value with FormatParam.
func (o *Operator) SetParam(name string, value any) *Operator {
	if o.err != nil {
		return o
	}
	if o.spent {
		return o.fail(ErrOperatorSpent)
	}
	if _, ok := o.params[name]; !ok {
		o.paramKeys = append(o.paramKeys, name)
	}
	o.params[name] = FormatParam(value)
	return o
}

// SetParams sets each parameter in values, in name order.
func (o *Operator) SetParams(values map[string]any) *Operator {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		o.SetParam(name, values[name])
	}
	return o
}

// SetParamAt sets the parameter named by the operator's argument at index.
func (o *Operator) SetParamAt(index int, value any) *Operator {
	if o.err != nil {
		return o
	}
	names, err := o.loadArgNames()
	if err != nil {
		return o.fail(err)
	}
	if index < 0 || index >= len(names) {
		return o.fail(fmt.Errorf("%w: %s has %d arguments, index is %d", ErrParamIndex, o.name, len(names), index))
	}
	return o.SetParam(names[index], value)
}

// PushParam sets the parameter for the next argument position, counting
// both inputs and pushed parameters.
func (o *Operator) PushParam(value any) *Operator {
	index := o.position
	o.SetParamAt(index, value)
	if o.err == nil {
		o.position++
	}
	return o
}

func (o *Operator) loadArgNames() ([]string, error) {
	if o.argNamesLoaded {
		return o.argNames, nil
	}
	info, err := o.opMap.Describe(o.name)
	if err != nil {
		return nil, err
	}
	o.argNames = info.ArgNames
	o.argNamesLoaded = true
	return o.argNames, nil
}

// begin moves the builder to the invoke phase.
func (o *Operator) begin() error {
	if o.err != nil {
		return o.err
	}
	if o.spent {
		return ErrOperatorSpent
	}
	o.spent = true
	if len(o.inputKeys) != 0 && len(o.inputKeys) != len(o.inputs) {
		return fmt.Errorf("%w: %s has %d named and %d total inputs", ErrInputKeyMismatch, o.name, len(o.inputKeys), len(o.inputs))
	}
	return nil
}

func (o *Operator) paramArrays() ([]string, []string) {
	values := make([]string, len(o.paramKeys))
	for i, k := range o.paramKeys {
		values[i] = o.params[k]
	}
	return o.paramKeys, values
}

// InvokeWithHandles runs the operator imperatively. With no outputs the
// engine allocates them; otherwise it writes into the supplied arrays. The
// output handles are returned and, when allocated by the engine, owned by
// the caller.
func (o *Operator) InvokeWithHandles(outputs []engine.Handle) ([]engine.Handle, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(o.holders)

	keys, values := o.paramArrays()
	o.rt.log.V(4).Info("invoking operator", "op", o.name, "inputs", len(o.inputs), "outputs", len(outputs), "params", len(keys))
	handles, err := o.rt.engine.ImperativeInvoke(o.creator, o.inputs, outputs, keys, values)
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", o.name, err)
	}
	return handles, nil
}

// Invoke runs the operator, returning the arrays the engine allocated.
func (o *Operator) Invoke() ([]*NDArray, error) {
	handles, err := o.InvokeWithHandles(nil)
	if err != nil {
		return nil, err
	}
	out := make([]*NDArray, len(handles))
	for i, h := range handles {
		out[i] = o.rt.NDArrayFromHandle(h)
	}
	return out, nil
}

// InvokeWith runs the operator, writing its result into out.
func (o *Operator) InvokeWith(out *NDArray) error {
	h := out.Handle()
	if h == 0 {
		o.fail(fmt.Errorf("output of %s: %w", o.name, ErrNilValue))
	}
	defer runtime.KeepAlive(out)
	_, err := o.InvokeWithHandles([]engine.Handle{h})
	return err
}

// CreateSymbol composes the operator into a graph node called name; an empty
// name lets the engine choose one.
func (o *Operator) CreateSymbol(name string) (*Symbol, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(o.holders)

	e := o.rt.engine
	keys, values := o.paramArrays()
	h, err := e.CreateAtomicSymbol(o.creator, keys, values)
	if err != nil {
		return nil, fmt.Errorf("creating %s node: %w", o.name, err)
	}
	s := o.rt.SymbolFromHandle(h)
	if err := e.Compose(h, name, o.inputKeys, o.inputs); err != nil {
		s.Free()
		return nil, fmt.Errorf("composing %s: %w", o.name, err)
	}
	return s, nil
}

// FormatParam renders a parameter value in the engine's textual form.
// Floats use the shortest representation that round-trips, so 1.0 is "1",
// and shapes use tuple syntax such as "(2,3)" or "(4,)".
func FormatParam(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []uint32:
		return Shape(v).String()
	case []int:
		return formatTuple(v)
	case []int64:
		return formatTuple(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}

func formatTuple[T int | int64](values []T) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, v := range values {
		if i != 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	}
	if len(values) == 1 {
		sb.WriteByte(',')
	}
	sb.WriteByte(')')
	return sb.String()
}
