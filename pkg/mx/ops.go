package mx

import "fmt"

// ArithOp is an element-wise arithmetic operation.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

// arithOps maps each ArithOp to the engine operators implementing it. The
// imperative and symbolic operators are registered under different names.
var arithOps = [...]struct {
	name string

	ndarray       string
	ndarrayScalar string
	symbol        string
	symbolScalar  string
}{
	OpAdd: {"add", "_plus", "_plus_scalar", "_Plus", "_PlusScalar"},
	OpSub: {"sub", "_minus", "_minus_scalar", "_Minus", "_MinusScalar"},
	OpMul: {"mul", "_mul", "_mul_scalar", "_Mul", "_MulScalar"},
	OpDiv: {"div", "_div", "_div_scalar", "_Div", "_DivScalar"},
	OpMod: {"mod", "_mod", "_mod_scalar", "_Mod", "_ModScalar"},
}

func (op ArithOp) valid() bool {
	return op >= 0 && int(op) < len(arithOps)
}

func (op ArithOp) String() string {
	if !op.valid() {
		return fmt.Sprintf("ArithOp(%d)", int(op))
	}
	return arithOps[op].name
}

// NDArrayOp is the imperative operator name, with the scalar right-hand
// side variant when scalar is set. It is "" for an unknown op.
func (op ArithOp) NDArrayOp(scalar bool) string {
	if !op.valid() {
		return ""
	}
	if scalar {
		return arithOps[op].ndarrayScalar
	}
	return arithOps[op].ndarray
}

// SymbolOp is the symbolic operator name, or "" for an unknown op.
func (op ArithOp) SymbolOp(scalar bool) string {
	if !op.valid() {
		return ""
	}
	if scalar {
		return arithOps[op].symbolScalar
	}
	return arithOps[op].symbol
}

// Arith computes a op rhs into a new array.
func (a *NDArray) Arith(op ArithOp, rhs *NDArray) (*NDArray, error) {
	return a.into(a.rt.NewOperator(op.NDArrayOp(false)).PushInput(a).PushInput(rhs))
}

// ArithScalar computes a op rhs into a new array.
func (a *NDArray) ArithScalar(op ArithOp, rhs float32) (*NDArray, error) {
	return a.into(a.rt.NewOperator(op.NDArrayOp(true)).PushInput(a).SetParam("scalar", rhs))
}

// ArithAssign computes a op rhs into a.
func (a *NDArray) ArithAssign(op ArithOp, rhs *NDArray) error {
	return a.rt.NewOperator(op.NDArrayOp(false)).PushInput(a).PushInput(rhs).InvokeWith(a)
}

// ArithScalarAssign computes a op rhs into a.
func (a *NDArray) ArithScalarAssign(op ArithOp, rhs float32) error {
	return a.rt.NewOperator(op.NDArrayOp(true)).PushInput(a).SetParam("scalar", rhs).InvokeWith(a)
}

func (a *NDArray) into(o *Operator) (*NDArray, error) {
	if err := o.Err(); err != nil {
		return nil, err
	}
	out, err := a.rt.NewNDArray()
	if err != nil {
		return nil, err
	}
	if err := o.InvokeWith(out); err != nil {
		out.Free()
		return nil, err
	}
	return out, nil
}

func (a *NDArray) Add(rhs *NDArray) (*NDArray, error) { return a.Arith(OpAdd, rhs) }
func (a *NDArray) Sub(rhs *NDArray) (*NDArray, error) { return a.Arith(OpSub, rhs) }
func (a *NDArray) Mul(rhs *NDArray) (*NDArray, error) { return a.Arith(OpMul, rhs) }
func (a *NDArray) Div(rhs *NDArray) (*NDArray, error) { return a.Arith(OpDiv, rhs) }
func (a *NDArray) Mod(rhs *NDArray) (*NDArray, error) { return a.Arith(OpMod, rhs) }

func (a *NDArray) AddScalar(rhs float32) (*NDArray, error) { return a.ArithScalar(OpAdd, rhs) }
func (a *NDArray) SubScalar(rhs float32) (*NDArray, error) { return a.ArithScalar(OpSub, rhs) }
func (a *NDArray) MulScalar(rhs float32) (*NDArray, error) { return a.ArithScalar(OpMul, rhs) }
func (a *NDArray) DivScalar(rhs float32) (*NDArray, error) { return a.ArithScalar(OpDiv, rhs) }
func (a *NDArray) ModScalar(rhs float32) (*NDArray, error) { return a.ArithScalar(OpMod, rhs) }

func (a *NDArray) AddAssign(rhs *NDArray) error { return a.ArithAssign(OpAdd, rhs) }
func (a *NDArray) SubAssign(rhs *NDArray) error { return a.ArithAssign(OpSub, rhs) }
func (a *NDArray) MulAssign(rhs *NDArray) error { return a.ArithAssign(OpMul, rhs) }
func (a *NDArray) DivAssign(rhs *NDArray) error { return a.ArithAssign(OpDiv, rhs) }
func (a *NDArray) ModAssign(rhs *NDArray) error { return a.ArithAssign(OpMod, rhs) }

func (a *NDArray) AddScalarAssign(rhs float32) error { return a.ArithScalarAssign(OpAdd, rhs) }
func (a *NDArray) SubScalarAssign(rhs float32) error { return a.ArithScalarAssign(OpSub, rhs) }
func (a *NDArray) MulScalarAssign(rhs float32) error { return a.ArithScalarAssign(OpMul, rhs) }
func (a *NDArray) DivScalarAssign(rhs float32) error { return a.ArithScalarAssign(OpDiv, rhs) }
func (a *NDArray) ModScalarAssign(rhs float32) error { return a.ArithScalarAssign(OpMod, rhs) }

// Arith composes s op rhs into a new graph node.
func (s *Symbol) Arith(op ArithOp, rhs *Symbol) (*Symbol, error) {
	return s.rt.NewOperator(op.SymbolOp(false)).PushInput(s).PushInput(rhs).CreateSymbol("")
}

// ArithScalar composes s op rhs into a new graph node.
func (s *Symbol) ArithScalar(op ArithOp, rhs float32) (*Symbol, error) {
	return s.rt.NewOperator(op.SymbolOp(true)).PushInput(s).SetParam("scalar", rhs).CreateSymbol("")
}

func (s *Symbol) Add(rhs *Symbol) (*Symbol, error) { return s.Arith(OpAdd, rhs) }
func (s *Symbol) Sub(rhs *Symbol) (*Symbol, error) { return s.Arith(OpSub, rhs) }
func (s *Symbol) Mul(rhs *Symbol) (*Symbol, error) { return s.Arith(OpMul, rhs) }
func (s *Symbol) Div(rhs *Symbol) (*Symbol, error) { return s.Arith(OpDiv, rhs) }
func (s *Symbol) Mod(rhs *Symbol) (*Symbol, error) { return s.Arith(OpMod, rhs) }

func (s *Symbol) AddScalar(rhs float32) (*Symbol, error) { return s.ArithScalar(OpAdd, rhs) }
func (s *Symbol) SubScalar(rhs float32) (*Symbol, error) { return s.ArithScalar(OpSub, rhs) }
func (s *Symbol) MulScalar(rhs float32) (*Symbol, error) { return s.ArithScalar(OpMul, rhs) }
func (s *Symbol) DivScalar(rhs float32) (*Symbol, error) { return s.ArithScalar(OpDiv, rhs) }
func (s *Symbol) ModScalar(rhs float32) (*Symbol, error) { return s.ArithScalar(OpMod, rhs) }
