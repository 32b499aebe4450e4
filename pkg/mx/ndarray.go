package mx

import (
	"fmt"
	"runtime"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

// Handler is implemented by values backed by an engine handle.
type Handler interface {
	Handle() engine.Handle
}

// NDArray is one holder of an engine array. Holders created with Clone share
// the same engine array, so a write through one is visible through all of
// them. The engine array is released when every holder has been freed or
// garbage collected.
type NDArray struct {
	rt  *Runtime
	ref *ref
}

var _ Handler = (*NDArray)(nil)

// NewNDArray asks the engine for an empty array, with no shape.
func (r *Runtime) NewNDArray() (*NDArray, error) {
	h, err := r.engine.CreateNone()
	if err != nil {
		return nil, fmt.Errorf("creating empty NDArray: %w", err)
	}
	return r.NDArrayFromHandle(h), nil
}

// NDArrayFromHandle takes ownership of h, which must be a live array handle
// that nothing else will release.
func (r *Runtime) NDArrayFromHandle(h engine.Handle) *NDArray {
	return r.wrapNDArray(newBlob("NDArray", h, r.engine.Free, r.log))
}

func (r *Runtime) wrapNDArray(share *ref) *NDArray {
	a := &NDArray{rt: r, ref: share}
	track(a, a.ref)
	return a
}

// Handle borrows the engine handle. It returns 0 once this holder is freed.
func (a *NDArray) Handle() engine.Handle {
	if a == nil {
		return 0
	}
	return a.ref.handle()
}

// Clone returns a new holder of the same engine array. A clone of a freed
// holder is itself freed: its Handle is 0.
func (a *NDArray) Clone() *NDArray {
	return a.rt.wrapNDArray(a.ref.clone())
}

// Free drops this holder. It is safe to call more than once.
func (a *NDArray) Free() {
	if a == nil {
		return
	}
	a.ref.drop()
}

func (a *NDArray) Shape() (Shape, error) {
	defer runtime.KeepAlive(a)
	shape, err := a.rt.engine.Shape(a.Handle())
	if err != nil {
		return nil, fmt.Errorf("getting NDArray shape: %w", err)
	}
	return Shape(shape), nil
}

// Size is the number of elements, the product of the shape.
func (a *NDArray) Size() (int, error) {
	shape, err := a.Shape()
	if err != nil {
		return 0, err
	}
	return shape.Size(), nil
}

func (a *NDArray) DType() (DType, error) {
	defer runtime.KeepAlive(a)
	d, err := a.rt.engine.DType(a.Handle())
	if err != nil {
		return 0, fmt.Errorf("getting NDArray dtype: %w", err)
	}
	return DType(d), nil
}

func (a *NDArray) Context() (Context, error) {
	defer runtime.KeepAlive(a)
	code, id, err := a.rt.engine.Device(a.Handle())
	if err != nil {
		return Context{}, fmt.Errorf("getting NDArray context: %w", err)
	}
	t, err := DeviceTypeFromCode(code)
	if err != nil {
		return Context{}, err
	}
	return NewContext(t, id), nil
}

// WaitToRead blocks until pending writes to the array have completed.
func (a *NDArray) WaitToRead() error {
	defer runtime.KeepAlive(a)
	return a.rt.engine.WaitToRead(a.Handle())
}

// WaitToWrite blocks until pending reads and writes of the array have
// completed.
func (a *NDArray) WaitToWrite() error {
	defer runtime.KeepAlive(a)
	return a.rt.engine.WaitToWrite(a.Handle())
}

// Values copies the array contents to the host.
func (a *NDArray) Values() ([]float32, error) {
	defer runtime.KeepAlive(a)
	shape, err := a.Shape()
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, nil
	}
	out := make([]float32, shape.Size())
	if err := a.rt.engine.CopyToHost(a.Handle(), out); err != nil {
		return nil, fmt.Errorf("copying NDArray to host: %w", err)
	}
	return out, nil
}

// SetValues overwrites the array contents. len(values) must equal Size.
func (a *NDArray) SetValues(values []float32) error {
	defer runtime.KeepAlive(a)
	if err := a.rt.engine.CopyFromHost(a.Handle(), values); err != nil {
		return fmt.Errorf("copying host data to NDArray: %w", err)
	}
	return nil
}

// CopyTo writes the contents of a into dst.
func (a *NDArray) CopyTo(dst *NDArray) error {
	return a.rt.NewOperator("_copyto").PushInput(a).InvokeWith(dst)
}

func (a *NDArray) String() string {
	shape, err := a.Shape()
	if err != nil {
		return fmt.Sprintf("NDArray(%v)", err)
	}
	ctx, err := a.Context()
	if err != nil {
		return fmt.Sprintf("NDArray%v(%v)", shape, err)
	}
	return fmt.Sprintf("NDArray%v@%v", shape, ctx)
}

// NDArrayBuilder configures the creation of an array.
type NDArrayBuilder struct {
	rt         *Runtime
	data       []float32
	shape      Shape
	ctx        Context
	delayAlloc bool
	dtype      DType
}

func (r *Runtime) NewNDArrayBuilder() *NDArrayBuilder {
	return &NDArrayBuilder{
		rt:         r,
		ctx:        CPU(),
		delayAlloc: true,
		dtype:      Float32,
	}
}

// Data sets the initial contents. Unless Shape is also called, the array is
// one-dimensional.
func (b *NDArrayBuilder) Data(data []float32) *NDArrayBuilder {
	b.data = data
	return b
}

func (b *NDArrayBuilder) Shape(dims ...uint32) *NDArrayBuilder {
	b.shape = Shape(dims)
	return b
}

func (b *NDArrayBuilder) Context(ctx Context) *NDArrayBuilder {
	b.ctx = ctx
	return b
}

// DelayAlloc controls whether the engine may defer allocating the buffer
// until it is first written. It has no effect when Data is set.
func (b *NDArrayBuilder) DelayAlloc(delay bool) *NDArrayBuilder {
	b.delayAlloc = delay
	return b
}

func (b *NDArrayBuilder) DType(dtype DType) *NDArrayBuilder {
	b.dtype = dtype
	return b
}

func (b *NDArrayBuilder) Create() (*NDArray, error) {
	shape := b.shape
	if shape == nil && b.data != nil {
		shape = Shape{uint32(len(b.data))}
	}
	delay := b.delayAlloc && b.data == nil

	e := b.rt.engine
	h, err := e.Create(shape, int(b.ctx.DeviceType()), b.ctx.DeviceID(), delay, int(b.dtype))
	if err != nil {
		return nil, fmt.Errorf("creating NDArray with shape %v on %v: %w", shape, b.ctx, err)
	}
	a := b.rt.NDArrayFromHandle(h)
	if b.data != nil {
		if err := a.SetValues(b.data); err != nil {
			a.Free()
			return nil, err
		}
	}
	return a, nil
}
