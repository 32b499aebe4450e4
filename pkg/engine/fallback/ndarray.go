package fallback

import (
	"slices"
)

// Device type codes, as used by the engine.
const (
	devCPU = 1
)

type array struct {
	shape   []uint32
	dtype   int
	devType int
	devID   int

	// data is nil until the array is first written or read.
	data []float32
}

func numElements(shape []uint32) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}

func (a *array) size() int {
	return numElements(a.shape)
}

// values returns the array data, materialising a delayed allocation.
func (a *array) values() []float32 {
	if a.data == nil {
		a.data = make([]float32, a.size())
	}
	return a.data
}

func (e *Engine) lookupArray(call string, h Handle) (*array, error) {
	a, ok := e.arrays[h]
	if !ok {
		return nil, callError(call, "NDArray handle %#x is not live", uintptr(h))
	}
	return a, nil
}

func (e *Engine) allocArray(a *array) Handle {
	h := e.newHandle()
	e.arrays[h] = a
	e.stats.ArraysAllocated++
	return h
}

func (e *Engine) CreateNone() (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("MXNDArrayCreateNone"); err != nil {
		return 0, err
	}
	return e.allocArray(&array{devType: devCPU}), nil
}

func (e *Engine) Create(shape []uint32, devType, devID int, delayAlloc bool, dtype int) (Handle, error) {
	const call = "MXNDArrayCreateEx"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return 0, err
	}
	if devType <= 0 {
		return 0, callError(call, "invalid device type %d", devType)
	}
	a := &array{
		shape:   slices.Clone(shape),
		dtype:   dtype,
		devType: devType,
		devID:   devID,
	}
	if !delayAlloc {
		a.values()
	}
	return e.allocArray(a), nil
}

func (e *Engine) Free(h Handle) error {
	const call = "MXNDArrayFree"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return err
	}
	if _, err := e.lookupArray(call, h); err != nil {
		return err
	}
	delete(e.arrays, h)
	e.stats.ArraysReleased++
	return nil
}

// IsLive reports whether h names an allocated, unreleased array.
func (e *Engine) IsLive(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.arrays[h]
	return ok
}

// IsAllocated reports whether the array's buffer has been materialised.
func (e *Engine) IsAllocated(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.arrays[h]
	return ok && a.data != nil
}

func (e *Engine) Shape(h Handle) ([]uint32, error) {
	const call = "MXNDArrayGetShape"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return nil, err
	}
	a, err := e.lookupArray(call, h)
	if err != nil {
		return nil, err
	}
	return slices.Clone(a.shape), nil
}

func (e *Engine) DType(h Handle) (int, error) {
	const call = "MXNDArrayGetDType"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return 0, err
	}
	a, err := e.lookupArray(call, h)
	if err != nil {
		return 0, err
	}
	return a.dtype, nil
}

func (e *Engine) Device(h Handle) (int, int, error) {
	const call = "MXNDArrayGetContext"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return 0, 0, err
	}
	a, err := e.lookupArray(call, h)
	if err != nil {
		return 0, 0, err
	}
	return a.devType, a.devID, nil
}

func (e *Engine) CopyFromHost(h Handle, data []float32) error {
	const call = "MXNDArraySyncCopyFromCPU"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return err
	}
	a, err := e.lookupArray(call, h)
	if err != nil {
		return err
	}
	if len(a.shape) == 0 {
		return callError(call, "array has no shape")
	}
	if n := a.size(); n != len(data) {
		return callError(call, "array has %d elements, but %d values were provided", n, len(data))
	}
	a.data = slices.Clone(data)
	return nil
}

func (e *Engine) CopyToHost(h Handle, data []float32) error {
	const call = "MXNDArraySyncCopyToCPU"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return err
	}
	a, err := e.lookupArray(call, h)
	if err != nil {
		return err
	}
	if n := a.size(); n != len(data) {
		return callError(call, "array has %d elements, but buffer holds %d", n, len(data))
	}
	copy(data, a.values())
	return nil
}

func (e *Engine) WaitToRead(h Handle) error {
	const call = "MXNDArrayWaitToRead"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return err
	}
	_, err := e.lookupArray(call, h)
	return err
}

func (e *Engine) WaitToWrite(h Handle) error {
	const call = "MXNDArrayWaitToWrite"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return err
	}
	_, err := e.lookupArray(call, h)
	return err
}

func (e *Engine) WaitAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enter("MXNDArrayWaitAll")
}
