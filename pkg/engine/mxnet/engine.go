//go:build mxnet

package mxnet

// #cgo LDFLAGS: -lmxnet
// #include <stdlib.h>
// #include <stdbool.h>
// #include <stdint.h>
// #include "mxnet/c_api.h"
// #include "nnvm/c_api.h"
import "C"

import (
	"runtime"
	"unsafe"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

type Handle = engine.Handle
type Creator = engine.Creator

// Engine implements engine.Engine on top of libmxnet.
type Engine struct{}

var _ engine.Engine = (*Engine)(nil)

// New checks that libmxnet is usable and returns an Engine.
func New() (*Engine, error) {
	e := &Engine{}
	if _, err := e.Version(); err != nil {
		return nil, err
	}
	return e, nil
}

// call runs fn with the goroutine pinned to its OS thread, so that
// MXGetLastError (thread-local in libmxnet) reports the error from fn.
// Any engine-owned buffers returned by fn must be copied inside fn.
func (e *Engine) call(name string, fn func() C.int) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if status := fn(); status != 0 {
		return &engine.CallError{Call: name, Message: C.GoString(C.MXGetLastError())}
	}
	return nil
}

func (e *Engine) Version() (int, error) {
	var v C.int
	err := e.call("MXGetVersion", func() C.int {
		return C.MXGetVersion(&v)
	})
	return int(v), err
}

func (e *Engine) GPUCount() (int, error) {
	var n C.int
	err := e.call("MXGetGPUCount", func() C.int {
		return C.MXGetGPUCount(&n)
	})
	return int(n), err
}

func (e *Engine) GPUMemoryInfo(devID int) (uint64, uint64, error) {
	var free, total C.uint64_t
	err := e.call("MXGetGPUMemoryInformation64", func() C.int {
		return C.MXGetGPUMemoryInformation64(C.int(devID), &free, &total)
	})
	return uint64(free), uint64(total), err
}

func toC(h Handle) unsafe.Pointer {
	return unsafe.Pointer(uintptr(h))
}

func fromC(p unsafe.Pointer) Handle {
	return Handle(uintptr(p))
}

// cStrings holds C copies of Go strings. The copies stay valid until free
// is called, so they can be handed to a single engine call.
type cStrings []*C.char

func newCStrings(values []string) cStrings {
	out := make(cStrings, len(values))
	for i, v := range values {
		out[i] = C.CString(v)
	}
	return out
}

func (s cStrings) ptr() **C.char {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

func (s cStrings) free() {
	for i, p := range s {
		C.free(unsafe.Pointer(p))
		s[i] = nil
	}
}

// goStrings copies n engine-owned C strings.
func goStrings(p **C.char, n C.mx_uint) []string {
	if n == 0 || p == nil {
		return nil
	}
	out := make([]string, int(n))
	for i, s := range unsafe.Slice(p, int(n)) {
		out[i] = C.GoString(s)
	}
	return out
}

// handleArray is a C-allocated array of handles, used where the engine
// takes a pointer to an array that it may also write through.
type handleArray struct {
	p *unsafe.Pointer
	n int
}

func newHandleArray(handles []Handle) *handleArray {
	if len(handles) == 0 {
		return &handleArray{}
	}
	p := (*unsafe.Pointer)(C.malloc(C.size_t(len(handles)) * C.size_t(unsafe.Sizeof(uintptr(0)))))
	s := unsafe.Slice(p, len(handles))
	for i, h := range handles {
		s[i] = toC(h)
	}
	return &handleArray{p: p, n: len(handles)}
}

func (a *handleArray) handles() []Handle {
	return copyHandles(a.p, a.n)
}

func (a *handleArray) free() {
	if a.p == nil {
		return
	}
	C.free(unsafe.Pointer(a.p))
	a.p = nil
}

func copyHandles(p *unsafe.Pointer, n int) []Handle {
	if p == nil || n == 0 {
		return nil
	}
	out := make([]Handle, n)
	for i, h := range unsafe.Slice(p, n) {
		out[i] = fromC(h)
	}
	return out
}
