//go:build mxnet

package mxnet

// #include <stdlib.h>
// #include <stdbool.h>
// #include "mxnet/c_api.h"
import "C"

import (
	"fmt"
	"unsafe"
)

func boolToInt(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func (e *Engine) CreateNone() (Handle, error) {
	var out C.NDArrayHandle
	err := e.call("MXNDArrayCreateNone", func() C.int {
		return C.MXNDArrayCreateNone(&out)
	})
	if err != nil {
		return 0, err
	}
	return fromC(out), nil
}

func (e *Engine) Create(shape []uint32, devType, devID int, delayAlloc bool, dtype int) (Handle, error) {
	var pshape *C.mx_uint
	if len(shape) != 0 {
		pshape = (*C.mx_uint)(unsafe.Pointer(&shape[0]))
	}
	var out C.NDArrayHandle
	err := e.call("MXNDArrayCreateEx", func() C.int {
		return C.MXNDArrayCreateEx(pshape, C.mx_uint(len(shape)), C.int(devType), C.int(devID), boolToInt(delayAlloc), C.int(dtype), &out)
	})
	if err != nil {
		return 0, err
	}
	return fromC(out), nil
}

func (e *Engine) Free(h Handle) error {
	return e.call("MXNDArrayFree", func() C.int {
		return C.MXNDArrayFree(C.NDArrayHandle(toC(h)))
	})
}

func (e *Engine) Shape(h Handle) ([]uint32, error) {
	var shape []uint32
	err := e.call("MXNDArrayGetShape", func() C.int {
		var ndim C.mx_uint
		var pdata *C.mx_uint
		if status := C.MXNDArrayGetShape(C.NDArrayHandle(toC(h)), &ndim, &pdata); status != 0 {
			return status
		}
		// pdata points into a thread-local engine buffer.
		if ndim != 0 && pdata != nil {
			shape = make([]uint32, int(ndim))
			copy(shape, unsafe.Slice((*uint32)(unsafe.Pointer(pdata)), int(ndim)))
		}
		return 0
	})
	return shape, err
}

func (e *Engine) DType(h Handle) (int, error) {
	var dtype C.int
	err := e.call("MXNDArrayGetDType", func() C.int {
		return C.MXNDArrayGetDType(C.NDArrayHandle(toC(h)), &dtype)
	})
	return int(dtype), err
}

func (e *Engine) Device(h Handle) (int, int, error) {
	var devType, devID C.int
	err := e.call("MXNDArrayGetContext", func() C.int {
		return C.MXNDArrayGetContext(C.NDArrayHandle(toC(h)), &devType, &devID)
	})
	return int(devType), int(devID), err
}

func (e *Engine) CopyFromHost(h Handle, data []float32) error {
	if len(data) == 0 {
		return fmt.Errorf("copy from host: no data")
	}
	return e.call("MXNDArraySyncCopyFromCPU", func() C.int {
		return C.MXNDArraySyncCopyFromCPU(C.NDArrayHandle(toC(h)), unsafe.Pointer(&data[0]), C.size_t(len(data)))
	})
}

func (e *Engine) CopyToHost(h Handle, data []float32) error {
	if len(data) == 0 {
		return nil
	}
	return e.call("MXNDArraySyncCopyToCPU", func() C.int {
		return C.MXNDArraySyncCopyToCPU(C.NDArrayHandle(toC(h)), unsafe.Pointer(&data[0]), C.size_t(len(data)))
	})
}

func (e *Engine) WaitToRead(h Handle) error {
	return e.call("MXNDArrayWaitToRead", func() C.int {
		return C.MXNDArrayWaitToRead(C.NDArrayHandle(toC(h)))
	})
}

func (e *Engine) WaitToWrite(h Handle) error {
	return e.call("MXNDArrayWaitToWrite", func() C.int {
		return C.MXNDArrayWaitToWrite(C.NDArrayHandle(toC(h)))
	})
}

func (e *Engine) WaitAll() error {
	return e.call("MXNDArrayWaitAll", func() C.int {
		return C.MXNDArrayWaitAll()
	})
}

func (e *Engine) Save(path string, handles []Handle, keys []string) error {
	if len(keys) != 0 && len(keys) != len(handles) {
		return fmt.Errorf("saving %q: %d keys for %d arrays", path, len(keys), len(handles))
	}
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	ckeys := newCStrings(keys)
	defer ckeys.free()
	args := newHandleArray(handles)
	defer args.free()

	return e.call("MXNDArraySave", func() C.int {
		return C.MXNDArraySave(cpath, C.mx_uint(len(handles)), (*C.NDArrayHandle)(unsafe.Pointer(args.p)), ckeys.ptr())
	})
}

func (e *Engine) Load(path string) ([]Handle, []string, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var handles []Handle
	var names []string
	err := e.call("MXNDArrayLoad", func() C.int {
		var n, nNames C.mx_uint
		var arr *C.NDArrayHandle
		var pnames **C.char
		if status := C.MXNDArrayLoad(cpath, &n, &arr, &nNames, &pnames); status != 0 {
			return status
		}
		handles = copyHandles((*unsafe.Pointer)(unsafe.Pointer(arr)), int(n))
		names = goStrings(pnames, nNames)
		return 0
	})
	if err != nil {
		return nil, nil, err
	}
	return handles, names, nil
}
