//go:build mxnet

package mxnet

// #include <stdlib.h>
// #include <stdbool.h>
// #include "mxnet/c_api.h"
// #include "nnvm/c_api.h"
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

func creatorToC(c Creator) C.AtomicSymbolCreator {
	return C.AtomicSymbolCreator(unsafe.Pointer(uintptr(c)))
}

func (e *Engine) ListCreators() ([]Creator, error) {
	var out []Creator
	err := e.call("MXSymbolListAtomicSymbolCreators", func() C.int {
		var n C.mx_uint
		var arr *C.AtomicSymbolCreator
		if status := C.MXSymbolListAtomicSymbolCreators(&n, &arr); status != 0 {
			return status
		}
		if n == 0 || arr == nil {
			return 0
		}
		out = make([]Creator, int(n))
		for i, c := range unsafe.Slice(arr, int(n)) {
			out[i] = Creator(uintptr(unsafe.Pointer(c)))
		}
		return 0
	})
	return out, err
}

func (e *Engine) CreatorInfo(c Creator) (*engine.CreatorInfo, error) {
	info := &engine.CreatorInfo{}
	err := e.call("MXSymbolGetAtomicSymbolInfo", func() C.int {
		var name, description, keyVarNumArgs, returnType *C.char
		var numArgs C.mx_uint
		var argNames, argTypes, argDescriptions **C.char
		status := C.MXSymbolGetAtomicSymbolInfo(creatorToC(c),
			&name, &description, &numArgs,
			&argNames, &argTypes, &argDescriptions,
			&keyVarNumArgs, &returnType)
		if status != 0 {
			return status
		}
		info.Name = C.GoString(name)
		info.Description = C.GoString(description)
		info.ArgNames = goStrings(argNames, numArgs)
		info.ArgTypes = goStrings(argTypes, numArgs)
		info.ArgDescriptions = goStrings(argDescriptions, numArgs)
		if keyVarNumArgs != nil {
			info.KeyVarNumArgs = C.GoString(keyVarNumArgs)
		}
		if returnType != nil {
			info.ReturnType = C.GoString(returnType)
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (e *Engine) ListOpNames() ([]string, error) {
	var out []string
	err := e.call("MXListAllOpNames", func() C.int {
		var n C.mx_uint
		var p **C.char
		if status := C.MXListAllOpNames(&n, &p); status != 0 {
			return status
		}
		out = goStrings(p, n)
		return 0
	})
	return out, err
}

func (e *Engine) OpHandle(name string) (Creator, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var out C.OpHandle
	err := e.call("NNGetOpHandle", func() C.int {
		return C.NNGetOpHandle(cname, &out)
	})
	if err != nil {
		return 0, err
	}
	return Creator(uintptr(unsafe.Pointer(out))), nil
}

func (e *Engine) ImperativeInvoke(c Creator, inputs []Handle, outputs []Handle, keys, values []string) ([]Handle, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("invoking operator: %d keys for %d values", len(keys), len(values))
	}
	// The key and value copies must outlive the call below.
	ckeys := newCStrings(keys)
	defer ckeys.free()
	cvalues := newCStrings(values)
	defer cvalues.free()

	cinputs := newHandleArray(inputs)
	defer cinputs.free()
	coutputs := newHandleArray(outputs)
	defer coutputs.free()

	var result []Handle
	err := e.call("MXImperativeInvoke", func() C.int {
		numOutputs := C.int(len(outputs))
		// Null with zero outputs asks the engine to allocate them.
		receiver := (*C.NDArrayHandle)(unsafe.Pointer(coutputs.p))
		status := C.MXImperativeInvoke(creatorToC(c),
			C.int(len(inputs)), (*C.NDArrayHandle)(unsafe.Pointer(cinputs.p)),
			&numOutputs, &receiver,
			C.int(len(keys)), ckeys.ptr(), cvalues.ptr())
		if status != 0 {
			return status
		}
		if len(outputs) != 0 {
			result = coutputs.handles()
			return 0
		}
		// receiver now points at an engine-owned, thread-local array.
		result = copyHandles((*unsafe.Pointer)(unsafe.Pointer(receiver)), int(numOutputs))
		return 0
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
