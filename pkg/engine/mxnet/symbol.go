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

func (e *Engine) CreateVariable(name string) (Handle, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var out C.SymbolHandle
	err := e.call("MXSymbolCreateVariable", func() C.int {
		return C.MXSymbolCreateVariable(cname, &out)
	})
	if err != nil {
		return 0, err
	}
	return fromC(out), nil
}

func (e *Engine) CreateAtomicSymbol(c Creator, keys, values []string) (Handle, error) {
	if len(keys) != len(values) {
		return 0, fmt.Errorf("creating atomic symbol: %d keys for %d values", len(keys), len(values))
	}
	ckeys := newCStrings(keys)
	defer ckeys.free()
	cvalues := newCStrings(values)
	defer cvalues.free()

	var out C.SymbolHandle
	err := e.call("MXSymbolCreateAtomicSymbol", func() C.int {
		return C.MXSymbolCreateAtomicSymbol(C.AtomicSymbolCreator(unsafe.Pointer(uintptr(c))), C.mx_uint(len(keys)), ckeys.ptr(), cvalues.ptr(), &out)
	})
	if err != nil {
		return 0, err
	}
	return fromC(out), nil
}

func (e *Engine) Compose(sym Handle, name string, keys []string, args []Handle) error {
	if len(keys) != 0 && len(keys) != len(args) {
		return fmt.Errorf("composing symbol: %d keys for %d args", len(keys), len(args))
	}
	var cname *C.char
	if name != "" {
		cname = C.CString(name)
		defer C.free(unsafe.Pointer(cname))
	}
	ckeys := newCStrings(keys)
	defer ckeys.free()
	cargs := newHandleArray(args)
	defer cargs.free()

	return e.call("MXSymbolCompose", func() C.int {
		return C.MXSymbolCompose(C.SymbolHandle(toC(sym)), cname, C.mx_uint(len(args)), ckeys.ptr(), (*C.SymbolHandle)(unsafe.Pointer(cargs.p)))
	})
}

func (e *Engine) FreeSymbol(h Handle) error {
	return e.call("MXSymbolFree", func() C.int {
		return C.MXSymbolFree(C.SymbolHandle(toC(h)))
	})
}

func (e *Engine) CopySymbol(h Handle) (Handle, error) {
	var out C.SymbolHandle
	err := e.call("MXSymbolCopy", func() C.int {
		return C.MXSymbolCopy(C.SymbolHandle(toC(h)), &out)
	})
	if err != nil {
		return 0, err
	}
	return fromC(out), nil
}

func (e *Engine) SymbolName(h Handle) (string, bool, error) {
	var name string
	var ok bool
	err := e.call("MXSymbolGetName", func() C.int {
		var out *C.char
		var success C.int
		if status := C.MXSymbolGetName(C.SymbolHandle(toC(h)), &out, &success); status != 0 {
			return status
		}
		if success != 0 && out != nil {
			name = C.GoString(out)
			ok = true
		}
		return 0
	})
	return name, ok, err
}

func (e *Engine) ListArguments(h Handle) ([]string, error) {
	var out []string
	err := e.call("MXSymbolListArguments", func() C.int {
		var n C.mx_uint
		var p **C.char
		if status := C.MXSymbolListArguments(C.SymbolHandle(toC(h)), &n, &p); status != 0 {
			return status
		}
		out = goStrings(p, n)
		return 0
	})
	return out, err
}

func (e *Engine) ListOutputs(h Handle) ([]string, error) {
	var out []string
	err := e.call("MXSymbolListOutputs", func() C.int {
		var n C.mx_uint
		var p **C.char
		if status := C.MXSymbolListOutputs(C.SymbolHandle(toC(h)), &n, &p); status != 0 {
			return status
		}
		out = goStrings(p, n)
		return 0
	})
	return out, err
}

func (e *Engine) SymbolToJSON(h Handle) (string, error) {
	var out string
	err := e.call("MXSymbolSaveToJSON", func() C.int {
		var p *C.char
		if status := C.MXSymbolSaveToJSON(C.SymbolHandle(toC(h)), &p); status != 0 {
			return status
		}
		out = C.GoString(p)
		return 0
	})
	return out, err
}

func (e *Engine) SymbolFromJSON(json string) (Handle, error) {
	cjson := C.CString(json)
	defer C.free(unsafe.Pointer(cjson))

	var out C.SymbolHandle
	err := e.call("MXSymbolCreateFromJSON", func() C.int {
		return C.MXSymbolCreateFromJSON(cjson, &out)
	})
	if err != nil {
		return 0, err
	}
	return fromC(out), nil
}
