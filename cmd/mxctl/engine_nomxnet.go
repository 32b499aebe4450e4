//go:build !mxnet

package main

import (
	"fmt"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

func newNativeEngine() (engine.Engine, error) {
	return nil, fmt.Errorf("mxctl was built without libmxnet; rebuild with -tags mxnet or use --engine=fallback")
}
