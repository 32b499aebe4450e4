//go:build mxnet

package main

import (
	"github.com/justinsb/mxnet-go/pkg/engine"
	"github.com/justinsb/mxnet-go/pkg/engine/mxnet"
)

func newNativeEngine() (engine.Engine, error) {
	e, err := mxnet.New()
	if err != nil {
		return nil, err
	}
	return e, nil
}
