package main

import (
	"context"
	"fmt"

	"github.com/justinsb/mxnet-go/pkg/engine"
	"github.com/justinsb/mxnet-go/pkg/engine/fallback"
	"github.com/justinsb/mxnet-go/pkg/mx"
	"k8s.io/klog/v2"
)

func (o *options) newRuntime(ctx context.Context) (*mx.Runtime, error) {
	log := klog.FromContext(ctx)

	var e engine.Engine
	switch o.engine {
	case "mxnet":
		native, err := newNativeEngine()
		if err != nil {
			return nil, err
		}
		e = native
	case "fallback":
		e = fallback.New()
	default:
		return nil, fmt.Errorf("unknown engine %q (expected mxnet or fallback)", o.engine)
	}

	version, err := e.Version()
	if err != nil {
		return nil, fmt.Errorf("getting engine version: %w", err)
	}
	log.V(2).Info("using engine", "engine", o.engine, "version", formatVersion(version))
	return mx.New(e, mx.WithLogger(log)), nil
}

// formatVersion renders the engine's encoded version, e.g. 10900 as 1.9.0.
func formatVersion(v int) string {
	return fmt.Sprintf("%d.%d.%d", v/10000, v/100%100, v%100)
}
