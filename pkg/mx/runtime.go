package mx

import (
	"sync"

	"github.com/justinsb/mxnet-go/pkg/engine"
	"k8s.io/klog/v2"
)

// Runtime binds values and operators to one engine. It owns the operator
// registry, which is built on first use.
type Runtime struct {
	engine engine.Engine
	log    klog.Logger

	opMapOnce sync.Once
	opMap     *OpMap
	opMapErr  error
}

type Option func(*Runtime)

// WithLogger sets the logger used for registry construction, operator
// invocation and release failures. The default is klog.Background().
func WithLogger(log klog.Logger) Option {
	return func(r *Runtime) {
		r.log = log
	}
}

func New(e engine.Engine, opts ...Option) *Runtime {
	r := &Runtime{
		engine: e,
		log:    klog.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runtime) Engine() engine.Engine {
	return r.engine
}

// OpMap returns the operator registry, building it on the first call. A
// construction error is returned to every caller.
func (r *Runtime) OpMap() (*OpMap, error) {
	r.opMapOnce.Do(func() {
		r.opMap, r.opMapErr = buildOpMap(r.engine, r.log)
	})
	return r.opMap, r.opMapErr
}

// WaitAll blocks until every pending engine operation has completed.
func (r *Runtime) WaitAll() error {
	return r.engine.WaitAll()
}

func (r *Runtime) NumGPUs() (int, error) {
	return r.engine.GPUCount()
}

// GPUMemoryInfo returns the free and total memory of a GPU, in bytes.
func (r *Runtime) GPUMemoryInfo(deviceID int) (free uint64, total uint64, err error) {
	return r.engine.GPUMemoryInfo(deviceID)
}
