package mx

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/justinsb/mxnet-go/pkg/engine"
	"k8s.io/klog/v2"
)

// blob owns one engine handle. It is shared by any number of refs and
// releases the handle when the last ref is dropped.
type blob struct {
	kind    string
	h       engine.Handle
	release func(engine.Handle) error
	log     klog.Logger

	refs atomic.Int64
}

// newBlob takes ownership of h and returns its first holder's ref.
func newBlob(kind string, h engine.Handle, release func(engine.Handle) error, log klog.Logger) *ref {
	b := &blob{kind: kind, h: h, release: release, log: log}
	b.refs.Store(1)
	return &ref{b: b}
}

func (b *blob) handle() engine.Handle {
	return b.h
}

// newRef registers another holder of b. Once the count has reached zero the
// handle is gone for good, so the returned ref is already dropped.
func (b *blob) newRef() *ref {
	r := &ref{b: b}
	for {
		n := b.refs.Load()
		if n <= 0 {
			r.freed.Store(true)
			return r
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return r
		}
	}
}

func (b *blob) unref() {
	n := b.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic(fmt.Sprintf("%s handle %#x released more than once", b.kind, uintptr(b.h)))
	}

	b.log.V(4).Info("releasing engine handle", "kind", b.kind, "handle", uintptr(b.h))
	if err := b.release(b.h); err != nil {
		// The engine's view of its resources no longer matches ours.
		b.log.Error(err, "failed to release engine handle", "kind", b.kind, "handle", uintptr(b.h))
		panic(fmt.Errorf("releasing %s handle %#x: %w", b.kind, uintptr(b.h), err))
	}
}

// ref is one holder's share of a blob. It is dropped at most once, either
// explicitly or by a cleanup when the holder becomes unreachable.
type ref struct {
	b     *blob
	freed atomic.Bool
}

func (r *ref) handle() engine.Handle {
	if r.freed.Load() {
		return 0
	}
	return r.b.handle()
}

// clone returns a ref for a new holder. Cloning a dropped ref yields a
// dropped ref.
func (r *ref) clone() *ref {
	if r.freed.Load() {
		d := &ref{b: r.b}
		d.freed.Store(true)
		return d
	}
	return r.b.newRef()
}

func (r *ref) drop() {
	if r.freed.CompareAndSwap(false, true) {
		r.b.unref()
	}
}

// track arranges for r to be dropped once holder is unreachable.
func track[T any](holder *T, r *ref) {
	runtime.AddCleanup(holder, func(r *ref) {
		r.drop()
	}, r)
}
