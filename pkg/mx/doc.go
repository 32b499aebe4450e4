// Package mx wraps engine handles in Go values.
//
// A Runtime binds an engine.Engine. Arrays and symbols created through it are
// holders of shared engine resources: Clone adds a holder, Free drops one,
// and the engine resource is released exactly once, when its last holder is
// freed or collected. Operators are built with NewOperator and invoked
// imperatively (Invoke, InvokeWith) or composed into graphs (CreateSymbol).
package mx
