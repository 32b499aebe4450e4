package fallback

import (
	"fmt"
	"sync"

	"github.com/justinsb/mxnet-go/pkg/engine"
)

type Handle = engine.Handle
type Creator = engine.Creator

// Version is reported by Engine.Version, encoded as the engine does
// (major*10000 + minor*100 + patch).
const Version = 10900

// Engine is an in-memory engine.Engine. It implements the small set of
// operators the bindings exercise and keeps count of every call, allocation
// and release so tests can check ownership.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	nextHandle Handle
	arrays     map[Handle]*array
	symbols    map[Handle]*symbol

	creators   []*creator
	byName     map[string]Creator
	autoNameID map[string]int

	recording bool
	training  bool

	failures map[string]string
	stats    Stats
}

var _ engine.Engine = (*Engine)(nil)

// Stats counts engine activity.
type Stats struct {
	ArraysAllocated  int
	ArraysReleased   int
	SymbolsAllocated int
	SymbolsReleased  int

	// Calls counts invocations of each primitive, keyed by the C API name.
	Calls map[string]int
}

// LiveArrays is the number of allocated arrays not yet released.
func (s Stats) LiveArrays() int {
	return s.ArraysAllocated - s.ArraysReleased
}

// LiveSymbols is the number of allocated symbols not yet released.
func (s Stats) LiveSymbols() int {
	return s.SymbolsAllocated - s.SymbolsReleased
}

// TotalCalls sums Calls.
func (s Stats) TotalCalls() int {
	n := 0
	for _, v := range s.Calls {
		n += v
	}
	return n
}

func New() *Engine {
	e := &Engine{
		arrays:     make(map[Handle]*array),
		symbols:    make(map[Handle]*symbol),
		byName:     make(map[string]Creator),
		autoNameID: make(map[string]int),
		failures:   make(map[string]string),
		stats:      Stats{Calls: make(map[string]int)},
	}
	e.registerOperators()
	return e
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stats
	s.Calls = make(map[string]int, len(e.stats.Calls))
	for k, v := range e.stats.Calls {
		s.Calls[k] = v
	}
	return s
}

// InjectFailure makes the next call to the named primitive (for example
// "MXNDArrayFree") fail with message as the engine's last error.
func (e *Engine) InjectFailure(call string, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[call] = message
}

// enter records a call to the named primitive. It must be called with e.mu
// held, and returns the injected failure for the call, if any.
func (e *Engine) enter(call string) error {
	e.stats.Calls[call]++
	if msg, ok := e.failures[call]; ok {
		delete(e.failures, call)
		return &engine.CallError{Call: call, Message: msg}
	}
	return nil
}

func (e *Engine) newHandle() Handle {
	// Handles are spaced like pointers so they never collide with small
	// integers that a caller might confuse for one.
	e.nextHandle += 0x10
	return 0x1000 + e.nextHandle
}

func callError(call string, format string, args ...any) error {
	return &engine.CallError{Call: call, Message: fmt.Sprintf(format, args...)}
}

func (e *Engine) Version() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("MXGetVersion"); err != nil {
		return 0, err
	}
	return Version, nil
}

func (e *Engine) GPUCount() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("MXGetGPUCount"); err != nil {
		return 0, err
	}
	return 0, nil
}

func (e *Engine) GPUMemoryInfo(devID int) (uint64, uint64, error) {
	const call = "MXGetGPUMemoryInformation64"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return 0, 0, err
	}
	return 0, 0, callError(call, "no GPU device %d", devID)
}

func (e *Engine) SetRecording(recording bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("MXAutogradSetIsRecording"); err != nil {
		return false, err
	}
	prev := e.recording
	e.recording = recording
	return prev, nil
}

func (e *Engine) SetTraining(training bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("MXAutogradSetIsTraining"); err != nil {
		return false, err
	}
	prev := e.training
	e.training = training
	return prev, nil
}

func (e *Engine) IsRecording() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("MXAutogradIsRecording"); err != nil {
		return false, err
	}
	return e.recording, nil
}

func (e *Engine) IsTraining() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("MXAutogradIsTraining"); err != nil {
		return false, err
	}
	return e.training, nil
}
