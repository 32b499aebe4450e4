//go:build mxnet

package mxnet

// #include <stdbool.h>
// #include "mxnet/c_api.h"
import "C"

func (e *Engine) SetRecording(recording bool) (bool, error) {
	var prev C.int
	err := e.call("MXAutogradSetIsRecording", func() C.int {
		return C.MXAutogradSetIsRecording(boolToInt(recording), &prev)
	})
	return prev != 0, err
}

func (e *Engine) SetTraining(training bool) (bool, error) {
	var prev C.int
	err := e.call("MXAutogradSetIsTraining", func() C.int {
		return C.MXAutogradSetIsTraining(boolToInt(training), &prev)
	})
	return prev != 0, err
}

func (e *Engine) IsRecording() (bool, error) {
	var curr C.bool
	err := e.call("MXAutogradIsRecording", func() C.int {
		return C.MXAutogradIsRecording(&curr)
	})
	return bool(curr), err
}

func (e *Engine) IsTraining() (bool, error) {
	var curr C.bool
	err := e.call("MXAutogradIsTraining", func() C.int {
		return C.MXAutogradIsTraining(&curr)
	})
	return bool(curr), err
}
