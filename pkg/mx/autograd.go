package mx

import "fmt"

// RecordingStateScope overrides the engine's recording and training flags
// until Close is called. Close restores only the flags the scope changed, so
// nested scopes unwind in stack order.
//
// The flags are process-wide engine state. Scopes entered concurrently from
// different goroutines race, and the last writer wins.
type RecordingStateScope struct {
	rt *Runtime

	restoreRecording bool
	prevRecording    bool
	restoreTraining  bool
	prevTraining     bool

	closed bool
}

// NewRecordingStateScope sets each flag that is non-nil and returns a scope
// that restores them.
func (r *Runtime) NewRecordingStateScope(isRecord, trainMode *bool) (*RecordingStateScope, error) {
	s := &RecordingStateScope{rt: r}
	if isRecord != nil {
		prev, err := r.engine.SetRecording(*isRecord)
		if err != nil {
			return nil, fmt.Errorf("setting recording to %t: %w", *isRecord, err)
		}
		s.prevRecording = prev
		s.restoreRecording = prev != *isRecord
	}
	if trainMode != nil {
		prev, err := r.engine.SetTraining(*trainMode)
		if err != nil {
			err = fmt.Errorf("setting training to %t: %w", *trainMode, err)
			if cerr := s.Close(); cerr != nil {
				r.log.Error(cerr, "restoring recording state")
			}
			return nil, err
		}
		s.prevTraining = prev
		s.restoreTraining = prev != *trainMode
	}
	return s, nil
}

// Record turns on recording and training.
func (r *Runtime) Record() (*RecordingStateScope, error) {
	return r.NewRecordingStateScope(ptr(true), ptr(true))
}

// Pause turns off recording and training.
func (r *Runtime) Pause() (*RecordingStateScope, error) {
	return r.NewRecordingStateScope(ptr(false), ptr(false))
}

// TrainMode turns on training, leaving recording as it is.
func (r *Runtime) TrainMode() (*RecordingStateScope, error) {
	return r.NewRecordingStateScope(nil, ptr(true))
}

// PredictMode turns off training, leaving recording as it is.
func (r *Runtime) PredictMode() (*RecordingStateScope, error) {
	return r.NewRecordingStateScope(nil, ptr(false))
}

func ptr[T any](v T) *T {
	return &v
}

// Close restores the flags. Calls after the first do nothing.
func (s *RecordingStateScope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if s.restoreTraining {
		if _, err := s.rt.engine.SetTraining(s.prevTraining); err != nil {
			firstErr = fmt.Errorf("restoring training to %t: %w", s.prevTraining, err)
		}
	}
	if s.restoreRecording {
		if _, err := s.rt.engine.SetRecording(s.prevRecording); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("restoring recording to %t: %w", s.prevRecording, err)
		}
	}
	return firstErr
}

// WithScope enters a scope with enter, for example r.Record, runs fn and
// then closes the scope, including when fn panics.
func (r *Runtime) WithScope(enter func() (*RecordingStateScope, error), fn func() error) (err error) {
	s, err := enter()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn()
}

func (r *Runtime) IsRecording() (bool, error) {
	return r.engine.IsRecording()
}

func (r *Runtime) IsTraining() (bool, error) {
	return r.engine.IsTraining()
}
