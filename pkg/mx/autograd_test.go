package mx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFlags(t *testing.T, rt *Runtime, recording, training bool) {
	t.Helper()
	isRecording, err := rt.IsRecording()
	require.NoError(t, err)
	isTraining, err := rt.IsTraining()
	require.NoError(t, err)
	assert.Equal(t, recording, isRecording, "recording")
	assert.Equal(t, training, isTraining, "training")
}

func TestNestedScopesRestore(t *testing.T) {
	rt, e := newTestRuntime(t)
	_, err := e.SetRecording(true)
	require.NoError(t, err)

	outer, err := rt.NewRecordingStateScope(ptr(false), nil)
	require.NoError(t, err)
	requireFlags(t, rt, false, false)

	inner, err := rt.NewRecordingStateScope(ptr(true), nil)
	require.NoError(t, err)
	requireFlags(t, rt, true, false)

	require.NoError(t, inner.Close())
	requireFlags(t, rt, false, false)

	require.NoError(t, outer.Close())
	requireFlags(t, rt, true, false)
}

func TestScopeOnlyRestoresWhatItChanged(t *testing.T) {
	rt, _ := newTestRuntime(t)

	outer, err := rt.Record()
	require.NoError(t, err)
	requireFlags(t, rt, true, true)

	// Nothing changes, so closing must not turn recording back off.
	inner, err := rt.Record()
	require.NoError(t, err)
	require.NoError(t, inner.Close())
	requireFlags(t, rt, true, true)

	require.NoError(t, outer.Close())
	requireFlags(t, rt, false, false)

	// Close is idempotent.
	require.NoError(t, outer.Close())
	requireFlags(t, rt, false, false)
}

func TestConvenienceScopes(t *testing.T) {
	rt, _ := newTestRuntime(t)

	record, err := rt.Record()
	require.NoError(t, err)

	pause, err := rt.Pause()
	require.NoError(t, err)
	requireFlags(t, rt, false, false)

	train, err := rt.TrainMode()
	require.NoError(t, err)
	requireFlags(t, rt, false, true)

	predict, err := rt.PredictMode()
	require.NoError(t, err)
	requireFlags(t, rt, false, false)

	require.NoError(t, predict.Close())
	requireFlags(t, rt, false, true)
	require.NoError(t, train.Close())
	requireFlags(t, rt, false, false)
	require.NoError(t, pause.Close())
	requireFlags(t, rt, true, true)
	require.NoError(t, record.Close())
	requireFlags(t, rt, false, false)
}

func TestWithScopeRestoresOnErrorAndPanic(t *testing.T) {
	rt, _ := newTestRuntime(t)

	errStop := errors.New("stop")
	err := rt.WithScope(rt.Record, func() error {
		requireFlags(t, rt, true, true)
		return errStop
	})
	require.ErrorIs(t, err, errStop)
	requireFlags(t, rt, false, false)

	assert.Panics(t, func() {
		_ = rt.WithScope(rt.TrainMode, func() error {
			panic("boom")
		})
	})
	requireFlags(t, rt, false, false)
}

func TestScopeEntryFailureRestoresRecording(t *testing.T) {
	rt, e := newTestRuntime(t)
	e.InjectFailure("MXAutogradSetIsTraining", "not supported")

	_, err := rt.Record()
	require.ErrorContains(t, err, "not supported")
	requireFlags(t, rt, false, false)
}
