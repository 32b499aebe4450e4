package mx

import (
	"testing"

	"github.com/justinsb/mxnet-go/pkg/engine/fallback"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) (*Runtime, *fallback.Engine) {
	t.Helper()
	e := fallback.New()
	return New(e), e
}

func newArray(t *testing.T, rt *Runtime, values ...float32) *NDArray {
	t.Helper()
	a, err := rt.NewNDArrayBuilder().Data(values).Create()
	require.NoError(t, err)
	t.Cleanup(a.Free)
	return a
}

func requireValues(t *testing.T, a *NDArray, expected ...float32) {
	t.Helper()
	values, err := a.Values()
	require.NoError(t, err)
	require.InDeltaSlice(t, expected, values, 1e-6)
}
