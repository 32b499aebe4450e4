package mx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpMapLookups(t *testing.T) {
	rt, _ := newTestRuntime(t)
	m, err := rt.OpMap()
	require.NoError(t, err)

	first, err := m.SymbolCreator("_plus")
	require.NoError(t, err)
	second, err := m.SymbolCreator("_plus")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	op, err := m.OpHandle("_plus")
	require.NoError(t, err)
	assert.Equal(t, first, op)

	// _copyto is only in the operator handle table.
	copyTo, err := m.SymbolCreator("_copyto")
	require.NoError(t, err)
	copyToOp, err := m.OpHandle("_copyto")
	require.NoError(t, err)
	assert.Equal(t, copyToOp, copyTo)
	assert.True(t, m.IsComposable("_plus"))
	assert.False(t, m.IsComposable("_copyto"))

	_, err = m.SymbolCreator("not_an_op")
	require.ErrorContains(t, err, "not_an_op")
	_, err = m.OpHandle("also_not_an_op")
	require.ErrorContains(t, err, "also_not_an_op")
}

func TestOpMapDescribe(t *testing.T) {
	rt, e := newTestRuntime(t)
	m, err := rt.OpMap()
	require.NoError(t, err)

	info, err := m.Describe("_plus_scalar")
	require.NoError(t, err)
	assert.Equal(t, []string{"data", "scalar"}, info.ArgNames)

	// The cached description cannot be modified through a result.
	info.ArgNames[0] = "changed"
	info, err = m.Describe("_plus_scalar")
	require.NoError(t, err)
	assert.Equal(t, "data", info.ArgNames[0])

	calls := e.Stats().Calls["MXSymbolGetAtomicSymbolInfo"]
	info, err = m.Describe("_copyto")
	require.NoError(t, err)
	assert.Equal(t, []string{"data"}, info.ArgNames)
	assert.Equal(t, calls+1, e.Stats().Calls["MXSymbolGetAtomicSymbolInfo"])

	add, err := m.Describe("add_n")
	require.NoError(t, err)
	assert.Equal(t, "num_args", add.KeyVarNumArgs)
}

func TestOpMapNames(t *testing.T) {
	rt, _ := newTestRuntime(t)
	m, err := rt.OpMap()
	require.NoError(t, err)

	names := m.Names()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "_plus")
	assert.Contains(t, names, "_PlusScalar")
	assert.Contains(t, names, "_copyto")
}

func TestOpMapIsBuiltOnce(t *testing.T) {
	rt, e := newTestRuntime(t)

	const n = 16
	maps := make([]*OpMap, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := rt.OpMap()
			assert.NoError(t, err)
			maps[i] = m
		}()
	}
	wg.Wait()

	for _, m := range maps {
		assert.Same(t, maps[0], m)
	}
	stats := e.Stats()
	assert.Equal(t, 1, stats.Calls["MXSymbolListAtomicSymbolCreators"])
	assert.Equal(t, 1, stats.Calls["MXListAllOpNames"])
}

func TestOpMapBuildErrorIsKept(t *testing.T) {
	rt, e := newTestRuntime(t)
	e.InjectFailure("MXListAllOpNames", "engine not initialized")

	_, err := rt.OpMap()
	require.ErrorContains(t, err, "engine not initialized")
	_, err = rt.OpMap()
	require.ErrorContains(t, err, "engine not initialized")
	_, err = rt.NewOperator("_plus").Invoke()
	require.ErrorContains(t, err, "engine not initialized")

	assert.Equal(t, 1, e.Stats().Calls["MXListAllOpNames"])
}
