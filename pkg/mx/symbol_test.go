package mx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVariable(t *testing.T, rt *Runtime, name string) *Symbol {
	t.Helper()
	s, err := rt.Variable(name)
	require.NoError(t, err)
	t.Cleanup(s.Free)
	return s
}

func TestSymbolArithmetic(t *testing.T) {
	rt, _ := newTestRuntime(t)
	x := newVariable(t, rt, "x")
	y := newVariable(t, rt, "y")

	sum, err := x.Add(y)
	require.NoError(t, err)
	defer sum.Free()

	name, err := sum.Name()
	require.NoError(t, err)
	assert.Equal(t, "_plus0", name)

	args, err := sum.ListArguments()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, args)

	outputs, err := sum.ListOutputs()
	require.NoError(t, err)
	assert.Equal(t, []string{"_plus0_output"}, outputs)

	scaled, err := sum.MulScalar(2)
	require.NoError(t, err)
	defer scaled.Free()

	args, err = scaled.ListArguments()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, args)

	js, err := scaled.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, js, `"op":"_MulScalar"`)
	assert.Contains(t, js, `"scalar":"2"`)
}

func TestSymbolNamedInputs(t *testing.T) {
	rt, _ := newTestRuntime(t)
	x := newVariable(t, rt, "x")
	y := newVariable(t, rt, "y")

	diff, err := rt.NewOperator("_Minus").SetInput("rhs", x).SetInput("lhs", y).CreateSymbol("diff")
	require.NoError(t, err)
	defer diff.Free()

	name, err := diff.Name()
	require.NoError(t, err)
	assert.Equal(t, "diff", name)

	args, err := diff.ListArguments()
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, args)
}

func TestSymbolJSONRoundTrip(t *testing.T) {
	rt, _ := newTestRuntime(t)
	x := newVariable(t, rt, "x")

	s, err := x.AddScalar(1)
	require.NoError(t, err)
	defer s.Free()

	js, err := s.ToJSON()
	require.NoError(t, err)

	loaded, err := rt.SymbolFromJSON(js)
	require.NoError(t, err)
	defer loaded.Free()

	loadedJSON, err := loaded.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, js, loadedJSON)

	_, err = rt.SymbolFromJSON(`{"nodes":[{"op":"no_such_op","name":"n","inputs":[]}],"arg_nodes":[],"heads":[[0,0,0]]}`)
	require.ErrorContains(t, err, "no_such_op")

	cyclic := `{"nodes":[
		{"op":"_Plus","name":"a","inputs":[[1,0,0],[1,0,0]]},
		{"op":"_Plus","name":"b","inputs":[[0,0,0],[0,0,0]]}
	],"arg_nodes":[],"heads":[[0,0,0]]}`
	_, err = rt.SymbolFromJSON(cyclic)
	require.ErrorContains(t, err, "cycle")
}

func TestSymbolCloneAndCopy(t *testing.T) {
	rt, e := newTestRuntime(t)

	x, err := rt.Variable("x")
	require.NoError(t, err)

	clone := x.Clone()
	assert.Equal(t, x.Handle(), clone.Handle())

	copied, err := x.Copy()
	require.NoError(t, err)
	assert.NotEqual(t, x.Handle(), copied.Handle())

	x.Free()
	assert.Equal(t, 0, e.Stats().SymbolsReleased)
	clone.Free()
	assert.Equal(t, 1, e.Stats().SymbolsReleased)

	name, err := copied.Name()
	require.NoError(t, err)
	assert.Equal(t, "x", name)
	copied.Free()

	assert.Equal(t, 0, e.Stats().LiveSymbols())
}
