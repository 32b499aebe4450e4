package params

import (
	"context"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/justinsb/mxnet-go/pkg/engine/fallback"
	"github.com/justinsb/mxnet-go/pkg/mx"
	"github.com/nlpodyssey/safetensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func newTestRuntime(t *testing.T) (*mx.Runtime, *fallback.Engine) {
	t.Helper()
	e := fallback.New()
	return mx.New(e), e
}

func newArray(t *testing.T, rt *mx.Runtime, shape []uint32, values ...float32) *mx.NDArray {
	t.Helper()
	a, err := rt.NewNDArrayBuilder().Data(values).Shape(shape...).Create()
	require.NoError(t, err)
	return a
}

func requireValues(t *testing.T, set *Set, name string, shape mx.Shape, expected ...float32) {
	t.Helper()
	a, ok := set.Get(name)
	require.True(t, ok, "missing parameter %q", name)

	gotShape, err := a.Shape()
	require.NoError(t, err)
	assert.Equal(t, shape, gotShape, "shape of %q", name)

	values, err := a.Values()
	require.NoError(t, err)
	assert.InDeltaSlice(t, expected, values, 1e-3, "values of %q", name)
}

func TestNativeRoundTrip(t *testing.T) {
	rt, e := newTestRuntime(t)

	set := NewSet()
	set.Add("fc1_weight", newArray(t, rt, []uint32{2, 2}, 1, 2, 3, 4))
	set.Add("fc1_bias", newArray(t, rt, []uint32{2}, 0.5, -0.5))

	path := filepath.Join(t.TempDir(), "model.params")
	require.NoError(t, Save(rt, path, set))
	set.Free()
	assert.Equal(t, 0, e.Stats().LiveArrays())

	loaded, err := Load(rt, path)
	require.NoError(t, err)
	defer loaded.Free()

	assert.Equal(t, []string{"fc1_bias", "fc1_weight"}, loaded.Names())
	requireValues(t, loaded, "fc1_weight", mx.Shape{2, 2}, 1, 2, 3, 4)
	requireValues(t, loaded, "fc1_bias", mx.Shape{2}, 0.5, -0.5)
}

func TestLoadMissingFile(t *testing.T) {
	rt, _ := newTestRuntime(t)
	_, err := Load(rt, filepath.Join(t.TempDir(), "missing.params"))
	require.Error(t, err)
}

func TestSetReplaceFreesOld(t *testing.T) {
	rt, e := newTestRuntime(t)

	set := NewSet()
	set.Add("w", newArray(t, rt, []uint32{1}, 1))
	set.Add("w", newArray(t, rt, []uint32{1}, 2))
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, 1, e.Stats().LiveArrays())

	set.Free()
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 0, e.Stats().LiveArrays())
}

func tensorView(t *testing.T, dtype safetensors.DType, shape []uint64, data []byte) safetensors.TensorView {
	t.Helper()
	v, err := safetensors.NewTensorView(dtype, shape, data)
	require.NoError(t, err)
	return v
}

func TestLoadSafetensors(t *testing.T) {
	rt, e := newTestRuntime(t)
	le := binary.LittleEndian

	var f32 []byte
	for _, v := range []float32{1.5, -2, 3.25} {
		f32 = le.AppendUint32(f32, math.Float32bits(v))
	}
	var f16 []byte
	for _, v := range []float32{0.5, 2} {
		f16 = le.AppendUint16(f16, float16.Fromfloat32(v).Bits())
	}
	var bf16 []byte
	for _, v := range []float32{1, -4} {
		bf16 = le.AppendUint16(bf16, uint16(math.Float32bits(v)>>16))
	}
	var i64 []byte
	for _, v := range []int64{-3, 7, 11, 0} {
		i64 = le.AppendUint64(i64, uint64(v))
	}

	data, err := safetensors.Serialize(map[string]safetensors.TensorView{
		"f32":  tensorView(t, safetensors.F32, []uint64{3}, f32),
		"f16":  tensorView(t, safetensors.F16, []uint64{2, 1}, f16),
		"bf16": tensorView(t, safetensors.BF16, []uint64{2}, bf16),
		"i64":  tensorView(t, safetensors.I64, []uint64{2, 2}, i64),
		"u8":   tensorView(t, safetensors.U8, []uint64{3}, []byte{0, 128, 255}),
	}, map[string]string{"format": "mx"})
	require.NoError(t, err)

	infos, err := InspectSafetensors(data)
	require.NoError(t, err)
	assert.Len(t, infos, 5)

	set, err := LoadSafetensors(context.Background(), rt, data, mx.CPU())
	require.NoError(t, err)

	requireValues(t, set, "f32", mx.Shape{3}, 1.5, -2, 3.25)
	requireValues(t, set, "f16", mx.Shape{2, 1}, 0.5, 2)
	requireValues(t, set, "bf16", mx.Shape{2}, 1, -4)
	requireValues(t, set, "i64", mx.Shape{2, 2}, -3, 7, 11, 0)
	requireValues(t, set, "u8", mx.Shape{3}, 0, 128, 255)

	set.Free()
	assert.Equal(t, 0, e.Stats().LiveArrays())
}

func TestSafetensorsRoundTrip(t *testing.T) {
	rt, _ := newTestRuntime(t)

	set := NewSet()
	set.Add("a", newArray(t, rt, []uint32{2, 3}, 1, 2, 3, 4, 5, 6))
	set.Add("b", newArray(t, rt, []uint32{1}, 42))
	defer set.Free()

	data, err := SaveSafetensors(set, nil)
	require.NoError(t, err)

	infos, err := InspectSafetensors(data)
	require.NoError(t, err)
	byName := map[string]TensorInfo{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	assert.Equal(t, "F32", byName["a"].DType)
	assert.Equal(t, []uint64{2, 3}, byName["a"].Shape)

	loaded, err := LoadSafetensors(context.Background(), rt, data, mx.CPU())
	require.NoError(t, err)
	defer loaded.Free()

	requireValues(t, loaded, "a", mx.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	requireValues(t, loaded, "b", mx.Shape{1}, 42)
}

func TestLoadSafetensorsRejectsGarbage(t *testing.T) {
	rt, e := newTestRuntime(t)

	_, err := LoadSafetensors(context.Background(), rt, []byte("not a safetensors file"), mx.CPU())
	require.Error(t, err)
	assert.Equal(t, 0, e.Stats().ArraysAllocated)
}
