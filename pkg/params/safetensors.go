package params

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/d4l3k/go-bfloat16"
	"github.com/justinsb/mxnet-go/pkg/mx"
	"github.com/nlpodyssey/safetensors"
	"github.com/x448/float16"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// TensorInfo describes one tensor stored in a file.
type TensorInfo struct {
	Name  string
	DType string
	Shape []uint64
}

// InspectSafetensors lists the tensors in a safetensors file without
// creating any arrays.
func InspectSafetensors(data []byte) ([]TensorInfo, error) {
	st, err := safetensors.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing safetensors: %w", err)
	}
	var infos []TensorInfo
	for _, t := range st.Tensors() {
		infos = append(infos, TensorInfo{
			Name:  t.Name,
			DType: t.TensorView.DType().String(),
			Shape: t.TensorView.Shape(),
		})
	}
	return infos, nil
}

// LoadSafetensors creates a float32 array on dev for every tensor in data.
// Tensors are converted to float32 in parallel; arrays are created in file
// order.
func LoadSafetensors(ctx context.Context, rt *mx.Runtime, data []byte, dev mx.Context) (*Set, error) {
	log := klog.FromContext(ctx)
	startedAt := time.Now()

	st, err := safetensors.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing safetensors: %w", err)
	}
	tensors := st.Tensors()

	decoded := make([][]float32, len(tensors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, t := range tensors {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			values, err := decodeFloat32(t.TensorView.DType(), t.TensorView.Data())
			if err != nil {
				return fmt.Errorf("decoding tensor %q: %w", t.Name, err)
			}
			decoded[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := NewSet()
	for i, t := range tensors {
		shape, err := toShape(t.TensorView.Shape())
		if err != nil {
			set.Free()
			return nil, fmt.Errorf("tensor %q: %w", t.Name, err)
		}
		if len(shape) == 0 {
			shape = []uint32{uint32(len(decoded[i]))}
		}
		a, err := rt.NewNDArrayBuilder().Data(decoded[i]).Shape(shape...).Context(dev).Create()
		if err != nil {
			set.Free()
			return nil, fmt.Errorf("creating array for tensor %q: %w", t.Name, err)
		}
		set.Add(t.Name, a)
	}

	log.Info("loaded safetensors", "tensors", len(tensors), "bytes", len(data), "context", dev, "duration", time.Since(startedAt))
	return set, nil
}

// SaveSafetensors encodes every array in the set as an F32 tensor.
func SaveSafetensors(set *Set, metadata map[string]string) ([]byte, error) {
	views := make(map[string]safetensors.TensorView, set.Len())
	for _, name := range set.Names() {
		a, _ := set.Get(name)
		shape, err := a.Shape()
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		values, err := a.Values()
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}

		dims := make([]uint64, len(shape))
		for i, d := range shape {
			dims[i] = uint64(d)
		}
		buf := make([]byte, 0, 4*len(values))
		for _, v := range values {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
		view, err := safetensors.NewTensorView(safetensors.F32, dims, buf)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		views[name] = view
	}
	data, err := safetensors.Serialize(views, metadata)
	if err != nil {
		return nil, fmt.Errorf("serializing safetensors: %w", err)
	}
	return data, nil
}

func toShape(dims []uint64) ([]uint32, error) {
	shape := make([]uint32, len(dims))
	for i, d := range dims {
		if d > math.MaxUint32 {
			return nil, fmt.Errorf("dimension %d is too large (%d)", i, d)
		}
		shape[i] = uint32(d)
	}
	return shape, nil
}

func decodeFloat32(dtype safetensors.DType, data []byte) ([]float32, error) {
	size := int(dtype.Size())
	if size == 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of %v elements", len(data), dtype)
	}
	n := len(data) / size
	out := make([]float32, n)

	le := binary.LittleEndian
	switch dtype {
	case safetensors.F32:
		for i := range out {
			out[i] = math.Float32frombits(le.Uint32(data[4*i:]))
		}
	case safetensors.F64:
		for i := range out {
			out[i] = float32(math.Float64frombits(le.Uint64(data[8*i:])))
		}
	case safetensors.F16:
		for i := range out {
			out[i] = float16.Frombits(le.Uint16(data[2*i:])).Float32()
		}
	case safetensors.BF16:
		out = bfloat16.DecodeFloat32(data)
	case safetensors.BOOL, safetensors.U8:
		for i, b := range data {
			out[i] = float32(b)
		}
	case safetensors.I8:
		for i, b := range data {
			out[i] = float32(int8(b))
		}
	case safetensors.I16:
		for i := range out {
			out[i] = float32(int16(le.Uint16(data[2*i:])))
		}
	case safetensors.U16:
		for i := range out {
			out[i] = float32(le.Uint16(data[2*i:]))
		}
	case safetensors.I32:
		for i := range out {
			out[i] = float32(int32(le.Uint32(data[4*i:])))
		}
	case safetensors.U32:
		for i := range out {
			out[i] = float32(le.Uint32(data[4*i:]))
		}
	case safetensors.I64:
		for i := range out {
			out[i] = float32(int64(le.Uint64(data[8*i:])))
		}
	case safetensors.U64:
		for i := range out {
			out[i] = float32(le.Uint64(data[8*i:]))
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %v", dtype)
	}
	return out, nil
}
