package fallback

import (
	"encoding/gob"
	"os"
	"slices"
)

type savedArray struct {
	Name  string
	Shape []uint32
	DType int
	Data  []float32
}

func (e *Engine) Save(path string, handles []Handle, keys []string) error {
	const call = "MXNDArraySave"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return err
	}
	if len(keys) != 0 && len(keys) != len(handles) {
		return callError(call, "%d keys for %d arrays", len(keys), len(handles))
	}
	records := make([]savedArray, len(handles))
	for i, h := range handles {
		a, err := e.lookupArray(call, h)
		if err != nil {
			return err
		}
		records[i] = savedArray{Shape: slices.Clone(a.shape), DType: a.dtype, Data: slices.Clone(a.values())}
		if len(keys) != 0 {
			records[i].Name = keys[i]
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return callError(call, "%v", err)
	}
	if err := gob.NewEncoder(f).Encode(records); err != nil {
		f.Close()
		return callError(call, "writing %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		return callError(call, "closing %s: %v", path, err)
	}
	return nil
}

func (e *Engine) Load(path string) ([]Handle, []string, error) {
	const call = "MXNDArrayLoad"
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(call); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, callError(call, "%v", err)
	}
	defer f.Close()

	var records []savedArray
	if err := gob.NewDecoder(f).Decode(&records); err != nil {
		return nil, nil, callError(call, "reading %s: %v", path, err)
	}
	var names []string
	for i, r := range records {
		if numElements(r.Shape) != len(r.Data) {
			return nil, nil, callError(call, "array %d has shape %v but %d values", i, r.Shape, len(r.Data))
		}
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	if names != nil && len(names) != len(records) {
		return nil, nil, callError(call, "%s mixes named and unnamed arrays", path)
	}

	handles := make([]Handle, len(records))
	for i, r := range records {
		handles[i] = e.allocArray(&array{shape: r.Shape, dtype: r.DType, devType: devCPU, data: r.Data})
	}
	return handles, names, nil
}
