package engine

// Handle is an opaque token naming one engine-owned resource: an NDArray
// buffer or a symbolic graph node. The zero value is the null handle.
type Handle uintptr

// Creator names an operator kind inside the engine. Atomic symbol creators
// and nnvm op handles share this type, since the engine uses the same
// underlying pointer for both.
type Creator uintptr

// NDArrays allocates, inspects and releases tensor buffers.
type NDArrays interface {
	CreateNone() (Handle, error)
	Create(shape []uint32, devType, devID int, delayAlloc bool, dtype int) (Handle, error)
	Free(h Handle) error

	Shape(h Handle) ([]uint32, error)
	DType(h Handle) (int, error)
	Device(h Handle) (devType int, devID int, err error)

	// CopyFromHost and CopyToHost block until the copy completes.
	CopyFromHost(h Handle, data []float32) error
	CopyToHost(h Handle, data []float32) error

	WaitToRead(h Handle) error
	WaitToWrite(h Handle) error
	WaitAll() error
}

// Symbols builds and releases graph nodes.
type Symbols interface {
	CreateVariable(name string) (Handle, error)
	CreateAtomicSymbol(c Creator, keys, values []string) (Handle, error)
	// Compose binds args into the argument slots of sym. keys is either
	// empty (positional) or the same length as args.
	Compose(sym Handle, name string, keys []string, args []Handle) error
	FreeSymbol(h Handle) error

	CopySymbol(h Handle) (Handle, error)
	SymbolName(h Handle) (string, bool, error)
	ListArguments(h Handle) ([]string, error)
	ListOutputs(h Handle) ([]string, error)
	SymbolToJSON(h Handle) (string, error)
	SymbolFromJSON(json string) (Handle, error)
}

// Operators enumerates operator kinds and runs them imperatively.
type Operators interface {
	ListCreators() ([]Creator, error)
	CreatorInfo(c Creator) (*CreatorInfo, error)
	ListOpNames() ([]string, error)
	OpHandle(name string) (Creator, error)

	// ImperativeInvoke runs c on inputs. If outputs is empty the engine
	// allocates the results and returns their handles; otherwise the engine
	// writes into outputs and returns them unchanged.
	ImperativeInvoke(c Creator, inputs []Handle, outputs []Handle, keys, values []string) ([]Handle, error)
}

// Autograd toggles the process-wide recording and training flags.
type Autograd interface {
	SetRecording(recording bool) (prev bool, err error)
	SetTraining(training bool) (prev bool, err error)
	IsRecording() (bool, error)
	IsTraining() (bool, error)
}

// Devices reports on accelerators visible to the engine.
type Devices interface {
	GPUCount() (int, error)
	GPUMemoryInfo(devID int) (free uint64, total uint64, err error)
	Version() (int, error)
}

// Storage persists named NDArrays in the engine's native file format.
type Storage interface {
	Save(path string, handles []Handle, keys []string) error
	// Load returns freshly allocated handles; the caller owns them.
	Load(path string) ([]Handle, []string, error)
}

// Engine is the full set of primitives the bindings require.
type Engine interface {
	NDArrays
	Symbols
	Operators
	Autograd
	Devices
	Storage
}

// CreatorInfo describes an operator kind.
type CreatorInfo struct {
	Name            string
	Description     string
	ArgNames        []string
	ArgTypes        []string
	ArgDescriptions []string
	// KeyVarNumArgs names the parameter holding the variadic input count,
	// or is empty for operators with a fixed arity.
	KeyVarNumArgs   string
	ReturnType      string
}
