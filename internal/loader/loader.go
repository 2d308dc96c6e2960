// Package loader is the public façade over the instantiation engine: it
// serializes every request with one mutex, and exposes the lookups a host
// embedding the loader actually needs (export resolution, native-type and
// native-function registration, pointer-type materialization) on top of
// the engine's LoadType/LoadFunction entry points.
package loader

import (
	"sync"

	"github.com/rollang/rolloader/internal/asm"
	"github.com/rollang/rolloader/internal/errors"
	"github.com/rollang/rolloader/internal/instantiate"
)

// RuntimeType and RuntimeFunction are re-exported so callers never need to
// import internal/instantiate directly.
type RuntimeType = instantiate.RuntimeType
type RuntimeFunction = instantiate.RuntimeFunction

// Hooks lets a host observe every commit. Both methods are called while
// Loader's mutex is held, so implementations must not call back into the
// Loader.
type Hooks = instantiate.Hooks

// Loader is the top-level object a host constructs once per set of
// assemblies. All exported methods are safe for concurrent use; each
// request runs to completion (or failure) under a single mutex, matching
// the original's "one loading operation active at a time" design — there
// is no context.Context on these methods because loading is always
// CPU-bound and in-process, never a candidate for cancellation or a
// deadline.
type Loader struct {
	mu     sync.Mutex
	engine *instantiate.Engine
}

// Config configures a new Loader.
type Config struct {
	// PointerSize is the host's platform pointer width in bytes (commonly
	// 8). It sizes every Reference/Interface-storage field and value.
	PointerSize int
	// LoadingLimit bounds how many types and functions a single request
	// may instantiate before it is rejected as a runaway expansion. Zero
	// selects the engine's default.
	LoadingLimit int
	// Hooks, if set, is notified as each type/function commits.
	Hooks Hooks
}

// New builds a Loader over a catalog of already-parsed assemblies.
func New(catalog *asm.Catalog, cfg Config) *Loader {
	e := instantiate.NewEngine(catalog, cfg.PointerSize)
	if cfg.LoadingLimit > 0 {
		e.LoadingLimit = cfg.LoadingLimit
	}
	if cfg.Hooks != nil {
		e.Hooks = cfg.Hooks
	}
	return &Loader{engine: e}
}

// GetType instantiates (or returns the already-committed) type named by
// assembly, template id, and concrete arguments.
func (l *Loader) GetType(assembly string, id int, args []*RuntimeType) (*RuntimeType, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.LoadType(instantiate.LoadingArguments{Assembly: assembly, Id: id, Arguments: args})
}

// GetFunction instantiates (or returns the already-committed) function
// named by assembly, template id, and concrete arguments.
func (l *Loader) GetFunction(assembly string, id int, args []*RuntimeType) (*RuntimeFunction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.LoadFunction(instantiate.LoadingArguments{Assembly: assembly, Id: id, Arguments: args})
}

// AddNativeType registers a host-supplied Value type for a name the
// assembly's NativeTypes table declares: the assembly only names the
// placeholder, and the host decides its actual size and alignment here.
func (l *Loader) AddNativeType(assembly, name string, size, alignment int) (*RuntimeType, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.AddNativeType(assembly, name, size, alignment)
}

// AddNativeFunction registers a host-supplied callable for a name the
// assembly's NativeFunctions table declares, so a template's Generic.Functions
// list can RefAssembly it the same way it would a template-backed function.
func (l *Loader) AddNativeFunction(assembly, name string, returnValue *RuntimeType, parameters []*RuntimeType) (*RuntimeFunction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.AddNativeFunction(assembly, name, returnValue, parameters)
}

// LoadPointerType returns Core.Pointer<target>, instantiating it if this
// is the first request for a pointer to target. Returns an error if the
// catalog has no Core.Pointer export.
func (l *Loader) LoadPointerType(target *RuntimeType) (*RuntimeType, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if target.PointerType != nil {
		return target.PointerType, nil
	}
	ptrAsm, ptrId, ok := l.engine.PointerTemplate()
	if !ok {
		return nil, errors.New(errors.LDR010)
	}
	t, err := l.engine.LoadType(instantiate.LoadingArguments{Assembly: ptrAsm, Id: ptrId, Arguments: []*RuntimeType{target}})
	if err != nil {
		return nil, err
	}
	target.PointerType = t
	return t, nil
}

// GetTypeById returns a previously committed type by its dense id.
func (l *Loader) GetTypeById(id uint32) *RuntimeType {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.GetTypeById(id)
}

// GetFunctionById returns a previously committed function by its dense id.
func (l *Loader) GetFunctionById(id uint32) *RuntimeFunction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.GetFunctionById(id)
}

// GetPointerSize returns the platform pointer width this Loader was
// configured with.
func (l *Loader) GetPointerSize() int {
	return l.engine.PointerSize
}

// FindExportType resolves a top-level (arity-0) exported type by name,
// instantiating it with no arguments.
func (l *Loader) FindExportType(assembly, name string) (*RuntimeType, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	asmName, id, err := l.engine.FindExportType(assembly, name)
	if err != nil {
		return nil, err
	}
	return l.engine.LoadType(instantiate.LoadingArguments{Assembly: asmName, Id: id})
}

// FindExportFunction resolves a top-level (arity-0) exported function by
// name, instantiating it with no arguments.
func (l *Loader) FindExportFunction(assembly, name string) (*RuntimeFunction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	asmName, id, err := l.engine.FindExportFunction(assembly, name)
	if err != nil {
		return nil, err
	}
	return l.engine.LoadFunction(instantiate.LoadingArguments{Assembly: asmName, Id: id})
}

// FindExportConstant resolves a constant exported by name.
func (l *Loader) FindExportConstant(assembly, name string) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.FindExportConstant(assembly, name)
}
