package instantiate

import (
	"github.com/rollang/rolloader/internal/asm"
	"github.com/rollang/rolloader/internal/errors"
)

// Hooks lets a host observe commit events without the pipeline taking a
// dependency on any particular host package.
type Hooks interface {
	OnTypeLoaded(t *RuntimeType)
	OnFunctionLoaded(f *RuntimeFunction)
}

type noopHooks struct{}

func (noopHooks) OnTypeLoaded(*RuntimeType)         {}
func (noopHooks) OnFunctionLoaded(*RuntimeFunction) {}

// Engine is the instantiation engine: it owns the read-only catalog, the
// committed (dense, id-indexed) type/function storage, and the special
// built-in type ids (Core.Pointer<T>, Core.Box<T>) it needs to recognize
// during loading. It has no exported mutex of its own — internal/loader's
// façade serializes all access with one.
type Engine struct {
	Catalog      *asm.Catalog
	PointerSize  int
	LoadingLimit int
	Hooks        Hooks

	pointerAssembly string
	pointerId       int
	boxAssembly     string
	boxId           int

	// committed storage. Index 0 is never used (ids start at 1) so a
	// zero-value RuntimeType/RuntimeFunction never collides with a real
	// entry.
	types     []*RuntimeType
	functions []*RuntimeFunction
}

// NewEngine builds an Engine over a catalog. pointerSize is the host's
// platform pointer width in bytes (e.g. 8), used to size Reference and
// Interface storage.
func NewEngine(catalog *asm.Catalog, pointerSize int) *Engine {
	e := &Engine{
		Catalog:      catalog,
		PointerSize:  pointerSize,
		LoadingLimit: defaultLoadingLimit,
		Hooks:        noopHooks{},
		types:        make([]*RuntimeType, 1),
		functions:    make([]*RuntimeFunction, 1),
	}
	e.discoverSpecialTypes()
	return e
}

// discoverSpecialTypes locates Core.Pointer and Core.Box by export name so
// finalCheckType and checkSpecialType can recognize instantiations of
// them without a hardcoded assembly/id pair baked in at compile time.
func (e *Engine) discoverSpecialTypes() {
	core := e.Catalog.Find("Core")
	if core == nil {
		return
	}
	for _, exp := range core.ExportTypes {
		switch exp.ExportName {
		case "Pointer":
			e.pointerAssembly, e.pointerId = "Core", exp.InternalId
		case "Box":
			e.boxAssembly, e.boxId = "Core", exp.InternalId
		}
	}
}

func (e *Engine) isPointerTemplate(assembly string, id int) bool {
	return e.pointerAssembly != "" && assembly == e.pointerAssembly && id == e.pointerId
}

func (e *Engine) isBoxTemplate(assembly string, id int) bool {
	return e.boxAssembly != "" && assembly == e.boxAssembly && id == e.boxId
}

// GetTypeById returns a previously committed type by its dense id, or nil
// if the id is out of range or is 0 (ids start at 1).
func (e *Engine) GetTypeById(id uint32) *RuntimeType {
	if int(id) >= len(e.types) {
		return nil
	}
	return e.types[id]
}

// GetFunctionById mirrors GetTypeById for functions.
func (e *Engine) GetFunctionById(id uint32) *RuntimeFunction {
	if int(id) >= len(e.functions) {
		return nil
	}
	return e.functions[id]
}

func (e *Engine) commitType(t *RuntimeType) {
	t.Id = uint32(len(e.types))
	e.types = append(e.types, t)
	e.Hooks.OnTypeLoaded(t)
}

func (e *Engine) commitFunction(f *RuntimeFunction) {
	f.Id = uint32(len(e.functions))
	e.functions = append(e.functions, f)
	e.Hooks.OnFunctionLoaded(f)
}

// LoadType is the top-level entry point for instantiating a type: it runs
// one full request (field layout, post-load, constraint checking, final
// checks) to completion and commits every type it touched, or commits
// nothing on error.
func (e *Engine) LoadType(args LoadingArguments) (*RuntimeType, error) {
	s := newSession(e.LoadingLimit)
	t, err := e.loadTypeInternal(s, args)
	if err != nil {
		return nil, err
	}
	if err := e.drain(s); err != nil {
		return nil, err
	}
	e.commitFinished(s)
	return t, nil
}

// LoadFunction is the top-level entry point for instantiating a function.
func (e *Engine) LoadFunction(args LoadingArguments) (*RuntimeFunction, error) {
	s := newSession(e.LoadingLimit)
	f, err := e.loadFunctionInternal(s, args)
	if err != nil {
		return nil, err
	}
	if err := e.drain(s); err != nil {
		return nil, err
	}
	e.commitFinished(s)
	return f, nil
}

// drain runs the pipeline's deferred queues to quiescence. Field layout
// already happened synchronously inside loadTypeInternal by the time
// anything reaches here; what is left is base/interface/vtable
// resolution (postLoadQueue), then final checks (finalCheckQueue), then
// function post-load — each phase run to exhaustion before the next
// starts, since postLoadType and postLoadFunction can themselves discover
// and enqueue further work.
func (e *Engine) drain(s *session) error {
	for len(s.postLoadQueue) > 0 || len(s.finalCheckQueue) > 0 || len(s.loadingFunctions) > 0 {
		for len(s.postLoadQueue) > 0 {
			t := s.postLoadQueue[0]
			s.postLoadQueue = s.postLoadQueue[1:]
			if err := e.postLoadType(s, t); err != nil {
				return err
			}
			s.finalCheckQueue = append(s.finalCheckQueue, t)
		}
		for len(s.finalCheckQueue) > 0 {
			t := s.finalCheckQueue[0]
			s.finalCheckQueue = s.finalCheckQueue[1:]
			if err := e.finalCheckType(s, t); err != nil {
				return err
			}
			s.finishedLoadingTypes = append(s.finishedLoadingTypes, t)
		}
		for len(s.loadingFunctions) > 0 {
			f := s.loadingFunctions[0]
			s.loadingFunctions = s.loadingFunctions[1:]
			if err := e.postLoadFunction(s, f); err != nil {
				return err
			}
			s.finishedLoadingFunctions = append(s.finishedLoadingFunctions, f)
		}
	}
	return nil
}

// commitFinished moves every type/function the just-drained request
// finished into committed storage, in the order postLoadQueue/
// finalCheckQueue finished them.
func (e *Engine) commitFinished(s *session) {
	for _, t := range s.finishedLoadingTypes {
		e.commitType(t)
	}
	for _, f := range s.finishedLoadingFunctions {
		e.commitFunction(f)
	}
}

// AddNativeType registers a host-supplied Value type for a name the
// assembly's NativeTypes table names: the host provides layout directly
// rather than a field list. It commits immediately (there is no reference
// graph to drain) under the same LoadingArguments a RefAssembly entry
// pointing at that template id would produce, so ordinary field
// resolution finds it via findCommittedType without ever running
// loadFields against the (deliberately empty) placeholder template.
func (e *Engine) AddNativeType(assembly, name string, size, alignment int) (*RuntimeType, error) {
	if alignment <= 0 || size < 0 || size%alignment != 0 {
		return nil, errors.New(errors.LDR006)
	}
	asmb := e.Catalog.Find(assembly)
	if asmb == nil {
		return nil, errors.New(errors.LDR010)
	}
	id, ok := asmb.NativeTypes[name]
	if !ok {
		return nil, errors.New(errors.LDR010)
	}
	args := LoadingArguments{Assembly: assembly, Id: id}
	if existing := e.findCommittedType(args); existing != nil {
		return existing, nil
	}
	t := &RuntimeType{
		Args:      args,
		Storage:   asm.Value,
		Size:      size,
		Alignment: alignment,
	}
	e.commitType(t)
	return t, nil
}

// AddNativeFunction registers a host-supplied function with no instruction
// body (an intrinsic or builtin callable directly from Go code) for a name
// the assembly's NativeFunctions table names. It commits under the same
// LoadingArguments a RefAssembly entry in some other template's
// Generic.Functions list would produce, so a trait or generic parameter
// list can reach this callable exactly as it would a template-backed one.
func (e *Engine) AddNativeFunction(assembly, name string, returnValue *RuntimeType, parameters []*RuntimeType) (*RuntimeFunction, error) {
	asmb := e.Catalog.Find(assembly)
	if asmb == nil {
		return nil, errors.New(errors.LDR010)
	}
	id, ok := asmb.NativeFunctions[name]
	if !ok {
		return nil, errors.New(errors.LDR010)
	}
	args := LoadingArguments{Assembly: assembly, Id: id}
	if existing := e.findCommittedFunction(args); existing != nil {
		return existing, nil
	}
	f := &RuntimeFunction{
		Args:        args,
		ReturnValue: returnValue,
		Parameters:  parameters,
	}
	e.commitFunction(f)
	return f, nil
}

// PointerTemplate returns the (assembly, id) of the catalog's Core.Pointer
// template, if one was discovered at construction time.
func (e *Engine) PointerTemplate() (assembly string, id int, ok bool) {
	return e.pointerAssembly, e.pointerId, e.pointerAssembly != ""
}

// FindExportType resolves a top-level exported type name to its
// (assembly, template id), following re-exports.
func (e *Engine) FindExportType(assembly, name string) (string, int, error) {
	return e.findExportType(assembly, name, 0)
}

// FindExportFunction resolves a top-level exported function name to its
// (assembly, template id), following re-exports.
func (e *Engine) FindExportFunction(assembly, name string) (string, int, error) {
	return e.findExportFunction(assembly, name, 0)
}

// FindExportConstant resolves a top-level exported constant name to its
// value, following re-exports.
func (e *Engine) FindExportConstant(assembly, name string) (uint32, error) {
	return e.findExportConstant(assembly, name, 0)
}
