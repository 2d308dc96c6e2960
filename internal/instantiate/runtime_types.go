// Package instantiate implements the loader's instantiation engine: the
// staged loading pipeline, the reference-list resolver, and the
// constraint engine. The three live in one package
// because they are mutually recursive over the same per-request session
// state — resolving a reference can instantiate a type, instantiating a
// type checks constraints, and checking a constraint resolves references —
// mirroring the single inheritance chain RuntimeLoaderCore /
// RuntimeLoaderConstrain / RuntimeLoaderRefList formed in the original
// acaly/RolLang C++ source. Splitting them into separate Go packages would
// require an import cycle; DESIGN.md records this choice.
package instantiate

import "github.com/rollang/rolloader/internal/asm"

// LoadingArguments identifies one instantiation: an assembly, a template
// id within it, and a concrete argument vector. Equality is structural:
// same assembly, same id, same argument *types* by identity (RuntimeType
// pointers are canonical once loaded, so pointer comparison of arguments
// is correct).
type LoadingArguments struct {
	Assembly string
	Id       int
	Arguments []*RuntimeType
}

// Equal reports structural equality of two LoadingArguments.
func (a LoadingArguments) Equal(b LoadingArguments) bool {
	if a.Assembly != b.Assembly || a.Id != b.Id || len(a.Arguments) != len(b.Arguments) {
		return false
	}
	for i := range a.Arguments {
		if a.Arguments[i] != b.Arguments[i] {
			return false
		}
	}
	return true
}

// SubtypeLoadingArguments identifies a named subtype navigated through a
// parent type: the "a named subtype member of a type".
type SubtypeLoadingArguments struct {
	Parent    *RuntimeType
	Name      string
	Arguments []*RuntimeType
}

// Field is one entry of a RuntimeType's layout: its type, byte offset, and
// byte length (length/alignment equal the platform pointer size for
// Reference/Interface fields; equal the element's own size/alignment for
// Value fields).
type Field struct {
	Type   *RuntimeType
	Offset int
	Length int
}

// InterfaceInfo records one interface a RuntimeType implements: the
// interface type itself and the vtable type backing this type's
// implementation (nil on an Interface-storage type's own abstract entry).
type InterfaceInfo struct {
	Type         *RuntimeType
	VirtualTable *RuntimeType
}

// RuntimeType is one fully (or partially, mid-pipeline) instantiated type.
// See this for the field-by-field contract and the nine invariants
// every *committed* RuntimeType satisfies.
type RuntimeType struct {
	// Id is a stable, dense, monotonically assigned numeric id. Zero
	// means "not yet committed" (ids start at 1, matching the original's
	// _nextTypeId initialization, so the zero value of RuntimeType never
	// aliases a real id).
	Id   uint32
	Args LoadingArguments

	Storage asm.StorageMode

	// Size and Alignment are meaningful for Value/Global storage once
	// laid out. Alignment == 0 means "still mid-instantiation": per
	// invariant 1, a Value-storage field observed with Alignment == 0
	// during loading denotes a cyclic value-type dependency.
	Size      int
	Alignment int
	Fields    []Field

	BaseType         *RuntimeType
	Interfaces       []InterfaceInfo
	VirtualTableType *RuntimeType

	Initializer *RuntimeFunction
	Finalizer   *RuntimeFunction

	// PointerType caches Core.Pointer<Self> once it has been loaded
	// (lazily populated, monotone null -> non-null, never reassigned).
	PointerType *RuntimeType

	// References holds the force-loaded and on-demand-resolved entities
	// named by the template's reference list, index-aligned with
	// template.Generic.Types / template.Generic.Functions.
	References ReferenceSet
}

// ReferenceSet holds the force-loaded (and, once demanded, lazily
// resolved) type/function references of one RuntimeType or RuntimeFunction,
// index-aligned with the owning template's reference list.
type ReferenceSet struct {
	Types     []*RuntimeType
	Functions []*RuntimeFunction
}

func (r *ReferenceSet) setType(i int, t *RuntimeType) {
	for len(r.Types) <= i {
		r.Types = append(r.Types, nil)
	}
	r.Types[i] = t
}

func (r *ReferenceSet) setFunction(i int, f *RuntimeFunction) {
	for len(r.Functions) <= i {
		r.Functions = append(r.Functions, nil)
	}
	r.Functions[i] = f
}

// RuntimeFunction is one fully (or partially) instantiated function. See
// this for the field-by-field contract.
type RuntimeFunction struct {
	Id   uint32
	Args LoadingArguments

	ReturnValue *RuntimeType
	Parameters  []*RuntimeType

	// ReferencedFields holds resolved constant-import values, index-
	// aligned with the template's field-import list.
	ReferencedFields []uint32

	References ReferenceSet

	// Code is nil for an entirely native function.
	Code *asm.FunctionCode
}

// GetStorageSize returns the in-memory footprint of a value of this type:
// the platform pointer size for Reference/Interface storage, Size
// otherwise.
func (t *RuntimeType) GetStorageSize(ptrSize int) int {
	if t.Storage == asm.Reference || t.Storage == asm.Interface {
		return ptrSize
	}
	return t.Size
}

// GetStorageAlignment mirrors GetStorageSize for alignment.
func (t *RuntimeType) GetStorageAlignment(ptrSize int) int {
	if t.Storage == asm.Reference || t.Storage == asm.Interface {
		return ptrSize
	}
	return t.Alignment
}
