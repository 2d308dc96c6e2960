package asm

// AnyArity is the sentinel for Import.GenericParameters meaning "match any
// arity": an import with this value accepts any number of generic
// arguments, while any other value must equal the argument count.
const AnyArity = -1

// Import is one entry of an import table: a reference to a name exported
// by another assembly, optionally pinned to a specific generic arity.
type Import struct {
	AssemblyName     string
	ImportName       string
	GenericParameters int
}

// Export maps a name this assembly exposes to an internal id. If InternalId
// is out of range of the corresponding internal table, it denotes a
// transparent re-export: InternalId - len(table) indexes into the
// corresponding import table instead.
type Export struct {
	ExportName string
	InternalId int
}

// Assembly is a namespace of templates plus its import/export tables. It
// is immutable once constructed: the catalog never mutates a loaded
// Assembly's templates, only the shared code cache (see CodeStorage).
type Assembly struct {
	Name string

	Types     []TypeTemplate
	Functions []FunctionTemplate
	Traits    []TraitTemplate

	ImportTypes     []Import
	ImportFunctions []Import
	ImportConstants []Import
	ImportTraits    []Import

	ExportTypes     []Export
	ExportFunctions []Export
	ExportConstants []Export
	ExportTraits    []Export

	// Constants is the assembly's own constant table, addressed by
	// ExportConstants' InternalId and consumed via resolveImportConstant by
	// importers.
	Constants []uint32

	// NativeTypes names Value-storage, arity-0 templates whose layout is
	// supplied by the host via Loader.AddNativeType, keyed by export name.
	NativeTypes map[string]int

	// NativeFunctions names function templates with no instruction body,
	// whose signature is supplied by the host via Loader.AddNativeFunction,
	// keyed by export name. A template's Generic.Functions entry can then
	// RefAssembly this id to reach the host-registered callable, the same
	// way a field RefAssembly's a NativeTypes id.
	NativeFunctions map[string]int
}

// Catalog is the read-only dictionary from assembly name to its template
// tables. It is built once (typically from a fixture, see
// internal/fixture) and never mutated by the loader beyond the shared
// function-code cache it also owns.
type Catalog struct {
	assemblies map[string]*Assembly
	code       *CodeStorage
}

// NewCatalog builds a Catalog from a set of assemblies, keyed by name.
// Later entries with a duplicate name overwrite earlier ones — callers
// that care should check for duplicates themselves before calling this.
func NewCatalog(assemblies []*Assembly) *Catalog {
	m := make(map[string]*Assembly, len(assemblies))
	for _, a := range assemblies {
		m[a.Name] = a
	}
	return &Catalog{assemblies: m, code: newCodeStorage()}
}

// Find returns the named assembly, or nil if it is not in the catalog.
func (c *Catalog) Find(name string) *Assembly {
	return c.assemblies[name]
}

// Names returns every assembly name in the catalog, in no particular
// order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.assemblies))
	for name := range c.assemblies {
		names = append(names, name)
	}
	return names
}

// Code returns the catalog's shared function-code cache.
func (c *Catalog) Code() *CodeStorage {
	return c.code
}
