package asm

// BaseInfo carries the (optional) base-type and vtable-type references of
// a type template. Both are indices into the template's Generic.Types
// reference list; RefEmpty means "none".
type BaseInfo struct {
	InheritedType   int
	VirtualTableType int
}

// InterfaceRef declares one interface a type template implements: the
// interface type itself, and the vtable type backing this type's
// implementation of it (absent on Interface-storage types, which have no
// implementation, only the interface's own abstract vtable).
type InterfaceRef struct {
	InheritedType    int
	VirtualTableType int
}

// PublicMember names an exported field or function by template-local id,
// used by trait structural matching (the "a field of matching
// name", "an overload with matching signature").
type PublicMember struct {
	Name string
	Id   int
}

// TypeTemplate is one type declaration in an assembly: generic-arity,
// storage mode, field list, base/interface/vtable relations, and
// initializer/finalizer. It corresponds to RolLang's "Type" struct.
type TypeTemplate struct {
	Name    string
	Generic GenericDeclaration
	GCMode  StorageMode

	// Fields lists, for Value/Interface/Global templates, the field
	// references (indices into Generic.Types) in declaration order.
	// Reference-storage templates defer field resolution
	// but still declare them here; the pipeline reads this list from
	// LoadFields regardless of when it runs.
	Fields []int

	Base       BaseInfo
	Interfaces []InterfaceRef

	// Initializer/Finalizer are indices into Generic.Functions.
	// RefEmpty (as a Functions entry) means "none".
	Initializer int
	Finalizer   int

	PublicFields    []PublicMember
	PublicFunctions []PublicMember

	// Subtypes maps a name navigable as "this type's Name<...>" to the
	// index of another template declared in the same assembly. A
	// RefSubtype reference resolves through this table, keyed by the
	// declaration's own SubtypeNames list.
	Subtypes []PublicMember
}

// TypedRef names a function's return value or one parameter by the index
// of its type within Generic.Types.
type TypedRef struct {
	TypeId int
}

// ConstantTableEntry describes one constant-pool slot referenced by a
// function's bytecode. Length == 0 marks an import: the loader resolves
// the import and rewrites Offset/Length in place.
type ConstantTableEntry struct {
	Offset int
	Length int
}

// FunctionTemplate is one function declaration in an assembly: generic
// arity, signature (as references), and optional code. A function that is
// entirely native (no Instructions, no ConstantTable, no ConstantData)
// carries no code blob
type FunctionTemplate struct {
	Name    string
	Generic GenericDeclaration

	ReturnValue TypedRef
	Parameters  []TypedRef

	Instructions  []byte
	ConstantData  []byte
	ConstantTable []ConstantTableEntry
	Locals        []int
}

// TraitField is one field a trait requires the target type to expose.
type TraitField struct {
	ElementName string
	Type        int // index into the trait's Generic.Types
}

// TraitFunction is one function signature a trait requires the target
// type to expose (by name — overload resolution happens structurally at
// check time).
type TraitFunction struct {
	ElementName    string
	ReturnType     int
	ParameterTypes []int
}

// TraitTemplate is a structural interface: a record of required fields and
// function signatures, checked against a candidate target type by the
// constraint engine.
type TraitTemplate struct {
	Name      string
	Generic   GenericDeclaration
	Fields    []TraitField
	Functions []TraitFunction
}
