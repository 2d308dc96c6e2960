package asm

// RefKind identifies what a DeclarationReference entry means. It mirrors
// the REF_* enum of GenericDeclaration.h: a tagged sum over "how do I find
// the concrete entity this slot denotes", matched exhaustively wherever it
// is consumed — deliberately a flat enum rather than a subclass hierarchy,
// since every consumer needs to switch over all kinds anyway.
type RefKind int

const (
	// RefEmpty marks an absent reference. Legal for optional positions
	// (base type, vtable, initializer, finalizer); illegal wherever a
	// reference is required (e.g. a field).
	RefEmpty RefKind = iota
	// RefClone tail-resolves another entry in the same reference list
	// under the same environment.
	RefClone
	// RefAssembly names a template by index within the declaring
	// assembly. Followed by a run of argument entries terminated by
	// RefListEnd (a generic argument list).
	RefAssembly
	// RefImport names an entry in the declaring assembly's import table.
	// Followed by an argument list like RefAssembly.
	RefImport
	// RefArgument selects arguments[Index] from the loading environment.
	RefArgument
	// RefArgumentSeg continues RefArgument into a higher parameter-pack
	// segment (see this, parameter pack layout).
	RefArgumentSeg
	// RefSelf resolves to the environment's self type. Only valid when
	// the environment has one (type bodies, not function bodies).
	RefSelf
	// RefSubtype navigates a named subtype member of a parent type.
	// Argument 0 of its list is the parent type reference; the rest are
	// the subtype's own generic parameters.
	RefSubtype
	// RefConstraint references a name exported by a trait constraint
	// carried by the surrounding declaration ("constraintName/memberName").
	RefConstraint
	// RefCloneType appears only inside a function reference's argument
	// list, pointing into the *type* reference list (a generic function's
	// type arguments are carried this way).
	RefCloneType
	// RefListEnd terminates an argument-list continuation. It is a
	// marker, never itself dereferenced by the resolver's main switch.
	RefListEnd
	// RefAny is valid only inside constraint expressions: an
	// undetermined placeholder to be deduced.
	RefAny
	// RefTry is valid only inside constraint expressions: wraps another
	// reference so that its failure to resolve is non-fatal (yields
	// "constraint false" instead of propagating).
	RefTry
)

// ForceLoad is OR-ed onto a RefKind to mark the entry for eager resolution
// during post-load.
const ForceLoad RefKind = 1 << 8

// Base returns kind with the force-load bit stripped.
func (k RefKind) Base() RefKind { return k &^ ForceLoad }

// Forced reports whether the force-load bit is set.
func (k RefKind) Forced() bool { return k&ForceLoad != 0 }

// Ref is one entry of a template's reference list: a (kind, index) pair.
// The meaning of Index depends on Kind (see RefKind docs above).
type Ref struct {
	Kind  RefKind
	Index int
}

// Empty is the canonical RefEmpty entry.
var Empty = Ref{Kind: RefEmpty}

// GenericDeclaration is the generic-parameter and reference-list portion
// shared by type templates, function templates, and trait templates. It
// corresponds to GenericDeclaration.h's struct of the same name.
type GenericDeclaration struct {
	// ParameterCount is the generic arity (number of type arguments the
	// template requires).
	ParameterCount int
	// Types is the template's type reference list.
	Types []Ref
	// Functions is the template's function reference list.
	Functions []Ref
	// Constraints are the generic constraints checked against a
	// candidate argument vector before instantiation proceeds.
	Constraints []Constraint
	// SubtypeNames maps RefSubtype's Index to a subtype member name.
	SubtypeNames []string
}
