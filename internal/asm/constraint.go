package asm

// ConstraintKind enumerates the generic-constraint forms a
// GenericDeclaration can carry.
type ConstraintKind int

const (
	// ConstraintExist requires Target to resolve to a valid type.
	ConstraintExist ConstraintKind = iota
	// ConstraintSame requires Target and Arguments[0] to resolve to the
	// same runtime type; also drives undetermined-placeholder deduction.
	ConstraintSame
	// ConstraintBase requires Arguments[0] to be in Target's transitive
	// base chain.
	ConstraintBase
	// ConstraintInterface requires Arguments[0] to be in Target's
	// transitive interface set.
	ConstraintInterface
	// ConstraintTraitAssembly references a trait declared in the same
	// assembly as the constraint.
	ConstraintTraitAssembly
	// ConstraintTraitImport references a trait reached through the
	// assembly's import-trait table.
	ConstraintTraitImport
)

// Constraint is one generic constraint attached to a GenericDeclaration.
// Target and Arguments index into TypeReferences, a reference list local
// to the constraint expression (so Exist/Same/Base/Interface/Trait can
// themselves reference generic parameters, Self, imports, and so on, via
// the same Ref vocabulary used elsewhere — plus the constraint-only
// RefAny/RefTry forms).
type Constraint struct {
	Kind ConstraintKind

	// TypeReferences is this constraint's own local reference list.
	// Target and every entry of Arguments is an index into it.
	TypeReferences []Ref

	// Target is the index (into TypeReferences) of the type the
	// constraint is evaluated against ("the type currently being
	// instantiated", reached via RefSelf inside TypeReferences).
	Target int

	// Arguments are indices (into TypeReferences) of the constraint's
	// other operands: none for Exist, one for Same/Base/Interface, the
	// trait's own generic arguments for Trait.
	Arguments []int

	// TraitIndex is the trait template index for ConstraintTraitAssembly.
	TraitIndex int
	// TraitImportIndex is the import-trait table index for
	// ConstraintTraitImport.
	TraitImportIndex int

	// SubtypeNames maps a RefSubtype Index used within TypeReferences to
	// a subtype member name (constraint-local, like GenericDeclaration's
	// own SubtypeNames).
	SubtypeNames []string
}
