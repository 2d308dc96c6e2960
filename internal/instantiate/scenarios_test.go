package instantiate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rollang/rolloader/internal/asm"
	"github.com/rollang/rolloader/internal/errors"
)

// The six end-to-end scenarios, each grounded on a minimal hand-built
// catalog rather than a fixture file, so each test is self-contained.
// Templates that get past field layout point their base, vtable,
// initializer and finalizer indices (all left at 0) at an explicit
// RefEmpty entry, as optional positions require.

func TestEmptyValueType(t *testing.T) {
	asmb := &asm.Assembly{
		Name: "Test",
		Types: []asm.TypeTemplate{
			{Name: "Test.Single", GCMode: asm.Value, Generic: asm.GenericDeclaration{Types: []asm.Ref{asm.Empty}, Functions: []asm.Ref{asm.Empty}}},
		},
	}
	e := NewEngine(asm.NewCatalog([]*asm.Assembly{asmb}), 8)

	got, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: 0})
	if err != nil {
		t.Fatalf("LoadType failed: %v", err)
	}
	if got.Size != 0 || got.Alignment != 1 || len(got.Fields) != 0 {
		t.Errorf("got size=%d alignment=%d fields=%d, want size=0 alignment=1 fields=0",
			got.Size, got.Alignment, len(got.Fields))
	}
}

func TestPackedFields(t *testing.T) {
	// Native1 (1/1) and Native4 (4/4) are host-supplied layouts named in
	// the assembly's NativeTypes table; the packed value type references
	// them by RefAssembly, same as any other declared type.
	asmb := &asm.Assembly{
		Name: "Test",
		Types: []asm.TypeTemplate{
			{Name: "Native1", GCMode: asm.Value},
			{Name: "Native4", GCMode: asm.Value},
			{
				Name:   "Test.Packed",
				GCMode: asm.Value,
				Generic: asm.GenericDeclaration{
					Types: []asm.Ref{
						asm.Empty,
						{Kind: asm.RefAssembly, Index: 0}, {Kind: asm.RefListEnd},
						{Kind: asm.RefAssembly, Index: 1}, {Kind: asm.RefListEnd},
					},
					Functions: []asm.Ref{asm.Empty},
				},
				Fields: []int{1, 1, 3, 3, 1},
			},
		},
		NativeTypes: map[string]int{"Native1": 0, "Native4": 1},
	}
	e := NewEngine(asm.NewCatalog([]*asm.Assembly{asmb}), 8)

	if _, err := e.AddNativeType("Test", "Native1", 1, 1); err != nil {
		t.Fatalf("AddNativeType(Native1): %v", err)
	}
	if _, err := e.AddNativeType("Test", "Native4", 4, 4); err != nil {
		t.Fatalf("AddNativeType(Native4): %v", err)
	}

	got, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: 2})
	if err != nil {
		t.Fatalf("LoadType failed: %v", err)
	}
	wantOffsets := []int{0, 1, 4, 8, 12}
	if len(got.Fields) != len(wantOffsets) {
		t.Fatalf("got %d fields, want %d", len(got.Fields), len(wantOffsets))
	}
	for i, f := range got.Fields {
		if f.Offset != wantOffsets[i] {
			t.Errorf("field[%d].Offset = %d, want %d", i, f.Offset, wantOffsets[i])
		}
	}
	// offset 12 + Native1's length 1 = 13, rounded up to the 4-byte
	// alignment the Native4 fields impose.
	if got.Size != 16 {
		t.Errorf("Size = %d, want 16", got.Size)
	}
	if got.Alignment != 4 {
		t.Errorf("Alignment = %d, want 4", got.Alignment)
	}
}

func TestReferenceTypeForwardEdge(t *testing.T) {
	// A (value) has one field of reference type B; B has one field of A.
	asmb := &asm.Assembly{
		Name: "Test",
		Types: []asm.TypeTemplate{
			{ // 0: A
				Name:   "A",
				GCMode: asm.Value,
				Generic: asm.GenericDeclaration{
					Types:     []asm.Ref{asm.Empty, {Kind: asm.RefAssembly, Index: 1}, {Kind: asm.RefListEnd}},
					Functions: []asm.Ref{asm.Empty},
				},
				Fields: []int{1},
			},
			{ // 1: B
				Name:   "B",
				GCMode: asm.Reference,
				Generic: asm.GenericDeclaration{
					Types:     []asm.Ref{asm.Empty, {Kind: asm.RefAssembly, Index: 0}, {Kind: asm.RefListEnd}},
					Functions: []asm.Ref{asm.Empty},
				},
				Fields: []int{1},
			},
		},
	}
	e := NewEngine(asm.NewCatalog([]*asm.Assembly{asmb}), 8)

	a, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: 0})
	if err != nil {
		t.Fatalf("LoadType(A) failed: %v", err)
	}
	if a.Size != e.PointerSize {
		t.Errorf("A.Size = %d, want pointer size %d", a.Size, e.PointerSize)
	}
	if len(a.Fields) != 1 || a.Fields[0].Type.Args.Id != 1 {
		t.Fatalf("A.Fields = %+v, want single field of B", a.Fields)
	}
	b := a.Fields[0].Type
	if b.Size != a.Size {
		t.Errorf("B.Size = %d, want A.Size = %d", b.Size, a.Size)
	}
	if len(b.Fields) != 1 || b.Fields[0].Type != a {
		t.Fatalf("B.Fields = %+v, want single field pointing back to A", b.Fields)
	}
}

func TestSelfReferentialReference(t *testing.T) {
	asmb := &asm.Assembly{
		Name: "Test",
		Types: []asm.TypeTemplate{
			{
				Name:    "Node",
				GCMode:  asm.Reference,
				Generic: asm.GenericDeclaration{Types: []asm.Ref{asm.Empty, {Kind: asm.RefSelf}}, Functions: []asm.Ref{asm.Empty}},
				Fields:  []int{1},
			},
		},
	}
	e := NewEngine(asm.NewCatalog([]*asm.Assembly{asmb}), 8)

	got, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: 0})
	if err != nil {
		t.Fatalf("LoadType failed: %v", err)
	}
	if len(got.Fields) != 1 || got.Fields[0].Type != got {
		t.Errorf("Fields = %+v, want single self-referential field", got.Fields)
	}
}

func TestCyclicValueTypeForbidden(t *testing.T) {
	asmb := &asm.Assembly{
		Name: "Test",
		Types: []asm.TypeTemplate{
			{ // 0: A
				Name:    "A",
				GCMode:  asm.Value,
				Generic: asm.GenericDeclaration{Types: []asm.Ref{{Kind: asm.RefAssembly, Index: 1}, {Kind: asm.RefListEnd}}},
				Fields:  []int{0},
			},
			{ // 1: B
				Name:    "B",
				GCMode:  asm.Value,
				Generic: asm.GenericDeclaration{Types: []asm.Ref{{Kind: asm.RefAssembly, Index: 0}, {Kind: asm.RefListEnd}}},
				Fields:  []int{0},
			},
		},
	}
	e := NewEngine(asm.NewCatalog([]*asm.Assembly{asmb}), 8)

	_, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: 0})
	if err == nil {
		t.Fatal("expected CST001, got nil")
	}
	code, ok := errors.CodeOf(err)
	if !ok || code != errors.CST001 {
		t.Errorf("got error %v, want CST001", err)
	}
}

// TestTraitConstraintAdmitsAndRejects grounds scenario 6: V1 exposes
// Func(V1,V1). Holder1<T> constrains T with Trait1 (which requires exactly
// that signature) and admits V1; Holder2<T> constrains T with Trait2
// (which requires Func(V1,V2) instead) and rejects V1.
func TestTraitConstraintAdmitsAndRejects(t *testing.T) {
	const (
		v1Id      = 0
		v2Id      = 1
		holder1Id = 2
		holder2Id = 3
		funcId    = 0
		trait1Id  = 0
		trait2Id  = 1
	)

	v1 := asm.TypeTemplate{
		Name:   "V1",
		GCMode: asm.Value,
		Generic: asm.GenericDeclaration{
			Types:     []asm.Ref{asm.Empty},
			Functions: []asm.Ref{asm.Empty, {Kind: asm.RefAssembly, Index: funcId}, {Kind: asm.RefListEnd}},
		},
		PublicFunctions: []asm.PublicMember{{Name: "Func", Id: 1}},
	}
	v2 := asm.TypeTemplate{Name: "V2", GCMode: asm.Value, Generic: asm.GenericDeclaration{Types: []asm.Ref{asm.Empty}, Functions: []asm.Ref{asm.Empty}}}

	// Func(V1, V1) -> V1; its own type-reference list names V1 once, at
	// position 0 (the RefAssembly entry), reused for return and both
	// parameters.
	funcTmpl := asm.FunctionTemplate{
		Name: "Func",
		Generic: asm.GenericDeclaration{
			Types: []asm.Ref{{Kind: asm.RefAssembly, Index: v1Id}, {Kind: asm.RefListEnd}},
		},
		ReturnValue: asm.TypedRef{TypeId: 0},
		Parameters:  []asm.TypedRef{{TypeId: 0}, {TypeId: 0}},
	}

	trait1 := asm.TraitTemplate{
		Name: "Trait1",
		Generic: asm.GenericDeclaration{
			Types: []asm.Ref{{Kind: asm.RefAssembly, Index: v1Id}, {Kind: asm.RefListEnd}},
		},
		Functions: []asm.TraitFunction{
			{ElementName: "Func", ReturnType: 0, ParameterTypes: []int{0, 0}},
		},
	}
	trait2 := asm.TraitTemplate{
		Name: "Trait2",
		Generic: asm.GenericDeclaration{
			Types: []asm.Ref{
				{Kind: asm.RefAssembly, Index: v1Id}, {Kind: asm.RefListEnd},
				{Kind: asm.RefAssembly, Index: v2Id}, {Kind: asm.RefListEnd},
			},
		},
		Functions: []asm.TraitFunction{
			{ElementName: "Func", ReturnType: 0, ParameterTypes: []int{0, 2}},
		},
	}

	// Holder<T> constrains T (its sole generic argument) against a trait
	// declared in the same assembly, with no further trait arguments.
	holderConstraint := func(traitIdx int) asm.Constraint {
		return asm.Constraint{
			Kind:           asm.ConstraintTraitAssembly,
			TypeReferences: []asm.Ref{{Kind: asm.RefArgument, Index: 0}},
			Target:         0,
			TraitIndex:     traitIdx,
		}
	}
	holder1 := asm.TypeTemplate{
		Name:    "Holder1",
		GCMode:  asm.Value,
		Generic: asm.GenericDeclaration{ParameterCount: 1, Types: []asm.Ref{asm.Empty}, Functions: []asm.Ref{asm.Empty}, Constraints: []asm.Constraint{holderConstraint(trait1Id)}},
	}
	holder2 := asm.TypeTemplate{
		Name:    "Holder2",
		GCMode:  asm.Value,
		Generic: asm.GenericDeclaration{ParameterCount: 1, Types: []asm.Ref{asm.Empty}, Functions: []asm.Ref{asm.Empty}, Constraints: []asm.Constraint{holderConstraint(trait2Id)}},
	}

	asmb := &asm.Assembly{
		Name:      "Test",
		Types:     []asm.TypeTemplate{v1, v2, holder1, holder2},
		Functions: []asm.FunctionTemplate{funcTmpl},
		Traits:    []asm.TraitTemplate{trait1, trait2},
	}
	e := NewEngine(asm.NewCatalog([]*asm.Assembly{asmb}), 8)

	v1t, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: v1Id})
	if err != nil {
		t.Fatalf("LoadType(V1) failed: %v", err)
	}
	// Force Func to a fully resolved, committed instance up front: trait
	// matching runs during constraint checking, before the request that
	// first discovers a function has drained its own post-load phase, so
	// a function only reached for the first time via the trait check
	// would still have a nil ReturnValue/Parameters at that point.
	if _, err := e.LoadFunction(LoadingArguments{Assembly: "Test", Id: funcId}); err != nil {
		t.Fatalf("LoadFunction(Func) failed: %v", err)
	}

	if _, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: holder1Id, Arguments: []*RuntimeType{v1t}}); err != nil {
		t.Fatalf("Holder1<V1> (Trait1 should admit) failed: %v", err)
	}

	_, err = e.LoadType(LoadingArguments{Assembly: "Test", Id: holder2Id, Arguments: []*RuntimeType{v1t}})
	if err == nil {
		t.Fatal("Holder2<V1> (Trait2 should reject): expected error, got nil")
	}
	code, ok := errors.CodeOf(err)
	if !ok || code != errors.LDR003 {
		t.Errorf("got error %v, want LDR003", err)
	}
}

func TestLoadTypeIdempotent(t *testing.T) {
	asmb := &asm.Assembly{
		Name:  "Test",
		Types: []asm.TypeTemplate{{Name: "Test.Single", GCMode: asm.Value, Generic: asm.GenericDeclaration{Types: []asm.Ref{asm.Empty}, Functions: []asm.Ref{asm.Empty}}}},
	}
	e := NewEngine(asm.NewCatalog([]*asm.Assembly{asmb}), 8)

	first, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: 0})
	if err != nil {
		t.Fatalf("first LoadType failed: %v", err)
	}
	second, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: 0})
	if err != nil {
		t.Fatalf("second LoadType failed: %v", err)
	}
	if first != second {
		t.Errorf("GetType not idempotent: %p != %p", first, second)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("idempotent loads differ structurally (-first +second):\n%s", diff)
	}
}

func TestGetTypeById(t *testing.T) {
	asmb := &asm.Assembly{
		Name:  "Test",
		Types: []asm.TypeTemplate{{Name: "Test.Single", GCMode: asm.Value, Generic: asm.GenericDeclaration{Types: []asm.Ref{asm.Empty}, Functions: []asm.Ref{asm.Empty}}}},
	}
	e := NewEngine(asm.NewCatalog([]*asm.Assembly{asmb}), 8)

	t1, err := e.LoadType(LoadingArguments{Assembly: "Test", Id: 0})
	if err != nil {
		t.Fatalf("LoadType failed: %v", err)
	}
	if e.GetTypeById(t1.Id) != t1 {
		t.Errorf("GetTypeById(%d) != the type just loaded", t1.Id)
	}
}
