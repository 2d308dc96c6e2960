// Package fixture supplies the one concrete, human-authorable wire format
// this repository commits to: a YAML document per assembly, unmarshaled
// with gopkg.in/yaml.v3 straight into internal/asm's template tables. It
// is grounded on the teacher's internal/eval_harness/spec.go (a YAML
// benchmark spec loaded with the same library into a single Go struct),
// applied here to assembly templates instead of evaluation expectations.
//
// This is not a general bytecode/assembly serialization format: no
// instruction encoding lives here beyond the raw byte/int slices the
// catalog already stores opaquely, and authors write the string forms of
// RefKind/StorageMode/ConstraintKind rather than numeric tags.
package fixture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rollang/rolloader/internal/asm"
)

// Document is the top-level shape of one fixture file: a list of
// assemblies, each self-contained aside from cross-assembly import
// references resolved by name at catalog-build time.
type Document struct {
	Assemblies []Assembly `yaml:"assemblies"`
}

// Assembly mirrors asm.Assembly with author-friendly field names and
// string-keyed enums in place of the runtime's numeric ones.
type Assembly struct {
	Name string `yaml:"name"`

	Types     []TypeTemplate     `yaml:"types"`
	Functions []FunctionTemplate `yaml:"functions"`
	Traits    []TraitTemplate    `yaml:"traits"`

	ImportTypes     []Import `yaml:"import_types"`
	ImportFunctions []Import `yaml:"import_functions"`
	ImportConstants []Import `yaml:"import_constants"`
	ImportTraits    []Import `yaml:"import_traits"`

	ExportTypes     []Export `yaml:"export_types"`
	ExportFunctions []Export `yaml:"export_functions"`
	ExportConstants []Export `yaml:"export_constants"`
	ExportTraits    []Export `yaml:"export_traits"`

	Constants []uint32 `yaml:"constants"`

	NativeTypes     map[string]int `yaml:"native_types"`
	NativeFunctions map[string]int `yaml:"native_functions"`
}

// Import mirrors asm.Import. GenericParameters defaults to asm.AnyArity
// (-1) when omitted, so most fixtures never need to spell it out.
type Import struct {
	Assembly          string `yaml:"assembly"`
	Name              string `yaml:"name"`
	GenericParameters *int   `yaml:"arity,omitempty"`
}

// Export mirrors asm.Export.
type Export struct {
	Name       string `yaml:"name"`
	InternalId int    `yaml:"id"`
}

// Ref mirrors asm.Ref with Kind spelled as the REF_* name (case-
// insensitive), optionally OR-ing the force-load bit via Force.
type Ref struct {
	Kind  string `yaml:"kind"`
	Index int    `yaml:"index"`
	Force bool   `yaml:"force,omitempty"`
}

// GenericDeclaration mirrors asm.GenericDeclaration.
type GenericDeclaration struct {
	Parameters   int          `yaml:"parameters"`
	Types        []Ref        `yaml:"types"`
	Functions    []Ref        `yaml:"functions"`
	Constraints  []Constraint `yaml:"constraints"`
	SubtypeNames []string     `yaml:"subtype_names"`
}

// Constraint mirrors asm.Constraint.
type Constraint struct {
	Kind             string   `yaml:"kind"`
	TypeReferences   []Ref    `yaml:"type_references"`
	Target           int      `yaml:"target"`
	Arguments        []int    `yaml:"arguments"`
	TraitIndex       int      `yaml:"trait_index,omitempty"`
	TraitImportIndex int      `yaml:"trait_import_index,omitempty"`
	SubtypeNames     []string `yaml:"subtype_names,omitempty"`
}

// PublicMember mirrors asm.PublicMember.
type PublicMember struct {
	Name string `yaml:"name"`
	Id   int    `yaml:"id"`
}

// BaseInfo mirrors asm.BaseInfo. A zero value (both indices 0, i.e. "the
// first type reference") is indistinguishable from "no base" in this
// struct alone; fixtures that want no base/vtable point these indices at
// an explicit REF_EMPTY entry, exactly like the template's own reference
// list does.
type BaseInfo struct {
	InheritedType    int `yaml:"inherited_type"`
	VirtualTableType int `yaml:"virtual_table_type"`
}

// InterfaceRef mirrors asm.InterfaceRef.
type InterfaceRef struct {
	InheritedType    int `yaml:"inherited_type"`
	VirtualTableType int `yaml:"virtual_table_type"`
}

// TypeTemplate mirrors asm.TypeTemplate.
type TypeTemplate struct {
	Name    string              `yaml:"name"`
	Generic GenericDeclaration  `yaml:"generic"`
	Storage string              `yaml:"storage"`

	Fields []int `yaml:"fields"`

	Base       BaseInfo       `yaml:"base"`
	Interfaces []InterfaceRef `yaml:"interfaces"`

	Initializer int `yaml:"initializer"`
	Finalizer   int `yaml:"finalizer"`

	PublicFields    []PublicMember `yaml:"public_fields"`
	PublicFunctions []PublicMember `yaml:"public_functions"`
	Subtypes        []PublicMember `yaml:"subtypes"`
}

// TypedRef mirrors asm.TypedRef.
type TypedRef struct {
	TypeId int `yaml:"type_id"`
}

// ConstantTableEntry mirrors asm.ConstantTableEntry.
type ConstantTableEntry struct {
	Offset int `yaml:"offset"`
	Length int `yaml:"length"`
}

// FunctionTemplate mirrors asm.FunctionTemplate.
type FunctionTemplate struct {
	Name    string             `yaml:"name"`
	Generic GenericDeclaration `yaml:"generic"`

	ReturnValue TypedRef   `yaml:"return_value"`
	Parameters  []TypedRef `yaml:"parameters"`

	Instructions  []byte               `yaml:"instructions,omitempty"`
	ConstantData  []byte               `yaml:"constant_data,omitempty"`
	ConstantTable []ConstantTableEntry `yaml:"constant_table,omitempty"`
	Locals        []int                `yaml:"locals,omitempty"`
}

// TraitField mirrors asm.TraitField.
type TraitField struct {
	ElementName string `yaml:"name"`
	Type        int    `yaml:"type"`
}

// TraitFunction mirrors asm.TraitFunction.
type TraitFunction struct {
	ElementName    string `yaml:"name"`
	ReturnType     int    `yaml:"return_type"`
	ParameterTypes []int  `yaml:"parameter_types"`
}

// TraitTemplate mirrors asm.TraitTemplate.
type TraitTemplate struct {
	Name      string             `yaml:"name"`
	Generic   GenericDeclaration `yaml:"generic"`
	Fields    []TraitField       `yaml:"fields"`
	Functions []TraitFunction    `yaml:"functions"`
}

// Load reads and parses a fixture file into a catalog, ready to hand to
// loader.New. It does not itself instantiate anything — building the
// Catalog is purely a data-translation step, so a malformed enum string
// (an unrecognized storage mode or ref kind) is the only way this can
// fail beyond the underlying YAML/file errors.
func Load(path string) (*asm.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fixture: parse %s: %w", path, err)
	}
	return doc.Build()
}

// Build converts a parsed Document into an asm.Catalog.
func (d Document) Build() (*asm.Catalog, error) {
	assemblies := make([]*asm.Assembly, 0, len(d.Assemblies))
	for _, a := range d.Assemblies {
		built, err := a.build()
		if err != nil {
			return nil, fmt.Errorf("fixture: assembly %q: %w", a.Name, err)
		}
		assemblies = append(assemblies, built)
	}
	return asm.NewCatalog(assemblies), nil
}

func (a Assembly) build() (*asm.Assembly, error) {
	out := &asm.Assembly{
		Name:            a.Name,
		Constants:       a.Constants,
		NativeTypes:     a.NativeTypes,
		NativeFunctions: a.NativeFunctions,
	}

	for _, t := range a.Types {
		built, err := t.build()
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", t.Name, err)
		}
		out.Types = append(out.Types, built)
	}
	for _, f := range a.Functions {
		built, err := f.build()
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", f.Name, err)
		}
		out.Functions = append(out.Functions, built)
	}
	for _, tr := range a.Traits {
		built, err := tr.build()
		if err != nil {
			return nil, fmt.Errorf("trait %q: %w", tr.Name, err)
		}
		out.Traits = append(out.Traits, built)
	}

	out.ImportTypes = buildImports(a.ImportTypes)
	out.ImportFunctions = buildImports(a.ImportFunctions)
	out.ImportConstants = buildImports(a.ImportConstants)
	out.ImportTraits = buildImports(a.ImportTraits)

	out.ExportTypes = buildExports(a.ExportTypes)
	out.ExportFunctions = buildExports(a.ExportFunctions)
	out.ExportConstants = buildExports(a.ExportConstants)
	out.ExportTraits = buildExports(a.ExportTraits)

	return out, nil
}

func buildImports(in []Import) []asm.Import {
	out := make([]asm.Import, len(in))
	for i, imp := range in {
		arity := asm.AnyArity
		if imp.GenericParameters != nil {
			arity = *imp.GenericParameters
		}
		out[i] = asm.Import{AssemblyName: imp.Assembly, ImportName: imp.Name, GenericParameters: arity}
	}
	return out
}

func buildExports(in []Export) []asm.Export {
	out := make([]asm.Export, len(in))
	for i, exp := range in {
		out[i] = asm.Export{ExportName: exp.Name, InternalId: exp.InternalId}
	}
	return out
}

func buildMembers(in []PublicMember) []asm.PublicMember {
	out := make([]asm.PublicMember, len(in))
	for i, m := range in {
		out[i] = asm.PublicMember{Name: m.Name, Id: m.Id}
	}
	return out
}

func (g GenericDeclaration) build() (asm.GenericDeclaration, error) {
	types, err := buildRefs(g.Types)
	if err != nil {
		return asm.GenericDeclaration{}, err
	}
	functions, err := buildRefs(g.Functions)
	if err != nil {
		return asm.GenericDeclaration{}, err
	}
	constraints := make([]asm.Constraint, len(g.Constraints))
	for i, c := range g.Constraints {
		built, err := c.build()
		if err != nil {
			return asm.GenericDeclaration{}, err
		}
		constraints[i] = built
	}
	return asm.GenericDeclaration{
		ParameterCount: g.Parameters,
		Types:          types,
		Functions:      functions,
		Constraints:    constraints,
		SubtypeNames:   g.SubtypeNames,
	}, nil
}

func (c Constraint) build() (asm.Constraint, error) {
	kind, err := parseConstraintKind(c.Kind)
	if err != nil {
		return asm.Constraint{}, err
	}
	refs, err := buildRefs(c.TypeReferences)
	if err != nil {
		return asm.Constraint{}, err
	}
	return asm.Constraint{
		Kind:             kind,
		TypeReferences:   refs,
		Target:           c.Target,
		Arguments:        c.Arguments,
		TraitIndex:       c.TraitIndex,
		TraitImportIndex: c.TraitImportIndex,
		SubtypeNames:     c.SubtypeNames,
	}, nil
}

func buildRefs(in []Ref) ([]asm.Ref, error) {
	out := make([]asm.Ref, len(in))
	for i, r := range in {
		kind, err := parseRefKind(r.Kind)
		if err != nil {
			return nil, err
		}
		if r.Force {
			kind |= asm.ForceLoad
		}
		out[i] = asm.Ref{Kind: kind, Index: r.Index}
	}
	return out, nil
}

func (t TypeTemplate) build() (asm.TypeTemplate, error) {
	generic, err := t.Generic.build()
	if err != nil {
		return asm.TypeTemplate{}, err
	}
	storage, err := parseStorageMode(t.Storage)
	if err != nil {
		return asm.TypeTemplate{}, err
	}
	interfaces := make([]asm.InterfaceRef, len(t.Interfaces))
	for i, ir := range t.Interfaces {
		interfaces[i] = asm.InterfaceRef{InheritedType: ir.InheritedType, VirtualTableType: ir.VirtualTableType}
	}
	return asm.TypeTemplate{
		Name:            t.Name,
		Generic:         generic,
		GCMode:          storage,
		Fields:          t.Fields,
		Base:            asm.BaseInfo{InheritedType: t.Base.InheritedType, VirtualTableType: t.Base.VirtualTableType},
		Interfaces:      interfaces,
		Initializer:     t.Initializer,
		Finalizer:       t.Finalizer,
		PublicFields:    buildMembers(t.PublicFields),
		PublicFunctions: buildMembers(t.PublicFunctions),
		Subtypes:        buildMembers(t.Subtypes),
	}, nil
}

func (f FunctionTemplate) build() (asm.FunctionTemplate, error) {
	generic, err := f.Generic.build()
	if err != nil {
		return asm.FunctionTemplate{}, err
	}
	params := make([]asm.TypedRef, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = asm.TypedRef{TypeId: p.TypeId}
	}
	table := make([]asm.ConstantTableEntry, len(f.ConstantTable))
	for i, e := range f.ConstantTable {
		table[i] = asm.ConstantTableEntry{Offset: e.Offset, Length: e.Length}
	}
	return asm.FunctionTemplate{
		Name:          f.Name,
		Generic:       generic,
		ReturnValue:   asm.TypedRef{TypeId: f.ReturnValue.TypeId},
		Parameters:    params,
		Instructions:  f.Instructions,
		ConstantData:  f.ConstantData,
		ConstantTable: table,
		Locals:        f.Locals,
	}, nil
}

func (t TraitTemplate) build() (asm.TraitTemplate, error) {
	generic, err := t.Generic.build()
	if err != nil {
		return asm.TraitTemplate{}, err
	}
	fields := make([]asm.TraitField, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = asm.TraitField{ElementName: f.ElementName, Type: f.Type}
	}
	functions := make([]asm.TraitFunction, len(t.Functions))
	for i, f := range t.Functions {
		functions[i] = asm.TraitFunction{ElementName: f.ElementName, ReturnType: f.ReturnType, ParameterTypes: f.ParameterTypes}
	}
	return asm.TraitTemplate{Name: t.Name, Generic: generic, Fields: fields, Functions: functions}, nil
}
