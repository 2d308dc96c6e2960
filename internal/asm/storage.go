// Package asm is the assembly catalog: the passive, read-only store of
// type templates, function templates, and trait templates that the loader
// instantiates. It corresponds to the "Assembly" struct of the original
// acaly/RolLang C++ source (Assembly.h), translated into a Go data model.
// Nothing in this package resolves references or performs instantiation —
// that is internal/instantiate's job.
package asm

// StorageMode is the storage mode of a type template: it drives layout and
// which relations (base, interfaces, vtable, initializer, finalizer) are
// legal.
type StorageMode int

const (
	// Value types are laid out inline; they have size/alignment and may
	// have fields, a base type, and interfaces (via Box<T>).
	Value StorageMode = iota
	// Reference types are heap-allocated and accessed via pointer.
	Reference
	// Interface types are a pointer plus a vtable-offset; they have no
	// fields of their own and must declare a virtual table.
	Interface
	// Global types are singletons laid out like Value types but may
	// additionally carry an initializer; they have no base type, no
	// interfaces, and no vtable.
	Global
)

func (s StorageMode) String() string {
	switch s {
	case Value:
		return "Value"
	case Reference:
		return "Reference"
	case Interface:
		return "Interface"
	case Global:
		return "Global"
	default:
		return "Unknown"
	}
}
