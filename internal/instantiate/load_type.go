package instantiate

import (
	"github.com/rollang/rolloader/internal/asm"
	"github.com/rollang/rolloader/internal/errors"
)

func (e *Engine) typeEnvironment(t *RuntimeType, tmpl *asm.TypeTemplate) environment {
	return environment{
		declaration: &tmpl.Generic,
		assembly:    t.Args.Assembly,
		arguments:   t.Args.Arguments,
		selfType:    t,
	}
}

// loadFields lays out a type's fields: Interface-storage types have none
// (they carry only a vtable pointer and a data pointer), Global/Value/
// Reference types get their declared fields resolved and packed in
// declaration order.
func (e *Engine) loadFields(s *session, t *RuntimeType) error {
	if t.Storage == asm.Interface {
		return nil
	}
	tmpl := e.templateOf(t)
	if tmpl == nil {
		return errors.New(errors.LDR010)
	}
	env := e.typeEnvironment(t, tmpl)

	offset := 0
	maxAlign := 1
	fields := make([]Field, 0, len(tmpl.Fields))
	for _, fref := range tmpl.Fields {
		ft, _, err := e.resolveTypeRef(s, env, tmpl.Generic.Types, fref)
		if err != nil {
			return err
		}
		if ft == nil || ft.Storage == asm.Global {
			return errors.New(errors.LDR006)
		}
		if ft.Storage == asm.Value && onLayoutStack(s, ft) {
			return errors.New(errors.CST001)
		}
		align := ft.GetStorageAlignment(e.PointerSize)
		size := ft.GetStorageSize(e.PointerSize)
		if align <= 0 {
			return errors.New(errors.LDR006)
		}
		offset = alignUp(offset, align)
		fields = append(fields, Field{Type: ft, Offset: offset, Length: size})
		offset += size
		if align > maxAlign {
			maxAlign = align
		}
	}
	t.Fields = fields
	t.Size = alignUp(offset, maxAlign)
	t.Alignment = maxAlign
	return nil
}

func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}

// onLayoutStack reports whether t's fields are currently being laid out
// further up the call stack — i.e. resolving to t here would require t's
// own size to compute t's own size, a cyclic value-type dependency.
func onLayoutStack(s *session, t *RuntimeType) bool {
	for _, cur := range s.layoutStack {
		if cur == t {
			return true
		}
	}
	return false
}

// postLoadType resolves everything that depends on a type's fields being
// laid out but does not itself require the whole request to have
// finished: base type, vtable, interfaces, initializer, finalizer, and any
// force-loaded reference-list entries.
func (e *Engine) postLoadType(s *session, t *RuntimeType) error {
	tmpl := e.templateOf(t)
	if tmpl == nil {
		return errors.New(errors.LDR010)
	}
	env := e.typeEnvironment(t, tmpl)

	base, _, err := e.resolveTypeRef(s, env, tmpl.Generic.Types, tmpl.Base.InheritedType)
	if err != nil {
		return err
	}
	if base != nil && (t.Storage == asm.Interface || t.Storage == asm.Global) {
		return errors.New(errors.LDR009)
	}
	t.BaseType = base

	vtable, _, err := e.resolveTypeRef(s, env, tmpl.Generic.Types, tmpl.Base.VirtualTableType)
	if err != nil {
		return err
	}
	t.VirtualTableType = vtable
	if base != nil {
		if err := e.checkVirtualTable(base, vtable); err != nil {
			return err
		}
	}

	for _, ir := range tmpl.Interfaces {
		iface, _, err := e.resolveTypeRef(s, env, tmpl.Generic.Types, ir.InheritedType)
		if err != nil {
			return err
		}
		if iface == nil {
			continue
		}
		if t.Storage == asm.Global {
			return errors.New(errors.LDR009)
		}
		ivt, _, err := e.resolveTypeRef(s, env, tmpl.Generic.Types, ir.VirtualTableType)
		if err != nil {
			return err
		}
		t.Interfaces = append(t.Interfaces, InterfaceInfo{Type: iface, VirtualTable: ivt})
	}
	e.inheritInterfaces(t)

	initFn, _, err := e.resolveFunctionRef(s, env, tmpl.Generic.Functions, tmpl.Initializer)
	if err != nil {
		return err
	}
	if initFn != nil && t.Storage != asm.Global {
		return errors.New(errors.LDR007)
	}
	t.Initializer = initFn

	finFn, _, err := e.resolveFunctionRef(s, env, tmpl.Generic.Functions, tmpl.Finalizer)
	if err != nil {
		return err
	}
	if finFn != nil && t.Storage != asm.Reference {
		return errors.New(errors.LDR007)
	}
	t.Finalizer = finFn

	if err := e.forceLoadReferences(s, env, tmpl.Generic.Types, tmpl.Generic.Functions, &t.References); err != nil {
		return err
	}
	return e.checkSpecialType(t)
}

// inheritInterfaces appends the base type's interfaces that this type does
// not already declare directly, so a derived type's Interfaces field
// always reflects its full transitive interface set.
func (e *Engine) inheritInterfaces(t *RuntimeType) {
	if t.BaseType == nil {
		return
	}
	for _, bi := range t.BaseType.Interfaces {
		found := false
		for _, i := range t.Interfaces {
			if i.Type == bi.Type {
				found = true
				break
			}
		}
		if !found {
			t.Interfaces = append(t.Interfaces, bi)
		}
	}
}

// checkVirtualTable enforces the slot-prefix invariant: a derived type's
// vtable field layout must begin with exactly its base type's vtable
// fields, in the same order, so a caller holding a base-typed vtable
// pointer can always address the slots it knows about.
func (e *Engine) checkVirtualTable(base, vtable *RuntimeType) error {
	if base.VirtualTableType == nil {
		return nil
	}
	if vtable == nil {
		return errors.New(errors.LDR005)
	}
	baseFields := base.VirtualTableType.Fields
	if len(vtable.Fields) < len(baseFields) {
		return errors.New(errors.LDR005)
	}
	for i, bf := range baseFields {
		if vtable.Fields[i].Type != bf.Type {
			return errors.New(errors.LDR005)
		}
	}
	return nil
}

// forceLoadReferences eagerly resolves every reference-list entry marked
// with the force-load bit, populating refs so later on-demand reads never
// re-enter the pipeline.
func (e *Engine) forceLoadReferences(s *session, env environment, types, functions []asm.Ref, refs *ReferenceSet) error {
	for i, r := range types {
		if !r.Kind.Forced() {
			continue
		}
		rt, _, err := e.resolveTypeRef(s, env, types, i)
		if err != nil {
			return err
		}
		refs.setType(i, rt)
	}
	for i, r := range functions {
		if !r.Kind.Forced() {
			continue
		}
		rf, _, err := e.resolveFunctionRef(s, env, functions, i)
		if err != nil {
			return err
		}
		refs.setFunction(i, rf)
	}
	return nil
}

// finalCheckType runs once a type's base/interfaces/vtable are fully
// resolved: it patches Core.Pointer<Self> back-references and verifies
// initializer/finalizer signatures.
func (e *Engine) finalCheckType(s *session, t *RuntimeType) error {
	if e.isPointerTemplate(t.Args.Assembly, t.Args.Id) {
		if len(t.Args.Arguments) == 1 && t.Args.Arguments[0] != nil {
			t.Args.Arguments[0].PointerType = t
		}
	}
	if e.isBoxTemplate(t.Args.Assembly, t.Args.Id) {
		if len(t.Args.Arguments) != 1 || t.Args.Arguments[0] == nil || t.Args.Arguments[0].Storage != asm.Value {
			return errors.New(errors.LDR008)
		}
	}
	if t.Initializer != nil {
		if len(t.Initializer.Parameters) != 0 || t.Initializer.ReturnValue != nil {
			return errors.New(errors.LDR007)
		}
	}
	if t.Finalizer != nil {
		if len(t.Finalizer.Parameters) != 1 || t.Finalizer.Parameters[0] != t || t.Finalizer.ReturnValue != nil {
			return errors.New(errors.LDR007)
		}
	}
	return nil
}

// checkSpecialType validates arity/shape constraints on the two built-in
// generic templates the engine recognizes by export name, beyond what
// ordinary arity checking in loadTypeInternal already covers.
func (e *Engine) checkSpecialType(t *RuntimeType) error {
	if e.isPointerTemplate(t.Args.Assembly, t.Args.Id) && len(t.Args.Arguments) != 1 {
		return errors.New(errors.LDR008)
	}
	return nil
}
