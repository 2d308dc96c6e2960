package instantiate

import (
	"github.com/rollang/rolloader/internal/asm"
	"github.com/rollang/rolloader/internal/errors"
)

func (e *Engine) functionTemplateOf(f *RuntimeFunction) *asm.FunctionTemplate {
	if f.Args.Id < 0 {
		return nil
	}
	asmb := e.Catalog.Find(f.Args.Assembly)
	if asmb == nil || f.Args.Id >= len(asmb.Functions) {
		return nil
	}
	return &asmb.Functions[f.Args.Id]
}

// postLoadFunction resolves a function's signature, force-loaded
// references, and constant-import table. Unlike types, functions have no
// size to compute, so none of this needs to run eagerly; it is entirely
// safe to defer to the request's post-load phase.
func (e *Engine) postLoadFunction(s *session, f *RuntimeFunction) error {
	tmpl := e.functionTemplateOf(f)
	if tmpl == nil {
		return errors.New(errors.LDR010)
	}
	env := environment{declaration: &tmpl.Generic, assembly: f.Args.Assembly, arguments: f.Args.Arguments}

	ret, _, err := e.resolveTypeRef(s, env, tmpl.Generic.Types, tmpl.ReturnValue.TypeId)
	if err != nil {
		return err
	}
	f.ReturnValue = ret

	params := make([]*RuntimeType, len(tmpl.Parameters))
	for i, p := range tmpl.Parameters {
		pt, _, err := e.resolveTypeRef(s, env, tmpl.Generic.Types, p.TypeId)
		if err != nil {
			return err
		}
		params[i] = pt
	}
	f.Parameters = params

	if err := e.forceLoadReferences(s, env, tmpl.Generic.Types, tmpl.Generic.Functions, &f.References); err != nil {
		return err
	}

	if len(tmpl.Instructions) > 0 || len(tmpl.ConstantTable) > 0 {
		if err := e.resolveFunctionCode(s, env, tmpl, f); err != nil {
			return err
		}
	}
	return nil
}

// resolveFunctionCode materializes the shared FunctionCode for a function
// template (sharing it across every instantiation of that template, since
// bytecode and constant data never depend on the concrete type arguments)
// and rewrites constant-import entries to concrete values, resolved once
// per template rather than once per instantiation.
func (e *Engine) resolveFunctionCode(s *session, env environment, tmpl *asm.FunctionTemplate, f *RuntimeFunction) error {
	store := e.Catalog.Code()
	if code := store.Get(f.Args.Assembly, f.Args.Id); code != nil {
		f.Code = code
		return nil
	}

	table := make([]asm.ConstantTableEntry, len(tmpl.ConstantTable))
	copy(table, tmpl.ConstantTable)
	for i, entry := range tmpl.ConstantTable {
		if entry.Length != 0 {
			continue // not an import slot
		}
		val, err := e.resolveImportConstant(f.Args.Assembly, entry.Offset)
		if err != nil {
			return err
		}
		f.ReferencedFields = append(f.ReferencedFields, val)
		table[i] = asm.ConstantTableEntry{Offset: len(f.ReferencedFields) - 1, Length: -1}
	}

	code := &asm.FunctionCode{
		Assembly:      f.Args.Assembly,
		Id:            f.Args.Id,
		Instructions:  tmpl.Instructions,
		ConstantData:  tmpl.ConstantData,
		ConstantTable: table,
		Locals:        tmpl.Locals,
	}
	f.Code = store.Put(f.Args.Assembly, f.Args.Id, code)
	return nil
}
