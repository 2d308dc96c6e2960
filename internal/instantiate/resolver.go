package instantiate

import (
	"github.com/rollang/rolloader/internal/asm"
	"github.com/rollang/rolloader/internal/errors"
)

// findCommittedType scans already-committed storage for a matching
// instantiation. Committed ids are dense but small in practice (one entry
// per distinct instantiation a process ever makes), so a linear scan here
// is simpler than maintaining a second index and keeps the committed
// store append-only.
func (e *Engine) findCommittedType(args LoadingArguments) *RuntimeType {
	for _, t := range e.types[1:] {
		if t != nil && t.Args.Equal(args) {
			return t
		}
	}
	return nil
}

func (e *Engine) findCommittedFunction(args LoadingArguments) *RuntimeFunction {
	for _, f := range e.functions[1:] {
		if f != nil && f.Args.Equal(args) {
			return f
		}
	}
	return nil
}

// loadTypeInternal resolves one (assembly, id, arguments) instantiation to
// a *RuntimeType, creating and queuing a new one if this is the first time
// this request (or a prior commit) has seen it. The returned pointer is
// stable even before layout/post-load complete, which is what lets
// reference-storage cycles (T containing a field of type T) terminate.
func (e *Engine) loadTypeInternal(s *session, args LoadingArguments) (*RuntimeType, error) {
	if t := e.findCommittedType(args); t != nil {
		return t, nil
	}
	if t := s.findType(args); t != nil {
		return t, nil
	}

	asmb := e.Catalog.Find(args.Assembly)
	if asmb == nil || args.Id < 0 || args.Id >= len(asmb.Types) {
		return nil, errors.New(errors.LDR010)
	}
	tmpl := &asmb.Types[args.Id]
	if tmpl.Generic.ParameterCount != len(args.Arguments) {
		return nil, errors.New(errors.LDR003)
	}
	for _, a := range args.Arguments {
		if a == nil {
			return nil, errors.New(errors.LDR003)
		}
	}

	t := &RuntimeType{Args: args, Storage: tmpl.GCMode}
	// Registered before constraint checking and field layout so a
	// self-referential (Reference-storage) template finds its own
	// in-flight instance instead of recursing forever.
	s.typesByArgs = append(s.typesByArgs, t)
	if err := s.charge(); err != nil {
		return nil, err
	}

	env := environment{declaration: &tmpl.Generic, assembly: args.Assembly, arguments: args.Arguments, selfType: t}
	pop, err := s.pushConstraintChecking(args)
	if err != nil {
		return nil, err
	}
	err = e.checkConstraints(s, env, tmpl.Generic.Constraints)
	pop()
	if err != nil {
		return nil, err
	}

	s.layoutStack = append(s.layoutStack, t)
	err = e.loadFields(s, t)
	s.layoutStack = s.layoutStack[:len(s.layoutStack)-1]
	if err != nil {
		return nil, err
	}
	s.postLoadQueue = append(s.postLoadQueue, t)
	return t, nil
}

// loadFunctionInternal mirrors loadTypeInternal for functions: functions
// have no self type (their environment's selfType is nil unless the
// caller supplies one via an enclosing type's environment), and queue onto
// loadingFunctions instead of the type stack.
func (e *Engine) loadFunctionInternal(s *session, args LoadingArguments) (*RuntimeFunction, error) {
	if f := e.findCommittedFunction(args); f != nil {
		return f, nil
	}
	if f := s.findFunction(args); f != nil {
		return f, nil
	}

	asmb := e.Catalog.Find(args.Assembly)
	if asmb == nil || args.Id < 0 || args.Id >= len(asmb.Functions) {
		return nil, errors.New(errors.LDR010)
	}
	tmpl := &asmb.Functions[args.Id]
	if tmpl.Generic.ParameterCount != len(args.Arguments) {
		return nil, errors.New(errors.LDR003)
	}
	for _, a := range args.Arguments {
		if a == nil {
			return nil, errors.New(errors.LDR003)
		}
	}

	f := &RuntimeFunction{Args: args}
	s.functionsByArgs = append(s.functionsByArgs, f)
	if err := s.charge(); err != nil {
		return nil, err
	}

	env := environment{declaration: &tmpl.Generic, assembly: args.Assembly, arguments: args.Arguments}
	pop, err := s.pushConstraintChecking(args)
	if err != nil {
		return nil, err
	}
	err = e.checkConstraints(s, env, tmpl.Generic.Constraints)
	pop()
	if err != nil {
		return nil, err
	}

	s.loadingFunctions = append(s.loadingFunctions, f)
	return f, nil
}

// loadSubtypeInternal resolves a named subtype navigated through a parent
// type. The target template lives in the parent's own assembly, and the
// result is the ordinary instantiation of that template with the subtype's
// arguments: dedup goes through loadTypeInternal on LoadingArguments, so
// two parents mapping the name to the same template id share one instance
// for equal arguments.
func (e *Engine) loadSubtypeInternal(s *session, sub SubtypeLoadingArguments) (*RuntimeType, error) {
	asmb := e.Catalog.Find(sub.Parent.Args.Assembly)
	if asmb == nil {
		return nil, errors.New(errors.LDR010)
	}
	parentTmpl := e.templateOf(sub.Parent)
	if parentTmpl == nil {
		return nil, errors.New(errors.LDR010)
	}
	for _, m := range parentTmpl.Subtypes {
		if namesEqual(m.Name, sub.Name) {
			return e.loadTypeInternal(s, LoadingArguments{
				Assembly:  sub.Parent.Args.Assembly,
				Id:        m.Id,
				Arguments: sub.Arguments,
			})
		}
	}
	return nil, errors.New(errors.LDR010)
}

func (e *Engine) templateOf(t *RuntimeType) *asm.TypeTemplate {
	if t.Args.Id < 0 {
		return nil
	}
	asmb := e.Catalog.Find(t.Args.Assembly)
	if asmb == nil || t.Args.Id >= len(asmb.Types) {
		return nil
	}
	return &asmb.Types[t.Args.Id]
}

// resolveTypeRef resolves refs[pos] as a type reference under env,
// returning the resolved type and the index of the first entry past what
// it consumed (RefAssembly/RefImport/RefSubtype consume a trailing
// argument run terminated by RefListEnd; everything else consumes exactly
// one entry).
func (e *Engine) resolveTypeRef(s *session, env environment, refs []asm.Ref, pos int) (*RuntimeType, int, error) {
	if pos >= len(refs) {
		return nil, pos, errors.New(errors.LDR001)
	}
	r := refs[pos]
	switch r.Kind.Base() {
	case asm.RefEmpty:
		return nil, pos + 1, nil

	case asm.RefClone:
		t, _, err := e.resolveTypeRef(s, env, refs, r.Index)
		return t, pos + 1, err

	case asm.RefSelf:
		if env.selfType == nil {
			return nil, pos, errors.New(errors.LDR001)
		}
		return env.selfType, pos + 1, nil

	case asm.RefArgument:
		if r.Index < 0 || r.Index >= len(env.arguments) {
			return nil, pos, errors.New(errors.LDR001)
		}
		return env.arguments[r.Index], pos + 1, nil

	case asm.RefArgumentSeg:
		// Continuation of a parameter pack: indexed from the tail of the
		// bound argument vector rather than from its head.
		base := len(env.arguments) - env.declaration.ParameterCount
		i := base + r.Index
		if base < 0 || i < 0 || i >= len(env.arguments) {
			return nil, pos, errors.New(errors.LDR001)
		}
		return env.arguments[i], pos + 1, nil

	case asm.RefAssembly:
		args, next, err := e.resolveArgRun(s, env, refs, pos+1)
		if err != nil {
			return nil, pos, err
		}
		t, err := e.loadTypeInternal(s, LoadingArguments{Assembly: env.assembly, Id: r.Index, Arguments: args})
		return t, next, err

	case asm.RefImport:
		targetAsm, targetId, err := e.resolveImportType(env.assembly, r.Index)
		if err != nil {
			return nil, pos, err
		}
		args, next, err := e.resolveArgRun(s, env, refs, pos+1)
		if err != nil {
			return nil, pos, err
		}
		if arity := e.Catalog.Find(env.assembly).ImportTypes[r.Index].GenericParameters; arity != asm.AnyArity && arity != len(args) {
			return nil, pos, errors.New(errors.LDR003)
		}
		t, err := e.loadTypeInternal(s, LoadingArguments{Assembly: targetAsm, Id: targetId, Arguments: args})
		return t, next, err

	case asm.RefSubtype:
		parent, next, err := e.resolveTypeRef(s, env, refs, pos+1)
		if err != nil {
			return nil, pos, err
		}
		args, next2, err := e.resolveArgRun(s, env, refs, next)
		if err != nil {
			return nil, pos, err
		}
		if r.Index < 0 || r.Index >= len(env.declaration.SubtypeNames) {
			return nil, pos, errors.New(errors.LDR001)
		}
		name := env.declaration.SubtypeNames[r.Index]
		t, err := e.loadSubtypeInternal(s, SubtypeLoadingArguments{Parent: parent, Name: name, Arguments: args})
		return t, next2, err

	case asm.RefConstraint:
		t, err := e.resolveConstraintMemberType(env, r.Index)
		return t, pos + 1, err

	case asm.RefCloneType:
		if r.Index < 0 || r.Index >= len(env.declaration.Types) {
			return nil, pos, errors.New(errors.LDR001)
		}
		t, _, err := e.resolveTypeRef(s, env, env.declaration.Types, r.Index)
		return t, pos + 1, err

	default:
		return nil, pos, errors.New(errors.LDR001)
	}
}

// resolveArgRun parses a run of argument references starting at pos,
// terminated by a RefListEnd entry, returning the resolved arguments and
// the index just past the terminator.
func (e *Engine) resolveArgRun(s *session, env environment, refs []asm.Ref, pos int) ([]*RuntimeType, int, error) {
	var args []*RuntimeType
	for {
		if pos >= len(refs) {
			return nil, pos, errors.New(errors.LDR001)
		}
		if refs[pos].Kind.Base() == asm.RefListEnd {
			return args, pos + 1, nil
		}
		t, next, err := e.resolveTypeRef(s, env, refs, pos)
		if err != nil {
			return nil, pos, err
		}
		args = append(args, t)
		pos = next
	}
}

// resolveImportType follows assembly.ImportTypes[index] to its target,
// chasing transparent re-exports until it lands on a concretely declared
// template.
func (e *Engine) resolveImportType(assembly string, index int) (string, int, error) {
	asmb := e.Catalog.Find(assembly)
	if asmb == nil || index < 0 || index >= len(asmb.ImportTypes) {
		return "", 0, errors.New(errors.LDR010)
	}
	imp := asmb.ImportTypes[index]
	return e.findExportType(imp.AssemblyName, imp.ImportName, 0)
}

// findExportType resolves an exported type name within an assembly,
// following a bounded chain of re-exports.
func (e *Engine) findExportType(assembly, name string, depth int) (string, int, error) {
	if depth > 32 {
		return "", 0, errors.New(errors.LDR010)
	}
	asmb := e.Catalog.Find(assembly)
	if asmb == nil {
		return "", 0, errors.New(errors.LDR010)
	}
	for _, exp := range asmb.ExportTypes {
		if !namesEqual(exp.ExportName, name) {
			continue
		}
		if exp.InternalId < len(asmb.Types) {
			return assembly, exp.InternalId, nil
		}
		impIdx := exp.InternalId - len(asmb.Types)
		if impIdx < 0 || impIdx >= len(asmb.ImportTypes) {
			return "", 0, errors.New(errors.LDR010)
		}
		imp := asmb.ImportTypes[impIdx]
		return e.findExportType(imp.AssemblyName, imp.ImportName, depth+1)
	}
	return "", 0, errors.New(errors.LDR010)
}

// resolveConstraintMemberType resolves RefConstraint in type positions by
// indexing env.constraintTypeBindings. No code in this package sets those
// bindings (checkTraitConstraint matches trait members against the target
// directly and does not record them on env), so a RefConstraint type
// reference always fails with LDR001; names are not looked up.
func (e *Engine) resolveConstraintMemberType(env environment, index int) (*RuntimeType, error) {
	if env.constraintTypeBindings == nil || index < 0 || index >= len(env.constraintTypeBindings) {
		return nil, errors.New(errors.LDR001)
	}
	return env.constraintTypeBindings[index], nil
}

// resolveFunctionRef resolves refs[pos] as a function reference under env.
func (e *Engine) resolveFunctionRef(s *session, env environment, refs []asm.Ref, pos int) (*RuntimeFunction, int, error) {
	if pos >= len(refs) {
		return nil, pos, errors.New(errors.LDR002)
	}
	r := refs[pos]
	switch r.Kind.Base() {
	case asm.RefEmpty:
		return nil, pos + 1, nil

	case asm.RefClone:
		f, _, err := e.resolveFunctionRef(s, env, refs, r.Index)
		return f, pos + 1, err

	case asm.RefAssembly:
		args, next, err := e.resolveArgRun(s, env, refs, pos+1)
		if err != nil {
			return nil, pos, err
		}
		f, err := e.loadFunctionInternal(s, LoadingArguments{Assembly: env.assembly, Id: r.Index, Arguments: args})
		return f, next, err

	case asm.RefImport:
		targetAsm, targetId, err := e.resolveImportFunction(env.assembly, r.Index)
		if err != nil {
			return nil, pos, err
		}
		args, next, err := e.resolveArgRun(s, env, refs, pos+1)
		if err != nil {
			return nil, pos, err
		}
		if arity := e.Catalog.Find(env.assembly).ImportFunctions[r.Index].GenericParameters; arity != asm.AnyArity && arity != len(args) {
			return nil, pos, errors.New(errors.LDR003)
		}
		f, err := e.loadFunctionInternal(s, LoadingArguments{Assembly: targetAsm, Id: targetId, Arguments: args})
		return f, next, err

	case asm.RefConstraint:
		f, err := e.resolveConstraintMemberFunction(env, r.Index)
		return f, pos + 1, err

	default:
		return nil, pos, errors.New(errors.LDR002)
	}
}

func (e *Engine) resolveImportFunction(assembly string, index int) (string, int, error) {
	asmb := e.Catalog.Find(assembly)
	if asmb == nil || index < 0 || index >= len(asmb.ImportFunctions) {
		return "", 0, errors.New(errors.LDR010)
	}
	imp := asmb.ImportFunctions[index]
	return e.findExportFunction(imp.AssemblyName, imp.ImportName, 0)
}

func (e *Engine) findExportFunction(assembly, name string, depth int) (string, int, error) {
	if depth > 32 {
		return "", 0, errors.New(errors.LDR010)
	}
	asmb := e.Catalog.Find(assembly)
	if asmb == nil {
		return "", 0, errors.New(errors.LDR010)
	}
	for _, exp := range asmb.ExportFunctions {
		if !namesEqual(exp.ExportName, name) {
			continue
		}
		if exp.InternalId < len(asmb.Functions) {
			return assembly, exp.InternalId, nil
		}
		impIdx := exp.InternalId - len(asmb.Functions)
		if impIdx < 0 || impIdx >= len(asmb.ImportFunctions) {
			return "", 0, errors.New(errors.LDR010)
		}
		imp := asmb.ImportFunctions[impIdx]
		return e.findExportFunction(imp.AssemblyName, imp.ImportName, depth+1)
	}
	return "", 0, errors.New(errors.LDR010)
}

func (e *Engine) resolveConstraintMemberFunction(env environment, index int) (*RuntimeFunction, error) {
	if env.constraintFuncBindings == nil || index < 0 || index >= len(env.constraintFuncBindings) {
		return nil, errors.New(errors.LDR002)
	}
	return env.constraintFuncBindings[index], nil
}

// resolveImportConstant reads a constant through an assembly's
// ImportConstants table, chasing re-exports the same way types/functions
// do.
func (e *Engine) resolveImportConstant(assembly string, index int) (uint32, error) {
	asmb := e.Catalog.Find(assembly)
	if asmb == nil || index < 0 || index >= len(asmb.ImportConstants) {
		return 0, errors.New(errors.LDR010)
	}
	imp := asmb.ImportConstants[index]
	return e.findExportConstant(imp.AssemblyName, imp.ImportName, 0)
}

func (e *Engine) findExportConstant(assembly, name string, depth int) (uint32, error) {
	if depth > 32 {
		return 0, errors.New(errors.LDR010)
	}
	asmb := e.Catalog.Find(assembly)
	if asmb == nil {
		return 0, errors.New(errors.LDR010)
	}
	for _, exp := range asmb.ExportConstants {
		if !namesEqual(exp.ExportName, name) {
			continue
		}
		if exp.InternalId < len(asmb.Constants) {
			return asmb.Constants[exp.InternalId], nil
		}
		impIdx := exp.InternalId - len(asmb.Constants)
		if impIdx < 0 || impIdx >= len(asmb.ImportConstants) {
			return 0, errors.New(errors.LDR010)
		}
		imp := asmb.ImportConstants[impIdx]
		return e.findExportConstant(imp.AssemblyName, imp.ImportName, depth+1)
	}
	return 0, errors.New(errors.LDR010)
}
