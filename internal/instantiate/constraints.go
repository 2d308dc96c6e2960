package instantiate

import (
	"github.com/rollang/rolloader/internal/asm"
	"github.com/rollang/rolloader/internal/errors"
)

// constraintEnv pairs an outer environment with a constraint-local
// declaration. The checking code itself uses constraintEnvironment, which
// builds the same pairing as a plain environment.
type constraintEnv struct {
	outer environment
	decl  asm.GenericDeclaration
}

func (e *Engine) constraintEnvironment(env environment, c *asm.Constraint) environment {
	decl := *env.declaration
	decl.Types = c.TypeReferences
	decl.SubtypeNames = c.SubtypeNames
	ce := env
	ce.declaration = &decl
	return ce
}

// resolveConstraintRef resolves one constraint-local reference, reporting
// ok=false (not an error) when it bottoms out at an undeduced RefAny
// placeholder.
func (e *Engine) resolveConstraintRef(s *session, ce environment, idx int) (t *RuntimeType, ok bool, err error) {
	refs := ce.declaration.Types
	if idx < 0 || idx >= len(refs) {
		return nil, false, errors.New(errors.LDR001)
	}
	r := refs[idx]
	switch r.Kind.Base() {
	case asm.RefAny:
		if r.Index < 0 || r.Index >= len(ce.arguments) {
			return nil, false, errors.New(errors.LDR001)
		}
		if ce.arguments[r.Index] == nil {
			return nil, false, nil
		}
		return ce.arguments[r.Index], true, nil

	case asm.RefTry:
		t, _, err := e.resolveTypeRef(s, ce, refs, r.Index)
		if err != nil {
			return nil, true, nil // resolves to "constraint false", not fatal
		}
		return t, true, nil

	default:
		t, _, err := e.resolveTypeRef(s, ce, refs, idx)
		if err != nil {
			return nil, false, err
		}
		return t, true, nil
	}
}

// checkConstraints evaluates every constraint attached to a declaration
// against a candidate argument vector, deducing RefAny placeholders along
// the way. It runs to a fixed point: each pass resolves whatever it can
// and deduces whatever a Same constraint lets it, stopping when a pass
// makes no further progress or every constraint is satisfied.
func (e *Engine) checkConstraints(s *session, env environment, constraints []asm.Constraint) error {
	pending := make([]bool, len(constraints))
	for i := range pending {
		pending[i] = true
	}
	remaining := len(constraints)
	for remaining > 0 {
		progressed := false
		for i, c := range constraints {
			if !pending[i] {
				continue
			}
			done, err := e.checkOneConstraint(s, env, &c)
			if err != nil {
				return err
			}
			if done {
				pending[i] = false
				remaining--
				progressed = true
			}
		}
		if !progressed {
			return errors.New(errors.LDR003)
		}
	}
	return nil
}

// checkOneConstraint attempts one constraint, returning done=false (no
// error) if it still depends on an undeduced placeholder.
func (e *Engine) checkOneConstraint(s *session, env environment, c *asm.Constraint) (bool, error) {
	ce := e.constraintEnvironment(env, c)

	switch c.Kind {
	case asm.ConstraintExist:
		t, ok, err := e.resolveConstraintRef(s, ce, c.Target)
		if err != nil || !ok {
			return false, err
		}
		if t == nil {
			return false, errors.New(errors.LDR003)
		}
		return true, nil

	case asm.ConstraintSame:
		target, targetOk, err := e.resolveConstraintRef(s, ce, c.Target)
		if err != nil {
			return false, err
		}
		arg, argOk, err := e.resolveConstraintRef(s, ce, c.Arguments[0])
		if err != nil {
			return false, err
		}
		if !targetOk && !argOk {
			return false, nil
		}
		if targetOk && !argOk {
			if !e.deducePlaceholder(ce, c.Arguments[0], target) {
				return false, nil
			}
			return true, nil
		}
		if argOk && !targetOk {
			if !e.deducePlaceholder(ce, c.Target, arg) {
				return false, nil
			}
			return true, nil
		}
		if target != arg {
			return false, errors.New(errors.LDR003)
		}
		return true, nil

	case asm.ConstraintBase:
		target, targetOk, err := e.resolveConstraintRef(s, ce, c.Target)
		if err != nil || !targetOk {
			return false, err
		}
		base, baseOk, err := e.resolveConstraintRef(s, ce, c.Arguments[0])
		if err != nil || !baseOk {
			return false, err
		}
		if !isInBaseChain(target, base) {
			return false, errors.New(errors.LDR003)
		}
		return true, nil

	case asm.ConstraintInterface:
		target, targetOk, err := e.resolveConstraintRef(s, ce, c.Target)
		if err != nil || !targetOk {
			return false, err
		}
		iface, ifaceOk, err := e.resolveConstraintRef(s, ce, c.Arguments[0])
		if err != nil || !ifaceOk {
			return false, err
		}
		if !implementsInterface(target, iface) {
			return false, errors.New(errors.LDR003)
		}
		return true, nil

	case asm.ConstraintTraitAssembly:
		target, args, ready, err := e.resolveTraitTarget(s, ce, c)
		if err != nil || !ready {
			return false, err
		}
		asmb := e.Catalog.Find(env.assembly)
		if asmb == nil || c.TraitIndex < 0 || c.TraitIndex >= len(asmb.Traits) {
			return false, errors.New(errors.LDR010)
		}
		return e.checkTraitConstraint(s, c, env.assembly, &asmb.Traits[c.TraitIndex], target, args)

	case asm.ConstraintTraitImport:
		target, args, ready, err := e.resolveTraitTarget(s, ce, c)
		if err != nil || !ready {
			return false, err
		}
		traitAsm, traitIdx, err := e.resolveImportTrait(env.assembly, c.TraitImportIndex)
		if err != nil {
			return false, err
		}
		asmb := e.Catalog.Find(traitAsm)
		if asmb == nil || traitIdx < 0 || traitIdx >= len(asmb.Traits) {
			return false, errors.New(errors.LDR010)
		}
		return e.checkTraitConstraint(s, c, traitAsm, &asmb.Traits[traitIdx], target, args)

	default:
		return false, errors.New(errors.LDR003)
	}
}

// deducePlaceholder binds a RefAny slot to a concrete type. It never
// overwrites an already-bound slot; the caller only reaches it when the
// slot resolved as "undetermined", so this always succeeds in practice —
// the bool return exists so a future stricter caller can detect a race
// between two constraints deducing the same slot differently without a
// panic.
func (e *Engine) deducePlaceholder(ce environment, idx int, value *RuntimeType) bool {
	r := ce.declaration.Types[idx]
	if r.Kind.Base() != asm.RefAny {
		return false
	}
	if ce.arguments[r.Index] != nil {
		return ce.arguments[r.Index] == value
	}
	ce.arguments[r.Index] = value
	return true
}

func isInBaseChain(t, base *RuntimeType) bool {
	for cur := t; cur != nil; cur = cur.BaseType {
		if cur == base {
			return true
		}
	}
	return false
}

func implementsInterface(t, iface *RuntimeType) bool {
	for cur := t; cur != nil; cur = cur.BaseType {
		for _, i := range cur.Interfaces {
			if i.Type == iface {
				return true
			}
		}
	}
	return false
}

func (e *Engine) resolveImportTrait(assembly string, index int) (string, int, error) {
	asmb := e.Catalog.Find(assembly)
	if asmb == nil || index < 0 || index >= len(asmb.ImportTraits) {
		return "", 0, errors.New(errors.LDR010)
	}
	imp := asmb.ImportTraits[index]
	target := e.Catalog.Find(imp.AssemblyName)
	if target == nil {
		return "", 0, errors.New(errors.LDR010)
	}
	for _, exp := range target.ExportTraits {
		if namesEqual(exp.ExportName, imp.ImportName) && exp.InternalId < len(target.Traits) {
			return imp.AssemblyName, exp.InternalId, nil
		}
	}
	return "", 0, errors.New(errors.LDR010)
}

// checkTraitConstraint verifies target structurally satisfies trait: every
// required field and function must be present on target (searching its
// base chain) with a matching name and, for functions, a matching
// signature once the trait's own type references are bound against
// target.
//
// Overload resolution is intentionally simple: for a trait function with
// several same-named candidates on target, the first structurally
// compatible one wins and is bound; there is no backtracking across
// different trait functions if a later requirement then fails to match
// that choice. A real-world trait rarely overloads the member it
// constrains on, so this keeps the search linear instead of combinatorial.
func (e *Engine) checkTraitConstraint(s *session, c *asm.Constraint, traitAssembly string, trait *asm.TraitTemplate, target *RuntimeType, args []*RuntimeType) (bool, error) {
	tc := traitCheck{traitAssembly: traitAssembly, traitIndex: c.TraitIndex, importIndex: c.TraitImportIndex, target: target}
	pop, err := s.pushTraitAncestor(tc)
	if err != nil {
		return false, err
	}
	defer pop()

	traitEnv := environment{
		declaration: &trait.Generic,
		assembly:    traitAssembly,
		arguments:   args,
		selfType:    target,
	}

	for _, tf := range trait.Fields {
		fieldType, _, err := e.resolveTypeRef(s, traitEnv, trait.Generic.Types, tf.Type)
		if err != nil {
			return false, nil
		}
		if !e.hasMatchingField(target, tf.ElementName, fieldType) {
			return false, nil
		}
	}

	for _, tfn := range trait.Functions {
		retType, _, err := e.resolveTypeRef(s, traitEnv, trait.Generic.Types, tfn.ReturnType)
		if err != nil {
			return false, nil
		}
		params := make([]*RuntimeType, len(tfn.ParameterTypes))
		for i, pt := range tfn.ParameterTypes {
			params[i], _, err = e.resolveTypeRef(s, traitEnv, trait.Generic.Types, pt)
			if err != nil {
				return false, nil
			}
		}
		if _, ok := findMatchingFunction(e, s, target, tfn.ElementName, retType, params); !ok {
			return false, nil
		}
	}
	return true, nil
}

// resolveTraitTarget resolves the constraint's target and its trait
// generic arguments, reporting ready=false if any is still an undeduced
// placeholder.
func (e *Engine) resolveTraitTarget(s *session, ce environment, c *asm.Constraint) (target *RuntimeType, args []*RuntimeType, ready bool, err error) {
	target, ok, err := e.resolveConstraintRef(s, ce, c.Target)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	args = make([]*RuntimeType, len(c.Arguments))
	for i, a := range c.Arguments {
		v, ok, err := e.resolveConstraintRef(s, ce, a)
		if err != nil || !ok {
			return nil, nil, false, err
		}
		args[i] = v
	}
	return target, args, true, nil
}

func (e *Engine) hasMatchingField(target *RuntimeType, name string, fieldType *RuntimeType) bool {
	for cur := target; cur != nil; cur = cur.BaseType {
		tmpl := e.templateOf(cur)
		if tmpl == nil {
			continue
		}
		for _, pf := range tmpl.PublicFields {
			if namesEqual(pf.Name, name) && pf.Id < len(cur.Fields) && cur.Fields[pf.Id].Type == fieldType {
				return true
			}
		}
	}
	return false
}

func findMatchingFunction(e *Engine, s *session, target *RuntimeType, name string, ret *RuntimeType, params []*RuntimeType) (*RuntimeFunction, bool) {
	for cur := target; cur != nil; cur = cur.BaseType {
		tmpl := e.templateOf(cur)
		if tmpl == nil {
			continue
		}
		for _, pf := range tmpl.PublicFunctions {
			if !namesEqual(pf.Name, name) {
				continue
			}
			if pf.Id < 0 || pf.Id >= len(tmpl.Generic.Functions) {
				continue
			}
			fn, _, err := e.resolveFunctionRef(s, environment{
				declaration: &tmpl.Generic,
				assembly:    cur.Args.Assembly,
				arguments:   cur.Args.Arguments,
				selfType:    cur,
			}, tmpl.Generic.Functions, pf.Id)
			if err != nil || fn == nil {
				continue
			}
			if !signatureMatches(fn, ret, params) {
				continue
			}
			return fn, true
		}
	}
	return nil, false
}

func signatureMatches(fn *RuntimeFunction, ret *RuntimeType, params []*RuntimeType) bool {
	if fn.ReturnValue != ret || len(fn.Parameters) != len(params) {
		return false
	}
	for i, p := range params {
		if fn.Parameters[i] != p {
			return false
		}
	}
	return true
}
