package instantiate

import (
	"github.com/rollang/rolloader/internal/asm"
	"github.com/rollang/rolloader/internal/errors"
)

// defaultLoadingLimit bounds how many types+functions one request may push
// through the pipeline before it gives up on a runaway instantiation chain
// (infinite expansion through e.g. Core.Pointer<Core.Pointer<Core.Pointer<...>>>).
const defaultLoadingLimit = 256

// environment is the context a reference is resolved under: which
// declaration's reference list is being read, the concrete arguments bound
// to its generic parameters, and (for type bodies) the self type.
type environment struct {
	declaration *asm.GenericDeclaration
	assembly    string
	arguments   []*RuntimeType
	selfType    *RuntimeType

	// constraintTypeBindings/constraintFuncBindings are what a
	// RefConstraint entry indexes into. Nothing in this package populates
	// them, so RefConstraint references fail with LDR001 (type position)
	// or LDR002 (function position).
	constraintTypeBindings []*RuntimeType
	constraintFuncBindings []*RuntimeFunction
}

// session is per-request pipeline state. Field layout is synchronous and
// recursive (a Value-storage field's size has to be known before its
// owner's own size is), so the only real "stack" is layoutStack, which
// exists purely for cycle detection — it mirrors the Go call stack of
// nested loadFields calls. Everything that can safely wait until the
// whole reference graph for this request is known (base/interface/vtable
// resolution, final checks, function post-load) is queued instead and
// drained breadth-first by Engine.drain once the initial synchronous call
// returns.
type session struct {
	loadingLimit int
	objectCount  int

	// layoutStack holds the types currently mid-loadFields, in call order.
	// A Value-storage field resolving to one of these is a cyclic value
	// dependency (CST001); a Reference/Interface-storage field resolving
	// to one is an ordinary forward or self reference.
	layoutStack []*RuntimeType

	// postLoadQueue holds types whose fields are laid out but whose
	// base/interfaces/vtable/initializer/finalizer are not yet resolved.
	// Draining it can append further entries (postLoadType can discover
	// new types), so it is processed to exhaustion, FIFO.
	postLoadQueue []*RuntimeType

	// finalCheckQueue holds types that passed postLoadType and are
	// waiting on finalCheckType (Pointer<T> patch-back, init/finalizer
	// signature checks).
	finalCheckQueue []*RuntimeType

	loadingFunctions []*RuntimeFunction

	finishedLoadingTypes     []*RuntimeType
	finishedLoadingFunctions []*RuntimeFunction

	// typesByArgs/functionsByArgs dedupe in-flight instantiations within
	// this request so a diamond-shaped reference graph only instantiates
	// each (assembly, id, arguments) once.
	typesByArgs     []*RuntimeType
	functionsByArgs []*RuntimeFunction

	// constraintChecking guards against a constraint check re-entering
	// its own loading arguments (CST002).
	constraintChecking []LoadingArguments

	// traitAncestors records the trait-constraint chain currently being
	// verified, used to detect circular trait-to-trait constraints
	// (CST003) by structural-equality comparison against ancestors.
	traitAncestors []traitCheck
}

type traitCheck struct {
	traitAssembly string
	traitIndex    int
	importIndex   int
	target        *RuntimeType
}

func newSession(loadingLimit int) *session {
	if loadingLimit <= 0 {
		loadingLimit = defaultLoadingLimit
	}
	return &session{loadingLimit: loadingLimit}
}

func (s *session) charge() error {
	s.objectCount++
	if s.objectCount > s.loadingLimit {
		return errors.New(errors.RES001)
	}
	return nil
}

func (s *session) findType(args LoadingArguments) *RuntimeType {
	for _, t := range s.typesByArgs {
		if t.Args.Equal(args) {
			return t
		}
	}
	return nil
}

func (s *session) findFunction(args LoadingArguments) *RuntimeFunction {
	for _, f := range s.functionsByArgs {
		if f.Args.Equal(args) {
			return f
		}
	}
	return nil
}

func (s *session) pushConstraintChecking(args LoadingArguments) (func(), error) {
	for _, a := range s.constraintChecking {
		if a.Equal(args) {
			return nil, errors.New(errors.CST002)
		}
	}
	s.constraintChecking = append(s.constraintChecking, args)
	return func() {
		s.constraintChecking = s.constraintChecking[:len(s.constraintChecking)-1]
	}, nil
}

func (s *session) pushTraitAncestor(tc traitCheck) (func(), error) {
	for _, a := range s.traitAncestors {
		if a == tc {
			return nil, errors.New(errors.CST003)
		}
	}
	s.traitAncestors = append(s.traitAncestors, tc)
	return func() {
		s.traitAncestors = s.traitAncestors[:len(s.traitAncestors)-1]
	}, nil
}
