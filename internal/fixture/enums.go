package fixture

import (
	"fmt"
	"strings"

	"github.com/rollang/rolloader/internal/asm"
)

func parseStorageMode(s string) (asm.StorageMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "value", "":
		return asm.Value, nil
	case "reference":
		return asm.Reference, nil
	case "interface":
		return asm.Interface, nil
	case "global":
		return asm.Global, nil
	}
	return 0, fmt.Errorf("unknown storage mode %q", s)
}

func parseRefKind(s string) (asm.RefKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "empty", "":
		return asm.RefEmpty, nil
	case "clone":
		return asm.RefClone, nil
	case "assembly":
		return asm.RefAssembly, nil
	case "import":
		return asm.RefImport, nil
	case "argument":
		return asm.RefArgument, nil
	case "argument_seg":
		return asm.RefArgumentSeg, nil
	case "self":
		return asm.RefSelf, nil
	case "subtype":
		return asm.RefSubtype, nil
	case "constraint":
		return asm.RefConstraint, nil
	case "clone_type":
		return asm.RefCloneType, nil
	case "list_end":
		return asm.RefListEnd, nil
	case "any":
		return asm.RefAny, nil
	case "try":
		return asm.RefTry, nil
	}
	return 0, fmt.Errorf("unknown ref kind %q", s)
}

func parseConstraintKind(s string) (asm.ConstraintKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exist", "":
		return asm.ConstraintExist, nil
	case "same":
		return asm.ConstraintSame, nil
	case "base":
		return asm.ConstraintBase, nil
	case "interface":
		return asm.ConstraintInterface, nil
	case "trait_assembly":
		return asm.ConstraintTraitAssembly, nil
	case "trait_import":
		return asm.ConstraintTraitImport, nil
	}
	return 0, fmt.Errorf("unknown constraint kind %q", s)
}
