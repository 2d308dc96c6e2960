package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollang/rolloader/internal/asm"
)

func newTestCatalog() *asm.Catalog {
	core := &asm.Assembly{
		Name: "Core",
		Types: []asm.TypeTemplate{
			{Name: "Pointer", GCMode: asm.Reference, Generic: asm.GenericDeclaration{ParameterCount: 1, Types: []asm.Ref{asm.Empty}, Functions: []asm.Ref{asm.Empty}}},
			{Name: "Widget", GCMode: asm.Value, Generic: asm.GenericDeclaration{Types: []asm.Ref{asm.Empty}, Functions: []asm.Ref{asm.Empty}}},
		},
		ExportTypes: []asm.Export{
			{ExportName: "Pointer", InternalId: 0},
			{ExportName: "Widget", InternalId: 1},
		},
		NativeTypes:     map[string]int{"Native1": 1},
		NativeFunctions: map[string]int{"Identity": 0},
	}
	return asm.NewCatalog([]*asm.Assembly{core})
}

func TestGetTypeIdempotentAndById(t *testing.T) {
	l := New(newTestCatalog(), Config{PointerSize: 8})

	first, err := l.GetType("Core", 1, nil)
	require.NoError(t, err)
	second, err := l.GetType("Core", 1, nil)
	require.NoError(t, err)
	assert.Same(t, first, second, "GetType not idempotent")
	assert.Same(t, first, l.GetTypeById(first.Id))
}

func TestLoadPointerTypeInvariant(t *testing.T) {
	l := New(newTestCatalog(), Config{PointerSize: 8})

	widget, err := l.GetType("Core", 1, nil)
	require.NoError(t, err)
	require.Nil(t, widget.PointerType, "PointerType should start nil")

	ptr1, err := l.LoadPointerType(widget)
	require.NoError(t, err)
	assert.Same(t, ptr1, widget.PointerType, "LoadPointerType did not cache onto widget.PointerType")

	ptr2, err := l.LoadPointerType(widget)
	require.NoError(t, err)
	assert.Same(t, ptr1, ptr2, "LoadPointerType not idempotent")
}

func TestFindExportType(t *testing.T) {
	l := New(newTestCatalog(), Config{PointerSize: 8})

	got, err := l.FindExportType("Core", "Widget")
	require.NoError(t, err)
	direct, err := l.GetType("Core", 1, nil)
	require.NoError(t, err)
	assert.Same(t, direct, got)

	_, err = l.FindExportType("Core", "NoSuchType")
	assert.Error(t, err)
}

func TestAddNativeType(t *testing.T) {
	l := New(newTestCatalog(), Config{PointerSize: 8})

	native, err := l.AddNativeType("Core", "Native1", 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, native.Size)
	assert.Equal(t, 4, native.Alignment)

	// A second registration for the same name returns the same committed
	// instance rather than creating a duplicate.
	again, err := l.AddNativeType("Core", "Native1", 4, 4)
	require.NoError(t, err)
	assert.Same(t, native, again, "AddNativeType not idempotent")

	_, err = l.AddNativeType("Core", "NoSuchNative", 1, 1)
	assert.Error(t, err)
}

func TestAddNativeFunction(t *testing.T) {
	l := New(newTestCatalog(), Config{PointerSize: 8})

	widget, err := l.GetType("Core", 1, nil)
	require.NoError(t, err)

	fn, err := l.AddNativeFunction("Core", "Identity", widget, []*RuntimeType{widget})
	require.NoError(t, err)
	assert.Same(t, widget, fn.ReturnValue)
	require.Len(t, fn.Parameters, 1)
	assert.Same(t, widget, fn.Parameters[0])
	assert.Same(t, fn, l.GetFunctionById(fn.Id))

	// A second registration for the same name returns the same committed
	// instance rather than creating a duplicate.
	again, err := l.AddNativeFunction("Core", "Identity", widget, []*RuntimeType{widget})
	require.NoError(t, err)
	assert.Same(t, fn, again, "AddNativeFunction not idempotent")

	_, err = l.AddNativeFunction("Core", "NoSuchNative", widget, nil)
	assert.Error(t, err)
}
