package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtendUnionsAncestorFields(t *testing.T) {
	root := MustSchema("root", "a", "b")
	mid := root.MustExtend("mid", "c")
	leaf := mid.MustExtend("leaf", "d", "e")

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, leaf.Fields())
	assert.Equal(t, []string{"d", "e"}, leaf.Declared())
	assert.Equal(t, mid, leaf.Parent())
	assert.Nil(t, root.Parent())
	assert.Equal(t, 5, leaf.Len())

	for _, f := range []string{"a", "b", "c", "d", "e"} {
		assert.True(t, leaf.Has(f), f)
	}
	assert.False(t, mid.Has("d"))
	assert.False(t, root.Has("c"))
}

func TestFieldsReturnsCopy(t *testing.T) {
	s := MustSchema("s", "a", "b")
	fields := s.Fields()
	fields[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, s.Fields())
}

func TestDuplicateFieldRejected(t *testing.T) {
	_, err := NewSchema("dup", "a", "a")
	var dup *DuplicateFieldError
	require.ErrorAs(t, err, &dup)
	assert.ErrorIs(t, err, ErrDuplicateField)
	assert.Equal(t, "a", dup.Field)

	root := MustSchema("root", "a", "b")
	_, err = root.MustExtend("mid", "c").Extend("leaf", "b")
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "leaf", dup.Schema)
	assert.Equal(t, "root", dup.Declared)
	assert.Contains(t, err.Error(), "already declared by root")
}

func TestMustExtendPanicsOnDuplicate(t *testing.T) {
	root := MustSchema("root", "a")
	assert.Panics(t, func() { root.MustExtend("leaf", "a") })
}

func TestSchemaRequiresNames(t *testing.T) {
	_, err := NewSchema("  ")
	assert.Error(t, err)

	_, err = NewSchema("s", "a", " ")
	assert.Error(t, err)

	var nilSchema *Schema
	_, err = nilSchema.Extend("leaf", "a")
	assert.Error(t, err)
}

func TestValidateReportsEachKeyOnce(t *testing.T) {
	s := MustSchema("s", "a")
	assert.NoError(t, s.Validate())
	assert.NoError(t, s.Validate("a", "a"))

	err := s.Validate("x", "a", "x", "b")
	var invalid *InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []string{"b", "x"}, invalid.Fields)
	assert.Equal(t, `s: fields "b", "x" are not allowed`, err.Error())
}
