package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesApply(t *testing.T) {
	tpl := &Template{ID: 3, Key: "website.homepage", Active: true}

	err := Values{
		FieldName:      "Home",
		FieldWebsiteID: WebsiteID(5),
		FieldInheritID: 7,
		FieldPriority:  int64(20),
		FieldActive:    false,
	}.Apply(tpl)
	require.NoError(t, err)

	assert.Equal(t, ViewID(3), tpl.ID)
	assert.Equal(t, "Home", tpl.Name)
	assert.Equal(t, WebsiteID(5), tpl.WebsiteID)
	assert.Equal(t, ViewID(7), tpl.InheritID)
	assert.Equal(t, 20, tpl.Priority)
	assert.False(t, tpl.Active)
}

func TestValuesApplyClearsReferences(t *testing.T) {
	tpl := &Template{WebsiteID: 2, ThemeID: 4}

	require.NoError(t, Values{FieldWebsiteID: false, FieldThemeID: nil}.Apply(tpl))

	assert.True(t, tpl.IsGeneric())
	assert.Equal(t, ModuleID(0), tpl.ThemeID)
}

func TestValuesApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		vals Values
		want error
	}{
		{name: "unknown field", vals: Values{"colour": "red"}, want: ErrUnknownField},
		{name: "id is read-only", vals: Values{FieldID: 9}, want: ErrReadOnly},
		{name: "key must be a string", vals: Values{FieldKey: 12}, want: ErrFieldType},
		{name: "active must be a bool", vals: Values{FieldActive: "yes"}, want: ErrFieldType},
		{name: "negative reference", vals: Values{FieldWebsiteID: -1}, want: ErrFieldType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.vals.Validate(), tt.want)
		})
	}
}

func TestValuesWithDoesNotMutate(t *testing.T) {
	orig := Values{FieldName: "a"}
	next := orig.With(FieldKey, "k")

	assert.Len(t, orig, 1)
	assert.Equal(t, []string{FieldKey, FieldName}, next.Keys())
}

func TestTemplateField(t *testing.T) {
	tpl := &Template{ID: 1, Key: "k", WebsiteID: 0, ThemeID: 3, Priority: 16}

	v, ok := tpl.Field(FieldWebsiteID)
	require.True(t, ok)
	assert.Nil(t, v)

	v, ok = tpl.Field(FieldThemeID)
	require.True(t, ok)
	assert.Equal(t, int64(3), v)

	v, _ = tpl.Field(FieldPriority)
	assert.Equal(t, int64(16), v)

	_, ok = tpl.Field("nope")
	assert.False(t, ok)
}
