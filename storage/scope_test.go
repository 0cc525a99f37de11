package storage

import (
	"bytes"
	"testing"

	"github.com/poiesic/solstore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	project := core.NewProjectID()
	document := core.NewDocumentID()

	tests := []struct {
		name  string
		scope Scope
	}{
		{"solution", SolutionScope()},
		{"project", ProjectScope(project)},
		{"document", DocumentScope(project, document)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseScope(tt.scope.String())
			require.NoError(t, err)
			assert.Equal(t, tt.scope, parsed)
		})
	}
}

func TestParseScope_Invalid(t *testing.T) {
	tests := []string{
		"",
		"workspace",
		"project",
		"project:not-a-uuid",
		"document:" + core.NewProjectID().String(),
		"document:" + core.NewProjectID().String() + ":nope",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := ParseScope(text)
			assert.ErrorIs(t, err, ErrInvalidScope)
		})
	}
}

func TestScope_Validate(t *testing.T) {
	assert.NoError(t, SolutionScope().Validate())
	assert.NoError(t, ProjectScope(core.NewProjectID()).Validate())
	assert.ErrorIs(t, Scope{}.Validate(), ErrInvalidScope)
	assert.ErrorIs(t, Scope{Kind: 42}.Validate(), ErrInvalidScope)
}

func TestScope_AppendKey_Distinct(t *testing.T) {
	project := core.NewProjectID()
	other := core.NewProjectID()
	document := core.NewDocumentID()

	keys := [][]byte{
		SolutionScope().AppendKey(nil),
		ProjectScope(project).AppendKey(nil),
		ProjectScope(other).AppendKey(nil),
		DocumentScope(project, document).AppendKey(nil),
		DocumentScope(other, document).AppendKey(nil),
	}

	for i := range keys {
		for j := range keys {
			if i != j {
				assert.False(t, bytes.Equal(keys[i], keys[j]), "keys %d and %d collide", i, j)
			}
		}
	}
	assert.Len(t, keys[3], 33)
}

func TestNoOp(t *testing.T) {
	var s Storage = NoOp{}

	ok := s.WriteStream(t.Context(), SolutionScope(), "name", bytes.NewReader([]byte("data")), nil)
	assert.False(t, ok)

	r, found := s.ReadStream(t.Context(), SolutionScope(), "name", nil)
	assert.False(t, found)
	assert.Nil(t, r)

	assert.False(t, s.ChecksumMatches(t.Context(), SolutionScope(), "name", nil))
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.True(t, IsNoOp(s))
}
