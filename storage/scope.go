package storage

import (
	"fmt"
	"strings"

	"github.com/poiesic/solstore/core"
)

// ScopeKind is the granularity a blob is keyed at.
type ScopeKind uint8

const (
	// ScopeSolution keys a blob to the whole solution.
	ScopeSolution ScopeKind = iota + 1
	// ScopeProject keys a blob to one project.
	ScopeProject
	// ScopeDocument keys a blob to one document.
	ScopeDocument
)

// Scope selects the part of a solution a blob belongs to.
type Scope struct {
	Kind     ScopeKind
	Project  core.ProjectID
	Document core.DocumentID
}

// SolutionScope returns the solution-wide scope.
func SolutionScope() Scope {
	return Scope{Kind: ScopeSolution}
}

// ProjectScope returns the scope of one project.
func ProjectScope(project core.ProjectID) Scope {
	return Scope{Kind: ScopeProject, Project: project}
}

// DocumentScope returns the scope of one document. Documents are keyed
// together with their project.
func DocumentScope(project core.ProjectID, document core.DocumentID) Scope {
	return Scope{Kind: ScopeDocument, Project: project, Document: document}
}

// Validate checks that the scope has a known kind.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeSolution, ScopeProject, ScopeDocument:
		return nil
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidScope, s.Kind)
	}
}

// AppendKey appends the binary key prefix of the scope to buf.
// Format: kind byte, then 16 bytes per id the kind carries.
func (s Scope) AppendKey(buf []byte) []byte {
	buf = append(buf, byte(s.Kind))
	switch s.Kind {
	case ScopeProject:
		buf = append(buf, s.Project[:]...)
	case ScopeDocument:
		buf = append(buf, s.Project[:]...)
		buf = append(buf, s.Document[:]...)
	}
	return buf
}

// String returns the textual form accepted by ParseScope.
func (s Scope) String() string {
	switch s.Kind {
	case ScopeSolution:
		return "solution"
	case ScopeProject:
		return "project:" + s.Project.String()
	case ScopeDocument:
		return "document:" + s.Project.String() + ":" + s.Document.String()
	default:
		return fmt.Sprintf("scope(%d)", s.Kind)
	}
}

// ParseScope parses "solution", "project:<id>" or "document:<project-id>:<id>".
func ParseScope(text string) (Scope, error) {
	parts := strings.Split(text, ":")
	switch {
	case len(parts) == 1 && parts[0] == "solution":
		return SolutionScope(), nil
	case len(parts) == 2 && parts[0] == "project":
		project, err := core.ParseProjectID(parts[1])
		if err != nil {
			return Scope{}, fmt.Errorf("%w: %w", ErrInvalidScope, err)
		}
		return ProjectScope(project), nil
	case len(parts) == 3 && parts[0] == "document":
		project, err := core.ParseProjectID(parts[1])
		if err != nil {
			return Scope{}, fmt.Errorf("%w: %w", ErrInvalidScope, err)
		}
		document, err := core.ParseDocumentID(parts[2])
		if err != nil {
			return Scope{}, fmt.Errorf("%w: %w", ErrInvalidScope, err)
		}
		return DocumentScope(project, document), nil
	default:
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, text)
	}
}
