// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// SolutionID identifies one open solution for the lifetime of a host session.
// It is the key the storage cache is indexed by.
type SolutionID uuid.UUID

// ProjectID identifies a project within a solution.
type ProjectID uuid.UUID

// DocumentID identifies a document within a project.
type DocumentID uuid.UUID

// BranchID identifies one fork of a solution. Only the primary branch is
// eligible for on-disk storage.
type BranchID uuid.UUID

// solutionPathNamespace seeds deterministic solution ids derived from paths.
var solutionPathNamespace = uuid.MustParse("9b0f3c52-4a7e-4f0e-8f59-5d1c2a6b7e31")

// NewSolutionID returns a random solution id.
func NewSolutionID() SolutionID { return SolutionID(uuid.New()) }

// SolutionIDFromPath derives a stable solution id from a solution file path.
// The same path always yields the same id, across processes.
func SolutionIDFromPath(path string) SolutionID {
	return SolutionID(uuid.NewSHA1(solutionPathNamespace, []byte(normalizePath(path))))
}

// NewProjectID returns a random project id.
func NewProjectID() ProjectID { return ProjectID(uuid.New()) }

// NewDocumentID returns a random document id.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewBranchID returns a random branch id.
func NewBranchID() BranchID { return BranchID(uuid.New()) }

func (id SolutionID) String() string { return uuid.UUID(id).String() }
func (id ProjectID) String() string  { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id BranchID) String() string   { return uuid.UUID(id).String() }

// IsZero reports whether the id was never assigned.
func (id SolutionID) IsZero() bool { return id == SolutionID{} }

// ParseProjectID parses the canonical string form of a project id.
func ParseProjectID(s string) (ProjectID, error) {
	u, err := uuid.Parse(s)
	return ProjectID(u), err
}

// ParseDocumentID parses the canonical string form of a document id.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := uuid.Parse(s)
	return DocumentID(u), err
}

// WorkspaceKind names the kind of host a solution is loaded in.
type WorkspaceKind string

const (
	// WorkspaceKindHost is a regular, interactive host.
	WorkspaceKindHost WorkspaceKind = "Host"
	// WorkspaceKindRemote is the out-of-process server host. Solutions there
	// always get persistent storage.
	WorkspaceKindRemote WorkspaceKind = "Remote"
	// WorkspaceKindMisc holds loose files without a solution.
	WorkspaceKindMisc WorkspaceKind = "MiscellaneousFiles"
)

// Solution is the view of a loaded solution the storage subsystem works with.
// It is never mutated by this module.
type Solution struct {
	ID              SolutionID
	FilePath        string // Empty for solutions that were never saved
	BranchID        BranchID
	PrimaryBranchID BranchID
	WorkspaceKind   WorkspaceKind
}

// IsPrimaryBranch reports whether this is the canonical, non-forked solution.
func (s *Solution) IsPrimaryBranch() bool {
	return s.BranchID == s.PrimaryBranchID
}

// Directory returns the directory holding the solution file, or "" when the
// solution has no file path.
func (s *Solution) Directory() string {
	if s.FilePath == "" {
		return ""
	}
	return filepath.Dir(s.FilePath)
}

// Checksum is an opaque content fingerprint stored next to a blob. An empty
// checksum matches anything.
type Checksum []byte

// ChecksumOf computes a BLAKE2b-256 checksum of data.
func ChecksumOf(data []byte) Checksum {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return Checksum(h.Sum(nil))
}

// String returns the checksum as lowercase hex.
func (c Checksum) String() string { return hex.EncodeToString(c) }

// FolderNameFor returns a deterministic, filesystem-safe folder name for a
// solution path. Paths differing only in case or separators map to the same name.
func FolderNameFor(path string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(normalizePath(path)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalizePath(path string) string {
	return strings.ToLower(filepath.ToSlash(filepath.Clean(path)))
}
