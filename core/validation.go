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
	"fmt"
)

// ValidateSolution validates a Solution handed to the storage subsystem.
//
// Validation rules:
//   - Solution must not be nil
//   - ID must be assigned
//
// NOT validated (decided by eligibility, not validity):
//   - FilePath (unsaved solutions simply get no-op storage)
//   - Branch ids (forked solutions simply get no-op storage)
func ValidateSolution(solution *Solution) error {
	if solution == nil {
		return fmt.Errorf("%w: solution is nil", ErrInvalidSolution)
	}

	if solution.ID.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidSolution, ErrMissingSolutionID)
	}

	return nil
}

// ValidateManifest checks that a manifest was written by a compatible version.
func ValidateManifest(m *Manifest) error {
	if m == nil {
		return fmt.Errorf("%w: manifest is nil", ErrInvalidManifest)
	}
	if m.FormatVersion != CurrentFormatVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedFormat, m.FormatVersion, CurrentFormatVersion)
	}
	return nil
}
