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

import "errors"

// Domain validation errors
var (
	// ErrInvalidSolution indicates a Solution failed validation.
	ErrInvalidSolution = errors.New("invalid solution")

	// ErrMissingSolutionID indicates the solution id was never assigned.
	ErrMissingSolutionID = errors.New("solution id is required")

	// ErrInvalidManifest indicates a store manifest could not be decoded.
	ErrInvalidManifest = errors.New("invalid store manifest")

	// ErrUnsupportedFormat indicates a store was written by an incompatible version.
	ErrUnsupportedFormat = errors.New("unsupported store format version")
)
