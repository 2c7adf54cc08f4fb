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
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyID indicates the document ID is empty.
	ErrEmptyID = errors.New("document id cannot be empty")

	// ErrInvalidKind indicates an unknown document kind.
	ErrInvalidKind = errors.New("invalid document kind")

	// ErrEmptyContent indicates both Title and Body are empty.
	ErrEmptyContent = errors.New("document title and body cannot both be empty")

	// ErrDuplicateDocument indicates two documents share the same kind and id.
	ErrDuplicateDocument = errors.New("duplicate document")
)
