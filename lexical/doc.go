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


// Package lexical implements token-overlap retrieval.
//
// It has three parts:
//
//   - Tokenize: lowercases text and emits maximal runs of word characters
//     (Unicode letters, Unicode numbers and underscore).
//   - Index: maps each document to its lexical profile, the set of tokens
//     found in its title and body.
//   - Query: scores a profile against the multiset of query tokens.
//
// # Scoring
//
// Given query tokens q (with duplicates) and a profile P:
//
//	matched = set(q) ∩ P
//	score   = Σ_{t ∈ matched} count(t, q) / len(q)
//
// A document with no matched tokens scores zero and is never a result. The
// score is not normalized by document length, so longer documents have more
// chances to match.
//
// An Index is immutable once built and safe for concurrent readers.
package lexical
