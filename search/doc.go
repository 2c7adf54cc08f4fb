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


// Package search ranks safety documents against natural-language queries.
//
// A Searcher loads every document from a storage.DocumentSource, tokenizes it
// into a lexical profile and, when an embedder is configured, embeds it. The
// result is an immutable Index generation published atomically; queries never
// block on a rebuild.
//
// Each query is scored with exactly one strategy. Embedding similarity is
// used when the current generation carries vectors and the query can be
// embedded; otherwise token overlap is used:
//
//	score = sum(count of t in query for each matched token t) / len(query tokens)
//
// Results above the strategy's threshold are sorted by descending score,
// ties broken by corpus order (protocols, then incidents, each in source
// order). A failure while scoring one document drops that document and is
// logged; the rest of the query proceeds.
package search
