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


// Package embedding provides the optional dense-vector side of retrieval.
//
// A Batcher turns texts into unit-length vectors through an ai.Embedder,
// fanning batches out over a worker pool and reusing vectors from a
// storage.VectorCache when one is configured. An Index holds one vector per
// document and answers cosine similarity queries against it.
//
// Nothing in this package is required for search to work. When the embedder
// is missing or fails, callers fall back to lexical scoring.
package embedding
