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


// Package storage provides the storage abstraction layer for safetyrag.
//
// This package defines repository interfaces that decouple storage implementation
// from retrieval logic. The retrieval engine only needs a DocumentSource; the
// richer repositories back ingestion, re-embedding and the answer layer.
//
// # Architecture
//
//   - DocumentSource: Ordered listing of a kind's documents
//   - DocumentRepository: Upsert, lookup and deletion of documents
//   - VectorCache: Embedding vectors keyed by model and content fingerprint
//   - StandardsRepository: Industry response-time benchmarks
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	docs, err := badger.NewDocumentRepository(backend)
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
