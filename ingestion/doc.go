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


// Package ingestion provides the write path for safety documents.
//
// The Pipeline validates documents at the boundary, upserts them into a
// storage.DocumentRepository and, when an embedder is configured, warms the
// vector cache in the background so the next index build does not wait on
// the embedding service.
//
// Warm-up runs on a worker pool. Its errors are logged but do not fail the
// ingestion operation; Wait blocks until queued warm-ups finish.
package ingestion
