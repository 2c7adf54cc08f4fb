// Package corpus loads the static safety corpus and keeps it available to
// the search engine.
//
// The corpus is two JSON files: an emergency guidebook of hazard protocols
// and a log of historical incidents with industry response-time standards.
// LoadFiles turns them into core.Documents; MemorySource serves them as a
// storage.DocumentSource; Watcher reports when either file changes so the
// caller can rebuild the index wholesale.
package corpus
