// Package reembed regenerates the cached vectors of every stored document,
// typically after switching embedding models.
//
// Documents are read from a storage.DocumentSource in batches, embedded
// with retry and exponential backoff, normalized, and written to a
// storage.VectorCache under the model's name. Progress is reported to a
// writer as the run advances.
package reembed
