// Package ingestion provides pipeline orchestration for indexing documents.
//
// The Pipeline type manages an indexing run over a scope of the corpus:
//   - Discovering documents through a Source
//   - Chunking each body into overlapping token windows
//   - Reusing cached embeddings by content hash and embedding the rest
//   - Replacing each document's chunks in the index
//   - Removing documents that disappeared from the source
//
// Documents are processed concurrently on a worker pool while index writes
// are serialized. A failing document is recorded and the run continues.
package ingestion
