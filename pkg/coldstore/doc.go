// Package coldstore provides the cold tier: a durable, named-object store.
//
// Objects live in a single bucket per deployment. They are immutable: uploading
// a name that already exists is a successful no-op. Two backends are provided:
//
//   - S3Store talks to any S3-compatible service (MinIO, AWS S3, Supabase Storage)
//   - MemoryStore keeps objects in process memory for development and tests
//
// The package is a pure storage primitive. Read-through caching on top of it is
// the orchestrator's job.
package coldstore
