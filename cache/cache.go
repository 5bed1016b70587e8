// Package cache provides content-addressed caching for fetched LFS objects.
//
// Keys are LFS object ids (the hex SHA256 of the object content). Because an
// oid uniquely determines its content, a cache hit never needs to be
// revalidated against the URL or repository it was first fetched from.
package cache

// Cache stores object content by oid.
//
// Implementations should handle their own size limits and eviction policies.
// Implementations must be safe for concurrent use, and must not share
// memory with callers: content passed to Put and returned from Get may be
// modified by the caller without affecting the cached entry.
type Cache interface {
	// Get returns the content cached for oid.
	// Returns nil, false if the content is not cached or has expired.
	Get(oid string) ([]byte, bool)

	// Put stores content under oid, replacing any previous entry.
	Put(oid string, content []byte)

	// Delete removes the entry for oid.
	// Missing entries are a no-op.
	Delete(oid string)

	// Len returns the number of resident entries, including expired ones
	// that have not been swept yet.
	Len() int
}
