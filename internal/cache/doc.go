// Package cache implements the process-wide, read-mostly configuration
// caches used across the pipeline: workflow states, action rule tables,
// carrier domain lists, and classification marker tables. Each cache is a
// TTL-bounded snapshot with an explicit Invalidate hook; a cache miss
// (expiry or post-invalidate) triggers one synchronous reload through the
// supplied loader.
package cache
