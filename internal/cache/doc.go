// Package cache implements the filesystem-backed key/value store the framework
// uses to memoize computed data (route tables, file lookups) across process
// invocations. Keys are hashed with SHA-1 into <root>/<d0d1>/<digest>.txt; the
// file ModTime doubles as the creation stamp and freshness is evaluated lazily
// on read. Writes go through a temp file + rename under an exclusive flock so a
// reader never observes a partially written entry.
package cache
