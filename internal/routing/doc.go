// Package routing owns the framework's mutable route table and the
// cache_route protocol that memoizes it through the file cache: a table is
// saved as one "routes" entry and later either replaces or is appended to the
// current table. Routes whose Action is a callable cannot be cached.
package routing
