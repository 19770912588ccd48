// Package server hosts the Fiber HTTP service: it installs the request-ID
// middleware, exposes diagnostics under /-/, and mounts every route of the
// framework's route table, resolving named actions through the handlers
// registry. Keep exports narrow and accept explicit dependencies so tests can
// build an app around a temporary cache.
package server
