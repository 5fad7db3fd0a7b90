// Package kv provides the shared key-value store used for cached
// introductions and recent-scenario history. A redis-backed store is the
// normal deployment; when redis is unreachable the package degrades to an
// in-memory store with the same semantics so a session never fails on
// cache plumbing.
//
// This package is internal and should not be imported by external projects.
package kv
