// Package diagcache persists persistence diagrams in SQLite so repeated runs
// over the same matrix and arguments skip ripser entirely.
//
// Entries are keyed by ripser.CacheKey. Each open Cache holds a shared flock on
// a sibling lock file; Clear needs the exclusive lock and therefore refuses to
// run while another process has the cache open.
package diagcache
