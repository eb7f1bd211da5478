// Package cache stores HTTP registry responses on disk with a TTL.
//
// Entries are JSON files named by the SHA-256 of their key, so any string
// (typically a request URL) can be used as a key. Expired entries are
// reported as ErrCacheExpired and removed lazily or by CleanupExpired.
// A disabled store answers every call with ErrCacheDisabled, which lets
// callers treat "no cache" and "cache miss" the same way.
package cache
