// Package storage provides the durable key-value surface the session store
// persists to. Every write replaces a whole value; there are no partial patches.
package storage

import "errors"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: closed")

// Write is one element of an atomic batch. Delete removes Key and ignores Value.
type Write struct {
	Key    string
	Value  string
	Delete bool
}

// Set returns a Write that stores value under key.
func Set(key, value string) Write { return Write{Key: key, Value: value} }

// Delete returns a Write that removes key.
func Delete(key string) Write { return Write{Key: key, Delete: true} }

// KV is a string key-value store that survives process restarts.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	// Apply performs all writes or none of them.
	Apply(writes ...Write) error
	Close() error
}
