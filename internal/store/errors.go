package store

import "errors"

// ErrClosed is returned by MemoryStore after Close.
var ErrClosed = errors.New("store is closed")
