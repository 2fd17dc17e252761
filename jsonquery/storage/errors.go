package storage

import "errors"

// ErrNotACache is returned when the database was not created by CreateCache
var ErrNotACache = errors.New("not a jsonquery cache database")
