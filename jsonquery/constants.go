package jsonquery

import "time"

const (
	DefaultCursorTTL        = time.Hour
	DefaultCompileCacheSize = 256
)
