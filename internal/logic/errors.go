package logic

import "errors"

// ErrNilRedisStore is returned by the rotation and pacing stages when no
// Redis store is configured. Selection cannot run without rotation state.
var ErrNilRedisStore = errors.New("redis store is nil")
