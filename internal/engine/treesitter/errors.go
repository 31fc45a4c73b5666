package treesitter

import "errors"

// ErrUnavailable is returned by New in builds without cgo.
var ErrUnavailable = errors.New("treesitter: engine requires cgo")
