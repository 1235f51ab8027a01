package pathing

import "errors"

// ErrOutsideRoot occurs when an api path would resolve to a location outside
// of the root directory it is served from.
var ErrOutsideRoot = errors.New("outside root directory")
