package estimate

import "errors"

// ErrNotFound is returned when the text carries no readable current price line.
var ErrNotFound = errors.New("current price not found")
