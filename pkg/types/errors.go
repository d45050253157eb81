package types

import "errors"

// ErrUnknownKind is returned when a kind name does not parse
var ErrUnknownKind = errors.New("unknown entity kind")
