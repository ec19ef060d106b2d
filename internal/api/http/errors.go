package http

import "errors"

var errInvalidSeverity = errors.New("min_severity must be 1..5")
