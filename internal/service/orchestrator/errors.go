package orchestrator

import "errors"

// ErrEmailNotFound is returned when ProcessEmail is given an emailID the
// Repository doesn't recognize.
var ErrEmailNotFound = errors.New("orchestrator: email not found")
