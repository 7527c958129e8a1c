package extraction

import "errors"

// ErrNoInput names the case where neither a body nor attachment text was
// supplied. Extract does not return it: it runs on whatever subject, body
// and attachment text it is given, even when both are empty.
var ErrNoInput = errors.New("extraction: no body or attachment text supplied")
