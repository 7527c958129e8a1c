package classification

import "errors"

// Sentinel errors for the classification service layer.
var (
	ErrNoClassifierConfigured = errors.New("no AI classifier capability configured")
)
