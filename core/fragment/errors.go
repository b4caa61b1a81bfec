package fragment

import "errors"

var (
	ErrThresholdTooSmall = errors.New("fragment: threshold does not leave room for a frame")
	ErrHandlerRequired   = errors.New("fragment: AssemblerOptions.Handler is required")
)
