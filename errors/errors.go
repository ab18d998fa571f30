package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrNotEnvelope          = fmt.Errorf("message is not an envelope")
	ErrUnsupportedVersion   = fmt.Errorf("unsupported envelope version")
	ErrUnknownTopic         = fmt.Errorf("unknown topic")
	ErrTransportUnavailable = fmt.Errorf("transport unavailable")
	ErrInvalidConfig        = fmt.Errorf("invalid configuration")
)
