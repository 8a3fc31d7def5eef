package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrEmptyPhrases    = fmt.Errorf("no risk phrases have been found")
	ErrClientQueueFull = fmt.Errorf("client delivery queue is full")
	ErrSessionClosed   = fmt.Errorf("session is closed")
	ErrMalformedFrame  = fmt.Errorf("malformed frame")
)
