package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrInvalidRoom    = fmt.Errorf("invalid room")
	ErrMessageTooLong = fmt.Errorf("message is too long")
	ErrMalformedEvent = fmt.Errorf("malformed event")
	ErrStore          = fmt.Errorf("message store failure")
	ErrUnknownDriver  = fmt.Errorf("unknown storage driver")
	ErrInvalidToken   = fmt.Errorf("invalid session token")
	ErrEmptyRooms     = fmt.Errorf("no chat rooms configured")
)
