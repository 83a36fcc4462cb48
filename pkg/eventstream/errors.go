package eventstream

import "errors"

var (
	// ErrNilTranscript indicates a nil transcript was provided to a publisher.
	ErrNilTranscript = errors.New("nil transcript")

	// ErrSubscribeDuringDispatch is returned when a handler tries to register
	// another handler while the bus is delivering an event.
	ErrSubscribeDuringDispatch = errors.New("cannot subscribe while dispatching")

	// ErrNilHandler is returned when Subscribe is called without a handler.
	ErrNilHandler = errors.New("nil handler")
)
