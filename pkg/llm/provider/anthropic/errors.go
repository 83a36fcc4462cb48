package anthropic

import "errors"

// ErrUnknownEventType is returned for payloads whose type discriminator is
// not a Messages API event.
var ErrUnknownEventType = errors.New("unknown anthropic event type")
