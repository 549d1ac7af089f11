package vebus

import "errors"

var (
	ErrTimeout             = errors.New("vebus: no reply within retry budget")
	ErrStreamClosed        = errors.New("vebus: stream closed")
	ErrBusy                = errors.New("vebus: another exchange is in flight")
	ErrUnexpectedReply     = errors.New("vebus: unexpected reply")
	ErrUnsupported         = errors.New("vebus: not supported by device")
	ErrAccessLevelRequired = errors.New("vebus: access level required")
)
