package types

import "fmt"

// Code is a domain error code, mapped to an RPC status at the service boundary.
type Code uint8

// Error codes from the RPC surface. OK is the zero value so a nil *Error
// and "no error" agree.
const (
	OK Code = iota
	InvalidArgument
	NotFound
	AlreadyExists
	FailedPrecondition
	OutOfRange
	ResourceExhausted
	Internal
	Unavailable
	DataLoss
	IdempotentReplay
	OffsetOutOfRange
	Throttled
	CorruptedData
	NotLeader
	ReplicationTimeout
)

var codeNames = map[Code]string{
	OK:                 "OK",
	InvalidArgument:    "INVALID_ARGUMENT",
	NotFound:           "NOT_FOUND",
	AlreadyExists:      "ALREADY_EXISTS",
	FailedPrecondition: "FAILED_PRECONDITION",
	OutOfRange:         "OUT_OF_RANGE",
	ResourceExhausted:  "RESOURCE_EXHAUSTED",
	Internal:           "INTERNAL",
	Unavailable:        "UNAVAILABLE",
	DataLoss:           "DATA_LOSS",
	IdempotentReplay:   "IDEMPOTENT_REPLAY",
	OffsetOutOfRange:   "OFFSET_OUT_OF_RANGE",
	Throttled:          "THROTTLED",
	CorruptedData:      "CORRUPTED_DATA",
	NotLeader:          "NOT_LEADER",
	ReplicationTimeout: "REPLICATION_TIMEOUT",
}

// String renders the wire name of a Code, e.g. "OFFSET_OUT_OF_RANGE".
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// retriable holds the codes a client may safely retry without server-side help.
var retriable = map[Code]bool{
	Unavailable:       true,
	ResourceExhausted: true,
	Throttled:         true,
}

// Retriable reports whether a client may retry the call that produced c.
func (c Code) Retriable() bool {
	return retriable[c]
}

// Error is the domain error type propagated internally. The RPC boundary
// translates it to (error_code, error_message) on the wire.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds a domain *Error with a formatted message.
func Errorf(code Code, format string, a ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

// AsError extracts a domain *Error from err, or wraps it as Internal if it
// isn't one already. nil stays nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*Error); ok {
		return de
	}
	return &Error{Code: Internal, Message: err.Error()}
}
