package dispatch

import "fmt"

// Kind classifies a dispatch failure for the HTTP boundary.
type Kind int

const (
	// KindBadRequest covers empty tasks, malformed tool arguments, and
	// unknown tool names.
	KindBadRequest Kind = iota
	// KindNotFound covers missing input paths reported by a tool.
	KindNotFound
	// KindConfiguration covers a missing gateway credential.
	KindConfiguration
	// KindGateway covers network, status, and parse failures calling the
	// remote model.
	KindGateway
	// KindInternal covers any other failure inside a tool.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindConfiguration:
		return "configuration"
	case KindGateway:
		return "gateway"
	default:
		return "internal"
	}
}

// Error is a classified dispatch failure. Detail is safe to return to the
// caller; Err carries the underlying cause for logging.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dispatch: %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("dispatch: %s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}
