package fluid

import "fmt"

// ErrorKind describes the type of error.
type ErrorKind int

const (
	// ErrStepsExceeded means the render crossed the configured step ceiling.
	// It aborts further statement execution; open scopes are released as it
	// unwinds.
	ErrStepsExceeded ErrorKind = iota

	// ErrUnsupportedConstruct means the lowering compiler met an AST shape
	// it cannot specialize. The interpreter has no equivalent failure mode.
	ErrUnsupportedConstruct

	// ErrInternal means the tree is malformed, e.g. a member segment outside
	// the recognized kinds. This indicates a broken parser, not a user error.
	ErrInternal

	// ErrInvalidOperation means an operation's operands fall outside the
	// engine's supported bounds, e.g. a range with too many elements.
	ErrInvalidOperation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrStepsExceeded:
		return "maximum steps exceeded"
	case ErrUnsupportedConstruct:
		return "unsupported construct"
	case ErrInternal:
		return "internal error"
	case ErrInvalidOperation:
		return "invalid operation"
	default:
		return "error"
	}
}

// Error represents an error raised during compilation or rendering.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError creates a new error.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// IsKind reports whether err is a fluid error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
