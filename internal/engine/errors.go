package engine

import "fmt"

// Kind discriminates the failure modes of engine operations.
type Kind int

const (
	// KindNoData means the series was empty.
	KindNoData Kind = iota + 1
	// KindInsufficientData means the series was shorter than the forecaster needs.
	KindInsufficientData
	// KindTrainingFailed means a forecasting model could not be fitted.
	KindTrainingFailed
	// KindInvalidSeries means a date key or cost violated the series contract.
	KindInvalidSeries
)

func (k Kind) String() string {
	switch k {
	case KindNoData:
		return "no data"
	case KindInsufficientData:
		return "insufficient data"
	case KindTrainingFailed:
		return "training failed"
	case KindInvalidSeries:
		return "invalid series"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every failing engine operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNoData           = &Error{Kind: KindNoData}
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
	ErrTrainingFailed   = &Error{Kind: KindTrainingFailed}
	ErrInvalidSeries    = &Error{Kind: KindInvalidSeries}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
