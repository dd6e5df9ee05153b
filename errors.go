package flagcore

import "errors"

// ErrKind is one of the error taxonomy kinds from the error handling
// design: Uninitialized/InvalidArgument/TooManyRequests are
// non-recoverable and always propagate; LocalModeNetwork is
// recoverable and silently swallowed; the rest are recoverable and
// logged at whatever level their call site specifies.
type ErrKind string

const (
	KindUninitialized             ErrKind = "Uninitialized"
	KindInvalidArgument           ErrKind = "InvalidArgument"
	KindTooManyRequests           ErrKind = "TooManyRequests"
	KindLocalModeNetwork          ErrKind = "LocalModeNetwork"
	KindInitializeFromNetwork     ErrKind = "InitializeFromNetwork"
	KindInitializeIDLists         ErrKind = "InitializeIDLists"
	KindInvalidBootstrapValues    ErrKind = "InvalidBootstrapValues"
	KindInvalidConfigSpecsResp    ErrKind = "InvalidConfigSpecsResponse"
	KindInvalidIDListsResponse    ErrKind = "InvalidIDListsResponse"
	KindInvalidDataAdapterValues  ErrKind = "InvalidDataAdapterValues"
)

// nonRecoverableKinds propagate unchanged through the Error Boundary
// instead of being captured and reported.
var nonRecoverableKinds = map[ErrKind]bool{
	KindUninitialized:   true,
	KindInvalidArgument: true,
	KindTooManyRequests: true,
}

// CoreError is a typed error carrying one of the taxonomy kinds. It
// wraps an underlying cause so callers can still errors.Is/As through
// to network or JSON errors.
type CoreError struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrKindSentinel(k)) work against any
// *CoreError sharing that kind.
func (e *CoreError) Is(target error) bool {
	var other *CoreError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func newCoreError(kind ErrKind, msg string, cause error) *CoreError {
	return &CoreError{Kind: kind, Msg: msg, Err: cause}
}

// ErrKindSentinel builds a zero-cause *CoreError of the given kind,
// suitable as the target of an errors.Is check.
func ErrKindSentinel(kind ErrKind) error {
	return &CoreError{Kind: kind}
}

// isRecoverable reports whether the error boundary should swallow err
// (after any logging/reporting) rather than let it propagate.
func isRecoverable(err error) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return !nonRecoverableKinds[ce.Kind]
	}
	return true
}

func isLocalModeNetworkError(err error) bool {
	var ce *CoreError
	return errors.As(err, &ce) && ce.Kind == KindLocalModeNetwork
}
