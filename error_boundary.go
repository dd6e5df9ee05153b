package flagcore

import (
	"context"
	"runtime/debug"
	"sync"

	"golang.org/x/time/rate"
)

// exceptionReport is the payload posted to the exception endpoint,
// mirroring the teacher's logExceptionRequestBody.
type exceptionReport struct {
	Exception string   `json:"exception"`
	Info      string   `json:"info"`
	Metadata  Metadata `json:"metadata"`
	Tag       string   `json:"tag"`
}

// ErrorBoundary wraps calls into the SDK's public entry points,
// capturing panics and non-recoverable errors so a bug in evaluation
// never crashes the caller's process. Recoverable errors are
// deduplicated by message and reported to the exception endpoint at
// most once per distinct message per process lifetime, rate limited
// so a burst of first-seen errors can't itself trip the endpoint's own
// throttling.
type ErrorBoundary struct {
	fetcher Fetcher
	log     Logger
	obs     ObservabilityClient

	seenMu sync.Mutex
	seen   map[string]bool

	limiter *rate.Limiter
}

// NewErrorBoundary builds an ErrorBoundary. fetcher may be nil, in
// which case exceptions are logged locally but never reported over
// the network (matches LocalMode).
func NewErrorBoundary(fetcher Fetcher, log Logger, obs ObservabilityClient) *ErrorBoundary {
	if log == nil {
		log = NopLogger{}
	}
	if obs == nil {
		obs = NopObservabilityClient{}
	}
	return &ErrorBoundary{
		fetcher: fetcher,
		log:     log,
		obs:     obs,
		seen:    make(map[string]bool),
		// One first-seen exception report per second, bursting to 5,
		// comfortably below any endpoint-side per-key throttle.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

// Capture runs task and recovers any panic, converting it into a
// logged, reported error and returning T's zero value with a nil
// error. Errors returned by task are split by kind: non-recoverable
// kinds propagate to the caller, everything else is captured and
// swallowed.
func Capture[T any](eb *ErrorBoundary, tag string, task func() (T, error)) (T, error) {
	var zero T
	defer func() {
		if r := recover(); r != nil {
			eb.report(tag, toError(r))
		}
	}()

	result, err := task()
	if err == nil {
		return result, nil
	}
	if !isRecoverable(err) {
		return zero, err
	}
	eb.report(tag, err)
	return zero, nil
}

// Void runs task, capturing panics the same way Capture does, for
// entry points with no return value worth propagating.
func (eb *ErrorBoundary) Void(tag string, task func()) {
	defer func() {
		if r := recover(); r != nil {
			eb.report(tag, toError(r))
		}
	}()
	task()
}

func toError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return newCoreError(KindInvalidArgument, "recovered panic", nil).withMessage(r)
}

func (e *CoreError) withMessage(v interface{}) *CoreError {
	if s, ok := v.(string); ok {
		e.Msg = s
	}
	return e
}

func (eb *ErrorBoundary) report(tag string, err error) {
	if isLocalModeNetworkError(err) {
		return
	}

	msg := err.Error()
	eb.log.Error("captured error", err, "tag", tag)
	eb.obs.IncrementCounter("error_boundary.captured", map[string]string{"tag": tag})

	if eb.alreadySeen(msg) || eb.fetcher == nil {
		return
	}
	if !eb.limiter.Allow() {
		return
	}

	report := exceptionReport{
		Exception: msg,
		Info:      string(debug.Stack()),
		Metadata:  currentMetadata(),
		Tag:       tag,
	}
	go func() {
		if postErr := eb.fetcher.PostException(context.Background(), report); postErr != nil {
			eb.log.Warn("exception report failed", "error", postErr.Error())
		}
	}()
}

func (eb *ErrorBoundary) alreadySeen(msg string) bool {
	eb.seenMu.Lock()
	defer eb.seenMu.Unlock()
	if eb.seen[msg] {
		return true
	}
	eb.seen[msg] = true
	return false
}
