package flagcore

import (
	"context"
	"net/http"
	"time"
)

// Options is the ambient configuration surface for constructing an
// SDK instance: sync cadence, network target, local/offline mode, and
// every collaborator the store and evaluator read through. Zero value
// fields are filled with the same inline defaults the reference
// implementation applies at store/transport construction time.
type Options struct {
	// APIBaseURL overrides the default config-specs/id-lists/exception
	// endpoint host.
	APIBaseURL string
	// SDKKey authenticates against the network endpoints. Required
	// unless LocalMode is set.
	SDKKey string
	// LocalMode disables all network traffic; the store serves only
	// whatever BootstrapPayload or DataAdapter provides.
	LocalMode bool

	ConfigSyncInterval time.Duration
	IDListSyncInterval time.Duration

	DataAdapter   DataAdapter
	Logger        Logger
	Observability ObservabilityClient
	Diagnostics   Diagnostics
	GeoLookup     GeoLookup
	UserAgent     UserAgentParser

	// BootstrapPayload is a raw download_config_specs JSON document
	// applied during Initialize when the DataAdapter supplied no
	// ruleset, before any network fetch, for offline dev and fast test
	// startup.
	BootstrapPayload string

	HTTPClient *http.Client
}

// SDK wires an Evaluator, Store, and ErrorBoundary together per the
// resolved Options and is the intended top-level entry point for
// applications embedding this package.
type SDK struct {
	Store     *Store
	Evaluator *Evaluator
	Boundary  *ErrorBoundary
}

// New builds an SDK from opts, applying LocalMode by omitting the
// Fetcher entirely so the store never attempts network traffic.
func New(opts Options) (*SDK, error) {
	if opts.Logger == nil {
		opts.Logger = NopLogger{}
	}
	if opts.Observability == nil {
		opts.Observability = NopObservabilityClient{}
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = NopDiagnostics{}
	}
	if opts.GeoLookup == nil {
		opts.GeoLookup = NewGeoLookup()
	}
	if opts.UserAgent == nil {
		ua, err := NewUserAgentParser()
		if err != nil {
			opts.Logger.Warn("user agent parser unavailable, falling back to no-op", "error", err.Error())
			ua = NopUserAgentParser{}
		}
		opts.UserAgent = ua
	}

	var fetcher Fetcher
	if !opts.LocalMode {
		if opts.SDKKey == "" {
			return nil, newCoreError(KindInvalidArgument, "SDKKey is required unless LocalMode is set", nil)
		}
		fetcher = newHTTPFetcher(opts.APIBaseURL, opts.SDKKey, opts.HTTPClient)
	}

	store := NewStore(StoreConfig{
		Fetcher:            fetcher,
		Adapter:            opts.DataAdapter,
		Logger:             opts.Logger,
		Observability:      opts.Observability,
		Diagnostics:        opts.Diagnostics,
		ConfigSyncInterval: opts.ConfigSyncInterval,
		IDListSyncInterval: opts.IDListSyncInterval,
		BootstrapPayload:   opts.BootstrapPayload,
	})

	boundary := NewErrorBoundary(fetcher, opts.Logger, opts.Observability)
	evaluator := NewEvaluator(store, opts.GeoLookup, opts.UserAgent, opts.Logger)

	return &SDK{Store: store, Evaluator: evaluator, Boundary: boundary}, nil
}

// Initialize runs the store's adapter/bootstrap/network fan-in and
// starts its polling loops, capturing any panic through the Error
// Boundary.
func (s *SDK) Initialize(ctx context.Context) error {
	_, err := Capture(s.Boundary, "Initialize", func() (struct{}, error) {
		return struct{}{}, s.Store.Initialize(ctx)
	})
	return err
}

// Shutdown stops the store's polling loops and releases its adapter.
func (s *SDK) Shutdown(ctx context.Context) error {
	return s.Store.Shutdown(ctx)
}

// CheckGate evaluates a feature gate for user, capturing any panic or
// recoverable error through the Error Boundary.
func (s *SDK) CheckGate(user User, gateName string) bool {
	result, _ := Capture(s.Boundary, "CheckGate", func() (EvalResult, error) {
		return s.Evaluator.CheckGate(user, gateName), nil
	})
	return result.BoolValue
}

// GetConfig evaluates a dynamic config for user.
func (s *SDK) GetConfig(user User, configName string) EvalResult {
	result, _ := Capture(s.Boundary, "GetConfig", func() (EvalResult, error) {
		return s.Evaluator.GetConfig(user, configName), nil
	})
	return result
}

// GetLayer evaluates a layer for user.
func (s *SDK) GetLayer(user User, layerName string) EvalResult {
	result, _ := Capture(s.Boundary, "GetLayer", func() (EvalResult, error) {
		return s.Evaluator.GetLayer(user, layerName), nil
	})
	return result
}
