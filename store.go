package flagcore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// InitReason describes where the store's currently served snapshot
// came from.
type InitReason string

const (
	InitUninitialized InitReason = "Uninitialized"
	InitBootstrap     InitReason = "Bootstrap"
	InitDataAdapter   InitReason = "DataAdapter"
	InitNetwork       InitReason = "Network"
)

// IDListInitStrategy controls how the store hydrates ID lists during
// Initialize.
type IDListInitStrategy string

const (
	// IDListInitSynchronous awaits ID-list hydration before Initialize
	// returns. The default.
	IDListInitSynchronous IDListInitStrategy = "synchronous"
	// IDListInitLazy defers hydration to the first regular tick of the
	// ID-list polling loop.
	IDListInitLazy IDListInitStrategy = "lazy"
	// IDListInitNone skips ID-list hydration at init time entirely; the
	// polling loop still runs on its normal schedule afterward.
	IDListInitNone IDListInitStrategy = "none"
)

// syncOutdatedMax is the cumulative failure duration past which a
// steady-state (non-cold-start) sync failure gets logged and reported;
// below it, transient blips stay silent so a single dropped request
// doesn't page anyone.
var syncOutdatedMax = 2 * time.Minute

// watchdogFloor is the minimum staleness resetSyncTimerIfExited will
// tolerate for any loop, regardless of how short that loop's own
// period is configured.
const watchdogFloor = 120 * time.Second

// maxSamplingRate is the upper clamp for diagnostics sampling rates,
// expressed as parts-per-ten-thousand.
const maxSamplingRate = 10000

// snapshot is the whole set of specs the store currently serves,
// swapped in atomically so evaluators never see a partially-updated
// mix of old and new rules.
type snapshot struct {
	featureGates         map[string]*ConfigSpec
	dynamicConfigs       map[string]*ConfigSpec
	layerConfigs         map[string]*ConfigSpec
	experimentToLayer    map[string]string
	clientSDKKeyToAppMap map[string]string
	samplingRates        map[string]int
	time                 int64
}

func emptySnapshot() *snapshot {
	return &snapshot{
		featureGates:         make(map[string]*ConfigSpec),
		dynamicConfigs:       make(map[string]*ConfigSpec),
		layerConfigs:         make(map[string]*ConfigSpec),
		experimentToLayer:    make(map[string]string),
		clientSDKKeyToAppMap: make(map[string]string),
		samplingRates:        make(map[string]int),
	}
}

// Store is the Spec Store: it owns the current snapshot of gates,
// dynamic configs, layers, and ID lists, and two independent polling
// loops that keep them fresh from an adapter and/or the network.
type Store struct {
	mu               sync.RWMutex
	snap             *snapshot
	reason           InitReason
	fetcher          Fetcher
	adapter          DataAdapter
	log              Logger
	obs              ObservabilityClient
	diag             Diagnostics
	bootstrapPayload string
	idListInitStrategy IDListInitStrategy

	configSyncInterval time.Duration
	idListSyncInterval time.Duration
	syncFailureCount   int
	shuttingDown       bool
	isPolling          bool

	idListsMu sync.RWMutex
	idLists   map[string]*IDList

	pollParentCtx context.Context
	rulesetCancel context.CancelFunc
	idListCancel  context.CancelFunc
	rulesetWG     sync.WaitGroup
	idListWG      sync.WaitGroup

	lastRulesetTick int64
	lastIDListTick  int64
}

// StoreConfig configures a Store at construction.
type StoreConfig struct {
	Fetcher            Fetcher
	Adapter            DataAdapter
	Logger             Logger
	Observability      ObservabilityClient
	Diagnostics        Diagnostics
	ConfigSyncInterval time.Duration
	IDListSyncInterval time.Duration
	BootstrapPayload   string
	IDListInitStrategy IDListInitStrategy
}

// NewStore builds a Store from cfg, applying the same inline defaults
// the reference implementation applies at construction time.
func NewStore(cfg StoreConfig) *Store {
	if cfg.ConfigSyncInterval <= 0 {
		cfg.ConfigSyncInterval = 10 * time.Second
	}
	if cfg.IDListSyncInterval <= 0 {
		cfg.IDListSyncInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}
	if cfg.Observability == nil {
		cfg.Observability = NopObservabilityClient{}
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = NopDiagnostics{}
	}
	if cfg.IDListInitStrategy == "" {
		cfg.IDListInitStrategy = IDListInitSynchronous
	}
	return &Store{
		snap:               emptySnapshot(),
		reason:             InitUninitialized,
		fetcher:            cfg.Fetcher,
		adapter:            cfg.Adapter,
		log:                cfg.Logger,
		obs:                cfg.Observability,
		diag:               cfg.Diagnostics,
		bootstrapPayload:   cfg.BootstrapPayload,
		idListInitStrategy: cfg.IDListInitStrategy,
		configSyncInterval: cfg.ConfigSyncInterval,
		idListSyncInterval: cfg.IDListSyncInterval,
		idLists:            make(map[string]*IDList),
	}
}

// Initialize runs the adapter -> bootstrap -> network waterfall: each
// step only runs if the previous ones left the store with no snapshot
// at all, matching the documented "still Uninitialized" gating. Once a
// snapshot is in place (or every source has been exhausted), it
// hydrates ID lists per the configured strategy and starts the two
// polling loops.
func (s *Store) Initialize(ctx context.Context) error {
	adapterLoaded := false

	if s.adapter != nil {
		if err := s.adapter.Initialize(ctx); err != nil {
			s.log.Warn("data adapter initialize failed", "error", err.Error())
		} else {
			adapterLoaded = s.loadFromAdapter(ctx)
		}
	}

	if adapterLoaded && s.bootstrapPayload != "" {
		s.log.Info("bootstrap payload ignored: the data adapter already provided an initial ruleset",
			"resolution", "adapter takes precedence over bootstrap")
	}

	if s.getLastUpdateTime() == 0 && s.bootstrapPayload != "" {
		if s.applyRawConfigSpecs([]byte(s.bootstrapPayload), InitBootstrap) {
			s.markMarker(InitializeContext, "bootstrap", true)
		} else {
			s.log.Warn("bootstrap payload failed to parse; falling through to network")
		}
	}

	if s.getLastUpdateTime() == 0 && s.fetcher != nil {
		s.syncConfigSpecsFromNetwork(ctx, true)
	}

	switch s.idListInitStrategy {
	case IDListInitNone:
		// skip entirely; the polling loop still runs on its own schedule.
	case IDListInitLazy:
		// deferred to the first regular tick of pollIDLists.
	default:
		s.hydrateIDLists(ctx)
	}

	s.startPolling(ctx)
	return nil
}

func (s *Store) hydrateIDLists(ctx context.Context) {
	if s.adapter != nil {
		if err := s.loadIDListsFromAdapter(ctx); err != nil {
			s.log.Warn("initial id list load from adapter failed", "error", err.Error())
		}
	} else if s.fetcher != nil {
		if err := s.syncIDLists(ctx); err != nil {
			s.log.Warn("initial id list sync failed", "error", err.Error())
		}
	}
}

func (s *Store) startPolling(ctx context.Context) {
	s.mu.Lock()
	if s.isPolling {
		s.mu.Unlock()
		return
	}
	s.isPolling = true
	s.pollParentCtx = ctx
	s.mu.Unlock()

	s.launchRulesetLoop()
	s.launchIDListLoop()
}

func (s *Store) launchRulesetLoop() {
	s.mu.Lock()
	pollCtx, cancel := context.WithCancel(s.pollParentCtx)
	s.rulesetCancel = cancel
	s.mu.Unlock()

	atomic.StoreInt64(&s.lastRulesetTick, time.Now().UnixMilli())
	s.rulesetWG.Add(1)
	go s.pollRulesets(pollCtx)
}

func (s *Store) launchIDListLoop() {
	s.mu.Lock()
	pollCtx, cancel := context.WithCancel(s.pollParentCtx)
	s.idListCancel = cancel
	s.mu.Unlock()

	atomic.StoreInt64(&s.lastIDListTick, time.Now().UnixMilli())
	s.idListWG.Add(1)
	go s.pollIDLists(pollCtx)
}

func (s *Store) pollRulesets(ctx context.Context) {
	defer s.rulesetWG.Done()
	for {
		if !sleepUnlessShutdown(ctx, s.configSyncInterval, s.isShuttingDown) {
			return
		}
		atomic.StoreInt64(&s.lastRulesetTick, time.Now().UnixMilli())
		if s.adapter != nil && s.adapter.SupportsPollingUpdatesFor(AdapterKeyRulesets) {
			s.loadFromAdapter(ctx)
		} else if s.fetcher != nil {
			s.syncConfigSpecsFromNetwork(ctx, false)
		}
	}
}

func (s *Store) pollIDLists(ctx context.Context) {
	defer s.idListWG.Done()
	for {
		if !sleepUnlessShutdown(ctx, s.idListSyncInterval, s.isShuttingDown) {
			return
		}
		atomic.StoreInt64(&s.lastIDListTick, time.Now().UnixMilli())

		if s.adapter != nil && s.adapter.SupportsPollingUpdatesFor(AdapterKeyIDLists) {
			if err := s.loadIDListsFromAdapter(ctx); err != nil {
				s.log.Warn("adapter id list load failed, falling back to network for this tick", "error", err.Error())
				if s.fetcher != nil {
					if serr := s.syncIDLists(ctx); serr != nil {
						s.log.Warn("id list sync failed", "error", serr.Error())
					}
				}
			}
		} else if s.fetcher != nil {
			if err := s.syncIDLists(ctx); err != nil {
				s.log.Warn("id list sync failed", "error", err.Error())
			}
		}
	}
}

func sleepUnlessShutdown(ctx context.Context, d time.Duration, shuttingDown func() bool) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
	}
	return !shuttingDown()
}

func (s *Store) isShuttingDown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shuttingDown
}

func (s *Store) isPollingNow() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isPolling
}

// resetSyncTimerIfExited is the polling loops' liveness watchdog: a
// loop is declared dead if its last-active timestamp is older than
// max(120s, its own period). Any dead loop is cancelled and relaunched
// fresh; the returned error names which loop(s) were reset, or nil if
// both are healthy.
func (s *Store) resetSyncTimerIfExited() error {
	if !s.isPollingNow() {
		return nil
	}

	s.mu.RLock()
	rulesetPeriod := s.configSyncInterval
	idListPeriod := s.idListSyncInterval
	s.mu.RUnlock()

	now := time.Now().UnixMilli()
	var reset []string

	if now-atomic.LoadInt64(&s.lastRulesetTick) > watchdogThreshold(rulesetPeriod).Milliseconds() {
		s.mu.Lock()
		cancel := s.rulesetCancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.launchRulesetLoop()
		reset = append(reset, "rulesets")
	}

	if now-atomic.LoadInt64(&s.lastIDListTick) > watchdogThreshold(idListPeriod).Milliseconds() {
		s.mu.Lock()
		cancel := s.idListCancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.launchIDListLoop()
		reset = append(reset, "id_lists")
	}

	if len(reset) == 0 {
		return nil
	}
	return fmt.Errorf("reset stalled sync timer(s): %s", strings.Join(reset, ", "))
}

func watchdogThreshold(period time.Duration) time.Duration {
	if period > watchdogFloor {
		return period
	}
	return watchdogFloor
}

// Shutdown cancels both polling loops' contexts immediately without
// waiting for any in-flight tick to finish; a tick already running is
// not stopped, only its context-aware fetcher and adapter calls see the
// cancellation, and its side effects are harmless once shuttingDown is
// observed.
// Adapter shutdown is invoked exactly once, synchronously.
func (s *Store) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shuttingDown = true
	s.isPolling = false
	rulesetCancel := s.rulesetCancel
	idListCancel := s.idListCancel
	s.mu.Unlock()

	if rulesetCancel != nil {
		rulesetCancel()
	}
	if idListCancel != nil {
		idListCancel()
	}

	if s.adapter != nil {
		return s.adapter.Shutdown(ctx)
	}
	return nil
}

// ShutdownAsync additionally awaits the last in-flight tick of each
// polling loop before returning, for callers that need a guarantee no
// background goroutine outlives the call.
func (s *Store) ShutdownAsync() {
	_ = s.Shutdown(context.Background())
	s.rulesetWG.Wait()
	s.idListWG.Wait()
}

func (s *Store) syncConfigSpecsFromNetwork(ctx context.Context, isColdStart bool) {
	resp, updated, err := s.fetcher.DownloadConfigSpecs(ctx, s.getLastUpdateTime())
	if err != nil {
		s.handleSyncError(err, isColdStart)
		return
	}
	if !updated || resp == nil || !resp.HasUpdates {
		s.syncFailureCount = 0
		return
	}

	raw, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		s.handleSyncError(marshalErr, isColdStart)
		return
	}

	if s.applyConfigSpecs(resp, InitNetwork) {
		s.syncFailureCount = 0
		if s.adapter != nil {
			if err := s.adapter.Set(ctx, AdapterKeyRulesets, string(raw)); err != nil {
				s.log.Warn("save rulesets to adapter failed", "error", err.Error())
			}
		}
	}
}

func (s *Store) handleSyncError(err error, isColdStart bool) {
	s.syncFailureCount++
	failDuration := time.Duration(s.syncFailureCount) * s.configSyncInterval

	switch {
	case isColdStart:
		s.log.Error("failed to initialize spec store from network", err)
		s.obs.IncrementCounter("store.sync.cold_start_failure", nil)
	case failDuration > syncOutdatedMax:
		s.log.Error("spec sync has failed repeatedly; serving last known specs", err,
			"failDurationMs", failDuration.Milliseconds())
		s.obs.IncrementCounter("store.sync.outdated", nil)
		s.syncFailureCount = 0
	}
}

// loadFromAdapter reads the rulesets key from the adapter and applies
// it, reporting whether the store now has a non-zero lastUpdateTime as
// a result (i.e. whether the adapter actually seeded a snapshot).
func (s *Store) loadFromAdapter(ctx context.Context) bool {
	raw, ok, err := s.adapter.Get(ctx, AdapterKeyRulesets)
	if err != nil {
		s.log.Warn("read rulesets from adapter failed", "error", err.Error())
		return false
	}
	if !ok || raw == "" {
		return false
	}
	return s.applyRawConfigSpecs([]byte(raw), InitDataAdapter)
}

// persistedIDList is the on-adapter representation of one ID list,
// carrying enough bookkeeping that a warm start can resume ranged
// fetches from readBytes instead of re-downloading the whole list.
type persistedIDList struct {
	FileID       string   `json:"fileID"`
	CreationTime int64    `json:"creationTime"`
	ReadBytes    int64    `json:"readBytes"`
	IDs          []string `json:"ids"`
}

func (s *Store) loadIDListsFromAdapter(ctx context.Context) error {
	raw, ok, err := s.adapter.Get(ctx, AdapterKeyIDLists)
	if err != nil {
		return err
	}
	if !ok || raw == "" {
		return nil
	}
	var payload map[string]persistedIDList
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		s.log.Warn("malformed id lists in adapter, ignoring", "error", err.Error())
		return nil
	}

	s.idListsMu.Lock()
	defer s.idListsMu.Unlock()
	for name, p := range payload {
		list := newIDList(name)
		list.fileID = p.FileID
		list.creationTime = p.CreationTime
		list.readBytes = p.ReadBytes
		for _, id := range p.IDs {
			list.ids[id] = struct{}{}
		}
		s.idLists[name] = list
	}
	return nil
}

// persistIDListsToAdapter writes the current in-memory list set back
// to the adapter, so a restart with the same adapter can warm-start
// from readBytes instead of a full re-fetch.
func (s *Store) persistIDListsToAdapter(ctx context.Context) {
	s.idListsMu.RLock()
	payload := make(map[string]persistedIDList, len(s.idLists))
	for name, list := range s.idLists {
		list.mu.RLock()
		ids := make([]string, 0, len(list.ids))
		for id := range list.ids {
			ids = append(ids, id)
		}
		payload[name] = persistedIDList{
			FileID:       list.fileID,
			CreationTime: list.creationTime,
			ReadBytes:    list.readBytes,
			IDs:          ids,
		}
		list.mu.RUnlock()
	}
	s.idListsMu.RUnlock()

	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("marshal id lists for adapter save failed", "error", err.Error())
		return
	}
	if err := s.adapter.Set(ctx, AdapterKeyIDLists, string(raw)); err != nil {
		s.log.Warn("save id lists to adapter failed", "error", err.Error())
	}
}

// applyRawConfigSpecs decodes and applies a raw JSON payload from
// bootstrap or an adapter. It returns false on a decode failure or a
// stale/no-op payload, leaving the previous snapshot untouched.
func (s *Store) applyRawConfigSpecs(raw []byte, reason InitReason) bool {
	var resp downloadConfigSpecResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		s.log.Warn("malformed config specs payload, ignoring", "error", err.Error(), "source", string(reason))
		return false
	}
	if !resp.HasUpdates || resp.Time < s.getLastUpdateTime() {
		return false
	}
	return s.applyConfigSpecs(&resp, reason)
}

// applyConfigSpecs validates every spec in resp; if any one of them
// fails construction, the whole payload is rejected and the previous
// snapshot is left untouched — a partial commit would mean callers
// silently start seeing a gate evaluate against a spec set the server
// never actually served as a whole.
func (s *Store) applyConfigSpecs(resp *downloadConfigSpecResponse, reason InitReason) bool {
	next := emptySnapshot()
	next.time = resp.Time

	for i := range resp.FeatureGates {
		spec := &resp.FeatureGates[i]
		if err := spec.validateAndNormalize(); err != nil {
			s.log.Warn("rejecting config spec payload: invalid feature gate", "name", spec.Name, "error", err.Error())
			return false
		}
		next.featureGates[spec.Name] = spec
	}
	for i := range resp.DynamicConfigs {
		spec := &resp.DynamicConfigs[i]
		if err := spec.validateAndNormalize(); err != nil {
			s.log.Warn("rejecting config spec payload: invalid dynamic config", "name", spec.Name, "error", err.Error())
			return false
		}
		next.dynamicConfigs[spec.Name] = spec
	}
	for i := range resp.LayerConfigs {
		spec := &resp.LayerConfigs[i]
		if err := spec.validateAndNormalize(); err != nil {
			s.log.Warn("rejecting config spec payload: invalid layer", "name", spec.Name, "error", err.Error())
			return false
		}
		next.layerConfigs[spec.Name] = spec
	}

	next.experimentToLayer = invertLayers(resp.Layers)
	next.clientSDKKeyToAppMap = cloneStringMap(resp.SDKKeysToAppID)
	next.samplingRates = clampSamplingRates(resp.DiagnosticsSampleRates)

	if next.time == 0 {
		next.time = time.Now().UnixMilli()
	}

	s.mu.Lock()
	s.snap = next
	s.reason = reason
	s.mu.Unlock()

	s.obs.ObserveGauge("store.gates.count", float64(len(next.featureGates)), nil)
	return true
}

// invertLayers turns the server's layer->experiments mapping into the
// experiment->layer reverse map the ConfigStore owns; every experiment
// appears at most once.
func invertLayers(layers map[string][]string) map[string]string {
	out := make(map[string]string, len(layers))
	for layer, experiments := range layers {
		for _, exp := range experiments {
			out[exp] = layer
		}
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clampSamplingRates coerces each rate to an integer in
// [0, maxSamplingRate], dropping entries that aren't numeric at all.
func clampSamplingRates(raw map[string]interface{}) map[string]int {
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		n, ok := numericValue(v)
		if !ok {
			continue
		}
		rate := int(n)
		if rate < 0 {
			rate = 0
		}
		if rate > maxSamplingRate {
			rate = maxSamplingRate
		}
		out[k] = rate
	}
	return out
}

// getSpec looks up name of kind in the currently served snapshot.
func (s *Store) getSpec(name string, kind SpecKind) (*ConfigSpec, EvalReason, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m map[string]*ConfigSpec
	switch kind {
	case FeatureGateKind:
		m = s.snap.featureGates
	case DynamicConfigKind:
		m = s.snap.dynamicConfigs
	case LayerKind:
		m = s.snap.layerConfigs
	}
	spec, ok := m[name]
	return spec, s.evalReasonFromInitReason(), ok
}

func (s *Store) evalReasonFromInitReason() EvalReason {
	switch s.reason {
	case InitBootstrap:
		return ReasonBootstrap
	case InitDataAdapter:
		return ReasonDataAdapter
	case InitNetwork:
		return ReasonNetwork
	default:
		return ReasonUninitialized
	}
}

func (s *Store) getIDList(name string) *IDList {
	s.idListsMu.RLock()
	defer s.idListsMu.RUnlock()
	return s.idLists[name]
}

// GetExperimentLayer reports the layer an experiment belongs to, per
// the server's most recently synced layers mapping.
func (s *Store) GetExperimentLayer(experimentName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	layer, ok := s.snap.experimentToLayer[experimentName]
	return layer, ok
}

// AppIDForClientKey resolves a client SDK key to its app id, per the
// server's most recently synced sdk_keys_to_app_ids mapping.
func (s *Store) AppIDForClientKey(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appID, ok := s.snap.clientSDKKeyToAppMap[key]
	return appID, ok
}

// GetSamplingRates returns a copy of the diagnostics sampling rates
// from the most recently synced snapshot, for a Diagnostics collaborator
// that wants to self-throttle.
func (s *Store) GetSamplingRates() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.snap.samplingRates))
	for k, v := range s.snap.samplingRates {
		out[k] = v
	}
	return out
}

// IsServingChecks reports whether the store has any snapshot at all,
// i.e. whether evaluation results are backed by real specs rather than
// the always-unrecognized empty default.
func (s *Store) IsServingChecks() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason != InitUninitialized
}

func (s *Store) GetInitReason() InitReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

func (s *Store) getLastUpdateTime() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.time
}

// GetLastUpdateTime returns the timestamp of the currently served
// snapshot, or 0 if the store has never successfully synced.
func (s *Store) GetLastUpdateTime() int64 {
	return s.getLastUpdateTime()
}

func (s *Store) markMarker(ctx DiagnosticsContext, step string, ok bool) {
	newMarker(s.diag, ctx, "config_sync").step(step).succeeded(ok).mark()
}
