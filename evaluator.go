package flagcore

// EvalReason describes why an evaluation resolved the way it did.
type EvalReason string

const (
	ReasonNetwork      EvalReason = "Network"
	ReasonBootstrap    EvalReason = "Bootstrap"
	ReasonDataAdapter  EvalReason = "DataAdapter"
	ReasonUnrecognized EvalReason = "Unrecognized"
	ReasonUninitialized EvalReason = "Uninitialized"
)

// EvalResult is the outcome of evaluating one gate, dynamic config, or
// layer for a user: the resolved value, which rule produced it (if
// any), and every exposure that evaluation needs to be attributed to.
type EvalResult struct {
	Value                interface{}
	BoolValue            bool
	RuleID               string
	GroupName            string
	Reason               EvalReason
	SecondaryExposures   []Exposure
	ConfigDelegate       string
	ExplicitParameters   []string
	IsExperimentActive   bool
	IsUserInExperiment   bool
	Unrecognized         bool
}

// Evaluator resolves ConfigSpecs against a User. It is stateless
// beyond its collaborators and safe for concurrent use: each spec
// lookup reads the store's current snapshot, which is replaced whole
// and never modified in place. An evaluation that looks up more than
// one spec (gate references, layer delegation) does each lookup
// separately, so a sync landing in between can serve those specs from
// different snapshots.
type Evaluator struct {
	store *Store
	geo   GeoLookup
	ua    UserAgentParser
	log   Logger
}

// NewEvaluator builds an Evaluator over store. Nil geo/ua/log fall
// back to no-op collaborators.
func NewEvaluator(store *Store, geo GeoLookup, ua UserAgentParser, log Logger) *Evaluator {
	if geo == nil {
		geo = NopGeoLookup{}
	}
	if ua == nil {
		ua = NopUserAgentParser{}
	}
	if log == nil {
		log = NopLogger{}
	}
	return &Evaluator{store: store, geo: geo, ua: ua, log: log}
}

func (e *Evaluator) logger() Logger { return e.log }

// gateCheckResult is the internal shape checkGateDepth returns to
// gate-referencing conditions: just enough to build an Exposure
// without exposing the full EvalResult machinery to condition.go.
type gateCheckResult struct {
	Pass               bool
	RuleID             string
	SecondaryExposures []Exposure
}

// CheckGate evaluates the named feature gate for user. Missing specs
// resolve to a failing result with no rule id, tagged
// ReasonUnrecognized, matching
// spec.md §4.3's fail-closed contract for unknown specs.
func (e *Evaluator) CheckGate(user User, gateName string) EvalResult {
	return e.evaluateSpec(user, gateName, FeatureGateKind, 0)
}

// GetConfig evaluates the named dynamic config for user.
func (e *Evaluator) GetConfig(user User, configName string) EvalResult {
	return e.evaluateSpec(user, configName, DynamicConfigKind, 0)
}

// GetLayer evaluates the named layer for user, delegating to the
// active experiment (if any) per the delegation rules below.
func (e *Evaluator) GetLayer(user User, layerName string) EvalResult {
	return e.evaluateSpec(user, layerName, LayerKind, 0)
}

func (e *Evaluator) checkGateDepth(user User, gateName string, depth int) gateCheckResult {
	result := e.evaluateSpecDepth(user, gateName, FeatureGateKind, depth)
	return gateCheckResult{
		Pass:               result.BoolValue,
		RuleID:             result.RuleID,
		SecondaryExposures: result.SecondaryExposures,
	}
}

func (e *Evaluator) evaluateSpec(user User, name string, kind SpecKind, depth int) EvalResult {
	return e.evaluateSpecDepth(user, name, kind, depth)
}

func (e *Evaluator) evaluateSpecDepth(user User, name string, kind SpecKind, depth int) EvalResult {
	spec, reason, ok := e.store.getSpec(name, kind)
	if !ok {
		return unrecognizedResult(kind)
	}

	if !spec.Enabled {
		return disabledResult(spec, reason)
	}

	result := e.evalRules(user, spec, depth)
	result.Reason = reason

	if spec.Type == LayerKind && result.ConfigDelegate != "" {
		delegate, delegateReason, ok := e.store.getSpec(result.ConfigDelegate, DynamicConfigKind)
		if ok {
			delegateResult := e.evalRules(user, delegate, depth)
			delegateResult.Reason = delegateReason
			delegateResult.SecondaryExposures = append(result.SecondaryExposures, delegateResult.SecondaryExposures...)
			delegateResult.ExplicitParameters = delegate.ExplicitParameters
			delegateResult.IsUserInExperiment = true
			delegateResult.IsExperimentActive = delegate.IsActive != nil && *delegate.IsActive
			return delegateResult
		}
	}

	return result
}

// evalRules walks spec's ordered rules. The first rule whose every
// condition passes decides the outcome: if its pass-percentage
// bucketing also admits the unit, its return value applies; if
// bucketing fails, evaluation stops right there and resolves to the
// spec's default value tagged with that rule's id — it does not fall
// through to later rules. Only when no rule's conditions all pass does
// evaluation reach the spec's own default with RuleID "default".
func (e *Evaluator) evalRules(user User, spec *ConfigSpec, depth int) EvalResult {
	var secondary []Exposure

	for _, rule := range spec.Rules {
		allPass := true
		for _, cond := range rule.Conditions {
			cr := e.evalCondition(user, cond, spec.Salt, depth)
			secondary = append(secondary, cr.SecondaryExposures...)
			if cr.Unrecognized {
				return EvalResult{
					Value:              spec.defaultValueMap(),
					BoolValue:          spec.defaultValueBool(),
					Reason:             ReasonUnrecognized,
					Unrecognized:       true,
					SecondaryExposures: secondary,
				}
			}
			if !cr.Pass {
				allPass = false
				break
			}
		}
		if !allPass {
			continue
		}

		unit := unitID(user, rule.IDType)
		if !passesRule(spec.Salt, rule.Salt, unit, rule.PassPercentage) {
			// A fully-matched rule that fails its own bucketing check
			// resolves to the spec's default value immediately, tagged
			// with this rule's id: it does not fall through to later
			// rules.
			return EvalResult{
				Value:              spec.defaultValueMap(),
				BoolValue:          spec.defaultValueBool(),
				RuleID:             rule.ID,
				SecondaryExposures: secondary,
				ExplicitParameters: spec.ExplicitParameters,
			}
		}

		return EvalResult{
			Value:              rule.returnValueMap(),
			BoolValue:          spec.Type == FeatureGateKind,
			RuleID:             rule.ID,
			GroupName:          rule.GroupName,
			SecondaryExposures: secondary,
			ConfigDelegate:     rule.ConfigDelegate,
			ExplicitParameters: spec.ExplicitParameters,
		}
	}

	return EvalResult{
		Value:              spec.defaultValueMap(),
		BoolValue:          spec.defaultValueBool(),
		RuleID:             "default",
		SecondaryExposures: secondary,
		ExplicitParameters: spec.ExplicitParameters,
	}
}

func disabledResult(spec *ConfigSpec, reason EvalReason) EvalResult {
	return EvalResult{
		Value:              spec.defaultValueMap(),
		BoolValue:          spec.defaultValueBool(),
		RuleID:             "disabled",
		Reason:             reason,
		ExplicitParameters: spec.ExplicitParameters,
	}
}

func unrecognizedResult(kind SpecKind) EvalResult {
	v := interface{}(map[string]interface{}{})
	return EvalResult{
		Value:        v,
		BoolValue:    false,
		Reason:       ReasonUnrecognized,
		Unrecognized: true,
	}
}
