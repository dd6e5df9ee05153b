package flagcore

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SpecKind is the recognized kind of a ConfigSpec.
type SpecKind string

const (
	FeatureGateKind   SpecKind = "feature_gate"
	DynamicConfigKind SpecKind = "dynamic_config"
	LayerKind         SpecKind = "layer"
)

var validate = validator.New()

// ConfigSpec is the parsed, validated representation of a gate,
// dynamic config, or layer as served by the config-specs endpoint.
type ConfigSpec struct {
	Name               string          `json:"name" validate:"required"`
	Type               SpecKind        `json:"type" validate:"required,oneof=feature_gate dynamic_config layer"`
	Salt               string          `json:"salt"`
	Enabled            bool            `json:"enabled"`
	DefaultValue       json.RawMessage `json:"defaultValue"`
	Rules              []Rule          `json:"rules" validate:"dive"`
	IDType             string          `json:"idType"`
	Entity             string          `json:"entity"`
	ExplicitParameters []string        `json:"explicitParameters"`
	IsActive           *bool           `json:"isActive,omitempty"`
}

// Rule is one ordered rule within a ConfigSpec.
type Rule struct {
	ID             string          `json:"id" validate:"required"`
	Name           string          `json:"name"`
	GroupName      string          `json:"groupName,omitempty"`
	PassPercentage float64         `json:"passPercentage" validate:"gte=0,lte=100"`
	Conditions     []Condition     `json:"conditions" validate:"dive"`
	ReturnValue    json.RawMessage `json:"returnValue"`
	Salt           string          `json:"salt"`
	IDType         string          `json:"idType"`
	ConfigDelegate string          `json:"configDelegate,omitempty"`
}

// ConditionType is the recognized kind of a Condition.
type ConditionType string

const (
	PublicCondition         ConditionType = "public"
	FailGateCondition       ConditionType = "fail_gate"
	PassGateCondition       ConditionType = "pass_gate"
	MultiFailGateCondition  ConditionType = "multi_fail_gate"
	MultiPassGateCondition  ConditionType = "multi_pass_gate"
	IPBasedCondition        ConditionType = "ip_based"
	UABasedCondition        ConditionType = "ua_based"
	UserFieldCondition      ConditionType = "user_field"
	CurrencyCodeCondition   ConditionType = "currency_code"
	EnvironmentFieldCond    ConditionType = "environment_field"
	UserBucketCondition     ConditionType = "user_bucket"
	UnitIDCondition         ConditionType = "unit_id"
	SegmentListCondition    ConditionType = "in_segment_list"
	NotSegmentListCondition ConditionType = "not_in_segment_list"
)

// Condition is one predicate within a Rule.
type Condition struct {
	Type             ConditionType          `json:"type" validate:"required"`
	Operator         string                 `json:"operator"`
	Field            string                 `json:"field"`
	TargetValue      interface{}            `json:"targetValue"`
	AdditionalValues map[string]interface{} `json:"additionalValues"`
	IDType           string                 `json:"idType"`
}

// downloadConfigSpecResponse is the config-specs endpoint payload.
type downloadConfigSpecResponse struct {
	HasUpdates             bool                `json:"has_updates"`
	Time                   int64               `json:"time"`
	FeatureGates           []ConfigSpec        `json:"feature_gates"`
	DynamicConfigs         []ConfigSpec        `json:"dynamic_configs"`
	LayerConfigs           []ConfigSpec        `json:"layer_configs"`
	Layers                 map[string][]string    `json:"layers"`
	SDKKeysToAppID         map[string]string      `json:"sdk_keys_to_app_ids"`
	DiagnosticsSampleRates map[string]interface{} `json:"diagnostics"`
}

// validateAndNormalize checks required fields, confirms the kind is
// recognized, and has every rule inherit the spec's salt/idType when
// its own is absent. A validation failure is a hard error: the caller
// must reject the whole snapshot, never apply it partially.
func (c *ConfigSpec) validateAndNormalize() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config spec %q: %w", c.Name, err)
	}
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Salt == "" {
			r.Salt = c.Salt
		}
		if r.IDType == "" {
			r.IDType = c.IDType
		}
		if err := validate.Struct(r); err != nil {
			return fmt.Errorf("config spec %q rule %q: %w", c.Name, r.ID, err)
		}
	}
	if c.IDType == "" {
		c.IDType = "userID"
	}
	return nil
}

// defaultValueMap unmarshals DefaultValue as a JSON object, used for
// dynamic_config and layer kinds. A malformed or missing value yields
// an empty object rather than an error: the spec's other fields still
// govern evaluation.
func (c *ConfigSpec) defaultValueMap() map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal(c.DefaultValue, &m); err != nil || m == nil {
		m = map[string]interface{}{}
	}
	return m
}

// defaultValueBool unmarshals DefaultValue as a bool, used for
// feature_gate kind. Malformed values default to false.
func (c *ConfigSpec) defaultValueBool() bool {
	var b bool
	_ = json.Unmarshal(c.DefaultValue, &b)
	return b
}

func (r *Rule) returnValueMap() map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal(r.ReturnValue, &m); err != nil || m == nil {
		m = map[string]interface{}{}
	}
	return m
}
