package flagcore

import (
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// bootstrapFixture is the on-disk shape a local YAML fixture takes:
// human-writable gate/config/layer definitions that get compiled into
// a download_config_specs-shaped payload, so tests and offline dev
// don't need to hand-write the wire JSON.
type bootstrapFixture struct {
	Time           int64          `yaml:"time"`
	FeatureGates   []fixtureSpec  `yaml:"feature_gates"`
	DynamicConfigs []fixtureSpec  `yaml:"dynamic_configs"`
	Layers         []fixtureSpec  `yaml:"layers"`
}

type fixtureSpec struct {
	Name               string                 `yaml:"name"`
	Enabled            bool                   `yaml:"enabled"`
	Salt               string                 `yaml:"salt"`
	IDType             string                 `yaml:"id_type"`
	Entity             string                 `yaml:"entity"`
	DefaultValue       interface{}            `yaml:"default_value"`
	ExplicitParameters []string               `yaml:"explicit_parameters"`
	Rules              []fixtureRule          `yaml:"rules"`
}

type fixtureRule struct {
	ID             string                   `yaml:"id"`
	Name           string                   `yaml:"name"`
	GroupName      string                   `yaml:"group_name"`
	PassPercentage float64                  `yaml:"pass_percentage"`
	ReturnValue    interface{}              `yaml:"return_value"`
	ConfigDelegate string                   `yaml:"config_delegate"`
	Conditions     []fixtureCondition       `yaml:"conditions"`
}

type fixtureCondition struct {
	Type        ConditionType          `yaml:"type"`
	Operator    string                 `yaml:"operator"`
	Field       string                 `yaml:"field"`
	TargetValue interface{}            `yaml:"target_value"`
	IDType      string                 `yaml:"id_type"`
	Additional  map[string]interface{} `yaml:"additional_values"`
}

// LoadBootstrapFixture reads a YAML fixture from path and compiles it
// into a JSON payload suitable for Options.BootstrapPayload or a
// DataAdapter's AdapterKeyRulesets value.
func LoadBootstrapFixture(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return CompileBootstrapFixture(raw)
}

// CompileBootstrapFixture is the pure transform LoadBootstrapFixture
// wraps with file I/O, split out so tests can pass inline YAML.
func CompileBootstrapFixture(raw []byte) (string, error) {
	var fixture bootstrapFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return "", newCoreError(KindInvalidBootstrapValues, "parse bootstrap fixture", err)
	}

	resp := downloadConfigSpecResponse{
		HasUpdates:     true,
		Time:           fixture.Time,
		FeatureGates:   make([]ConfigSpec, 0, len(fixture.FeatureGates)),
		DynamicConfigs: make([]ConfigSpec, 0, len(fixture.DynamicConfigs)),
		LayerConfigs:   make([]ConfigSpec, 0, len(fixture.Layers)),
	}
	if resp.Time == 0 {
		resp.Time = time.Now().UnixMilli()
	}

	var err error
	if resp.FeatureGates, err = compileSpecs(fixture.FeatureGates, FeatureGateKind); err != nil {
		return "", err
	}
	if resp.DynamicConfigs, err = compileSpecs(fixture.DynamicConfigs, DynamicConfigKind); err != nil {
		return "", err
	}
	if resp.LayerConfigs, err = compileSpecs(fixture.Layers, LayerKind); err != nil {
		return "", err
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func compileSpecs(fixtures []fixtureSpec, kind SpecKind) ([]ConfigSpec, error) {
	specs := make([]ConfigSpec, 0, len(fixtures))
	for _, f := range fixtures {
		defaultValue, err := json.Marshal(f.DefaultValue)
		if err != nil {
			return nil, err
		}

		rules := make([]Rule, 0, len(f.Rules))
		for _, r := range f.Rules {
			returnValue, err := json.Marshal(r.ReturnValue)
			if err != nil {
				return nil, err
			}
			conditions := make([]Condition, 0, len(r.Conditions))
			for _, c := range r.Conditions {
				conditions = append(conditions, Condition{
					Type:             c.Type,
					Operator:         c.Operator,
					Field:            c.Field,
					TargetValue:      c.TargetValue,
					AdditionalValues: c.Additional,
					IDType:           c.IDType,
				})
			}
			rules = append(rules, Rule{
				ID:             r.ID,
				Name:           r.Name,
				GroupName:      r.GroupName,
				PassPercentage: r.PassPercentage,
				Conditions:     conditions,
				ReturnValue:    returnValue,
				ConfigDelegate: r.ConfigDelegate,
			})
		}

		specs = append(specs, ConfigSpec{
			Name:               f.Name,
			Type:               kind,
			Salt:               f.Salt,
			Enabled:            f.Enabled,
			DefaultValue:       defaultValue,
			Rules:              rules,
			IDType:             f.IDType,
			Entity:             f.Entity,
			ExplicitParameters: f.ExplicitParameters,
		})
	}
	return specs, nil
}
