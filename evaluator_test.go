package flagcore

import "testing"

const disabledGateFixture = `
feature_gates:
  - name: off_gate
    enabled: false
    salt: s1
    rules:
      - id: r1
        pass_percentage: 100
        return_value: true
        conditions:
          - type: public
`

func TestDisabledGateShortCircuits(t *testing.T) {
	e := newTestEvaluator(t, disabledGateFixture)
	result := e.CheckGate(User{UserID: "u1"}, "off_gate")
	if result.BoolValue {
		t.Fatalf("disabled gate must never pass regardless of its rules")
	}
	if result.RuleID != "disabled" {
		t.Fatalf("expected rule id 'disabled', got %q", result.RuleID)
	}
}

const disabledGateDefaultTrueFixture = `
feature_gates:
  - name: off_gate_default_true
    enabled: false
    salt: s1
    default_value: true
    rules:
      - id: r1
        pass_percentage: 100
        return_value: true
        conditions:
          - type: public
`

func TestDisabledGateReturnsItsOwnDefaultValue(t *testing.T) {
	e := newTestEvaluator(t, disabledGateDefaultTrueFixture)
	result := e.CheckGate(User{UserID: "u1"}, "off_gate_default_true")
	if !result.BoolValue {
		t.Fatalf("expected a disabled gate to return its own defaultValue (true), got false")
	}
	if result.RuleID != "disabled" {
		t.Fatalf("expected rule id 'disabled', got %q", result.RuleID)
	}
}

const dynamicConfigFixture = `
dynamic_configs:
  - name: homepage_config
    enabled: true
    salt: s1
    default_value:
      title: "default title"
    rules:
      - id: variant_a
        pass_percentage: 0
        return_value:
          title: "variant a title"
        conditions:
          - type: public
`

func TestDynamicConfigBucketingFailureStopsAtMatchedRule(t *testing.T) {
	e := newTestEvaluator(t, dynamicConfigFixture)
	result := e.GetConfig(User{UserID: "u1"}, "homepage_config")
	m, ok := result.Value.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map value, got %T", result.Value)
	}
	if m["title"] != "default title" {
		t.Fatalf("expected the spec's default value, got %v", m["title"])
	}
	if result.RuleID != "variant_a" {
		t.Fatalf("expected the failed rule's own id, not a fallthrough to 'default', got %q", result.RuleID)
	}
}

const ruleOrderFixture = `
feature_gates:
  - name: ordered_gate
    enabled: true
    salt: s1
    rules:
      - id: first_never_matches
        pass_percentage: 100
        return_value: true
        conditions:
          - type: user_field
            field: plan
            operator: eq
            target_value: enterprise
      - id: second_always_matches
        pass_percentage: 100
        return_value: true
        conditions:
          - type: public
`

func TestRulesEvaluatedInOrder(t *testing.T) {
	e := newTestEvaluator(t, ruleOrderFixture)
	result := e.CheckGate(User{UserID: "u1", Custom: map[string]interface{}{"plan": "free"}}, "ordered_gate")
	if result.RuleID != "second_always_matches" {
		t.Fatalf("expected the second rule to match after the first fails, got %q", result.RuleID)
	}
}

const layerDelegationFixture = `
dynamic_configs:
  - name: exp_button_color
    enabled: true
    salt: expsalt
    explicit_parameters: ["color"]
    default_value:
      color: "blue"
    rules:
      - id: exp_rule
        pass_percentage: 100
        return_value:
          color: "red"
        conditions:
          - type: public
layers:
  - name: button_layer
    enabled: true
    salt: layersalt
    default_value:
      color: "gray"
    rules:
      - id: delegate_rule
        pass_percentage: 100
        config_delegate: exp_button_color
        return_value: {}
        conditions:
          - type: public
`

func TestLayerDelegatesToExperiment(t *testing.T) {
	e := newTestEvaluator(t, layerDelegationFixture)
	result := e.GetLayer(User{UserID: "u1"}, "button_layer")
	if !result.IsUserInExperiment {
		t.Fatalf("expected layer to report the user as in the delegated experiment")
	}
	m, ok := result.Value.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map value, got %T", result.Value)
	}
	if m["color"] != "red" {
		t.Fatalf("expected delegated experiment's rule value, got %v", m["color"])
	}
}
