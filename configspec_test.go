package flagcore

import "testing"

func TestConfigSpecValidateAndNormalizeRejectsMissingID(t *testing.T) {
	spec := &ConfigSpec{
		Name: "bad_spec",
		Type: FeatureGateKind,
		Rules: []Rule{
			{PassPercentage: 50},
		},
	}
	if err := spec.validateAndNormalize(); err == nil {
		t.Fatalf("expected validation error for a rule with no ID")
	}
}

func TestConfigSpecValidateAndNormalizeRejectsOutOfRangePercentage(t *testing.T) {
	spec := &ConfigSpec{
		Name: "bad_spec",
		Type: FeatureGateKind,
		Rules: []Rule{
			{ID: "r1", PassPercentage: 150},
		},
	}
	if err := spec.validateAndNormalize(); err == nil {
		t.Fatalf("expected validation error for pass percentage over 100")
	}
}

func TestConfigSpecValidateAndNormalizeRejectsUnknownKind(t *testing.T) {
	spec := &ConfigSpec{Name: "bad_spec", Type: "not_a_real_kind"}
	if err := spec.validateAndNormalize(); err == nil {
		t.Fatalf("expected validation error for an unrecognized spec kind")
	}
}

func TestConfigSpecNormalizeInheritsSaltAndIDType(t *testing.T) {
	spec := &ConfigSpec{
		Name:   "good_spec",
		Type:   FeatureGateKind,
		Salt:   "spec-salt",
		IDType: "stableID",
		Rules: []Rule{
			{ID: "r1", PassPercentage: 50},
		},
	}
	if err := spec.validateAndNormalize(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if spec.Rules[0].Salt != "spec-salt" {
		t.Fatalf("expected rule to inherit spec salt, got %q", spec.Rules[0].Salt)
	}
	if spec.Rules[0].IDType != "stableID" {
		t.Fatalf("expected rule to inherit spec idType, got %q", spec.Rules[0].IDType)
	}
}

func TestConfigSpecNormalizeKeepsExplicitRuleSalt(t *testing.T) {
	spec := &ConfigSpec{
		Name: "good_spec",
		Type: FeatureGateKind,
		Salt: "spec-salt",
		Rules: []Rule{
			{ID: "r1", PassPercentage: 50, Salt: "explicit-rule-salt"},
		},
	}
	if err := spec.validateAndNormalize(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if spec.Rules[0].Salt != "explicit-rule-salt" {
		t.Fatalf("expected explicit rule salt to survive normalization, got %q", spec.Rules[0].Salt)
	}
}

func TestDefaultValueBoolOnMalformedPayload(t *testing.T) {
	spec := &ConfigSpec{DefaultValue: []byte("not json")}
	if spec.defaultValueBool() != false {
		t.Fatalf("expected malformed default value to resolve to false")
	}
}

func TestDefaultValueMapOnMalformedPayload(t *testing.T) {
	spec := &ConfigSpec{DefaultValue: []byte("not json")}
	m := spec.defaultValueMap()
	if m == nil || len(m) != 0 {
		t.Fatalf("expected malformed default value to resolve to an empty map, got %v", m)
	}
}
