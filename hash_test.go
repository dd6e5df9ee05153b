package flagcore

import "testing"

func TestBucketHashDeterministic(t *testing.T) {
	a := bucketHash("salt.rule.user123")
	b := bucketHash("salt.rule.user123")
	if a != b {
		t.Fatalf("bucketHash not deterministic: %d != %d", a, b)
	}
}

func TestBucketHashDistinctInputs(t *testing.T) {
	a := bucketHash("salt.rule.user123")
	b := bucketHash("salt.rule.user124")
	if a == b {
		t.Fatalf("expected different hashes for different inputs")
	}
}

func TestPassesRuleAtExtremes(t *testing.T) {
	if passesRule("s", "r", "u", 0) {
		t.Fatalf("0%% pass percentage should never pass")
	}
	if !passesRule("s", "r", "u", 100) {
		t.Fatalf("100%% pass percentage should always pass")
	}
}

func TestPassesRuleStableAcrossCalls(t *testing.T) {
	first := passesRule("mysalt", "rulesalt", "a-user", 42.5)
	for i := 0; i < 100; i++ {
		if passesRule("mysalt", "rulesalt", "a-user", 42.5) != first {
			t.Fatalf("passesRule must be deterministic for the same inputs")
		}
	}
}

func TestUserBucketRange(t *testing.T) {
	for _, id := range []string{"a", "b", "c", "user-1", "user-2"} {
		bucket := userBucket("salt", id)
		if bucket < 0 || bucket >= 1000 {
			t.Fatalf("userBucket out of range: %d", bucket)
		}
	}
}

func TestIDListHashLength(t *testing.T) {
	h := idListHash("some-unit-id")
	if len(h) != 8 {
		t.Fatalf("expected 8-character id list hash, got %q (len %d)", h, len(h))
	}
}
