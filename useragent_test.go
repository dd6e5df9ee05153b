package flagcore

import "testing"

func TestUserAgentInfoFieldLookupIsCaseInsensitive(t *testing.T) {
	info := UserAgentInfo{OSName: "iOS", BrowserName: "Safari"}
	if info.field("OS_NAME") != "iOS" {
		t.Fatalf("expected case-insensitive field lookup for os_name")
	}
	if info.field("browserName") != "Safari" {
		t.Fatalf("expected case-insensitive field lookup for browser_name")
	}
	if info.field("unknown_field") != "" {
		t.Fatalf("expected empty string for an unrecognized field")
	}
}

func TestNopUserAgentParserReturnsZeroValue(t *testing.T) {
	var p NopUserAgentParser
	info := p.Parse("Mozilla/5.0")
	if info != (UserAgentInfo{}) {
		t.Fatalf("expected NopUserAgentParser to return the zero value")
	}
}

func TestJoinNonEmptySkipsBlankParts(t *testing.T) {
	got := joinNonEmpty("14", "", "2")
	if got != "14.2" {
		t.Fatalf("expected blank parts to be skipped, got %q", got)
	}
}
