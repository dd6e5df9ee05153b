package flagcore

import "testing"

func TestUnitIDDefaultsToUserID(t *testing.T) {
	u := User{UserID: "u1"}
	if unitID(u, "") != "u1" {
		t.Fatalf("expected empty idType to resolve to UserID")
	}
	if unitID(u, "userID") != "u1" {
		t.Fatalf("expected case-insensitive userID to resolve to UserID")
	}
}

func TestUnitIDResolvesCustomID(t *testing.T) {
	u := User{UserID: "u1", CustomIDs: map[string]string{"stableID": "stable-42"}}
	if unitID(u, "stableID") != "stable-42" {
		t.Fatalf("expected custom idType to resolve from CustomIDs")
	}
}

func TestUnitIDMissingCustomIDResolvesEmpty(t *testing.T) {
	u := User{UserID: "u1"}
	if unitID(u, "companyID") != "" {
		t.Fatalf("expected a missing custom idType to resolve to empty string")
	}
}
