package flagcore

import "strings"

// User carries the attributes a Condition evaluates against. UserID is
// the default unit of randomization; CustomIDs supplies alternates for
// idType-scoped bucketing (e.g. "stableID", "companyID").
//
// PrivateAttributes take precedence over Custom when both define the
// same key, and are intended for values that should drive targeting
// without being echoed back into any exposure log.
type User struct {
	UserID             string
	Email              string
	IPAddress          string
	UserAgent          string
	Country            string
	Locale             string
	AppVersion         string
	Custom             map[string]interface{}
	PrivateAttributes  map[string]interface{}
	StatsigEnvironment map[string]string
	CustomIDs          map[string]string
}

// unitID resolves the value bucketing math should hash for the given
// idType. An idType of "" or "userid" (case-insensitively) always
// means UserID; any other idType is looked up in CustomIDs, tried both
// as given and lower-cased, and yields "" if absent.
func unitID(u User, idType string) string {
	if idType == "" || strings.EqualFold(idType, "userid") {
		return u.UserID
	}
	if v, ok := u.CustomIDs[idType]; ok {
		return v
	}
	if v, ok := u.CustomIDs[strings.ToLower(idType)]; ok {
		return v
	}
	return ""
}
