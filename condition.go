package flagcore

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// conditionResult is the outcome of evaluating a single Condition: a
// pass/fail verdict, any gate-dependency exposures picked up along the
// way, and whether the condition's type or operator was unrecognized
// (which fails closed and is reported as fetch-from-server).
type conditionResult struct {
	Pass               bool
	Unrecognized       bool
	SecondaryExposures []Exposure
}

// Exposure records that evaluating one condition depended on the
// outcome of another gate, so the caller can attribute a secondary
// exposure alongside the primary evaluation.
type Exposure struct {
	Gate   string
	Value  bool
	RuleID string
}

const maxGateRecursionDepth = 20

// evalCondition evaluates one condition against user, recursing into
// checkGate for pass_gate/fail_gate. depth guards against cyclic gate
// references: past maxGateRecursionDepth a gate reference is treated
// as non-match and logged once, never as an infinite loop.
func (e *Evaluator) evalCondition(user User, cond Condition, specSalt string, depth int) conditionResult {
	switch cond.Type {
	case PublicCondition:
		return conditionResult{Pass: true}

	case FailGateCondition, PassGateCondition, MultiFailGateCondition, MultiPassGateCondition:
		return e.evalGateCondition(user, cond, depth)

	case SegmentListCondition, NotSegmentListCondition:
		return e.evalSegmentListCondition(user, cond)
	}

	value, unrecognizedField := e.resolveFieldValue(user, cond, specSalt)
	if unrecognizedField {
		return conditionResult{Unrecognized: true}
	}

	pass, unrecognizedOp := evalOperator(cond.Operator, value, cond.TargetValue)
	return conditionResult{Pass: pass, Unrecognized: unrecognizedOp}
}

func (e *Evaluator) evalGateCondition(user User, cond Condition, depth int) conditionResult {
	if depth >= maxGateRecursionDepth {
		e.logger().Warn("gate recursion depth exceeded, treating as non-match", "field", cond.Field)
		return conditionResult{Pass: false}
	}

	names, single := gateNamesFromTarget(cond)
	if len(names) == 0 {
		return conditionResult{Pass: false}
	}

	wantPass := cond.Type == PassGateCondition || cond.Type == MultiPassGateCondition
	var exposures []Exposure
	overall := !wantPass // multi_*: any-of semantics start from the identity for OR
	if single {
		overall = wantPass
	}

	for _, name := range names {
		result := e.checkGateDepth(user, name, depth+1)
		exposures = append(exposures, result.SecondaryExposures...)
		exposures = append(exposures, Exposure{Gate: name, Value: result.Pass, RuleID: result.RuleID})

		if single {
			if cond.Type == FailGateCondition {
				overall = !result.Pass
			} else {
				overall = result.Pass
			}
			continue
		}
		if result.Pass {
			overall = wantPass
		}
	}

	return conditionResult{Pass: overall, SecondaryExposures: exposures}
}

func gateNamesFromTarget(cond Condition) (names []string, single bool) {
	switch v := cond.TargetValue.(type) {
	case string:
		return []string{v}, true
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		return names, false
	default:
		return nil, true
	}
}

func (e *Evaluator) evalSegmentListCondition(user User, cond Condition) conditionResult {
	listName, ok := cond.TargetValue.(string)
	if !ok {
		return conditionResult{Pass: false}
	}
	value, unrecognized := e.resolveFieldValue(user, cond, "")
	if unrecognized {
		return conditionResult{Unrecognized: true}
	}
	str, ok := value.(string)
	if !ok {
		return conditionResult{Pass: false}
	}

	inList := false
	if list := e.store.getIDList(listName); list != nil {
		inList = list.contains(str)
	}
	if cond.Type == NotSegmentListCondition {
		inList = !inList
	}
	return conditionResult{Pass: inList}
}

// resolveFieldValue reads the value a non-gate condition operates on.
// The bool return is true only when the condition type itself is
// unrecognized (fails closed per §4.2), never for a merely-absent
// field.
func (e *Evaluator) resolveFieldValue(user User, cond Condition, specSalt string) (interface{}, bool) {
	switch cond.Type {
	case IPBasedCondition:
		if v := getFromUser(user, cond.Field); v != nil && v != "" {
			return v, false
		}
		if strings.EqualFold(cond.Field, "country") {
			if country, ok := e.geo.LookupCountry(user.IPAddress); ok {
				return country, false
			}
		}
		return nil, false

	case UABasedCondition:
		if v := getFromUser(user, cond.Field); v != nil && v != "" {
			return v, false
		}
		info := e.ua.Parse(user.UserAgent)
		return info.field(cond.Field), false

	case UserFieldCondition, CurrencyCodeCondition:
		return getFromUser(user, cond.Field), false

	case EnvironmentFieldCond:
		return getFromEnvironment(user, cond.Field), false

	case UnitIDCondition:
		return unitID(user, cond.IDType), false

	case UserBucketCondition:
		salt, _ := cond.AdditionalValues["salt"].(string)
		if salt == "" {
			salt = specSalt
		}
		return userBucket(salt, unitID(user, cond.IDType)), false

	default:
		return nil, true
	}
}

func getFromUser(user User, field string) interface{} {
	// privateAttributes takes precedence over the well-known top-level
	// fields and custom, per the field-lookup precedence rule.
	if v, ok := user.PrivateAttributes[field]; ok {
		return v
	}
	if v, ok := user.PrivateAttributes[strings.ToLower(field)]; ok {
		return v
	}

	switch strings.ToLower(field) {
	case "userid", "user_id":
		return valueOrNil(user.UserID)
	case "email":
		return valueOrNil(user.Email)
	case "ip", "ipaddress", "ip_address":
		return valueOrNil(user.IPAddress)
	case "useragent", "user_agent":
		return valueOrNil(user.UserAgent)
	case "country":
		return valueOrNil(user.Country)
	case "locale":
		return valueOrNil(user.Locale)
	case "appversion", "app_version":
		return valueOrNil(user.AppVersion)
	}

	if v, ok := user.Custom[field]; ok {
		return v
	}
	if v, ok := user.Custom[strings.ToLower(field)]; ok {
		return v
	}
	return nil
}

func valueOrNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func getFromEnvironment(user User, field string) interface{} {
	if v, ok := user.StatsigEnvironment[field]; ok {
		return v
	}
	if v, ok := user.StatsigEnvironment[strings.ToLower(field)]; ok {
		return v
	}
	return nil
}

// evalOperator applies operator to (value, target). The bool return
// is true when the operator itself is unrecognized (fails closed).
func evalOperator(operator string, value, target interface{}) (pass bool, unrecognized bool) {
	op := strings.ToLower(operator)
	switch op {
	case "eq", "neq":
		equal := valuesEqual(value, target)
		if op == "eq" {
			return equal, false
		}
		return !equal, false

	case "gt":
		return compareNumbers(value, target, func(a, b float64) bool { return a > b }), false
	case "gte":
		return compareNumbers(value, target, func(a, b float64) bool { return a >= b }), false
	case "lt":
		return compareNumbers(value, target, func(a, b float64) bool { return a < b }), false
	case "lte":
		return compareNumbers(value, target, func(a, b float64) bool { return a <= b }), false

	case "version_gt":
		return compareVersions(value, target, func(c int) bool { return c > 0 }), false
	case "version_gte":
		return compareVersions(value, target, func(c int) bool { return c >= 0 }), false
	case "version_lt":
		return compareVersions(value, target, func(c int) bool { return c < 0 }), false
	case "version_lte":
		return compareVersions(value, target, func(c int) bool { return c <= 0 }), false
	case "version_eq":
		return compareVersions(value, target, func(c int) bool { return c == 0 }), false
	case "version_neq":
		return compareVersions(value, target, func(c int) bool { return c != 0 }), false

	case "any":
		return arrayAny(target, value, true, stringsEqualFn), false
	case "none":
		return !arrayAny(target, value, true, stringsEqualFn), false
	case "any_case_sensitive":
		return arrayAny(target, value, false, stringsEqualFn), false
	case "none_case_sensitive":
		return !arrayAny(target, value, false, stringsEqualFn), false

	case "str_starts_with_any":
		return arrayAny(target, value, true, strings.HasPrefix), false
	case "str_ends_with_any":
		return arrayAny(target, value, true, strings.HasSuffix), false
	case "str_contains_any":
		return arrayAny(target, value, true, strings.Contains), false
	case "str_contains_none":
		return !arrayAny(target, value, true, strings.Contains), false
	case "str_matches":
		return strMatches(value, target), false

	case "before":
		return timeValue(value).Before(timeValue(target)), false
	case "after":
		return timeValue(value).After(timeValue(target)), false
	case "on":
		return sameUTCDay(timeValue(value), timeValue(target)), false

	default:
		return false, true
	}
}

func stringsEqualFn(a, b string) bool { return a == b }

func valuesEqual(a, b interface{}) bool {
	if b == nil {
		return a == nil || a == ""
	}
	return reflect.DeepEqual(a, b)
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func compareNumbers(a, b interface{}, cmp func(x, y float64) bool) bool {
	na, oka := numericValue(a)
	nb, okb := numericValue(b)
	return oka && okb && cmp(na, nb)
}

func versionCompare(v1, v2 string) int {
	p1 := strings.Split(v1, ".")
	p2 := strings.Split(v2, ".")
	n := len(p1)
	if len(p2) > n {
		n = len(p2)
	}
	for i := 0; i < n; i++ {
		a := segmentAt(p1, i)
		b := segmentAt(p2, i)
		na, _ := strconv.ParseInt(a, 10, 64)
		nb, _ := strconv.ParseInt(b, 10, 64)
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return 0
}

func segmentAt(parts []string, i int) string {
	if i >= len(parts) {
		return "0"
	}
	return parts[i]
}

func compareVersions(a, b interface{}, satisfies func(cmp int) bool) bool {
	strA, okA := a.(string)
	strB, okB := b.(string)
	if !okA || !okB {
		return false
	}
	v1 := strings.SplitN(strA, "-", 2)[0]
	v2 := strings.SplitN(strB, "-", 2)[0]
	if v1 == "" || v2 == "" {
		return false
	}
	return satisfies(versionCompare(v1, v2))
}

func arrayAny(target, value interface{}, caseInsensitive bool, match func(a, b string) bool) bool {
	arr, ok := target.([]interface{})
	if !ok {
		return false
	}
	valStr, ok := stringify(value)
	if !ok {
		return false
	}
	if caseInsensitive {
		valStr = strings.ToLower(valStr)
	}
	for _, item := range arr {
		itemStr, ok := stringify(item)
		if !ok {
			continue
		}
		if caseInsensitive {
			itemStr = strings.ToLower(itemStr)
		}
		if match(valStr, itemStr) {
			return true
		}
	}
	return false
}

func stringify(v interface{}) (string, bool) {
	if v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func strMatches(value, target interface{}) bool {
	pattern, ok := target.(string)
	if !ok {
		return false
	}
	str, ok := value.(string)
	if !ok {
		return false
	}
	matched, err := regexp.MatchString(pattern, str)
	return err == nil && matched
}

func timeValue(v interface{}) time.Time {
	var seconds int64
	switch t := v.(type) {
	case float64:
		seconds = int64(t)
	case int64:
		seconds = t
	case int32:
		seconds = int64(t)
	case int:
		seconds = int64(t)
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return time.Time{}
		}
		seconds = n
	default:
		return time.Time{}
	}
	// Values look like unix millis when they'd otherwise land more
	// than a century in the future as seconds.
	if time.Unix(seconds, 0).Year() > time.Now().Year()+100 {
		return time.Unix(seconds/1000, 0).UTC()
	}
	return time.Unix(seconds, 0).UTC()
}

func sameUTCDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
