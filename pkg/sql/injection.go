package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/wubenqing/console/pkg/models"
)

// InjectionCheckResult contains the result of an injection check on a filter value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // Column the value was filtering on
	ParamValue  any    // The value that was checked
}

// CheckParameterForInjection uses libinjection to detect SQL injection patterns
// in a parameter value.
//
// Only string values are checked - numbers, booleans, and other types cannot
// contain SQL injection patterns and will return nil (no injection detected).
//
// Filter values are always bound as parameters, so a positive result is an
// audit signal only; it never changes the statement that is executed.
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			ParamName:   paramName,
			ParamValue:  value,
		}
	}

	return nil
}

// CheckConditionValues runs CheckParameterForInjection over every scalar and
// list element of the given conditions, in order.
func CheckConditionValues(conditions []models.FilterCondition) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for _, c := range conditions {
		var values []any
		switch c.Value.Kind() {
		case models.ValueScalar:
			values = []any{c.Value.Scalar()}
		case models.ValueList:
			values = c.Value.List()
		}
		for _, v := range values {
			if result := CheckParameterForInjection(c.Column, v); result != nil {
				results = append(results, result)
			}
		}
	}
	return results
}
