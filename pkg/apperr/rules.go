package apperr

import "strings"

// rule maps a predicate over the lowercased error message to a code.
type rule struct {
	name    string
	code    Code
	matches func(msg string) bool
}

func containsAny(markers ...string) func(string) bool {
	return func(msg string) bool {
		for _, marker := range markers {
			if strings.Contains(msg, marker) {
				return true
			}
		}
		return false
	}
}

// rules is evaluated top to bottom; the first match wins. Upstream providers do
// not return structured codes, so message markers are the only signal.
var rules = []rule{
	{"api key missing", APIKeyMissing, containsAny(
		"api key is missing", "missing api key", "api key is required", "api key not configured", "no api key")},
	{"api key invalid", APIKeyInvalid, containsAny(
		"api key not valid", "invalid api key", "api_key_invalid", "incorrect api key", "invalid x-api-key",
		"http 401", "error 401", "status 401", "401 unauthorized")},
	{"rate limit", APIRateLimit, containsAny(
		"rate limit", "rate_limit", "resource_exhausted", "429", "too many requests")},
	{"quota", APIQuotaExceeded, containsAny("quota")},
	{"service unavailable", APIServiceUnavailable, containsAny(
		"unavailable", "overloaded", "503")},
	{"network", NetworkConnectionFailed, containsAny(
		"failed to fetch", "fetch", "network", "connection refused", "econnrefused", "connection reset", "no such host", "dial tcp")},
	{"timeout", NetworkTimeout, containsAny("timeout", "timed out", "deadline exceeded")},
	{"file too large", FileTooLarge, containsAny("too large", "too long", "exceeds", "maximum context length")},
	{"invalid format", FileInvalidFormat, containsAny("invalid format", "unsupported format", "unsupported file")},
	{"corrupted", FileCorrupted, containsAny("corrupt", "damaged")},
	{"read failed", FileReadFailed, containsAny("read failed", "no such file", "permission denied")},
	{"empty input", ValidationEmptyInput, containsAny("input is empty", "empty input")},
	{"missing field", ValidationMissingRequired, containsAny("is required", "missing required")},
	{"missing setting", ConfigMissingSetting, containsAny("is not configured", "missing setting")},
	{"invalid setting", ConfigInvalidValue, containsAny("invalid value for")},
	{"save failed", ConfigSaveFailed, containsAny("save failed")},
}

// inferCode applies the ordered rules, then the context fallbacks.
func inferCode(msg, context string) Code {
	lower := strings.ToLower(msg)
	for _, r := range rules {
		if r.matches(lower) {
			return r.code
		}
	}
	if context != "" && context != ContextSetup && context != ContextTitle {
		return ProcessingStageFailed
	}
	return SystemUnknown
}
