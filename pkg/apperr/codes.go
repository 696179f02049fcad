// Package apperr translates raw failures into structured, coded errors with a
// severity, a retryable flag and an optional user-facing remedy.
package apperr

// Code is a namespaced error code such as API_003.
type Code string

const (
	APIKeyMissing         Code = "API_001"
	APIKeyInvalid         Code = "API_002"
	APIRateLimit          Code = "API_003"
	APIQuotaExceeded      Code = "API_004"
	APIServiceUnavailable Code = "API_005"

	NetworkConnectionFailed Code = "NET_001"
	NetworkTimeout          Code = "NET_002"
	NetworkDNSFailed        Code = "NET_003"

	FileTooLarge      Code = "FILE_001"
	FileInvalidFormat Code = "FILE_002"
	FileCorrupted     Code = "FILE_003"
	FileReadFailed    Code = "FILE_004"
	FileUploadFailed  Code = "FILE_005"

	ValidationEmptyInput      Code = "VAL_001"
	ValidationInputTooLong    Code = "VAL_002"
	ValidationInvalidFormat   Code = "VAL_003"
	ValidationMissingRequired Code = "VAL_004"

	ConfigMissingSetting Code = "CFG_001"
	ConfigInvalidValue   Code = "CFG_002"
	ConfigSaveFailed     Code = "CFG_003"

	ProcessingPipelineFailed Code = "PROC_001"
	ProcessingStageFailed    Code = "PROC_002"
	ProcessingTimeout        Code = "PROC_003"
	ProcessingMemory         Code = "PROC_004"

	UIRenderFailed     Code = "UI_001"
	UIComponentCrashed Code = "UI_002"

	SystemUnknown     Code = "SYS_001"
	SystemMemoryLow   Code = "SYS_002"
	SystemStorageFull Code = "SYS_003"
)

// Category groups codes by the layer that failed.
type Category string

const (
	CategoryAPI        Category = "api"
	CategoryNetwork    Category = "network"
	CategoryFile       Category = "file"
	CategoryValidation Category = "validation"
	CategoryConfig     Category = "configuration"
	CategoryProcessing Category = "processing"
	CategoryUI         Category = "ui"
	CategorySystem     Category = "system"
)

// Severity ranks how disruptive a failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// codeInfo is the static description of a code.
type codeInfo struct {
	Name       string
	Category   Category
	Severity   Severity
	Retryable  bool
	UserAction string
}

var codeTable = map[Code]codeInfo{
	APIKeyMissing: {"API_KEY_MISSING", CategoryAPI, SeverityCritical, false,
		"Add an API key for the selected provider in the settings."},
	APIKeyInvalid: {"API_KEY_INVALID", CategoryAPI, SeverityCritical, false,
		"Check that the API key is correct and still active."},
	APIRateLimit: {"API_RATE_LIMIT", CategoryAPI, SeverityMedium, true,
		"The provider is rate limiting requests. Wait a minute and try again."},
	APIQuotaExceeded: {"API_QUOTA_EXCEEDED", CategoryAPI, SeverityHigh, false,
		"The API quota is exhausted. Check your plan or billing, or switch provider."},
	APIServiceUnavailable: {"API_SERVICE_UNAVAILABLE", CategoryAPI, SeverityHigh, true,
		"The provider is temporarily unavailable. Try again shortly."},

	NetworkConnectionFailed: {"NETWORK_CONNECTION_FAILED", CategoryNetwork, SeverityMedium, true,
		"Could not reach the provider. Check your connection, or that the local server is running."},
	NetworkTimeout: {"NETWORK_TIMEOUT", CategoryNetwork, SeverityMedium, true,
		"The request timed out. Try again, or use a smaller input."},
	NetworkDNSFailed: {"NETWORK_DNS_FAILED", CategoryNetwork, SeverityMedium, false,
		"The provider host name could not be resolved. Check the base URL."},

	FileTooLarge: {"FILE_TOO_LARGE", CategoryFile, SeverityMedium, false,
		"The input is too large. Split it into smaller parts."},
	FileInvalidFormat: {"FILE_INVALID_FORMAT", CategoryFile, SeverityMedium, false,
		"This file format is not supported. Use text, markdown or HTML."},
	FileCorrupted: {"FILE_CORRUPTED", CategoryFile, SeverityMedium, false,
		"The file appears to be damaged. Try exporting it again."},
	FileReadFailed: {"FILE_READ_FAILED", CategoryFile, SeverityMedium, false,
		"The file could not be read. Check the path and permissions."},
	FileUploadFailed: {"FILE_UPLOAD_FAILED", CategoryFile, SeverityMedium, false, ""},

	ValidationEmptyInput: {"VALIDATION_EMPTY_INPUT", CategoryValidation, SeverityLow, false,
		"Provide some text or at least one input file."},
	ValidationInputTooLong:    {"VALIDATION_INPUT_TOO_LONG", CategoryValidation, SeverityLow, false, ""},
	ValidationInvalidFormat:   {"VALIDATION_INVALID_FORMAT", CategoryValidation, SeverityLow, false, ""},
	ValidationMissingRequired: {"VALIDATION_MISSING_REQUIRED", CategoryValidation, SeverityLow, false, ""},

	ConfigMissingSetting: {"CONFIG_MISSING_SETTING", CategoryConfig, SeverityHigh, false,
		"A required setting is missing. Open the settings and complete the provider configuration."},
	ConfigInvalidValue: {"CONFIG_INVALID_VALUE", CategoryConfig, SeverityHigh, false,
		"A setting has an invalid value. Open the settings and correct it."},
	ConfigSaveFailed: {"CONFIG_SAVE_FAILED", CategoryConfig, SeverityMedium, false,
		"Settings could not be saved. Check disk space and permissions."},

	ProcessingPipelineFailed: {"PROCESSING_PIPELINE_FAILED", CategoryProcessing, SeverityHigh, false, ""},
	ProcessingStageFailed: {"PROCESSING_STAGE_FAILED", CategoryProcessing, SeverityHigh, false,
		"A processing stage failed. Try again, or switch to another model."},
	ProcessingTimeout: {"PROCESSING_TIMEOUT", CategoryProcessing, SeverityMedium, true, ""},
	ProcessingMemory:  {"PROCESSING_MEMORY", CategoryProcessing, SeverityHigh, false, ""},

	UIRenderFailed:     {"UI_RENDER_FAILED", CategoryUI, SeverityLow, false, ""},
	UIComponentCrashed: {"UI_COMPONENT_CRASHED", CategoryUI, SeverityMedium, false, ""},

	SystemUnknown:     {"SYSTEM_UNKNOWN", CategorySystem, SeverityLow, false, ""},
	SystemMemoryLow:   {"SYSTEM_MEMORY_LOW", CategorySystem, SeverityHigh, false, ""},
	SystemStorageFull: {"SYSTEM_STORAGE_FULL", CategorySystem, SeverityHigh, false, ""},
}

// Name returns the symbolic name of the code, e.g. API_RATE_LIMIT.
func (c Code) Name() string {
	if info, ok := codeTable[c]; ok {
		return info.Name
	}
	return string(c)
}

// Severity returns the fixed severity of the code.
func (c Code) Severity() Severity {
	if info, ok := codeTable[c]; ok {
		return info.Severity
	}
	return SeverityLow
}

// Category returns the category of the code.
func (c Code) Category() Category {
	if info, ok := codeTable[c]; ok {
		return info.Category
	}
	return CategorySystem
}

// Retryable reports whether the code describes a transient condition. The flag
// is advisory for the caller; automatic retries only happen for rate limits.
func (c Code) Retryable() bool {
	return codeTable[c].Retryable
}

// UserAction returns the canned remediation text, if any.
func (c Code) UserAction() string {
	return codeTable[c].UserAction
}
