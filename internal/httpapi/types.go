package httpapi

import (
	"quantboard/internal/domain"
)

// RunsResponse lists all known runs, newest first.
type RunsResponse struct {
	Runs []domain.Run `json:"runs"`
}

// FilterRequest is a partial log filter update. A field absent from the
// JSON leaves the stored filter untouched; a field present overwrites
// it, even as an empty string.
type FilterRequest struct {
	Level    *string `json:"level,omitempty"`
	Category *string `json:"category,omitempty"`
	Keyword  *string `json:"keyword,omitempty"`
	RecordID *int64  `json:"record_id,omitempty"`
}

// PromptSettingsResponse lists stored system prompts.
type PromptSettingsResponse struct {
	Settings []domain.PromptSetting `json:"settings"`
}
