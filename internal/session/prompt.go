package session

import (
	"context"

	"quantboard/internal/domain"
)

// PromptSettings proxies the stored system prompts for the prompt
// editor. The backend owns persistence and scene fallback.
func (s *Session) PromptSettings(ctx context.Context, modelType, scene string) ([]domain.PromptSetting, error) {
	s.setLoading(LoadPrompt, true)
	settings, err := s.api.PromptSettings(ctx, modelType, scene)
	s.setLoading(LoadPrompt, false)
	return settings, err
}

// SavePromptSetting stores a system prompt for a (model_type, scene)
// pair.
func (s *Session) SavePromptSetting(ctx context.Context, modelType, scene, systemPrompt string) (domain.PromptSetting, error) {
	s.setLoading(LoadPrompt, true)
	setting, err := s.api.SavePromptSetting(ctx, modelType, scene, systemPrompt)
	s.setLoading(LoadPrompt, false)
	return setting, err
}
