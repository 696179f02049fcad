package config

// tierModels maps cloud providers to their default model per tier.
var tierModels = map[ProviderID]map[ModelTier]string{
	ProviderGemini: {
		TierFast:        "gemini-2.5-flash",
		TierHighQuality: "gemini-2.5-pro",
	},
	ProviderAnthropic: {
		TierFast:        "claude-3-5-haiku-latest",
		TierHighQuality: "claude-sonnet-4-20250514",
	},
	ProviderMock: {
		TierFast:        "mock-1",
		TierHighQuality: "mock-1",
	},
}

// ModelFor resolves the model selector for the active provider and tier.
// Cloud providers map the tier to a default model unless selected_model is set.
// Local and OpenAI-compatible providers always use selected_model, which may be
// empty; the provider rejects an empty selector before any network I/O.
func (s *Settings) ModelFor(tier ModelTier) string {
	return s.ModelForProvider(s.Provider, tier)
}

// ModelForProvider is ModelFor for an explicit provider identity.
func (s *Settings) ModelForProvider(id ProviderID, tier ModelTier) string {
	ps := s.ProviderConfig(id)
	if ps.SelectedModel != "" {
		return ps.SelectedModel
	}
	if byTier, ok := tierModels[id]; ok {
		if tier == "" {
			tier = TierFast
		}
		return byTier[tier]
	}
	return ""
}

// ConfiguredModels returns the model list a provider accepts. Cloud providers
// always accept their tier defaults in addition to any configured models.
func (s *Settings) ConfiguredModels(id ProviderID) []string {
	ps := s.ProviderConfig(id)
	seen := make(map[string]struct{})
	var models []string
	add := func(m string) {
		if m == "" {
			return
		}
		if _, ok := seen[m]; ok {
			return
		}
		seen[m] = struct{}{}
		models = append(models, m)
	}
	if byTier, ok := tierModels[id]; ok {
		add(byTier[TierFast])
		add(byTier[TierHighQuality])
	}
	for _, m := range ps.Models {
		add(m)
	}
	add(ps.SelectedModel)
	return models
}
