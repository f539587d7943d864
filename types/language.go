package types

// Language is the closed set of languages this service speaks (spec §3.4).
type Language string

const (
	LanguageHebrew  Language = "he"
	LanguageEnglish Language = "en"
)

// LanguageContext separates the language used to query the place provider
// from the language used to talk to the user (spec §3.4). The two are
// derived independently; assistantLanguage must never feed back into
// searchLanguage.
type LanguageContext struct {
	SearchLanguage    Language `json:"searchLanguage"`
	AssistantLanguage Language `json:"assistantLanguage"`
	Sources           LanguageSources `json:"sources"`
}

// LanguageSources audits where each field of a LanguageContext came from.
type LanguageSources struct {
	SearchLanguage    string `json:"searchLanguage"`
	AssistantLanguage string `json:"assistantLanguage"`
}

// Source tags used by the resolver (internal/langctx).
const (
	SourceRegionPolicyPrefix = "region_policy:"
	SourceGlobalDefault      = "global_default"
	SourceLLMConfident       = "llm_confident"
	SourceUIFallback         = "ui_fallback"
)
