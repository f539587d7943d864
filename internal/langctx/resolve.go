// Package langctx is the pure language-context resolver (SPEC_FULL.md
// §4.3, C9): it derives the language used to query the place provider
// independently from the language used to talk back to the user, and
// audits where each decision came from.
package langctx

import (
	"strings"

	"github.com/shacharon/searchcore/types"
)

// regionPolicy maps a region code to its canonical search language (spec
// §4.3). Any region not listed falls back to English with source
// SourceGlobalDefault.
var regionPolicy = map[string]types.Language{
	"IL": types.LanguageHebrew,
	"PS": types.LanguageHebrew,
	"US": types.LanguageEnglish,
	"GB": types.LanguageEnglish,
	"CA": types.LanguageEnglish,
	"AU": types.LanguageEnglish,
	"NZ": types.LanguageEnglish,
	"IE": types.LanguageEnglish,
}

// IntentLanguage is the model's guess at the language the user actually
// wants addressed back in, paired with its confidence (spec §4.3
// "model confidence"). A nil *IntentLanguage means the stage that would
// produce it never ran or never returned one.
type IntentLanguage struct {
	Language   types.Language
	Confidence float64
}

// ResolveInput is the input to Resolve (spec §4.3).
type ResolveInput struct {
	RegionCode     string
	UILanguage     string
	QueryLanguage  types.Language
	IntentLanguage *IntentLanguage
}

const assistantLanguageConfidenceThreshold = 0.7

// Resolve derives a LanguageContext from region policy and the intent
// stage's language guess, never from each other (spec §4.3, §8: a
// validator rejects any sources.searchLanguage mentioning "query",
// "assistant" or "ui" — see Validate).
func Resolve(in ResolveInput) types.LanguageContext {
	searchLanguage, searchSource := resolveSearchLanguage(in.RegionCode)
	assistantLanguage, assistantSource := resolveAssistantLanguage(in.IntentLanguage, in.UILanguage)

	return types.LanguageContext{
		SearchLanguage:    searchLanguage,
		AssistantLanguage: assistantLanguage,
		Sources: types.LanguageSources{
			SearchLanguage:    searchSource,
			AssistantLanguage: assistantSource,
		},
	}
}

func resolveSearchLanguage(regionCode string) (types.Language, string) {
	if lang, ok := regionPolicy[regionCode]; ok {
		return lang, types.SourceRegionPolicyPrefix + regionCode
	}
	return types.LanguageEnglish, types.SourceGlobalDefault
}

func resolveAssistantLanguage(intent *IntentLanguage, uiLanguage string) (types.Language, string) {
	if intent != nil && intent.Confidence >= assistantLanguageConfidenceThreshold && isSupported(intent.Language) {
		return intent.Language, types.SourceLLMConfident
	}
	if isSupported(types.Language(uiLanguage)) {
		return types.Language(uiLanguage), types.SourceUIFallback
	}
	return types.LanguageEnglish, types.SourceGlobalDefault
}

func isSupported(l types.Language) bool {
	return l == types.LanguageHebrew || l == types.LanguageEnglish
}

// Validate enforces the §8 testable property that sources never leak the
// fields they must stay independent from.
func Validate(ctx types.LanguageContext) error {
	lower := strings.ToLower(ctx.Sources.SearchLanguage)
	for _, forbidden := range []string{"query", "assistant", "ui"} {
		if strings.Contains(lower, forbidden) {
			return errSourceLeak("searchLanguage", forbidden)
		}
	}
	return nil
}

func errSourceLeak(field, forbidden string) error {
	return &sourceLeakError{field: field, forbidden: forbidden}
}

type sourceLeakError struct {
	field     string
	forbidden string
}

func (e *sourceLeakError) Error() string {
	return "langctx: sources." + e.field + " must not mention \"" + e.forbidden + "\""
}
