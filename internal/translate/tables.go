package translate

// Model routing is data, not code: adding a language pair or swapping in a
// better checkpoint is a table edit, never a new branch in the router.

// pairModelOverrides lists language pairs whose best hosted model is not the
// plain opus-mt template. Mostly the tc-big refreshes, which are markedly
// stronger for the Asian-language legs.
var pairModelOverrides = map[string]string{
	"ko-en": "Helsinki-NLP/opus-mt-tc-big-ko-en",
	"en-ko": "Helsinki-NLP/opus-mt-tc-big-en-ko",
	"tr-en": "Helsinki-NLP/opus-mt-tc-big-tr-en",
	"en-tr": "Helsinki-NLP/opus-mt-tc-big-en-tr",
	"en-pt": "Helsinki-NLP/opus-mt-tc-big-en-pt",
	"zh-en": "Helsinki-NLP/opus-mt-zh-en",
	"en-zh": "Helsinki-NLP/opus-mt-en-zh",
	"ja-en": "Helsinki-NLP/opus-mt-ja-en",
	"en-ja": "Helsinki-NLP/opus-mt-en-jap",
}

// DefaultOverrideLanguages is the default language-pair override table: any
// pair touching one of these languages tries the named cloud provider before
// the generic chain. Korean is the observed weak spot for the free models.
var DefaultOverrideLanguages = map[string]string{
	"ko": "gcloud",
}

// pairModel returns the hosted model identifier for a direct language pair.
func pairModel(src, tgt string) string {
	if m, ok := pairModelOverrides[src+"-"+tgt]; ok {
		return m
	}
	return "Helsinki-NLP/opus-mt-" + src + "-" + tgt
}
