package locale

import "strings"

const (
	LanguageEnglish  = "en"
	LanguageSpanish  = "es"
	LanguageFrench   = "fr"
	LanguageGerman   = "de"
	LanguageArabic   = "ar"
	LanguageJapanese = "ja"
)

// Source 是生成内容的原始语言，所有翻译都以它为源。
const Source = LanguageEnglish

var names = map[string]string{
	LanguageEnglish:  "English",
	LanguageSpanish:  "Spanish",
	LanguageFrench:   "French",
	LanguageGerman:   "German",
	LanguageArabic:   "Arabic",
	LanguageJapanese: "Japanese",
}

// Supported 返回可用的语言代码，源语言在前。
func Supported() []string {
	return []string{LanguageEnglish, LanguageSpanish, LanguageFrench, LanguageGerman, LanguageArabic, LanguageJapanese}
}

// NormalizeLanguage maps "fr-FR", "FR" or "fr_ca" to "fr". Unsupported input yields "".
func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if idx := strings.IndexAny(trimmed, "-_"); idx > 0 {
		trimmed = trimmed[:idx]
	}
	if _, ok := names[trimmed]; ok {
		return trimmed
	}
	return ""
}

// LanguageFromAcceptLanguage returns the first supported language in an Accept-Language header.
func LanguageFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := part
		if idx := strings.Index(tag, ";"); idx >= 0 {
			tag = tag[:idx]
		}
		if lang := NormalizeLanguage(tag); lang != "" {
			return lang
		}
	}
	return ""
}

// Resolve 依次尝试显式参数与请求头，都不可用时回退到源语言。
func Resolve(query, acceptLanguage string) string {
	if lang := NormalizeLanguage(query); lang != "" {
		return lang
	}
	if lang := LanguageFromAcceptLanguage(acceptLanguage); lang != "" {
		return lang
	}
	return Source
}

// DisplayName returns the English name of a language code, used in model prompts.
func DisplayName(code string) string {
	if name, ok := names[NormalizeLanguage(code)]; ok {
		return name
	}
	return code
}
