package tool

import "strings"

const (
	LanguageTelugu  = "te"
	LanguageEnglish = "en"

	teluguRangeStart = 0x0C00
	teluguRangeEnd   = 0x0C7F
)

// ContainsTelugu reports whether text has at least one code point in the Telugu block.
func ContainsTelugu(text string) bool {
	return strings.ContainsFunc(text, func(r rune) bool {
		return r >= teluguRangeStart && r <= teluguRangeEnd
	})
}

// DetectLanguage guesses the contribution language of free text: Telugu if any
// Telugu script is present, English otherwise.
func DetectLanguage(text string) string {
	if ContainsTelugu(text) {
		return LanguageTelugu
	}
	return LanguageEnglish
}
