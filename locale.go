package respondentgate

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale codes the questionnaire service understands.
const (
	LocaleEnglish = "en"
	LocaleWelsh   = "cy"
)

// LocaleFromRequest picks the respondent's locale: Welsh when their most
// preferred Accept-Language entry is Welsh or when they arrived via the
// Welsh-language domain (a "cyfrifiad" URL), English otherwise.
func LocaleFromRequest(acceptLanguage, requestURL string) string {
	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(tags) > 0 {
			if base, _ := tags[0].Base(); base.String() == LocaleWelsh {
				return LocaleWelsh
			}
		}
	}
	if strings.Contains(requestURL, "cyfrifiad") {
		return LocaleWelsh
	}
	return LocaleEnglish
}
