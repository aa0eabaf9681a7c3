package assist

// DefaultLocale is used whenever the caller's locale is not supported by the assistant
const DefaultLocale = "en-US"

// https://developers.google.com/assistant/sdk/reference/rpc/languages
var supportedLocales = map[string]struct{}{
	"de-DE": {},
	"en-AU": {},
	"en-CA": {},
	"en-GB": {},
	"en-IN": {},
	"en-US": {},
	"es-ES": {},
	"es-MX": {},
	"fr-CA": {},
	"fr-FR": {},
	"it-IT": {},
	"ja-JP": {},
	"ko-KR": {},
	"pt-BR": {},
}

// SupportedLocale returns locale if the assistant accepts it, DefaultLocale otherwise
func SupportedLocale(locale string) string {
	if _, ok := supportedLocales[locale]; ok {
		return locale
	}
	return DefaultLocale
}

// SupportedLocales lists the locales accepted by the assistant
func SupportedLocales() []string {
	locales := make([]string, 0, len(supportedLocales))
	for l := range supportedLocales {
		locales = append(locales, l)
	}
	return locales
}
