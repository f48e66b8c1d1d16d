package social

// languageCodes maps the extended language names offered at registration to
// their ISO codes.
var languageCodes = map[string]string{
	"Italiano": "it",
	"English":  "en",
	"Francais": "fr",
	"Deutsch":  "de",
	"Espanol":  "es",
	"Chinese":  "zh",
}

// DefaultLanguage is used when a registration carries an unrecognized
// language name.
const DefaultLanguage = "it"

// NormalizeLanguage resolves an extended language name to its ISO code,
// falling back to the default. Names already in ISO form pass through.
func NormalizeLanguage(name string) string {
	if code, ok := languageCodes[name]; ok {
		return code
	}
	for _, code := range languageCodes {
		if code == name {
			return name
		}
	}
	return DefaultLanguage
}
