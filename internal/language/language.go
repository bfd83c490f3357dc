package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// common lists languages whose English names are accepted as word forms.
var common = []string{
	"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh", "ru", "ar", "hi",
	"nl", "pl", "sv", "da", "no", "fi", "tr", "uk", "cs", "el", "he", "id",
}

var byWord = func() map[string]string {
	names := display.English.Languages()
	words := make(map[string]string, len(common))
	for _, code := range common {
		tag := xlang.Make(code)
		if name := names.Name(tag); name != "" {
			words[strings.ToLower(name)] = code
		}
	}
	return words
}()

// ToISO2 converts a language code, tag, or English word to ISO 639-1.
// Unrecognized input returns "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if mapped, ok := byWord[code]; ok {
		return mapped
	}
	if tag, err := xlang.Parse(code); err == nil {
		base, _ := tag.Base()
		if iso := base.String(); len(iso) == 2 {
			return iso
		}
		return ""
	}
	if base, err := xlang.ParseBase(code); err == nil {
		if iso := base.String(); len(iso) == 2 {
			return iso
		}
	}
	return ""
}

// DisplayName returns the English name for a recognized code, "Auto" for
// empty input, or the uppercased input otherwise.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Auto"
	}
	iso := ToISO2(trimmed)
	if iso == "" {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(xlang.Make(iso)); name != "" {
		return name
	}
	return strings.ToUpper(iso)
}
