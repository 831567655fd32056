// Package i18n holds the UI strings and weekday labels for the supported languages.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"middag/internal/planner"
)

//go:embed locales/*.yaml
var localesFS embed.FS

const (
	English   = "en"
	Norwegian = "no"
	Spanish   = "es"

	// DefaultLanguage is used when no valid language is given.
	DefaultLanguage = Norwegian
	// FallbackLanguage is consulted when a key is missing in the active language.
	FallbackLanguage = English
)

// Languages lists the supported language codes.
var Languages = []string{English, Norwegian, Spanish}

// Message keys used outside of the locale files.
const (
	KeyNoDishesAvailable = "noDishesAvailable"
	KeyNoDishFound       = "noDishFound"
	KeyErrorKeptLocked   = "errorKeptLocked"
	KeyLoadError         = "loadError"
	KeySaveError         = "saveError"
	KeyNotFound          = "notFound"
	KeyBadRequest        = "badRequest"
	KeySharedPlanLink    = "sharedPlanLink"
	KeyUnauthorized      = "unauthorized"
	KeyUsageShow         = "usageShow"
	KeyWeeklyPlanTitle   = "weeklyPlanTitle"
)

// Translator looks up strings by language and key.
type Translator struct {
	tables map[string]map[string]string
}

// Load parses the embedded locale files.
func Load() (*Translator, error) {
	tr := &Translator{tables: make(map[string]map[string]string, len(Languages))}
	for _, lang := range Languages {
		data, err := localesFS.ReadFile(path.Join("locales", lang+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", lang, err)
		}
		table := map[string]string{}
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to decode locale %s: %w", lang, err)
		}
		tr.tables[lang] = table
	}
	return tr, nil
}

var defaultTranslator = mustLoad()

func mustLoad() *Translator {
	tr, err := Load()
	if err != nil {
		panic(err)
	}
	return tr
}

// Default returns the translator built from the embedded locales.
func Default() *Translator {
	return defaultTranslator
}

// Supported reports whether lang has a locale table.
func Supported(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Normalize lowercases lang and replaces unsupported values with DefaultLanguage.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if Supported(lang) {
		return lang
	}
	return DefaultLanguage
}

// T returns the string for key in lang, falling back to English and then to
// the key itself. {name} placeholders are replaced from params.
func (tr *Translator) T(lang, key string, params map[string]string) string {
	text, ok := tr.tables[lang][key]
	if !ok || text == "" {
		text, ok = tr.tables[FallbackLanguage][key]
	}
	if !ok || text == "" {
		text = key
	}
	for name, value := range params {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

// DayLabels renders weekday keys in lang.
func (tr *Translator) DayLabels(lang string) planner.DayLabels {
	return func(k planner.DayKey) string {
		return tr.T(lang, string(k), nil)
	}
}

// Messages returns the placeholder dishes for lang.
func (tr *Translator) Messages(lang string) planner.Messages {
	return planner.Messages{
		NoDishesAvailable: tr.T(lang, KeyNoDishesAvailable, nil),
		NoDishFound:       tr.T(lang, KeyNoDishFound, nil),
		ErrorKeptLocked:   tr.T(lang, KeyErrorKeptLocked, nil),
	}
}

// AllSentinels collects the placeholder dishes of every language, so a plan
// generated in one language never treats another language's placeholder as a dish.
func (tr *Translator) AllSentinels() planner.DishSet {
	out := planner.DishSet{}
	for _, lang := range Languages {
		m := tr.Messages(lang)
		for _, s := range []string{m.NoDishesAvailable, m.NoDishFound, m.ErrorKeptLocked} {
			out[s] = struct{}{}
		}
	}
	return out
}

// T translates with the default translator.
func T(lang, key string, params map[string]string) string {
	return defaultTranslator.T(lang, key, params)
}

// DayLabels returns weekday labels from the default translator.
func DayLabels(lang string) planner.DayLabels {
	return defaultTranslator.DayLabels(lang)
}

// Messages returns placeholder dishes from the default translator.
func Messages(lang string) planner.Messages {
	return defaultTranslator.Messages(lang)
}

// AllSentinels returns the placeholder dishes of every language.
func AllSentinels() planner.DishSet {
	return defaultTranslator.AllSentinels()
}
