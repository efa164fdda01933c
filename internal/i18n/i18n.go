// internal/i18n/i18n.go
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed locales/*.json
var localeFS embed.FS

const defaultLang = "en"

type catalog struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
}

var instance *catalog
var once sync.Once

// Initialize loads every embedded locale file. Locales ship inside the binary
// so the server does not depend on its working directory.
func Initialize() error {
	var err error
	once.Do(func() {
		instance = &catalog{translations: make(map[string]map[string]string)}
		err = instance.load()
	})
	return err
}

func (c *catalog) load() error {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("failed to list locales: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range entries {
		name := entry.Name()
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			return fmt.Errorf("failed to read locale %s: %w", name, err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return fmt.Errorf("failed to parse locale %s: %w", name, err)
		}
		c.translations[strings.TrimSuffix(name, ".json")] = translations
	}

	return nil
}

func (c *catalog) lookup(lang, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.translations[lang][key]
	return text, ok
}

// T resolves key in lang, falling back to the default language and finally to
// the key itself. Positional args format through fmt.Sprintf.
func T(lang, key string, args ...interface{}) string {
	if instance == nil {
		return key
	}

	text, ok := instance.lookup(lang, key)
	if !ok && lang != defaultLang {
		text, ok = instance.lookup(defaultLang, key)
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

func GetSupportedLanguages() []string {
	if instance == nil {
		return []string{defaultLang}
	}

	instance.mu.RLock()
	defer instance.mu.RUnlock()
	langs := make([]string, 0, len(instance.translations))
	for lang := range instance.translations {
		langs = append(langs, lang)
	}
	return langs
}
