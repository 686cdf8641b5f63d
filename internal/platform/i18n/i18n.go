// Package i18n is the translation lookup for user-facing strings. Lookups
// are pure and never fail: a missing key yields the caller's literal
// fallback text.
package i18n

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Translator resolves message keys for one default locale.
type Translator struct {
	tag language.Tag

	mu       sync.RWMutex
	messages map[string]map[string]string // locale -> key -> message
}

// New parses the locale (BCP 47); unparseable input falls back to English.
func New(locale string) *Translator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Translator{
		tag:      tag,
		messages: make(map[string]map[string]string),
	}
}

// Locale returns the translator's default locale tag.
func (t *Translator) Locale() language.Tag {
	return t.tag
}

// Add registers a message for a locale.
func (t *Translator) Add(locale, key, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bundle, ok := t.messages[locale]
	if !ok {
		bundle = make(map[string]string)
		t.messages[locale] = bundle
	}
	bundle[key] = message
}

// Translate resolves key in the default locale, falling back to the literal
// fallback text, then interpolates {{var}} placeholders.
func (t *Translator) Translate(key, fallback string, vars map[string]string) string {
	t.mu.RLock()
	msg, ok := t.messages[t.tag.String()][key]
	if !ok {
		// Base language bundle, e.g. "en" for "en-US".
		base, _ := t.tag.Base()
		msg, ok = t.messages[base.String()][key]
	}
	t.mu.RUnlock()

	if !ok {
		msg = fallback
	}
	return interpolate(msg, vars)
}

func interpolate(msg string, vars map[string]string) string {
	for k, v := range vars {
		msg = strings.ReplaceAll(msg, "{{"+k+"}}", v)
	}
	return msg
}
