package i18n

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Language is one of the supported interface and response languages.
type Language string

const (
	English Language = "en"
	Arabic  Language = "ar"
)

// ErrUnsupportedLanguage is returned when a language code is not in the supported set.
var ErrUnsupportedLanguage = errors.New("unsupported language")

var supported = []Language{English, Arabic}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

// Supported lists the selectable languages in display order.
func Supported() []Language {
	return append([]Language(nil), supported...)
}

// Parse normalizes a language code such as "AR" or "en-US".
func Parse(value string) (Language, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: empty code", ErrUnsupportedLanguage)
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, value)
	}
	base, _ := tag.Base()
	for _, lang := range supported {
		if base.String() == string(lang) {
			return lang, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, value)
}

// Negotiate picks the best supported language for an Accept-Language header,
// falling back to English.
func Negotiate(acceptLanguage string) Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(supported) {
		return English
	}
	return supported[idx]
}

// Direction reports the text direction used when rendering the language.
func (l Language) Direction() string {
	if l == Arabic {
		return "rtl"
	}
	return "ltr"
}

// EnglishName is the language name used inside model instructions.
func (l Language) EnglishName() string {
	if l == Arabic {
		return "Arabic"
	}
	return "English"
}

// Toggle flips between the two supported languages.
func (l Language) Toggle() Language {
	if l == Arabic {
		return English
	}
	return Arabic
}

// ContainsArabic reports whether text holds any Arabic-script rune.
func ContainsArabic(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}
