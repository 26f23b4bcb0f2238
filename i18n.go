package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

var localeFiles = []string{"active.en.toml", "active.zh.toml"}

func newBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, name := range localeFiles {
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return bundle, nil
}

// Localizer translates message ids for one locale. Unknown ids come back
// unchanged so a missing translation never blanks a label.
type Localizer struct {
	tag       language.Tag
	localizer *i18n.Localizer
}

// NewLocalizer creates a localizer for "en" or "zh". Anything else falls back
// to English.
func NewLocalizer(locale string) (*Localizer, error) {
	bundle, err := newBundle()
	if err != nil {
		return nil, err
	}
	tag := parseLocale(locale)
	return &Localizer{
		tag:       tag,
		localizer: i18n.NewLocalizer(bundle, tag.String()),
	}, nil
}

func parseLocale(locale string) language.Tag {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")) {
	case "zh", "zh-cn", "zh-hans":
		return language.Chinese
	default:
		return language.English
	}
}

func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// T translates a message id.
func (l *Localizer) T(messageID string) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	return msg
}

// TF translates a message id with template data.
func (l *Localizer) TF(messageID string, data map[string]interface{}) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		raw, _ := json.Marshal(data)
		return messageID + " " + string(raw)
	}
	return msg
}
