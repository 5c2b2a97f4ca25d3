// Package render resolves the localized strings shown on worker push
// notifications. Locales outside the supported set fall back to English.
package render

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	defaultTitle        = "di-web"
	defaultBody         = "You have a new notification."
	defaultOpenLabel    = "Open"
	defaultDismissLabel = "Dismiss"
)

// Text holds the strings rendered on a push notification.
type Text struct {
	Title        string
	Body         string
	OpenLabel    string
	DismissLabel string
}

var supportedTags = []language.Tag{
	language.English,
	language.MustParse("pt-BR"),
}

var tagMatcher = language.NewMatcher(supportedTags)

// NotificationText returns the notification strings for the supplied locale.
func NotificationText(locale string) Text {
	printer := message.NewPrinter(resolveTag(locale))
	return Text{
		Title:        printer.Sprintf("worker.notification.title"),
		Body:         printer.Sprintf("worker.notification.body"),
		OpenLabel:    printer.Sprintf("worker.notification.open"),
		DismissLabel: printer.Sprintf("worker.notification.dismiss"),
	}
}

func resolveTag(locale string) language.Tag {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		return language.English
	}
	parsed, err := language.Parse(trimmed)
	if err != nil {
		return language.English
	}
	matched, _, _ := tagMatcher.Match(parsed)
	return matched
}
