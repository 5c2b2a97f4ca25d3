package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "worker.notification.title", defaultTitle)
	message.SetString(lang, "worker.notification.body", defaultBody)
	message.SetString(lang, "worker.notification.open", defaultOpenLabel)
	message.SetString(lang, "worker.notification.dismiss", defaultDismissLabel)
}
