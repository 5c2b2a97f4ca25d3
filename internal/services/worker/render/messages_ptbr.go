package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.MustParse("pt-BR")

	message.SetString(lang, "worker.notification.title", "di-web")
	message.SetString(lang, "worker.notification.body", "Você tem uma nova notificação.")
	message.SetString(lang, "worker.notification.open", "Abrir")
	message.SetString(lang, "worker.notification.dismiss", "Dispensar")
}
