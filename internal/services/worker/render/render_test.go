package render

import "testing"

func TestNotificationTextEnglishDefaults(t *testing.T) {
	t.Parallel()

	text := NotificationText("en-US")

	if text.Title != "di-web" {
		t.Fatalf("title = %q, want %q", text.Title, "di-web")
	}
	if text.Body != "You have a new notification." {
		t.Fatalf("body = %q, want %q", text.Body, "You have a new notification.")
	}
	if text.OpenLabel != "Open" {
		t.Fatalf("open label = %q, want %q", text.OpenLabel, "Open")
	}
	if text.DismissLabel != "Dismiss" {
		t.Fatalf("dismiss label = %q, want %q", text.DismissLabel, "Dismiss")
	}
}

func TestNotificationTextBrazilianPortuguese(t *testing.T) {
	t.Parallel()

	text := NotificationText("pt-BR")

	if text.Body != "Você tem uma nova notificação." {
		t.Fatalf("body = %q, want %q", text.Body, "Você tem uma nova notificação.")
	}
	if text.OpenLabel != "Abrir" {
		t.Fatalf("open label = %q, want %q", text.OpenLabel, "Abrir")
	}
	if text.DismissLabel != "Dispensar" {
		t.Fatalf("dismiss label = %q, want %q", text.DismissLabel, "Dispensar")
	}
}

func TestNotificationTextFallsBackToEnglish(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		locale string
	}{
		{name: "empty", locale: ""},
		{name: "whitespace", locale: "   "},
		{name: "unsupported", locale: "fr-FR"},
		{name: "malformed", locale: "!!not-a-locale!!"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			text := NotificationText(tc.locale)
			if text.Body != "You have a new notification." {
				t.Fatalf("body = %q, want English fallback", text.Body)
			}
			if text.OpenLabel != "Open" {
				t.Fatalf("open label = %q, want English fallback", text.OpenLabel)
			}
		})
	}
}

func TestNotificationTextMatchesBaseLanguage(t *testing.T) {
	t.Parallel()

	// Plain "pt" has no exact catalog entry and should match pt-BR.
	text := NotificationText("pt")
	if text.OpenLabel != "Abrir" {
		t.Fatalf("open label = %q, want %q", text.OpenLabel, "Abrir")
	}
}
