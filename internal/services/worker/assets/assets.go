// Package assets embeds the worker release artifacts and serves them to
// clients. In development the gateway serves the bytes directly; in
// production Emit places the same bytes at the build output root.
package assets

import (
	"embed"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

//go:embed *.js
var FS embed.FS

const (
	// ScriptPath is the canonical worker script route.
	ScriptPath = "/sw.js"
	// MessagingScriptPath is the push messaging worker script route.
	MessagingScriptPath = "/firebase-messaging-sw.js"
)

var scriptFiles = map[string]string{
	ScriptPath:          "sw.js",
	MessagingScriptPath: "firebase-messaging-sw.js",
}

// Script returns the embedded worker artifact bytes.
func Script() ([]byte, error) {
	return FS.ReadFile("sw.js")
}

// Handler serves the embedded worker scripts. Responses carry a script
// content type and disable intermediary caching so clients always observe
// new releases.
func Handler() http.Handler {
	mux := http.NewServeMux()
	for route, file := range scriptFiles {
		name := file
		mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
			content, err := FS.ReadFile(name)
			if err != nil {
				http.Error(w, "worker script unavailable", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			_, _ = w.Write(content)
		})
	}
	return mux
}

// Emit writes the worker scripts into dir so a production build can serve
// them from its output root.
func Emit(dir string) error {
	if dir == "" {
		return fmt.Errorf("emit dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create emit dir: %w", err)
	}
	for _, file := range scriptFiles {
		content, err := FS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read embedded %s: %w", file, err)
		}
		target := filepath.Join(dir, file)
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
	}
	return nil
}
