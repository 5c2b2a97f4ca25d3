// Package script describes worker release artifacts. An artifact is a
// version-stamped JSON manifest naming the resources precached at install.
package script

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Manifest is the decoded body of a worker artifact.
type Manifest struct {
	Version  string   `json:"version"`
	Precache []string `json:"precache"`
}

// ParseManifest decodes raw artifact bytes. The version is required; the
// precache list is normalized to rooted, deduplicated paths.
func ParseManifest(raw []byte) (Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode worker manifest: %w", err)
	}
	manifest.Version = strings.TrimSpace(manifest.Version)
	if manifest.Version == "" {
		return Manifest{}, fmt.Errorf("worker manifest version is required")
	}

	seen := make(map[string]bool, len(manifest.Precache))
	normalized := make([]string, 0, len(manifest.Precache))
	for _, path := range manifest.Precache {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		normalized = append(normalized, path)
	}
	manifest.Precache = normalized
	return manifest, nil
}

// Fingerprint returns a short stable identifier for artifact bytes. Two
// artifacts share a fingerprint exactly when their bytes are identical.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:12]
}
